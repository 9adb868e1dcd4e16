package notify

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MessageReader is the consuming side of a kafka reader.
// *kafka.Reader satisfies it.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// Worker consumes order-created events and fans each one out to the
// configured channels. A channel failure is logged and dropped;
// the worker only stops when its context does.
type Worker struct {
	reader   MessageReader
	mailer   Mailer
	whatsapp WhatsAppSender
	lg       *zap.Logger
}

func NewWorker(reader MessageReader, mailer Mailer, whatsapp WhatsAppSender, lg *zap.Logger) *Worker {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Worker{
		reader:   reader,
		mailer:   mailer,
		whatsapp: whatsapp,
		lg:       lg,
	}
}

// Run consumes messages until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		msg, err := w.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.lg.Error("Read message", zap.Error(err))
			continue
		}
		w.handle(ctx, msg)
	}
}

func (w *Worker) handle(ctx context.Context, msg kafka.Message) {
	var ev OrderCreatedEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		w.lg.Warn("Drop malformed event",
			zap.ByteString("key", msg.Key),
			zap.Error(err),
		)
		return
	}

	lg := w.lg.With(zap.String("order_number", ev.OrderNumber))

	g, gctx := errgroup.WithContext(ctx)
	if w.mailer != nil {
		g.Go(func() error {
			if err := w.mailer.SendOrderConfirmation(gctx, ev); err != nil {
				lg.Warn("Email notification failed", zap.Error(err))
			}
			return nil
		})
	}
	if w.whatsapp != nil {
		g.Go(func() error {
			if err := w.whatsapp.SendOrderConfirmation(gctx, ev); err != nil {
				lg.Warn("WhatsApp notification failed", zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}
