// Package notify publishes and consumes order notification events. Delivery
// is fire-and-forget: a lost notification never fails or rolls back an order.
package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"

	"github.com/greenbasket/commerce-api/internal/domain/order"
)

// OrderCreatedEvent is the wire payload emitted after an order commits.
type OrderCreatedEvent struct {
	OrderID       string    `json:"order_id"`
	OrderNumber   string    `json:"order_number"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	CustomerPhone string    `json:"customer_phone"`
	Total         string    `json:"total"`
	PaymentMethod string    `json:"payment_method"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewOrderCreatedEvent projects an order onto its notification payload.
func NewOrderCreatedEvent(o *order.Order) OrderCreatedEvent {
	return OrderCreatedEvent{
		OrderID:       o.ID,
		OrderNumber:   o.Number,
		CustomerName:  o.Customer.Name(),
		CustomerEmail: o.Customer.Email,
		CustomerPhone: o.Customer.Phone,
		Total:         o.Total.StringFixed(2),
		PaymentMethod: string(o.PaymentMethod),
		CreatedAt:     o.CreatedAt,
	}
}

// Publisher delivers an encoded event to a message broker.
type Publisher interface {
	Publish(ctx context.Context, key, value []byte) error
}

// KafkaHook is an order.Hook that publishes an OrderCreatedEvent keyed by
// order id, so retries and status updates for one order stay on one partition.
type KafkaHook struct {
	pub Publisher
}

var _ order.Hook = (*KafkaHook)(nil)

// NewKafkaHook wraps a Publisher as a post-commit order hook.
func NewKafkaHook(pub Publisher) *KafkaHook {
	return &KafkaHook{pub: pub}
}

func (h *KafkaHook) OrderCreated(ctx context.Context, o *order.Order) error {
	value, err := json.Marshal(NewOrderCreatedEvent(o))
	if err != nil {
		return errors.Wrap(err, "encode event")
	}
	if err := h.pub.Publish(ctx, []byte(o.ID), value); err != nil {
		return errors.Wrap(err, "publish event")
	}
	return nil
}
