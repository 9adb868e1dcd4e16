package notify

import (
	"context"
	"encoding/json"
	"net/smtp"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenbasket/commerce-api/internal/domain/order"
)

func testOrder() *order.Order {
	return &order.Order{
		ID:     "o1",
		Number: "ORD-1700000000000-042",
		Customer: order.Customer{
			FirstName: "Asha", LastName: "R",
			Email: "asha@example.com", Phone: "919000000000",
		},
		Total:         decimal.RequireFromString("210"),
		PaymentMethod: order.PaymentCOD,
		CreatedAt:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNewOrderCreatedEvent(t *testing.T) {
	ev := NewOrderCreatedEvent(testOrder())

	assert.Equal(t, "ORD-1700000000000-042", ev.OrderNumber)
	assert.Equal(t, "Asha R", ev.CustomerName)
	assert.Equal(t, "210.00", ev.Total)
	assert.Equal(t, "COD", ev.PaymentMethod)
}

type capturePublisher struct {
	key, value []byte
	err        error
}

func (p *capturePublisher) Publish(_ context.Context, key, value []byte) error {
	p.key, p.value = key, value
	return p.err
}

func TestKafkaHook(t *testing.T) {
	pub := &capturePublisher{}
	hook := NewKafkaHook(pub)

	require.NoError(t, hook.OrderCreated(context.Background(), testOrder()))

	assert.Equal(t, []byte("o1"), pub.key, "keyed by order id")
	var ev OrderCreatedEvent
	require.NoError(t, json.Unmarshal(pub.value, &ev))
	assert.Equal(t, "o1", ev.OrderID)
}

func TestKafkaHook_PublishError(t *testing.T) {
	pub := &capturePublisher{err: errors.New("broker down")}
	hook := NewKafkaHook(pub)

	err := hook.OrderCreated(context.Background(), testOrder())
	require.Error(t, err)
}

func TestSMTPMailer(t *testing.T) {
	var (
		gotTo  []string
		gotMsg string
	)
	m := NewSMTPMailer(SMTPConfig{
		Host: "smtp.example.com", Port: 587,
		From: "orders@example.com",
	})
	m.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		assert.Equal(t, "smtp.example.com:587", addr)
		assert.Equal(t, "orders@example.com", from)
		gotTo = to
		gotMsg = string(msg)
		return nil
	}

	ev := NewOrderCreatedEvent(testOrder())
	require.NoError(t, m.SendOrderConfirmation(context.Background(), ev))

	assert.Equal(t, []string{"asha@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Order ORD-1700000000000-042 confirmed")
	assert.Contains(t, gotMsg, "Rs. 210.00")
}

func TestSMTPMailer_NoEmailIsNoop(t *testing.T) {
	m := NewSMTPMailer(SMTPConfig{})
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send should not be called")
		return nil
	}

	ev := OrderCreatedEvent{OrderNumber: "ORD-1-000"}
	require.NoError(t, m.SendOrderConfirmation(context.Background(), ev))
}

type scriptedReader struct {
	msgs []kafka.Message
}

func (r *scriptedReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

type blockingMailer struct {
	got chan OrderCreatedEvent
	err error
}

func (m *blockingMailer) SendOrderConfirmation(_ context.Context, ev OrderCreatedEvent) error {
	m.got <- ev
	return m.err
}

func TestWorker_DeliversAndSurvivesFailures(t *testing.T) {
	value, err := json.Marshal(NewOrderCreatedEvent(testOrder()))
	require.NoError(t, err)

	reader := &scriptedReader{msgs: []kafka.Message{
		{Key: []byte("bad"), Value: []byte("{not json")},
		{Key: []byte("o1"), Value: value},
	}}
	mailer := &blockingMailer{got: make(chan OrderCreatedEvent, 2), err: errors.New("smtp down")}

	w := NewWorker(reader, mailer, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case ev := <-mailer.got:
		assert.Equal(t, "o1", ev.OrderID, "malformed message dropped, valid one delivered")
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not deliver the event")
	}

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on cancellation")
	}
}
