package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/go-faster/errors"
)

// Mailer sends an order confirmation to the customer.
type Mailer interface {
	SendOrderConfirmation(ctx context.Context, ev OrderCreatedEvent) error
}

// SMTPConfig holds plain-auth SMTP settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPMailer sends order confirmations over SMTP with PLAIN auth.
type SMTPMailer struct {
	cfg SMTPConfig
	// send is swapped in tests.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

var _ Mailer = (*SMTPMailer)(nil)

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}
}

func (m *SMTPMailer) SendOrderConfirmation(_ context.Context, ev OrderCreatedEvent) error {
	if ev.CustomerEmail == "" {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", ev.CustomerEmail)
	fmt.Fprintf(&b, "Subject: Order %s confirmed\r\n", ev.OrderNumber)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=\"utf-8\"\r\n\r\n")
	fmt.Fprintf(&b, "Hi %s,\r\n\r\n", ev.CustomerName)
	fmt.Fprintf(&b, "Your order %s has been confirmed.\r\n", ev.OrderNumber)
	fmt.Fprintf(&b, "Amount: Rs. %s (%s)\r\n\r\n", ev.Total, ev.PaymentMethod)
	b.WriteString("Thank you for shopping with us.\r\n")

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	if err := m.send(addr, auth, m.cfg.From, []string{ev.CustomerEmail}, []byte(b.String())); err != nil {
		return errors.Wrap(err, "send mail")
	}
	return nil
}
