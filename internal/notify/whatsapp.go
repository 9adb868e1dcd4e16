package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
)

// WhatsAppSender delivers an order confirmation over WhatsApp.
type WhatsAppSender interface {
	SendOrderConfirmation(ctx context.Context, ev OrderCreatedEvent) error
}

// WhatsAppConfig holds Meta Graph API credentials for the business number.
type WhatsAppConfig struct {
	BaseURL       string
	PhoneNumberID string
	AccessToken   string
}

// WhatsAppClient sends text messages through the WhatsApp Cloud API.
type WhatsAppClient struct {
	cfg    WhatsAppConfig
	client *http.Client
}

var _ WhatsAppSender = (*WhatsAppClient)(nil)

func NewWhatsAppClient(cfg WhatsAppConfig) *WhatsAppClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://graph.facebook.com/v20.0"
	}
	return &WhatsAppClient{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *WhatsAppClient) SendOrderConfirmation(ctx context.Context, ev OrderCreatedEvent) error {
	if ev.CustomerPhone == "" {
		return nil
	}

	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                ev.CustomerPhone,
		"type":              "text",
		"text": map[string]string{
			"body": fmt.Sprintf("Hi %s! Your order %s for Rs. %s is confirmed.",
				ev.CustomerName, ev.OrderNumber, ev.Total),
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "encode message")
	}

	url := fmt.Sprintf("%s/%s/messages", c.cfg.BaseURL, c.cfg.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "send message")
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		return errors.Errorf("whatsapp api status %d", resp.StatusCode)
	}
	return nil
}
