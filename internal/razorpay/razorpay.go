// Package razorpay adapts the Razorpay REST client to the payment.Gateway
// interface used by the order service.
package razorpay

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/go-faster/errors"
	rzp "github.com/razorpay/razorpay-go"

	"github.com/greenbasket/commerce-api/internal/domain/payment"
)

// Client wraps the Razorpay SDK client. The SDK does its own HTTP transport
// and does not accept a context, so the ctx parameters gate nothing beyond
// the caller's own deadline checks.
type Client struct {
	api *rzp.Client
}

var _ payment.Gateway = (*Client)(nil)

// New builds a Client authenticated with the given API key pair.
func New(keyID, keySecret string) *Client {
	return &Client{api: rzp.NewClient(keyID, keySecret)}
}

// CreateOrder registers a payment order with Razorpay. Amount is in the
// currency's minor unit (paise for INR).
func (c *Client) CreateOrder(_ context.Context, amount int64, currency, receipt string, notes map[string]string) (*payment.GatewayOrder, error) {
	data := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		n := make(map[string]interface{}, len(notes))
		for k, v := range notes {
			n[k] = v
		}
		data["notes"] = n
	}

	body, err := c.api.Order.Create(data, nil)
	if err != nil {
		return nil, errors.Wrap(err, "razorpay: create order")
	}
	return orderFromBody(body)
}

// FetchPayment retrieves a payment by its gateway id. Unknown ids map to
// payment.ErrNotFound.
func (c *Client) FetchPayment(_ context.Context, paymentID string) (*payment.Payment, error) {
	body, err := c.api.Payment.Fetch(paymentID, nil, nil)
	if err != nil {
		if isNotFound(err) {
			return nil, payment.ErrNotFound
		}
		return nil, errors.Wrap(err, "razorpay: fetch payment")
	}
	return paymentFromBody(body)
}

// Razorpay reports unknown ids with a BAD_REQUEST_ERROR whose description
// reads "The id provided does not exist". The SDK surfaces the raw error
// body, so decode the payload when present rather than trusting exact
// wording alone.
func isNotFound(err error) bool {
	msg := err.Error()

	var payload struct {
		Error struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	}
	if i := strings.Index(msg, "{"); i >= 0 &&
		json.Unmarshal([]byte(msg[i:]), &payload) == nil && payload.Error.Code != "" {
		if payload.Error.Code != "BAD_REQUEST_ERROR" {
			return false
		}
		desc := strings.ToLower(payload.Error.Description)
		return strings.Contains(desc, "does not exist") ||
			strings.Contains(desc, "is not a valid id")
	}

	return strings.Contains(msg, "does not exist")
}

func orderFromBody(body map[string]interface{}) (*payment.GatewayOrder, error) {
	id := stringField(body, "id")
	if id == "" {
		return nil, errors.New("razorpay: order response missing id")
	}
	amount, err := int64Field(body, "amount")
	if err != nil {
		return nil, errors.Wrap(err, "razorpay: order amount")
	}
	return &payment.GatewayOrder{
		ID:       id,
		Amount:   amount,
		Currency: stringField(body, "currency"),
		Receipt:  stringField(body, "receipt"),
	}, nil
}

func paymentFromBody(body map[string]interface{}) (*payment.Payment, error) {
	id := stringField(body, "id")
	if id == "" {
		return nil, errors.New("razorpay: payment response missing id")
	}
	amount, err := int64Field(body, "amount")
	if err != nil {
		return nil, errors.Wrap(err, "razorpay: payment amount")
	}
	return &payment.Payment{
		ID:       id,
		OrderID:  stringField(body, "order_id"),
		Status:   payment.Status(stringField(body, "status")),
		Amount:   amount,
		Currency: stringField(body, "currency"),
	}, nil
}

func stringField(body map[string]interface{}, key string) string {
	s, _ := body[key].(string)
	return s
}

// int64Field tolerates the numeric shapes a decoded JSON body can carry:
// float64 from encoding/json's default, json.Number when enabled, or a
// native integer from a mocked body.
func int64Field(body map[string]interface{}, key string) (int64, error) {
	switch v := body[key].(type) {
	case float64:
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case nil:
		return 0, errors.Errorf("field %q missing", key)
	default:
		return 0, errors.Errorf("field %q has unexpected type %T", key, v)
	}
}
