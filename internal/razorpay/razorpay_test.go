package razorpay

import (
	"encoding/json"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenbasket/commerce-api/internal/domain/payment"
)

func TestPaymentFromBody(t *testing.T) {
	body := map[string]interface{}{
		"id":       "pay_ABC",
		"order_id": "order_XYZ",
		"status":   "captured",
		"amount":   float64(21000),
		"currency": "INR",
	}

	p, err := paymentFromBody(body)
	require.NoError(t, err)
	assert.Equal(t, "pay_ABC", p.ID)
	assert.Equal(t, "order_XYZ", p.OrderID)
	assert.Equal(t, payment.StatusCaptured, p.Status)
	assert.Equal(t, int64(21000), p.Amount)
	assert.Equal(t, "INR", p.Currency)
}

func TestPaymentFromBody_MissingID(t *testing.T) {
	_, err := paymentFromBody(map[string]interface{}{"amount": float64(100)})
	require.Error(t, err)
}

func TestOrderFromBody(t *testing.T) {
	body := map[string]interface{}{
		"id":       "order_XYZ",
		"amount":   json.Number("21000"),
		"currency": "INR",
		"receipt":  "receipt_1",
	}

	o, err := orderFromBody(body)
	require.NoError(t, err)
	assert.Equal(t, "order_XYZ", o.ID)
	assert.Equal(t, int64(21000), o.Amount)
	assert.Equal(t, "receipt_1", o.Receipt)
}

func TestInt64Field(t *testing.T) {
	tests := []struct {
		name    string
		value   interface{}
		want    int64
		wantErr bool
	}{
		{name: "float64", value: float64(500), want: 500},
		{name: "json number", value: json.Number("500"), want: 500},
		{name: "int", value: 42, want: 42},
		{name: "int64", value: int64(42), want: 42},
		{name: "missing", wantErr: true},
		{name: "string", value: "500", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := int64Field(map[string]interface{}{"amount": tt.value}, "amount")
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want bool
	}{
		{
			name: "plain description",
			msg:  "The id provided does not exist",
			want: true,
		},
		{
			name: "error payload with matching code and description",
			msg:  `{"error":{"code":"BAD_REQUEST_ERROR","description":"The id provided does not exist"}}`,
			want: true,
		},
		{
			name: "error payload with invalid id wording",
			msg:  `{"error":{"code":"BAD_REQUEST_ERROR","description":"pay_x is not a valid id"}}`,
			want: true,
		},
		{
			name: "bad request for a different reason",
			msg:  `{"error":{"code":"BAD_REQUEST_ERROR","description":"amount exceeds maximum amount allowed"}}`,
			want: false,
		},
		{
			name: "server error echoing the phrase",
			msg:  `{"error":{"code":"SERVER_ERROR","description":"replica does not exist"}}`,
			want: false,
		},
		{
			name: "unrelated failure",
			msg:  "Authentication failed",
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isNotFound(errors.New(tt.msg)))
		})
	}
}
