package product

import (
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var thousand = decimal.NewFromInt(1000)

// ParseWeight converts a weight specification into kilograms.
//
// Accepted forms: "500g", "500 g", "250gm", "1kg", "1.5 kg", "750".
// A bare number is grams. An empty specification weighs nothing.
func ParseWeight(spec string) (decimal.Decimal, error) {
	s := strings.ToLower(strings.TrimSpace(spec))
	if s == "" {
		return decimal.Zero, nil
	}

	grams := false
	switch {
	case strings.HasSuffix(s, "kg"):
		s = strings.TrimSpace(strings.TrimSuffix(s, "kg"))
	case strings.HasSuffix(s, "gm"):
		s = strings.TrimSpace(strings.TrimSuffix(s, "gm"))
		grams = true
	case strings.HasSuffix(s, "g"):
		s = strings.TrimSpace(strings.TrimSuffix(s, "g"))
		grams = true
	default:
		grams = true
	}

	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "invalid weight %q", spec)
	}
	if v.IsNegative() {
		return decimal.Zero, errors.Errorf("invalid weight %q: negative", spec)
	}

	if grams {
		v = v.Div(thousand)
	}
	return v, nil
}
