package shipping

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRateTable struct {
	rates map[string]*Rate
	err   error
}

func (m *mockRateTable) FindActive(_ context.Context, region string) (*Rate, error) {
	if m.err != nil {
		return nil, m.err
	}
	r, ok := m.rates[region]
	if !ok {
		return nil, ErrRateNotFound
	}
	return r, nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestNormalize(t *testing.T) {
	assert.Equal(t, "TAMIL NADU", Normalize("  tamil nadu "))
	assert.Equal(t, "KERALA", Normalize("Kerala"))
}

func TestResolveZone(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, ZoneRegional, cfg.ResolveZone("TAMIL NADU"))
	assert.Equal(t, ZoneRegional, cfg.ResolveZone("TAMILNADU"))
	assert.Equal(t, ZoneNational, cfg.ResolveZone("KARNATAKA"))
	assert.Equal(t, ZoneNational, cfg.ResolveZone(""))
}

func TestScheduleCost_TierBoundaries(t *testing.T) {
	sched := DefaultConfig().Schedules[ZoneRegional]

	tests := []struct {
		weight string
		want   string
	}{
		{"0", "50"},   // empty shipment still pays the minimum band
		{"0.5", "50"},
		{"1", "50"},   // inclusive upper bound
		{"1.01", "80"},
		{"2", "80"},
		{"2.5", "110"},
		{"3", "110"},
		{"3.2", "128"}, // 3.2 * 40
		{"5", "200"},
	}
	for _, tt := range tests {
		t.Run(tt.weight, func(t *testing.T) {
			got := sched.Cost(dec(tt.weight))
			assert.True(t, dec(tt.want).Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestScheduleCost_NationalDoublesRegional(t *testing.T) {
	cfg := DefaultConfig()
	reg := cfg.Schedules[ZoneRegional]
	nat := cfg.Schedules[ZoneNational]

	for i := range reg.Bands {
		assert.True(t, reg.Bands[i].Fee.Mul(dec("2")).Equal(nat.Bands[i].Fee))
	}
	assert.True(t, reg.PerKg.Mul(dec("2")).Equal(nat.PerKg))
}

func TestQuoteFor_ZoneSchedule(t *testing.T) {
	q := NewQuoter(&mockRateTable{}, Config{})

	quote, err := q.QuoteFor(context.Background(), "tamil nadu", dec("1"))
	require.NoError(t, err)
	assert.Equal(t, "TAMIL NADU", quote.Region)
	assert.True(t, dec("50").Equal(quote.Cost))

	quote, err = q.QuoteFor(context.Background(), "Maharashtra", dec("1"))
	require.NoError(t, err)
	assert.True(t, dec("100").Equal(quote.Cost))
}

func TestQuoteFor_ConfiguredRateOverridesSchedule(t *testing.T) {
	table := &mockRateTable{rates: map[string]*Rate{
		"TAMIL NADU": {Region: "TAMIL NADU", RatePerKg: dec("35"), IsActive: true},
	}}
	q := NewQuoter(table, Config{})

	quote, err := q.QuoteFor(context.Background(), "Tamil Nadu", dec("2"))
	require.NoError(t, err)
	assert.True(t, dec("70").Equal(quote.Cost), "got %s", quote.Cost)
}

func TestQuoteFor_TableErrorPropagates(t *testing.T) {
	q := NewQuoter(&mockRateTable{err: assert.AnError}, Config{})

	_, err := q.QuoteFor(context.Background(), "Kerala", dec("1"))
	require.Error(t, err)
}
