// Package shipping computes delivery cost for an order from the destination
// region and the total shipment weight.
//
// Resolution order: an active admin-configured per-kg rate for the region
// wins; otherwise the region is mapped to a zone through an alias table and
// priced by that zone's tier schedule.
package shipping

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrRateNotFound is returned by a RateTable when no configured rate exists
// for a region.
var ErrRateNotFound = errors.New("shipping rate not found")

// Rate is an admin-configured per-kg shipping rate for a region.
type Rate struct {
	ID        string
	Region    string
	RatePerKg decimal.Decimal
	IsActive  bool
}

// RateTable provides lookup of configured shipping rates.
type RateTable interface {
	// FindActive returns the active rate for the normalized region, or
	// ErrRateNotFound when none is configured.
	FindActive(ctx context.Context, region string) (*Rate, error)
}

// Repository extends RateTable with the administrative operations.
type Repository interface {
	RateTable
	List(ctx context.Context) ([]Rate, error)
	Create(ctx context.Context, r *Rate) error
	Update(ctx context.Context, r *Rate) error
	Delete(ctx context.Context, id string) error
}

// Zone identifies a shipping zone with its own tier schedule.
type Zone string

const (
	// ZoneRegional covers destinations close to the fulfilment centre.
	ZoneRegional Zone = "regional"
	// ZoneNational covers all remaining domestic destinations.
	ZoneNational Zone = "national"
)

// Alias maps a substring of a normalized region name to a zone.
type Alias struct {
	Substring string
	Zone      Zone
}

// Band prices shipments up to MaxKg at a flat fee.
type Band struct {
	MaxKg decimal.Decimal
	Fee   decimal.Decimal
}

// Schedule is a zone's tiered price table: flat fees per weight band, then a
// per-kg rate above the last band.
type Schedule struct {
	Bands []Band
	PerKg decimal.Decimal
}

// Cost returns the shipping fee for the given weight. Weights within a band
// (inclusive upper bound) pay the band's flat fee; heavier shipments pay
// weight times the per-kg rate.
func (s Schedule) Cost(weightKg decimal.Decimal) decimal.Decimal {
	for _, b := range s.Bands {
		if weightKg.LessThanOrEqual(b.MaxKg) {
			return b.Fee
		}
	}
	return weightKg.Mul(s.PerKg).Round(2)
}

// Config holds the zone alias table and per-zone schedules. It is plain data
// so deployments can override the built-in defaults.
type Config struct {
	Aliases     []Alias
	Schedules   map[Zone]Schedule
	DefaultZone Zone
}

// DefaultConfig returns the built-in zone configuration: regions containing
// "TAMIL" ship at the regional tier, everything else at the national tier
// priced at double each band.
func DefaultConfig() Config {
	bands := func(fees ...string) []Band {
		maxes := []string{"1", "2", "3"}
		out := make([]Band, len(fees))
		for i, f := range fees {
			out[i] = Band{
				MaxKg: decimal.RequireFromString(maxes[i]),
				Fee:   decimal.RequireFromString(f),
			}
		}
		return out
	}

	return Config{
		Aliases: []Alias{
			{Substring: "TAMIL", Zone: ZoneRegional},
		},
		Schedules: map[Zone]Schedule{
			ZoneRegional: {Bands: bands("50", "80", "110"), PerKg: decimal.RequireFromString("40")},
			ZoneNational: {Bands: bands("100", "160", "220"), PerKg: decimal.RequireFromString("80")},
		},
		DefaultZone: ZoneNational,
	}
}

// Normalize canonicalizes a free-text region name for table lookups and
// alias matching.
func Normalize(region string) string {
	return strings.ToUpper(strings.TrimSpace(region))
}

// ResolveZone maps a normalized region to its zone via the alias table.
func (c Config) ResolveZone(region string) Zone {
	for _, a := range c.Aliases {
		if strings.Contains(region, a.Substring) {
			return a.Zone
		}
	}
	return c.DefaultZone
}

// Quote is the computed shipping cost for one shipment.
type Quote struct {
	Region   string
	WeightKg decimal.Decimal
	Cost     decimal.Decimal
}

// Quoter computes shipping quotes from a rate table and zone configuration.
type Quoter struct {
	rates RateTable
	cfg   Config
}

// NewQuoter creates a Quoter. A zero-value Config falls back to defaults.
func NewQuoter(rates RateTable, cfg Config) *Quoter {
	if len(cfg.Schedules) == 0 {
		cfg = DefaultConfig()
	}
	return &Quoter{rates: rates, cfg: cfg}
}

// QuoteFor prices a shipment of the given weight to the given region.
func (q *Quoter) QuoteFor(ctx context.Context, region string, weightKg decimal.Decimal) (Quote, error) {
	normalized := Normalize(region)

	rate, err := q.rates.FindActive(ctx, normalized)
	switch {
	case err == nil:
		return Quote{
			Region:   normalized,
			WeightKg: weightKg,
			Cost:     weightKg.Mul(rate.RatePerKg).Round(2),
		}, nil
	case errors.Is(err, ErrRateNotFound):
		// fall through to the zone schedule
	default:
		return Quote{}, errors.Wrap(err, "lookup shipping rate")
	}

	sched := q.cfg.Schedules[q.cfg.ResolveZone(normalized)]
	return Quote{
		Region:   normalized,
		WeightKg: weightKg,
		Cost:     sched.Cost(weightKg),
	}, nil
}
