package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/greenbasket/commerce-api/internal/domain/shipping"
)

const (
	findActiveRateSQL = `SELECT id, region, rate_per_kg, is_active
		FROM shipping_rates WHERE UPPER(region) = UPPER($1) AND is_active = TRUE`

	listRatesSQL = `SELECT id, region, rate_per_kg, is_active
		FROM shipping_rates ORDER BY region`

	createRateSQL = `INSERT INTO shipping_rates (id, region, rate_per_kg, is_active)
		VALUES ($1, $2, $3, $4)`

	updateRateSQL = `UPDATE shipping_rates SET region = $2, rate_per_kg = $3, is_active = $4
		WHERE id = $1`

	deleteRateSQL = `DELETE FROM shipping_rates WHERE id = $1`

	upsertRateSQL = `INSERT INTO shipping_rates (id, region, rate_per_kg, is_active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (region) DO UPDATE SET
			rate_per_kg = EXCLUDED.rate_per_kg,
			is_active = EXCLUDED.is_active`
)

var _ shipping.Repository = (*ShippingRepository)(nil)

// ShippingRepository implements shipping.Repository backed by PostgreSQL.
type ShippingRepository struct {
	pool *pgxpool.Pool
}

// NewShippingRepository returns a ShippingRepository that uses the given pool.
func NewShippingRepository(pool *pgxpool.Pool) *ShippingRepository {
	return &ShippingRepository{pool: pool}
}

// FindActive returns the active override rate for a region
// (case-insensitive), or shipping.ErrRateNotFound when none is configured.
func (r *ShippingRepository) FindActive(ctx context.Context, region string) (*shipping.Rate, error) {
	rows, err := r.pool.Query(ctx, findActiveRateSQL, region)
	if err != nil {
		return nil, fmt.Errorf("finding rate for region %q: %w", region, err)
	}

	rate, err := pgx.CollectExactlyOneRow(rows, scanRate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shipping.ErrRateNotFound
		}
		return nil, fmt.Errorf("finding rate for region %q: %w", region, err)
	}
	return &rate, nil
}

// List returns all configured rates ordered by region.
func (r *ShippingRepository) List(ctx context.Context) ([]shipping.Rate, error) {
	rows, err := r.pool.Query(ctx, listRatesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing shipping rates: %w", err)
	}
	return pgx.CollectRows(rows, scanRate)
}

// Create inserts a new override rate. The region is stored normalized.
func (r *ShippingRepository) Create(ctx context.Context, rate *shipping.Rate) error {
	_, err := r.pool.Exec(ctx, createRateSQL,
		rate.ID, shipping.Normalize(rate.Region), rate.RatePerKg, rate.IsActive,
	)
	if err != nil {
		return fmt.Errorf("creating rate for region %q: %w", rate.Region, err)
	}
	return nil
}

// Upsert inserts a rate or replaces it by region. Used by seeding.
func (r *ShippingRepository) Upsert(ctx context.Context, rate *shipping.Rate) error {
	_, err := r.pool.Exec(ctx, upsertRateSQL,
		rate.ID, shipping.Normalize(rate.Region), rate.RatePerKg, rate.IsActive,
	)
	if err != nil {
		return fmt.Errorf("upserting rate for region %q: %w", rate.Region, err)
	}
	return nil
}

// Update replaces an existing override rate.
func (r *ShippingRepository) Update(ctx context.Context, rate *shipping.Rate) error {
	tag, err := r.pool.Exec(ctx, updateRateSQL,
		rate.ID, shipping.Normalize(rate.Region), rate.RatePerKg, rate.IsActive,
	)
	if err != nil {
		return fmt.Errorf("updating rate %q: %w", rate.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return shipping.ErrRateNotFound
	}
	return nil
}

// Delete removes an override rate by id.
func (r *ShippingRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteRateSQL, id)
	if err != nil {
		return fmt.Errorf("deleting rate %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return shipping.ErrRateNotFound
	}
	return nil
}

func scanRate(row pgx.CollectableRow) (shipping.Rate, error) {
	var rate shipping.Rate
	err := row.Scan(&rate.ID, &rate.Region, &rate.RatePerKg, &rate.IsActive)
	return rate, err
}
