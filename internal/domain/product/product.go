package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase.
type Product struct {
	ID          string
	Name        string
	Description string
	Category    string
	NormalPrice decimal.Decimal
	// OfferPrice is a promotional price overriding NormalPrice when set and
	// strictly lower. Nil means no offer is running.
	OfferPrice *decimal.Decimal
	Stock      int
	// Weight is the per-unit weight specification, e.g. "500g" or "1.5kg".
	// Unit-less values are grams. Parse with ParseWeight.
	Weight string
	Images []string
}

// UnitPrice returns the effective selling price: the offer price when present
// and lower than the list price, otherwise the list price.
func (p Product) UnitPrice() decimal.Decimal {
	if p.OfferPrice != nil && p.OfferPrice.LessThan(p.NormalPrice) {
		return *p.OfferPrice
	}
	return p.NormalPrice
}

// Repository defines operations on the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
