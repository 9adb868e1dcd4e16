// Command seed-db loads the product catalog, starter coupons, shipping
// rates, and an admin API key into the database. Product files may be plain
// JSON or gzip-compressed (.gz).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"

	"github.com/greenbasket/commerce-api/internal/domain/auth"
	"github.com/greenbasket/commerce-api/internal/domain/coupon"
	"github.com/greenbasket/commerce-api/internal/domain/product"
	"github.com/greenbasket/commerce-api/internal/domain/shipping"
	"github.com/greenbasket/commerce-api/internal/storage/postgres"
)

type productJSON struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
	NormalPrice decimal.Decimal  `json:"normal_price"`
	OfferPrice  *decimal.Decimal `json:"offer_price"`
	Stock       int              `json:"stock"`
	Weight      string           `json:"weight"`
	Images      []string         `json:"images"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json.gz", "path to products JSON file, optionally gzipped")
	flag.StringVar(&apiKey, "api-key", "", "admin API key to seed (or BASKET_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or BASKET_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("BASKET_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or BASKET_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("BASKET_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, postgres.NewProductRepository(pool), productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedCoupons(ctx, postgres.NewCouponRepository(pool)); err != nil {
		return errors.Wrap(err, "seed coupons")
	}
	if err := seedShippingRates(ctx, postgres.NewShippingRepository(pool)); err != nil {
		return errors.Wrap(err, "seed shipping rates")
	}
	if err := seedAPIKey(ctx, postgres.NewAPIKeyRepository(pool), apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func readProductsFile(path string) ([]productJSON, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open products file")
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip reader")
		}
		defer gz.Close()
		r = gz
	}

	var products []productJSON
	if err := json.NewDecoder(r).Decode(&products); err != nil {
		return nil, errors.Wrap(err, "parse products JSON")
	}
	return products, nil
}

func seedProducts(ctx context.Context, repo *postgres.ProductRepository, path string) error {
	slog.Info("reading products file", slog.String("path", path))

	products, err := readProductsFile(path)
	if err != nil {
		return err
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if err := repo.Upsert(ctx, &product.Product{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Category:    p.Category,
			NormalPrice: p.NormalPrice,
			OfferPrice:  p.OfferPrice,
			Stock:       p.Stock,
			Weight:      p.Weight,
			Images:      p.Images,
		}); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
	}

	return nil
}

func seedCoupons(ctx context.Context, repo *postgres.CouponRepository) error {
	slog.Info("seeding starter coupons")

	maxDiscount := decimal.NewFromInt(50)
	limit := 1000
	coupons := []coupon.Coupon{
		{
			ID:             uuid.New().String(),
			Code:           "SAVE10",
			DiscountType:   coupon.DiscountPercentage,
			DiscountValue:  decimal.NewFromInt(10),
			MinOrderAmount: decimal.NewFromInt(100),
			MaxDiscount:    &maxDiscount,
			ValidFrom:      time.Now(),
			ValidUntil:     time.Now().AddDate(1, 0, 0),
			UsageLimit:     &limit,
			Active:         true,
		},
		{
			ID:             uuid.New().String(),
			Code:           "WELCOME50",
			DiscountType:   coupon.DiscountFixed,
			DiscountValue:  decimal.NewFromInt(50),
			MinOrderAmount: decimal.NewFromInt(300),
			ValidFrom:      time.Now(),
			ValidUntil:     time.Now().AddDate(1, 0, 0),
			Active:         true,
		},
	}

	for i := range coupons {
		if err := repo.Upsert(ctx, &coupons[i]); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", coupons[i].Code)
		}
		slog.Info("upserted coupon", slog.String("code", coupons[i].Code))
	}

	return nil
}

func seedShippingRates(ctx context.Context, repo *postgres.ShippingRepository) error {
	slog.Info("seeding shipping rate overrides")

	rates := []shipping.Rate{
		{ID: uuid.New().String(), Region: "PUDUCHERRY", RatePerKg: decimal.NewFromInt(55), IsActive: true},
	}

	for i := range rates {
		if err := repo.Upsert(ctx, &rates[i]); err != nil {
			return errors.Wrapf(err, "upsert rate %s", rates[i].Region)
		}
		slog.Info("upserted shipping rate", slog.String("region", rates[i].Region))
	}

	return nil
}

func seedAPIKey(ctx context.Context, repo *postgres.APIKeyRepository, apiKey, pepper string) error {
	slog.Info("seeding admin API key")

	return repo.Upsert(ctx, &auth.APIKeyInfo{
		ID:      uuid.New().String(),
		KeyHash: auth.HashKey(apiKey, []byte(pepper)),
		Name:    "admin",
		Scopes:  []string{"admin"},
	})
}
