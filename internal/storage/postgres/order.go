package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/greenbasket/commerce-api/internal/domain/coupon"
	"github.com/greenbasket/commerce-api/internal/domain/order"
)

const (
	// Stock is reserved with a conditional decrement. Zero rows affected
	// means the product is gone or short; the transaction rolls back.
	reserveStockSQL = `UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2`

	productStockSQL = `SELECT name, stock FROM products WHERE id = $1`

	insertOrderSQL = `INSERT INTO orders (id, order_number, first_name, last_name, email, phone, address, city,
		region, pincode, subtotal, shipping_cost, discount, total_amount,
		payment_method, payment_status, status, gateway_order_id, gateway_payment_id, coupon_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`

	insertOrderItemSQL = `INSERT INTO order_items (order_id, product_id, name, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)`

	insertTrackingSQL = `INSERT INTO order_tracking (order_id, status, note, at)
		VALUES ($1, $2, $3, $4)`

	// Bounded increment: a coupon at its usage limit affects zero rows and
	// aborts the transaction.
	useCouponSQL = `UPDATE coupons SET used_count = used_count + 1
		WHERE id = $1 AND (usage_limit IS NULL OR used_count < usage_limit)`

	orderColumns = `id, order_number, first_name, last_name, email, phone, address, city, region, pincode,
		subtotal, shipping_cost, discount, total_amount, payment_method, payment_status, status,
		gateway_order_id, gateway_payment_id, coupon_id, created_at`

	getOrderByIDSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	getOrderItemsSQL = `SELECT product_id, name, quantity, unit_price
		FROM order_items WHERE order_id = $1 ORDER BY id`

	countOrdersSQL = `SELECT count(*) FROM orders WHERE ($1 = '' OR status = $1)`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	updateOrderStatusSQL = `UPDATE orders SET status = $2 WHERE id = $1`

	statsSQL = `SELECT status, count(*), COALESCE(sum(total_amount), 0),
		count(*) FILTER (WHERE created_at >= date_trunc('day', now()))
		FROM orders GROUP BY status`
)

// createAttempts bounds retries on an order number collision. The number
// carries millisecond precision plus a random suffix, so a second collision
// in a row is already vanishingly unlikely.
const createAttempts = 3

var _ order.Store = (*OrderStore)(nil)

// orderDB is the slice of pgxpool.Pool the store needs. Tests substitute a
// fake to drive the transaction paths.
type orderDB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// OrderStore implements order.Store backed by PostgreSQL.
type OrderStore struct {
	db orderDB
}

// NewOrderStore returns an OrderStore that uses the given pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{db: pool}
}

// Create persists the order in a single transaction: stock reservation for
// every line, the order row with its items and initial tracking event, and
// the bounded coupon usage increment. A unique-violation on the order number
// regenerates the number and retries the whole transaction.
func (s *OrderStore) Create(ctx context.Context, o *order.Order) error {
	var lastErr error
	for attempt := 0; attempt < createAttempts; attempt++ {
		if attempt > 0 {
			o.Number = order.GenerateNumber()
		}
		err := s.createTx(ctx, o)
		if err == nil {
			return nil
		}
		if errors.Is(err, order.ErrDuplicateOrderNumber) {
			lastErr = err
			continue
		}
		return err
	}
	return lastErr
}

func (s *OrderStore) createTx(ctx context.Context, o *order.Order) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w: %w", order.ErrStorage, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, line := range o.Lines {
		if err := reserveStock(ctx, tx, line); err != nil {
			return err
		}
	}

	_, err = tx.Exec(ctx, insertOrderSQL,
		o.ID, o.Number, o.Customer.FirstName, o.Customer.LastName, o.Customer.Email, o.Customer.Phone,
		o.Customer.Address, o.Customer.City, o.Customer.Region, o.Customer.Pincode,
		o.Subtotal, o.ShippingCost, o.Discount, o.Total,
		o.PaymentMethod, o.PaymentStatus, o.Status,
		nullable(o.GatewayOrderID), nullable(o.GatewayPaymentID), nullable(o.CouponID),
		o.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "orders_order_number_key") {
			return order.ErrDuplicateOrderNumber
		}
		return fmt.Errorf("inserting order %q: %w: %w", o.Number, order.ErrStorage, err)
	}

	for _, line := range o.Lines {
		_, err = tx.Exec(ctx, insertOrderItemSQL,
			o.ID, line.ProductID, line.Name, line.Quantity, line.UnitPrice,
		)
		if err != nil {
			return fmt.Errorf("inserting order item %q: %w: %w", line.ProductID, order.ErrStorage, err)
		}
	}

	_, err = tx.Exec(ctx, insertTrackingSQL, o.ID, o.Status, "Order placed", o.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting tracking event: %w: %w", order.ErrStorage, err)
	}

	if o.CouponID != "" {
		tag, err := tx.Exec(ctx, useCouponSQL, o.CouponID)
		if err != nil {
			return fmt.Errorf("incrementing coupon usage: %w: %w", order.ErrStorage, err)
		}
		if tag.RowsAffected() == 0 {
			return coupon.ErrUsageLimitReached
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing order %q: %w: %w", o.Number, order.ErrStorage, err)
	}
	return nil
}

func reserveStock(ctx context.Context, tx pgx.Tx, line order.PricedLine) error {
	tag, err := tx.Exec(ctx, reserveStockSQL, line.ProductID, line.Quantity)
	if err != nil {
		return fmt.Errorf("reserving stock for %q: %w: %w", line.ProductID, order.ErrStorage, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Decrement failed: figure out whether the product vanished or is short.
	var (
		name  string
		stock int
	)
	err = tx.QueryRow(ctx, productStockSQL, line.ProductID).Scan(&name, &stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &order.ProductNotFoundError{ProductID: line.ProductID}
		}
		return fmt.Errorf("reading stock for %q: %w: %w", line.ProductID, order.ErrStorage, err)
	}
	return &order.InsufficientStockError{
		ProductID: line.ProductID,
		Name:      name,
		Available: stock,
		Requested: line.Quantity,
	}
}

// GetByID returns an order with its line items.
func (s *OrderStore) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := s.db.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	itemRows, err := s.db.Query(ctx, getOrderItemsSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting items for order %q: %w", id, err)
	}
	o.Lines, err = pgx.CollectRows(itemRows, scanOrderItem)
	if err != nil {
		return nil, fmt.Errorf("getting items for order %q: %w", id, err)
	}
	return &o, nil
}

// List returns a page of orders plus the total count matching the filter.
func (s *OrderStore) List(ctx context.Context, f order.ListFilter) ([]order.Order, int, error) {
	page := f.Page
	if page < 1 {
		page = 1
	}
	limit := f.Limit
	if limit < 1 {
		limit = 20
	}
	offset := (page - 1) * limit

	var total int
	if err := s.db.QueryRow(ctx, countOrdersSQL, string(f.Status)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting orders: %w", err)
	}

	rows, err := s.db.Query(ctx, listOrdersSQL, string(f.Status), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, 0, fmt.Errorf("listing orders: %w", err)
	}
	return orders, total, nil
}

// UpdateStatus transitions an order and appends a tracking event, atomically.
func (s *OrderStore) UpdateStatus(ctx context.Context, id string, status order.Status, note string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w: %w", order.ErrStorage, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, updateOrderStatusSQL, id, status)
	if err != nil {
		return fmt.Errorf("updating order %q status: %w: %w", id, order.ErrStorage, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}

	_, err = tx.Exec(ctx, insertTrackingSQL, id, status, note, time.Now())
	if err != nil {
		return fmt.Errorf("inserting tracking event: %w: %w", order.ErrStorage, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing status update: %w: %w", order.ErrStorage, err)
	}
	return nil
}

// Stats aggregates order counts and revenue for the dashboard.
func (s *OrderStore) Stats(ctx context.Context) (*order.Stats, error) {
	rows, err := s.db.Query(ctx, statsSQL)
	if err != nil {
		return nil, fmt.Errorf("querying order stats: %w", err)
	}
	defer rows.Close()

	stats := &order.Stats{
		ByStatus:     make(map[order.Status]int),
		TotalRevenue: decimal.Zero,
	}
	for rows.Next() {
		var (
			status  string
			count   int
			revenue decimal.Decimal
			today   int
		)
		if err := rows.Scan(&status, &count, &revenue, &today); err != nil {
			return nil, fmt.Errorf("scanning order stats: %w", err)
		}
		stats.ByStatus[order.Status(status)] = count
		stats.TotalOrders += count
		stats.TotalRevenue = stats.TotalRevenue.Add(revenue)
		stats.TodayOrders += today
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querying order stats: %w", err)
	}
	return stats, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o                                order.Order
		gatewayOrderID, gatewayPaymentID *string
		couponID                         *string
		method, payStatus, status        string
	)
	err := row.Scan(
		&o.ID, &o.Number, &o.Customer.FirstName, &o.Customer.LastName, &o.Customer.Email, &o.Customer.Phone,
		&o.Customer.Address, &o.Customer.City, &o.Customer.Region, &o.Customer.Pincode,
		&o.Subtotal, &o.ShippingCost, &o.Discount, &o.Total,
		&method, &payStatus, &status,
		&gatewayOrderID, &gatewayPaymentID, &couponID, &o.CreatedAt,
	)
	o.PaymentMethod = order.PaymentMethod(method)
	o.PaymentStatus = order.PaymentStatus(payStatus)
	o.Status = order.Status(status)
	o.GatewayOrderID = deref(gatewayOrderID)
	o.GatewayPaymentID = deref(gatewayPaymentID)
	o.CouponID = deref(couponID)
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.PricedLine, error) {
	var line order.PricedLine
	err := row.Scan(&line.ProductID, &line.Name, &line.Quantity, &line.UnitPrice)
	return line, err
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
