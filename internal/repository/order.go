package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"comptoirs/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (id, customer_id, discount,
			ship_street, ship_city, ship_postal_code, ship_country,
			shipped_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	getOrderByIDSQL = `SELECT id, customer_id, discount,
			ship_street, ship_city, ship_postal_code, ship_country,
			shipped_at, created_at
		FROM orders WHERE id = $1`

	getOrderLinesSQL = `SELECT id, product_id, quantity
		FROM order_lines WHERE order_id = $1 ORDER BY seq`

	addOrderLineSQL = `INSERT INTO order_lines (id, order_id, product_id, quantity)
		VALUES ($1, $2, $3, $4)`

	markOrderShippedSQL = `UPDATE orders SET shipped_at = $2
		WHERE id = $1 AND shipped_at IS NULL`

	commitProductStockSQL = `UPDATE products
		SET units_in_stock = units_in_stock - $2,
			units_committed = units_committed + $2
		WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order with no lines.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	_, err := r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.CustomerID, o.Discount,
		o.ShippingAddress.Street, o.ShippingAddress.City,
		o.ShippingAddress.PostalCode, o.ShippingAddress.Country,
		o.ShippedAt, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns a single order with its lines in insertion order.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
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

	lineRows, err := r.pool.Query(ctx, getOrderLinesSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting lines for order %q: %w", id, err)
	}
	o.Lines, err = pgx.CollectRows(lineRows, scanLine)
	if err != nil {
		return nil, fmt.Errorf("getting lines for order %q: %w", id, err)
	}
	return &o, nil
}

// AddLine appends a line to an existing order.
func (r *OrderRepository) AddLine(ctx context.Context, orderID string, l *order.Line) error {
	_, err := r.pool.Exec(ctx, addOrderLineSQL, l.ID, orderID, l.ProductID, l.Quantity)
	if err != nil {
		return fmt.Errorf("adding line to order %q: %w", orderID, err)
	}
	return nil
}

// RecordShipment stamps the shipment date and applies the stock movements in
// a single transaction. The writes are relative decrements, so shipments of
// other orders touching the same products compose instead of overwriting. The
// date is only written when the order has not shipped yet; a concurrent
// shipment surfaces as order.ErrAlreadyShipped and leaves the stock
// untouched.
func (r *OrderRepository) RecordShipment(ctx context.Context, o *order.Order, movements []order.StockMovement) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning shipment tx for order %q: %w", o.ID, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx, markOrderShippedSQL, o.ID, o.ShippedAt)
	if err != nil {
		return fmt.Errorf("marking order %q shipped: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrAlreadyShipped
	}

	for _, m := range movements {
		_, err = tx.Exec(ctx, commitProductStockSQL, m.ProductID, m.Quantity)
		if err != nil {
			return fmt.Errorf("committing stock for product %q: %w", m.ProductID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing shipment tx for order %q: %w", o.ID, err)
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o        order.Order
		discount decimal.Decimal
	)
	err := row.Scan(
		&o.ID, &o.CustomerID, &discount,
		&o.ShippingAddress.Street, &o.ShippingAddress.City,
		&o.ShippingAddress.PostalCode, &o.ShippingAddress.Country,
		&o.ShippedAt, &o.CreatedAt,
	)
	o.Discount = discount
	return o, err
}

func scanLine(row pgx.CollectableRow) (order.Line, error) {
	var l order.Line
	err := row.Scan(&l.ID, &l.ProductID, &l.Quantity)
	return l, err
}
