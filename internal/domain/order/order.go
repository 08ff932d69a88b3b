package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"comptoirs/internal/domain/customer"
)

// Sentinel errors for order lifecycle validation.
var (
	// ErrNotFound is returned when a requested order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrAlreadyShipped is returned when an operation requires an open order
	// but the order has already been finalized.
	ErrAlreadyShipped = errors.New("order already shipped")
)

// InvalidQuantityError indicates a line item with a non-positive quantity.
// It is raised before any store access.
type InvalidQuantityError struct {
	ProductID string
	Quantity  int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s, got %d", e.ProductID, e.Quantity)
}

// Order represents a customer's purchase record.
//
// Discount is fixed when the order is created and never recomputed.
// ShippingAddress is a value copy of the customer's address taken at creation
// time. ShippedAt is nil while the order is open; once set it never changes.
type Order struct {
	ID              string
	CustomerID      string
	Discount        decimal.Decimal
	ShippingAddress customer.Address
	Lines           []Line
	ShippedAt       *time.Time
	CreatedAt       time.Time
}

// Shipped reports whether the order has been finalized.
func (o *Order) Shipped() bool {
	return o.ShippedAt != nil
}

// Line is one product-and-quantity entry within an order. A line belongs to
// exactly one order and is never shared or reused.
type Line struct {
	ID        string
	ProductID string
	Quantity  int
}

// StockMovement is the total quantity of one product committed by a shipment.
// Lines of the same order referencing the same product fold into one movement.
type StockMovement struct {
	ProductID string
	Quantity  int
}

// Repository defines persistence operations for orders.
//
// Each method is a single atomic unit against the backing store. AddLine
// appends one line to an existing order. RecordShipment persists the shipment
// date together with the stock movements of every affected product: either
// all of it is applied or none of it. Movements are relative, so shipments of
// different orders touching the same product never overwrite each other.
// Implementations must return ErrAlreadyShipped from RecordShipment when the
// order's shipment date is already set, so concurrent callers in other
// processes cannot decrement stock twice.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	AddLine(ctx context.Context, orderID string, l *Line) error
	RecordShipment(ctx context.Context, o *Order, movements []StockMovement) error
}
