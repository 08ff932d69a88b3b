package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item and its inventory counters.
//
// UnitsInStock and UnitsCommitted are mutated only when an order ships:
// shipping moves units from in-stock to committed. UnitsInStock may go
// negative; availability policy is enforced outside this service.
type Product struct {
	ID             string
	Name           string
	Price          decimal.Decimal
	UnitsInStock   int
	UnitsCommitted int
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
}
