package customer

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested customer does not exist.
var ErrNotFound = errors.New("customer not found")

// Tier classifies a customer for discounting purposes. It is maintained
// outside this service (derived from accumulated order volume).
type Tier string

const (
	// TierStandard is the default classification with no standing discount.
	TierStandard Tier = "standard"
	// TierLarge marks high-volume customers entitled to the standing discount.
	TierLarge Tier = "large"
)

// Address is a postal address. It is held by value everywhere: an order stores
// its own copy, so later changes to a customer's address never reach orders
// created before the change.
type Address struct {
	Street     string
	City       string
	PostalCode string
	Country    string
}

// Customer represents a buyer account. This service reads customers and never
// mutates them.
type Customer struct {
	ID      string
	Name    string
	Tier    Tier
	Address Address
}

// Repository defines read operations for customer accounts.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Customer, error)
}
