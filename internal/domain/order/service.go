package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"comptoirs/internal/domain/customer"
	"comptoirs/internal/domain/product"
	"comptoirs/pkg/keylock"
)

// Service encapsulates the order lifecycle: creation with customer-tier
// discounting, line admission onto open orders, and shipment registration
// with stock commitment.
type Service struct {
	customers customer.Repository
	products  product.Repository
	orders    Repository

	// locks serializes AddLine and RegisterShipment on the same order so the
	// read-check-mutate-write sequences cannot interleave in-process. Cross-
	// process races are handled by the Repository (see RecordShipment).
	locks *keylock.KeyLock
	now   func() time.Time
}

// NewService creates an order Service with the required store dependencies.
func NewService(
	customers customer.Repository,
	products product.Repository,
	orders Repository,
) *Service {
	return &Service{
		customers: customers,
		products:  products,
		orders:    orders,
		locks:     keylock.New(),
		now:       time.Now,
	}
}

// CreateOrder opens a new order for the given customer. The discount rate is
// computed once from the customer's tier and the customer's current address is
// copied into the order's shipping address, so neither changes with the
// customer afterwards. Returns customer.ErrNotFound when the customer does
// not exist.
func (s *Service) CreateOrder(ctx context.Context, customerID string) (*Order, error) {
	cust, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			return nil, customer.ErrNotFound
		}
		return nil, errors.Wrap(err, "get customer")
	}

	o := &Order{
		ID:         uuid.New().String(),
		CustomerID: cust.ID,
		Discount:   DiscountFor(cust),
		// Address is a struct held by value, so this is a field-for-field
		// copy, not a reference to the customer's live address.
		ShippingAddress: cust.Address,
		CreatedAt:       s.now(),
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	return o, nil
}

// GetOrder returns an order with its lines. Returns ErrNotFound when no such
// order exists.
func (s *Service) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "get order")
	}
	return o, nil
}

// AddLine appends a new line to an open order.
//
// The quantity is validated before any store access: non-positive quantities
// fail with *InvalidQuantityError. The order and product must both exist
// (ErrNotFound, product.ErrNotFound) and the order must not be shipped
// (ErrAlreadyShipped). No stock is touched here; stock moves at shipment.
func (s *Service) AddLine(ctx context.Context, orderID, productID string, quantity int) (*Line, error) {
	if quantity <= 0 {
		return nil, &InvalidQuantityError{ProductID: productID, Quantity: quantity}
	}

	unlock := s.locks.Lock(orderID)
	defer unlock()

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "get order")
	}

	if o.Shipped() {
		return nil, ErrAlreadyShipped
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return nil, product.ErrNotFound
		}
		return nil, errors.Wrap(err, "get product")
	}

	l := &Line{
		ID:        uuid.New().String(),
		ProductID: p.ID,
		Quantity:  quantity,
	}

	if err := s.orders.AddLine(ctx, orderID, l); err != nil {
		return nil, errors.Wrap(err, "add line")
	}

	return l, nil
}

// RegisterShipment finalizes an order.
//
// If the order is already shipped the call is a no-op returning the order
// with its original shipment date; stock is not touched again. Otherwise the
// shipment date is stamped with the current time and, for every line, the
// product's in-stock count is decremented and its committed count incremented
// by the line quantity. The date stamp and all stock updates are persisted as
// one atomic unit. Stock is allowed to go negative.
func (s *Service) RegisterShipment(ctx context.Context, orderID string) (*Order, error) {
	unlock := s.locks.Lock(orderID)
	defer unlock()

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "get order")
	}

	if o.Shipped() {
		return o, nil
	}

	movements := stockMovements(o.Lines)

	shippedAt := s.now()
	o.ShippedAt = &shippedAt

	if err := s.orders.RecordShipment(ctx, o, movements); err != nil {
		o.ShippedAt = nil
		if errors.Is(err, ErrAlreadyShipped) {
			// Lost a cross-process race: someone else shipped between our
			// read and write. Re-read and honor idempotence.
			shipped, getErr := s.orders.GetByID(ctx, orderID)
			if getErr != nil {
				return nil, errors.Wrap(getErr, "reload shipped order")
			}
			return shipped, nil
		}
		return nil, errors.Wrap(err, "record shipment")
	}

	return o, nil
}

// stockMovements folds the given lines into one movement per product, in
// first-appearance order. The movements are relative quantities, applied by
// the store as in-stock down and committed up, so concurrent shipments of
// other orders sharing a product cannot overwrite each other's decrements.
func stockMovements(lines []Line) []StockMovement {
	index := make(map[string]int, len(lines))
	movements := make([]StockMovement, 0, len(lines))
	for _, l := range lines {
		i, ok := index[l.ProductID]
		if !ok {
			i = len(movements)
			index[l.ProductID] = i
			movements = append(movements, StockMovement{ProductID: l.ProductID})
		}
		movements[i].Quantity += l.Quantity
	}
	return movements
}
