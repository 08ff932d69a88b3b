package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comptoirs/internal/domain/customer"
	"comptoirs/internal/domain/order"
	"comptoirs/internal/domain/product"
)

// --- Mock implementations ---

type mockCustomerRepo struct {
	byID map[string]*customer.Customer
}

func (m *mockCustomerRepo) GetByID(_ context.Context, id string) (*customer.Customer, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, customer.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

type mockProductRepo struct {
	products []product.Product
	byID     map[string]*product.Product
	listErr  error
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) {
	return m.products, m.listErr
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

type mockOrderRepo struct {
	byID     map[string]*order.Order
	products *mockProductRepo
}

func (m *mockOrderRepo) Create(_ context.Context, o *order.Order) error {
	cp := *o
	m.byID[o.ID] = &cp
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*order.Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	cp.Lines = append([]order.Line(nil), o.Lines...)
	return &cp, nil
}

func (m *mockOrderRepo) AddLine(_ context.Context, orderID string, l *order.Line) error {
	o, ok := m.byID[orderID]
	if !ok {
		return order.ErrNotFound
	}
	o.Lines = append(o.Lines, *l)
	return nil
}

func (m *mockOrderRepo) RecordShipment(_ context.Context, o *order.Order, movements []order.StockMovement) error {
	stored, ok := m.byID[o.ID]
	if !ok {
		return order.ErrNotFound
	}
	if stored.ShippedAt != nil {
		return order.ErrAlreadyShipped
	}
	stored.ShippedAt = o.ShippedAt
	for _, mv := range movements {
		if p, ok := m.products.byID[mv.ProductID]; ok {
			p.UnitsInStock -= mv.Quantity
			p.UnitsCommitted += mv.Quantity
		}
	}
	return nil
}

// --- Helpers ---

type fixture struct {
	customers *mockCustomerRepo
	products  *mockProductRepo
	orders    *mockOrderRepo
	router    *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	largeCustomer := &customer.Customer{
		ID:   "2COM",
		Name: "Grand Comptoir",
		Tier: customer.TierLarge,
		Address: customer.Address{
			Street:     "12 rue des Halles",
			City:       "Paris",
			PostalCode: "75001",
			Country:    "France",
		},
	}
	smallCustomer := &customer.Customer{
		ID:   "0COM",
		Name: "Kleiner Laden",
		Tier: customer.TierStandard,
		Address: customer.Address{
			Street:     "Unter den Linden 5",
			City:       "Berlin",
			PostalCode: "10117",
			Country:    "Germany",
		},
	}

	p1 := product.Product{ID: "p1", Name: "Chai", Price: decimal.RequireFromString("18.00"), UnitsInStock: 10}
	p2 := product.Product{ID: "p2", Name: "Chang", Price: decimal.RequireFromString("19.00"), UnitsInStock: 5}

	products := &mockProductRepo{
		products: []product.Product{p1, p2},
		byID:     map[string]*product.Product{"p1": &p1, "p2": &p2},
	}
	customers := &mockCustomerRepo{
		byID: map[string]*customer.Customer{"2COM": largeCustomer, "0COM": smallCustomer},
	}
	orders := &mockOrderRepo{
		byID:     make(map[string]*order.Order),
		products: products,
	}

	svc := order.NewService(customers, products, orders)
	h := NewHandler(customers, products, svc)

	router := gin.New()
	h.Register(router.Group("/api"))

	return &fixture{
		customers: customers,
		products:  products,
		orders:    orders,
		router:    router,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func (f *fixture) createOrder(t *testing.T, customerID string) orderResponse {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/orders", gin.H{"customerId": customerID})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
	return decodeJSON[orderResponse](t, rec)
}

// --- Tests ---

func TestCreateOrder(t *testing.T) {
	t.Run("large customer gets tier discount", func(t *testing.T) {
		f := newFixture(t)
		o := f.createOrder(t, "2COM")

		assert.NotEmpty(t, o.ID)
		assert.Equal(t, "2COM", o.CustomerID)
		assert.InDelta(t, 0.15, o.Discount, 0.0001)
		assert.Equal(t, "Paris", o.ShippingAddress.City)
		assert.Nil(t, o.ShippedAt)
		assert.Empty(t, o.Lines)
	})

	t.Run("standard customer gets no discount", func(t *testing.T) {
		f := newFixture(t)
		o := f.createOrder(t, "0COM")

		assert.Zero(t, o.Discount)
		assert.Equal(t, "Berlin", o.ShippingAddress.City)
	})

	t.Run("unknown customer returns 404", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/api/orders", gin.H{"customerId": "ghost"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("missing customer id returns 400", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/api/orders", gin.H{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetOrder(t *testing.T) {
	f := newFixture(t)
	created := f.createOrder(t, "2COM")

	rec := f.do(t, http.MethodGet, "/api/orders/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decodeJSON[orderResponse](t, rec)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "2COM", got.CustomerID)

	rec = f.do(t, http.MethodGet, "/api/orders/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddOrderLine(t *testing.T) {
	t.Run("appends line to open order", func(t *testing.T) {
		f := newFixture(t)
		o := f.createOrder(t, "2COM")

		rec := f.do(t, http.MethodPost, "/api/orders/"+o.ID+"/lines",
			gin.H{"productId": "p1", "quantity": 3})
		require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())

		l := decodeJSON[lineResponse](t, rec)
		assert.NotEmpty(t, l.ID)
		assert.Equal(t, "p1", l.ProductID)
		assert.Equal(t, 3, l.Quantity)

		got := decodeJSON[orderResponse](t, f.do(t, http.MethodGet, "/api/orders/"+o.ID, nil))
		require.Len(t, got.Lines, 1)
		assert.Equal(t, "p1", got.Lines[0].ProductID)
	})

	t.Run("non-positive quantity returns 422", func(t *testing.T) {
		f := newFixture(t)
		o := f.createOrder(t, "2COM")

		for _, qty := range []int{0, -2} {
			rec := f.do(t, http.MethodPost, "/api/orders/"+o.ID+"/lines",
				gin.H{"productId": "p1", "quantity": qty})
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "quantity %d", qty)
		}
	})

	t.Run("unknown order returns 404", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/api/orders/missing/lines",
			gin.H{"productId": "p1", "quantity": 1})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unknown product returns 404", func(t *testing.T) {
		f := newFixture(t)
		o := f.createOrder(t, "2COM")

		rec := f.do(t, http.MethodPost, "/api/orders/"+o.ID+"/lines",
			gin.H{"productId": "ghost", "quantity": 1})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("shipped order returns 409", func(t *testing.T) {
		f := newFixture(t)
		o := f.createOrder(t, "2COM")

		rec := f.do(t, http.MethodPost, "/api/orders/"+o.ID+"/shipment", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		rec = f.do(t, http.MethodPost, "/api/orders/"+o.ID+"/lines",
			gin.H{"productId": "p1", "quantity": 1})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestRegisterShipment(t *testing.T) {
	t.Run("stamps date and commits stock", func(t *testing.T) {
		f := newFixture(t)
		o := f.createOrder(t, "2COM")

		rec := f.do(t, http.MethodPost, "/api/orders/"+o.ID+"/lines",
			gin.H{"productId": "p1", "quantity": 3})
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = f.do(t, http.MethodPost, "/api/orders/"+o.ID+"/shipment", nil)
		require.Equal(t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())

		shipped := decodeJSON[orderResponse](t, rec)
		require.NotNil(t, shipped.ShippedAt)
		assert.WithinDuration(t, time.Now(), *shipped.ShippedAt, time.Minute)

		assert.Equal(t, 7, f.products.byID["p1"].UnitsInStock)
		assert.Equal(t, 3, f.products.byID["p1"].UnitsCommitted)
	})

	t.Run("second shipment keeps date and stock", func(t *testing.T) {
		f := newFixture(t)
		o := f.createOrder(t, "2COM")

		rec := f.do(t, http.MethodPost, "/api/orders/"+o.ID+"/lines",
			gin.H{"productId": "p1", "quantity": 3})
		require.Equal(t, http.StatusCreated, rec.Code)

		first := decodeJSON[orderResponse](t, f.do(t, http.MethodPost, "/api/orders/"+o.ID+"/shipment", nil))
		second := decodeJSON[orderResponse](t, f.do(t, http.MethodPost, "/api/orders/"+o.ID+"/shipment", nil))

		require.NotNil(t, first.ShippedAt)
		require.NotNil(t, second.ShippedAt)
		assert.True(t, first.ShippedAt.Equal(*second.ShippedAt))
		assert.Equal(t, 7, f.products.byID["p1"].UnitsInStock)
	})

	t.Run("unknown order returns 404", func(t *testing.T) {
		f := newFixture(t)
		rec := f.do(t, http.MethodPost, "/api/orders/missing/shipment", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestListProducts(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/products", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	products := decodeJSON[[]productResponse](t, rec)
	require.Len(t, products, 2)
	assert.Equal(t, "p1", products[0].ID)
	assert.Equal(t, "Chai", products[0].Name)
	assert.InDelta(t, 18.00, products[0].Price, 0.001)
}

func TestListProducts_Error(t *testing.T) {
	f := newFixture(t)
	f.products.listErr = fmt.Errorf("db down")

	rec := f.do(t, http.MethodGet, "/api/products", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestGetProduct(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/products/p2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	p := decodeJSON[productResponse](t, rec)
	assert.Equal(t, "Chang", p.Name)
	assert.Equal(t, 5, p.UnitsInStock)

	rec = f.do(t, http.MethodGet, "/api/products/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetCustomer(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/customers/0COM", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	c := decodeJSON[customerResponse](t, rec)
	assert.Equal(t, "Kleiner Laden", c.Name)
	assert.Equal(t, string(customer.TierStandard), c.Tier)
	assert.Equal(t, "Berlin", c.Address.City)

	rec = f.do(t, http.MethodGet, "/api/customers/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
