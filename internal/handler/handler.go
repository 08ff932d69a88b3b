package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"comptoirs/internal/domain/customer"
	"comptoirs/internal/domain/order"
	"comptoirs/internal/domain/product"
)

// Handler exposes the order management API over HTTP, delegating business
// logic to the order service and the domain repositories.
type Handler struct {
	customers    customer.Repository
	products     product.Repository
	orderService *order.Service
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	customers customer.Repository,
	products product.Repository,
	orderService *order.Service,
) *Handler {
	return &Handler{
		customers:    customers,
		products:     products,
		orderService: orderService,
	}
}

// Register mounts all API routes on the given router group.
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/orders", h.CreateOrder)
	r.GET("/orders/:id", h.GetOrder)
	r.POST("/orders/:id/lines", h.AddOrderLine)
	r.POST("/orders/:id/shipment", h.RegisterShipment)

	r.GET("/products", h.ListProducts)
	r.GET("/products/:id", h.GetProduct)

	r.GET("/customers/:id", h.GetCustomer)
}

// errorResponse is the uniform error body for all non-2xx responses.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// respondError maps domain errors to their HTTP status. Missing entities map
// to 404, rejected line quantities to 422, shipment conflicts to 409, and
// everything else to a logged 500 with a generic body.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, customer.ErrNotFound),
		errors.Is(err, product.ErrNotFound),
		errors.Is(err, order.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse{
			Code:    http.StatusNotFound,
			Message: err.Error(),
		})
		return
	case errors.Is(err, order.ErrAlreadyShipped):
		c.JSON(http.StatusConflict, errorResponse{
			Code:    http.StatusConflict,
			Message: err.Error(),
		})
		return
	}

	var iqErr *order.InvalidQuantityError
	if errors.As(err, &iqErr) {
		c.JSON(http.StatusUnprocessableEntity, errorResponse{
			Code:    http.StatusUnprocessableEntity,
			Message: iqErr.Error(),
		})
		return
	}

	zctx.From(c.Request.Context()).Error("request failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, errorResponse{
		Code:    http.StatusInternalServerError,
		Message: "internal server error",
	})
}
