package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"comptoirs/internal/domain/order"
)

type createOrderRequest struct {
	CustomerID string `json:"customerId" binding:"required"`
}

type addLineRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity"`
}

type orderResponse struct {
	ID              string          `json:"id"`
	CustomerID      string          `json:"customerId"`
	Discount        float64         `json:"discount"`
	ShippingAddress addressResponse `json:"shippingAddress"`
	Lines           []lineResponse  `json:"lines"`
	ShippedAt       *time.Time      `json:"shippedAt,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

type lineResponse struct {
	ID        string `json:"id"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// CreateOrder opens a new order for a customer. The discount rate and the
// shipping address are both fixed at this point.
func (h *Handler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{
			Code:    http.StatusBadRequest,
			Message: "customerId required",
		})
		return
	}

	o, err := h.orderService.CreateOrder(c.Request.Context(), req.CustomerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, domainToOrderResponse(o))
}

// GetOrder returns a single order with its lines.
func (h *Handler) GetOrder(c *gin.Context) {
	o, err := h.orderService.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, domainToOrderResponse(o))
}

// AddOrderLine appends a line to an open order.
func (h *Handler) AddOrderLine(c *gin.Context) {
	var req addLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{
			Code:    http.StatusBadRequest,
			Message: "productId required",
		})
		return
	}

	l, err := h.orderService.AddLine(c.Request.Context(), c.Param("id"), req.ProductID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, lineResponse{
		ID:        l.ID,
		ProductID: l.ProductID,
		Quantity:  l.Quantity,
	})
}

// RegisterShipment ships an order, committing stock for all of its lines.
// Shipping an already-shipped order returns the order unchanged.
func (h *Handler) RegisterShipment(c *gin.Context) {
	o, err := h.orderService.RegisterShipment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, domainToOrderResponse(o))
}

func domainToOrderResponse(o *order.Order) orderResponse {
	lines := make([]lineResponse, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = lineResponse{
			ID:        l.ID,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
		}
	}

	return orderResponse{
		ID:              o.ID,
		CustomerID:      o.CustomerID,
		Discount:        o.Discount.InexactFloat64(),
		ShippingAddress: domainToAddressResponse(o.ShippingAddress),
		Lines:           lines,
		ShippedAt:       o.ShippedAt,
		CreatedAt:       o.CreatedAt,
	}
}
