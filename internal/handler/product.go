package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"comptoirs/internal/domain/product"
)

type productResponse struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Price          float64 `json:"price"`
	UnitsInStock   int     `json:"unitsInStock"`
	UnitsCommitted int     `json:"unitsCommitted"`
}

// ListProducts returns the full catalog ordered by ID.
func (h *Handler) ListProducts(c *gin.Context) {
	products, err := h.products.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = domainToProductResponse(p)
	}
	c.JSON(http.StatusOK, resp)
}

// GetProduct returns a single product by ID.
func (h *Handler) GetProduct(c *gin.Context) {
	p, err := h.products.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, domainToProductResponse(*p))
}

func domainToProductResponse(p product.Product) productResponse {
	return productResponse{
		ID:             p.ID,
		Name:           p.Name,
		Price:          p.Price.InexactFloat64(),
		UnitsInStock:   p.UnitsInStock,
		UnitsCommitted: p.UnitsCommitted,
	}
}
