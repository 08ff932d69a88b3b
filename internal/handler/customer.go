package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"comptoirs/internal/domain/customer"
)

type customerResponse struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Tier    string          `json:"tier"`
	Address addressResponse `json:"address"`
}

type addressResponse struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// GetCustomer returns a single customer by ID.
func (h *Handler) GetCustomer(c *gin.Context) {
	cust, err := h.customers.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, customerResponse{
		ID:      cust.ID,
		Name:    cust.Name,
		Tier:    string(cust.Tier),
		Address: domainToAddressResponse(cust.Address),
	})
}

func domainToAddressResponse(a customer.Address) addressResponse {
	return addressResponse{
		Street:     a.Street,
		City:       a.City,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}
