package api

import (
	"net/http"

	"github.com/efreitasn/donutexchange/internal/domain"
)

// ProductHandler handles HTTP requests for the product catalogue.
type ProductHandler struct {
	products *domain.ProductRegistry
}

// NewProductHandler creates a ProductHandler.
func NewProductHandler(products *domain.ProductRegistry) *ProductHandler {
	return &ProductHandler{products: products}
}

type productResponse struct {
	ProductID   string `json:"productId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	BasePrice   string `json:"basePrice"`
}

// ListProducts handles GET /products.
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products := h.products.All()
	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = productResponse{
			ProductID:   p.ProductID,
			Name:        p.Name,
			Description: p.Description,
			BasePrice:   p.BasePrice.String(),
		}
	}
	WriteJSON(w, http.StatusOK, resp)
}
