package domain

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Product (DonutType) is a tradeable instrument. The catalogue is
// static, created once at bootstrap.
type Product struct {
	ProductID   string
	Name        string
	Description string

	// BasePrice anchors the Supplier agent's price variance and the
	// CustomerSimulator's cost-basis arithmetic. It defaults to
	// BASE_DONUT_PRICE for every product and is additive over the
	// original single global constant (DESIGN.md).
	BasePrice decimal.Decimal
}

// ProductRegistry tracks the known products in a thread-safe manner,
// mirroring the teacher's SymbolRegistry.
type ProductRegistry struct {
	mu       sync.RWMutex
	products map[string]*Product
}

// NewProductRegistry creates an empty ProductRegistry.
func NewProductRegistry() *ProductRegistry {
	return &ProductRegistry{products: make(map[string]*Product)}
}

// Register adds or replaces a product. Safe for concurrent use.
func (r *ProductRegistry) Register(p *Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ProductID] = p
}

// Get returns the product by id, or (nil, false) if unknown.
func (r *ProductRegistry) Get(productID string) (*Product, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[productID]
	return p, ok
}

// All returns every registered product in no particular order.
func (r *ProductRegistry) All() []*Product {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p)
	}
	return out
}
