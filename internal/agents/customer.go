package agents

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/donutexchange/internal/domain"
	"github.com/efreitasn/donutexchange/internal/ledger"
)

// customerKind is which shopping strategy a simulated customer uses
// this tick (§4.5).
type customerKind int

const (
	customerFirstFind customerKind = iota
	customerPriceHunter
)

// maxShoppingListSize bounds how many distinct products one simulated
// customer visit considers (§4.5: "first k ∈ [1,3]").
const maxShoppingListSize = 3

// CustomerSimulator spawns one simulated retail customer per tick,
// each shopping for a random handful of products against open outlets
// with positive stock (§4.5). It never touches the Book directly: all
// purchases flow straight through the Ledger's margin rule.
type CustomerSimulator struct {
	*ticker

	ledger   *ledger.Ledger
	products *domain.ProductRegistry
	skipID   string
	qtyMin   int64
	qtyMax   int64
	logger   *slog.Logger
}

// NewCustomerSimulator creates a CustomerSimulator that ticks every
// interval. skipOutletID (the sentinel supplier) is never visited by
// a customer.
func NewCustomerSimulator(
	interval time.Duration,
	l *ledger.Ledger,
	products *domain.ProductRegistry,
	skipOutletID string,
	qtyMin, qtyMax int64,
	logger *slog.Logger,
) *CustomerSimulator {
	if logger == nil {
		logger = slog.Default()
	}
	c := &CustomerSimulator{
		ledger:   l,
		products: products,
		skipID:   skipOutletID,
		qtyMin:   qtyMin,
		qtyMax:   qtyMax,
		logger:   logger,
	}
	c.ticker = newTicker(interval, c.tick)
	return c
}

func (c *CustomerSimulator) openOutlets() []*domain.Outlet {
	all := c.ledger.AllOutlets()
	out := make([]*domain.Outlet, 0, len(all))
	for _, o := range all {
		if o.OutletID == c.skipID {
			continue
		}
		o.Mu.Lock()
		isOpen := o.IsOpen
		o.Mu.Unlock()
		if isOpen {
			out = append(out, o)
		}
	}
	return out
}

func (c *CustomerSimulator) tick(ctx context.Context) {
	products := c.products.All()
	if len(products) == 0 {
		return
	}
	rand.Shuffle(len(products), func(i, j int) { products[i], products[j] = products[j], products[i] })

	k := 1 + rand.Intn(maxShoppingListSize)
	if k > len(products) {
		k = len(products)
	}
	shoppingList := products[:k]

	kind := customerFirstFind
	if rand.Intn(2) == 1 {
		kind = customerPriceHunter
	}

	outlets := c.openOutlets()
	if len(outlets) == 0 {
		return
	}

	for _, product := range shoppingList {
		var target *domain.Outlet
		switch kind {
		case customerFirstFind:
			target = c.firstFind(outlets, product.ProductID)
		case customerPriceHunter:
			target = c.priceHunter(outlets, product.ProductID)
		}
		if target == nil {
			continue
		}
		stock := c.ledger.InventoryOf(target.OutletID, product.ProductID)
		qty := randInt64Range(c.qtyMin, c.qtyMax)
		if qty > stock {
			qty = stock
		}
		if qty <= 0 {
			continue
		}

		if _, err := c.ledger.SellToCustomer(target.OutletID, product.ProductID, qty); err != nil {
			c.logger.Warn("customer simulator: sale failed",
				slog.String("outletId", target.OutletID),
				slog.String("productId", product.ProductID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// firstFind shuffles its own copy of outlets on every call and returns
// the first with positive stock of productID. Each product on a
// shopping list is therefore walked in a fresh random order; one order
// is not shared across the products of a single customer visit.
func (c *CustomerSimulator) firstFind(outlets []*domain.Outlet, productID string) *domain.Outlet {
	shuffled := make([]*domain.Outlet, len(outlets))
	copy(shuffled, outlets)
	rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	for _, o := range shuffled {
		if c.ledger.InventoryOf(o.OutletID, productID) > 0 {
			return o
		}
	}
	return nil
}

// priceHunter returns the open outlet with positive stock of
// productID and the lowest margin-adjusted retail price.
func (c *CustomerSimulator) priceHunter(outlets []*domain.Outlet, productID string) *domain.Outlet {
	product, ok := c.products.Get(productID)
	if !ok {
		return nil
	}

	var best *domain.Outlet
	var bestPrice decimal.Decimal
	for _, o := range outlets {
		if c.ledger.InventoryOf(o.OutletID, productID) <= 0 {
			continue
		}
		o.Mu.Lock()
		margin := o.MarginPercent
		o.Mu.Unlock()
		price := domain.RoundMoney(product.BasePrice.Mul(decimal.NewFromInt(1).Add(margin.Div(decimal.NewFromInt(100)))))
		if best == nil || price.LessThan(bestPrice) {
			best = o
			bestPrice = price
		}
	}
	return best
}
