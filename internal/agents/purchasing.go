package agents

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/donutexchange/internal/domain"
	"github.com/efreitasn/donutexchange/internal/engine"
	"github.com/efreitasn/donutexchange/internal/ledger"
	"github.com/efreitasn/donutexchange/internal/service"
)

// askAggression is how far above the best ask a purchasing bid is
// willing to quote, expressed as a fraction of the ask price (design
// parameter, §4.5: "implementer chooses aggression").
const askAggression = 0.01

// PurchasingAgent has every open, non-sentinel outlet consider a BUY
// against the current best ask for each product, bounded by available
// cash (§4.5).
type PurchasingAgent struct {
	*ticker

	orders   *service.OrderService
	ledger   *ledger.Ledger
	books    *engine.BookManager
	products *domain.ProductRegistry
	skipID   string
	logger   *slog.Logger
}

// NewPurchasingAgent creates a PurchasingAgent that ticks every
// interval. skipOutletID is excluded from consideration (the sentinel
// supplier).
func NewPurchasingAgent(
	interval time.Duration,
	orders *service.OrderService,
	l *ledger.Ledger,
	books *engine.BookManager,
	products *domain.ProductRegistry,
	skipOutletID string,
	logger *slog.Logger,
) *PurchasingAgent {
	if logger == nil {
		logger = slog.Default()
	}
	p := &PurchasingAgent{
		orders:   orders,
		ledger:   l,
		books:    books,
		products: products,
		skipID:   skipOutletID,
		logger:   logger,
	}
	p.ticker = newTicker(interval, p.tick)
	return p
}

func (p *PurchasingAgent) tick(ctx context.Context) {
	for _, outlet := range p.ledger.AllOutlets() {
		if outlet.OutletID == p.skipID {
			continue
		}
		outlet.Mu.Lock()
		isOpen := outlet.IsOpen
		balance := outlet.Balance
		outlet.Mu.Unlock()
		if !isOpen {
			continue
		}

		for _, product := range p.products.All() {
			bidQty, bidPrice, ok := p.plan(product.ProductID, balance)
			if !ok {
				continue
			}
			_, err := p.orders.SubmitOrder(ctx, service.SubmitOrderRequest{
				Side:         domain.OrderSideBuy,
				ProductID:    product.ProductID,
				OutletID:     outlet.OutletID,
				Quantity:     bidQty,
				PricePerUnit: bidPrice,
			})
			if err != nil {
				p.logger.Warn("purchasing agent: submit failed",
					slog.String("outletId", outlet.OutletID),
					slog.String("productId", product.ProductID),
					slog.String("error", err.Error()),
				)
				continue
			}
			// Refresh the balance snapshot used for subsequent products
			// so a single tick never lets one outlet overcommit across
			// several bids in the same pass.
			outlet.Mu.Lock()
			balance = outlet.Balance
			outlet.Mu.Unlock()
		}
	}
}

// plan reads the current best ask for productID and decides whether
// an outlet with the given cash balance should bid, and for how much.
func (p *PurchasingAgent) plan(productID string, balance decimal.Decimal) (qty int64, price decimal.Decimal, ok bool) {
	book := p.books.GetOrCreate(productID)
	book.Lock()
	askEntry, hasAsk := book.BestAsk()
	book.Unlock()
	if !hasAsk {
		return 0, decimal.Zero, false
	}

	price = domain.RoundMoney(askEntry.Price.Mul(decimal.NewFromFloat(1 + askAggression)))
	if price.LessThanOrEqual(decimal.Zero) || balance.LessThanOrEqual(decimal.Zero) {
		return 0, decimal.Zero, false
	}

	affordable := balance.Div(price).IntPart()
	if affordable <= 0 {
		return 0, decimal.Zero, false
	}
	qty = affordable
	if qty > askEntry.Order.RemainingQuantity {
		qty = askEntry.Order.RemainingQuantity
	}
	if qty <= 0 {
		return 0, decimal.Zero, false
	}
	return qty, price, true
}
