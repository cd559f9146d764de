package agents

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/donutexchange/internal/domain"
	"github.com/efreitasn/donutexchange/internal/ledger"
	"github.com/efreitasn/donutexchange/internal/service"
)

// priceVariance bounds the fractional random variance applied to a
// product's base price on each Supplier tick (design parameter, §4.5).
const priceVariance = 0.10

// Supplier injects SELL orders from the sentinel outlet at a random
// quantity and a price near the product's base price (§4.5). It
// pauses while the sentinel outlet is closed.
type Supplier struct {
	*ticker

	orders   *service.OrderService
	ledger   *ledger.Ledger
	products *domain.ProductRegistry
	outletID string
	qtyMin   int64
	qtyMax   int64
	logger   *slog.Logger
}

// NewSupplier creates a Supplier that ticks every interval.
func NewSupplier(
	interval time.Duration,
	orders *service.OrderService,
	l *ledger.Ledger,
	products *domain.ProductRegistry,
	outletID string,
	qtyMin, qtyMax int64,
	logger *slog.Logger,
) *Supplier {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Supplier{
		orders:   orders,
		ledger:   l,
		products: products,
		outletID: outletID,
		qtyMin:   qtyMin,
		qtyMax:   qtyMax,
		logger:   logger,
	}
	s.ticker = newTicker(interval, s.tick)
	return s
}

func (s *Supplier) tick(ctx context.Context) {
	outlet, err := s.ledger.FindOutlet(s.outletID)
	if err != nil {
		s.logger.Warn("supplier: sentinel outlet not found", slog.String("outletId", s.outletID))
		return
	}
	outlet.Mu.Lock()
	isOpen := outlet.IsOpen
	outlet.Mu.Unlock()
	if !isOpen {
		return
	}

	for _, product := range s.products.All() {
		qty := randInt64Range(s.qtyMin, s.qtyMax)
		if qty <= 0 {
			continue
		}
		price := supplierPrice(product.BasePrice)

		_, err := s.orders.SubmitOrder(ctx, service.SubmitOrderRequest{
			Side:         domain.OrderSideSell,
			ProductID:    product.ProductID,
			OutletID:     s.outletID,
			Quantity:     qty,
			PricePerUnit: price,
		})
		if err != nil {
			s.logger.Warn("supplier: submit failed",
				slog.String("productId", product.ProductID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// supplierPrice returns base scaled by an independent random factor in
// [1-priceVariance, 1+priceVariance], rounded to cents. No state carries
// over between calls.
func supplierPrice(base decimal.Decimal) decimal.Decimal {
	variance := (rand.Float64()*2 - 1) * priceVariance // in [-priceVariance, priceVariance]
	factor := decimal.NewFromFloat(1 + variance)
	return domain.RoundMoney(base.Mul(factor))
}

// randInt64Range returns a uniformly random int64 in [min, max]. If
// max <= min, min is returned.
func randInt64Range(min, max int64) int64 {
	if max <= min {
		return min
	}
	return min + rand.Int63n(max-min+1)
}
