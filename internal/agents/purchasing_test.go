package agents

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/donutexchange/internal/domain"
	"github.com/efreitasn/donutexchange/internal/service"
)

func TestPurchasingAgent_BidsAgainstBestAsk(t *testing.T) {
	env := newTestEnv(t)
	env.registerOutlet(t, domain.SupplierOutletID, decimal.Zero, decimal.Zero, true)
	env.registerOutlet(t, "shop-a", decimal.NewFromInt(1_000), decimal.NewFromInt(25), true)

	_, err := env.orders.SubmitOrder(context.Background(), submitAsk(domain.SupplierOutletID, "glazed", 50, 2.00))
	if err != nil {
		t.Fatalf("seed ask failed: %v", err)
	}

	interval := 20 * time.Millisecond
	p := NewPurchasingAgent(interval, env.orders, env.ledger, env.books, env.products, domain.SupplierOutletID, nil)
	runOnceAndStop(t, p, interval)

	if got := env.ledger.InventoryOf("shop-a", "glazed"); got == 0 {
		t.Error("expected shop-a to have acquired some inventory from the purchasing agent's bid")
	}
}

func TestPurchasingAgent_SkipsSentinelOutlet(t *testing.T) {
	env := newTestEnv(t)
	env.registerOutlet(t, domain.SupplierOutletID, decimal.NewFromInt(1_000_000), decimal.Zero, true)

	interval := 20 * time.Millisecond
	p := NewPurchasingAgent(interval, env.orders, env.ledger, env.books, env.products, domain.SupplierOutletID, nil)
	runOnceAndStop(t, p, interval)

	book := env.books.GetOrCreate("glazed")
	book.Lock()
	_, hasBid := book.BestBid()
	book.Unlock()
	if hasBid {
		t.Error("expected no bid from the sentinel outlet itself")
	}
}

func submitAsk(outletID, productID string, qty int64, price float64) service.SubmitOrderRequest {
	return service.SubmitOrderRequest{
		Side:         domain.OrderSideSell,
		ProductID:    productID,
		OutletID:     outletID,
		Quantity:     qty,
		PricePerUnit: decimal.NewFromFloat(price),
	}
}
