package agents

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/donutexchange/internal/domain"
	"github.com/efreitasn/donutexchange/internal/engine"
	"github.com/efreitasn/donutexchange/internal/ledger"
	"github.com/efreitasn/donutexchange/internal/service"
	"github.com/efreitasn/donutexchange/internal/store/memory"
)

type testEnv struct {
	orders   *service.OrderService
	ledger   *ledger.Ledger
	products *domain.ProductRegistry
	books    *engine.BookManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := memory.New()
	products := domain.NewProductRegistry()
	products.Register(&domain.Product{ProductID: "glazed", BasePrice: decimal.NewFromFloat(2.00)})
	l := ledger.New(st, products, nil, decimal.NewFromInt(10_000), domain.SupplierOutletID, nil)
	books := engine.NewBookManager()
	m := engine.NewMatcher(books, l, noopPublisher{})
	orders := service.NewOrderService(m, l, products, st, nil)
	return &testEnv{orders: orders, ledger: l, products: products, books: books}
}

type noopPublisher struct{}

func (noopPublisher) Publish(domain.Event) {}

func (e *testEnv) registerOutlet(t *testing.T, id string, balance, margin decimal.Decimal, isOpen bool) *domain.Outlet {
	t.Helper()
	o := &domain.Outlet{OutletID: id, Balance: balance, MarginPercent: margin, IsOpen: isOpen}
	if err := e.ledger.RegisterOutlet(context.Background(), o); err != nil {
		t.Fatalf("RegisterOutlet(%s) error = %v", id, err)
	}
	return o
}

// runOnceAndStop starts a *ticker-embedding agent, waits long enough
// for one tick, then stops it.
func runOnceAndStop(t *testing.T, a interface {
	Start(ctx context.Context)
	Stop()
}, tickInterval time.Duration) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.Start(ctx)
	time.Sleep(tickInterval + tickInterval/2)
	a.Stop()
}
