package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/donutexchange/internal/domain"
	"github.com/efreitasn/donutexchange/internal/engine"
	"github.com/efreitasn/donutexchange/internal/ledger"
	"github.com/efreitasn/donutexchange/internal/store/memory"
)

type testOrderEnv struct {
	svc      *OrderService
	ledger   *ledger.Ledger
	products *domain.ProductRegistry
}

func newTestOrderEnv() *testOrderEnv {
	st := memory.New()
	products := domain.NewProductRegistry()
	products.Register(&domain.Product{ProductID: "glazed", BasePrice: decimal.NewFromFloat(2.00)})
	l := ledger.New(st, products, nil, decimal.NewFromInt(10_000), domain.SupplierOutletID, nil)
	books := engine.NewBookManager()
	m := engine.NewMatcher(books, l, noopPublisher{})
	svc := NewOrderService(m, l, products, st, nil)
	return &testOrderEnv{svc: svc, ledger: l, products: products}
}

type noopPublisher struct{}

func (noopPublisher) Publish(domain.Event) {}

func (env *testOrderEnv) registerOutlet(t *testing.T, id string, balance decimal.Decimal, isOpen bool) {
	t.Helper()
	o := &domain.Outlet{OutletID: id, Balance: balance, IsOpen: isOpen}
	if err := env.ledger.RegisterOutlet(context.Background(), o); err != nil {
		t.Fatalf("RegisterOutlet(%s) error = %v", id, err)
	}
}

func TestSubmitOrder_RestsWhenNoCounterpart(t *testing.T) {
	env := newTestOrderEnv()
	env.registerOutlet(t, "shop-a", decimal.NewFromInt(1_000), true)

	order, err := env.svc.SubmitOrder(context.Background(), SubmitOrderRequest{
		Side:         domain.OrderSideBuy,
		ProductID:    "glazed",
		OutletID:     "shop-a",
		Quantity:     5,
		PricePerUnit: decimal.NewFromFloat(2.00),
	})
	if err != nil {
		t.Fatalf("SubmitOrder() error = %v", err)
	}
	if order.Status != domain.OrderStatusActive {
		t.Errorf("Status = %s, want ACTIVE", order.Status)
	}
	if order.OrderID == "" {
		t.Error("expected non-empty OrderID")
	}
}

func TestSubmitOrder_UnknownProduct(t *testing.T) {
	env := newTestOrderEnv()
	env.registerOutlet(t, "shop-a", decimal.NewFromInt(1_000), true)

	_, err := env.svc.SubmitOrder(context.Background(), SubmitOrderRequest{
		Side:         domain.OrderSideBuy,
		ProductID:    "sprinkled",
		OutletID:     "shop-a",
		Quantity:     1,
		PricePerUnit: decimal.NewFromFloat(2.00),
	})
	if err != domain.ErrProductNotFound {
		t.Errorf("error = %v, want ErrProductNotFound", err)
	}
}

func TestSubmitOrder_UnknownOutlet(t *testing.T) {
	env := newTestOrderEnv()

	_, err := env.svc.SubmitOrder(context.Background(), SubmitOrderRequest{
		Side:         domain.OrderSideBuy,
		ProductID:    "glazed",
		OutletID:     "ghost",
		Quantity:     1,
		PricePerUnit: decimal.NewFromFloat(2.00),
	})
	if err != domain.ErrOutletNotFound {
		t.Errorf("error = %v, want ErrOutletNotFound", err)
	}
}

func TestSubmitOrder_ClosedOutlet(t *testing.T) {
	env := newTestOrderEnv()
	env.registerOutlet(t, "shop-a", decimal.NewFromInt(1_000), false)

	_, err := env.svc.SubmitOrder(context.Background(), SubmitOrderRequest{
		Side:         domain.OrderSideBuy,
		ProductID:    "glazed",
		OutletID:     "shop-a",
		Quantity:     1,
		PricePerUnit: decimal.NewFromFloat(2.00),
	})
	if err != domain.ErrOutletClosed {
		t.Errorf("error = %v, want ErrOutletClosed", err)
	}
}

func TestSubmitOrder_NonPositiveQuantity(t *testing.T) {
	env := newTestOrderEnv()
	env.registerOutlet(t, "shop-a", decimal.NewFromInt(1_000), true)

	_, err := env.svc.SubmitOrder(context.Background(), SubmitOrderRequest{
		Side:         domain.OrderSideBuy,
		ProductID:    "glazed",
		OutletID:     "shop-a",
		Quantity:     0,
		PricePerUnit: decimal.NewFromFloat(2.00),
	})
	if _, ok := err.(*domain.ValidationError); !ok {
		t.Errorf("error = %v, want *domain.ValidationError", err)
	}
}

func TestSubmitOrder_MatchesRestingCounterpart(t *testing.T) {
	env := newTestOrderEnv()
	env.registerOutlet(t, "seller", decimal.Zero, true)
	env.registerOutlet(t, "buyer", decimal.NewFromInt(1_000), true)

	_, err := env.svc.SubmitOrder(context.Background(), SubmitOrderRequest{
		Side:         domain.OrderSideSell,
		ProductID:    "glazed",
		OutletID:     "seller",
		Quantity:     5,
		PricePerUnit: decimal.NewFromFloat(2.00),
	})
	if err != nil {
		t.Fatalf("SubmitOrder(ask) error = %v", err)
	}

	bidOrder, err := env.svc.SubmitOrder(context.Background(), SubmitOrderRequest{
		Side:         domain.OrderSideBuy,
		ProductID:    "glazed",
		OutletID:     "buyer",
		Quantity:     5,
		PricePerUnit: decimal.NewFromFloat(2.00),
	})
	if err != nil {
		t.Fatalf("SubmitOrder(bid) error = %v", err)
	}
	if bidOrder.Status != domain.OrderStatusFilled {
		t.Errorf("bid Status = %s, want FILLED", bidOrder.Status)
	}
	if got := env.ledger.InventoryOf("buyer", "glazed"); got != 5 {
		t.Errorf("buyer inventory = %d, want 5", got)
	}
}
