package agents

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/donutexchange/internal/domain"
)

func TestSupplier_SubmitsSellOrderWhileOpen(t *testing.T) {
	env := newTestEnv(t)
	env.registerOutlet(t, domain.SupplierOutletID, decimal.NewFromInt(1_000_000), decimal.Zero, true)

	interval := 20 * time.Millisecond
	s := NewSupplier(interval, env.orders, env.ledger, env.products, domain.SupplierOutletID, 5, 10, nil)

	runOnceAndStop(t, s, interval)

	book := env.books.GetOrCreate("glazed")
	book.Lock()
	_, hasAsk := book.BestAsk()
	book.Unlock()
	if !hasAsk {
		t.Error("expected a resting ask after Supplier tick")
	}
}

func TestSupplier_PausesWhenSentinelClosed(t *testing.T) {
	env := newTestEnv(t)
	env.registerOutlet(t, domain.SupplierOutletID, decimal.NewFromInt(1_000_000), decimal.Zero, false)

	interval := 20 * time.Millisecond
	s := NewSupplier(interval, env.orders, env.ledger, env.products, domain.SupplierOutletID, 5, 10, nil)

	runOnceAndStop(t, s, interval)

	book := env.books.GetOrCreate("glazed")
	book.Lock()
	_, hasAsk := book.BestAsk()
	book.Unlock()
	if hasAsk {
		t.Error("expected no resting ask while sentinel outlet is closed")
	}
}

func TestSupplier_DoubleStartIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.registerOutlet(t, domain.SupplierOutletID, decimal.NewFromInt(1_000_000), decimal.Zero, true)

	s := NewSupplier(time.Hour, env.orders, env.ledger, env.products, domain.SupplierOutletID, 5, 10, nil)
	ctx := context.Background()
	s.Start(ctx)
	s.Start(ctx) // must be a no-op, not a second goroutine
	s.Stop()
}
