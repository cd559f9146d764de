package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"

	"github.com/efreitasn/donutexchange/internal/domain"
)

// Property: price compatibility determines matching — a resting ask at
// askPrice and an incoming bid at bidPrice cross iff bidPrice >= askPrice.

func TestProperty_PriceCompatibilityDeterminesMatching(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		bidPrice := rapid.Int64Range(1, 10_000).Draw(t, "bidPrice")
		askPrice := rapid.Int64Range(1, 10_000).Draw(t, "askPrice")
		qty := rapid.Int64Range(1, 100).Draw(t, "qty")

		m, ledger, pub := newTestMatcher()
		ledger.registerOutlet("seller", decimal.NewFromInt(0))
		ledger.registerOutlet("buyer", decimal.NewFromInt(bidPrice*qty*2))

		ask := newLimitOrder("seller", "P", domain.OrderSideSell, float64(askPrice), qty)
		m.Match(ask)

		bid := newLimitOrder("buyer", "P", domain.OrderSideBuy, float64(bidPrice), qty)
		m.Match(bid)

		shouldMatch := bidPrice >= askPrice
		got := pub.countKind(domain.EventTradeExecuted) > 0

		if shouldMatch != got {
			t.Fatalf("bid=%d ask=%d: shouldMatch=%v gotTrade=%v", bidPrice, askPrice, shouldMatch, got)
		}

		if !shouldMatch {
			book := m.books.GetOrCreate("P")
			bestBid, hasBid := book.BestBid()
			bestAsk, hasAsk := book.BestAsk()
			if hasBid && hasAsk && bestBid.Price.GreaterThanOrEqual(bestAsk.Price) {
				t.Fatalf("book is crossed: best bid %s >= best ask %s", bestBid.Price, bestAsk.Price)
			}
		}
	})
}

// Property: execution price always equals the resting order's price.

func TestProperty_ExecutionPriceEqualsRestingPrice(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		askPrice := rapid.Int64Range(1, 5_000).Draw(t, "askPrice")
		bidPremium := rapid.Int64Range(0, 5_000).Draw(t, "bidPremium")
		bidPrice := askPrice + bidPremium
		qty := rapid.Int64Range(1, 100).Draw(t, "qty")

		m, ledger, pub := newTestMatcher()
		ledger.registerOutlet("seller", decimal.NewFromInt(0))
		ledger.registerOutlet("buyer", decimal.NewFromInt(bidPrice*qty*2))

		ask := newLimitOrder("seller", "P", domain.OrderSideSell, float64(askPrice), qty)
		m.Match(ask)
		bid := newLimitOrder("buyer", "P", domain.OrderSideBuy, float64(bidPrice), qty)
		m.Match(bid)

		for _, evt := range pub.events {
			if evt.Kind != domain.EventTradeExecuted {
				continue
			}
			if !evt.Trade.PricePerUnit.Equal(decimal.NewFromInt(askPrice)) {
				t.Fatalf("trade price = %s, want resting ask price %d", evt.Trade.PricePerUnit, askPrice)
			}
		}
	})
}

// Property: quantity conservation — an order's filled quantity never
// exceeds its original quantity, and equals it iff status is FILLED.

func TestProperty_QuantityConservation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		askQty := rapid.Int64Range(1, 100).Draw(t, "askQty")
		bidQty := rapid.Int64Range(1, 100).Draw(t, "bidQty")

		m, ledger, _ := newTestMatcher()
		ledger.registerOutlet("seller", decimal.NewFromInt(0))
		ledger.registerOutlet("buyer", decimal.NewFromInt(1_000_000))

		ask := newLimitOrder("seller", "P", domain.OrderSideSell, 2.00, askQty)
		m.Match(ask)
		bid := newLimitOrder("buyer", "P", domain.OrderSideBuy, 2.00, bidQty)
		m.Match(bid)

		for _, o := range []*domain.Order{ask, bid} {
			if o.FilledQuantity > o.Quantity {
				t.Fatalf("order %s filled %d exceeds quantity %d", o.OrderID, o.FilledQuantity, o.Quantity)
			}
			if (o.FilledQuantity == o.Quantity) != (o.Status == domain.OrderStatusFilled) {
				t.Fatalf("order %s: filled==quantity (%v) but status=%s", o.OrderID, o.FilledQuantity == o.Quantity, o.Status)
			}
		}
	})
}
