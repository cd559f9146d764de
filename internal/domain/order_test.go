package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestOrder_Crosses_BuyMeetsAsk(t *testing.T) {
	buy := &Order{Side: OrderSideBuy, PricePerUnit: decimal.NewFromFloat(3.00)}
	ask := &Order{Side: OrderSideSell, PricePerUnit: decimal.NewFromFloat(3.00)}
	if !buy.Crosses(ask) {
		t.Error("Crosses() = false, want true for equal prices")
	}
}

func TestOrder_Crosses_BuyBelowAsk(t *testing.T) {
	buy := &Order{Side: OrderSideBuy, PricePerUnit: decimal.NewFromFloat(2.99)}
	ask := &Order{Side: OrderSideSell, PricePerUnit: decimal.NewFromFloat(3.00)}
	if buy.Crosses(ask) {
		t.Error("Crosses() = true, want false when bid below ask")
	}
}

func TestOrder_Crosses_SellMeetsBid(t *testing.T) {
	sell := &Order{Side: OrderSideSell, PricePerUnit: decimal.NewFromFloat(2.00)}
	bid := &Order{Side: OrderSideBuy, PricePerUnit: decimal.NewFromFloat(2.50)}
	if !sell.Crosses(bid) {
		t.Error("Crosses() = false, want true when ask below bid")
	}
}

func TestOrder_Crosses_SellAboveBid(t *testing.T) {
	sell := &Order{Side: OrderSideSell, PricePerUnit: decimal.NewFromFloat(2.51)}
	bid := &Order{Side: OrderSideBuy, PricePerUnit: decimal.NewFromFloat(2.50)}
	if sell.Crosses(bid) {
		t.Error("Crosses() = true, want false when ask above bid")
	}
}

func TestOrderStatus_IsTerminal(t *testing.T) {
	cases := map[OrderStatus]bool{
		OrderStatusActive:          false,
		OrderStatusPartiallyFilled: false,
		OrderStatusFilled:          true,
		OrderStatusCancelled:       true,
	}
	for status, want := range cases {
		if got := status.IsTerminal(); got != want {
			t.Errorf("IsTerminal(%s) = %v, want %v", status, got, want)
		}
	}
}

func TestOrderSide_Opposite(t *testing.T) {
	if OrderSideBuy.Opposite() != OrderSideSell {
		t.Error("Opposite(BUY) != SELL")
	}
	if OrderSideSell.Opposite() != OrderSideBuy {
		t.Error("Opposite(SELL) != BUY")
	}
}
