package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide indicates whether an order is a bid (buy) or ask (sell).
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// Opposite returns the other side.
func (s OrderSide) Opposite() OrderSide {
	if s == OrderSideBuy {
		return OrderSideSell
	}
	return OrderSideBuy
}

// OrderStatus represents the lifecycle state of an order. An order in
// a terminal status (FILLED, CANCELLED) never returns to ACTIVE (§3).
type OrderStatus string

const (
	OrderStatusActive          OrderStatus = "ACTIVE"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCancelled       OrderStatus = "CANCELLED"
)

// IsTerminal reports whether the status is FILLED or CANCELLED.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFilled || s == OrderStatusCancelled
}

// Order represents a bid or ask submitted by an outlet against a
// single product's Book. There is no market-order type and no
// expiry: the only operations are create and implicit fill (§1
// Non-goals).
type Order struct {
	OrderID           string
	Side              OrderSide
	ProductID         string
	OutletID          string
	Quantity          int64
	PricePerUnit      decimal.Decimal
	RemainingQuantity int64
	FilledQuantity    int64
	Status            OrderStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time

	// Sequence is the monotonic tiebreak authority (§9); CreatedAt is
	// kept for display only.
	Sequence uint64
}

// Crosses reports whether this order, acting as the incoming order,
// would cross against the resting opposite order per §4.2's crossing
// rule: a BUY at p_b crosses an ASK at p_a iff p_b ≥ p_a, symmetric for
// sells.
func (o *Order) Crosses(opposite *Order) bool {
	if o.Side == OrderSideBuy {
		return o.PricePerUnit.GreaterThanOrEqual(opposite.PricePerUnit)
	}
	return o.PricePerUnit.LessThanOrEqual(opposite.PricePerUnit)
}
