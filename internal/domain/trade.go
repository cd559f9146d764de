package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade (Fill / Transaction) is a single quantity match between a buy
// order and a sell order at one price.
type Trade struct {
	TransactionID  string
	BuyOrderID     string
	SellOrderID    string
	BuyerOutletID  string
	SellerOutletID string
	ProductID      string
	Quantity       int64
	PricePerUnit   decimal.Decimal
	TotalAmount    decimal.Decimal
	ExecutedAt     time.Time
}
