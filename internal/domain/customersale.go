package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustomerSale records one retail transaction: a simulated customer
// buying product out of an outlet's inventory at the outlet's margin.
type CustomerSale struct {
	SaleID     string
	OutletID   string
	ProductID  string
	Quantity   int64
	CostBasis  decimal.Decimal
	Revenue    decimal.Decimal
	Profit     decimal.Decimal
	ExecutedAt time.Time
}

// SalesStats is the Ledger's derived, cached view of an outlet's
// performance, split between exchange fills and retail customer
// sales (§3, §4.3). NetProfit is balance minus the outlet's initial
// baseline balance, computed fresh whenever stats are read.
type SalesStats struct {
	OutletID             string
	CustomerSalesRevenue decimal.Decimal
	CustomerSalesCount   int64
	ExchangeSalesRevenue decimal.Decimal
	ExchangeSalesCount   int64
	NetProfit            decimal.Decimal
}
