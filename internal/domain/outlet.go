package domain

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// SupplierOutletID is the default sentinel outlet id, overridable at
// runtime via SUPPLIER_OUTLET_ID (§6). It participates in the Book
// like any other outlet but is excluded from leaderboards and retail
// listings (§3, §9) — that filter is decided against the *configured*
// id by Ledger.IsSentinel, not against this constant, since the two
// can diverge when SUPPLIER_OUTLET_ID is overridden.
const SupplierOutletID = "supplier-factory"

// Outlet is a participant on the exchange: a cash balance, a margin
// used for retail customer sales, and an open/closed gate that hides
// the outlet from every agent when false.
type Outlet struct {
	OutletID      string
	Name          string
	Location      string
	Balance       decimal.Decimal
	MarginPercent decimal.Decimal
	IsOpen        bool
	CreatedAt     time.Time

	// Mu serialises balance/margin mutations for this outlet, mirroring
	// the per-broker lock pattern: settlement across two outlets always
	// locks in a fixed order (by OutletID) to avoid deadlock.
	Mu sync.Mutex `json:"-"`
}

// NetProfit is the outlet's balance minus its initial baseline
// balance, per §4.3's stats() definition.
func (o *Outlet) NetProfit(initialBalance decimal.Decimal) decimal.Decimal {
	return o.Balance.Sub(initialBalance)
}
