package domain

import "github.com/shopspring/decimal"

// Money helpers centralise the rounding rule for all monetary
// arithmetic: two decimal places, half-up, matching how a cash
// register would settle a sale.

// RoundMoney rounds d to 2 decimal places.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Zero is the canonical zero money value.
var Zero = decimal.Zero
