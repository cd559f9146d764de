package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"
)

// TestProperty_RoundMoneyIsIdempotent validates that rounding an
// already-rounded amount is a no-op, the decimal analogue of the
// teacher's cents/dollars round-trip property.
func TestProperty_RoundMoneyIsIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		whole := rapid.Int64Range(-999_999_999, 999_999_999).Draw(t, "whole")
		frac := rapid.IntRange(0, 99).Draw(t, "frac")

		amount := decimal.NewFromInt(whole).Add(decimal.New(int64(frac), -2))
		rounded := RoundMoney(amount)
		twiceRounded := RoundMoney(rounded)

		if !rounded.Equal(twiceRounded) {
			t.Fatalf("RoundMoney not idempotent: RoundMoney(%s) = %s, RoundMoney(that) = %s", amount, rounded, twiceRounded)
		}
		if rounded.Exponent() < -2 {
			t.Fatalf("RoundMoney(%s) = %s retains more than 2 decimal places", amount, rounded)
		}
	})
}

// TestProperty_RoundMoneyPreservesTwoDecimalValues verifies that an
// amount already expressed to 2 decimal places survives RoundMoney
// unchanged.
func TestProperty_RoundMoneyPreservesTwoDecimalValues(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cents := rapid.Int64Range(-99_999_999_99, 99_999_999_99).Draw(t, "cents")
		amount := decimal.New(cents, -2)

		got := RoundMoney(amount)
		if !got.Equal(amount) {
			t.Fatalf("RoundMoney(%s) = %s, want unchanged", amount, got)
		}
	})
}
