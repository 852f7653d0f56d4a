package finance

import "github.com/shopspring/decimal"

// SettlementTolerance is the system-wide slack under which an outstanding
// amount is treated as settled. Covers rounding residue from per-component
// 2-decimal rounding.
var SettlementTolerance = decimal.NewFromFloat(0.05)

var (
	oneHundred   = decimal.NewFromInt(100)
	daysPerMonth = decimal.NewFromInt(30)
)

// Round2 rounds a monetary amount to 2 decimal places, half up.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ClampZero floors a negative intermediate result at zero. Remaining balances
// are never allowed to go negative.
func ClampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// IsSettled reports whether an outstanding amount is within tolerance of zero.
func IsSettled(d decimal.Decimal) bool {
	return d.LessThanOrEqual(SettlementTolerance)
}

// percentOf applies a plain percentage (5 means 5%) to an amount.
func percentOf(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Mul(percent).Div(oneHundred)
}
