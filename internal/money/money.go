// Package money provides the fixed-point decimal helpers shared by the
// invoicing calculators. Currency amounts carry 2 decimals, quantities 3,
// rounding is half-up.
package money

import "github.com/shopspring/decimal"

// Round2 rounds an amount to currency precision (2 decimals, half-up).
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Round3 rounds a quantity to 3 decimals, half-up.
func Round3(d decimal.Decimal) decimal.Decimal {
	return d.Round(3)
}

// Percent returns round2(base * pct / 100).
func Percent(base, pct decimal.Decimal) decimal.Decimal {
	return Round2(base.Mul(pct).Div(decimal.NewFromInt(100)))
}

// FromCents builds a 2-decimal amount from an integer cent count.
// Convenient in tests and seeds.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// Equal reports whether two decimals represent the same numeric value,
// regardless of exponent (1.5 == 1.50).
func Equal(a, b decimal.Decimal) bool {
	return a.Cmp(b) == 0
}
