package billing

import (
	"github.com/shopspring/decimal"

	"github.com/jherreraportilla/turno-facil/internal/money"
)

var hundred = decimal.NewFromInt(100)

// LineAmounts is the derived monetary result of pricing one invoice line.
type LineAmounts struct {
	DiscountAmount decimal.Decimal
	LineTotal      decimal.Decimal
}

// ComputeLine derives discount and net total for a regular invoice line:
//
//	gross          = round2(quantity * unitPrice)
//	discountAmount = round2(quantity * unitPrice * discountPercent / 100)
//	lineTotal      = gross - discountAmount
//
// Quantity and unit price must be non-negative and discountPercent must be
// within [0, 100]; a negative net total is rejected rather than silently
// clamped. Rectification lines are never recomputed here, they carry the
// sign-flipped amounts of the original (see services.rectify).
func ComputeLine(quantity, unitPrice, discountPercent decimal.Decimal) (LineAmounts, error) {
	if quantity.IsNegative() {
		return LineAmounts{}, NewValidationError("quantity", "must_be_non_negative")
	}
	if unitPrice.IsNegative() {
		return LineAmounts{}, NewValidationError("unit_price", "must_be_non_negative")
	}
	if discountPercent.IsNegative() || discountPercent.GreaterThan(hundred) {
		return LineAmounts{}, NewValidationError("discount_percent", "out_of_range")
	}

	gross := money.Round2(quantity.Mul(unitPrice))
	discount := money.Percent(quantity.Mul(unitPrice), discountPercent)
	total := gross.Sub(discount)
	if total.IsNegative() {
		return LineAmounts{}, NewValidationError("line_total", "must_be_non_negative")
	}
	return LineAmounts{DiscountAmount: discount, LineTotal: total}, nil
}
