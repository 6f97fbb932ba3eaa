package billing

import (
	"github.com/shopspring/decimal"

	"github.com/jherreraportilla/turno-facil/internal/models"
	"github.com/jherreraportilla/turno-facil/internal/money"
)

// Totals aggregates line totals into the invoice-level monetary fields.
type Totals struct {
	Subtotal      decimal.Decimal
	DiscountTotal decimal.Decimal
	TaxableBase   decimal.Decimal
	VATRate       decimal.Decimal
	VATAmount     decimal.Decimal
	Total         decimal.Decimal
}

// ComputeTotals aggregates the given lines under a global discount and VAT
// rate:
//
//	subtotal    = Σ lineTotal
//	taxableBase = subtotal - discountTotal
//	vatAmount   = round2(taxableBase * vatRate / 100)
//	total       = taxableBase + vatAmount
//
// The global discount is independent of per-line discounts and may be zero.
// Totals are computed exactly once, at creation; the service layer refuses
// to recompute them once the invoice has left draft.
func ComputeTotals(lines []models.InvoiceLine, discountTotal, vatRate decimal.Decimal) (Totals, error) {
	if len(lines) == 0 {
		return Totals{}, NewValidationError("lines", "required")
	}
	if discountTotal.IsNegative() {
		return Totals{}, NewValidationError("discount_total", "must_be_non_negative")
	}
	if vatRate.IsNegative() || vatRate.GreaterThan(hundred) {
		return Totals{}, NewValidationError("vat_rate", "out_of_range")
	}

	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.LineTotal)
	}
	base := subtotal.Sub(discountTotal)
	if base.IsNegative() {
		return Totals{}, NewValidationError("discount_total", "exceeds_subtotal")
	}
	vat := money.Percent(base, vatRate)
	return Totals{
		Subtotal:      subtotal,
		DiscountTotal: discountTotal,
		TaxableBase:   base,
		VATRate:       vatRate,
		VATAmount:     vat,
		Total:         base.Add(vat),
	}, nil
}
