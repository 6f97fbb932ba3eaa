package billing

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/jherreraportilla/turno-facil/internal/models"
	"github.com/jherreraportilla/turno-facil/internal/money"
)

func lineWithTotal(total string) models.InvoiceLine {
	return models.InvoiceLine{LineTotal: dec(total)}
}

func TestComputeTotals(t *testing.T) {
	tests := []struct {
		name          string
		lineTotals    []string
		discountTotal string
		vatRate       string
		wantSubtotal  string
		wantBase      string
		wantVAT       string
		wantTotal     string
	}{
		{
			// qty=2, unitPrice=25.00, discount=10% -> lineTotal 45.00
			name:       "single discounted line at 21%",
			lineTotals: []string{"45.00"}, discountTotal: "0", vatRate: "21.00",
			wantSubtotal: "45", wantBase: "45", wantVAT: "9.45", wantTotal: "54.45",
		},
		{
			name:       "multiple lines",
			lineTotals: []string{"100.00", "50.00", "30.00"}, discountTotal: "0", vatRate: "21",
			wantSubtotal: "180", wantBase: "180", wantVAT: "37.8", wantTotal: "217.8",
		},
		{
			name:       "global discount",
			lineTotals: []string{"200.00"}, discountTotal: "20.00", vatRate: "10",
			wantSubtotal: "200", wantBase: "180", wantVAT: "18", wantTotal: "198",
		},
		{
			name:       "zero vat",
			lineTotals: []string{"80.00"}, discountTotal: "0", vatRate: "0",
			wantSubtotal: "80", wantBase: "80", wantVAT: "0", wantTotal: "80",
		},
		{
			name:       "vat rounding",
			lineTotals: []string{"0.10"}, discountTotal: "0", vatRate: "21",
			wantSubtotal: "0.1", wantBase: "0.1", wantVAT: "0.02", wantTotal: "0.12",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var lines []models.InvoiceLine
			for _, lt := range tt.lineTotals {
				lines = append(lines, lineWithTotal(lt))
			}
			got, err := ComputeTotals(lines, dec(tt.discountTotal), dec(tt.vatRate))
			if err != nil {
				t.Fatalf("ComputeTotals() error = %v", err)
			}
			if !money.Equal(got.Subtotal, dec(tt.wantSubtotal)) {
				t.Errorf("Subtotal = %s, want %s", got.Subtotal, tt.wantSubtotal)
			}
			if !money.Equal(got.TaxableBase, dec(tt.wantBase)) {
				t.Errorf("TaxableBase = %s, want %s", got.TaxableBase, tt.wantBase)
			}
			if !money.Equal(got.VATAmount, dec(tt.wantVAT)) {
				t.Errorf("VATAmount = %s, want %s", got.VATAmount, tt.wantVAT)
			}
			if !money.Equal(got.Total, dec(tt.wantTotal)) {
				t.Errorf("Total = %s, want %s", got.Total, tt.wantTotal)
			}
			// taxableBase + vatAmount == total must hold exactly
			if !money.Equal(got.TaxableBase.Add(got.VATAmount), got.Total) {
				t.Errorf("base+vat = %s, total = %s", got.TaxableBase.Add(got.VATAmount), got.Total)
			}
		})
	}
}

func TestComputeTotals_Rejections(t *testing.T) {
	lines := []models.InvoiceLine{lineWithTotal("10.00")}
	if _, err := ComputeTotals(nil, decimal.Zero, dec("21")); !IsValidation(err) {
		t.Errorf("empty lines: expected ValidationError, got %v", err)
	}
	if _, err := ComputeTotals(lines, dec("-1"), dec("21")); !IsValidation(err) {
		t.Errorf("negative discount: expected ValidationError, got %v", err)
	}
	if _, err := ComputeTotals(lines, dec("11.00"), dec("21")); !IsValidation(err) {
		t.Errorf("discount above subtotal: expected ValidationError, got %v", err)
	}
	if _, err := ComputeTotals(lines, decimal.Zero, dec("120")); !IsValidation(err) {
		t.Errorf("vat out of range: expected ValidationError, got %v", err)
	}
}
