package billing

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/jherreraportilla/turno-facil/internal/money"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeLine(t *testing.T) {
	tests := []struct {
		name         string
		qty          string
		price        string
		discount     string
		wantDiscount string
		wantTotal    string
	}{
		{"no discount", "1", "100.00", "0", "0", "100"},
		{"qty 2 with 10%", "2", "25.00", "10", "5", "45"},
		{"fractional qty", "1.5", "30.00", "0", "0", "45"},
		{"three decimal qty", "0.333", "10.00", "0", "0", "3.33"},
		{"full discount", "4", "12.50", "100", "50", "0"},
		{"discount rounds", "1", "33.33", "21", "7", "26.33"},
		{"zero qty", "0", "99.99", "50", "0", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeLine(dec(tt.qty), dec(tt.price), dec(tt.discount))
			if err != nil {
				t.Fatalf("ComputeLine() error = %v", err)
			}
			if !money.Equal(got.DiscountAmount, dec(tt.wantDiscount)) {
				t.Errorf("DiscountAmount = %s, want %s", got.DiscountAmount, tt.wantDiscount)
			}
			if !money.Equal(got.LineTotal, dec(tt.wantTotal)) {
				t.Errorf("LineTotal = %s, want %s", got.LineTotal, tt.wantTotal)
			}
		})
	}
}

func TestComputeLine_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		qty      string
		price    string
		discount string
	}{
		{"negative quantity", "-1", "10.00", "0"},
		{"negative price", "1", "-10.00", "0"},
		{"discount above 100", "1", "10.00", "101"},
		{"negative discount", "1", "10.00", "-5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeLine(dec(tt.qty), dec(tt.price), dec(tt.discount))
			if err == nil {
				t.Fatal("ComputeLine() expected error, got nil")
			}
			if !IsValidation(err) {
				t.Errorf("expected ValidationError, got %T", err)
			}
		})
	}
}
