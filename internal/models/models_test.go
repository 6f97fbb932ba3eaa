package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestInvoiceStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from InvoiceStatus
		to   InvoiceStatus
		want bool
	}{
		{"draft to issued", InvoiceStatusDraft, InvoiceStatusIssued, true},
		{"issued to paid", InvoiceStatusIssued, InvoiceStatusPaid, true},
		{"issued to cancelled", InvoiceStatusIssued, InvoiceStatusCancelled, true},
		{"draft to paid", InvoiceStatusDraft, InvoiceStatusPaid, false},
		{"draft to cancelled", InvoiceStatusDraft, InvoiceStatusCancelled, false},
		{"issued to issued", InvoiceStatusIssued, InvoiceStatusIssued, false},
		{"issued to draft", InvoiceStatusIssued, InvoiceStatusDraft, false},
		{"paid is terminal", InvoiceStatusPaid, InvoiceStatusCancelled, false},
		{"cancelled is terminal", InvoiceStatusCancelled, InvoiceStatusIssued, false},
		{"rectified unreachable", InvoiceStatusPaid, InvoiceStatusRectified, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestInvoice_GetTenantID(t *testing.T) {
	inv := &Invoice{TenantID: 42}
	if got := inv.GetTenantID(); got != 42 {
		t.Errorf("GetTenantID() = %d, want 42", got)
	}
}

func TestInvoice_IsRectification(t *testing.T) {
	orig := uint(7)
	if (&Invoice{}).IsRectification() {
		t.Error("invoice without back-reference reported as rectification")
	}
	if !(&Invoice{RectifiesInvoiceID: &orig}).IsRectification() {
		t.Error("invoice with back-reference not reported as rectification")
	}
}

func TestBillingProfile_IsComplete(t *testing.T) {
	complete := BillingProfile{
		TenantID:       1,
		TaxID:          "B12345678",
		LegalName:      "Clínica Sol SL",
		Address:        "Calle Mayor 1",
		InvoiceSeries:  "TF",
		DefaultVATRate: decimal.RequireFromString("21.00"),
	}
	if !complete.IsComplete() {
		t.Error("complete profile reported incomplete")
	}

	tests := []struct {
		name   string
		mutate func(p *BillingProfile)
	}{
		{"missing tax id", func(p *BillingProfile) { p.TaxID = "" }},
		{"missing legal name", func(p *BillingProfile) { p.LegalName = "  " }},
		{"missing address", func(p *BillingProfile) { p.Address = "" }},
		{"missing series", func(p *BillingProfile) { p.InvoiceSeries = "" }},
		{"placeholder tax id", func(p *BillingProfile) { p.TaxID = "PENDIENTE" }},
		{"placeholder legal name", func(p *BillingProfile) { p.LegalName = "pendiente" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := complete
			tt.mutate(&p)
			if p.IsComplete() {
				t.Error("incomplete profile reported complete")
			}
		})
	}
}
