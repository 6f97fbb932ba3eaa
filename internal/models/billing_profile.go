package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BillingProfile holds a tenant's fiscal identity and the authoritative
// invoice number counter for its series. One row per tenant.
// NextInvoiceNumber is the only field mutated after creation, and only by
// the sequencer inside an invoice-creation transaction.
type BillingProfile struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// TenantID is the owner of this profile (multi-tenant isolation).
	TenantID uint `gorm:"uniqueIndex;not null" json:"tenant_id"`

	// Fiscal identity
	TaxID      string `gorm:"size:20" json:"tax_id"`
	LegalName  string `gorm:"size:255" json:"legal_name"`
	Address    string `gorm:"size:255" json:"address"`
	City       string `gorm:"size:100" json:"city"`
	PostalCode string `gorm:"size:10" json:"postal_code"`
	Country    string `gorm:"size:2;default:'ES'" json:"country"`

	// VAT configuration
	VATRegime      string          `gorm:"size:50;default:'general'" json:"vat_regime"`
	DefaultVATRate decimal.Decimal `gorm:"type:decimal(5,2);default:21.00" json:"default_vat_rate"`

	// Numbering
	InvoiceSeries     string `gorm:"size:10;default:'TF'" json:"invoice_series"`
	NextInvoiceNumber int64  `gorm:"not null;default:1" json:"next_invoice_number"`
}

// GetTenantID implements the Ownable convention used by ownership checks.
func (p *BillingProfile) GetTenantID() uint {
	return p.TenantID
}

// IsComplete reports whether the profile carries the fiscal data required
// to issue legally valid invoices. Placeholder values left by onboarding
// ("PENDIENTE") count as missing.
func (p *BillingProfile) IsComplete() bool {
	for _, f := range []string{p.TaxID, p.LegalName, p.Address, p.InvoiceSeries} {
		v := strings.TrimSpace(f)
		if v == "" || strings.EqualFold(v, "PENDIENTE") {
			return false
		}
	}
	return true
}
