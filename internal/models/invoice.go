package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the lifecycle status of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusIssued    InvoiceStatus = "issued"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
	// InvoiceStatusRectified is kept for wire compatibility with profile
	// configuration; no lifecycle operation currently enters it.
	// Cancelling an issued invoice marks it cancelled and creates a new
	// rectification invoice instead.
	InvoiceStatusRectified InvoiceStatus = "rectified"
)

// legalTransitions is the authoritative lifecycle edge table. Any edge not
// listed here is rejected with ErrInvalidTransition by the service layer.
var legalTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusDraft:  {InvoiceStatusIssued},
	InvoiceStatusIssued: {InvoiceStatusPaid, InvoiceStatusCancelled},
}

// CanTransitionTo reports whether the lifecycle edge s -> target is legal.
func (s InvoiceStatus) CanTransitionTo(target InvoiceStatus) bool {
	for _, t := range legalTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// Invoice is a sequentially numbered billing document. Once it leaves draft
// every field except status, paid_at, cancelled_at, cancellation_reason and
// rectified_by_invoice_id is immutable; the service layer enforces this by
// never updating other columns after creation.
type Invoice struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// TenantID is the owner of this invoice (multi-tenant isolation).
	TenantID uint `gorm:"index;uniqueIndex:idx_invoices_tenant_number;not null" json:"tenant_id"`

	// Identification. Number format: SERIES-YYYY-NNNNN (e.g. TF-2025-00001).
	// Numbers are unique per tenant; tenants sharing a series mint
	// independent sequences.
	InvoiceNumber string `gorm:"size:50;uniqueIndex:idx_invoices_tenant_number;not null" json:"invoice_number"`
	InvoiceSeries string `gorm:"size:10;not null" json:"invoice_series"`

	// Emitter snapshot, copied from the billing profile at creation time so
	// later profile edits never alter issued documents.
	EmitterTaxID      string `gorm:"size:20" json:"emitter_tax_id"`
	EmitterLegalName  string `gorm:"size:255" json:"emitter_legal_name"`
	EmitterAddress    string `gorm:"size:255" json:"emitter_address"`
	EmitterCity       string `gorm:"size:100" json:"emitter_city"`
	EmitterPostalCode string `gorm:"size:10" json:"emitter_postal_code"`
	EmitterCountry    string `gorm:"size:2" json:"emitter_country"`

	// Client snapshot, copied from the appointment or the manual request.
	ClientName    string `gorm:"size:255;not null" json:"client_name"`
	ClientEmail   string `gorm:"size:255" json:"client_email"`
	ClientPhone   string `gorm:"size:30" json:"client_phone"`
	ClientTaxID   string `gorm:"size:20" json:"client_tax_id,omitempty"`
	ClientAddress string `gorm:"size:255" json:"client_address,omitempty"`

	// Monetary fields, 2-decimal fixed point.
	Subtotal      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"subtotal"`
	DiscountTotal decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"discount_total"`
	TaxableBase   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"taxable_base"`
	VATRate       decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"vat_rate"`
	VATAmount     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"vat_amount"`
	Total         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total"`

	// Dates
	IssueDate   time.Time `gorm:"not null" json:"issue_date"`
	DueDate     time.Time `gorm:"not null" json:"due_date"`
	ServiceDate time.Time `json:"service_date"`

	// Lifecycle
	Status             InvoiceStatus `gorm:"size:20;default:'draft';index" json:"status"`
	IssuedAt           *time.Time    `json:"issued_at,omitempty"`
	PaidAt             *time.Time    `json:"paid_at,omitempty"`
	CancelledAt        *time.Time    `json:"cancelled_at,omitempty"`
	CancellationReason string        `gorm:"size:500" json:"cancellation_reason,omitempty"`

	// Rectification chain
	RectifiesInvoiceID   *uint `gorm:"index" json:"rectifies_invoice_id,omitempty"`
	RectifiedByInvoiceID *uint `json:"rectified_by_invoice_id,omitempty"`

	// Source appointment, informational only. Line amounts are snapshots
	// and are never recalculated from it.
	AppointmentID *uint  `gorm:"index" json:"appointment_id,omitempty"`
	Notes         string `gorm:"type:text" json:"notes,omitempty"`

	Lines []InvoiceLine `gorm:"foreignKey:InvoiceID" json:"lines,omitempty"`
}

// GetTenantID implements the Ownable convention used by ownership checks.
func (i *Invoice) GetTenantID() uint {
	return i.TenantID
}

// IsDraft returns true while the invoice can still be modified.
func (i *Invoice) IsDraft() bool {
	return i.Status == InvoiceStatusDraft
}

// IsRectification returns true for credit-note invoices created by
// cancelling an issued invoice.
func (i *Invoice) IsRectification() bool {
	return i.RectifiesInvoiceID != nil
}

// InvoiceLine is one priced concept on an invoice. Amounts are computed
// once at creation and are immutable after the parent leaves draft.
type InvoiceLine struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	InvoiceID uint `gorm:"index;not null" json:"invoice_id"`

	Description     string          `gorm:"size:500;not null" json:"description"`
	Quantity        decimal.Decimal `gorm:"type:decimal(10,3);not null" json:"quantity"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	DiscountPercent decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"discount_percent"`
	DiscountAmount  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"discount_amount"`
	LineTotal       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"line_total"`

	// Originating appointment/service, informational only.
	AppointmentID *uint `json:"appointment_id,omitempty"`

	// 1-based position for deterministic rendering.
	LineOrder int `gorm:"not null;default:1" json:"line_order"`
}
