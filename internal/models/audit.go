package models

import "time"

// AuditAction classifies an entry in the invoice audit trail.
type AuditAction string

const (
	AuditActionCreated    AuditAction = "created"
	AuditActionUpdated    AuditAction = "updated"
	AuditActionIssued     AuditAction = "issued"
	AuditActionPaid       AuditAction = "paid"
	AuditActionCancelled  AuditAction = "cancelled"
	AuditActionRectified  AuditAction = "rectified"
	AuditActionViewed     AuditAction = "viewed"
	AuditActionDownloaded AuditAction = "downloaded"
	AuditActionSentEmail  AuditAction = "sent_email"
)

// InvoiceAuditLog is one append-only entry in the compliance trail. Rows are
// only ever inserted; no update or delete path exists anywhere in the code.
type InvoiceAuditLog struct {
	ID uint `gorm:"primaryKey" json:"id"`

	InvoiceID uint `gorm:"index;not null" json:"invoice_id"`
	TenantID  uint `gorm:"index;not null" json:"tenant_id"`

	Action      AuditAction `gorm:"size:20;not null" json:"action"`
	PerformedBy uint        `gorm:"not null" json:"performed_by"`
	PerformedAt time.Time   `gorm:"not null" json:"performed_at"`

	OldStatus *InvoiceStatus `gorm:"size:20" json:"old_status,omitempty"`
	NewStatus *InvoiceStatus `gorm:"size:20" json:"new_status,omitempty"`

	Details   string `gorm:"size:1000" json:"details,omitempty"`
	IPAddress string `gorm:"size:45" json:"ip_address,omitempty"`
	UserAgent string `gorm:"size:500" json:"user_agent,omitempty"`
}
