package services

import (
	"time"

	"gorm.io/gorm"

	"github.com/jherreraportilla/turno-facil/internal/models"
)

// ActionContext identifies who performed a lifecycle action, for the audit
// trail. Handlers fill it from the request; internal callers leave IP and
// user agent empty.
type ActionContext struct {
	PerformedBy uint
	IPAddress   string
	UserAgent   string
}

// AuditTrail is the append-only recorder for invoice actions. It exposes no
// update or delete method; the append-only invariant is enforced by this API
// surface, not by convention.
type AuditTrail struct{}

// Record appends one entry within the caller's transaction. A failed append
// fails the enclosing transaction: an invoice is never persisted without its
// trail entry.
func (AuditTrail) Record(tx *gorm.DB, entry *models.InvoiceAuditLog) error {
	if entry.PerformedAt.IsZero() {
		entry.PerformedAt = time.Now()
	}
	return tx.Create(entry).Error
}

// ListForInvoice returns the trail for one invoice, oldest first.
func (AuditTrail) ListForInvoice(db *gorm.DB, invoiceID, tenantID uint) ([]models.InvoiceAuditLog, error) {
	var entries []models.InvoiceAuditLog
	err := db.Where("invoice_id = ? AND tenant_id = ?", invoiceID, tenantID).
		Order("id asc").
		Find(&entries).Error
	return entries, err
}

func transitionEntry(inv *models.Invoice, action models.AuditAction, from, to models.InvoiceStatus, actor ActionContext, details string) *models.InvoiceAuditLog {
	return &models.InvoiceAuditLog{
		InvoiceID:   inv.ID,
		TenantID:    inv.TenantID,
		Action:      action,
		PerformedBy: actor.PerformedBy,
		OldStatus:   &from,
		NewStatus:   &to,
		Details:     details,
		IPAddress:   actor.IPAddress,
		UserAgent:   actor.UserAgent,
	}
}
