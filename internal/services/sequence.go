package services

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/jherreraportilla/turno-facil/internal/billing"
	"github.com/jherreraportilla/turno-facil/internal/models"
)

// nextInvoiceNumber consumes the tenant's counter and formats the invoice
// number as SERIES-YYYY-NNNNN (e.g. TF-2025-00001).
//
// The increment runs as a single atomic UPDATE inside the caller's
// transaction; the row lock it takes is held until commit, so two concurrent
// creations for the same tenant serialize and can neither duplicate nor skip
// a number (the insert that consumes the number commits in the same
// transaction). Different tenants update different rows and never contend.
//
// The counter does not reset on year change: the year in the formatted
// number is cosmetic and the integer sequence stays monotonic per series.
func nextInvoiceNumber(tx *gorm.DB, profile *models.BillingProfile, now time.Time) (string, error) {
	res := tx.Model(&models.BillingProfile{}).
		Where("tenant_id = ?", profile.TenantID).
		Update("next_invoice_number", gorm.Expr("next_invoice_number + 1"))
	if res.Error != nil {
		return "", sequenceError(res.Error)
	}
	if res.RowsAffected == 0 {
		return "", fmt.Errorf("billing profile for tenant %d: %w", profile.TenantID, billing.ErrNotFound)
	}

	// Read back the incremented counter within the transaction; the value we
	// consumed is the one just before it.
	var updated models.BillingProfile
	if err := tx.Where("tenant_id = ?", profile.TenantID).First(&updated).Error; err != nil {
		return "", sequenceError(err)
	}
	consumed := updated.NextInvoiceNumber - 1
	return fmt.Sprintf("%s-%d-%05d", profile.InvoiceSeries, now.Year(), consumed), nil
}

// sequenceError maps storage-engine serialization failures to the retryable
// ErrConcurrencyConflict; anything else passes through unchanged.
func sequenceError(err error) error {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"database is locked",       // sqlite busy
		"database table is locked", // sqlite shared-cache table lock
		"could not serialize",      // postgres serialization failure
		"deadlock detected",        // postgres deadlock
		"lock timeout",             // postgres lock_timeout
	} {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %v", billing.ErrConcurrencyConflict, err)
		}
	}
	return err
}
