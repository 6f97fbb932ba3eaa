package services

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/jherreraportilla/turno-facil/internal/billing"
	"github.com/jherreraportilla/turno-facil/internal/models"
)

func TestNextInvoiceNumber_Format(t *testing.T) {
	db := setupTestDB(t)
	profile := seedProfile(t, db, 1, 42)

	at := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	var number string
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		number, err = nextInvoiceNumber(tx, &profile, at)
		return err
	})
	if err != nil {
		t.Fatalf("nextInvoiceNumber() error = %v", err)
	}
	if number != "TF-2025-00042" {
		t.Errorf("number = %s, want TF-2025-00042", number)
	}

	var updated models.BillingProfile
	if err := db.Where("tenant_id = ?", 1).First(&updated).Error; err != nil {
		t.Fatalf("reload profile: %v", err)
	}
	if updated.NextInvoiceNumber != 43 {
		t.Errorf("NextInvoiceNumber = %d, want 43", updated.NextInvoiceNumber)
	}
}

func TestNextInvoiceNumber_YearRolloverKeepsCounter(t *testing.T) {
	db := setupTestDB(t)
	profile := seedProfile(t, db, 1, 99)

	mint := func(at time.Time) string {
		t.Helper()
		var number string
		err := db.Transaction(func(tx *gorm.DB) error {
			var err error
			number, err = nextInvoiceNumber(tx, &profile, at)
			return err
		})
		if err != nil {
			t.Fatalf("nextInvoiceNumber() error = %v", err)
		}
		return number
	}

	dec31 := mint(time.Date(2025, 12, 31, 23, 59, 0, 0, time.UTC))
	jan1 := mint(time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC))
	if dec31 != "TF-2025-00099" {
		t.Errorf("pre-rollover number = %s, want TF-2025-00099", dec31)
	}
	// year changes in the label, the integer sequence does not reset
	if jan1 != "TF-2026-00100" {
		t.Errorf("post-rollover number = %s, want TF-2026-00100", jan1)
	}
}

func TestNextInvoiceNumber_MissingProfile(t *testing.T) {
	db := setupTestDB(t)
	ghost := models.BillingProfile{TenantID: 77, InvoiceSeries: "TF"}
	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := nextInvoiceNumber(tx, &ghost, time.Now())
		return err
	})
	if !errors.Is(err, billing.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestWithSequenceRetry(t *testing.T) {
	t.Run("succeeds within budget", func(t *testing.T) {
		svc := NewInvoiceService(nil, nil)
		svc.SetSequenceMaxRetries(3)
		calls := 0
		err := svc.withSequenceRetry(func() error {
			calls++
			if calls <= 2 {
				return fmt.Errorf("mint number: %w", billing.ErrConcurrencyConflict)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("withSequenceRetry() error = %v", err)
		}
		if calls != 3 {
			t.Errorf("calls = %d, want 3", calls)
		}
	})
	t.Run("budget exhausted surfaces conflict", func(t *testing.T) {
		svc := NewInvoiceService(nil, nil)
		svc.SetSequenceMaxRetries(1)
		calls := 0
		err := svc.withSequenceRetry(func() error {
			calls++
			return billing.ErrConcurrencyConflict
		})
		if !errors.Is(err, billing.ErrConcurrencyConflict) {
			t.Fatalf("expected ErrConcurrencyConflict, got %v", err)
		}
		if calls != 2 {
			t.Errorf("calls = %d, want 2 (initial + one retry)", calls)
		}
	})
	t.Run("other errors are not retried", func(t *testing.T) {
		svc := NewInvoiceService(nil, nil)
		calls := 0
		sentinel := errors.New("connection refused")
		err := svc.withSequenceRetry(func() error {
			calls++
			return sentinel
		})
		if !errors.Is(err, sentinel) || calls != 1 {
			t.Errorf("err = %v, calls = %d; want sentinel after a single call", err, calls)
		}
	})
}

func TestSequenceError_Mapping(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"sqlite busy", errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{"sqlite table lock", errors.New("database table is locked: billing_profiles"), true},
		{"pg serialization", errors.New("ERROR: could not serialize access due to concurrent update"), true},
		{"pg deadlock", errors.New("ERROR: deadlock detected"), true},
		{"pg lock timeout", errors.New("ERROR: canceling statement due to lock timeout"), true},
		{"unrelated", fmt.Errorf("connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sequenceError(tt.err)
			if tt.retryable != errors.Is(got, billing.ErrConcurrencyConflict) {
				t.Errorf("sequenceError(%v) retryable = %v, want %v", tt.err, !tt.retryable, tt.retryable)
			}
		})
	}
}
