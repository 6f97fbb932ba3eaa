// Package billing holds the invoice arithmetic (line and totals calculators)
// and the error taxonomy shared by the invoicing service and its HTTP layer.
package billing

import (
	"errors"
	"fmt"

	"github.com/jherreraportilla/turno-facil/internal/models"
)

var (
	// ErrNotFound is returned when an invoice or billing profile does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAccessDenied is returned when an invoice belongs to a different tenant.
	ErrAccessDenied = errors.New("access denied")

	// ErrConcurrencyConflict is returned when the number sequencer could not
	// serialize its increment. The whole operation is safe to retry.
	ErrConcurrencyConflict = errors.New("concurrency conflict")

	// ErrImmutable is returned when a caller attempts to modify or recompute
	// an invoice that has already left draft.
	ErrImmutable = errors.New("invoice is immutable once issued")
)

// ValidationError carries field-level violations for a rejected request.
type ValidationError struct {
	Violations map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %v", e.Violations)
}

// NewValidationError builds a single-field validation error.
func NewValidationError(field, message string) error {
	return &ValidationError{Violations: map[string]string{field: message}}
}

// InvalidTransitionError reports an illegal lifecycle edge request.
type InvalidTransitionError struct {
	From models.InvoiceStatus
	To   models.InvoiceStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid invoice transition %s -> %s", e.From, e.To)
}

// IsInvalidTransition reports whether err is an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var t *InvalidTransitionError
	return errors.As(err, &t)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
