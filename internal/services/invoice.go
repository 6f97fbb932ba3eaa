package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jherreraportilla/turno-facil/internal/billing"
	"github.com/jherreraportilla/turno-facil/internal/models"
)

// rectificationPrefix marks the lines of a credit-note invoice.
const rectificationPrefix = "Rectificación: "

// defaultDueDays is applied when a creation request carries no due date.
const defaultDueDays = 30

// defaultSequenceRetries bounds the automatic re-runs of a number-minting
// transaction after a concurrency conflict. Overridable via
// SEQUENCE_MAX_RETRIES, see SetSequenceMaxRetries.
const defaultSequenceRetries = 3

// AppointmentMarker is the callback into the booking side of the platform.
// MarkInvoiced is invoked exactly once, inside the emit transaction, so the
// appointment flag and the invoice status commit or roll back together.
type AppointmentMarker interface {
	MarkInvoiced(appointmentID uint) error
}

// InvoiceService owns the invoice lifecycle: creation (manual or from an
// appointment), emission, payment, cancellation with rectification, and the
// read side (get, list, stats). Every operation takes the tenant id
// explicitly and runs in a single transaction together with its audit entry.
type InvoiceService struct {
	db           *gorm.DB
	audit        AuditTrail
	appointments AppointmentMarker
	maxRetries   int
}

func NewInvoiceService(db *gorm.DB, appointments AppointmentMarker) *InvoiceService {
	return &InvoiceService{db: db, appointments: appointments, maxRetries: defaultSequenceRetries}
}

// SetSequenceMaxRetries overrides how many times a number-minting transaction
// is re-run after ErrConcurrencyConflict before the error reaches the caller.
// Zero disables the retries.
func (s *InvoiceService) SetSequenceMaxRetries(n int) {
	if n >= 0 {
		s.maxRetries = n
	}
}

// withSequenceRetry re-runs fn while it fails with ErrConcurrencyConflict.
// fn must be a whole transaction: each attempt either commits or leaves no
// trace, so repeating it never skips or duplicates a number.
func (s *InvoiceService) withSequenceRetry(fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if !errors.Is(err, billing.ErrConcurrencyConflict) || attempt >= s.maxRetries {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * 25 * time.Millisecond)
	}
}

// LineRequest is one line of a manual creation request.
type LineRequest struct {
	Description     string          `json:"description"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	AppointmentID   *uint           `json:"appointment_id,omitempty"`
}

// CreateInvoiceRequest carries the client snapshot, dates and lines for a
// manual invoice. Zero dates default to today / today+30.
type CreateInvoiceRequest struct {
	ClientName    string `json:"client_name"`
	ClientEmail   string `json:"client_email"`
	ClientPhone   string `json:"client_phone"`
	ClientTaxID   string `json:"client_tax_id"`
	ClientAddress string `json:"client_address"`

	IssueDate   time.Time `json:"issue_date"`
	DueDate     time.Time `json:"due_date"`
	ServiceDate time.Time `json:"service_date"`

	Lines         []LineRequest    `json:"lines"`
	DiscountTotal decimal.Decimal  `json:"discount_total"`
	VATRate       *decimal.Decimal `json:"vat_rate,omitempty"` // nil -> profile default

	Notes         string `json:"notes"`
	AppointmentID *uint  `json:"appointment_id,omitempty"`
}

// AppointmentSnapshot is the read-only view of a completed appointment
// supplied by the booking service. Price and service name are copied onto
// the invoice line and never re-read afterwards.
type AppointmentSnapshot struct {
	AppointmentID uint            `json:"appointment_id"`
	ClientName    string          `json:"client_name"`
	ClientEmail   string          `json:"client_email"`
	ClientPhone   string          `json:"client_phone"`
	ServiceName   string          `json:"service_name"`
	ServiceDate   time.Time       `json:"service_date"`
	Price         decimal.Decimal `json:"price"`
	Completed     bool            `json:"completed"`
}

// CreateManual creates a draft invoice from an explicit request.
func (s *InvoiceService) CreateManual(req CreateInvoiceRequest, tenantID uint, actor ActionContext) (*models.Invoice, error) {
	return s.create(req, tenantID, actor)
}

// CreateFromAppointment creates a draft invoice for a completed appointment:
// one line, quantity 1, at the appointment's price.
func (s *InvoiceService) CreateFromAppointment(snap AppointmentSnapshot, tenantID uint, actor ActionContext) (*models.Invoice, error) {
	if !snap.Completed {
		return nil, billing.NewValidationError("appointment", "not_completed")
	}
	if !snap.Price.IsPositive() {
		return nil, billing.NewValidationError("appointment", "no_price")
	}
	if strings.TrimSpace(snap.ClientName) == "" {
		return nil, billing.NewValidationError("client_name", "required")
	}
	req := CreateInvoiceRequest{
		ClientName:    snap.ClientName,
		ClientEmail:   snap.ClientEmail,
		ClientPhone:   snap.ClientPhone,
		ServiceDate:   snap.ServiceDate,
		AppointmentID: &snap.AppointmentID,
		Lines: []LineRequest{{
			Description:   snap.ServiceName,
			Quantity:      decimal.NewFromInt(1),
			UnitPrice:     snap.Price,
			AppointmentID: &snap.AppointmentID,
		}},
	}
	return s.create(req, tenantID, actor)
}

func (s *InvoiceService) create(req CreateInvoiceRequest, tenantID uint, actor ActionContext) (*models.Invoice, error) {
	if strings.TrimSpace(req.ClientName) == "" {
		return nil, billing.NewValidationError("client_name", "required")
	}
	if len(req.Lines) == 0 {
		return nil, billing.NewValidationError("lines", "required")
	}

	lines := make([]models.InvoiceLine, 0, len(req.Lines))
	for i, lr := range req.Lines {
		if strings.TrimSpace(lr.Description) == "" {
			return nil, billing.NewValidationError(fmt.Sprintf("lines[%d].description", i), "required")
		}
		amounts, err := billing.ComputeLine(lr.Quantity, lr.UnitPrice, lr.DiscountPercent)
		if err != nil {
			return nil, err
		}
		lines = append(lines, models.InvoiceLine{
			Description:     lr.Description,
			Quantity:        lr.Quantity,
			UnitPrice:       lr.UnitPrice,
			DiscountPercent: lr.DiscountPercent,
			DiscountAmount:  amounts.DiscountAmount,
			LineTotal:       amounts.LineTotal,
			AppointmentID:   lr.AppointmentID,
			LineOrder:       i + 1,
		})
	}

	now := time.Now()
	issueDate := req.IssueDate
	if issueDate.IsZero() {
		issueDate = now
	}
	dueDate := req.DueDate
	if dueDate.IsZero() {
		dueDate = issueDate.AddDate(0, 0, defaultDueDays)
	}

	var created *models.Invoice
	createTx := func(tx *gorm.DB) error {
		var profile models.BillingProfile
		if err := tx.Where("tenant_id = ?", tenantID).First(&profile).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return fmt.Errorf("billing profile for tenant %d: %w", tenantID, billing.ErrNotFound)
			}
			return err
		}
		if !profile.IsComplete() {
			return billing.NewValidationError("billing_profile", "incomplete")
		}

		vatRate := profile.DefaultVATRate
		if req.VATRate != nil {
			vatRate = *req.VATRate
		}
		totals, err := billing.ComputeTotals(lines, req.DiscountTotal, vatRate)
		if err != nil {
			return err
		}

		number, err := nextInvoiceNumber(tx, &profile, now)
		if err != nil {
			return err
		}

		inv := &models.Invoice{
			TenantID:      tenantID,
			InvoiceNumber: number,
			InvoiceSeries: profile.InvoiceSeries,

			EmitterTaxID:      profile.TaxID,
			EmitterLegalName:  profile.LegalName,
			EmitterAddress:    profile.Address,
			EmitterCity:       profile.City,
			EmitterPostalCode: profile.PostalCode,
			EmitterCountry:    profile.Country,

			ClientName:    req.ClientName,
			ClientEmail:   req.ClientEmail,
			ClientPhone:   req.ClientPhone,
			ClientTaxID:   req.ClientTaxID,
			ClientAddress: req.ClientAddress,

			Subtotal:      totals.Subtotal,
			DiscountTotal: totals.DiscountTotal,
			TaxableBase:   totals.TaxableBase,
			VATRate:       totals.VATRate,
			VATAmount:     totals.VATAmount,
			Total:         totals.Total,

			IssueDate:   issueDate,
			DueDate:     dueDate,
			ServiceDate: req.ServiceDate,

			Status:        models.InvoiceStatusDraft,
			AppointmentID: req.AppointmentID,
			Notes:         req.Notes,
			Lines:         lines,
		}
		if err := tx.Create(inv).Error; err != nil {
			return sequenceError(err)
		}
		if err := s.audit.Record(tx, &models.InvoiceAuditLog{
			InvoiceID:   inv.ID,
			TenantID:    tenantID,
			Action:      models.AuditActionCreated,
			PerformedBy: actor.PerformedBy,
			Details:     "invoice " + inv.InvoiceNumber,
			IPAddress:   actor.IPAddress,
			UserAgent:   actor.UserAgent,
		}); err != nil {
			return err
		}
		created = inv
		return nil
	}
	err := s.withSequenceRetry(func() error {
		return s.db.Transaction(createTx)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateDraft replaces the client snapshot, lines and discount of a draft
// invoice and recomputes its totals. Invoices that have left draft are
// immutable and yield ErrImmutable.
func (s *InvoiceService) UpdateDraft(invoiceID, tenantID uint, req CreateInvoiceRequest, actor ActionContext) (*models.Invoice, error) {
	if len(req.Lines) == 0 {
		return nil, billing.NewValidationError("lines", "required")
	}
	var updated *models.Invoice
	err := s.db.Transaction(func(tx *gorm.DB) error {
		inv, err := s.load(tx, invoiceID, tenantID)
		if err != nil {
			return err
		}
		if !inv.IsDraft() {
			return fmt.Errorf("invoice %s: %w", inv.InvoiceNumber, billing.ErrImmutable)
		}

		lines := make([]models.InvoiceLine, 0, len(req.Lines))
		for i, lr := range req.Lines {
			amounts, err := billing.ComputeLine(lr.Quantity, lr.UnitPrice, lr.DiscountPercent)
			if err != nil {
				return err
			}
			lines = append(lines, models.InvoiceLine{
				InvoiceID:       inv.ID,
				Description:     lr.Description,
				Quantity:        lr.Quantity,
				UnitPrice:       lr.UnitPrice,
				DiscountPercent: lr.DiscountPercent,
				DiscountAmount:  amounts.DiscountAmount,
				LineTotal:       amounts.LineTotal,
				AppointmentID:   lr.AppointmentID,
				LineOrder:       i + 1,
			})
		}
		vatRate := inv.VATRate
		if req.VATRate != nil {
			vatRate = *req.VATRate
		}
		totals, err := billing.ComputeTotals(lines, req.DiscountTotal, vatRate)
		if err != nil {
			return err
		}

		if err := tx.Where("invoice_id = ?", inv.ID).Delete(&models.InvoiceLine{}).Error; err != nil {
			return err
		}
		if err := tx.Create(&lines).Error; err != nil {
			return err
		}
		cols := map[string]any{
			"subtotal":       totals.Subtotal,
			"discount_total": totals.DiscountTotal,
			"taxable_base":   totals.TaxableBase,
			"vat_rate":       totals.VATRate,
			"vat_amount":     totals.VATAmount,
			"total":          totals.Total,
			"notes":          req.Notes,
		}
		if strings.TrimSpace(req.ClientName) != "" {
			cols["client_name"] = req.ClientName
			cols["client_email"] = req.ClientEmail
			cols["client_phone"] = req.ClientPhone
			cols["client_tax_id"] = req.ClientTaxID
			cols["client_address"] = req.ClientAddress
		}
		if err := tx.Model(inv).Updates(cols).Error; err != nil {
			return err
		}
		if err := s.audit.Record(tx, transitionEntry(inv, models.AuditActionUpdated, inv.Status, inv.Status, actor, "draft updated")); err != nil {
			return err
		}
		inv.Lines = lines
		updated = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Emit issues a draft invoice: DRAFT -> ISSUED. The source appointment, if
// any, is marked invoiced inside the same transaction.
func (s *InvoiceService) Emit(invoiceID, tenantID uint, actor ActionContext) (*models.Invoice, error) {
	var issued *models.Invoice
	err := s.db.Transaction(func(tx *gorm.DB) error {
		inv, err := s.load(tx, invoiceID, tenantID)
		if err != nil {
			return err
		}
		if !inv.Status.CanTransitionTo(models.InvoiceStatusIssued) {
			return &billing.InvalidTransitionError{From: inv.Status, To: models.InvoiceStatusIssued}
		}
		if len(inv.Lines) == 0 {
			return billing.NewValidationError("lines", "required")
		}

		now := time.Now()
		if err := tx.Model(inv).Updates(map[string]any{
			"status":    models.InvoiceStatusIssued,
			"issued_at": now,
		}).Error; err != nil {
			return err
		}
		if inv.AppointmentID != nil && s.appointments != nil {
			if err := s.appointments.MarkInvoiced(*inv.AppointmentID); err != nil {
				return fmt.Errorf("mark appointment %d invoiced: %w", *inv.AppointmentID, err)
			}
		}
		if err := s.audit.Record(tx, transitionEntry(inv, models.AuditActionIssued, models.InvoiceStatusDraft, models.InvoiceStatusIssued, actor, "")); err != nil {
			return err
		}
		inv.Status = models.InvoiceStatusIssued
		inv.IssuedAt = &now
		issued = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return issued, nil
}

// MarkPaid records payment of an issued invoice: ISSUED -> PAID.
func (s *InvoiceService) MarkPaid(invoiceID, tenantID uint, actor ActionContext) (*models.Invoice, error) {
	var paid *models.Invoice
	err := s.db.Transaction(func(tx *gorm.DB) error {
		inv, err := s.load(tx, invoiceID, tenantID)
		if err != nil {
			return err
		}
		if !inv.Status.CanTransitionTo(models.InvoiceStatusPaid) {
			return &billing.InvalidTransitionError{From: inv.Status, To: models.InvoiceStatusPaid}
		}
		now := time.Now()
		if err := tx.Model(inv).Updates(map[string]any{
			"status":  models.InvoiceStatusPaid,
			"paid_at": now,
		}).Error; err != nil {
			return err
		}
		if err := s.audit.Record(tx, transitionEntry(inv, models.AuditActionPaid, models.InvoiceStatusIssued, models.InvoiceStatusPaid, actor, "")); err != nil {
			return err
		}
		inv.Status = models.InvoiceStatusPaid
		inv.PaidAt = &now
		paid = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paid, nil
}

// Cancel cancels an issued invoice: ISSUED -> CANCELLED. A rectification
// (credit note) negating every amount is created in the same transaction,
// directly in issued state, and linked to the original in both directions.
func (s *InvoiceService) Cancel(invoiceID, tenantID uint, reason string, actor ActionContext) (*models.Invoice, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, billing.NewValidationError("reason", "required")
	}
	var cancelled *models.Invoice
	cancelTx := func(tx *gorm.DB) error {
		inv, err := s.load(tx, invoiceID, tenantID)
		if err != nil {
			return err
		}
		if !inv.Status.CanTransitionTo(models.InvoiceStatusCancelled) {
			return &billing.InvalidTransitionError{From: inv.Status, To: models.InvoiceStatusCancelled}
		}

		now := time.Now()
		rect, err := s.rectify(tx, inv, now, actor)
		if err != nil {
			return err
		}
		if err := tx.Model(inv).Updates(map[string]any{
			"status":                  models.InvoiceStatusCancelled,
			"cancelled_at":            now,
			"cancellation_reason":     reason,
			"rectified_by_invoice_id": rect.ID,
		}).Error; err != nil {
			return err
		}
		if err := s.audit.Record(tx, transitionEntry(inv, models.AuditActionCancelled, models.InvoiceStatusIssued, models.InvoiceStatusCancelled, actor, reason)); err != nil {
			return err
		}
		inv.Status = models.InvoiceStatusCancelled
		inv.CancelledAt = &now
		inv.CancellationReason = reason
		inv.RectifiedByInvoiceID = &rect.ID
		cancelled = inv
		return nil
	}
	err := s.withSequenceRetry(func() error {
		return s.db.Transaction(cancelTx)
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// rectify synthesizes the credit note for an invoice being cancelled. All
// monetary fields and line quantities are exact negations of the original;
// nothing is recomputed, so the mirror is guaranteed even where rounding was
// involved. The rectification is born issued.
func (s *InvoiceService) rectify(tx *gorm.DB, orig *models.Invoice, now time.Time, actor ActionContext) (*models.Invoice, error) {
	var profile models.BillingProfile
	if err := tx.Where("tenant_id = ?", orig.TenantID).First(&profile).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("billing profile for tenant %d: %w", orig.TenantID, billing.ErrNotFound)
		}
		return nil, err
	}
	number, err := nextInvoiceNumber(tx, &profile, now)
	if err != nil {
		return nil, err
	}

	lines := make([]models.InvoiceLine, 0, len(orig.Lines))
	for _, l := range orig.Lines {
		lines = append(lines, models.InvoiceLine{
			Description:     rectificationPrefix + l.Description,
			Quantity:        l.Quantity.Neg(),
			UnitPrice:       l.UnitPrice,
			DiscountPercent: l.DiscountPercent,
			DiscountAmount:  l.DiscountAmount.Neg(),
			LineTotal:       l.LineTotal.Neg(),
			AppointmentID:   l.AppointmentID,
			LineOrder:       l.LineOrder,
		})
	}

	rect := &models.Invoice{
		TenantID:      orig.TenantID,
		InvoiceNumber: number,
		InvoiceSeries: profile.InvoiceSeries,

		EmitterTaxID:      orig.EmitterTaxID,
		EmitterLegalName:  orig.EmitterLegalName,
		EmitterAddress:    orig.EmitterAddress,
		EmitterCity:       orig.EmitterCity,
		EmitterPostalCode: orig.EmitterPostalCode,
		EmitterCountry:    orig.EmitterCountry,

		ClientName:    orig.ClientName,
		ClientEmail:   orig.ClientEmail,
		ClientPhone:   orig.ClientPhone,
		ClientTaxID:   orig.ClientTaxID,
		ClientAddress: orig.ClientAddress,

		Subtotal:      orig.Subtotal.Neg(),
		DiscountTotal: orig.DiscountTotal.Neg(),
		TaxableBase:   orig.TaxableBase.Neg(),
		VATRate:       orig.VATRate,
		VATAmount:     orig.VATAmount.Neg(),
		Total:         orig.Total.Neg(),

		IssueDate:   now,
		DueDate:     now,
		ServiceDate: orig.ServiceDate,

		Status:             models.InvoiceStatusIssued,
		IssuedAt:           &now,
		RectifiesInvoiceID: &orig.ID,
		Notes:              fmt.Sprintf("Factura rectificativa de %s", orig.InvoiceNumber),
		Lines:              lines,
	}
	if err := tx.Create(rect).Error; err != nil {
		return nil, sequenceError(err)
	}
	if err := s.audit.Record(tx, &models.InvoiceAuditLog{
		InvoiceID:   rect.ID,
		TenantID:    rect.TenantID,
		Action:      models.AuditActionCreated,
		PerformedBy: actor.PerformedBy,
		Details:     fmt.Sprintf("rectification of %s", orig.InvoiceNumber),
		IPAddress:   actor.IPAddress,
		UserAgent:   actor.UserAgent,
	}); err != nil {
		return nil, err
	}
	if err := s.audit.Record(tx, transitionEntry(rect, models.AuditActionIssued, models.InvoiceStatusDraft, models.InvoiceStatusIssued, actor, "")); err != nil {
		return nil, err
	}
	return rect, nil
}

// GetByID loads one invoice with its lines, enforcing tenant ownership.
func (s *InvoiceService) GetByID(invoiceID, tenantID uint) (*models.Invoice, error) {
	return s.load(s.db, invoiceID, tenantID)
}

// RecordAccess appends a read-type audit entry (viewed, downloaded,
// sent_email) for an invoice the tenant owns.
func (s *InvoiceService) RecordAccess(invoiceID, tenantID uint, action models.AuditAction, actor ActionContext) error {
	inv, err := s.load(s.db, invoiceID, tenantID)
	if err != nil {
		return err
	}
	return s.audit.Record(s.db, &models.InvoiceAuditLog{
		InvoiceID:   inv.ID,
		TenantID:    tenantID,
		Action:      action,
		PerformedBy: actor.PerformedBy,
		IPAddress:   actor.IPAddress,
		UserAgent:   actor.UserAgent,
	})
}

// AuditTrailForInvoice returns the append-only trail for one invoice the
// tenant owns, oldest entry first.
func (s *InvoiceService) AuditTrailForInvoice(invoiceID, tenantID uint) ([]models.InvoiceAuditLog, error) {
	if _, err := s.load(s.db, invoiceID, tenantID); err != nil {
		return nil, err
	}
	return s.audit.ListForInvoice(s.db, invoiceID, tenantID)
}

// ListOptions narrows and pages ListByTenant.
type ListOptions struct {
	Status models.InvoiceStatus
	Limit  int
	Offset int
}

// ListByTenant returns the tenant's invoices, newest first, with the total
// count for pagination.
func (s *InvoiceService) ListByTenant(tenantID uint, opts ListOptions) ([]models.Invoice, int64, error) {
	limit := opts.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := s.db.Where("tenant_id = ?", tenantID)
	if opts.Status != "" {
		q = q.Where("status = ?", opts.Status)
	}
	var total int64
	if err := q.Model(&models.Invoice{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var invs []models.Invoice
	err := q.Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_order asc") }).
		Order("id desc").
		Limit(limit).
		Offset(opts.Offset).
		Find(&invs).Error
	if err != nil {
		return nil, 0, err
	}
	return invs, total, nil
}

// RangeStats summarizes a tenant's invoicing over an issue-date range.
// Invoiced and VAT totals cover issued and paid documents, so rectification
// negatives net out against their originals; counts cover every status.
type RangeStats struct {
	TotalInvoiced  decimal.Decimal                `json:"total_invoiced"`
	TotalVAT       decimal.Decimal                `json:"total_vat"`
	CountsByStatus map[models.InvoiceStatus]int64 `json:"counts_by_status"`
}

// GetStatsForRange computes RangeStats for issue dates in [start, end].
func (s *InvoiceService) GetStatsForRange(tenantID uint, start, end time.Time) (*RangeStats, error) {
	var invs []models.Invoice
	err := s.db.Where("tenant_id = ? AND issue_date >= ? AND issue_date <= ?", tenantID, start, end).
		Find(&invs).Error
	if err != nil {
		return nil, err
	}
	stats := &RangeStats{
		TotalInvoiced:  decimal.Zero,
		TotalVAT:       decimal.Zero,
		CountsByStatus: map[models.InvoiceStatus]int64{},
	}
	for _, inv := range invs {
		stats.CountsByStatus[inv.Status]++
		if inv.Status == models.InvoiceStatusIssued || inv.Status == models.InvoiceStatusPaid {
			stats.TotalInvoiced = stats.TotalInvoiced.Add(inv.Total)
			stats.TotalVAT = stats.TotalVAT.Add(inv.VATAmount)
		}
	}
	return stats, nil
}

// load fetches an invoice with lines and enforces tenant ownership. A
// mismatch is logged as a security warning and surfaced as ErrAccessDenied
// without leaking whether the invoice exists.
func (s *InvoiceService) load(tx *gorm.DB, invoiceID, tenantID uint) (*models.Invoice, error) {
	var inv models.Invoice
	err := tx.Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_order asc") }).
		First(&inv, invoiceID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("invoice %d: %w", invoiceID, billing.ErrNotFound)
		}
		return nil, err
	}
	if inv.TenantID != tenantID {
		log.Printf("[SECURITY] tenant %d attempted to access invoice %d owned by tenant %d", tenantID, invoiceID, inv.TenantID)
		return nil, fmt.Errorf("invoice %d: %w", invoiceID, billing.ErrAccessDenied)
	}
	return &inv, nil
}
