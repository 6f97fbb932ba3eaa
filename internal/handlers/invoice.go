package handlers

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jherreraportilla/turno-facil/internal/auth"
	"github.com/jherreraportilla/turno-facil/internal/billing"
	"github.com/jherreraportilla/turno-facil/internal/httpx"
	"github.com/jherreraportilla/turno-facil/internal/models"
	"github.com/jherreraportilla/turno-facil/internal/services"
	"github.com/jherreraportilla/turno-facil/internal/validation"
)

// InvoiceHandler exposes the invoicing lifecycle over JSON. Every endpoint
// resolves the tenant from the session and passes it explicitly into the
// service.
type InvoiceHandler struct {
	Svc *services.InvoiceService
}

func NewInvoiceHandler(svc *services.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{Svc: svc}
}

func actorFrom(r *http.Request, s auth.Session) services.ActionContext {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return services.ActionContext{PerformedBy: s.UserID, IPAddress: ip, UserAgent: r.UserAgent()}
}

func sessionOr401(w http.ResponseWriter, r *http.Request) (auth.Session, bool) {
	s, ok := auth.SessionFromContext(r.Context())
	if !ok {
		httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
	}
	return s, ok
}

func idParam(w http.ResponseWriter, r *http.Request) (uint, bool) {
	idStr := r.URL.Query().Get("id")
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return 0, false
	}
	return uint(id), true
}

// writeServiceError maps the billing error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var vErr *billing.ValidationError
	var tErr *billing.InvalidTransitionError
	switch {
	case errors.Is(err, billing.ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
	case errors.Is(err, billing.ErrAccessDenied):
		httpx.JSONError(w, http.StatusForbidden, "access_denied", nil)
	case errors.As(err, &vErr):
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", vErr.Violations)
	case errors.As(err, &tErr):
		httpx.JSONError(w, http.StatusConflict, "invalid_transition", map[string]string{"from": string(tErr.From), "to": string(tErr.To)})
	case errors.Is(err, billing.ErrImmutable):
		httpx.JSONError(w, http.StatusConflict, "invoice_immutable", nil)
	case errors.Is(err, billing.ErrConcurrencyConflict):
		// Retryable: the whole operation can be repeated from scratch.
		w.Header().Set("Retry-After", "1")
		httpx.JSONError(w, http.StatusServiceUnavailable, "concurrency_conflict", nil)
	default:
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

// Create: POST /invoices — manual invoice with explicit lines.
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionOr401(w, r)
	if !ok {
		return
	}
	var req services.CreateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := validation.Violations{}
	validation.Required("client_name", req.ClientName, v)
	if len(req.Lines) == 0 {
		v["lines"] = "required"
	}
	for i, l := range req.Lines {
		prefix := "lines[" + strconv.Itoa(i) + "]"
		validation.Required(prefix+".description", l.Description, v)
		validation.PositiveDecimal(prefix+".quantity", l.Quantity, v)
		validation.NonNegativeDecimal(prefix+".unit_price", l.UnitPrice, v)
		validation.RangeDecimal(prefix+".discount_percent", l.DiscountPercent, decimal.Zero, decimal.NewFromInt(100), v)
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}
	inv, err := h.Svc.CreateManual(req, s.TenantID, actorFrom(r, s))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

// CreateFromAppointment: POST /invoices/from-appointment — single-line
// invoice for a completed appointment snapshot.
func (h *InvoiceHandler) CreateFromAppointment(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionOr401(w, r)
	if !ok {
		return
	}
	var snap services.AppointmentSnapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	inv, err := h.Svc.CreateFromAppointment(snap, s.TenantID, actorFrom(r, s))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

// Update: POST /invoices/update?id=... — replace lines/client data of a draft.
func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionOr401(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req services.CreateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	inv, err := h.Svc.UpdateDraft(id, s.TenantID, req, actorFrom(r, s))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// Emit: POST /invoices/emit?id=...
func (h *InvoiceHandler) Emit(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionOr401(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	inv, err := h.Svc.Emit(id, s.TenantID, actorFrom(r, s))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// Pay: POST /invoices/pay?id=...
func (h *InvoiceHandler) Pay(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionOr401(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	inv, err := h.Svc.MarkPaid(id, s.TenantID, actorFrom(r, s))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// Cancel: POST /invoices/cancel?id=... with body {"reason": "..."}.
// Responds with the cancelled original; the rectification id is in
// rectified_by_invoice_id.
func (h *InvoiceHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionOr401(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	inv, err := h.Svc.Cancel(id, s.TenantID, body.Reason, actorFrom(r, s))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// Get: GET /invoices/get?id=... — records a "viewed" trail entry.
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionOr401(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	inv, err := h.Svc.GetByID(id, s.TenantID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	_ = h.Svc.RecordAccess(id, s.TenantID, models.AuditActionViewed, actorFrom(r, s))
	httpx.JSON(w, http.StatusOK, inv)
}

// List: GET /invoices?status=&limit=&page=
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionOr401(w, r)
	if !ok {
		return
	}
	opts := services.ListOptions{Limit: 50}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			opts.Limit = n
		}
	}
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 1 {
			opts.Offset = (n - 1) * opts.Limit
		}
	}
	if v := r.URL.Query().Get("status"); v != "" {
		opts.Status = models.InvoiceStatus(v)
	}
	invs, total, err := h.Svc.ListByTenant(s.TenantID, opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": invs, "total": total, "limit": opts.Limit, "offset": opts.Offset})
}

// Stats: GET /invoices/stats?start=2025-01-01&end=2025-12-31
func (h *InvoiceHandler) Stats(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionOr401(w, r)
	if !ok {
		return
	}
	start, err1 := time.Parse("2006-01-02", r.URL.Query().Get("start"))
	end, err2 := time.Parse("2006-01-02", r.URL.Query().Get("end"))
	if err1 != nil || err2 != nil || end.Before(start) {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_range", nil)
		return
	}
	// include the whole end day
	end = end.Add(24*time.Hour - time.Nanosecond)
	stats, err := h.Svc.GetStatsForRange(s.TenantID, start, end)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

// Audit: GET /invoices/audit?id=... — the append-only trail, oldest first.
func (h *InvoiceHandler) Audit(w http.ResponseWriter, r *http.Request) {
	s, ok := sessionOr401(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	entries, err := h.Svc.AuditTrailForInvoice(id, s.TenantID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": entries, "total": len(entries)})
}
