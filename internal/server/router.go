// Package server wires routes and cross-cutting middleware into the root
// http.Handler.
package server

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jherreraportilla/turno-facil/internal/auth"
	"github.com/jherreraportilla/turno-facil/internal/handlers"
	"github.com/jherreraportilla/turno-facil/internal/httpx"
	"github.com/jherreraportilla/turno-facil/internal/services"
)

// New constructs the root handler: health endpoints plus the authenticated
// invoicing API.
func New(db *gorm.DB, svc *services.InvoiceService) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	inv := handlers.NewInvoiceHandler(svc)
	api := http.NewServeMux()
	api.HandleFunc("GET /invoices", inv.List)
	api.HandleFunc("POST /invoices", inv.Create)
	api.HandleFunc("POST /invoices/from-appointment", inv.CreateFromAppointment)
	api.HandleFunc("POST /invoices/update", inv.Update)
	api.HandleFunc("POST /invoices/emit", inv.Emit)
	api.HandleFunc("POST /invoices/pay", inv.Pay)
	api.HandleFunc("POST /invoices/cancel", inv.Cancel)
	api.HandleFunc("GET /invoices/get", inv.Get)
	api.HandleFunc("GET /invoices/stats", inv.Stats)
	api.HandleFunc("GET /invoices/audit", inv.Audit)
	mux.Handle("/invoices", auth.RequireSession(api))
	mux.Handle("/invoices/", auth.RequireSession(api))

	return withRequestID(withLogging(auth.Middleware(mux)))
}

// withRequestID tags each request with a correlation id, echoed in the
// response and available to the access log.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", rid)
		r.Header.Set("X-Request-ID", rid)
		next.ServeHTTP(w, r)
	})
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s rid=%s", r.Method, r.URL.Path, time.Since(start), r.Header.Get("X-Request-ID"))
	})
}
