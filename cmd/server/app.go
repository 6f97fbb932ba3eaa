package main

import (
	"log"
	"net/http"

	"gorm.io/gorm"

	"github.com/jherreraportilla/turno-facil/internal/config"
	"github.com/jherreraportilla/turno-facil/internal/server"
	"github.com/jherreraportilla/turno-facil/internal/services"
)

// NewApp assembles the invoicing service and its HTTP surface. The
// appointment callback is wired here; until the booking service exposes its
// client this logs the event, so emitted invoices still commit.
func NewApp(dbConn *gorm.DB, cfg config.Config) http.Handler {
	svc := services.NewInvoiceService(dbConn, loggingMarker{})
	svc.SetSequenceMaxRetries(cfg.SequenceMaxRetries)
	return server.New(dbConn, svc)
}

// loggingMarker satisfies services.AppointmentMarker until the booking
// service client is injected.
// TODO: replace with the appointments HTTP client once its API is frozen.
type loggingMarker struct{}

func (loggingMarker) MarkInvoiced(appointmentID uint) error {
	log.Printf("appointment %d marked invoiced", appointmentID)
	return nil
}
