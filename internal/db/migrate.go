package db

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	migrate "github.com/golang-migrate/migrate/v4"
	// blank imports register the postgres driver and file source for golang-migrate
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jherreraportilla/turno-facil/internal/config"
	"github.com/jherreraportilla/turno-facil/internal/models"
)

// Models enumerates every persisted entity, in dependency order. Shared by
// AutoMigrate here and by the in-memory test databases.
func Models() []interface{} {
	return []interface{}{
		&models.BillingProfile{},
		&models.Invoice{},
		&models.InvoiceLine{},
		&models.InvoiceAuditLog{},
	}
}

// ConnectAndMigrate opens the configured postgres database, retrying while
// it comes up, and brings the schema current. With MIGRATIONS=1 the SQL
// files under ./migrations run via golang-migrate; otherwise AutoMigrate is
// used as the development fallback.
func ConnectAndMigrate() (*gorm.DB, error) {
	dsn := GetNormalizedDSN()
	if dsn == "" {
		return nil, errors.New("DATABASE_DSN is empty; check environment configuration")
	}
	logLevel := logger.Silent
	if config.ParseBool("DB_DEBUG", false) {
		logLevel = logger.Info
	}
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logLevel)}

	var db *gorm.DB
	var err error
	for i := 0; i < 10; i++ {
		db, err = gorm.Open(postgres.Open(dsn), cfg)
		if err == nil {
			break
		}
		fmt.Println("Retrying DB connection...", err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}
	if pingErr := db.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}

	masked := dsn
	if strings.Contains(masked, "password=") {
		re := regexp.MustCompile(`(password=)([^\s]+)`)
		masked = re.ReplaceAllString(masked, `${1}***`)
	}
	fmt.Println("[DB] Using DSN:", masked)

	if config.ParseBool("MIGRATIONS", false) {
		if err := runSQLMigrations(dsn); err != nil {
			return nil, fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		for _, m := range Models() {
			if migErr := db.AutoMigrate(m); migErr != nil {
				return nil, fmt.Errorf("automigrate %T: %w", m, migErr)
			}
		}
	}

	for _, table := range []string{"billing_profiles", "invoices", "invoice_lines", "invoice_audit_logs"} {
		if !db.Migrator().HasTable(table) {
			return nil, errors.New("missing table after migration: " + table)
		}
	}

	if config.ParseBool("DB_SEED", false) {
		seed(db)
	}
	return db, nil
}

// seed creates a demo billing profile when none exists (development only).
func seed(db *gorm.DB) {
	var existing models.BillingProfile
	if err := db.Where("tenant_id = ?", 1).First(&existing).Error; err == gorm.ErrRecordNotFound {
		db.Create(&models.BillingProfile{
			TenantID:          1,
			TaxID:             "B12345678",
			LegalName:         "TurnoFacil Demo SL",
			Address:           "Calle Mayor 1",
			City:              "Madrid",
			PostalCode:        "28001",
			Country:           "ES",
			DefaultVATRate:    decimal.RequireFromString("21.00"),
			InvoiceSeries:     "TF",
			NextInvoiceNumber: 1,
		})
	}
}

// runSQLMigrations executes migrations in ./migrations via golang-migrate.
func runSQLMigrations(dsn string) error {
	m, err := migrate.New("file://migrations", dsn)
	if err != nil {
		return err
	}
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
