package database

import (
	"log"

	"github.com/palmhaven/booking-api/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewPostgresDB(dsn string) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Property{},
		&models.Booking{},
		&models.BlockedDate{},
		&models.CalendarFeed{},
	); err != nil {
		log.Fatalf("failed to auto-migrate: %v", err)
	}

	// Partial unique index: at most one ledger row per booking. Upserts on
	// webhook redelivery hit this and update in place.
	db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_blocked_dates_booking
		ON blocked_dates (booking_id)
		WHERE booking_id IS NOT NULL
	`)

	// Feed-imported blocks are keyed by (property, external event uid) so
	// re-syncing the same feed never duplicates rows.
	db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_blocked_dates_external
		ON blocked_dates (property_id, external_id)
		WHERE external_id <> ''
	`)

	// Feed events without a UID are identified by their dates alone.
	db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_blocked_dates_external_nouid
		ON blocked_dates (property_id, start_date, end_date)
		WHERE external_id = '' AND source = 'external_booking'
	`)

	return db
}
