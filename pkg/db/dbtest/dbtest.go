// Package dbtest opens isolated in-memory SQLite databases carrying the
// production schema for repository tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tutorhub/tutorhub-backend/pkg/db/models"
)

// partialIndexes mirror the partial unique indexes declared in the goose
// migrations; GORM tags cannot express them portably.
var partialIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_ledger_paid_booking ON payment_ledger_entries (booking_id) WHERE status = 'paid'`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_bookings_active_slot ON bookings (slot_id, booking_date_time) WHERE status IN ('PENDING', 'CONFIRMED') AND deleted_at IS NULL`,
}

// Open returns a migrated database unique to the calling test.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", name)
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(
		&models.Offering{},
		&models.Slot{},
		&models.Booking{},
		&models.PaymentLedgerEntry{},
		&models.Notification{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	for _, stmt := range partialIndexes {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create index: %v", err)
		}
	}
	return conn
}
