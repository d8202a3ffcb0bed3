// Package testutil provides an in-memory database for repository and service
// tests. It runs the same migrations as the real connection but on a pure-Go
// sqlite driver, so the suite needs no running PostgreSQL.
package testutil

import (
	"testing"

	"backend/internal/model"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a fresh in-memory database with all models migrated. The
// connection pool is pinned to a single connection because every :memory:
// connection would otherwise see its own empty database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to access sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	err = db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Pharmacy{},
		&model.Medicine{},
		&model.InventoryBatch{},
		&model.StockMovement{},
		&model.Sale{},
		&model.SaleItem{},
		&model.SaleReturn{},
		&model.SaleReturnItem{},
		&model.DailyCounter{},
		&model.AuditLog{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}
