package database

import (
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewTestDB opens a migrated in-memory sqlite database private to the test.
func NewTestDB(tb testing.TB) *gorm.DB {
	tb.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(tb.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), Config())
	if err != nil {
		tb.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(Models()...); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("sql db: %v", err)
	}
	// keep one connection so the shared in-memory database outlives pool churn
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })
	return db
}
