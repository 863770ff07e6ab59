package database

import (
	"fmt"
	"log"
	"time"

	"storefront-erp/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Models lists every table managed by AutoMigrate
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.AuditLog{},
		&model.Category{},
		&model.Product{},
		&model.ProductVariant{},
		&model.Customer{},
		&model.Invoice{},
		&model.InvoiceItem{},
		&model.InventoryTransaction{},
	}
}

// Config is the gorm configuration shared by the server and tests.
// Timestamps are written in UTC so range filters compare the same way on
// every driver.
func Config() *gorm.Config {
	return &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

// NewConnection opens the database for driver ("postgres" or "sqlite") and
// migrates the schema.
func NewConnection(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres", "":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}

	db, err := gorm.Open(dialector, Config())
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(Models()...); err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	return db, nil
}
