package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TransactionType Enum Simulation
const (
	TxTypeIn  = "IN"
	TxTypeOut = "OUT"
)

// Transaction sources
const (
	TxSourceManual  = "MANUAL"
	TxSourceInvoice = "INVOICE"
)

// InventoryTransaction is one line of the stock ledger. StockBefore and
// StockAfter refer to the variant when VariantID is set, else to the product.
type InventoryTransaction struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"product_id"`
	Product     *Product   `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	VariantID   *uuid.UUID `gorm:"type:uuid;index" json:"variant_id"`
	VariantSKU  string     `gorm:"type:varchar(100)" json:"variant_sku,omitempty"`
	Type        string     `gorm:"type:varchar(10);not null;index" json:"type"` // IN, OUT
	Quantity    int        `gorm:"type:int;not null" json:"quantity"`
	Source      string     `gorm:"type:varchar(20);not null;default:'MANUAL'" json:"source"`
	Reason      string     `gorm:"type:text" json:"reason"`
	ReferenceID *uuid.UUID `gorm:"type:uuid;index" json:"reference_id"` // invoice id for INVOICE rows
	StockBefore int        `gorm:"type:int;not null" json:"stock_before"`
	StockAfter  int        `gorm:"type:int;not null" json:"stock_after"`
	CreatedBy   *uuid.UUID `gorm:"type:uuid" json:"created_by"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
}

func (t *InventoryTransaction) BeforeCreate(tx *gorm.DB) error {
	assignID(&t.ID)
	return nil
}
