package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice is a GST invoice issued at the counter.
// Only paid invoices count toward sales figures.
type Invoice struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceNumber string          `gorm:"type:varchar(30);uniqueIndex;not null" json:"invoice_number"`
	CustomerID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"customer_id"`
	Customer      *Customer       `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Items         []InvoiceItem   `gorm:"foreignKey:InvoiceID" json:"items"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"subtotal"` // line totals + manual amount
	GSTAmount     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"gst_amount"`
	Discount      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"discount"`
	ManualAmount  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"manual_amount"`
	ManualLabel   string          `gorm:"type:varchar(255)" json:"manual_label"`
	Total         decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total"`
	PaymentStatus string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"payment_status"`
	Notes         string          `gorm:"type:text" json:"notes"`
	CreatedBy     *uuid.UUID      `gorm:"type:uuid" json:"created_by"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	assignID(&i.ID)
	return nil
}

// InvoiceItem is a frozen copy of a sold line
type InvoiceItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"invoice_id"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	SKU         string          `gorm:"type:varchar(100);not null" json:"sku"`
	VariantSKU  string          `gorm:"type:varchar(100)" json:"variant_sku,omitempty"`
	ProductName string          `gorm:"type:varchar(255);not null" json:"product_name"`
	Quantity    int             `gorm:"type:int;not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_price"`
	GSTRate     int             `gorm:"type:int;not null" json:"gst_rate"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"line_total"`
	IsService   bool            `gorm:"not null;default:false" json:"is_service"`
}

func (i *InvoiceItem) BeforeCreate(tx *gorm.DB) error {
	assignID(&i.ID)
	return nil
}
