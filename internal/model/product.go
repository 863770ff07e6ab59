package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MaxProductImages caps the gallery; the first image is the main one.
const MaxProductImages = 5

// DefaultMinStock is the low-stock threshold for new products
const DefaultMinStock = 5

// Product represents a catalog item or a service
type Product struct {
	ID              uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	ProductCode     string                      `gorm:"type:varchar(50);uniqueIndex;not null" json:"product_code"`
	SKU             string                      `gorm:"type:varchar(100);uniqueIndex;not null" json:"sku"`
	Name            string                      `gorm:"type:varchar(255);not null;index" json:"name"`
	Description     string                      `gorm:"type:text" json:"description"`
	CategoryID      *uuid.UUID                  `gorm:"type:uuid;index" json:"category_id"`
	Category        *Category                   `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	CostPrice       decimal.Decimal             `gorm:"type:decimal(18,4);not null;default:0" json:"cost_price"`
	MinSellingPrice decimal.Decimal             `gorm:"type:decimal(18,4);not null;default:0" json:"min_selling_price"`
	SellingPrice    decimal.Decimal             `gorm:"type:decimal(18,4);not null" json:"selling_price"`
	Stock           int                         `gorm:"type:int;not null;default:0" json:"stock"`
	MinStock        int                         `gorm:"type:int;not null" json:"min_stock"`
	IsService       bool                        `gorm:"not null;default:false" json:"is_service"`
	Images          datatypes.JSONSlice[string] `json:"images"`
	QRCodeURL       string                      `gorm:"type:varchar(255)" json:"qr_code_url"`
	Variants        []ProductVariant            `gorm:"foreignKey:ProductID" json:"variants"`
	CreatedBy       *uuid.UUID                  `gorm:"type:uuid" json:"created_by"`
	CreatedAt       time.Time                   `json:"created_at"`
	UpdatedAt       time.Time                   `json:"updated_at"`
	DeletedAt       gorm.DeletedAt              `gorm:"index" json:"-"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	return nil
}

// HasVariants reports whether stock is tracked per variant
func (p *Product) HasVariants() bool {
	return len(p.Variants) > 0
}

// MainImage returns the first gallery image, if any
func (p *Product) MainImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// ProductVariant is a sellable flavour of a product (color, size...).
// VSKU shares no namespace with product SKUs.
type ProductVariant struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	VSKU         string          `gorm:"column:v_sku;type:varchar(100);uniqueIndex;not null" json:"v_sku"`
	VariantName  string          `gorm:"type:varchar(255)" json:"variant_name"`
	Color        string          `gorm:"type:varchar(100)" json:"color"`
	Size         string          `gorm:"type:varchar(100)" json:"size"`
	SellingPrice decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"selling_price"` // zero inherits the product price
	Stock        int             `gorm:"type:int;not null;default:0" json:"stock"`
	ImageURL     string          `gorm:"type:varchar(500)" json:"image_url"`
	QRCodeURL    string          `gorm:"type:varchar(255)" json:"qr_code_url"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (v *ProductVariant) BeforeCreate(tx *gorm.DB) error {
	assignID(&v.ID)
	return nil
}

// EffectivePrice is the variant price, falling back to the product's
func (v *ProductVariant) EffectivePrice(product *Product) decimal.Decimal {
	if v.SellingPrice.IsPositive() {
		return v.SellingPrice
	}
	return product.SellingPrice
}
