package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionCreateCategory      = "CREATE_CATEGORY"
	ActionDeleteCategory      = "DELETE_CATEGORY"
	ActionCreateProduct       = "CREATE_PRODUCT"
	ActionUpdateProduct       = "UPDATE_PRODUCT"
	ActionDeleteProduct       = "DELETE_PRODUCT"
	ActionCreateCustomer      = "CREATE_CUSTOMER"
	ActionCreateInvoice       = "CREATE_INVOICE"
	ActionUpdateInvoiceStatus = "UPDATE_INVOICE_STATUS"
	ActionMaterialInward      = "MATERIAL_INWARD"
	ActionMaterialOutward     = "MATERIAL_OUTWARD"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // nil for system actions
	User       *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:text" json:"details"` // JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	assignID(&a.ID)
	return nil
}
