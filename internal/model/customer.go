package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer is a buyer, identified at the counter by phone number
type Customer struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Phone     string    `gorm:"type:varchar(20);uniqueIndex;not null" json:"phone"`
	Email     string    `gorm:"type:varchar(255)" json:"email"`
	Address   string    `gorm:"type:text" json:"address"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	assignID(&c.ID)
	return nil
}
