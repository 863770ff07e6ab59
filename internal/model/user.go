package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Roles
const (
	RoleAdmin        = "admin"
	RoleStoreHandler = "store_handler"
)

// ValidRole reports whether role is one the system issues tokens for
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleStoreHandler
}

// User is a store operator who can sign in
type User struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string         `gorm:"type:varchar(255);not null" json:"name"`
	Email     string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password  string         `gorm:"type:varchar(255);not null" json:"-"`
	Role      string         `gorm:"type:varchar(50);not null;default:'store_handler'" json:"role"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	assignID(&u.ID)
	return nil
}

// IsAdmin reports whether the user holds the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
