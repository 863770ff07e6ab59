package repository

import (
	"context"
	"strings"

	"storefront-erp/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRepository stores the operators who sign in at the counter or back office
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// FindByEmail matches case-insensitively.
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	CountByRole(ctx context.Context, role string) (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	return GetDB(ctx, r.db).Create(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) CountByRole(ctx context.Context, role string) (int64, error) {
	var n int64
	err := GetDB(ctx, r.db).Model(&model.User{}).Where("role = ?", role).Count(&n).Error
	return n, err
}
