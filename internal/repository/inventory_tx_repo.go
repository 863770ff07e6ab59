package repository

import (
	"context"
	"time"

	"storefront-erp/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InventoryTxFilter narrows a stock ledger listing
type InventoryTxFilter struct {
	ProductID *uuid.UUID
	Type      string
	Since     *time.Time
	Page      int
	Limit     int
}

type InventoryTxRepository interface {
	Create(ctx context.Context, tx *model.InventoryTransaction) error
	List(ctx context.Context, filter InventoryTxFilter) ([]model.InventoryTransaction, int64, error)
	ListSince(ctx context.Context, since time.Time) ([]model.InventoryTransaction, error)
	Recent(ctx context.Context, limit int) ([]model.InventoryTransaction, error)
}

type inventoryTxRepository struct {
	db *gorm.DB
}

func NewInventoryTxRepository(db *gorm.DB) InventoryTxRepository {
	return &inventoryTxRepository{db: db}
}

func (r *inventoryTxRepository) Create(ctx context.Context, tx *model.InventoryTransaction) error {
	return GetDB(ctx, r.db).Create(tx).Error
}

func (r *inventoryTxRepository) List(ctx context.Context, filter InventoryTxFilter) ([]model.InventoryTransaction, int64, error) {
	var txs []model.InventoryTransaction
	var total int64

	query := GetDB(ctx, r.db).Model(&model.InventoryTransaction{})
	if filter.ProductID != nil {
		query = query.Where("product_id = ?", *filter.ProductID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Since != nil {
		query = query.Where("created_at >= ?", filter.Since.UTC())
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Preload("Product", withDeleted).Order("created_at desc").
		Scopes(paginate(filter.Page, filter.Limit)).Find(&txs).Error; err != nil {
		return nil, 0, err
	}
	return txs, total, nil
}

// ListSince returns ledger rows from since onward, oldest first.
func (r *inventoryTxRepository) ListSince(ctx context.Context, since time.Time) ([]model.InventoryTransaction, error) {
	var txs []model.InventoryTransaction
	if err := GetDB(ctx, r.db).Where("created_at >= ?", since.UTC()).
		Order("created_at asc").Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

func (r *inventoryTxRepository) Recent(ctx context.Context, limit int) ([]model.InventoryTransaction, error) {
	var txs []model.InventoryTransaction
	if err := GetDB(ctx, r.db).Preload("Product", withDeleted).
		Order("created_at desc").Limit(limit).Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}

// withDeleted keeps ledger rows readable after their product is removed.
func withDeleted(db *gorm.DB) *gorm.DB {
	return db.Unscoped()
}
