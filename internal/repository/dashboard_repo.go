package repository

import (
	"context"
	"time"

	"storefront-erp/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DashboardRepository runs the aggregate queries behind the dashboard.
// Time bounds are [from, to).
type DashboardRepository interface {
	PaidSales(ctx context.Context, from, to time.Time) (decimal.Decimal, int64, error)
	DistinctPaidCustomers(ctx context.Context, from, to time.Time) (int64, error)
	CountLowStock(ctx context.Context) (int64, error)
	LowStock(ctx context.Context, limit int) ([]model.LowStockItem, error)
	CountInvoicesSince(ctx context.Context, since time.Time) (int64, error)
	OutboundSince(ctx context.Context, since time.Time) (quantity int64, rows int64, err error)
	CountCustomersSince(ctx context.Context, since time.Time) (int64, error)
	TopProducts(ctx context.Context, limit int) ([]model.ProductRanking, error)
}

type dashboardRepository struct {
	db *gorm.DB
}

func NewDashboardRepository(db *gorm.DB) DashboardRepository {
	return &dashboardRepository{db: db}
}

func (r *dashboardRepository) paidBetween(ctx context.Context, from, to time.Time) *gorm.DB {
	return GetDB(ctx, r.db).Model(&model.Invoice{}).
		Where("payment_status = ? AND created_at >= ? AND created_at < ?", "paid", from.UTC(), to.UTC())
}

func (r *dashboardRepository) PaidSales(ctx context.Context, from, to time.Time) (decimal.Decimal, int64, error) {
	var result struct {
		Total decimal.NullDecimal
		Count int64
	}
	if err := r.paidBetween(ctx, from, to).
		Select("SUM(total) AS total, COUNT(*) AS count").
		Scan(&result).Error; err != nil {
		return decimal.Zero, 0, err
	}
	if !result.Total.Valid {
		return decimal.Zero, result.Count, nil
	}
	return result.Total.Decimal, result.Count, nil
}

func (r *dashboardRepository) DistinctPaidCustomers(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64
	err := r.paidBetween(ctx, from, to).Distinct("customer_id").Count(&count).Error
	return count, err
}

func (r *dashboardRepository) lowStock(ctx context.Context) *gorm.DB {
	return GetDB(ctx, r.db).Model(&model.Product{}).
		Where("is_service = ? AND stock <= min_stock", false)
}

func (r *dashboardRepository) CountLowStock(ctx context.Context) (int64, error) {
	var count int64
	err := r.lowStock(ctx).Count(&count).Error
	return count, err
}

func (r *dashboardRepository) LowStock(ctx context.Context, limit int) ([]model.LowStockItem, error) {
	var items []model.LowStockItem
	err := r.lowStock(ctx).
		Select("id AS product_id, name AS product_name, stock, min_stock").
		Order("stock asc").Limit(limit).Scan(&items).Error
	return items, err
}

func (r *dashboardRepository) CountInvoicesSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Invoice{}).Where("created_at >= ?", since.UTC()).Count(&count).Error
	return count, err
}

func (r *dashboardRepository) OutboundSince(ctx context.Context, since time.Time) (int64, int64, error) {
	var result struct {
		Quantity int64
		RowCount int64
	}
	err := GetDB(ctx, r.db).Model(&model.InventoryTransaction{}).
		Select("COALESCE(SUM(quantity), 0) AS quantity, COUNT(*) AS row_count").
		Where("type = ? AND created_at >= ?", model.TxTypeOut, since.UTC()).
		Scan(&result).Error
	return result.Quantity, result.RowCount, err
}

func (r *dashboardRepository) CountCustomersSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Customer{}).Where("created_at >= ?", since.UTC()).Count(&count).Error
	return count, err
}

// TopProducts ranks products by quantity moved out of stock.
func (r *dashboardRepository) TopProducts(ctx context.Context, limit int) ([]model.ProductRanking, error) {
	var rankings []model.ProductRanking
	err := GetDB(ctx, r.db).Table("inventory_transactions").
		Select("products.id AS product_id, products.name AS product_name, products.sku AS product_sku, SUM(inventory_transactions.quantity) AS total_quantity").
		Joins("JOIN products ON products.id = inventory_transactions.product_id").
		Where("inventory_transactions.type = ?", model.TxTypeOut).
		Group("products.id, products.name, products.sku").
		Order("total_quantity DESC").
		Limit(limit).
		Scan(&rankings).Error
	return rankings, err
}
