package repository

import (
	"context"
	"time"

	"storefront-erp/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InvoiceFilter narrows an invoice listing. To is exclusive.
type InvoiceFilter struct {
	Status     string
	UnpaidOnly bool
	From       *time.Time
	To         *time.Time
	Page       int
	Limit      int
}

type InvoiceRepository interface {
	Create(ctx context.Context, invoice *model.Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	List(ctx context.Context, filter InvoiceFilter) ([]model.Invoice, int64, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]model.Invoice, error)
	Recent(ctx context.Context, limit int) ([]model.Invoice, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	CountByPrefix(ctx context.Context, prefix string) (int64, error)
}

type invoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

// Create inserts the invoice together with its items.
func (r *invoiceRepository) Create(ctx context.Context, invoice *model.Invoice) error {
	return GetDB(ctx, r.db).Create(invoice).Error
}

func (r *invoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := GetDB(ctx, r.db).Preload("Customer").Preload("Items").First(&invoice, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := GetDB(ctx, r.db).Clauses(lockForUpdate).First(&invoice, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) List(ctx context.Context, filter InvoiceFilter) ([]model.Invoice, int64, error) {
	var invoices []model.Invoice
	var total int64

	query := GetDB(ctx, r.db).Model(&model.Invoice{})
	if filter.Status != "" {
		query = query.Where("payment_status = ?", filter.Status)
	}
	if filter.UnpaidOnly {
		query = query.Where("payment_status <> ?", "paid")
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", filter.To.UTC())
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Preload("Customer").Preload("Items").
		Order("created_at desc").Scopes(paginate(filter.Page, filter.Limit)).Find(&invoices).Error; err != nil {
		return nil, 0, err
	}
	return invoices, total, nil
}

// ListBetween returns invoices created in [from, to) without items, oldest first.
func (r *invoiceRepository) ListBetween(ctx context.Context, from, to time.Time) ([]model.Invoice, error) {
	var invoices []model.Invoice
	if err := GetDB(ctx, r.db).
		Where("created_at >= ? AND created_at < ?", from.UTC(), to.UTC()).
		Order("created_at asc").Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *invoiceRepository) Recent(ctx context.Context, limit int) ([]model.Invoice, error) {
	var invoices []model.Invoice
	if err := GetDB(ctx, r.db).Order("created_at desc").Limit(limit).Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *invoiceRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return GetDB(ctx, r.db).Model(&model.Invoice{}).Where("id = ?", id).Update("payment_status", status).Error
}

func (r *invoiceRepository) CountByPrefix(ctx context.Context, prefix string) (int64, error) {
	var count int64
	if err := GetDB(ctx, r.db).Model(&model.Invoice{}).Where("invoice_number LIKE ?", prefix+"%").Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
