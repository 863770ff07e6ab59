package repository

import (
	"context"
	"strings"

	"storefront-erp/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductFilter narrows a product listing
type ProductFilter struct {
	Search     string
	CategoryID *uuid.UUID
	Sort       string // price_asc, price_desc, name; newest first otherwise
	Page       int
	Limit      int
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	Update(ctx context.Context, product *model.Product) error
	ReplaceVariants(ctx context.Context, productID uuid.UUID, variants []model.ProductVariant) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindBySKU(ctx context.Context, sku string) (*model.Product, error)
	FindVariantBySKU(ctx context.Context, vsku string) (*model.ProductVariant, error)
	FindVariantBySKUForUpdate(ctx context.Context, vsku string) (*model.ProductVariant, error)
	SKUTaken(ctx context.Context, sku string, excludeProductID *uuid.UUID) (bool, error)
	List(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error)
	ListBrief(ctx context.Context) ([]model.Product, error)
	UpdateStock(ctx context.Context, id uuid.UUID, stock int) error
	UpdateVariantStock(ctx context.Context, variantID uuid.UUID, stock int) error
	ReconcileStock(ctx context.Context, productID uuid.UUID) error
	SetQRCodeURL(ctx context.Context, id uuid.UUID, url string) error
	SetVariantQRCodeURL(ctx context.Context, variantID uuid.UUID, url string) error
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Create(product).Error
}

// Update saves product columns only; variants go through ReplaceVariants.
func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(product).Error
}

func (r *productRepository) ReplaceVariants(ctx context.Context, productID uuid.UUID, variants []model.ProductVariant) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("product_id = ?", productID).Delete(&model.ProductVariant{}).Error; err != nil {
		return err
	}
	if len(variants) == 0 {
		return nil
	}
	for i := range variants {
		variants[i].ProductID = productID
	}
	return db.Create(&variants).Error
}

func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Product{}).Error
}

func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).Preload("Category").Preload("Variants", orderVariants).
		First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).Clauses(lockForUpdate).
		Preload("Variants", orderVariants).
		Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindBySKU matches the product SKU or its product code.
func (r *productRepository) FindBySKU(ctx context.Context, sku string) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).Preload("Variants", orderVariants).
		Where("sku = ? OR product_code = ?", sku, sku).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindVariantBySKU(ctx context.Context, vsku string) (*model.ProductVariant, error) {
	var variant model.ProductVariant
	if err := GetDB(ctx, r.db).Where("v_sku = ?", vsku).First(&variant).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

func (r *productRepository) FindVariantBySKUForUpdate(ctx context.Context, vsku string) (*model.ProductVariant, error) {
	var variant model.ProductVariant
	if err := GetDB(ctx, r.db).Clauses(lockForUpdate).
		Where("v_sku = ?", vsku).First(&variant).Error; err != nil {
		return nil, err
	}
	return &variant, nil
}

// SKUTaken checks a code against product SKUs, product codes and variant
// SKUs. Variants of excludeProductID are ignored so an update can keep them.
func (r *productRepository) SKUTaken(ctx context.Context, sku string, excludeProductID *uuid.UUID) (bool, error) {
	db := GetDB(ctx, r.db)

	var count int64
	products := db.Unscoped().Model(&model.Product{}).Where("sku = ? OR product_code = ?", sku, sku)
	if excludeProductID != nil {
		products = products.Where("id <> ?", *excludeProductID)
	}
	if err := products.Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}

	variants := db.Model(&model.ProductVariant{}).Where("v_sku = ?", sku)
	if excludeProductID != nil {
		variants = variants.Where("product_id <> ?", *excludeProductID)
	}
	if err := variants.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	query := GetDB(ctx, r.db).Model(&model.Product{})
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ? OR LOWER(product_code) LIKE ?", like, like, like)
	}
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	order := "created_at desc"
	switch filter.Sort {
	case "price_asc":
		order = "selling_price asc"
	case "price_desc":
		order = "selling_price desc"
	case "name":
		order = "name asc"
	}

	if err := query.Preload("Category").Preload("Variants", orderVariants).
		Order(order).Scopes(paginate(filter.Page, filter.Limit)).Find(&products).Error; err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

func (r *productRepository) ListBrief(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	if err := GetDB(ctx, r.db).Preload("Variants", orderVariants).
		Select("id", "sku", "product_code", "name", "stock", "min_stock", "is_service", "selling_price").
		Order("name asc").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepository) UpdateStock(ctx context.Context, id uuid.UUID, stock int) error {
	return GetDB(ctx, r.db).Model(&model.Product{}).Where("id = ?", id).Update("stock", stock).Error
}

func (r *productRepository) UpdateVariantStock(ctx context.Context, variantID uuid.UUID, stock int) error {
	return GetDB(ctx, r.db).Model(&model.ProductVariant{}).Where("id = ?", variantID).Update("stock", stock).Error
}

// ReconcileStock sets a product's stock to the sum of its variants' stock.
// Products without variants are left alone.
func (r *productRepository) ReconcileStock(ctx context.Context, productID uuid.UUID) error {
	return GetDB(ctx, r.db).Exec(`
		UPDATE products
		SET stock = (SELECT COALESCE(SUM(stock), 0) FROM product_variants WHERE product_id = ?)
		WHERE id = ? AND EXISTS (SELECT 1 FROM product_variants WHERE product_id = ?)
	`, productID, productID, productID).Error
}

func (r *productRepository) SetQRCodeURL(ctx context.Context, id uuid.UUID, url string) error {
	return GetDB(ctx, r.db).Model(&model.Product{}).Where("id = ?", id).Update("qr_code_url", url).Error
}

func (r *productRepository) SetVariantQRCodeURL(ctx context.Context, variantID uuid.UUID, url string) error {
	return GetDB(ctx, r.db).Model(&model.ProductVariant{}).Where("id = ?", variantID).Update("qr_code_url", url).Error
}

func orderVariants(db *gorm.DB) *gorm.DB {
	return db.Order("product_variants.created_at asc, product_variants.v_sku asc")
}
