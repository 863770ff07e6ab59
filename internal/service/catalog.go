package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront-erp/internal/billing"
	"storefront-erp/internal/model"
	"storefront-erp/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// findBySKU resolves a scanned code to a product, and to one of its variants
// when the code is a variant SKU. Product SKUs, product codes and product ids
// are all accepted. A miss returns billing.ErrSKUNotFound.
func findBySKU(ctx context.Context, repo repository.ProductRepository, sku string) (*model.Product, *model.ProductVariant, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, nil, billing.ErrSKUNotFound
	}

	variant, err := repo.FindVariantBySKU(ctx, sku)
	switch {
	case err == nil:
		product, err := repo.FindByID(ctx, variant.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, billing.ErrSKUNotFound
			}
			return nil, nil, fmt.Errorf("database error: %w", err)
		}
		for i := range product.Variants {
			if product.Variants[i].ID == variant.ID {
				return product, &product.Variants[i], nil
			}
		}
		return product, variant, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil, fmt.Errorf("database error: %w", err)
	}

	product, err := repo.FindBySKU(ctx, sku)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if id, parseErr := uuid.Parse(sku); parseErr == nil {
			product, err = repo.FindByID(ctx, id)
		}
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, billing.ErrSKUNotFound
		}
		return nil, nil, fmt.Errorf("database error: %w", err)
	}
	return product, nil, nil
}

type productCatalog struct {
	repo repository.ProductRepository
	// several counters scanning the same label share one query
	inflight singleflight.Group
}

// NewCatalog exposes the product tables to the billing resolver.
func NewCatalog(repo repository.ProductRepository) billing.Catalog {
	return &productCatalog{repo: repo}
}

// LookupSKU shares one query between concurrent scans of the same code. The
// shared query is detached from any single caller's cancellation; each caller
// still gives up when its own ctx is done.
func (c *productCatalog) LookupSKU(ctx context.Context, sku string) (billing.CatalogMatch, error) {
	shared := context.WithoutCancel(ctx)
	ch := c.inflight.DoChan(sku, func() (interface{}, error) {
		return c.lookup(shared, sku)
	})
	select {
	case <-ctx.Done():
		return billing.CatalogMatch{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return billing.CatalogMatch{}, res.Err
		}
		return res.Val.(billing.CatalogMatch), nil
	}
}

func (c *productCatalog) lookup(ctx context.Context, sku string) (billing.CatalogMatch, error) {
	product, variant, err := findBySKU(ctx, c.repo, sku)
	if err != nil {
		return billing.CatalogMatch{}, err
	}

	match := billing.CatalogMatch{Product: toCatalogProduct(product)}
	if variant != nil {
		v := toCatalogVariant(variant)
		match.Variant = &v
	}
	return match, nil
}

func toCatalogProduct(p *model.Product) billing.CatalogProduct {
	cp := billing.CatalogProduct{
		ID:           p.ID.String(),
		SKU:          p.SKU,
		Name:         p.Name,
		SellingPrice: p.SellingPrice,
		Images:       append([]string(nil), p.Images...),
		IsService:    p.IsService,
	}
	for i := range p.Variants {
		cp.Variants = append(cp.Variants, toCatalogVariant(&p.Variants[i]))
	}
	return cp
}

func toCatalogVariant(v *model.ProductVariant) billing.CatalogVariant {
	return billing.CatalogVariant{
		VariantSKU:   v.VSKU,
		VariantName:  v.VariantName,
		Color:        v.Color,
		Size:         v.Size,
		ImageURL:     v.ImageURL,
		SellingPrice: v.SellingPrice,
		Stock:        v.Stock,
	}
}
