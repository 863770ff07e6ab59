package service

import (
	"context"
	"fmt"

	"storefront-erp/internal/model"
	"storefront-erp/internal/repository"
	"storefront-erp/pkg/apperror"

	"github.com/google/uuid"
)

// stockTarget is a locked product, and optionally one of its variants, that a
// stock movement applies to.
type stockTarget struct {
	product *model.Product
	variant *model.ProductVariant
}

func (t stockTarget) available() int {
	if t.variant != nil {
		return t.variant.Stock
	}
	return t.product.Stock
}

func (t stockTarget) name() string {
	if t.variant != nil {
		return fmt.Sprintf("%s (%s)", t.product.Name, toCatalogVariant(t.variant).Label())
	}
	return t.product.Name
}

// lockStockTarget locks the product row, then the variant row when vsku is
// set. Locks are always taken in that order.
func lockStockTarget(ctx context.Context, repo repository.ProductRepository, productID uuid.UUID, vsku string) (stockTarget, error) {
	product, err := repo.FindByIDForUpdate(ctx, productID)
	if err != nil {
		return stockTarget{}, lookupErr(err, "product")
	}
	target := stockTarget{product: product}
	if vsku == "" {
		return target, nil
	}

	variant, err := repo.FindVariantBySKUForUpdate(ctx, vsku)
	if err != nil {
		if repository.IsNotFound(err) {
			return stockTarget{}, apperror.NotFound("variant %s not found", vsku)
		}
		return stockTarget{}, fmt.Errorf("database error: %w", err)
	}
	if variant.ProductID != product.ID {
		return stockTarget{}, apperror.Validation("variant %s does not belong to %s", vsku, product.Name)
	}
	target.variant = variant
	return target, nil
}

type stockMove struct {
	Type        string
	Quantity    int
	Source      string
	Reason      string
	ReferenceID *uuid.UUID
	UserID      string
}

// applyStockMove changes stock on a locked target and appends the ledger row.
// Variant moves reconcile the parent product afterwards.
func applyStockMove(ctx context.Context, productRepo repository.ProductRepository, txRepo repository.InventoryTxRepository, target stockTarget, move stockMove) (*model.InventoryTransaction, error) {
	if target.product.IsService {
		return nil, apperror.Validation("%s is a service and carries no stock", target.product.Name)
	}
	if move.Quantity <= 0 {
		return nil, apperror.Validation("quantity must be greater than 0")
	}

	before := target.available()
	after := before + move.Quantity
	if move.Type == model.TxTypeOut {
		if move.Quantity > before {
			return nil, apperror.Validation("Insufficient stock. Available: %d, Requested: %d", before, move.Quantity)
		}
		after = before - move.Quantity
	}

	entry := &model.InventoryTransaction{
		ProductID:   target.product.ID,
		Type:        move.Type,
		Quantity:    move.Quantity,
		Source:      move.Source,
		Reason:      move.Reason,
		ReferenceID: move.ReferenceID,
		StockBefore: before,
		StockAfter:  after,
		CreatedBy:   parseUserID(move.UserID),
	}

	if target.variant != nil {
		if err := productRepo.UpdateVariantStock(ctx, target.variant.ID, after); err != nil {
			return nil, fmt.Errorf("failed to update variant stock: %w", err)
		}
		if err := productRepo.ReconcileStock(ctx, target.product.ID); err != nil {
			return nil, fmt.Errorf("failed to reconcile stock: %w", err)
		}
		target.variant.Stock = after
		target.product.Stock += after - before
		variantID := target.variant.ID
		entry.VariantID = &variantID
		entry.VariantSKU = target.variant.VSKU
	} else {
		if err := productRepo.UpdateStock(ctx, target.product.ID, after); err != nil {
			return nil, fmt.Errorf("failed to update stock: %w", err)
		}
		target.product.Stock = after
	}

	if err := txRepo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to record inventory transaction: %w", err)
	}
	return entry, nil
}

// StockEvent is the payload of stock.updated
type StockEvent struct {
	ProductID    string `json:"product_id"`
	VariantSKU   string `json:"variant_sku,omitempty"`
	Stock        int    `json:"stock"`
	VariantStock *int   `json:"variant_stock,omitempty"`
}

func stockEvent(t stockTarget) StockEvent {
	ev := StockEvent{ProductID: t.product.ID.String(), Stock: t.product.Stock}
	if t.variant != nil {
		vs := t.variant.Stock
		ev.VariantSKU = t.variant.VSKU
		ev.VariantStock = &vs
	}
	return ev
}
