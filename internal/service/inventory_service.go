package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront-erp/internal/model"
	"storefront-erp/internal/repository"
	ws "storefront-erp/internal/websocket"
	"storefront-erp/pkg/apperror"

	"github.com/google/uuid"
)

// DTOs
type MaterialInwardRequest struct {
	ProductID  string `json:"product_id" binding:"required"`
	VariantSKU string `json:"variant_sku"`
	Quantity   int    `json:"quantity" binding:"required,gt=0"`
	Reason     string `json:"reason"`
}

type MaterialOutwardRequest struct {
	ProductID  string `json:"product_id" binding:"required"`
	VariantSKU string `json:"variant_sku"`
	Quantity   int    `json:"quantity" binding:"required,gt=0"`
	Reason     string `json:"reason" binding:"required"`
}

// TransactionQuery filters the stock ledger. Days counts back from now.
type TransactionQuery struct {
	ProductID string
	Type      string
	Days      int
	Page      int
	Limit     int
}

type InventoryTransactionResponse struct {
	ID          string  `json:"id"`
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	ProductSKU  string  `json:"product_sku"`
	VariantSKU  string  `json:"variant_sku,omitempty"`
	Type        string  `json:"type"`
	Quantity    int     `json:"quantity"`
	Source      string  `json:"source"`
	Reason      string  `json:"reason"`
	ReferenceID *string `json:"reference_id"`
	StockBefore int     `json:"stock_before"`
	StockAfter  int     `json:"stock_after"`
	CreatedAt   string  `json:"created_at"`
}

type InventoryService interface {
	MaterialInward(ctx context.Context, userID string, req MaterialInwardRequest) (InventoryTransactionResponse, error)
	MaterialOutward(ctx context.Context, userID string, req MaterialOutwardRequest) (InventoryTransactionResponse, error)
	ListTransactions(ctx context.Context, query TransactionQuery) ([]InventoryTransactionResponse, int64, error)
}

type inventoryService struct {
	productRepo repository.ProductRepository
	txRepo      repository.InventoryTxRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	events      EventPublisher
}

func NewInventoryService(
	productRepo repository.ProductRepository,
	txRepo repository.InventoryTxRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	events EventPublisher,
) InventoryService {
	return &inventoryService{
		productRepo: productRepo,
		txRepo:      txRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		events:      events,
	}
}

func (s *inventoryService) MaterialInward(ctx context.Context, userID string, req MaterialInwardRequest) (InventoryTransactionResponse, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "Material inward"
	}
	return s.move(ctx, userID, req.ProductID, req.VariantSKU, model.ActionMaterialInward, stockMove{
		Type:     model.TxTypeIn,
		Quantity: req.Quantity,
		Source:   model.TxSourceManual,
		Reason:   reason,
		UserID:   userID,
	})
}

func (s *inventoryService) MaterialOutward(ctx context.Context, userID string, req MaterialOutwardRequest) (InventoryTransactionResponse, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return InventoryTransactionResponse{}, apperror.Validation("reason is required for material outward")
	}
	return s.move(ctx, userID, req.ProductID, req.VariantSKU, model.ActionMaterialOutward, stockMove{
		Type:     model.TxTypeOut,
		Quantity: req.Quantity,
		Source:   model.TxSourceManual,
		Reason:   reason,
		UserID:   userID,
	})
}

func (s *inventoryService) move(ctx context.Context, userID, productID, vsku, action string, move stockMove) (InventoryTransactionResponse, error) {
	id, err := parseID(productID, "product")
	if err != nil {
		return InventoryTransactionResponse{}, err
	}
	if move.Quantity <= 0 {
		return InventoryTransactionResponse{}, apperror.Validation("quantity must be greater than 0")
	}
	vsku = strings.TrimSpace(vsku)

	var target stockTarget
	var entry *model.InventoryTransaction
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		target, err = lockStockTarget(txCtx, s.productRepo, id, vsku)
		if err != nil {
			return err
		}
		if target.variant == nil && target.product.HasVariants() {
			return apperror.Validation("%s has variants, choose a variant SKU", target.product.Name)
		}

		entry, err = applyStockMove(txCtx, s.productRepo, s.txRepo, target, move)
		if err != nil {
			return err
		}

		return writeAudit(txCtx, s.auditRepo, userID, action, target.product.ID.String(), target.name(), map[string]interface{}{
			"variant_sku":  vsku,
			"quantity":     move.Quantity,
			"stock_before": entry.StockBefore,
			"stock_after":  entry.StockAfter,
			"reason":       move.Reason,
		})
	})
	if err != nil {
		return InventoryTransactionResponse{}, err
	}

	publish(s.events, ws.EventStockUpdated, stockEvent(target))

	entry.Product = target.product
	return mapInventoryTx(entry), nil
}

func (s *inventoryService) ListTransactions(ctx context.Context, query TransactionQuery) ([]InventoryTransactionResponse, int64, error) {
	filter := repository.InventoryTxFilter{Page: query.Page, Limit: query.Limit}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 30
	}

	if query.ProductID != "" {
		id, err := parseID(query.ProductID, "product")
		if err != nil {
			return nil, 0, err
		}
		filter.ProductID = &id
	}

	switch t := strings.ToUpper(query.Type); t {
	case "":
	case model.TxTypeIn, model.TxTypeOut:
		filter.Type = t
	default:
		return nil, 0, apperror.Validation("type must be IN or OUT")
	}

	if query.Days > 0 {
		since := time.Now().AddDate(0, 0, -query.Days)
		filter.Since = &since
	}

	txs, total, err := s.txRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	res := make([]InventoryTransactionResponse, 0, len(txs))
	for i := range txs {
		res = append(res, mapInventoryTx(&txs[i]))
	}
	return res, total, nil
}

func mapInventoryTx(t *model.InventoryTransaction) InventoryTransactionResponse {
	res := InventoryTransactionResponse{
		ID:          t.ID.String(),
		ProductID:   t.ProductID.String(),
		VariantSKU:  t.VariantSKU,
		Type:        t.Type,
		Quantity:    t.Quantity,
		Source:      t.Source,
		Reason:      t.Reason,
		StockBefore: t.StockBefore,
		StockAfter:  t.StockAfter,
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
	}
	if t.Product != nil {
		res.ProductName = t.Product.Name
		res.ProductSKU = t.Product.SKU
	}
	if t.ReferenceID != nil && *t.ReferenceID != uuid.Nil {
		ref := t.ReferenceID.String()
		res.ReferenceID = &ref
	}
	return res
}
