package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"storefront-erp/internal/model"
	"storefront-erp/internal/qrlabel"
	"storefront-erp/internal/repository"
	"storefront-erp/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type VariantRequest struct {
	VSKU         string          `json:"v_sku"`
	VariantName  string          `json:"variant_name"`
	Color        string          `json:"color"`
	Size         string          `json:"size"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	Stock        int             `json:"stock" binding:"gte=0"`
	ImageURL     string          `json:"image_url"`
}

type ProductRequest struct {
	Name            string           `json:"name" binding:"required"`
	SKU             string           `json:"sku"`
	Description     string           `json:"description"`
	CategoryID      string           `json:"category_id"`
	CostPrice       decimal.Decimal  `json:"cost_price"`
	MinSellingPrice decimal.Decimal  `json:"min_selling_price"`
	SellingPrice    decimal.Decimal  `json:"selling_price"`
	Stock           int              `json:"stock" binding:"gte=0"`
	MinStock        *int             `json:"min_stock" binding:"omitempty,gte=0"`
	IsService       bool             `json:"is_service"`
	Images          []string         `json:"images" binding:"max=5"`
	Variants        []VariantRequest `json:"variants" binding:"dive"`
}

type VariantResponse struct {
	ID           string          `json:"id"`
	VSKU         string          `json:"v_sku"`
	VariantName  string          `json:"variant_name"`
	Color        string          `json:"color"`
	Size         string          `json:"size"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	Stock        int             `json:"stock"`
	ImageURL     string          `json:"image_url"`
	QRCodeURL    string          `json:"qr_code_url"`
}

type ProductResponse struct {
	ID              string            `json:"id"`
	ProductCode     string            `json:"product_code"`
	SKU             string            `json:"sku"`
	Name            string            `json:"name"`
	Description     string            `json:"description"`
	CategoryID      string            `json:"category_id,omitempty"`
	CategoryName    string            `json:"category_name,omitempty"`
	CostPrice       *decimal.Decimal  `json:"cost_price,omitempty"` // admins only
	MinSellingPrice decimal.Decimal   `json:"min_selling_price"`
	SellingPrice    decimal.Decimal   `json:"selling_price"`
	Stock           int               `json:"stock"`
	MinStock        int               `json:"min_stock"`
	IsService       bool              `json:"is_service"`
	Images          []string          `json:"images"`
	ImageURL        string            `json:"image_url"`
	QRCodeURL       string            `json:"qr_code_url"`
	Variants        []VariantResponse `json:"variants"`
	CreatedAt       string            `json:"created_at"`
}

// ProductBrief is the compact row used by inventory pickers
type ProductBrief struct {
	ID        string           `json:"id"`
	SKU       string           `json:"sku"`
	Name      string           `json:"name"`
	Stock     int              `json:"stock"`
	MinStock  int              `json:"min_stock"`
	IsService bool             `json:"is_service"`
	Variants  []VariantOptions `json:"variants"`
}

type VariantOptions struct {
	VSKU  string `json:"v_sku"`
	Label string `json:"label"`
	Stock int    `json:"stock"`
}

// SKULookupResponse tells a scanner what a code resolved to
type SKULookupResponse struct {
	Match   string           `json:"match"` // product or variant
	Product ProductResponse  `json:"product"`
	Variant *VariantResponse `json:"variant,omitempty"`
}

// LabelGenerator renders label QR codes; *qrlabel.Generator satisfies it.
type LabelGenerator interface {
	Generate(p qrlabel.Payload) (string, error)
}

type ProductService interface {
	List(ctx context.Context, isAdmin bool, filter repository.ProductFilter) ([]ProductResponse, int64, error)
	ListBrief(ctx context.Context) ([]ProductBrief, error)
	Get(ctx context.Context, isAdmin bool, id string) (ProductResponse, error)
	LookupSKU(ctx context.Context, isAdmin bool, sku string) (SKULookupResponse, error)
	Create(ctx context.Context, userID string, req ProductRequest) (ProductResponse, error)
	Update(ctx context.Context, userID, id string, req ProductRequest) (ProductResponse, error)
	Delete(ctx context.Context, userID, id string) error
}

type productService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	labels       LabelGenerator
	loc          *time.Location
}

func NewProductService(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	labels LabelGenerator,
	loc *time.Location,
) ProductService {
	if loc == nil {
		loc = time.UTC
	}
	return &productService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		labels:       labels,
		loc:          loc,
	}
}

func mapVariant(v *model.ProductVariant) VariantResponse {
	return VariantResponse{
		ID:           v.ID.String(),
		VSKU:         v.VSKU,
		VariantName:  v.VariantName,
		Color:        v.Color,
		Size:         v.Size,
		SellingPrice: v.SellingPrice,
		Stock:        v.Stock,
		ImageURL:     v.ImageURL,
		QRCodeURL:    v.QRCodeURL,
	}
}

func mapProduct(p *model.Product, isAdmin bool) ProductResponse {
	res := ProductResponse{
		ID:              p.ID.String(),
		ProductCode:     p.ProductCode,
		SKU:             p.SKU,
		Name:            p.Name,
		Description:     p.Description,
		MinSellingPrice: p.MinSellingPrice,
		SellingPrice:    p.SellingPrice,
		Stock:           p.Stock,
		MinStock:        p.MinStock,
		IsService:       p.IsService,
		Images:          append([]string{}, p.Images...),
		ImageURL:        p.MainImage(),
		QRCodeURL:       p.QRCodeURL,
		Variants:        make([]VariantResponse, 0, len(p.Variants)),
		CreatedAt:       p.CreatedAt.Format(timeLayout),
	}
	if isAdmin {
		cost := p.CostPrice
		res.CostPrice = &cost
	}
	if p.CategoryID != nil {
		res.CategoryID = p.CategoryID.String()
	}
	if p.Category != nil {
		res.CategoryName = p.Category.Name
	}
	for i := range p.Variants {
		res.Variants = append(res.Variants, mapVariant(&p.Variants[i]))
	}
	return res
}

func (s *productService) List(ctx context.Context, isAdmin bool, filter repository.ProductFilter) ([]ProductResponse, int64, error) {
	products, total, err := s.productRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	res := make([]ProductResponse, 0, len(products))
	for i := range products {
		res = append(res, mapProduct(&products[i], isAdmin))
	}
	return res, total, nil
}

func (s *productService) ListBrief(ctx context.Context) ([]ProductBrief, error) {
	products, err := s.productRepo.ListBrief(ctx)
	if err != nil {
		return nil, err
	}
	res := make([]ProductBrief, 0, len(products))
	for _, p := range products {
		brief := ProductBrief{
			ID:        p.ID.String(),
			SKU:       p.SKU,
			Name:      p.Name,
			Stock:     p.Stock,
			MinStock:  p.MinStock,
			IsService: p.IsService,
			Variants:  make([]VariantOptions, 0, len(p.Variants)),
		}
		for _, v := range p.Variants {
			brief.Variants = append(brief.Variants, VariantOptions{VSKU: v.VSKU, Label: toCatalogVariant(&v).Label(), Stock: v.Stock})
		}
		res = append(res, brief)
	}
	return res, nil
}

func (s *productService) Get(ctx context.Context, isAdmin bool, id string) (ProductResponse, error) {
	productID, err := parseID(id, "product")
	if err != nil {
		return ProductResponse{}, err
	}
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return ProductResponse{}, lookupErr(err, "product")
	}
	return mapProduct(product, isAdmin), nil
}

func (s *productService) LookupSKU(ctx context.Context, isAdmin bool, sku string) (SKULookupResponse, error) {
	product, variant, err := findBySKU(ctx, s.productRepo, sku)
	if err != nil {
		return SKULookupResponse{}, err
	}
	res := SKULookupResponse{Match: "product", Product: mapProduct(product, isAdmin)}
	if variant != nil {
		v := mapVariant(variant)
		res.Match = "variant"
		res.Variant = &v
	}
	return res, nil
}

// normalizeProduct applies the catalog rules shared by create and update.
func normalizeProduct(req ProductRequest) (ProductRequest, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.SKU = strings.TrimSpace(req.SKU)
	req.Description = strings.TrimSpace(req.Description)
	if req.Name == "" {
		return req, apperror.Validation("product name is required")
	}
	if req.CostPrice.IsNegative() || req.MinSellingPrice.IsNegative() || req.SellingPrice.IsNegative() {
		return req, apperror.Validation("prices cannot be negative")
	}
	if req.SellingPrice.LessThan(req.MinSellingPrice) {
		return req, apperror.Validation("Selling price cannot be below minimum selling price")
	}

	images := make([]string, 0, len(req.Images))
	for _, img := range req.Images {
		if img = strings.TrimSpace(img); img != "" {
			images = append(images, img)
		}
	}
	if len(images) > model.MaxProductImages {
		return req, apperror.Validation("Maximum %d images allowed", model.MaxProductImages)
	}
	req.Images = images

	if req.MinStock == nil {
		def := model.DefaultMinStock
		req.MinStock = &def
	}
	if req.Stock < 0 || *req.MinStock < 0 {
		return req, apperror.Validation("stock cannot be negative")
	}

	if req.IsService {
		zero := 0
		req.Stock = 0
		req.MinStock = &zero
		req.Variants = nil
		return req, nil
	}

	seen := make(map[string]bool, len(req.Variants))
	for i := range req.Variants {
		v := &req.Variants[i]
		v.VSKU = strings.TrimSpace(v.VSKU)
		v.VariantName = strings.TrimSpace(v.VariantName)
		v.Color = strings.TrimSpace(v.Color)
		v.Size = strings.TrimSpace(v.Size)
		if v.Stock < 0 {
			return req, apperror.Validation("variant stock cannot be negative")
		}
		if v.SellingPrice.IsNegative() {
			return req, apperror.Validation("variant price cannot be negative")
		}
		if v.SellingPrice.IsPositive() && v.SellingPrice.LessThan(req.MinSellingPrice) {
			return req, apperror.Validation("variant price cannot be below minimum selling price")
		}
		if v.VSKU != "" {
			key := strings.ToUpper(v.VSKU)
			if seen[key] {
				return req, apperror.Validation("duplicate variant SKU %s", v.VSKU)
			}
			seen[key] = true
		}
	}
	return req, nil
}

func randomCode(n int) string {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			idx = big.NewInt(int64(i % len(alphabet)))
		}
		b[i] = alphabet[idx.Int64()]
	}
	return string(b)
}

// uniqueCode draws codes from gen until one is free.
func (s *productService) uniqueCode(ctx context.Context, gen func() string) (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		code := gen()
		taken, err := s.productRepo.SKUTaken(ctx, code, nil)
		if err != nil {
			return "", fmt.Errorf("database error: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", errors.New("could not allocate a unique code")
}

func (s *productService) resolveCategory(ctx context.Context, raw string) (*uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := parseID(raw, "category")
	if err != nil {
		return nil, err
	}
	if _, err := s.categoryRepo.FindByID(ctx, id); err != nil {
		return nil, lookupErr(err, "category")
	}
	return &id, nil
}

// buildVariants assigns SKUs and checks them against every other code in the
// catalog. owner is the product being updated, nil on create.
func (s *productService) buildVariants(ctx context.Context, productSKU string, reqs []VariantRequest, owner *uuid.UUID) ([]model.ProductVariant, int, error) {
	variants := make([]model.ProductVariant, 0, len(reqs))
	total := 0
	used := make(map[string]bool, len(reqs))
	for _, v := range reqs {
		if v.VSKU != "" {
			used[strings.ToUpper(v.VSKU)] = true
		}
	}

	next := 1
	for _, v := range reqs {
		vsku := v.VSKU
		if vsku == "" {
			for used[strings.ToUpper(fmt.Sprintf("%s-V%d", productSKU, next))] {
				next++
			}
			vsku = fmt.Sprintf("%s-V%d", productSKU, next)
			used[strings.ToUpper(vsku)] = true
		}
		if strings.EqualFold(vsku, productSKU) {
			return nil, 0, apperror.Validation("variant SKU %s cannot equal the product SKU", vsku)
		}
		taken, err := s.productRepo.SKUTaken(ctx, vsku, owner)
		if err != nil {
			return nil, 0, fmt.Errorf("database error: %w", err)
		}
		if taken {
			return nil, 0, apperror.Conflict("SKU %s is already in use", vsku)
		}
		variants = append(variants, model.ProductVariant{
			VSKU:         vsku,
			VariantName:  v.VariantName,
			Color:        v.Color,
			Size:         v.Size,
			SellingPrice: v.SellingPrice,
			Stock:        v.Stock,
			ImageURL:     strings.TrimSpace(v.ImageURL),
		})
		total += v.Stock
	}
	return variants, total, nil
}

func (s *productService) Create(ctx context.Context, userID string, req ProductRequest) (ProductResponse, error) {
	req, err := normalizeProduct(req)
	if err != nil {
		return ProductResponse{}, err
	}

	var product model.Product
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		categoryID, err := s.resolveCategory(txCtx, req.CategoryID)
		if err != nil {
			return err
		}

		code, err := s.uniqueCode(txCtx, func() string {
			return "PRD-" + time.Now().In(s.loc).Format("20060102") + "-" + randomCode(4)
		})
		if err != nil {
			return err
		}

		sku := req.SKU
		if sku == "" {
			sku, err = s.uniqueCode(txCtx, func() string { return "SKU-" + randomCode(8) })
			if err != nil {
				return err
			}
		} else if taken, err := s.productRepo.SKUTaken(txCtx, sku, nil); err != nil {
			return fmt.Errorf("database error: %w", err)
		} else if taken {
			return apperror.Conflict("SKU %s is already in use", sku)
		}

		variants, variantStock, err := s.buildVariants(txCtx, sku, req.Variants, nil)
		if err != nil {
			return err
		}
		stock := req.Stock
		if len(variants) > 0 {
			stock = variantStock
		}

		product = model.Product{
			ProductCode:     code,
			SKU:             sku,
			Name:            req.Name,
			Description:     req.Description,
			CategoryID:      categoryID,
			CostPrice:       req.CostPrice,
			MinSellingPrice: req.MinSellingPrice,
			SellingPrice:    req.SellingPrice,
			Stock:           stock,
			MinStock:        *req.MinStock,
			IsService:       req.IsService,
			Images:          req.Images,
			Variants:        variants,
			CreatedBy:       parseUserID(userID),
		}
		if err := s.productRepo.Create(txCtx, &product); err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}

		return writeAudit(txCtx, s.auditRepo, userID, model.ActionCreateProduct, product.ID.String(), product.Name, req)
	})
	if err != nil {
		return ProductResponse{}, err
	}

	s.printLabels(ctx, &product)
	return s.Get(ctx, true, product.ID.String())
}

func (s *productService) Update(ctx context.Context, userID, id string, req ProductRequest) (ProductResponse, error) {
	productID, err := parseID(id, "product")
	if err != nil {
		return ProductResponse{}, err
	}
	req, err = normalizeProduct(req)
	if err != nil {
		return ProductResponse{}, err
	}

	var product *model.Product
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		product, err = s.productRepo.FindByIDForUpdate(txCtx, productID)
		if err != nil {
			return lookupErr(err, "product")
		}

		categoryID, err := s.resolveCategory(txCtx, req.CategoryID)
		if err != nil {
			return err
		}

		sku := product.SKU
		if req.SKU != "" && req.SKU != product.SKU {
			taken, err := s.productRepo.SKUTaken(txCtx, req.SKU, &product.ID)
			if err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			if taken {
				return apperror.Conflict("SKU %s is already in use", req.SKU)
			}
			sku = req.SKU
		}

		variants, variantStock, err := s.buildVariants(txCtx, sku, req.Variants, &product.ID)
		if err != nil {
			return err
		}
		if err := s.productRepo.ReplaceVariants(txCtx, product.ID, variants); err != nil {
			return fmt.Errorf("failed to save variants: %w", err)
		}

		product.SKU = sku
		product.Name = req.Name
		product.Description = req.Description
		product.CategoryID = categoryID
		product.Category = nil
		product.CostPrice = req.CostPrice
		product.MinSellingPrice = req.MinSellingPrice
		product.SellingPrice = req.SellingPrice
		product.Stock = req.Stock
		if len(variants) > 0 {
			product.Stock = variantStock
		}
		product.MinStock = *req.MinStock
		product.IsService = req.IsService
		product.Images = req.Images
		product.Variants = variants

		if err := s.productRepo.Update(txCtx, product); err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}

		return writeAudit(txCtx, s.auditRepo, userID, model.ActionUpdateProduct, product.ID.String(), product.Name, req)
	})
	if err != nil {
		return ProductResponse{}, err
	}

	s.printLabels(ctx, product)
	return s.Get(ctx, true, product.ID.String())
}

func (s *productService) Delete(ctx context.Context, userID, id string) error {
	productID, err := parseID(id, "product")
	if err != nil {
		return err
	}
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return lookupErr(err, "product")
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Delete(txCtx, productID); err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, userID, model.ActionDeleteProduct, product.ID.String(), product.Name, nil)
	})
}

// printLabels regenerates QR codes after a save. Failures leave the previous
// label in place and are only logged.
func (s *productService) printLabels(ctx context.Context, p *model.Product) {
	if s.labels == nil {
		return
	}
	url, err := s.labels.Generate(qrlabel.Payload{SKU: p.SKU, Name: p.Name, Price: p.SellingPrice})
	if err != nil {
		log.Printf("qr label for product %s: %v", p.SKU, err)
	} else if err := s.productRepo.SetQRCodeURL(ctx, p.ID, url); err != nil {
		log.Printf("save qr url for product %s: %v", p.SKU, err)
	}

	for i := range p.Variants {
		v := &p.Variants[i]
		url, err := s.labels.Generate(qrlabel.Payload{
			SKU:        p.SKU,
			VariantSKU: v.VSKU,
			Name:       fmt.Sprintf("%s (%s)", p.Name, toCatalogVariant(v).Label()),
			Price:      v.EffectivePrice(p),
		})
		if err != nil {
			log.Printf("qr label for variant %s: %v", v.VSKU, err)
			continue
		}
		if err := s.productRepo.SetVariantQRCodeURL(ctx, v.ID, url); err != nil {
			log.Printf("save qr url for variant %s: %v", v.VSKU, err)
		}
	}
}
