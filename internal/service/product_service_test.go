package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"storefront-erp/internal/billing"
	"storefront-erp/internal/model"
	"storefront-erp/internal/repository"
	"storefront-erp/pkg/apperror"
)

func TestCreateProductWithVariants(t *testing.T) {
	env := newTestEnv(t)

	p := env.createProduct(t, ProductRequest{
		Name:         "Kurta",
		SKU:          "KURTA",
		SellingPrice: money("899"),
		Stock:        99, // ignored, variants carry the stock
		Variants: []VariantRequest{
			{Color: "Red", Stock: 3},
			{VSKU: "KURTA-V1", Size: "XL", Stock: 2}, // explicit, so generated codes skip it
			{VariantName: "Plain", Stock: 5},
		},
	})

	if !strings.HasPrefix(p.ProductCode, "PRD-") || len(p.ProductCode) != len("PRD-20250101-ABCD") {
		t.Errorf("unexpected product code %q", p.ProductCode)
	}
	if p.Stock != 10 {
		t.Errorf("stock = %d, want sum of variants 10", p.Stock)
	}
	if p.MinStock != model.DefaultMinStock {
		t.Errorf("min stock = %d, want default %d", p.MinStock, model.DefaultMinStock)
	}

	var skus []string
	for _, v := range p.Variants {
		skus = append(skus, v.VSKU)
	}
	want := map[string]bool{"KURTA-V2": true, "KURTA-V1": true, "KURTA-V3": true}
	for _, s := range skus {
		if !want[s] {
			t.Errorf("unexpected variant sku %s in %v", s, skus)
		}
	}

	// one label for the product and one per variant
	if len(env.labels.payloads) != 4 {
		t.Fatalf("generated %d labels, want 4", len(env.labels.payloads))
	}
	if env.labels.payloads[0].VariantSKU != "" || env.labels.payloads[0].SKU != "KURTA" {
		t.Errorf("first label should be the product: %+v", env.labels.payloads[0])
	}
	if p.QRCodeURL == "" {
		t.Error("product qr url not stored")
	}
}

func TestCreateProductDefaultsSKU(t *testing.T) {
	env := newTestEnv(t)

	p := env.createProduct(t, ProductRequest{Name: "Bolt", SellingPrice: money("5")})
	if !strings.HasPrefix(p.SKU, "SKU-") || len(p.SKU) != len("SKU-")+8 {
		t.Errorf("unexpected generated sku %q", p.SKU)
	}
}

func TestCreateProductValidation(t *testing.T) {
	env := newTestEnv(t)
	env.seedCatalog(t)

	tests := []struct {
		name string
		req  ProductRequest
		kind error
	}{
		{"below minimum price", ProductRequest{Name: "X", SellingPrice: money("10"), MinSellingPrice: money("20")}, apperror.ErrValidation},
		{"negative price", ProductRequest{Name: "X", SellingPrice: money("-1")}, apperror.ErrValidation},
		{"too many images", ProductRequest{Name: "X", Images: []string{"1", "2", "3", "4", "5", "6"}}, apperror.ErrValidation},
		{"duplicate product sku", ProductRequest{Name: "X", SKU: "MUG"}, apperror.ErrConflict},
		{"variant sku used by product", ProductRequest{Name: "X", SKU: "NEW", Variants: []VariantRequest{{VSKU: "MUG"}}}, apperror.ErrConflict},
		{"product sku used by variant", ProductRequest{Name: "X", SKU: "SHIRT-RED-M"}, apperror.ErrConflict},
		{"duplicate variant sku in request", ProductRequest{Name: "X", Variants: []VariantRequest{{VSKU: "A"}, {VSKU: "a"}}}, apperror.ErrValidation},
		{"unknown category", ProductRequest{Name: "X", CategoryID: "8d3c0b1e-5b8a-4f55-9a43-0c3b0fb0a111"}, apperror.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.productSvc.Create(context.Background(), "", tt.req)
			if !errors.Is(err, tt.kind) {
				t.Fatalf("err = %v, want kind %v", err, tt.kind)
			}
		})
	}
}

func TestServiceProductCarriesNoStock(t *testing.T) {
	env := newTestEnv(t)
	_, _, wash := env.seedCatalog(t)

	if wash.Stock != 0 || wash.MinStock != 0 || len(wash.Variants) != 0 {
		t.Fatalf("service product kept stock: %+v", wash)
	}
}

func TestCreateProductStoresMinStock(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		req  ProductRequest
		want int
	}{
		{"omitted", ProductRequest{Name: "Nut", SKU: "NUT", SellingPrice: money("2"), Stock: 3}, model.DefaultMinStock},
		{"explicit zero", ProductRequest{Name: "Bolt", SKU: "BOLT", SellingPrice: money("5"), Stock: 3, MinStock: intPtr(0)}, 0},
		{"explicit", ProductRequest{Name: "Washer", SKU: "WASHER", SellingPrice: money("1"), MinStock: intPtr(12)}, 12},
		{"service", ProductRequest{Name: "Polish", SKU: "POLISH", SellingPrice: money("250"), IsService: true, MinStock: intPtr(8)}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.createProduct(t, tt.req)
			stored, err := env.products.FindBySKU(context.Background(), tt.req.SKU)
			if err != nil {
				t.Fatal(err)
			}
			if stored.MinStock != tt.want {
				t.Errorf("stored min_stock = %d, want %d", stored.MinStock, tt.want)
			}
		})
	}
}

func TestCostPriceOnlyForAdmins(t *testing.T) {
	env := newTestEnv(t)
	_ = env.createProduct(t, ProductRequest{Name: "Lamp", SKU: "LAMP", CostPrice: money("80"), SellingPrice: money("120")})

	ctx := context.Background()
	staff, _, err := env.productSvc.List(ctx, false, repository.ProductFilter{Page: 1, Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if staff[0].CostPrice != nil {
		t.Error("cost price leaked to store handler")
	}

	admin, _, err := env.productSvc.List(ctx, true, repository.ProductFilter{Page: 1, Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if admin[0].CostPrice == nil || !admin[0].CostPrice.Equal(money("80")) {
		t.Errorf("admin cost price = %v", admin[0].CostPrice)
	}
}

func TestLookupSKU(t *testing.T) {
	env := newTestEnv(t)
	mug, shirt, _ := env.seedCatalog(t)
	ctx := context.Background()

	res, err := env.productSvc.LookupSKU(ctx, false, "SHIRT-BLUE-M")
	if err != nil {
		t.Fatal(err)
	}
	if res.Match != "variant" || res.Variant == nil || res.Product.ID != shirt.ID {
		t.Errorf("variant lookup = %+v", res)
	}

	res, err = env.productSvc.LookupSKU(ctx, false, mug.ProductCode)
	if err != nil {
		t.Fatal(err)
	}
	if res.Match != "product" || res.Product.SKU != "MUG" {
		t.Errorf("product code lookup = %+v", res)
	}

	res, err = env.productSvc.LookupSKU(ctx, false, mug.ID)
	if err != nil || res.Product.SKU != "MUG" {
		t.Errorf("id lookup = %+v, %v", res, err)
	}

	if _, err := env.productSvc.LookupSKU(ctx, false, "NOPE"); !errors.Is(err, billing.ErrSKUNotFound) {
		t.Errorf("miss err = %v", err)
	}
}

func TestUpdateProductReplacesVariants(t *testing.T) {
	env := newTestEnv(t)
	_, shirt, _ := env.seedCatalog(t)
	ctx := context.Background()

	updated, err := env.productSvc.Update(ctx, "", shirt.ID, ProductRequest{
		Name:         "Shirt",
		SellingPrice: money("499"),
		Variants: []VariantRequest{
			{VSKU: "SHIRT-RED-M", VariantName: "Red M", Stock: 1},
			{VSKU: "SHIRT-GREEN-L", Color: "Green", Stock: 2},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if updated.SKU != "SHIRT" {
		t.Errorf("blank sku should keep the old one, got %s", updated.SKU)
	}
	if updated.Stock != 3 || len(updated.Variants) != 2 {
		t.Errorf("stock=%d variants=%d", updated.Stock, len(updated.Variants))
	}
	if _, err := env.products.FindVariantBySKU(ctx, "SHIRT-BLUE-M"); !repository.IsNotFound(err) {
		t.Errorf("removed variant still present: %v", err)
	}
}

func TestDeleteProductIsSoft(t *testing.T) {
	env := newTestEnv(t)
	mug, _, _ := env.seedCatalog(t)
	ctx := context.Background()

	if err := env.productSvc.Delete(ctx, "", mug.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := env.productSvc.Get(ctx, true, mug.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("get after delete err = %v", err)
	}
	// the sku stays reserved
	if _, err := env.productSvc.Create(ctx, "", ProductRequest{Name: "Mug 2", SKU: "MUG"}); !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("reusing deleted sku err = %v", err)
	}
}
