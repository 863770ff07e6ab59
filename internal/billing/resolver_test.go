package billing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

type fakeCatalog struct {
	products []CatalogProduct
	err      error
	calls    int
}

func (c *fakeCatalog) LookupSKU(_ context.Context, sku string) (CatalogMatch, error) {
	c.calls++
	if c.err != nil {
		return CatalogMatch{}, c.err
	}
	for _, p := range c.products {
		for _, v := range p.Variants {
			if v.VariantSKU == sku {
				v := v
				return CatalogMatch{Product: p, Variant: &v}, nil
			}
		}
		if p.SKU == sku || p.ID == sku {
			return CatalogMatch{Product: p}, nil
		}
	}
	return CatalogMatch{}, fmt.Errorf("catalog: %w", ErrSKUNotFound)
}

func testCatalog() *fakeCatalog {
	return &fakeCatalog{products: []CatalogProduct{
		{
			ID: "p-shirt", SKU: "SHIRT", Name: "Shirt", SellingPrice: dec("499"),
			Images: []string{"/img/shirt.png"},
			Variants: []CatalogVariant{
				{VariantSKU: "SHIRT-RED-M", VariantName: "Red M", SellingPrice: dec("549"), ImageURL: "/img/red.png"},
				{VariantSKU: "SHIRT-BLUE-M", Color: "Blue"},
			},
		},
		{
			ID: "p-single", SKU: "CAP", Name: "Cap", SellingPrice: dec("199"),
			Variants: []CatalogVariant{{VariantSKU: "CAP-ONE", Size: "Free"}},
		},
		{ID: "p-mug", SKU: "MUG", Name: "Mug", SellingPrice: dec("150")},
		{ID: "p-wash", SKU: "WASH", Name: "Car wash", SellingPrice: dec("300"), IsService: true},
	}}
}

func newTestResolver(cat Catalog, clock *fakeClock, ack AckFunc) *Resolver {
	return NewResolver(cat, NewScanGateWithClock(DefaultScanWindow, clock.Now), ack)
}

func TestResolveVariantHit(t *testing.T) {
	clock := newFakeClock()
	r := newTestResolver(testCatalog(), clock, nil)

	res, err := r.Resolve(context.Background(), NewDraft(), `{"v_sku":"SHIRT-RED-M","sku":"SHIRT"}`)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Kind != ResolvedVariant {
		t.Fatalf("kind = %s", res.Kind)
	}
	item := res.Draft.Items()[0]
	if item.DisplayName != "Shirt (Red M)" {
		t.Errorf("display name = %q", item.DisplayName)
	}
	if !item.UnitPrice.Equal(dec("549")) {
		t.Errorf("price = %s, want variant price", item.UnitPrice)
	}
	if item.ImageURL != "/img/red.png" || item.VariantSKU != "SHIRT-RED-M" || !item.HasVariants {
		t.Errorf("unexpected item %+v", item)
	}
}

func TestResolveVariantInheritsProductPriceAndImage(t *testing.T) {
	r := newTestResolver(testCatalog(), newFakeClock(), nil)

	res, err := r.Resolve(context.Background(), NewDraft(), "SHIRT-BLUE-M")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	item := res.Draft.Items()[0]
	if !item.UnitPrice.Equal(dec("499")) {
		t.Errorf("price = %s, want product price", item.UnitPrice)
	}
	if item.ImageURL != "/img/shirt.png" {
		t.Errorf("image = %q", item.ImageURL)
	}
	if item.DisplayName != "Shirt (Blue)" {
		t.Errorf("display name = %q", item.DisplayName)
	}
}

func TestResolveProductWithVariantsAsksForSelection(t *testing.T) {
	for _, sku := range []string{"SHIRT", "CAP"} {
		t.Run(sku, func(t *testing.T) {
			r := newTestResolver(testCatalog(), newFakeClock(), nil)
			res, err := r.Resolve(context.Background(), NewDraft(), sku)
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if res.Kind != NeedsVariantSelection {
				t.Fatalf("kind = %s, want selection even for a single variant", res.Kind)
			}
			if res.Draft.Len() != 0 {
				t.Fatal("draft must not change before a variant is chosen")
			}
			if res.Product == nil || len(res.Product.Variants) == 0 {
				t.Fatal("product with variants should be returned for selection")
			}
		})
	}
}

func TestResolvePlainProductMergesRepeatedScans(t *testing.T) {
	clock := newFakeClock()
	r := newTestResolver(testCatalog(), clock, nil)
	ctx := context.Background()

	d := NewDraft()
	res, err := r.Resolve(ctx, d, "MUG")
	if err != nil || res.Kind != ResolvedProduct {
		t.Fatalf("first scan: %v %s", err, res.Kind)
	}
	d = res.Draft

	clock.Advance(2 * time.Second)
	res, err = r.Resolve(ctx, d, "MUG")
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}
	d = res.Draft
	if d.Len() != 1 || d.Items()[0].Quantity != 2 {
		t.Fatalf("expected one line with qty 2, got %+v", d.Items())
	}
	if res.Item == nil || res.Item.Quantity != 2 {
		t.Fatalf("resolution item = %+v", res.Item)
	}
}

func TestResolveDebouncesSameSKU(t *testing.T) {
	clock := newFakeClock()
	cat := testCatalog()
	r := newTestResolver(cat, clock, nil)
	ctx := context.Background()

	res, _ := r.Resolve(ctx, NewDraft(), "MUG")
	clock.Advance(200 * time.Millisecond)
	res, err := r.Resolve(ctx, res.Draft, "MUG")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Kind != ScanIgnored {
		t.Fatalf("kind = %s, want ignored", res.Kind)
	}
	if res.Draft.Items()[0].Quantity != 1 {
		t.Fatal("debounced scan must not change the draft")
	}
	if cat.calls != 1 {
		t.Fatalf("catalog called %d times", cat.calls)
	}
}

func TestResolveServiceAppendsNewLine(t *testing.T) {
	clock := newFakeClock()
	r := newTestResolver(testCatalog(), clock, nil)
	ctx := context.Background()

	res, _ := r.Resolve(ctx, NewDraft(), "WASH")
	clock.Advance(2 * time.Second)
	res, _ = r.Resolve(ctx, res.Draft, "WASH")
	if res.Draft.Len() != 2 {
		t.Fatalf("service rescans should append, got %d lines", res.Draft.Len())
	}
}

func TestResolveNotFoundLeavesDraftAndReleasesGate(t *testing.T) {
	clock := newFakeClock()
	var acks []Resolution
	r := newTestResolver(testCatalog(), clock, func(res Resolution) { acks = append(acks, res) })

	base, _ := NewDraft().Merge(plainItem("X", "1"))
	res, err := r.Resolve(context.Background(), base, "NOPE")
	if !errors.Is(err, ErrSKUNotFound) {
		t.Fatalf("err = %v, want ErrSKUNotFound", err)
	}
	if res.Draft.Len() != 1 {
		t.Fatal("draft changed on lookup miss")
	}
	if r.gate.Busy() {
		t.Fatal("gate left busy after a failed lookup")
	}
	if len(acks) != 1 || acks[0].Kind != ResolutionLookupMissing {
		t.Fatalf("acks = %+v", acks)
	}

	if _, err := r.Resolve(context.Background(), base, "MUG"); err != nil {
		t.Fatalf("next scan after miss: %v", err)
	}
}

func TestResolveCatalogFailure(t *testing.T) {
	boom := errors.New("connection refused")
	r := newTestResolver(&fakeCatalog{err: boom}, newFakeClock(), nil)

	_, err := r.Resolve(context.Background(), NewDraft(), "MUG")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if r.gate.Busy() {
		t.Fatal("gate left busy after catalog error")
	}
}

func TestResolveAckPanicIsContained(t *testing.T) {
	r := newTestResolver(testCatalog(), newFakeClock(), func(Resolution) { panic("socket closed") })

	res, err := r.Resolve(context.Background(), NewDraft(), "MUG")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Draft.Len() != 1 {
		t.Fatal("ack failure must not undo the merge")
	}
}

func TestResolveEmptyInput(t *testing.T) {
	r := newTestResolver(testCatalog(), newFakeClock(), nil)
	if _, err := r.Resolve(context.Background(), NewDraft(), "  "); !errors.Is(err, ErrEmptyScan) {
		t.Fatalf("err = %v", err)
	}
}

func TestSelectVariant(t *testing.T) {
	r := newTestResolver(testCatalog(), newFakeClock(), nil)
	ctx := context.Background()

	res, err := r.SelectVariant(ctx, NewDraft(), "p-single", "CAP-ONE")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	item := res.Draft.Items()[0]
	if item.DisplayName != "Cap (Free)" || item.VariantSKU != "CAP-ONE" {
		t.Fatalf("unexpected item %+v", item)
	}

	if _, err := r.SelectVariant(ctx, res.Draft, "p-mug", "CAP-ONE"); !errors.Is(err, ErrVariantNotFound) {
		t.Fatalf("variant of another product: err = %v", err)
	}
	if _, err := r.SelectVariant(ctx, res.Draft, "p-single", "MUG"); !errors.Is(err, ErrVariantNotFound) {
		t.Fatalf("product sku is not a variant: err = %v", err)
	}
}
