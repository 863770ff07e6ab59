package billing

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"
)

// CatalogVariant is the billing view of a product variant.
type CatalogVariant struct {
	VariantSKU   string
	VariantName  string
	Color        string
	Size         string
	ImageURL     string
	SellingPrice decimal.Decimal // zero means inherit the product price
	Stock        int
}

// Label is the human name of a variant.
func (v CatalogVariant) Label() string {
	switch {
	case v.VariantName != "":
		return v.VariantName
	case v.Color != "":
		return v.Color
	case v.Size != "":
		return v.Size
	default:
		return "Variant"
	}
}

// CatalogProduct is the billing view of a product.
type CatalogProduct struct {
	ID           string
	SKU          string
	Name         string
	SellingPrice decimal.Decimal
	Images       []string
	IsService    bool
	Variants     []CatalogVariant
}

func (p CatalogProduct) HasVariants() bool { return len(p.Variants) > 0 }

func (p CatalogProduct) firstImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// CatalogMatch is a SKU lookup hit. Variant is set when the SKU belongs to a
// variant rather than to the product itself.
type CatalogMatch struct {
	Product CatalogProduct
	Variant *CatalogVariant
}

// Catalog looks products up by SKU. Implementations return ErrSKUNotFound
// (or anything wrapping it) on a miss.
type Catalog interface {
	LookupSKU(ctx context.Context, sku string) (CatalogMatch, error)
}

type ResolutionKind string

const (
	ResolvedVariant         ResolutionKind = "variant_added"
	ResolvedProduct         ResolutionKind = "product_added"
	NeedsVariantSelection   ResolutionKind = "needs_variant_selection"
	ScanIgnored             ResolutionKind = "ignored"
	ResolutionLookupMissing ResolutionKind = "not_found"
)

// Resolution is the outcome of a scan or of a variant selection.
type Resolution struct {
	Kind    ResolutionKind
	SKU     string
	Draft   Draft
	Item    *LineItem       // the merged line, for the *_added kinds
	Product *CatalogProduct // set when the operator must pick a variant
	Message string
}

// AckFunc is notified after every handled scan so the scanning device can
// show feedback. It must not block.
type AckFunc func(Resolution)

// Resolver turns scanner input into draft changes for one terminal.
type Resolver struct {
	catalog Catalog
	gate    *ScanGate
	ack     AckFunc
}

func NewResolver(catalog Catalog, gate *ScanGate, ack AckFunc) *Resolver {
	if gate == nil {
		gate = NewScanGate(DefaultScanWindow)
	}
	return &Resolver{catalog: catalog, gate: gate, ack: ack}
}

// Resolve parses raw, looks the SKU up and merges the result into draft.
//
// Products with variants are never added directly, even with a single
// variant: the caller gets NeedsVariantSelection and the draft unchanged.
// A lookup miss returns ErrSKUNotFound together with the unchanged draft.
func (r *Resolver) Resolve(ctx context.Context, draft Draft, raw string) (Resolution, error) {
	sku := ParseScanPayload(raw).SKU()
	if sku == "" {
		return Resolution{Kind: ScanIgnored, Draft: draft}, ErrEmptyScan
	}

	release, ok := r.gate.Acquire(sku)
	if !ok {
		return Resolution{Kind: ScanIgnored, SKU: sku, Draft: draft, Message: "duplicate scan ignored"}, nil
	}
	defer release()

	match, err := r.catalog.LookupSKU(ctx, sku)
	if err != nil {
		if errors.Is(err, ErrSKUNotFound) {
			res := Resolution{Kind: ResolutionLookupMissing, SKU: sku, Draft: draft, Message: ErrSKUNotFound.Error()}
			r.acknowledge(res)
			return res, ErrSKUNotFound
		}
		return Resolution{SKU: sku, Draft: draft}, fmt.Errorf("lookup sku %s: %w", sku, err)
	}

	var res Resolution
	switch {
	case match.Variant != nil:
		res, err = mergeResolved(draft, VariantLine(match.Product, *match.Variant), ResolvedVariant)
	case match.Product.HasVariants():
		product := match.Product
		res = Resolution{Kind: NeedsVariantSelection, Draft: draft, Product: &product, Message: "select a variant"}
	default:
		res, err = mergeResolved(draft, ProductLine(match.Product), ResolvedProduct)
	}
	if err != nil {
		return Resolution{SKU: sku, Draft: draft}, err
	}
	res.SKU = sku
	r.acknowledge(res)
	return res, nil
}

// SelectVariant completes a NeedsVariantSelection outcome with the variant
// the operator picked. It bypasses the scan gate.
func (r *Resolver) SelectVariant(ctx context.Context, draft Draft, productID, variantSKU string) (Resolution, error) {
	match, err := r.catalog.LookupSKU(ctx, variantSKU)
	if err != nil {
		if errors.Is(err, ErrSKUNotFound) {
			return Resolution{Draft: draft}, ErrVariantNotFound
		}
		return Resolution{Draft: draft}, fmt.Errorf("lookup variant %s: %w", variantSKU, err)
	}
	if match.Variant == nil || (productID != "" && match.Product.ID != productID) {
		return Resolution{Draft: draft}, ErrVariantNotFound
	}

	res, err := mergeResolved(draft, VariantLine(match.Product, *match.Variant), ResolvedVariant)
	if err != nil {
		return Resolution{Draft: draft}, err
	}
	res.SKU = variantSKU
	return res, nil
}

func mergeResolved(draft Draft, item LineItem, kind ResolutionKind) (Resolution, error) {
	next, err := draft.Merge(item)
	if err != nil {
		return Resolution{}, err
	}
	var merged LineItem
	for _, li := range next.items {
		if li.Key() == item.Key() {
			merged = li
		}
	}
	return Resolution{Kind: kind, Draft: next, Item: &merged}, nil
}

func (r *Resolver) acknowledge(res Resolution) {
	if r.ack == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("scan ack failed: %v", rec)
		}
	}()
	r.ack(res)
}

// VariantLine builds the line item for a variant. The variant price wins when
// it is set; otherwise the product price is used.
func VariantLine(p CatalogProduct, v CatalogVariant) LineItem {
	price := p.SellingPrice
	if v.SellingPrice.IsPositive() {
		price = v.SellingPrice
	}
	image := v.ImageURL
	if image == "" {
		image = p.firstImage()
	}
	return LineItem{
		ProductID:   p.ID,
		SKU:         p.SKU,
		VariantSKU:  v.VariantSKU,
		HasVariants: true,
		DisplayName: fmt.Sprintf("%s (%s)", p.Name, v.Label()),
		ImageURL:    image,
		Quantity:    1,
		UnitPrice:   price,
		GSTRate:     DefaultGSTRate,
		IsService:   p.IsService,
	}
}

// ProductLine builds the line item for a product without variants.
func ProductLine(p CatalogProduct) LineItem {
	return LineItem{
		ProductID:   p.ID,
		SKU:         p.SKU,
		HasVariants: p.HasVariants(),
		DisplayName: p.Name,
		ImageURL:    p.firstImage(),
		Quantity:    1,
		UnitPrice:   p.SellingPrice,
		GSTRate:     DefaultGSTRate,
		IsService:   p.IsService,
	}
}
