package billing

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ScanPayload is what a barcode/QR scanner delivered, after parsing.
// It is either a PlainSKU or a StructuredPayload.
type ScanPayload interface {
	SKU() string
	isScanPayload()
}

// PlainSKU is raw scanner text used verbatim as the SKU.
type PlainSKU string

func (p PlainSKU) SKU() string  { return string(p) }
func (PlainSKU) isScanPayload() {}

// StructuredPayload is a JSON object printed into product QR labels.
type StructuredPayload struct {
	VariantSKU string
	ProductSKU string
	ID         string
	Name       string
}

// SKU picks the most specific identifier present: variant SKU, then product
// SKU, then id.
func (p StructuredPayload) SKU() string {
	switch {
	case p.VariantSKU != "":
		return p.VariantSKU
	case p.ProductSKU != "":
		return p.ProductSKU
	default:
		return p.ID
	}
}

func (StructuredPayload) isScanPayload() {}

// ParseScanPayload never fails. Anything that is not a JSON object carrying a
// usable identifier falls back to the trimmed raw text.
func ParseScanPayload(raw string) ScanPayload {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return PlainSKU(trimmed)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(trimmed)))
	dec.UseNumber()
	var obj map[string]interface{}
	if err := dec.Decode(&obj); err != nil {
		return PlainSKU(trimmed)
	}

	p := StructuredPayload{
		VariantSKU: field(obj, "v_sku"),
		ProductSKU: field(obj, "sku"),
		ID:         field(obj, "id"),
		Name:       field(obj, "name"),
	}
	if p.SKU() == "" {
		return PlainSKU(trimmed)
	}
	return p
}

func field(obj map[string]interface{}, key string) string {
	switch v := obj[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}
