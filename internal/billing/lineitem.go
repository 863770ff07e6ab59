// Package billing holds the invoice-draft rules shared by the counter API and
// invoice creation: line items, GST totals, scan payload parsing, SKU/variant
// resolution and the submission guard. Nothing here touches the database.
package billing

import (
	"github.com/shopspring/decimal"
)

// DefaultGSTRate is applied when a line item does not carry a rate.
const DefaultGSTRate = 18

var hundred = decimal.NewFromInt(100)

// LineItem is one product or variant on an in-progress invoice.
type LineItem struct {
	ProductID   string
	SKU         string
	VariantSKU  string
	HasVariants bool // the product has variants, so VariantSKU must be set before submit
	DisplayName string
	ImageURL    string
	Quantity    int
	UnitPrice   decimal.Decimal
	GSTRate     int
	IsService   bool
}

// Key is the de-duplication key used when the same item is scanned again:
// variant SKU, else SKU, else product id.
func (li LineItem) Key() string {
	switch {
	case li.VariantSKU != "":
		return li.VariantSKU
	case li.SKU != "":
		return li.SKU
	default:
		return li.ProductID
	}
}

// LineTotal is always derived from quantity and unit price.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// GST is the tax on this line at its own rate.
func (li LineItem) GST() decimal.Decimal {
	return li.LineTotal().Mul(decimal.NewFromInt(int64(li.GSTRate))).Div(hundred)
}

// GSTRateOrDefault resolves an optional rate coming from a request body.
func GSTRateOrDefault(rate *int) int {
	if rate == nil {
		return DefaultGSTRate
	}
	return *rate
}

func validGSTRate(rate int) bool {
	return rate >= 0 && rate <= 100
}
