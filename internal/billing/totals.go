package billing

import "github.com/shopspring/decimal"

// Adjustments are the manual, invoice-level amounts entered by the operator.
type Adjustments struct {
	Discount     decimal.Decimal
	ManualAmount decimal.Decimal // untaxed additional charge
}

// Totals is the derived money block of an invoice.
type Totals struct {
	Subtotal  decimal.Decimal
	GSTAmount decimal.Decimal
	Total     decimal.Decimal
}

// ComputeTotals derives subtotal, GST and grand total.
//
// GST is charged per line on the line total only; the manual amount is added to
// the subtotal untaxed. A discount larger than the subtotal yields a negative total.
func ComputeTotals(items []LineItem, adj Adjustments) Totals {
	subtotal := decimal.Zero
	gst := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
		gst = gst.Add(item.GST())
	}
	subtotal = subtotal.Add(adj.ManualAmount)

	return Totals{
		Subtotal:  subtotal,
		GSTAmount: gst,
		Total:     subtotal.Add(gst).Sub(adj.Discount),
	}
}

// DisplayTotals is Totals rendered with two decimals.
type DisplayTotals struct {
	Subtotal  string `json:"subtotal"`
	GSTAmount string `json:"gst_amount"`
	Total     string `json:"total"`
}

func (t Totals) Display() DisplayTotals {
	return DisplayTotals{
		Subtotal:  FormatAmount(t.Subtotal),
		GSTAmount: FormatAmount(t.GSTAmount),
		Total:     FormatAmount(t.Total),
	}
}

// FormatAmount renders money with two decimals for display.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
