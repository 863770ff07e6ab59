package billing

import "github.com/shopspring/decimal"

// SubmissionItem is one normalized invoice line ready to be persisted.
type SubmissionItem struct {
	ProductID   string
	SKU         string // variant SKU when present, else product SKU
	VariantSKU  string
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	GSTRate     int
	LineTotal   decimal.Decimal
	IsService   bool
}

// Submission is the normalized payload sent to invoice creation.
type Submission struct {
	Customer      Customer
	Items         []SubmissionItem
	Discount      decimal.Decimal
	ManualAmount  decimal.Decimal
	ManualLabel   string
	PaymentStatus string
	Totals        Totals
}

// ValidateForSubmit checks that a draft can become an invoice: a named
// customer with a phone, at least one line, and no line whose product has
// variants but no variant chosen.
func ValidateForSubmit(d Draft) error {
	if d.customer.Name == "" {
		return ErrCustomerNameRequired
	}
	if d.customer.Phone == "" {
		return ErrCustomerPhoneRequired
	}
	if len(d.items) == 0 {
		return ErrNoItems
	}
	for i, item := range d.items {
		if item.HasVariants && item.VariantSKU == "" {
			return &UnresolvedVariantError{Index: i, Name: item.DisplayName}
		}
	}
	return nil
}

// BuildSubmission validates d and flattens it into a Submission.
func BuildSubmission(d Draft) (Submission, error) {
	if err := ValidateForSubmit(d); err != nil {
		return Submission{}, err
	}

	items := make([]SubmissionItem, 0, len(d.items))
	for _, li := range d.items {
		items = append(items, SubmissionItem{
			ProductID:   li.ProductID,
			SKU:         li.Key(),
			VariantSKU:  li.VariantSKU,
			ProductName: li.DisplayName,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice,
			GSTRate:     li.GSTRate,
			LineTotal:   li.LineTotal(),
			IsService:   li.IsService,
		})
	}

	return Submission{
		Customer:      d.customer,
		Items:         items,
		Discount:      d.discount,
		ManualAmount:  d.manualAmount,
		ManualLabel:   d.manualLabel,
		PaymentStatus: d.paymentStatus,
		Totals:        d.Totals(),
	}, nil
}
