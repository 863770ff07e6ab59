package billing

import (
	"fmt"

	"storefront-erp/pkg/apperror"
)

var (
	ErrInvalidQuantity       = apperror.Validation("quantity must be at least 1")
	ErrNegativePrice         = apperror.Validation("unit price cannot be negative")
	ErrInvalidGSTRate        = apperror.Validation("gst rate must be between 0 and 100")
	ErrNegativeDiscount      = apperror.Validation("discount cannot be negative")
	ErrNegativeManualAmount  = apperror.Validation("manual amount cannot be negative")
	ErrInvalidPaymentStatus  = apperror.Validation("payment status must be one of pending, paid, overdue, cancelled")
	ErrItemNotFound          = apperror.NotFound("line item not found")
	ErrCustomerNameRequired  = apperror.Validation("customer name is required")
	ErrCustomerPhoneRequired = apperror.Validation("customer phone is required")
	ErrNoItems               = apperror.Validation("add at least one item to the invoice")
	ErrEmptyScan             = apperror.Validation("scan input is empty")
	ErrSKUNotFound           = apperror.NotFound("could not find product with this SKU")
	ErrVariantNotFound       = apperror.NotFound("variant not found for this product")
)

// UnresolvedVariantError marks a line whose product has variants but which was
// added without choosing one.
type UnresolvedVariantError struct {
	Index int
	Name  string
}

func (e *UnresolvedVariantError) Error() string {
	return fmt.Sprintf("item %d (%s) has no variant selected, rescan item", e.Index+1, e.Name)
}

func (e *UnresolvedVariantError) Unwrap() error { return apperror.ErrValidation }
