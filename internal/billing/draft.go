package billing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Payment statuses an invoice can carry.
const (
	PaymentPending   = "pending"
	PaymentPaid      = "paid"
	PaymentOverdue   = "overdue"
	PaymentCancelled = "cancelled"
)

// ValidPaymentStatus reports whether s is a known payment status.
func ValidPaymentStatus(s string) bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentOverdue, PaymentCancelled:
		return true
	}
	return false
}

// Customer is the buyer attached to a draft.
type Customer struct {
	ID      string
	Name    string
	Phone   string
	Email   string
	Address string
}

// Draft is an in-progress invoice. It is a value: every transition returns a
// new Draft and leaves the receiver untouched.
type Draft struct {
	customer      Customer
	items         []LineItem
	discount      decimal.Decimal
	manualAmount  decimal.Decimal
	manualLabel   string
	paymentStatus string
}

// NewDraft returns an empty draft in pending status.
func NewDraft() Draft {
	return Draft{paymentStatus: PaymentPending}
}

func (d Draft) Customer() Customer            { return d.customer }
func (d Draft) Discount() decimal.Decimal     { return d.discount }
func (d Draft) ManualAmount() decimal.Decimal { return d.manualAmount }
func (d Draft) ManualLabel() string           { return d.manualLabel }
func (d Draft) PaymentStatus() string         { return d.paymentStatus }
func (d Draft) Len() int                      { return len(d.items) }

// Items returns a copy of the line items.
func (d Draft) Items() []LineItem {
	out := make([]LineItem, len(d.items))
	copy(out, d.items)
	return out
}

// Item returns the line at index.
func (d Draft) Item(index int) (LineItem, error) {
	if index < 0 || index >= len(d.items) {
		return LineItem{}, ErrItemNotFound
	}
	return d.items[index], nil
}

// Totals are recomputed from the current items and adjustments.
func (d Draft) Totals() Totals {
	return ComputeTotals(d.items, Adjustments{Discount: d.discount, ManualAmount: d.manualAmount})
}

func (d Draft) withItems(items []LineItem) Draft {
	d.items = items
	return d
}

// Merge adds one unit of item. A non-service line with the same key is
// incremented in place; anything else is appended as a new line of quantity 1.
func (d Draft) Merge(item LineItem) (Draft, error) {
	if item.UnitPrice.IsNegative() {
		return d, ErrNegativePrice
	}
	if !validGSTRate(item.GSTRate) {
		return d, ErrInvalidGSTRate
	}

	items := d.Items()
	if !item.IsService {
		key := item.Key()
		for i := range items {
			if !items[i].IsService && items[i].Key() == key {
				items[i].Quantity++
				return d.withItems(items), nil
			}
		}
	}

	item.Quantity = 1
	return d.withItems(append(items, item)), nil
}

// RemoveItem drops the line at index.
func (d Draft) RemoveItem(index int) (Draft, error) {
	if index < 0 || index >= len(d.items) {
		return d, ErrItemNotFound
	}
	items := make([]LineItem, 0, len(d.items)-1)
	items = append(items, d.items[:index]...)
	items = append(items, d.items[index+1:]...)
	return d.withItems(items), nil
}

func (d Draft) updateItem(index int, fn func(*LineItem)) (Draft, error) {
	if index < 0 || index >= len(d.items) {
		return d, ErrItemNotFound
	}
	items := d.Items()
	fn(&items[index])
	return d.withItems(items), nil
}

// SetQuantity changes the quantity of a line. Quantities below 1 are rejected.
func (d Draft) SetQuantity(index, qty int) (Draft, error) {
	if qty < 1 {
		return d, ErrInvalidQuantity
	}
	return d.updateItem(index, func(li *LineItem) { li.Quantity = qty })
}

// SetUnitPrice overrides the price of a line.
func (d Draft) SetUnitPrice(index int, price decimal.Decimal) (Draft, error) {
	if price.IsNegative() {
		return d, ErrNegativePrice
	}
	return d.updateItem(index, func(li *LineItem) { li.UnitPrice = price })
}

// SetGSTRate changes the GST percentage of a line.
func (d Draft) SetGSTRate(index, rate int) (Draft, error) {
	if !validGSTRate(rate) {
		return d, ErrInvalidGSTRate
	}
	return d.updateItem(index, func(li *LineItem) { li.GSTRate = rate })
}

func (d Draft) WithDiscount(amount decimal.Decimal) (Draft, error) {
	if amount.IsNegative() {
		return d, ErrNegativeDiscount
	}
	d.discount = amount
	return d, nil
}

func (d Draft) WithManualAmount(amount decimal.Decimal, label string) (Draft, error) {
	if amount.IsNegative() {
		return d, ErrNegativeManualAmount
	}
	d.manualAmount = amount
	d.manualLabel = strings.TrimSpace(label)
	return d, nil
}

func (d Draft) WithCustomer(c Customer) Draft {
	c.Name = strings.TrimSpace(c.Name)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Email = strings.TrimSpace(c.Email)
	c.Address = strings.TrimSpace(c.Address)
	d.customer = c
	return d
}

func (d Draft) WithPaymentStatus(status string) (Draft, error) {
	if !ValidPaymentStatus(status) {
		return d, ErrInvalidPaymentStatus
	}
	d.paymentStatus = status
	return d, nil
}
