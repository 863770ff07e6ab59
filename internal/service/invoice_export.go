package service

import (
	"context"
	"fmt"

	"storefront-erp/internal/model"
	"storefront-erp/pkg/pagination"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "Invoices"

var exportHeader = []interface{}{
	"Invoice No", "Date", "Customer", "Phone", "Status",
	"Items", "Subtotal", "GST", "Discount", "Manual Amount", "Total",
}

// Export renders every invoice matching query as an xlsx workbook, newest first.
// Page and Limit are ignored.
func (s *invoiceService) Export(ctx context.Context, query InvoiceQuery) ([]byte, error) {
	query.Page, query.Limit = 1, pagination.MaxLimit
	filter, err := s.invoiceFilter(query)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return nil, err
	}

	row := 2
	for {
		invoices, total, err := s.invoiceRepo.List(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch invoices: %w", err)
		}
		for i := range invoices {
			cell, _ := excelize.CoordinatesToCellName(1, row)
			values := s.exportRow(&invoices[i])
			if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
				return nil, err
			}
			row++
		}
		if int64(filter.Page*filter.Limit) >= total || len(invoices) == 0 {
			break
		}
		filter.Page++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *invoiceService) exportRow(inv *model.Invoice) []interface{} {
	var name, phone string
	if inv.Customer != nil {
		name, phone = inv.Customer.Name, inv.Customer.Phone
	}
	qty := 0
	for _, it := range inv.Items {
		qty += it.Quantity
	}
	return []interface{}{
		inv.InvoiceNumber,
		inv.CreatedAt.In(s.loc).Format("2006-01-02 15:04"),
		name,
		phone,
		inv.PaymentStatus,
		qty,
		inv.Subtotal.Round(2).InexactFloat64(),
		inv.GSTAmount.Round(2).InexactFloat64(),
		inv.Discount.Round(2).InexactFloat64(),
		inv.ManualAmount.Round(2).InexactFloat64(),
		inv.Total.Round(2).InexactFloat64(),
	}
}
