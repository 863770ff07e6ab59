package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront-erp/internal/billing"
	"storefront-erp/internal/model"
	"storefront-erp/internal/repository"
	"storefront-erp/internal/websocket"
	"storefront-erp/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type InvoiceItemRequest struct {
	ProductID  string           `json:"product_id"`
	SKU        string           `json:"sku"`
	VariantSKU string           `json:"variant_sku"`
	Quantity   int              `json:"quantity" binding:"required,gt=0"`
	UnitPrice  *decimal.Decimal `json:"unit_price"` // catalog price when omitted
	GSTRate    *int             `json:"gst_rate" binding:"omitempty,gte=0,lte=100"`
}

type CreateInvoiceRequest struct {
	CustomerID      string               `json:"customer_id"`
	CustomerName    string               `json:"customer_name"`
	CustomerPhone   string               `json:"customer_phone"`
	CustomerEmail   string               `json:"customer_email"`
	CustomerAddress string               `json:"customer_address"`
	Items           []InvoiceItemRequest `json:"items" binding:"required,min=1,dive"`
	Discount        decimal.Decimal      `json:"discount"`
	ManualAmount    decimal.Decimal      `json:"manual_amount"`
	ManualLabel     string               `json:"manual_label"`
	PaymentStatus   string               `json:"payment_status" binding:"omitempty,oneof=pending paid overdue cancelled"`
	Notes           string               `json:"notes"`
}

type PreviewItem struct {
	Quantity  int             `json:"quantity" binding:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	GSTRate   *int            `json:"gst_rate" binding:"omitempty,gte=0,lte=100"`
}

type PreviewRequest struct {
	Items        []PreviewItem   `json:"items" binding:"dive"`
	Discount     decimal.Decimal `json:"discount"`
	ManualAmount decimal.Decimal `json:"manual_amount"`
}

type PreviewResponse struct {
	LineTotals []string `json:"line_totals"`
	billing.DisplayTotals
}

type UpdateInvoiceStatusRequest struct {
	PaymentStatus string `json:"payment_status" binding:"required,oneof=pending paid overdue cancelled"`
}

// InvoiceQuery is the listing filter as it arrives from the API.
type InvoiceQuery struct {
	Status string // paid, pending, cancelled, overdue, ending
	Range  string // last10, last30
	Month  string // YYYY-MM
	Page   int
	Limit  int
}

type InvoiceItemResponse struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	SKU         string `json:"sku"`
	VariantSKU  string `json:"variant_sku,omitempty"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	GSTRate     int    `json:"gst_rate"`
	LineTotal   string `json:"line_total"`
	IsService   bool   `json:"is_service"`
}

type InvoiceResponse struct {
	ID            string                `json:"id"`
	InvoiceNumber string                `json:"invoice_number"`
	CustomerID    string                `json:"customer_id"`
	Customer      *CustomerResponse     `json:"customer,omitempty"`
	Items         []InvoiceItemResponse `json:"items"`
	Subtotal      string                `json:"subtotal"`
	GSTAmount     string                `json:"gst_amount"`
	Discount      string                `json:"discount"`
	ManualAmount  string                `json:"manual_amount"`
	ManualLabel   string                `json:"manual_label"`
	Total         string                `json:"total"`
	PaymentStatus string                `json:"payment_status"`
	Notes         string                `json:"notes"`
	CreatedAt     string                `json:"created_at"`
}

// --- Interface ---

type InvoiceService interface {
	Preview(req PreviewRequest) (PreviewResponse, error)
	CreateInvoice(ctx context.Context, userID string, req CreateInvoiceRequest) (InvoiceResponse, error)
	ListInvoices(ctx context.Context, query InvoiceQuery) ([]InvoiceResponse, int64, error)
	Export(ctx context.Context, query InvoiceQuery) ([]byte, error)
	GetInvoice(ctx context.Context, id string) (InvoiceResponse, error)
	UpdateStatus(ctx context.Context, userID, id string, req UpdateInvoiceStatusRequest) (InvoiceResponse, error)
}

type invoiceService struct {
	invoiceRepo  repository.InvoiceRepository
	productRepo  repository.ProductRepository
	customerRepo repository.CustomerRepository
	txRepo       repository.InventoryTxRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	events       EventPublisher
	loc          *time.Location
	now          func() time.Time
}

func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	productRepo repository.ProductRepository,
	customerRepo repository.CustomerRepository,
	txRepo repository.InventoryTxRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	events EventPublisher,
	loc *time.Location,
) InvoiceService {
	if loc == nil {
		loc = time.UTC
	}
	return &invoiceService{
		invoiceRepo:  invoiceRepo,
		productRepo:  productRepo,
		customerRepo: customerRepo,
		txRepo:       txRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		events:       events,
		loc:          loc,
		now:          time.Now,
	}
}

// RequestFromSubmission turns a validated counter draft into an invoice request.
func RequestFromSubmission(sub billing.Submission) CreateInvoiceRequest {
	req := CreateInvoiceRequest{
		CustomerID:      sub.Customer.ID,
		CustomerName:    sub.Customer.Name,
		CustomerPhone:   sub.Customer.Phone,
		CustomerEmail:   sub.Customer.Email,
		CustomerAddress: sub.Customer.Address,
		Items:           make([]InvoiceItemRequest, 0, len(sub.Items)),
		Discount:        sub.Discount,
		ManualAmount:    sub.ManualAmount,
		ManualLabel:     sub.ManualLabel,
		PaymentStatus:   sub.PaymentStatus,
	}
	for _, item := range sub.Items {
		price := item.UnitPrice
		rate := item.GSTRate
		line := InvoiceItemRequest{
			ProductID:  item.ProductID,
			VariantSKU: item.VariantSKU,
			Quantity:   item.Quantity,
			UnitPrice:  &price,
			GSTRate:    &rate,
		}
		if item.VariantSKU == "" {
			line.SKU = item.SKU
		}
		req.Items = append(req.Items, line)
	}
	return req
}

// --- Implementation ---

func (s *invoiceService) Preview(req PreviewRequest) (PreviewResponse, error) {
	if req.Discount.IsNegative() {
		return PreviewResponse{}, billing.ErrNegativeDiscount
	}
	if req.ManualAmount.IsNegative() {
		return PreviewResponse{}, billing.ErrNegativeManualAmount
	}

	items := make([]billing.LineItem, 0, len(req.Items))
	lines := make([]string, 0, len(req.Items))
	for _, it := range req.Items {
		if it.Quantity < 1 {
			return PreviewResponse{}, billing.ErrInvalidQuantity
		}
		if it.UnitPrice.IsNegative() {
			return PreviewResponse{}, billing.ErrNegativePrice
		}
		rate := billing.GSTRateOrDefault(it.GSTRate)
		if rate < 0 || rate > 100 {
			return PreviewResponse{}, billing.ErrInvalidGSTRate
		}
		li := billing.LineItem{Quantity: it.Quantity, UnitPrice: it.UnitPrice, GSTRate: rate}
		items = append(items, li)
		lines = append(lines, billing.FormatAmount(li.LineTotal()))
	}

	totals := billing.ComputeTotals(items, billing.Adjustments{Discount: req.Discount, ManualAmount: req.ManualAmount})
	return PreviewResponse{LineTotals: lines, DisplayTotals: totals.Display()}, nil
}

func (s *invoiceService) CreateInvoice(ctx context.Context, userID string, req CreateInvoiceRequest) (InvoiceResponse, error) {
	if len(req.Items) == 0 {
		return InvoiceResponse{}, billing.ErrNoItems
	}
	if req.Discount.IsNegative() {
		return InvoiceResponse{}, billing.ErrNegativeDiscount
	}
	if req.ManualAmount.IsNegative() {
		return InvoiceResponse{}, billing.ErrNegativeManualAmount
	}
	status := req.PaymentStatus
	if status == "" {
		status = billing.PaymentPending
	}
	if !billing.ValidPaymentStatus(status) {
		return InvoiceResponse{}, billing.ErrInvalidPaymentStatus
	}

	invoice := model.Invoice{
		ID:            uuid.New(),
		Discount:      req.Discount,
		ManualAmount:  req.ManualAmount,
		ManualLabel:   strings.TrimSpace(req.ManualLabel),
		PaymentStatus: status,
		Notes:         strings.TrimSpace(req.Notes),
		CreatedBy:     parseUserID(userID),
	}
	var moved []stockTarget

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		customer, err := s.resolveCustomer(txCtx, userID, req)
		if err != nil {
			return err
		}
		invoice.CustomerID = customer.ID

		lines := make([]billing.LineItem, 0, len(req.Items))
		for i, item := range req.Items {
			target, err := s.lockInvoiceLine(txCtx, item)
			if err != nil {
				return fmt.Errorf("item %d: %w", i+1, err)
			}

			line, err := invoiceLine(target, item)
			if err != nil {
				return err
			}

			if !target.product.IsService {
				if _, err := applyStockMove(txCtx, s.productRepo, s.txRepo, target, stockMove{
					Type:        model.TxTypeOut,
					Quantity:    item.Quantity,
					Source:      model.TxSourceInvoice,
					Reason:      "Invoice sale",
					ReferenceID: &invoice.ID,
					UserID:      userID,
				}); err != nil {
					if errors.Is(err, apperror.ErrValidation) {
						return apperror.Validation("%s: %s", target.name(), err.Error())
					}
					return err
				}
				moved = append(moved, target)
			}

			lines = append(lines, line)
			invoice.Items = append(invoice.Items, model.InvoiceItem{
				ProductID:   target.product.ID,
				SKU:         line.SKU,
				VariantSKU:  line.VariantSKU,
				ProductName: line.DisplayName,
				Quantity:    line.Quantity,
				UnitPrice:   line.UnitPrice,
				GSTRate:     line.GSTRate,
				LineTotal:   line.LineTotal(),
				IsService:   line.IsService,
			})
		}

		totals := billing.ComputeTotals(lines, billing.Adjustments{Discount: req.Discount, ManualAmount: req.ManualAmount})
		invoice.Subtotal = totals.Subtotal
		invoice.GSTAmount = totals.GSTAmount
		invoice.Total = totals.Total

		invoice.InvoiceNumber, err = s.generateInvoiceNo(txCtx)
		if err != nil {
			return fmt.Errorf("failed to generate invoice number: %w", err)
		}

		if err := s.invoiceRepo.Create(txCtx, &invoice); err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}

		return writeAudit(txCtx, s.auditRepo, userID, model.ActionCreateInvoice, invoice.ID.String(), invoice.InvoiceNumber, map[string]interface{}{
			"customer_id": customer.ID.String(),
			"total":       invoice.Total.StringFixed(2),
			"items":       len(invoice.Items),
		})
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	reloaded, err := s.invoiceRepo.FindByID(ctx, invoice.ID)
	if err != nil {
		return InvoiceResponse{}, fmt.Errorf("failed to reload invoice: %w", err)
	}
	res := toInvoiceResponse(reloaded)

	publish(s.events, websocket.EventInvoiceCreated, res)
	for _, t := range moved {
		publish(s.events, websocket.EventStockUpdated, stockEvent(t))
	}
	return res, nil
}

// resolveCustomer picks the buyer by id, then by phone, and creates one when
// neither matches.
func (s *invoiceService) resolveCustomer(ctx context.Context, userID string, req CreateInvoiceRequest) (*model.Customer, error) {
	if id := strings.TrimSpace(req.CustomerID); id != "" {
		customerID, err := parseID(id, "customer")
		if err != nil {
			return nil, err
		}
		customer, err := s.customerRepo.FindByID(ctx, customerID)
		if err != nil {
			return nil, lookupErr(err, "customer")
		}
		return customer, nil
	}

	creq, err := normalizeCustomer(CustomerRequest{
		Name:    req.CustomerName,
		Phone:   req.CustomerPhone,
		Email:   req.CustomerEmail,
		Address: req.CustomerAddress,
	})
	if err != nil {
		return nil, err
	}

	customer, err := s.customerRepo.FindByPhone(ctx, creq.Phone)
	if err == nil {
		return customer, nil
	}
	if !repository.IsNotFound(err) {
		return nil, fmt.Errorf("database error: %w", err)
	}

	customer = &model.Customer{Name: creq.Name, Phone: creq.Phone, Email: creq.Email, Address: creq.Address}
	if err := s.customerRepo.Create(ctx, customer); err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}
	if err := writeAudit(ctx, s.auditRepo, userID, model.ActionCreateCustomer, customer.ID.String(), customer.Name, nil); err != nil {
		return nil, err
	}
	return customer, nil
}

// lockInvoiceLine finds and locks the stock row behind a requested line: by
// variant SKU, then SKU, then product id.
func (s *invoiceService) lockInvoiceLine(ctx context.Context, item InvoiceItemRequest) (stockTarget, error) {
	vsku := strings.TrimSpace(item.VariantSKU)
	sku := strings.TrimSpace(item.SKU)

	var productID uuid.UUID
	switch {
	case vsku != "":
		variant, err := s.productRepo.FindVariantBySKU(ctx, vsku)
		if err != nil {
			if repository.IsNotFound(err) {
				return stockTarget{}, apperror.NotFound("variant %s not found", vsku)
			}
			return stockTarget{}, fmt.Errorf("database error: %w", err)
		}
		productID = variant.ProductID
	case sku != "":
		product, variant, err := findBySKU(ctx, s.productRepo, sku)
		if err != nil {
			return stockTarget{}, err
		}
		productID = product.ID
		if variant != nil {
			vsku = variant.VSKU
		}
	case item.ProductID != "":
		id, err := parseID(item.ProductID, "product")
		if err != nil {
			return stockTarget{}, err
		}
		productID = id
	default:
		return stockTarget{}, apperror.Validation("item needs a product id, sku or variant sku")
	}

	if item.ProductID != "" {
		if id, err := uuid.Parse(item.ProductID); err == nil && id != productID {
			return stockTarget{}, apperror.Validation("sku does not belong to product %s", item.ProductID)
		}
	}

	target, err := lockStockTarget(ctx, s.productRepo, productID, vsku)
	if err != nil {
		return stockTarget{}, err
	}
	if target.variant == nil && target.product.HasVariants() {
		return stockTarget{}, apperror.Validation("%s has variants but no variant was selected, rescan item", target.product.Name)
	}
	return target, nil
}

// invoiceLine prices a locked line and checks it against the catalog floor.
func invoiceLine(target stockTarget, item InvoiceItemRequest) (billing.LineItem, error) {
	if item.Quantity < 1 {
		return billing.LineItem{}, billing.ErrInvalidQuantity
	}
	rate := billing.GSTRateOrDefault(item.GSTRate)
	if rate < 0 || rate > 100 {
		return billing.LineItem{}, billing.ErrInvalidGSTRate
	}

	catalog := toCatalogProduct(target.product)
	var line billing.LineItem
	if target.variant != nil {
		line = billing.VariantLine(catalog, toCatalogVariant(target.variant))
	} else {
		line = billing.ProductLine(catalog)
	}
	line.Quantity = item.Quantity
	line.GSTRate = rate
	if item.UnitPrice != nil {
		line.UnitPrice = *item.UnitPrice
	}

	if line.UnitPrice.IsNegative() {
		return billing.LineItem{}, billing.ErrNegativePrice
	}
	if line.UnitPrice.LessThan(target.product.MinSellingPrice) {
		return billing.LineItem{}, apperror.Validation("price for %s cannot be below minimum selling price %s",
			line.DisplayName, billing.FormatAmount(target.product.MinSellingPrice))
	}
	return line, nil
}

// generateInvoiceNo numbers invoices per Indian financial year, which starts
// on 1 April: INV-25-26-0001.
func (s *invoiceService) generateInvoiceNo(ctx context.Context) (string, error) {
	prefix := invoicePrefix(s.now().In(s.loc))

	count, err := s.invoiceRepo.CountByPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%04d", prefix, count+1), nil
}

func invoicePrefix(t time.Time) string {
	start := t.Year()
	if t.Month() < time.April {
		start--
	}
	return fmt.Sprintf("INV-%02d-%02d-", start%100, (start+1)%100)
}

func (s *invoiceService) ListInvoices(ctx context.Context, query InvoiceQuery) ([]InvoiceResponse, int64, error) {
	filter, err := s.invoiceFilter(query)
	if err != nil {
		return nil, 0, err
	}

	invoices, total, err := s.invoiceRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch invoices: %w", err)
	}

	result := make([]InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		result = append(result, toInvoiceResponse(&invoices[i]))
	}
	return result, total, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// invoiceFilter translates the API listing query into a date window in the
// shop's timezone.
func (s *invoiceService) invoiceFilter(q InvoiceQuery) (repository.InvoiceFilter, error) {
	filter := repository.InvoiceFilter{Page: q.Page, Limit: q.Limit}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	today := startOfDay(s.now().In(s.loc))
	narrow := func(from, to *time.Time) {
		if from != nil && (filter.From == nil || from.After(*filter.From)) {
			filter.From = from
		}
		if to != nil && (filter.To == nil || to.Before(*filter.To)) {
			filter.To = to
		}
	}

	switch q.Range {
	case "":
	case "last10":
		from := today.AddDate(0, 0, -9)
		narrow(&from, nil)
	case "last30":
		from := today.AddDate(0, 0, -29)
		narrow(&from, nil)
	default:
		return filter, apperror.Validation("range must be last10 or last30")
	}

	if q.Month != "" {
		month, err := time.ParseInLocation("2006-01", q.Month, s.loc)
		if err != nil {
			return filter, apperror.Validation("month must be YYYY-MM")
		}
		end := month.AddDate(0, 1, 0)
		narrow(&month, &end)
	}

	switch q.Status {
	case "":
	case billing.PaymentPaid, billing.PaymentPending, billing.PaymentCancelled:
		filter.Status = q.Status
	case billing.PaymentOverdue:
		filter.UnpaidOnly = true
		narrow(nil, &today)
	case "ending":
		end := today.AddDate(0, 0, 5)
		filter.UnpaidOnly = true
		narrow(&today, &end)
	default:
		return filter, apperror.Validation("unknown status filter %s", q.Status)
	}
	return filter, nil
}

func (s *invoiceService) GetInvoice(ctx context.Context, id string) (InvoiceResponse, error) {
	invoiceID, err := parseID(id, "invoice")
	if err != nil {
		return InvoiceResponse{}, err
	}
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return InvoiceResponse{}, lookupErr(err, "invoice")
	}
	return toInvoiceResponse(invoice), nil
}

func (s *invoiceService) UpdateStatus(ctx context.Context, userID, id string, req UpdateInvoiceStatusRequest) (InvoiceResponse, error) {
	invoiceID, err := parseID(id, "invoice")
	if err != nil {
		return InvoiceResponse{}, err
	}
	if !billing.ValidPaymentStatus(req.PaymentStatus) {
		return InvoiceResponse{}, billing.ErrInvalidPaymentStatus
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, err := s.invoiceRepo.FindByIDForUpdate(txCtx, invoiceID)
		if err != nil {
			return lookupErr(err, "invoice")
		}
		if invoice.PaymentStatus == req.PaymentStatus {
			return nil
		}

		if err := s.invoiceRepo.UpdateStatus(txCtx, invoice.ID, req.PaymentStatus); err != nil {
			return fmt.Errorf("failed to update invoice: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, userID, model.ActionUpdateInvoiceStatus, invoice.ID.String(), invoice.InvoiceNumber, map[string]string{
			"from": invoice.PaymentStatus,
			"to":   req.PaymentStatus,
		})
	})
	if err != nil {
		return InvoiceResponse{}, err
	}

	res, err := s.GetInvoice(ctx, id)
	if err != nil {
		return InvoiceResponse{}, err
	}
	publish(s.events, websocket.EventInvoiceStatusUpdate, map[string]string{
		"id":             res.ID,
		"invoice_number": res.InvoiceNumber,
		"payment_status": res.PaymentStatus,
	})
	return res, nil
}

// --- Mapping ---

func toInvoiceResponse(inv *model.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		ID:            inv.ID.String(),
		InvoiceNumber: inv.InvoiceNumber,
		CustomerID:    inv.CustomerID.String(),
		Items:         make([]InvoiceItemResponse, 0, len(inv.Items)),
		Subtotal:      billing.FormatAmount(inv.Subtotal),
		GSTAmount:     billing.FormatAmount(inv.GSTAmount),
		Discount:      billing.FormatAmount(inv.Discount),
		ManualAmount:  billing.FormatAmount(inv.ManualAmount),
		ManualLabel:   inv.ManualLabel,
		Total:         billing.FormatAmount(inv.Total),
		PaymentStatus: inv.PaymentStatus,
		Notes:         inv.Notes,
		CreatedAt:     inv.CreatedAt.Format(time.RFC3339),
	}
	if inv.Customer != nil {
		c := mapCustomer(inv.Customer)
		resp.Customer = &c
	}
	for _, it := range inv.Items {
		resp.Items = append(resp.Items, InvoiceItemResponse{
			ID:          it.ID.String(),
			ProductID:   it.ProductID.String(),
			SKU:         it.SKU,
			VariantSKU:  it.VariantSKU,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   billing.FormatAmount(it.UnitPrice),
			GSTRate:     it.GSTRate,
			LineTotal:   billing.FormatAmount(it.LineTotal),
			IsService:   it.IsService,
		})
	}
	return resp
}
