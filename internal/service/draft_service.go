package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"storefront-erp/internal/billing"
	"storefront-erp/internal/repository"
	ws "storefront-erp/internal/websocket"
	"storefront-erp/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DraftIdleTTL is how long an untouched counter draft is kept in memory.
const DraftIdleTTL = 12 * time.Hour

// --- DTOs ---

type ScanRequest struct {
	Raw string `json:"raw" binding:"required"`
}

type SelectVariantRequest struct {
	ProductID  string `json:"product_id" binding:"required"`
	VariantSKU string `json:"variant_sku" binding:"required"`
}

type UpdateDraftItemRequest struct {
	Quantity  *int             `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
	GSTRate   *int             `json:"gst_rate"`
}

type AdjustmentsRequest struct {
	Discount      decimal.Decimal `json:"discount"`
	ManualAmount  decimal.Decimal `json:"manual_amount"`
	ManualLabel   string          `json:"manual_label"`
	PaymentStatus string          `json:"payment_status"`
}

type DraftCustomerRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

type DraftCustomerResponse struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Known   bool   `json:"known"`
}

type DraftItemResponse struct {
	Index        int    `json:"index"`
	ProductID    string `json:"product_id"`
	SKU          string `json:"sku"`
	VariantSKU   string `json:"variant_sku,omitempty"`
	NeedsVariant bool   `json:"needs_variant"`
	Name         string `json:"name"`
	ImageURL     string `json:"image_url"`
	Quantity     int    `json:"quantity"`
	UnitPrice    string `json:"unit_price"`
	GSTRate      int    `json:"gst_rate"`
	LineTotal    string `json:"line_total"`
	IsService    bool   `json:"is_service"`
}

type DraftResponse struct {
	ID            string                `json:"id"`
	Customer      DraftCustomerResponse `json:"customer"`
	Items         []DraftItemResponse   `json:"items"`
	Discount      string                `json:"discount"`
	ManualAmount  string                `json:"manual_amount"`
	ManualLabel   string                `json:"manual_label"`
	PaymentStatus string                `json:"payment_status"`
	Totals        billing.DisplayTotals `json:"totals"`
	CanSubmit     bool                  `json:"can_submit"`
	SubmitError   string                `json:"submit_error,omitempty"`
}

// VariantPrompt lists the variants an operator can pick after scanning a
// product that has them.
type VariantPrompt struct {
	ProductID string           `json:"product_id"`
	SKU       string           `json:"sku"`
	Name      string           `json:"name"`
	Variants  []VariantOptions `json:"variants"`
}

type ScanResponse struct {
	Result  string             `json:"result"`
	SKU     string             `json:"sku,omitempty"`
	Message string             `json:"message,omitempty"`
	Item    *DraftItemResponse `json:"item,omitempty"`
	Prompt  *VariantPrompt     `json:"prompt,omitempty"`
	Draft   *DraftResponse     `json:"draft,omitempty"` // nil when the scan was dropped mid-resolution
}

// ScanAck is the scan.ack event payload
type ScanAck struct {
	DraftID string `json:"draft_id"`
	Result  string `json:"result"`
	SKU     string `json:"sku"`
	Message string `json:"message,omitempty"`
}

// --- Interface ---

type DraftService interface {
	Open() DraftResponse
	Get(id string) (DraftResponse, error)
	Discard(id string) error
	Scan(ctx context.Context, id, raw string) (ScanResponse, error)
	SelectVariant(ctx context.Context, id string, req SelectVariantRequest) (ScanResponse, error)
	UpdateItem(id string, index int, req UpdateDraftItemRequest) (DraftResponse, error)
	RemoveItem(id string, index int) (DraftResponse, error)
	SetAdjustments(id string, req AdjustmentsRequest) (DraftResponse, error)
	SetCustomer(ctx context.Context, id string, req DraftCustomerRequest) (DraftResponse, error)
	Submit(ctx context.Context, userID, id string) (InvoiceResponse, error)
}

// counterDraft is one terminal's invoice in progress. mu serializes every
// change to draft, including the whole of a scan and a submit.
type counterDraft struct {
	id       string
	mu       sync.Mutex
	draft    billing.Draft
	gate     *billing.ScanGate
	resolver *billing.Resolver
	touched  time.Time
}

type draftService struct {
	catalog      billing.Catalog
	customerRepo repository.CustomerRepository
	invoices     InvoiceService
	events       EventPublisher
	window       time.Duration
	now          func() time.Time

	mu     sync.RWMutex
	drafts map[string]*counterDraft
}

func NewDraftService(
	catalog billing.Catalog,
	customerRepo repository.CustomerRepository,
	invoices InvoiceService,
	events EventPublisher,
	window time.Duration,
) DraftService {
	return &draftService{
		catalog:      catalog,
		customerRepo: customerRepo,
		invoices:     invoices,
		events:       events,
		window:       window,
		now:          time.Now,
		drafts:       make(map[string]*counterDraft),
	}
}

func (s *draftService) Open() DraftResponse {
	cd := &counterDraft{
		id:      uuid.NewString(),
		draft:   billing.NewDraft(),
		gate:    billing.NewScanGate(s.window),
		touched: s.now(),
	}
	cd.resolver = billing.NewResolver(s.catalog, cd.gate, func(r billing.Resolution) {
		publish(s.events, ws.EventScanAck, ScanAck{DraftID: cd.id, Result: string(r.Kind), SKU: r.SKU, Message: r.Message})
	})

	s.mu.Lock()
	s.purgeIdleLocked()
	s.drafts[cd.id] = cd
	s.mu.Unlock()

	return toDraftResponse(cd.id, cd.draft)
}

func (s *draftService) purgeIdleLocked() {
	cutoff := s.now().Add(-DraftIdleTTL)
	for id, cd := range s.drafts {
		if cd.mu.TryLock() {
			idle := cd.touched.Before(cutoff)
			cd.mu.Unlock()
			if idle {
				delete(s.drafts, id)
			}
		}
	}
}

func (s *draftService) lookup(id string) (*counterDraft, error) {
	s.mu.RLock()
	cd, ok := s.drafts[id]
	s.mu.RUnlock()
	if !ok {
		return nil, apperror.NotFound("draft not found")
	}
	return cd, nil
}

// update applies fn to a draft under its lock and stores the result.
func (s *draftService) update(id string, fn func(billing.Draft) (billing.Draft, error)) (DraftResponse, error) {
	cd, err := s.lookup(id)
	if err != nil {
		return DraftResponse{}, err
	}
	cd.mu.Lock()
	defer cd.mu.Unlock()

	next, err := fn(cd.draft)
	if err != nil {
		return DraftResponse{}, err
	}
	cd.draft = next
	cd.touched = s.now()
	return toDraftResponse(cd.id, cd.draft), nil
}

func (s *draftService) Get(id string) (DraftResponse, error) {
	cd, err := s.lookup(id)
	if err != nil {
		return DraftResponse{}, err
	}
	cd.mu.Lock()
	defer cd.mu.Unlock()
	return toDraftResponse(cd.id, cd.draft), nil
}

func (s *draftService) Discard(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.drafts[id]; !ok {
		return apperror.NotFound("draft not found")
	}
	delete(s.drafts, id)
	return nil
}

func (s *draftService) Scan(ctx context.Context, id, raw string) (ScanResponse, error) {
	cd, err := s.lookup(id)
	if err != nil {
		return ScanResponse{}, err
	}

	// a scan arriving while another is resolving is dropped, not queued
	if cd.gate.Busy() {
		return ScanResponse{Result: string(billing.ScanIgnored), Message: "scan in progress"}, nil
	}

	cd.mu.Lock()
	defer cd.mu.Unlock()

	res, err := cd.resolver.Resolve(ctx, cd.draft, raw)
	if err != nil {
		return ScanResponse{}, err
	}
	cd.draft = res.Draft
	cd.touched = s.now()
	return toScanResponse(cd, res), nil
}

func (s *draftService) SelectVariant(ctx context.Context, id string, req SelectVariantRequest) (ScanResponse, error) {
	cd, err := s.lookup(id)
	if err != nil {
		return ScanResponse{}, err
	}
	cd.mu.Lock()
	defer cd.mu.Unlock()

	res, err := cd.resolver.SelectVariant(ctx, cd.draft, strings.TrimSpace(req.ProductID), strings.TrimSpace(req.VariantSKU))
	if err != nil {
		return ScanResponse{}, err
	}
	cd.draft = res.Draft
	cd.touched = s.now()
	return toScanResponse(cd, res), nil
}

func (s *draftService) UpdateItem(id string, index int, req UpdateDraftItemRequest) (DraftResponse, error) {
	if req.Quantity == nil && req.UnitPrice == nil && req.GSTRate == nil {
		return DraftResponse{}, apperror.Validation("nothing to update")
	}
	return s.update(id, func(d billing.Draft) (billing.Draft, error) {
		var err error
		if req.Quantity != nil {
			if d, err = d.SetQuantity(index, *req.Quantity); err != nil {
				return d, err
			}
		}
		if req.UnitPrice != nil {
			if d, err = d.SetUnitPrice(index, *req.UnitPrice); err != nil {
				return d, err
			}
		}
		if req.GSTRate != nil {
			if d, err = d.SetGSTRate(index, *req.GSTRate); err != nil {
				return d, err
			}
		}
		return d, nil
	})
}

func (s *draftService) RemoveItem(id string, index int) (DraftResponse, error) {
	return s.update(id, func(d billing.Draft) (billing.Draft, error) {
		return d.RemoveItem(index)
	})
}

func (s *draftService) SetAdjustments(id string, req AdjustmentsRequest) (DraftResponse, error) {
	return s.update(id, func(d billing.Draft) (billing.Draft, error) {
		d, err := d.WithDiscount(req.Discount)
		if err != nil {
			return d, err
		}
		if d, err = d.WithManualAmount(req.ManualAmount, req.ManualLabel); err != nil {
			return d, err
		}
		if req.PaymentStatus != "" {
			return d.WithPaymentStatus(req.PaymentStatus)
		}
		return d, nil
	})
}

// SetCustomer stores the buyer block. A phone that belongs to a known
// customer links the draft to them and fills the fields left blank.
func (s *draftService) SetCustomer(ctx context.Context, id string, req DraftCustomerRequest) (DraftResponse, error) {
	c := billing.Customer{
		Name:    strings.TrimSpace(req.Name),
		Phone:   strings.TrimSpace(req.Phone),
		Email:   strings.TrimSpace(req.Email),
		Address: strings.TrimSpace(req.Address),
	}

	if c.Phone != "" && s.customerRepo != nil {
		known, err := s.customerRepo.FindByPhone(ctx, c.Phone)
		switch {
		case err == nil:
			c.ID = known.ID.String()
			if c.Name == "" {
				c.Name = known.Name
			}
			if c.Email == "" {
				c.Email = known.Email
			}
			if c.Address == "" {
				c.Address = known.Address
			}
		case !repository.IsNotFound(err):
			return DraftResponse{}, lookupErr(err, "customer")
		}
	}

	return s.update(id, func(d billing.Draft) (billing.Draft, error) {
		return d.WithCustomer(c), nil
	})
}

// Submit turns the draft into an invoice and closes it. The draft stays
// locked for the whole call, so a second submit waits and then finds the
// draft gone.
func (s *draftService) Submit(ctx context.Context, userID, id string) (InvoiceResponse, error) {
	cd, err := s.lookup(id)
	if err != nil {
		return InvoiceResponse{}, err
	}
	cd.mu.Lock()
	defer cd.mu.Unlock()

	if _, err := s.lookup(id); err != nil {
		return InvoiceResponse{}, err
	}

	sub, err := billing.BuildSubmission(cd.draft)
	if err != nil {
		return InvoiceResponse{}, err
	}

	invoice, err := s.invoices.CreateInvoice(ctx, userID, RequestFromSubmission(sub))
	if err != nil {
		return InvoiceResponse{}, err
	}

	s.mu.Lock()
	delete(s.drafts, id)
	s.mu.Unlock()
	return invoice, nil
}

// --- Mapping ---

func toDraftItem(index int, li billing.LineItem) DraftItemResponse {
	return DraftItemResponse{
		Index:        index,
		ProductID:    li.ProductID,
		SKU:          li.SKU,
		VariantSKU:   li.VariantSKU,
		NeedsVariant: li.HasVariants && li.VariantSKU == "",
		Name:         li.DisplayName,
		ImageURL:     li.ImageURL,
		Quantity:     li.Quantity,
		UnitPrice:    billing.FormatAmount(li.UnitPrice),
		GSTRate:      li.GSTRate,
		LineTotal:    billing.FormatAmount(li.LineTotal()),
		IsService:    li.IsService,
	}
}

func toDraftResponse(id string, d billing.Draft) DraftResponse {
	c := d.Customer()
	res := DraftResponse{
		ID: id,
		Customer: DraftCustomerResponse{
			ID:      c.ID,
			Name:    c.Name,
			Phone:   c.Phone,
			Email:   c.Email,
			Address: c.Address,
			Known:   c.ID != "",
		},
		Items:         make([]DraftItemResponse, 0, d.Len()),
		Discount:      billing.FormatAmount(d.Discount()),
		ManualAmount:  billing.FormatAmount(d.ManualAmount()),
		ManualLabel:   d.ManualLabel(),
		PaymentStatus: d.PaymentStatus(),
		Totals:        d.Totals().Display(),
		CanSubmit:     true,
	}
	for i, li := range d.Items() {
		res.Items = append(res.Items, toDraftItem(i, li))
	}
	if err := billing.ValidateForSubmit(d); err != nil {
		res.CanSubmit = false
		res.SubmitError = err.Error()
	}
	return res
}

func toScanResponse(cd *counterDraft, res billing.Resolution) ScanResponse {
	draft := toDraftResponse(cd.id, res.Draft)
	out := ScanResponse{
		Result:  string(res.Kind),
		SKU:     res.SKU,
		Message: res.Message,
		Draft:   &draft,
	}
	if res.Item != nil {
		// services always append, so their line is the last one
		index := res.Draft.Len() - 1
		if !res.Item.IsService {
			for i, li := range res.Draft.Items() {
				if !li.IsService && li.Key() == res.Item.Key() {
					index = i
				}
			}
		}
		item := toDraftItem(index, *res.Item)
		out.Item = &item
	}
	if res.Product != nil {
		prompt := &VariantPrompt{
			ProductID: res.Product.ID,
			SKU:       res.Product.SKU,
			Name:      res.Product.Name,
			Variants:  make([]VariantOptions, 0, len(res.Product.Variants)),
		}
		for _, v := range res.Product.Variants {
			prompt.Variants = append(prompt.Variants, VariantOptions{VSKU: v.VariantSKU, Label: v.Label(), Stock: v.Stock})
		}
		out.Prompt = prompt
	}
	return out
}
