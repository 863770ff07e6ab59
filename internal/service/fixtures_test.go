package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"storefront-erp/internal/database"
	"storefront-erp/internal/qrlabel"
	"storefront-erp/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ist = time.FixedZone("IST", 5*3600+1800)

type publishedEvent struct {
	Event string
	Data  interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(event string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Event: event, Data: data})
}

func (p *recordingPublisher) count(event string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Event == event {
			n++
		}
	}
	return n
}

type fakeLabels struct {
	payloads []qrlabel.Payload
}

func (f *fakeLabels) Generate(p qrlabel.Payload) (string, error) {
	f.payloads = append(f.payloads, p)
	return "/static/qr/" + p.SKU + p.VariantSKU + ".png", nil
}

// testEnv wires every service against one in-memory database.
type testEnv struct {
	db        *gorm.DB
	products  repository.ProductRepository
	customers repository.CustomerRepository
	invoices  repository.InvoiceRepository
	ledger    repository.InventoryTxRepository
	audit     repository.AuditRepository
	events    *recordingPublisher
	labels    *fakeLabels

	productSvc   ProductService
	customerSvc  CustomerService
	categorySvc  CategoryService
	invoiceSvc   InvoiceService
	inventorySvc InventoryService
	dashboardSvc DashboardService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := database.NewTestDB(t)

	env := &testEnv{
		db:        db,
		products:  repository.NewProductRepository(db),
		customers: repository.NewCustomerRepository(db),
		invoices:  repository.NewInvoiceRepository(db),
		ledger:    repository.NewInventoryTxRepository(db),
		audit:     repository.NewAuditRepository(db),
		events:    &recordingPublisher{},
		labels:    &fakeLabels{},
	}
	txm := repository.NewTransactionManager(db)
	categories := repository.NewCategoryRepository(db)

	env.productSvc = NewProductService(env.products, categories, env.audit, txm, env.labels, ist)
	env.customerSvc = NewCustomerService(env.customers, env.audit, txm)
	env.categorySvc = NewCategoryService(categories, env.audit, txm)
	env.invoiceSvc = NewInvoiceService(env.invoices, env.products, env.customers, env.ledger, env.audit, txm, env.events, ist)
	env.inventorySvc = NewInventoryService(env.products, env.ledger, env.audit, txm, env.events)
	env.dashboardSvc = NewDashboardService(repository.NewDashboardRepository(db), env.invoices, env.ledger, ist)
	return env
}

func (e *testEnv) draftService(window time.Duration) DraftService {
	return NewDraftService(NewCatalog(e.products), e.customers, e.invoiceSvc, e.events, window)
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func intPtr(v int) *int { return &v }

func ptrMoney(s string) *decimal.Decimal {
	d := money(s)
	return &d
}

func (e *testEnv) createProduct(t *testing.T, req ProductRequest) ProductResponse {
	t.Helper()
	p, err := e.productSvc.Create(context.Background(), "", req)
	if err != nil {
		t.Fatalf("create product %s: %v", req.Name, err)
	}
	return p
}

// seedCatalog creates a plain product, a product with two variants and a service.
func (e *testEnv) seedCatalog(t *testing.T) (mug, shirt, wash ProductResponse) {
	t.Helper()
	mug = e.createProduct(t, ProductRequest{
		Name: "Mug", SKU: "MUG", SellingPrice: money("150"), MinSellingPrice: money("120"), Stock: 10,
	})
	shirt = e.createProduct(t, ProductRequest{
		Name: "Shirt", SKU: "SHIRT", SellingPrice: money("499"), MinSellingPrice: money("400"),
		Variants: []VariantRequest{
			{VSKU: "SHIRT-RED-M", VariantName: "Red M", SellingPrice: money("549"), Stock: 4},
			{VSKU: "SHIRT-BLUE-M", Color: "Blue", Stock: 6},
		},
	})
	wash = e.createProduct(t, ProductRequest{
		Name: "Car wash", SKU: "WASH", SellingPrice: money("300"), IsService: true, Stock: 50,
	})
	return mug, shirt, wash
}

func (e *testEnv) stockOf(t *testing.T, sku string) int {
	t.Helper()
	p, err := e.products.FindBySKU(context.Background(), sku)
	if err != nil {
		t.Fatalf("find %s: %v", sku, err)
	}
	return p.Stock
}

func (e *testEnv) variantStock(t *testing.T, vsku string) int {
	t.Helper()
	v, err := e.products.FindVariantBySKU(context.Background(), vsku)
	if err != nil {
		t.Fatalf("find variant %s: %v", vsku, err)
	}
	return v.Stock
}
