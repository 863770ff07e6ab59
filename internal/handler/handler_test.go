package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront-erp/internal/database"
	"storefront-erp/internal/middleware"
	"storefront-erp/internal/model"
	"storefront-erp/internal/qrlabel"
	"storefront-erp/internal/repository"
	"storefront-erp/internal/service"

	"github.com/gin-gonic/gin"
)

var ist = time.FixedZone("IST", 5*3600+1800)

type noLabels struct{}

func (noLabels) Generate(qrlabel.Payload) (string, error) { return "", nil }

type apiResponse struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"status_code"`
	Data       json.RawMessage `json:"data"`
	Pagination *struct {
		Page       int   `json:"page"`
		Limit      int   `json:"limit"`
		Total      int64 `json:"total"`
		TotalPages int   `json:"total_pages"`
	} `json:"pagination"`
	Error string `json:"error"`
}

type testServer struct {
	router *gin.Engine
	auth   service.AuthService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := database.NewTestDB(t)

	txm := repository.NewTransactionManager(db)
	auditRepo := repository.NewAuditRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	productRepo := repository.NewProductRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	ledger := repository.NewInventoryTxRepository(db)

	authSvc := service.NewAuthService(repository.NewUserRepository(db), middleware.GetJWTSecret())
	invoiceSvc := service.NewInvoiceService(invoiceRepo, productRepo, customerRepo, ledger, auditRepo, txm, nil, ist)

	router := gin.New()
	api := router.Group("")
	NewAuthHandler(authSvc).RegisterRoutes(api)
	NewCategoryHandler(service.NewCategoryService(categoryRepo, auditRepo, txm)).RegisterRoutes(api)
	NewProductHandler(service.NewProductService(productRepo, categoryRepo, auditRepo, txm, noLabels{}, ist)).RegisterRoutes(api)
	NewCustomerHandler(service.NewCustomerService(customerRepo, auditRepo, txm)).RegisterRoutes(api)
	NewInvoiceHandler(invoiceSvc).RegisterRoutes(api)
	NewDraftHandler(service.NewDraftService(service.NewCatalog(productRepo), customerRepo, invoiceSvc, nil, 0)).RegisterRoutes(api)
	NewInventoryHandler(service.NewInventoryService(productRepo, ledger, auditRepo, txm, nil)).RegisterRoutes(api)
	NewDashboardHandler(service.NewDashboardService(repository.NewDashboardRepository(db), invoiceRepo, ledger, ist)).RegisterRoutes(api)
	NewAuditHandler(service.NewAuditService(auditRepo)).RegisterRoutes(api)

	return &testServer{router: router, auth: authSvc}
}

// token registers a user with role and returns its bearer token.
func (s *testServer) token(t *testing.T, role string) string {
	t.Helper()
	ctx := context.Background()
	email := role + "@shop.test"
	if _, err := s.auth.Register(ctx, service.RegisterRequest{Name: role, Email: email, Password: "secret1", Role: role}); err != nil {
		t.Fatalf("register %s: %v", role, err)
	}
	tok, err := s.auth.Login(ctx, service.LoginRequest{Email: email, Password: "secret1"})
	if err != nil {
		t.Fatalf("login %s: %v", role, err)
	}
	return tok.AccessToken
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (int, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var res apiResponse
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
	}
	return w.Code, res
}

func decode(t *testing.T, raw json.RawMessage, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
}

func TestAuthFlow(t *testing.T) {
	srv := newTestServer(t)

	code, _ := srv.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Asha", "email": "asha@shop.test", "password": "secret1",
	})
	if code != http.StatusCreated {
		t.Fatalf("register = %d", code)
	}
	code, res := srv.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Asha", "email": "asha@shop.test", "password": "secret1",
	})
	if code != http.StatusConflict {
		t.Errorf("duplicate register = %d %s", code, res.Error)
	}

	code, res = srv.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "asha@shop.test", "password": "secret1",
	})
	if code != http.StatusOK {
		t.Fatalf("login = %d %s", code, res.Error)
	}
	var tok service.TokenResponse
	decode(t, res.Data, &tok)
	if tok.TokenType != "bearer" || tok.User.Role != model.RoleStoreHandler {
		t.Errorf("token = %+v", tok)
	}

	code, res = srv.do(t, http.MethodGet, "/api/auth/me", tok.AccessToken, nil)
	if code != http.StatusOK {
		t.Fatalf("me = %d %s", code, res.Error)
	}

	if code, _ := srv.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "asha@shop.test", "password": "wrong"}); code != http.StatusUnauthorized {
		t.Errorf("bad password = %d", code)
	}
	if code, _ := srv.do(t, http.MethodGet, "/api/auth/me", "", nil); code != http.StatusUnauthorized {
		t.Errorf("me without token = %d", code)
	}

	// first admin bootstraps, the next one is refused
	code, res = srv.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Owner", "email": "owner@shop.test", "password": "secret1", "role": model.RoleAdmin,
	})
	if code != http.StatusCreated {
		t.Fatalf("first admin = %d %s", code, res.Error)
	}
	if code, _ := srv.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Intruder", "email": "intruder@shop.test", "password": "secret1", "role": model.RoleAdmin,
	}); code != http.StatusForbidden {
		t.Errorf("second admin = %d", code)
	}
}

func TestProductRoutesRequireAdmin(t *testing.T) {
	srv := newTestServer(t)
	staff := srv.token(t, model.RoleStoreHandler)
	admin := srv.token(t, model.RoleAdmin)

	body := map[string]interface{}{"name": "Mug", "sku": "MUG", "selling_price": "150", "cost_price": "90", "stock": 4}
	if code, _ := srv.do(t, http.MethodPost, "/api/products", staff, body); code != http.StatusForbidden {
		t.Errorf("staff create = %d", code)
	}
	code, res := srv.do(t, http.MethodPost, "/api/products", admin, body)
	if code != http.StatusCreated {
		t.Fatalf("admin create = %d %s", code, res.Error)
	}

	// cost price is admin-only
	_, res = srv.do(t, http.MethodGet, "/api/products/sku/MUG", staff, nil)
	var lookup struct {
		Product map[string]interface{} `json:"product"`
	}
	decode(t, res.Data, &lookup)
	if _, ok := lookup.Product["cost_price"]; ok {
		t.Error("cost_price leaked to store_handler")
	}
	_, res = srv.do(t, http.MethodGet, "/api/products/sku/MUG", admin, nil)
	decode(t, res.Data, &lookup)
	if _, ok := lookup.Product["cost_price"]; !ok {
		t.Error("cost_price missing for admin")
	}

	if code, _ := srv.do(t, http.MethodGet, "/api/products/sku/NOPE", staff, nil); code != http.StatusNotFound {
		t.Errorf("unknown sku = %d", code)
	}
	if code, _ := srv.do(t, http.MethodGet, "/api/products?category_id=bad", staff, nil); code != http.StatusBadRequest {
		t.Errorf("bad category filter = %d", code)
	}
	if code, _ := srv.do(t, http.MethodPost, "/api/products", admin, map[string]interface{}{"sku": "X"}); code != http.StatusBadRequest {
		t.Errorf("missing name = %d", code)
	}
}

func TestCounterBillingOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	admin := srv.token(t, model.RoleAdmin)
	staff := srv.token(t, model.RoleStoreHandler)

	code, res := srv.do(t, http.MethodPost, "/api/products", admin, map[string]interface{}{
		"name": "Mug", "sku": "MUG", "selling_price": "150", "min_selling_price": "120", "stock": 10,
	})
	if code != http.StatusCreated {
		t.Fatalf("create product = %d %s", code, res.Error)
	}

	code, res = srv.do(t, http.MethodPost, "/api/drafts", staff, nil)
	if code != http.StatusCreated {
		t.Fatalf("open draft = %d", code)
	}
	var draft service.DraftResponse
	decode(t, res.Data, &draft)
	base := "/api/drafts/" + draft.ID

	for _, raw := range []string{"MUG", `{"sku":"MUG","name":"Mug","price":150}`} {
		if code, res := srv.do(t, http.MethodPost, base+"/scan", staff, map[string]string{"raw": raw}); code != http.StatusOK {
			t.Fatalf("scan %s = %d %s", raw, code, res.Error)
		}
	}
	if code, _ := srv.do(t, http.MethodPost, base+"/scan", staff, map[string]string{"raw": "GHOST"}); code != http.StatusNotFound {
		t.Errorf("unknown scan = %d", code)
	}

	if code, _ := srv.do(t, http.MethodPatch, base+"/items/x", staff, map[string]int{"quantity": 3}); code != http.StatusBadRequest {
		t.Errorf("bad index = %d", code)
	}
	code, res = srv.do(t, http.MethodPatch, base+"/items/0", staff, map[string]int{"quantity": 3})
	if code != http.StatusOK {
		t.Fatalf("update item = %d %s", code, res.Error)
	}
	decode(t, res.Data, &draft)
	if draft.Totals.Subtotal != "450.00" || draft.Totals.Total != "531.00" {
		t.Errorf("totals = %+v", draft.Totals)
	}

	code, res = srv.do(t, http.MethodPost, base+"/submit", staff, nil)
	if code != http.StatusBadRequest {
		t.Errorf("submit without customer = %d %s", code, res.Error)
	}

	if code, res := srv.do(t, http.MethodPut, base+"/customer", staff, map[string]string{"name": "Ravi", "phone": "9000000001"}); code != http.StatusOK {
		t.Fatalf("set customer = %d %s", code, res.Error)
	}
	if code, res := srv.do(t, http.MethodPut, base+"/adjustments", staff, map[string]string{"discount": "31", "payment_status": "paid"}); code != http.StatusOK {
		t.Fatalf("adjustments = %d %s", code, res.Error)
	}

	code, res = srv.do(t, http.MethodPost, base+"/submit", staff, nil)
	if code != http.StatusCreated {
		t.Fatalf("submit = %d %s", code, res.Error)
	}
	var inv service.InvoiceResponse
	decode(t, res.Data, &inv)
	if inv.Total != "500.00" || inv.PaymentStatus != "paid" {
		t.Errorf("invoice = %+v", inv)
	}
	if code, _ := srv.do(t, http.MethodPost, base+"/submit", staff, nil); code != http.StatusNotFound {
		t.Errorf("second submit = %d", code)
	}

	code, res = srv.do(t, http.MethodGet, "/api/invoices?status=paid&limit=5", staff, nil)
	if code != http.StatusOK || res.Pagination == nil {
		t.Fatalf("list invoices = %d %+v", code, res)
	}
	if res.Pagination.Total != 1 || res.Pagination.Limit != 5 || res.Pagination.TotalPages != 1 {
		t.Errorf("pagination = %+v", *res.Pagination)
	}
	if code, _ := srv.do(t, http.MethodGet, "/api/invoices?status=lost", staff, nil); code != http.StatusBadRequest {
		t.Errorf("bad status filter = %d", code)
	}

	code, res = srv.do(t, http.MethodPatch, "/api/invoices/"+inv.ID+"/status", staff, map[string]string{"payment_status": "cancelled"})
	if code != http.StatusOK {
		t.Errorf("status update = %d %s", code, res.Error)
	}
	if code, _ := srv.do(t, http.MethodPatch, "/api/invoices/"+inv.ID+"/status", staff, map[string]string{"payment_status": "refunded"}); code != http.StatusBadRequest {
		t.Errorf("bad status = %d", code)
	}

	code, res = srv.do(t, http.MethodGet, "/api/inventory/transactions", staff, nil)
	if code != http.StatusOK || res.Pagination == nil || res.Pagination.Total != 1 || res.Pagination.Limit != transactionPageSize {
		t.Errorf("transactions = %d %+v", code, res.Pagination)
	}

	if code, _ := srv.do(t, http.MethodGet, "/api/audit-logs", staff, nil); code != http.StatusForbidden {
		t.Errorf("staff audit logs = %d", code)
	}
	code, res = srv.do(t, http.MethodGet, "/api/audit-logs?action="+model.ActionCreateInvoice, admin, nil)
	if code != http.StatusOK || res.Pagination == nil || res.Pagination.Total != 1 {
		t.Errorf("audit logs = %d %+v", code, res.Pagination)
	}
	code, res = srv.do(t, http.MethodGet, "/api/audit-logs?entity_id="+inv.ID, admin, nil)
	if code != http.StatusOK || res.Pagination == nil || res.Pagination.Total != 2 {
		t.Errorf("invoice history = %d %+v", code, res.Pagination)
	}
}

func TestPreviewAndInventoryErrors(t *testing.T) {
	srv := newTestServer(t)
	staff := srv.token(t, model.RoleStoreHandler)

	code, res := srv.do(t, http.MethodPost, "/api/invoices/preview", staff, map[string]interface{}{
		"items":    []map[string]interface{}{{"quantity": 2, "unit_price": "100", "gst_rate": 18}},
		"discount": "10",
	})
	if code != http.StatusOK {
		t.Fatalf("preview = %d %s", code, res.Error)
	}
	var preview service.PreviewResponse
	decode(t, res.Data, &preview)
	if preview.Total != "226.00" {
		t.Errorf("preview = %+v", preview)
	}

	code, res = srv.do(t, http.MethodPost, "/api/inventory/material-inward", staff, map[string]interface{}{
		"product_id": "6a4c9d3e-0000-4000-8000-000000000000", "quantity": 1,
	})
	if code != http.StatusNotFound {
		t.Errorf("inward unknown product = %d %s", code, res.Error)
	}
	if code, _ := srv.do(t, http.MethodPost, "/api/inventory/material-outward", staff, map[string]interface{}{"product_id": "x", "quantity": 1}); code != http.StatusBadRequest {
		t.Errorf("outward without reason = %d", code)
	}
	if code, _ := srv.do(t, http.MethodGet, "/api/dashboard?filter=fortnight", staff, nil); code != http.StatusBadRequest {
		t.Errorf("bad dashboard filter = %d", code)
	}
	if code, _ := srv.do(t, http.MethodGet, "/api/dashboard/sales?filter=last_10_days", staff, nil); code != http.StatusOK {
		t.Errorf("sales chart = %d", code)
	}
	if code, _ := srv.do(t, http.MethodGet, "/api/customers/search", staff, nil); code != http.StatusBadRequest {
		t.Errorf("search without phone = %d", code)
	}
	if code, _ := srv.do(t, http.MethodGet, "/api/customers/search?phone=123", staff, nil); code != http.StatusNotFound {
		t.Errorf("unknown phone = %d", code)
	}
}
