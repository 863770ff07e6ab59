package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"storefront-erp/internal/billing"
	ws "storefront-erp/internal/websocket"
	"storefront-erp/pkg/apperror"
)

func TestDraftScanMergesRepeatedSKU(t *testing.T) {
	env := newTestEnv(t)
	env.seedCatalog(t)
	drafts := env.draftService(0)
	ctx := context.Background()

	d := drafts.Open()
	if _, err := drafts.Scan(ctx, d.ID, "MUG"); err != nil {
		t.Fatal(err)
	}
	res, err := drafts.Scan(ctx, d.ID, `{"sku":"MUG","name":"Mug","price":150}`)
	if err != nil {
		t.Fatal(err)
	}
	if res.Result != string(billing.ResolvedProduct) {
		t.Errorf("result = %s", res.Result)
	}
	if len(res.Draft.Items) != 1 || res.Draft.Items[0].Quantity != 2 || res.Draft.Items[0].LineTotal != "300.00" {
		t.Fatalf("items = %+v", res.Draft.Items)
	}
	if res.Item == nil || res.Item.Quantity != 2 {
		t.Errorf("item = %+v", res.Item)
	}
	if env.events.count(ws.EventScanAck) != 2 {
		t.Errorf("acks = %d", env.events.count(ws.EventScanAck))
	}
}

func TestDraftScanDebounce(t *testing.T) {
	env := newTestEnv(t)
	env.seedCatalog(t)
	drafts := env.draftService(billing.DefaultScanWindow)
	ctx := context.Background()

	d := drafts.Open()
	if _, err := drafts.Scan(ctx, d.ID, "MUG"); err != nil {
		t.Fatal(err)
	}
	res, err := drafts.Scan(ctx, d.ID, "MUG")
	if err != nil {
		t.Fatal(err)
	}
	if res.Result != string(billing.ScanIgnored) {
		t.Errorf("second scan inside the window = %s", res.Result)
	}
	got, _ := drafts.Get(d.ID)
	if got.Items[0].Quantity != 1 {
		t.Errorf("quantity = %d", got.Items[0].Quantity)
	}
}

func TestDraftVariantSelection(t *testing.T) {
	env := newTestEnv(t)
	_, shirt, _ := env.seedCatalog(t)
	drafts := env.draftService(0)
	ctx := context.Background()

	d := drafts.Open()
	res, err := drafts.Scan(ctx, d.ID, "SHIRT")
	if err != nil {
		t.Fatal(err)
	}
	if res.Result != string(billing.NeedsVariantSelection) || res.Prompt == nil || len(res.Prompt.Variants) != 2 {
		t.Fatalf("scan = %+v", res)
	}
	if len(res.Draft.Items) != 0 {
		t.Error("product with variants was added directly")
	}

	res, err = drafts.SelectVariant(ctx, d.ID, SelectVariantRequest{ProductID: shirt.ID, VariantSKU: "SHIRT-BLUE-M"})
	if err != nil {
		t.Fatal(err)
	}
	item := res.Draft.Items[0]
	if item.Name != "Shirt (Blue)" || item.UnitPrice != "499.00" || item.VariantSKU != "SHIRT-BLUE-M" {
		t.Errorf("item = %+v", item)
	}

	// scanning the variant label itself lands on the same line
	res, err = drafts.Scan(ctx, d.ID, `{"sku":"SHIRT","v_sku":"SHIRT-BLUE-M"}`)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Draft.Items) != 1 || res.Draft.Items[0].Quantity != 2 {
		t.Errorf("items = %+v", res.Draft.Items)
	}

	if _, err := drafts.SelectVariant(ctx, d.ID, SelectVariantRequest{ProductID: shirt.ID, VariantSKU: "MUG"}); !errors.Is(err, billing.ErrVariantNotFound) {
		t.Errorf("non-variant selection err = %v", err)
	}
}

func TestDraftScanMiss(t *testing.T) {
	env := newTestEnv(t)
	drafts := env.draftService(0)

	d := drafts.Open()
	_, err := drafts.Scan(context.Background(), d.ID, "GHOST")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("err = %v", err)
	}
	if _, err := drafts.Scan(context.Background(), "missing", "MUG"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("unknown draft err = %v", err)
	}
}

func TestDraftEditsRecomputeTotals(t *testing.T) {
	env := newTestEnv(t)
	env.seedCatalog(t)
	drafts := env.draftService(0)
	ctx := context.Background()

	d := drafts.Open()
	for _, raw := range []string{"MUG", "WASH"} {
		if _, err := drafts.Scan(ctx, d.ID, raw); err != nil {
			t.Fatal(err)
		}
	}

	got, err := drafts.UpdateItem(d.ID, 0, UpdateDraftItemRequest{Quantity: intPtr(2), GSTRate: intPtr(5)})
	if err != nil {
		t.Fatal(err)
	}
	// 300 @5% + 300 @18%
	if got.Totals.Subtotal != "600.00" || got.Totals.GSTAmount != "69.00" {
		t.Errorf("totals = %+v", got.Totals)
	}

	got, err = drafts.SetAdjustments(d.ID, AdjustmentsRequest{Discount: money("19"), ManualAmount: money("100"), ManualLabel: " packing "})
	if err != nil {
		t.Fatal(err)
	}
	if got.Totals.Total != "750.00" || got.ManualLabel != "packing" {
		t.Errorf("after adjustments = %+v", got)
	}

	got, err = drafts.RemoveItem(d.ID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Items) != 1 || got.Totals.Subtotal != "400.00" {
		t.Errorf("after remove = %+v", got)
	}

	if _, err := drafts.UpdateItem(d.ID, 0, UpdateDraftItemRequest{Quantity: intPtr(0)}); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("zero quantity err = %v", err)
	}
	if _, err := drafts.RemoveItem(d.ID, 5); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("bad index err = %v", err)
	}
	if _, err := drafts.SetAdjustments(d.ID, AdjustmentsRequest{Discount: money("-1")}); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("negative discount err = %v", err)
	}
}

func TestDraftCustomerPrefill(t *testing.T) {
	env := newTestEnv(t)
	drafts := env.draftService(0)
	ctx := context.Background()

	known, err := env.customerSvc.Create(ctx, "", CustomerRequest{Name: "Ravi", Phone: "9000000001", Email: "ravi@example.com"})
	if err != nil {
		t.Fatal(err)
	}

	d := drafts.Open()
	got, err := drafts.SetCustomer(ctx, d.ID, DraftCustomerRequest{Phone: " 9000000001 "})
	if err != nil {
		t.Fatal(err)
	}
	if !got.Customer.Known || got.Customer.ID != known.ID || got.Customer.Name != "Ravi" || got.Customer.Email != "ravi@example.com" {
		t.Errorf("customer = %+v", got.Customer)
	}

	got, err = drafts.SetCustomer(ctx, d.ID, DraftCustomerRequest{Name: "New", Phone: "9000000002"})
	if err != nil {
		t.Fatal(err)
	}
	if got.Customer.Known {
		t.Error("unknown phone marked as known")
	}
}

func TestDraftSubmit(t *testing.T) {
	env := newTestEnv(t)
	env.seedCatalog(t)
	drafts := env.draftService(0)
	ctx := context.Background()

	d := drafts.Open()
	if _, err := drafts.Scan(ctx, d.ID, "SHIRT"); err != nil {
		t.Fatal(err)
	}
	if _, err := drafts.Scan(ctx, d.ID, "MUG"); err != nil {
		t.Fatal(err)
	}

	_, err := drafts.Submit(ctx, "", d.ID)
	if !errors.Is(err, billing.ErrCustomerNameRequired) {
		t.Fatalf("submit without customer err = %v", err)
	}
	got, _ := drafts.Get(d.ID)
	if got.CanSubmit || got.SubmitError == "" {
		t.Errorf("draft should report why it cannot be submitted: %+v", got)
	}

	if _, err := drafts.SetCustomer(ctx, d.ID, DraftCustomerRequest{Name: "Asha", Phone: "9876543210"}); err != nil {
		t.Fatal(err)
	}
	inv, err := drafts.Submit(ctx, "", d.ID)
	if err != nil {
		t.Fatal(err)
	}
	if inv.Total != "177.00" || len(inv.Items) != 1 {
		t.Errorf("invoice = %+v", inv)
	}
	if got := env.stockOf(t, "MUG"); got != 9 {
		t.Errorf("mug stock = %d", got)
	}

	if _, err := drafts.Get(d.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("draft survived submit: %v", err)
	}
	if _, err := drafts.Submit(ctx, "", d.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("second submit err = %v", err)
	}
}

func TestDraftSubmitRejectsUnresolvedVariant(t *testing.T) {
	env := newTestEnv(t)
	drafts := env.draftService(0)
	ctx := context.Background()

	// a product that gains variants after it was put on the draft
	cup := env.createProduct(t, ProductRequest{Name: "Cup", SKU: "CUP", SellingPrice: money("80"), Stock: 5})
	d := drafts.Open()
	if _, err := drafts.Scan(ctx, d.ID, "CUP"); err != nil {
		t.Fatal(err)
	}
	if _, err := drafts.SetCustomer(ctx, d.ID, DraftCustomerRequest{Name: "Asha", Phone: "1"}); err != nil {
		t.Fatal(err)
	}
	if _, err := env.productSvc.Update(ctx, "", cup.ID, ProductRequest{
		Name: "Cup", SellingPrice: money("80"),
		Variants: []VariantRequest{{Color: "White", Stock: 5}},
	}); err != nil {
		t.Fatal(err)
	}

	_, err := drafts.Submit(ctx, "", d.ID)
	if err == nil || !strings.Contains(err.Error(), "rescan item") {
		t.Fatalf("err = %v", err)
	}
	if _, err := drafts.Get(d.ID); err != nil {
		t.Errorf("failed submit closed the draft: %v", err)
	}
}

func TestDraftConcurrentSubmitCreatesOneInvoice(t *testing.T) {
	env := newTestEnv(t)
	env.seedCatalog(t)
	drafts := env.draftService(0)
	ctx := context.Background()

	d := drafts.Open()
	if _, err := drafts.Scan(ctx, d.ID, "MUG"); err != nil {
		t.Fatal(err)
	}
	if _, err := drafts.SetCustomer(ctx, d.ID, DraftCustomerRequest{Name: "Asha", Phone: "1"}); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = drafts.Submit(ctx, "", d.ID)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else if !errors.Is(err, apperror.ErrNotFound) {
			t.Errorf("unexpected err %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("%d submits succeeded, want 1", ok)
	}
	if got := env.stockOf(t, "MUG"); got != 9 {
		t.Errorf("mug stock = %d", got)
	}
}
