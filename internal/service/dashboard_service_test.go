package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront-erp/internal/billing"
	"storefront-erp/pkg/apperror"
)

// seedSales creates one paid and one pending invoice and a manual inward.
func seedSales(t *testing.T, env *testEnv) {
	t.Helper()
	ctx := context.Background()
	mug, _, _ := env.seedCatalog(t)

	paid := walkIn(InvoiceItemRequest{SKU: "MUG", Quantity: 2, GSTRate: intPtr(0)})
	paid.PaymentStatus = billing.PaymentPaid
	if _, err := env.invoiceSvc.CreateInvoice(ctx, "", paid); err != nil {
		t.Fatal(err)
	}
	pending := walkIn(InvoiceItemRequest{VariantSKU: "SHIRT-RED-M", Quantity: 1, GSTRate: intPtr(0)})
	pending.CustomerPhone = "9000000009"
	if _, err := env.invoiceSvc.CreateInvoice(ctx, "", pending); err != nil {
		t.Fatal(err)
	}
	if _, err := env.inventorySvc.MaterialInward(ctx, "", MaterialInwardRequest{ProductID: mug.ID, Quantity: 1}); err != nil {
		t.Fatal(err)
	}
}

func TestDashboardStats(t *testing.T) {
	env := newTestEnv(t)
	seedSales(t, env)
	ctx := context.Background()

	stats, err := env.dashboardSvc.Stats(ctx, DashboardQuery{Filter: FilterToday})
	if err != nil {
		t.Fatal(err)
	}
	if !stats.TotalSales.Equal(money("300")) || stats.TotalOrders != 1 || stats.TotalCustomers != 1 {
		t.Errorf("stats = %+v", stats)
	}
	// mug is at 9 of min 5, shirt at 9 of 5; nothing low
	if stats.LowStockItems != 0 {
		t.Errorf("low stock = %d", stats.LowStockItems)
	}

	yesterday, err := env.dashboardSvc.Stats(ctx, DashboardQuery{Filter: FilterYesterday})
	if err != nil {
		t.Fatal(err)
	}
	if !yesterday.TotalSales.IsZero() || yesterday.TotalOrders != 0 {
		t.Errorf("yesterday = %+v", yesterday)
	}

	if _, err := env.dashboardSvc.Stats(ctx, DashboardQuery{Filter: "fortnight"}); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("bad filter err = %v", err)
	}
	if _, err := env.dashboardSvc.Stats(ctx, DashboardQuery{Filter: FilterMonth, Month: 13}); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("bad month err = %v", err)
	}
}

func TestDashboardToday(t *testing.T) {
	env := newTestEnv(t)
	seedSales(t, env)

	today, err := env.dashboardSvc.Today(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if today.InvoicesToday != 2 || today.ItemsSoldToday != 3 || today.InventoryOutToday != 2 || today.NewCustomersToday != 2 {
		t.Errorf("today = %+v", today)
	}
}

func TestDashboardLowStockAndTopProducts(t *testing.T) {
	env := newTestEnv(t)
	seedSales(t, env)
	ctx := context.Background()

	low, err := env.dashboardSvc.LowStock(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(low) != 0 {
		t.Errorf("low = %+v", low)
	}

	env.createProduct(t, ProductRequest{Name: "Fuse", SKU: "FUSE", SellingPrice: money("10"), Stock: 2})
	low, _ = env.dashboardSvc.LowStock(ctx, 0)
	if len(low) != 1 || low[0].ProductName != "Fuse" {
		t.Errorf("low = %+v", low)
	}

	top, err := env.dashboardSvc.TopProducts(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 2 || top[0].ProductSKU != "MUG" || top[0].TotalQuantity != 2 {
		t.Errorf("top = %+v", top)
	}
}

func TestDashboardSeries(t *testing.T) {
	env := newTestEnv(t)
	seedSales(t, env)
	ctx := context.Background()

	moves, err := env.dashboardSvc.InventoryMovement(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(moves) != 7 {
		t.Fatalf("days = %d", len(moves))
	}
	last := moves[6]
	if last.Day != time.Now().In(ist).Format("2006-01-02") || last.Inward != 1 || last.Outward != 3 {
		t.Errorf("today movement = %+v", last)
	}

	hours, err := env.dashboardSvc.HourlySales(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(hours) != 24 || hours[0].Label != "12 AM" || hours[13].Label != "1 PM" {
		t.Fatalf("hours = %+v", hours)
	}
	h := time.Now().In(ist).Hour()
	if !hours[h].Total.Equal(money("300")) {
		t.Errorf("hour %d total = %s", h, hours[h].Total)
	}

	sales, err := env.dashboardSvc.Sales(ctx, DashboardQuery{Filter: FilterLast10Days})
	if err != nil {
		t.Fatal(err)
	}
	if len(sales) != 10 {
		t.Fatalf("sales buckets = %d", len(sales))
	}
	today := sales[9]
	if !today.Total.Equal(money("849")) || !today.Paid.Equal(money("300")) || !today.Pending.Equal(money("549")) {
		t.Errorf("today bucket = %+v", today)
	}

	activity, err := env.dashboardSvc.Activity(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(activity) != 3 {
		t.Errorf("activity = %+v", activity)
	}
}
