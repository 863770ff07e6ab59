package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"storefront-erp/internal/billing"
	"storefront-erp/internal/model"
	"storefront-erp/internal/repository"
	"storefront-erp/pkg/apperror"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Dashboard date filters
const (
	FilterToday      = "today"
	FilterYesterday  = "yesterday"
	FilterLast10Days = "last_10_days"
	FilterLast30Days = "last_30_days"
	FilterMonth      = "month"
)

// DashboardQuery selects the period of the dashboard. Year and Month only
// apply to the month filter and default to the current month.
type DashboardQuery struct {
	Filter string
	Year   int
	Month  int
}

type DashboardService interface {
	Stats(ctx context.Context, q DashboardQuery) (model.DashboardStats, error)
	Today(ctx context.Context) (model.TodaySummary, error)
	LowStock(ctx context.Context, limit int) ([]model.LowStockItem, error)
	TopProducts(ctx context.Context, limit int) ([]model.ProductRanking, error)
	InventoryMovement(ctx context.Context, days int) ([]model.MovementPoint, error)
	Activity(ctx context.Context, limit int) ([]model.ActivityItem, error)
	HourlySales(ctx context.Context) ([]model.HourlySales, error)
	Sales(ctx context.Context, q DashboardQuery) ([]model.SalesPoint, error)
}

type dashboardService struct {
	repo        repository.DashboardRepository
	invoiceRepo repository.InvoiceRepository
	txRepo      repository.InventoryTxRepository
	loc         *time.Location
	now         func() time.Time
}

func NewDashboardService(
	repo repository.DashboardRepository,
	invoiceRepo repository.InvoiceRepository,
	txRepo repository.InventoryTxRepository,
	loc *time.Location,
) DashboardService {
	if loc == nil {
		loc = time.UTC
	}
	return &dashboardService{repo: repo, invoiceRepo: invoiceRepo, txRepo: txRepo, loc: loc, now: time.Now}
}

func (s *dashboardService) today() time.Time {
	return startOfDay(s.now().In(s.loc))
}

// period returns the [from, to) window of a filter in the shop's timezone.
func (s *dashboardService) period(q DashboardQuery) (time.Time, time.Time, error) {
	today := s.today()
	tomorrow := today.AddDate(0, 0, 1)

	switch q.Filter {
	case "", FilterToday:
		return today, tomorrow, nil
	case FilterYesterday:
		return today.AddDate(0, 0, -1), today, nil
	case FilterLast10Days:
		return today.AddDate(0, 0, -9), tomorrow, nil
	case FilterLast30Days:
		return today.AddDate(0, 0, -29), tomorrow, nil
	case FilterMonth:
		year, month := q.Year, time.Month(q.Month)
		if year == 0 {
			year = today.Year()
		}
		if month == 0 {
			month = today.Month()
		}
		if month < time.January || month > time.December {
			return time.Time{}, time.Time{}, apperror.Validation("month must be between 1 and 12")
		}
		from := time.Date(year, month, 1, 0, 0, 0, 0, s.loc)
		return from, from.AddDate(0, 1, 0), nil
	default:
		return time.Time{}, time.Time{}, apperror.Validation("unknown filter %s", q.Filter)
	}
}

func (s *dashboardService) Stats(ctx context.Context, q DashboardQuery) (model.DashboardStats, error) {
	from, to, err := s.period(q)
	if err != nil {
		return model.DashboardStats{}, err
	}

	var stats model.DashboardStats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats.TotalSales, stats.TotalOrders, err = s.repo.PaidSales(gctx, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		stats.TotalCustomers, err = s.repo.DistinctPaidCustomers(gctx, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		stats.LowStockItems, err = s.repo.CountLowStock(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.DashboardStats{}, fmt.Errorf("failed to load dashboard stats: %w", err)
	}
	return stats, nil
}

func (s *dashboardService) Today(ctx context.Context) (model.TodaySummary, error) {
	since := s.today()

	var summary model.TodaySummary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary.InvoicesToday, err = s.repo.CountInvoicesSince(gctx, since)
		return err
	})
	g.Go(func() error {
		var err error
		summary.ItemsSoldToday, summary.InventoryOutToday, err = s.repo.OutboundSince(gctx, since)
		return err
	})
	g.Go(func() error {
		var err error
		summary.NewCustomersToday, err = s.repo.CountCustomersSince(gctx, since)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.TodaySummary{}, fmt.Errorf("failed to load today summary: %w", err)
	}
	return summary, nil
}

func (s *dashboardService) LowStock(ctx context.Context, limit int) ([]model.LowStockItem, error) {
	if limit <= 0 {
		limit = 10
	}
	items, err := s.repo.LowStock(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load low stock: %w", err)
	}
	return items, nil
}

func (s *dashboardService) TopProducts(ctx context.Context, limit int) ([]model.ProductRanking, error) {
	if limit <= 0 {
		limit = 5
	}
	rankings, err := s.repo.TopProducts(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load top products: %w", err)
	}
	return rankings, nil
}

func (s *dashboardService) InventoryMovement(ctx context.Context, days int) ([]model.MovementPoint, error) {
	if days <= 0 {
		days = 7
	}
	if days > 90 {
		days = 90
	}
	start := s.today().AddDate(0, 0, -(days - 1))

	txs, err := s.txRepo.ListSince(ctx, start)
	if err != nil {
		return nil, fmt.Errorf("failed to load inventory movement: %w", err)
	}

	points := make([]model.MovementPoint, days)
	index := make(map[string]int, days)
	for i := range points {
		day := start.AddDate(0, 0, i).Format("2006-01-02")
		points[i].Day = day
		index[day] = i
	}
	for _, t := range txs {
		i, ok := index[t.CreatedAt.In(s.loc).Format("2006-01-02")]
		if !ok {
			continue
		}
		if t.Type == model.TxTypeIn {
			points[i].Inward += t.Quantity
		} else {
			points[i].Outward += t.Quantity
		}
	}
	return points, nil
}

func (s *dashboardService) Activity(ctx context.Context, limit int) ([]model.ActivityItem, error) {
	if limit <= 0 {
		limit = 10
	}

	var invoices []model.Invoice
	var txs []model.InventoryTransaction
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		invoices, err = s.invoiceRepo.Recent(gctx, limit)
		return err
	})
	g.Go(func() error {
		var err error
		txs, err = s.txRepo.Recent(gctx, limit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load activity: %w", err)
	}

	type entry struct {
		at   time.Time
		item model.ActivityItem
	}
	entries := make([]entry, 0, len(invoices)+len(txs))
	for _, inv := range invoices {
		entries = append(entries, entry{inv.CreatedAt, model.ActivityItem{
			Type: "invoice",
			Text: fmt.Sprintf("Invoice %s created for %s (%s)", inv.InvoiceNumber, billing.FormatAmount(inv.Total), inv.PaymentStatus),
		}})
	}
	for _, t := range txs {
		name := t.ProductID.String()
		if t.Product != nil {
			name = t.Product.Name
		}
		if t.VariantSKU != "" {
			name = fmt.Sprintf("%s [%s]", name, t.VariantSKU)
		}
		entries = append(entries, entry{t.CreatedAt, model.ActivityItem{
			Type: "inventory",
			Text: fmt.Sprintf("Stock %s: %d x %s", t.Type, t.Quantity, name),
		}})
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].at.After(entries[j].at) })
	if len(entries) > limit {
		entries = entries[:limit]
	}

	items := make([]model.ActivityItem, 0, len(entries))
	for _, e := range entries {
		e.item.Date = e.at.In(s.loc).Format(time.RFC3339)
		items = append(items, e.item)
	}
	return items, nil
}

func (s *dashboardService) HourlySales(ctx context.Context) ([]model.HourlySales, error) {
	today := s.today()
	invoices, err := s.invoiceRepo.ListBetween(ctx, today, today.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to load hourly sales: %w", err)
	}

	hours := make([]model.HourlySales, 24)
	for h := range hours {
		hours[h] = model.HourlySales{
			Hour:  h,
			Label: today.Add(time.Duration(h) * time.Hour).Format("3 PM"),
			Total: decimal.Zero,
		}
	}
	for _, inv := range invoices {
		if inv.PaymentStatus != billing.PaymentPaid {
			continue
		}
		h := inv.CreatedAt.In(s.loc).Hour()
		hours[h].Total = hours[h].Total.Add(inv.Total)
	}
	return hours, nil
}

// Sales buckets invoice totals per local day of the filter period.
func (s *dashboardService) Sales(ctx context.Context, q DashboardQuery) ([]model.SalesPoint, error) {
	from, to, err := s.period(q)
	if err != nil {
		return nil, err
	}
	invoices, err := s.invoiceRepo.ListBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load sales: %w", err)
	}

	var points []model.SalesPoint
	index := make(map[string]int)
	for day := from; day.Before(to); day = day.AddDate(0, 0, 1) {
		key := day.Format("2006-01-02")
		index[key] = len(points)
		points = append(points, model.SalesPoint{
			Name:    day.Format("02 Jan"),
			Total:   decimal.Zero,
			Paid:    decimal.Zero,
			Pending: decimal.Zero,
			Overdue: decimal.Zero,
		})
	}

	for _, inv := range invoices {
		i, ok := index[inv.CreatedAt.In(s.loc).Format("2006-01-02")]
		if !ok {
			continue
		}
		p := &points[i]
		switch inv.PaymentStatus {
		case billing.PaymentCancelled:
			continue
		case billing.PaymentPaid:
			p.Paid = p.Paid.Add(inv.Total)
		case billing.PaymentOverdue:
			p.Overdue = p.Overdue.Add(inv.Total)
		default:
			p.Pending = p.Pending.Add(inv.Total)
		}
		p.Total = p.Total.Add(inv.Total)
	}
	return points, nil
}
