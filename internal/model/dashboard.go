package model

import "github.com/shopspring/decimal"

// DashboardStats is the headline block for a date filter
type DashboardStats struct {
	TotalSales     decimal.Decimal `json:"total_sales"`
	TotalOrders    int64           `json:"total_orders"`
	TotalCustomers int64           `json:"total_customers"`
	LowStockItems  int64           `json:"low_stock_items"`
}

// TodaySummary counts today's counter activity
type TodaySummary struct {
	InvoicesToday     int64 `json:"invoices_today"`
	ItemsSoldToday    int64 `json:"items_sold_today"`
	InventoryOutToday int64 `json:"inventory_out_today"`
	NewCustomersToday int64 `json:"new_customers_today"`
}

// LowStockItem is a product at or below its minimum stock
type LowStockItem struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Stock       int    `json:"stock"`
	MinStock    int    `json:"min_stock"`
}

// ProductRanking represents a ranked product based on accumulated quantities
type ProductRanking struct {
	ProductID     string `json:"product_id"`
	ProductName   string `json:"product_name"`
	ProductSKU    string `json:"product_sku"`
	TotalQuantity int    `json:"total_quantity"`
}

// MovementPoint is one day of stock ledger volume
type MovementPoint struct {
	Day     string `json:"day"`
	Inward  int    `json:"inward"`
	Outward int    `json:"outward"`
}

// ActivityItem is one entry of the recent activity feed
type ActivityItem struct {
	Type string `json:"type"` // invoice, inventory
	Text string `json:"text"`
	Date string `json:"date"`
}

// HourlySales is today's paid sales for one hour of the local day
type HourlySales struct {
	Hour  int             `json:"hour"`
	Label string          `json:"label"`
	Total decimal.Decimal `json:"total"`
}

// SalesPoint is one day of the sales chart
type SalesPoint struct {
	Name    string          `json:"name"`
	Total   decimal.Decimal `json:"total"`
	Paid    decimal.Decimal `json:"paid"`
	Pending decimal.Decimal `json:"pending"`
	Overdue decimal.Decimal `json:"overdue"`
}
