package handler

import (
	"net/http"

	"storefront-erp/internal/middleware"
	"storefront-erp/internal/service"
	"storefront-erp/pkg/response"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	dashboardService service.DashboardService
}

func NewDashboardHandler(dashboardService service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

func (h *DashboardHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/dashboard")
	group.Use(middleware.RequireAuth())
	{
		group.GET("", h.Stats)
		group.GET("/today", h.Today)
		group.GET("/low-stock", h.LowStock)
		group.GET("/top-products", h.TopProducts)
		group.GET("/inventory-movement", h.InventoryMovement)
		group.GET("/activity", h.Activity)
		group.GET("/hourly-sales", h.HourlySales)
		group.GET("/sales", h.Sales)
	}
}

func dashboardQuery(c *gin.Context) service.DashboardQuery {
	return service.DashboardQuery{
		Filter: c.DefaultQuery("filter", service.FilterToday),
		Year:   queryInt(c, "year", 0),
		Month:  queryInt(c, "month", 0),
	}
}

// Stats returns paid sales, orders, customers and low stock for a period
// @Summary      Dashboard stats
// @Tags         dashboard
// @Security     BearerAuth
// @Produce      json
// @Param        filter  query     string  false  "today, yesterday, last_10_days, last_30_days or month"
// @Param        year    query     int     false  "Year for the month filter"
// @Param        month   query     int     false  "Month (1-12) for the month filter"
// @Success      200     {object}  response.Response{data=model.DashboardStats}
// @Failure      400     {object}  response.Response
// @Router       /api/dashboard [get]
func (h *DashboardHandler) Stats(c *gin.Context) {
	stats, err := h.dashboardService.Stats(c.Request.Context(), dashboardQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, stats))
}

// Today returns today's counters
// @Summary      Today summary
// @Tags         dashboard
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=model.TodaySummary}
// @Router       /api/dashboard/today [get]
func (h *DashboardHandler) Today(c *gin.Context) {
	summary, err := h.dashboardService.Today(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}

// @Summary      Low stock products
// @Tags         dashboard
// @Security     BearerAuth
// @Produce      json
// @Param        limit  query     int  false  "Max rows (default 10)"
// @Success      200    {object}  response.Response{data=[]model.LowStockItem}
// @Router       /api/dashboard/low-stock [get]
func (h *DashboardHandler) LowStock(c *gin.Context) {
	items, err := h.dashboardService.LowStock(c.Request.Context(), queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}

// @Summary      Best selling products
// @Tags         dashboard
// @Security     BearerAuth
// @Produce      json
// @Param        limit  query     int  false  "Max rows (default 5)"
// @Success      200    {object}  response.Response{data=[]model.ProductRanking}
// @Router       /api/dashboard/top-products [get]
func (h *DashboardHandler) TopProducts(c *gin.Context) {
	rankings, err := h.dashboardService.TopProducts(c.Request.Context(), queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, rankings))
}

// @Summary      Daily inward and outward quantities
// @Tags         dashboard
// @Security     BearerAuth
// @Produce      json
// @Param        days  query     int  false  "Days to cover (default 7, max 90)"
// @Success      200   {object}  response.Response{data=[]model.MovementPoint}
// @Router       /api/dashboard/inventory-movement [get]
func (h *DashboardHandler) InventoryMovement(c *gin.Context) {
	points, err := h.dashboardService.InventoryMovement(c.Request.Context(), queryInt(c, "days", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, points))
}

// @Summary      Recent invoices and stock moves
// @Tags         dashboard
// @Security     BearerAuth
// @Produce      json
// @Param        limit  query     int  false  "Max rows (default 10)"
// @Success      200    {object}  response.Response{data=[]model.ActivityItem}
// @Router       /api/dashboard/activity [get]
func (h *DashboardHandler) Activity(c *gin.Context) {
	items, err := h.dashboardService.Activity(c.Request.Context(), queryInt(c, "limit", 0))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}

// @Summary      Paid sales per hour today
// @Tags         dashboard
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]model.HourlySales}
// @Router       /api/dashboard/hourly-sales [get]
func (h *DashboardHandler) HourlySales(c *gin.Context) {
	hours, err := h.dashboardService.HourlySales(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, hours))
}

// Sales returns per-day totals split by payment status
// @Summary      Sales chart
// @Tags         dashboard
// @Security     BearerAuth
// @Produce      json
// @Param        filter  query     string  false  "today, yesterday, last_10_days, last_30_days or month"
// @Param        year    query     int     false  "Year for the month filter"
// @Param        month   query     int     false  "Month (1-12) for the month filter"
// @Success      200     {object}  response.Response{data=[]model.SalesPoint}
// @Failure      400     {object}  response.Response
// @Router       /api/dashboard/sales [get]
func (h *DashboardHandler) Sales(c *gin.Context) {
	points, err := h.dashboardService.Sales(c.Request.Context(), dashboardQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, points))
}
