package handler

import (
	"net/http"

	"storefront-erp/internal/middleware"
	"storefront-erp/internal/service"
	"storefront-erp/pkg/pagination"
	"storefront-erp/pkg/response"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type InvoiceHandler struct {
	invoiceService service.InvoiceService
}

func NewInvoiceHandler(invoiceService service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

func (h *InvoiceHandler) RegisterRoutes(router *gin.RouterGroup) {
	invoices := router.Group("/api/invoices")
	invoices.Use(middleware.RequireAuth())
	{
		invoices.POST("/preview", h.Preview)
		invoices.POST("", h.CreateInvoice)
		invoices.GET("", h.ListInvoices)
		invoices.GET("/export", h.Export)
		invoices.GET("/:id", h.GetInvoice)
		invoices.PATCH("/:id/status", h.UpdateStatus)
	}
}

// Preview computes totals without saving anything
// @Summary      Preview invoice totals
// @Description  Line totals, subtotal, GST, discount and grand total for a posted item list
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.PreviewRequest  true  "Items and adjustments"
// @Success      200      {object}  response.Response{data=service.PreviewResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/invoices/preview [post]
func (h *InvoiceHandler) Preview(c *gin.Context) {
	var req service.PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	res, err := h.invoiceService.Preview(req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// CreateInvoice bills the posted items and takes them out of stock
// @Summary      Create invoice
// @Description  Resolves the customer by id, then phone, else creates one. Totals are computed server-side.
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateInvoiceRequest  true  "Create Invoice Payload"
// @Success      201      {object}  response.Response{data=service.InvoiceResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/invoices [post]
func (h *InvoiceHandler) CreateInvoice(c *gin.Context) {
	var req service.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	invoice, err := h.invoiceService.CreateInvoice(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, invoice))
}

// ListInvoices returns a page of invoices
// @Summary      List invoices
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        status  query     string  false  "paid, pending, cancelled, overdue or ending"
// @Param        range   query     string  false  "last10 or last30"
// @Param        month   query     string  false  "YYYY-MM"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=[]service.InvoiceResponse}
// @Failure      400     {object}  response.Response
// @Router       /api/invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	params := pagination.Parse(c)
	invoices, total, err := h.invoiceService.ListInvoices(c.Request.Context(), service.InvoiceQuery{
		Status: c.Query("status"),
		Range:  c.Query("range"),
		Month:  c.Query("month"),
		Page:   params.Page,
		Limit:  params.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, invoices, params.Page, params.Limit, total))
}

// Export downloads the filtered invoices as a spreadsheet
// @Summary      Export invoices
// @Description  Same filters as the list, without paging
// @Tags         invoices
// @Security     BearerAuth
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        status  query     string  false  "paid, pending, cancelled, overdue or ending"
// @Param        range   query     string  false  "last10 or last30"
// @Param        month   query     string  false  "YYYY-MM"
// @Success      200     {file}    file
// @Failure      400     {object}  response.Response
// @Router       /api/invoices/export [get]
func (h *InvoiceHandler) Export(c *gin.Context) {
	data, err := h.invoiceService.Export(c.Request.Context(), service.InvoiceQuery{
		Status: c.Query("status"),
		Range:  c.Query("range"),
		Month:  c.Query("month"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="invoices.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, data)
}

// GetInvoice returns one invoice with its items
// @Summary      Get invoice
// @Tags         invoices
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Invoice ID"
// @Success      200  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	invoice, err := h.invoiceService.GetInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}

// UpdateStatus changes an invoice's payment status
// @Summary      Update payment status
// @Tags         invoices
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                              true  "Invoice ID"
// @Param        payload  body      service.UpdateInvoiceStatusRequest  true  "New status"
// @Success      200      {object}  response.Response{data=service.InvoiceResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/invoices/{id}/status [patch]
func (h *InvoiceHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateInvoiceStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	invoice, err := h.invoiceService.UpdateStatus(c.Request.Context(), middleware.UserID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, invoice))
}
