package handler

import (
	"net/http"
	"strconv"

	"storefront-erp/internal/middleware"
	"storefront-erp/internal/service"
	"storefront-erp/pkg/response"

	"github.com/gin-gonic/gin"
)

// DraftHandler exposes the counter billing screen: one draft per terminal,
// filled by scans and closed by submit.
type DraftHandler struct {
	draftService service.DraftService
}

func NewDraftHandler(draftService service.DraftService) *DraftHandler {
	return &DraftHandler{draftService: draftService}
}

func (h *DraftHandler) RegisterRoutes(router *gin.RouterGroup) {
	drafts := router.Group("/api/drafts")
	drafts.Use(middleware.RequireAuth())
	{
		drafts.POST("", h.Open)
		drafts.GET("/:id", h.Get)
		drafts.DELETE("/:id", h.Discard)
		drafts.POST("/:id/scan", h.Scan)
		drafts.POST("/:id/variants", h.SelectVariant)
		drafts.PATCH("/:id/items/:index", h.UpdateItem)
		drafts.DELETE("/:id/items/:index", h.RemoveItem)
		drafts.PUT("/:id/adjustments", h.SetAdjustments)
		drafts.PUT("/:id/customer", h.SetCustomer)
		drafts.POST("/:id/submit", h.Submit)
	}
}

func itemIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid item index"))
		return 0, false
	}
	return index, true
}

// Open starts an empty draft
// @Summary      Open draft
// @Tags         drafts
// @Security     BearerAuth
// @Produce      json
// @Success      201  {object}  response.Response{data=service.DraftResponse}
// @Router       /api/drafts [post]
func (h *DraftHandler) Open(c *gin.Context) {
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, h.draftService.Open()))
}

// Get returns a draft with live totals
// @Summary      Get draft
// @Tags         drafts
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Draft ID"
// @Success      200  {object}  response.Response{data=service.DraftResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/drafts/{id} [get]
func (h *DraftHandler) Get(c *gin.Context) {
	draft, err := h.draftService.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, draft))
}

// Discard drops a draft
// @Summary      Discard draft
// @Tags         drafts
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Draft ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/drafts/{id} [delete]
func (h *DraftHandler) Discard(c *gin.Context) {
	if err := h.draftService.Discard(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Draft discarded"}))
}

// Scan feeds one scanner payload into the draft
// @Summary      Scan item
// @Description  Accepts a bare SKU or a JSON label payload. Scans arriving while the previous one is still being handled are ignored.
// @Tags         drafts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string               true  "Draft ID"
// @Param        payload  body      service.ScanRequest  true  "Raw scanner text"
// @Success      200      {object}  response.Response{data=service.ScanResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/drafts/{id}/scan [post]
func (h *DraftHandler) Scan(c *gin.Context) {
	var req service.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	res, err := h.draftService.Scan(c.Request.Context(), c.Param("id"), req.Raw)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// SelectVariant completes a variant prompt
// @Summary      Select variant
// @Tags         drafts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Draft ID"
// @Param        payload  body      service.SelectVariantRequest  true  "Chosen variant"
// @Success      200      {object}  response.Response{data=service.ScanResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/drafts/{id}/variants [post]
func (h *DraftHandler) SelectVariant(c *gin.Context) {
	var req service.SelectVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	res, err := h.draftService.SelectVariant(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// UpdateItem edits quantity, price or GST rate of a line
// @Summary      Update draft line
// @Tags         drafts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                          true  "Draft ID"
// @Param        index    path      int                             true  "Line index"
// @Param        payload  body      service.UpdateDraftItemRequest  true  "Fields to change"
// @Success      200      {object}  response.Response{data=service.DraftResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/drafts/{id}/items/{index} [patch]
func (h *DraftHandler) UpdateItem(c *gin.Context) {
	index, ok := itemIndex(c)
	if !ok {
		return
	}
	var req service.UpdateDraftItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	draft, err := h.draftService.UpdateItem(c.Param("id"), index, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, draft))
}

// RemoveItem drops a line
// @Summary      Remove draft line
// @Tags         drafts
// @Security     BearerAuth
// @Produce      json
// @Param        id     path      string  true  "Draft ID"
// @Param        index  path      int     true  "Line index"
// @Success      200    {object}  response.Response{data=service.DraftResponse}
// @Failure      404    {object}  response.Response
// @Router       /api/drafts/{id}/items/{index} [delete]
func (h *DraftHandler) RemoveItem(c *gin.Context) {
	index, ok := itemIndex(c)
	if !ok {
		return
	}

	draft, err := h.draftService.RemoveItem(c.Param("id"), index)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, draft))
}

// SetAdjustments sets discount, manual charge and payment status
// @Summary      Set draft adjustments
// @Tags         drafts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                      true  "Draft ID"
// @Param        payload  body      service.AdjustmentsRequest  true  "Adjustments"
// @Success      200      {object}  response.Response{data=service.DraftResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/drafts/{id}/adjustments [put]
func (h *DraftHandler) SetAdjustments(c *gin.Context) {
	var req service.AdjustmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	draft, err := h.draftService.SetAdjustments(c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, draft))
}

// SetCustomer fills the customer block
// @Summary      Set draft customer
// @Description  A phone number that belongs to a known customer pre-fills the remaining fields
// @Tags         drafts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Draft ID"
// @Param        payload  body      service.DraftCustomerRequest  true  "Customer"
// @Success      200      {object}  response.Response{data=service.DraftResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/drafts/{id}/customer [put]
func (h *DraftHandler) SetCustomer(c *gin.Context) {
	var req service.DraftCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	draft, err := h.draftService.SetCustomer(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, draft))
}

// Submit turns the draft into an invoice
// @Summary      Submit draft
// @Description  Validates the draft, creates the invoice and closes the draft. A second submit of the same draft gets 404.
// @Tags         drafts
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Draft ID"
// @Success      201  {object}  response.Response{data=service.InvoiceResponse}
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/drafts/{id}/submit [post]
func (h *DraftHandler) Submit(c *gin.Context) {
	invoice, err := h.draftService.Submit(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, invoice))
}
