package handler

import (
	"net/http"

	"storefront-erp/internal/middleware"
	"storefront-erp/internal/service"
	"storefront-erp/pkg/pagination"
	"storefront-erp/pkg/response"

	"github.com/gin-gonic/gin"
)

const transactionPageSize = 30

type InventoryHandler struct {
	inventoryService service.InventoryService
}

func NewInventoryHandler(inventoryService service.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService}
}

func (h *InventoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	inventory := router.Group("/api/inventory")
	inventory.Use(middleware.RequireAuth())
	{
		inventory.POST("/material-inward", h.MaterialInward)
		inventory.POST("/material-outward", h.MaterialOutward)
		inventory.GET("/transactions", h.ListTransactions)
	}
}

// MaterialInward adds stock to a product or variant
// @Summary      Material inward
// @Description  Adds stock and records an IN ledger row with stock before and after
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.MaterialInwardRequest  true  "Inward payload"
// @Success      201      {object}  response.Response{data=service.InventoryTransactionResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/inventory/material-inward [post]
func (h *InventoryHandler) MaterialInward(c *gin.Context) {
	var req service.MaterialInwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	tx, err := h.inventoryService.MaterialInward(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, tx))
}

// MaterialOutward removes stock from a product or variant
// @Summary      Material outward
// @Description  Refuses to take stock below zero; a reason is required
// @Tags         inventory
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.MaterialOutwardRequest  true  "Outward payload"
// @Success      201      {object}  response.Response{data=service.InventoryTransactionResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/inventory/material-outward [post]
func (h *InventoryHandler) MaterialOutward(c *gin.Context) {
	var req service.MaterialOutwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	tx, err := h.inventoryService.MaterialOutward(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, tx))
}

// ListTransactions returns the stock ledger, newest first
// @Summary      List inventory transactions
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        product_id  query     string  false  "Product ID"
// @Param        type        query     string  false  "IN or OUT"
// @Param        days        query     int     false  "Only the last N days"
// @Param        page        query     int     false  "Page number (default 1)"
// @Param        limit       query     int     false  "Number of items per page (default 30)"
// @Success      200         {object}  response.Response{data=[]service.InventoryTransactionResponse}
// @Failure      400         {object}  response.Response
// @Router       /api/inventory/transactions [get]
func (h *InventoryHandler) ListTransactions(c *gin.Context) {
	params := pagination.ParseWithDefault(c, transactionPageSize)
	txs, total, err := h.inventoryService.ListTransactions(c.Request.Context(), service.TransactionQuery{
		ProductID: c.Query("product_id"),
		Type:      c.Query("type"),
		Days:      queryInt(c, "days", 0),
		Page:      params.Page,
		Limit:     params.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, txs, params.Page, params.Limit, total))
}
