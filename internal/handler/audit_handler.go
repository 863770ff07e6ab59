package handler

import (
	"net/http"

	"storefront-erp/internal/middleware"
	"storefront-erp/internal/model"
	"storefront-erp/internal/repository"
	"storefront-erp/internal/service"
	"storefront-erp/pkg/pagination"
	"storefront-erp/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/audit-logs")
	group.Use(middleware.RequireRole(model.RoleAdmin)) // Protect history logs
	{
		group.GET("", h.GetAuditLogs)
	}
}

// GetAuditLogs retrieves paginated audit records with the acting user's name
// @Summary      Get audit logs
// @Description  Product, invoice, customer and stock changes, newest first
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        action     query     string  false  "Filter by action, e.g. CREATE_INVOICE"
// @Param        entity_id  query     string  false  "History of one product, invoice or customer"
// @Param        page       query     int     false  "Page number (default 1)"
// @Param        limit      query     int     false  "Number of items per page (default 20)"
// @Success      200        {object}  response.Response{data=[]service.AuditLogResponse}
// @Router       /api/audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	params := pagination.Parse(c)

	logs, total, err := h.auditService.GetAuditLogs(c.Request.Context(), repository.AuditFilter{
		Action:   c.Query("action"),
		EntityID: c.Query("entity_id"),
		Page:     params.Page,
		Limit:    params.Limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, logs, params.Page, params.Limit, total))
}
