package handler

import (
	"net/http"

	"storefront-erp/internal/middleware"
	"storefront-erp/internal/model"
	"storefront-erp/internal/service"
	"storefront-erp/pkg/response"

	"github.com/gin-gonic/gin"
)

type CategoryHandler struct {
	categoryService service.CategoryService
}

func NewCategoryHandler(categoryService service.CategoryService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService}
}

func (h *CategoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/categories")
	group.Use(middleware.RequireAuth())
	{
		group.GET("", h.List)
		group.POST("", middleware.RequireRole(model.RoleAdmin), h.Create)
		group.DELETE("/:id", middleware.RequireRole(model.RoleAdmin), h.Delete)
	}
}

// List returns every category
// @Summary      List categories
// @Tags         categories
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.CategoryResponse}
// @Router       /api/categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	categories, err := h.categoryService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, categories))
}

// Create adds a category
// @Summary      Create category
// @Tags         categories
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CategoryRequest  true  "Category payload"
// @Success      201      {object}  response.Response{data=service.CategoryResponse}
// @Failure      409      {object}  response.Response
// @Router       /api/categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	var req service.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	category, err := h.categoryService.Create(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, category))
}

// Delete removes an unused category
// @Summary      Delete category
// @Description  Refuses while products still reference the category
// @Tags         categories
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Category ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/categories/{id} [delete]
func (h *CategoryHandler) Delete(c *gin.Context) {
	if err := h.categoryService.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Category deleted"}))
}
