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
	"github.com/google/uuid"
)

type ProductHandler struct {
	productService service.ProductService
}

func NewProductHandler(productService service.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

func (h *ProductHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/products")
	group.Use(middleware.RequireAuth())
	{
		group.GET("", h.List)
		group.GET("/list", h.ListBrief)
		group.GET("/sku/:sku", h.LookupSKU)
		group.GET("/:id", h.Get)

		admin := group.Group("")
		admin.Use(middleware.RequireRole(model.RoleAdmin))
		admin.POST("", h.Create)
		admin.PUT("/:id", h.Update)
		admin.DELETE("/:id", h.Delete)
	}
}

// List returns a page of products
// @Summary      List products
// @Description  Cost price is only included for admins
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Items per page (default 20)"
// @Param        search       query     string  false  "Name, SKU or code contains"
// @Param        category_id  query     string  false  "Category ID"
// @Param        sort         query     string  false  "price_asc, price_desc or name"
// @Success      200          {object}  response.Response{data=[]service.ProductResponse}
// @Router       /api/products [get]
func (h *ProductHandler) List(c *gin.Context) {
	params := pagination.Parse(c)
	filter := repository.ProductFilter{
		Search: c.Query("search"),
		Sort:   c.Query("sort"),
		Page:   params.Page,
		Limit:  params.Limit,
	}
	if raw := c.Query("category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid category_id"))
			return
		}
		filter.CategoryID = &id
	}

	products, total, err := h.productService.List(c.Request.Context(), middleware.IsAdmin(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, products, params.Page, params.Limit, total))
}

// ListBrief returns every product with its variant options
// @Summary      Product picker list
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.ProductBrief}
// @Router       /api/products/list [get]
func (h *ProductHandler) ListBrief(c *gin.Context) {
	products, err := h.productService.ListBrief(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, products))
}

// Get returns one product
// @Summary      Get product
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response{data=service.ProductResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id} [get]
func (h *ProductHandler) Get(c *gin.Context) {
	product, err := h.productService.Get(c.Request.Context(), middleware.IsAdmin(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// LookupSKU resolves a product or variant SKU
// @Summary      Look up SKU
// @Description  Variant SKUs are checked first; match is "variant" or "product"
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        sku  path      string  true  "Product or variant SKU"
// @Success      200  {object}  response.Response{data=service.SKULookupResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/products/sku/{sku} [get]
func (h *ProductHandler) LookupSKU(c *gin.Context) {
	res, err := h.productService.LookupSKU(c.Request.Context(), middleware.IsAdmin(c), c.Param("sku"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// Create adds a product with its variants
// @Summary      Create product
// @Description  Generates product code, default SKU and QR labels
// @Tags         products
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.ProductRequest  true  "Product payload"
// @Success      201      {object}  response.Response{data=service.ProductResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/products [post]
func (h *ProductHandler) Create(c *gin.Context) {
	var req service.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	product, err := h.productService.Create(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, product))
}

// Update replaces a product and its variants
// @Summary      Update product
// @Tags         products
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                  true  "Product ID"
// @Param        payload  body      service.ProductRequest  true  "Product payload"
// @Success      200      {object}  response.Response{data=service.ProductResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/products/{id} [put]
func (h *ProductHandler) Update(c *gin.Context) {
	var req service.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	product, err := h.productService.Update(c.Request.Context(), middleware.UserID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// Delete soft-deletes a product
// @Summary      Delete product
// @Tags         products
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id} [delete]
func (h *ProductHandler) Delete(c *gin.Context) {
	if err := h.productService.Delete(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Product deleted"}))
}
