package handler

import (
	"net/http"

	"storefront-erp/internal/middleware"
	"storefront-erp/internal/service"
	"storefront-erp/pkg/pagination"
	"storefront-erp/pkg/response"

	"github.com/gin-gonic/gin"
)

type CustomerHandler struct {
	customerService service.CustomerService
}

func NewCustomerHandler(customerService service.CustomerService) *CustomerHandler {
	return &CustomerHandler{customerService: customerService}
}

func (h *CustomerHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/customers")
	group.Use(middleware.RequireAuth())
	{
		group.GET("", h.List)
		group.POST("", h.Create)
		group.GET("/search", h.SearchByPhone)
		group.GET("/:id", h.Get)
	}
}

// List returns a page of customers
// @Summary      List customers
// @Tags         customers
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Param        search  query     string  false  "Name or phone contains"
// @Success      200     {object}  response.Response{data=[]service.CustomerResponse}
// @Router       /api/customers [get]
func (h *CustomerHandler) List(c *gin.Context) {
	params := pagination.Parse(c)
	customers, total, err := h.customerService.List(c.Request.Context(), c.Query("search"), params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, customers, params.Page, params.Limit, total))
}

// Create registers a customer
// @Summary      Create customer
// @Tags         customers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CustomerRequest  true  "Customer payload"
// @Success      201      {object}  response.Response{data=service.CustomerResponse}
// @Failure      400      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/customers [post]
func (h *CustomerHandler) Create(c *gin.Context) {
	var req service.CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c, err)
		return
	}

	customer, err := h.customerService.Create(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, customer))
}

// SearchByPhone finds a customer by exact phone number
// @Summary      Find customer by phone
// @Tags         customers
// @Security     BearerAuth
// @Produce      json
// @Param        phone  query     string  true  "Phone number"
// @Success      200    {object}  response.Response{data=service.CustomerResponse}
// @Failure      404    {object}  response.Response
// @Router       /api/customers/search [get]
func (h *CustomerHandler) SearchByPhone(c *gin.Context) {
	phone := c.Query("phone")
	if phone == "" {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "phone is required"))
		return
	}

	customer, err := h.customerService.FindByPhone(c.Request.Context(), phone)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, customer))
}

// Get returns one customer
// @Summary      Get customer
// @Tags         customers
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Customer ID"
// @Success      200  {object}  response.Response{data=service.CustomerResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/customers/{id} [get]
func (h *CustomerHandler) Get(c *gin.Context) {
	customer, err := h.customerService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, customer))
}
