package main

import (
	"log"
	"net/http"
	"os"

	_ "storefront-erp/api/swagger" // swagger docs
	"storefront-erp/internal/config"
	"storefront-erp/internal/database"
	"storefront-erp/internal/handler"
	"storefront-erp/internal/middleware"
	"storefront-erp/internal/qrlabel"
	"storefront-erp/internal/repository"
	"storefront-erp/internal/service"
	"storefront-erp/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Storefront ERP API
// @version         1.0
// @description     Billing counter, catalog, inventory and dashboard API for a retail and service shop.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()

	dsn := cfg.DatabaseURL
	if cfg.DBDriver == "sqlite" {
		dsn = cfg.SQLitePath
	}
	db, err := database.NewConnection(cfg.DBDriver, dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Printf("Connected to %s successfully.", cfg.DBDriver)

	if err := os.MkdirAll(cfg.StaticDir, 0o755); err != nil {
		log.Fatalf("Static dir %s: %v", cfg.StaticDir, err)
	}

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(cfg.CORSOrigins...)
	go wsHub.Run()

	secret := middleware.GetJWTSecret()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	productRepo := repository.NewProductRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	inventoryTxRepo := repository.NewInventoryTxRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)

	authService := service.NewAuthService(userRepo, secret)
	auditService := service.NewAuditService(auditRepo)
	categoryService := service.NewCategoryService(categoryRepo, auditRepo, txManager)
	productService := service.NewProductService(productRepo, categoryRepo, auditRepo, txManager, qrlabel.NewGenerator(cfg.StaticDir), cfg.Location)
	customerService := service.NewCustomerService(customerRepo, auditRepo, txManager)
	invoiceService := service.NewInvoiceService(invoiceRepo, productRepo, customerRepo, inventoryTxRepo, auditRepo, txManager, wsHub, cfg.Location)
	inventoryService := service.NewInventoryService(productRepo, inventoryTxRepo, auditRepo, txManager, wsHub)
	draftService := service.NewDraftService(service.NewCatalog(productRepo), customerRepo, invoiceService, wsHub, cfg.ScanDebounce)
	dashboardService := service.NewDashboardService(dashboardRepo, invoiceRepo, inventoryTxRepo, cfg.Location)

	// Initialize Handlers
	handlers := []interface {
		RegisterRoutes(router *gin.RouterGroup)
	}{
		handler.NewAuthHandler(authService),
		handler.NewCategoryHandler(categoryService),
		handler.NewProductHandler(productService),
		handler.NewCustomerHandler(customerService),
		handler.NewInvoiceHandler(invoiceService),
		handler.NewDraftHandler(draftService),
		handler.NewInventoryHandler(inventoryService),
		handler.NewDashboardHandler(dashboardService),
		handler.NewAuditHandler(auditService),
	}

	if cfg.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// QR label images
	router.Static("/static", cfg.StaticDir)

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "ws_clients": wsHub.ClientCount()})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, secret)
	})

	// API Routing
	for _, h := range handlers {
		h.RegisterRoutes(router.Group(""))
	}

	log.Printf("Server listening on :%s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
