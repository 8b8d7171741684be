package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"storefront-service/internal/app"
	"storefront-service/internal/config"
	"storefront-service/internal/events"
	"storefront-service/internal/handlers"
	"storefront-service/internal/middleware"
)

// @title Storefront API
// @version 1.0.0
// @description Smoking accessories storefront and back-office API: catalog, cart, checkout, compliance and catalog sync

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey AdminKey
// @in header
// @name X-Admin-Key

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.Load()

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Redis backs the suggestion cache and the Zoho token cache; both degrade without it
	var redisClient *redis.Client
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.WithError(err).Warn("Failed to parse Redis URL, continuing without Redis")
	} else {
		redisClient = redis.NewClient(redisOpts)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("Failed to connect to Redis, caching will be disabled")
		} else {
			logger.Info("Redis connected")
		}
		cancel()
	}

	var publisher *events.Publisher
	if cfg.NATSURL != "" {
		publisher, err = events.NewPublisher(cfg.NATSURL, logger)
		if err != nil {
			logger.WithError(err).Warn("Failed to initialize events publisher, continuing without event publishing")
		} else {
			logger.Info("Events publisher initialized")
		}
	} else {
		logger.Info("NATS_URL not set, skipping event publishing")
	}

	a := app.New(cfg, db, redisClient, publisher, logger)

	zohoErr := cfg.ZohoMissing()
	airtableErr := cfg.AirtableMissing()
	openAIErr := cfg.OpenAIMissing()
	for name, err := range map[string]error{"zoho": zohoErr, "airtable": airtableErr, "openai": openAIErr} {
		if err != nil {
			logger.WithField("integration", name).WithError(err).Warn("Integration disabled")
		}
	}

	healthHandler := handlers.NewHealthHandler().
		Require("database", func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		})
	if redisClient != nil {
		healthHandler.Optional("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	if cfg.NATSURL != "" {
		healthHandler.Optional("nats", func(ctx context.Context) error {
			if !publisher.IsConnected() {
				return errors.New("not connected")
			}
			return nil
		})
	}

	cartHandler := handlers.NewCartHandler(a.CartService)
	orderHandler := handlers.NewOrderHandler(a.OrderService)
	catalogHandler := handlers.NewCatalogHandler(a.Catalog, cfg.DefaultPageSize, cfg.MaxPageSize)
	syncHandler := handlers.NewSyncHandler(a.Sync, zohoErr, a.ContentSync, airtableErr, logger)
	complianceHandler := handlers.NewComplianceHandler(a.Compliance)
	classificationHandler := handlers.NewClassificationHandler(a.Classifier, a.Products)
	productHandler := handlers.NewProductHandler(a.Descriptions, openAIErr)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS(cfg.CORSOrigins...))

	// Health check endpoints (no auth required)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	api := router.Group("/api/v1")
	{
		api.GET("/search/suggestions", catalogHandler.Suggestions)

		shopper := api.Group("")
		shopper.Use(middleware.CustomerMiddleware())
		{
			cart := shopper.Group("/cart")
			cart.GET("", cartHandler.GetCart)
			cart.POST("/items", cartHandler.AddItem)
			cart.PUT("/items", cartHandler.UpdateItem)
			cart.DELETE("", cartHandler.RemoveItem)

			orders := shopper.Group("/orders")
			orders.POST("", orderHandler.CreateOrder)
			orders.GET("", orderHandler.ListOrders)
			orders.GET("/:id", orderHandler.GetOrder)

			shopper.GET("/vip/products", middleware.RequireVIP(), catalogHandler.ListVIPProducts)
			shopper.POST("/compliance/order/validate", complianceHandler.ValidateOrder)
		}

		admin := api.Group("/admin")
		admin.Use(middleware.AdminMiddleware(cfg.AdminAPIKey, cfg.Environment, logger))
		{
			admin.POST("/sync/zoho/:phase", syncHandler.SyncZoho)
			admin.POST("/sync/airtable", syncHandler.SyncAirtable)

			admin.POST("/vip/products", catalogHandler.CreateVIPProduct)
			admin.POST("/products/:id/generate-description", productHandler.GenerateDescription)

			admin.POST("/compliance/seed", complianceHandler.SeedRules)
			admin.GET("/compliance/rules", complianceHandler.ListRules)
			admin.POST("/compliance/analyze", complianceHandler.Analyze)
			admin.GET("/products/:id/compliance/audit", complianceHandler.AuditProduct)
			admin.GET("/products/:id/compliance/state/:state", complianceHandler.CheckState)
			admin.GET("/products/:id/compliance/logs", complianceHandler.ListAuditLogs)
			admin.POST("/products/:id/compliance", complianceHandler.AssignRule)

			admin.POST("/classification/enqueue", classificationHandler.Enqueue)
			admin.GET("/classification/status", classificationHandler.Status)
			admin.POST("/classification/products/:id", classificationHandler.ClassifyProduct)

			admin.PUT("/orders/:id/status", orderHandler.UpdateOrderStatus)
		}
	}

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Port).Info("Storefront service starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down storefront-service...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
	a.Close()

	logger.Info("Storefront service stopped")
}
