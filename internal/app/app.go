// Package app wires repositories, clients and services from configuration.
// The HTTP server and the operator CLI share it so both run the same stack.
package app

import (
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"storefront-service/internal/classifier"
	"storefront-service/internal/clients/airtable"
	"storefront-service/internal/clients/openai"
	"storefront-service/internal/clients/zoho"
	"storefront-service/internal/compliance"
	"storefront-service/internal/config"
	"storefront-service/internal/events"
	"storefront-service/internal/repository"
	"storefront-service/internal/services"
)

type App struct {
	Config    *config.Config
	Logger    *logrus.Logger
	DB        *gorm.DB
	Redis     *redis.Client
	Publisher *events.Publisher

	Products       *repository.ProductsRepository
	Carts          *repository.CartRepository
	Orders         *repository.OrderRepository
	ComplianceRepo *repository.ComplianceRepository

	Zoho     *zoho.Client
	Airtable *airtable.Client
	OpenAI   *openai.Client

	Compliance   *compliance.Service
	Classifier   *classifier.Service
	CartService  services.CartService
	OrderService services.OrderService
	Sync         *services.SyncService
	ContentSync  *services.ContentSyncService
	Descriptions *services.DescriptionService
	Catalog      *services.CatalogService
}

// New builds the full stack. rdb and publisher may be nil; external clients
// are always constructed and callers gate them on the *Missing checks.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, publisher *events.Publisher, logger *logrus.Logger) *App {
	a := &App{
		Config:    cfg,
		Logger:    logger,
		DB:        db,
		Redis:     rdb,
		Publisher: publisher,
	}

	a.Products = repository.NewProductsRepository(db, rdb)
	a.Carts = repository.NewCartRepository(db)
	a.Orders = repository.NewOrderRepository(db)
	a.ComplianceRepo = repository.NewComplianceRepository(db)

	a.Zoho = zoho.NewClient(zoho.Config{
		ClientID:       cfg.ZohoClientID,
		ClientSecret:   cfg.ZohoClientSecret,
		RefreshToken:   cfg.ZohoRefreshToken,
		OrganizationID: cfg.ZohoOrganizationID,
		AccountsURL:    cfg.ZohoAccountsURL,
		APIURL:         cfg.ZohoAPIURL,
	}, zoho.WithTokenCache(rdb))
	a.Airtable = airtable.NewClient(airtable.Config{
		APIKey:    cfg.AirtableAPIKey,
		BaseID:    cfg.AirtableBaseID,
		TableName: cfg.AirtableTableName,
	})
	a.OpenAI = openai.NewClient(openai.Config{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.OpenAIModel,
		BaseURL: cfg.OpenAIBaseURL,
	})

	engine := compliance.NewEngine(cfg.ClassifierRuleCutoff)
	a.Compliance = compliance.NewService(a.ComplianceRepo, engine, publisher, logger)

	// llm stays a nil interface without a key so the classifier skips it
	var llm classifier.LLM
	if cfg.OpenAIMissing() == nil {
		llm = a.OpenAI
	} else {
		logger.Warn("OPENAI_API_KEY not set; classifier will rely on rules only")
	}
	a.Classifier = classifier.NewService(classifier.Config{
		BatchSize:    cfg.ClassifierBatchSize,
		Delay:        cfg.ClassifierDelay,
		RuleCutoff:   cfg.ClassifierRuleCutoff,
		HideNicotine: cfg.HideNicotineProducts,
		HideTobacco:  cfg.HideTobaccoProducts,
	}, engine, a.Products, a.Compliance, llm, publisher, logger)

	pricing := services.PricingConfig{
		TaxRate:               cfg.TaxRate,
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		FlatShippingRate:      cfg.FlatShippingRate,
	}
	a.CartService = services.NewCartService(a.Carts, a.Products, pricing)
	a.OrderService = services.NewOrderService(a.Orders, a.Carts, a.Compliance, publisher, pricing, logger)
	a.Sync = services.NewSyncService(a.Zoho, a.Products, a.Classifier, logger)
	a.ContentSync = services.NewContentSyncService(a.Airtable, a.Products, cfg.MatchThreshold, logger)
	a.Descriptions = services.NewDescriptionService(a.Products, a.OpenAI, logger)
	a.Catalog = services.NewCatalogService(a.Products, a.Classifier, logger)

	return a
}

// Close stops the classifier and drains the event connection
func (a *App) Close() {
	a.Classifier.Stop()
	a.Publisher.Close()
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
}
