package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"storefront-service/internal/models"
	"storefront-service/internal/repository"
)

const (
	MinSuggestionQuery     = 2
	DefaultSuggestionLimit = 5
	MaxSuggestionLimit     = 20
)

// CatalogService serves storefront search and the VIP catalog
type CatalogService struct {
	products repository.ProductsRepositoryInterface
	queue    ClassificationQueue
	logger   *logrus.Logger
}

// NewCatalogService wires the catalog; queue may be nil to skip classification
func NewCatalogService(products repository.ProductsRepositoryInterface, queue ClassificationQueue, logger *logrus.Logger) *CatalogService {
	return &CatalogService{products: products, queue: queue, logger: logger}
}

// Suggestions returns autocomplete matches. Queries shorter than two characters
// return empty lists without touching the database.
func (s *CatalogService) Suggestions(ctx context.Context, query string, limit int) (*models.SearchSuggestions, error) {
	query = strings.TrimSpace(query)
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}
	if limit > MaxSuggestionLimit {
		limit = MaxSuggestionLimit
	}
	if len([]rune(query)) < MinSuggestionQuery {
		return &models.SearchSuggestions{
			Query:      query,
			Products:   []models.ProductSuggestion{},
			Brands:     []string{},
			Categories: []string{},
		}, nil
	}
	return s.products.GetSearchSuggestions(ctx, query, limit)
}

// ListVIPProducts lists visible VIP-exclusive products
func (s *CatalogService) ListVIPProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, int64, error) {
	filter.VIPOnly = true
	return s.products.ListProducts(ctx, &filter)
}

// CreateVIPProduct inserts a VIP-exclusive product and queues it for classification
func (s *CatalogService) CreateVIPProduct(ctx context.Context, req models.CreateProductRequest) (*models.Product, error) {
	queued := models.ClassificationQueued
	product := &models.Product{
		ID:                  uuid.New(),
		Name:                strings.TrimSpace(req.Name),
		SKU:                 strings.TrimSpace(req.SKU),
		Description:         req.Description,
		ShortDescription:    req.ShortDescription,
		Price:               req.Price,
		CompareAtPrice:      req.CompareAtPrice,
		StockQuantity:       req.StockQuantity,
		CategoryID:          req.CategoryID,
		ImageURL:            req.ImageURL,
		IsActive:            true,
		IsVisible:           true,
		VIPExclusive:        true,
		Tags:                pq.StringArray(req.Tags),
		Materials:           pq.StringArray(req.Materials),
		ClassificationState: &queued,
	}
	if name := strings.TrimSpace(req.BrandName); name != "" {
		brand, err := s.products.GetOrCreateBrand(ctx, name)
		if err != nil {
			return nil, err
		}
		product.BrandID = &brand.ID
	}

	if err := s.products.CreateProduct(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	if s.queue != nil {
		s.queue.Enqueue(product.ID)
	}
	s.logger.WithFields(logrus.Fields{"product_id": product.ID, "sku": product.SKU}).Info("VIP product created")
	return product, nil
}
