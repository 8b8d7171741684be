package repository

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"storefront-service/internal/models"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Cache TTL constants
const (
	SuggestionCacheTTL = 60 * time.Second
	suggestionKeyspace = "storefront:suggestions:"
)

// ProductsRepositoryInterface is the product persistence surface used by services
type ProductsRepositoryInterface interface {
	GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProductFields(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	ListProducts(ctx context.Context, filter *models.ProductFilter) ([]models.Product, int64, error)
	ListProductsMissingContent(ctx context.Context, limit int) ([]models.Product, error)
	ListUnclassifiedProducts(ctx context.Context, limit int) ([]models.Product, error)
	HideProduct(ctx context.Context, id uuid.UUID, reason string) error
	SetClassificationState(ctx context.Context, id uuid.UUID, state models.ClassificationState) error
	GetSearchSuggestions(ctx context.Context, query string, limit int) (*models.SearchSuggestions, error)
	FindByZohoItemID(ctx context.Context, zohoItemID string) (*models.Product, error)
	FindBySKU(ctx context.Context, sku string) (*models.Product, error)
	UpdateStockByZohoItemID(ctx context.Context, zohoItemID string, quantity int) (bool, error)
	GetOrCreateBrand(ctx context.Context, name string) (*models.Brand, error)
	UpsertCategoryByZohoID(ctx context.Context, zohoCategoryID, name string) (bool, error)
	FindCategoryByZohoID(ctx context.Context, zohoCategoryID string) (*models.Category, error)
	FindCategoryByName(ctx context.Context, name string) (*models.Category, error)
}

type ProductsRepository struct {
	db    *gorm.DB
	redis *redis.Client
}

var _ ProductsRepositoryInterface = (*ProductsRepository)(nil)

// NewProductsRepository creates a products repository; redis may be nil to disable caching
func NewProductsRepository(db *gorm.DB, redisClient *redis.Client) *ProductsRepository {
	return &ProductsRepository{db: db, redis: redisClient}
}

func suggestionCacheKey(query string, limit int) string {
	hash := md5.Sum([]byte(fmt.Sprintf("%s|%d", query, limit)))
	return suggestionKeyspace + hex.EncodeToString(hash[:])
}

// invalidateSuggestionCache drops every cached suggestion list
func (r *ProductsRepository) invalidateSuggestionCache(ctx context.Context) {
	if r.redis == nil {
		return
	}
	var cursor uint64
	for {
		keys, next, err := r.redis.Scan(ctx, cursor, suggestionKeyspace+"*", 100).Result()
		if err != nil {
			return
		}
		if len(keys) > 0 {
			r.redis.Del(ctx, keys...)
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}

// GetProductByID retrieves a product with its brand and category
func (r *ProductsRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Brand").
		Preload("Category").
		First(&product, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

// GetProductsByIDs retrieves multiple products in a single query
func (r *ProductsRepository) GetProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}
	var products []models.Product
	err := r.db.WithContext(ctx).
		Preload("Brand").
		Preload("Category").
		Where("id IN ?", ids).
		Find(&products).Error
	return products, err
}

// CreateProduct inserts a product, generating the ID and slug when absent
func (r *ProductsRepository) CreateProduct(ctx context.Context, product *models.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	if product.Slug == "" {
		product.Slug = fmt.Sprintf("%s-%s", generateSlug(product.Name), product.ID.String()[:8])
	}
	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now

	// Select all columns so false booleans are written instead of column defaults.
	if err := r.db.WithContext(ctx).Select("*").Omit("Brand", "Category").Create(product).Error; err != nil {
		return err
	}
	r.invalidateSuggestionCache(ctx)
	return nil
}

// UpdateProductFields applies a partial update and stamps updated_at
func (r *ProductsRepository) UpdateProductFields(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now()
	result := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	r.invalidateSuggestionCache(ctx)
	return nil
}

// ListProducts returns visible, active products matching the filter
func (r *ProductsRepository) ListProducts(ctx context.Context, filter *models.ProductFilter) ([]models.Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("is_active = ? AND is_visible = ?", true, true)

	if filter.VIPOnly {
		query = query.Where("vip_exclusive = ?", true)
	}
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.BrandID != nil {
		query = query.Where("brand_id = ?", *filter.BrandID)
	}
	if filter.MinPrice != nil {
		query = query.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("price <= ?", *filter.MaxPrice)
	}
	if filter.InStock {
		query = query.Where("stock_quantity > 0")
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		term := "%" + strings.ToLower(s) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ?", term, term)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	switch filter.SortBy {
	case "price_asc":
		query = query.Order("price ASC")
	case "price_desc":
		query = query.Order("price DESC")
	case "name":
		query = query.Order("name ASC")
	default:
		query = query.Order("created_at DESC")
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	var products []models.Product
	err := query.Preload("Brand").Preload("Category").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// ListProductsMissingContent returns active products without a primary image or description
func (r *ProductsRepository) ListProductsMissingContent(ctx context.Context, limit int) ([]models.Product, error) {
	query := r.db.WithContext(ctx).
		Preload("Brand").
		Preload("Category").
		Where("is_active = ?", true).
		Where("image_url IS NULL OR image_url = '' OR description IS NULL OR description = ''").
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var products []models.Product
	err := query.Find(&products).Error
	return products, err
}

// ListUnclassifiedProducts returns products the classifier has never finished
func (r *ProductsRepository) ListUnclassifiedProducts(ctx context.Context, limit int) ([]models.Product, error) {
	query := r.db.WithContext(ctx).
		Where("classified_at IS NULL").
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var products []models.Product
	err := query.Find(&products).Error
	return products, err
}

// HideProduct removes a product from the public storefront and records why
func (r *ProductsRepository) HideProduct(ctx context.Context, id uuid.UUID, reason string) error {
	now := time.Now()
	state := models.ClassificationHidden
	return r.UpdateProductFields(ctx, id, map[string]interface{}{
		"is_visible":           false,
		"hidden_reason":        reason,
		"hidden_at":            now,
		"classification_state": state,
		"classified_at":        now,
	})
}

// SetClassificationState records classifier progress; terminal states stamp classified_at
func (r *ProductsRepository) SetClassificationState(ctx context.Context, id uuid.UUID, state models.ClassificationState) error {
	updates := map[string]interface{}{"classification_state": state}
	if state.IsTerminal() {
		updates["classified_at"] = time.Now()
	}
	return r.UpdateProductFields(ctx, id, updates)
}

// GetSearchSuggestions returns autocomplete results with a short-lived cache
func (r *ProductsRepository) GetSearchSuggestions(ctx context.Context, query string, limit int) (*models.SearchSuggestions, error) {
	searchTerm := strings.ToLower(strings.TrimSpace(query))
	cacheKey := suggestionCacheKey(searchTerm, limit)

	if r.redis != nil {
		val, err := r.redis.Get(ctx, cacheKey).Result()
		if err == nil {
			var cached models.SearchSuggestions
			if err := json.Unmarshal([]byte(val), &cached); err == nil {
				return &cached, nil
			}
		}
	}

	result := &models.SearchSuggestions{
		Query:      query,
		Products:   []models.ProductSuggestion{},
		Brands:     []string{},
		Categories: []string{},
	}
	like := "%" + searchTerm + "%"

	var products []models.Product
	err := r.db.WithContext(ctx).
		Select("id", "name", "sku", "price", "image_url").
		Where("is_active = ? AND is_visible = ?", true, true).
		Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ?", like, like).
		Order("name ASC").
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		result.Products = append(result.Products, models.ProductSuggestion{
			ID:       p.ID,
			Name:     p.Name,
			SKU:      p.SKU,
			Price:    p.Price,
			ImageURL: p.ImageURL,
		})
	}

	if err := r.db.WithContext(ctx).Model(&models.Brand{}).
		Where("is_active = ? AND LOWER(name) LIKE ?", true, like).
		Order("name ASC").
		Limit(limit).
		Pluck("name", &result.Brands).Error; err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).Model(&models.Category{}).
		Where("is_active = ? AND LOWER(name) LIKE ?", true, like).
		Order("name ASC").
		Limit(limit).
		Pluck("name", &result.Categories).Error; err != nil {
		return nil, err
	}

	if r.redis != nil {
		if data, err := json.Marshal(result); err == nil {
			r.redis.Set(ctx, cacheKey, data, SuggestionCacheTTL)
		}
	}
	return result, nil
}

func (r *ProductsRepository) FindByZohoItemID(ctx context.Context, zohoItemID string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Where("zoho_item_id = ?", zohoItemID).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (r *ProductsRepository) FindBySKU(ctx context.Context, sku string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Where("LOWER(sku) = ?", strings.ToLower(strings.TrimSpace(sku))).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

// UpdateStockByZohoItemID sets stock for a synced product; false when no product carries the ID
func (r *ProductsRepository) UpdateStockByZohoItemID(ctx context.Context, zohoItemID string, quantity int) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("zoho_item_id = ?", zohoItemID).
		Updates(map[string]interface{}{
			"stock_quantity": quantity,
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// GetOrCreateBrand looks a brand up by case-insensitive name, creating it when missing
func (r *ProductsRepository) GetOrCreateBrand(ctx context.Context, name string) (*models.Brand, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("brand name is required")
	}

	var brand models.Brand
	err := r.db.WithContext(ctx).Where("LOWER(name) = ?", strings.ToLower(name)).First(&brand).Error
	if err == nil {
		return &brand, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	brand = models.Brand{
		ID:       uuid.New(),
		Name:     name,
		Slug:     generateSlug(name),
		IsActive: true,
	}
	if err := r.db.WithContext(ctx).Create(&brand).Error; err != nil {
		return nil, fmt.Errorf("failed to create brand %q: %w", name, err)
	}
	return &brand, nil
}

// UpsertCategoryByZohoID creates or renames the category mirrored from Zoho; true when created
func (r *ProductsRepository) UpsertCategoryByZohoID(ctx context.Context, zohoCategoryID, name string) (bool, error) {
	existing, err := r.FindCategoryByZohoID(ctx, zohoCategoryID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return false, err
	}
	if existing != nil {
		if existing.Name == name {
			return false, nil
		}
		return false, r.db.WithContext(ctx).Model(existing).Updates(map[string]interface{}{
			"name":       name,
			"slug":       generateSlug(name),
			"updated_at": time.Now(),
		}).Error
	}

	zid := zohoCategoryID
	category := models.Category{
		ID:             uuid.New(),
		Name:           name,
		Slug:           generateSlug(name),
		ZohoCategoryID: &zid,
		IsActive:       true,
	}
	if err := r.db.WithContext(ctx).Create(&category).Error; err != nil {
		return false, err
	}
	return true, nil
}

func (r *ProductsRepository) FindCategoryByZohoID(ctx context.Context, zohoCategoryID string) (*models.Category, error) {
	var category models.Category
	err := r.db.WithContext(ctx).Where("zoho_category_id = ?", zohoCategoryID).First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &category, nil
}

func (r *ProductsRepository) FindCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	var category models.Category
	err := r.db.WithContext(ctx).Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).First(&category).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &category, nil
}

var slugInvalid = regexp.MustCompile(`[^a-z0-9]+`)

// generateSlug creates a URL-friendly slug from a name
func generateSlug(name string) string {
	slug := slugInvalid.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}
