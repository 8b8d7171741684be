package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"storefront-service/internal/models"
)

// Catalog is the storefront read side plus VIP product creation
type Catalog interface {
	Suggestions(ctx context.Context, query string, limit int) (*models.SearchSuggestions, error)
	ListVIPProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, int64, error)
	CreateVIPProduct(ctx context.Context, req models.CreateProductRequest) (*models.Product, error)
}

type CatalogHandler struct {
	catalog         Catalog
	defaultPageSize int
	maxPageSize     int
}

func NewCatalogHandler(catalog Catalog, defaultPageSize, maxPageSize int) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, defaultPageSize: defaultPageSize, maxPageSize: maxPageSize}
}

var sortOptions = map[string]bool{
	"price_asc":  true,
	"price_desc": true,
	"newest":     true,
	"name":       true,
}

// Suggestions returns autocomplete matches for the search box
// @Summary Search suggestions
// @Tags Search
// @Produce json
// @Param q query string true "Query"
// @Param limit query int false "Max product suggestions" default(5)
// @Success 200 {object} models.SuccessResponse
// @Router /search/suggestions [get]
func (h *CatalogHandler) Suggestions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	suggestions, err := h.catalog.Suggestions(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: suggestions})
}

// ListVIPProducts lists VIP-exclusive products
// @Summary List VIP products
// @Tags VIP
// @Produce json
// @Param category query string false "Category ID"
// @Param brand query string false "Brand ID"
// @Param minPrice query number false "Minimum price"
// @Param maxPrice query number false "Maximum price"
// @Param inStock query bool false "Only in-stock products"
// @Param search query string false "Search term"
// @Param sort query string false "price_asc, price_desc, newest or name"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Items per page" default(20)
// @Success 200 {object} models.ListResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /vip/products [get]
func (h *CatalogHandler) ListVIPProducts(c *gin.Context) {
	filter, ok := h.parseFilter(c)
	if !ok {
		return
	}

	products, total, err := h.catalog.ListVIPProducts(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ListResponse{
		Success:    true,
		Data:       products,
		Pagination: models.NewPagination(filter.Page, filter.Limit, total),
	})
}

// CreateVIPProduct creates a VIP-exclusive product and queues it for classification
// @Summary Create VIP product
// @Tags Admin
// @Accept json
// @Produce json
// @Param product body models.CreateProductRequest true "Product"
// @Success 201 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /admin/vip/products [post]
func (h *CatalogHandler) CreateVIPProduct(c *gin.Context) {
	var req models.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err.Error(), "")
		return
	}

	product, err := h.catalog.CreateVIPProduct(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.SuccessResponse{Success: true, Data: product})
}

func (h *CatalogHandler) parseFilter(c *gin.Context) (models.ProductFilter, bool) {
	filter := models.ProductFilter{
		Search: c.Query("search"),
		SortBy: c.Query("sort"),
	}
	if filter.SortBy != "" && !sortOptions[filter.SortBy] {
		validationError(c, "sort must be one of price_asc, price_desc, newest, name", "sort")
		return filter, false
	}

	if raw := c.Query("category"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			validationError(c, "Invalid category", "category")
			return filter, false
		}
		filter.CategoryID = &id
	}
	if raw := c.Query("brand"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			validationError(c, "Invalid brand", "brand")
			return filter, false
		}
		filter.BrandID = &id
	}
	for _, p := range []struct {
		name   string
		target **float64
	}{{"minPrice", &filter.MinPrice}, {"maxPrice", &filter.MaxPrice}} {
		raw := c.Query(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			validationError(c, "Invalid "+p.name, p.name)
			return filter, false
		}
		*p.target = &v
	}
	filter.InStock, _ = strconv.ParseBool(c.Query("inStock"))

	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(h.defaultPageSize)))
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > h.maxPageSize {
		filter.Limit = h.defaultPageSize
	}
	return filter, true
}
