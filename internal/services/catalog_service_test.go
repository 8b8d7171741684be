package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront-service/internal/models"
)

func TestSuggestions(t *testing.T) {
	ctx := context.Background()

	t.Run("short query skips database", func(t *testing.T) {
		products := new(MockProductsRepository)
		svc := NewCatalogService(products, nil, createTestLogger())

		result, err := svc.Suggestions(ctx, " g ", 5)

		require.NoError(t, err)
		assert.Empty(t, result.Products)
		assert.NotNil(t, result.Brands)
		products.AssertNotCalled(t, "GetSearchSuggestions", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("limit is clamped", func(t *testing.T) {
		products := new(MockProductsRepository)
		svc := NewCatalogService(products, nil, createTestLogger())
		expected := &models.SearchSuggestions{Query: "grav"}
		products.On("GetSearchSuggestions", ctx, "grav", MaxSuggestionLimit).Return(expected, nil)

		result, err := svc.Suggestions(ctx, "grav", 500)

		require.NoError(t, err)
		assert.Equal(t, expected, result)
	})

	t.Run("default limit", func(t *testing.T) {
		products := new(MockProductsRepository)
		svc := NewCatalogService(products, nil, createTestLogger())
		products.On("GetSearchSuggestions", ctx, "puffco", DefaultSuggestionLimit).Return(&models.SearchSuggestions{}, nil)

		_, err := svc.Suggestions(ctx, "puffco", 0)

		require.NoError(t, err)
		products.AssertExpectations(t)
	})
}

func TestListVIPProducts(t *testing.T) {
	ctx := context.Background()
	products := new(MockProductsRepository)
	svc := NewCatalogService(products, nil, createTestLogger())

	products.On("ListProducts", ctx, mock.MatchedBy(func(f *models.ProductFilter) bool {
		return f.VIPOnly && f.Page == 2
	})).Return([]models.Product{}, int64(0), nil)

	_, total, err := svc.ListVIPProducts(ctx, models.ProductFilter{Page: 2})

	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	products.AssertExpectations(t)
}

func TestCreateVIPProduct(t *testing.T) {
	ctx := context.Background()
	products := new(MockProductsRepository)
	queue := new(MockClassificationQueue)
	svc := NewCatalogService(products, queue, createTestLogger())

	brandID := uuid.New()
	products.On("GetOrCreateBrand", ctx, "Mobius").Return(&models.Brand{ID: brandID, Name: "Mobius"}, nil)
	var created *models.Product
	products.On("CreateProduct", ctx, mock.AnythingOfType("*models.Product")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*models.Product) }).
		Return(nil)
	queue.On("Enqueue", mock.Anything).Return(1)

	product, err := svc.CreateVIPProduct(ctx, models.CreateProductRequest{
		Name:          " Mobius Ion Matrix ",
		SKU:           "MOB-ION",
		Price:         899,
		StockQuantity: 2,
		BrandName:     "Mobius",
		Tags:          []string{"heady"},
	})

	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "Mobius Ion Matrix", product.Name)
	assert.True(t, product.VIPExclusive)
	assert.True(t, product.IsVisible)
	assert.True(t, product.IsActive)
	assert.Equal(t, brandID, *product.BrandID)
	assert.Equal(t, models.ClassificationQueued, *product.ClassificationState)
	queue.AssertCalled(t, "Enqueue", []uuid.UUID{product.ID})
}
