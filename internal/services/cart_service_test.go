package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront-service/internal/models"
	"storefront-service/internal/repository"
)

func createTestCartService() (CartService, *MockCartRepository, *MockProductsRepository) {
	cart := new(MockCartRepository)
	products := new(MockProductsRepository)
	return NewCartService(cart, products, DefaultPricingConfig()), cart, products
}

func TestCartService_AddItem(t *testing.T) {
	ctx := context.Background()

	t.Run("adds and prices the cart", func(t *testing.T) {
		svc, cart, products := createTestCartService()
		product := createTestProduct("Glass Beaker", 40, 5)

		products.On("GetProductByID", ctx, product.ID).Return(product, nil)
		cart.On("GetItem", ctx, "cust-1", product.ID).Return(nil, repository.ErrNotFound)
		cart.On("AddItem", ctx, "cust-1", product.ID, 2).Return(nil)
		cart.On("GetCart", ctx, "cust-1").Return([]models.CartItem{
			{ProductID: product.ID, Product: product, Quantity: 2},
		}, nil)

		summary, err := svc.AddItem(ctx, "cust-1", false, models.AddToCartRequest{ProductID: product.ID, Quantity: 2})

		require.NoError(t, err)
		assert.Equal(t, 80.0, summary.Totals.Subtotal)
		assert.Equal(t, 6.40, summary.Totals.TaxAmount)
		assert.Equal(t, 86.40, summary.Totals.Total)
		assert.Equal(t, 2, summary.Totals.ItemCount)
		cart.AssertExpectations(t)
	})

	t.Run("quantity defaults to one", func(t *testing.T) {
		svc, cart, products := createTestCartService()
		product := createTestProduct("Grinder", 25, 5)

		products.On("GetProductByID", ctx, product.ID).Return(product, nil)
		cart.On("GetItem", ctx, "cust-1", product.ID).Return(nil, repository.ErrNotFound)
		cart.On("AddItem", ctx, "cust-1", product.ID, 1).Return(nil)
		cart.On("GetCart", ctx, "cust-1").Return([]models.CartItem{}, nil)

		_, err := svc.AddItem(ctx, "cust-1", false, models.AddToCartRequest{ProductID: product.ID})

		require.NoError(t, err)
		cart.AssertCalled(t, "AddItem", ctx, "cust-1", product.ID, 1)
	})

	t.Run("hidden product is unavailable", func(t *testing.T) {
		svc, cart, products := createTestCartService()
		product := createTestProduct("THCA Flower", 30, 5)
		product.IsVisible = false

		products.On("GetProductByID", ctx, product.ID).Return(product, nil)

		_, err := svc.AddItem(ctx, "cust-1", false, models.AddToCartRequest{ProductID: product.ID, Quantity: 1})

		assert.ErrorIs(t, err, ErrProductUnavailable)
		cart.AssertNotCalled(t, "AddItem", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("out of stock is unavailable", func(t *testing.T) {
		svc, _, products := createTestCartService()
		product := createTestProduct("Rolling Tray", 12, 0)

		products.On("GetProductByID", ctx, product.ID).Return(product, nil)

		_, err := svc.AddItem(ctx, "cust-1", false, models.AddToCartRequest{ProductID: product.ID, Quantity: 1})

		assert.ErrorIs(t, err, ErrProductUnavailable)
	})

	t.Run("VIP exclusive needs VIP tier", func(t *testing.T) {
		svc, _, products := createTestCartService()
		product := createTestProduct("Limited Heady Rig", 900, 1)
		product.VIPExclusive = true

		products.On("GetProductByID", ctx, product.ID).Return(product, nil)

		_, err := svc.AddItem(ctx, "cust-1", false, models.AddToCartRequest{ProductID: product.ID, Quantity: 1})

		assert.ErrorIs(t, err, ErrVIPOnly)
	})

	t.Run("existing quantity counts against stock", func(t *testing.T) {
		svc, cart, products := createTestCartService()
		product := createTestProduct("Hemp Wick", 5, 3)

		products.On("GetProductByID", ctx, product.ID).Return(product, nil)
		cart.On("GetItem", ctx, "cust-1", product.ID).Return(&models.CartItem{Quantity: 2}, nil)

		_, err := svc.AddItem(ctx, "cust-1", false, models.AddToCartRequest{ProductID: product.ID, Quantity: 2})

		assert.ErrorIs(t, err, repository.ErrInsufficientStock)
		cart.AssertNotCalled(t, "AddItem", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown product", func(t *testing.T) {
		svc, _, products := createTestCartService()
		product := createTestProduct("Ghost", 1, 1)

		products.On("GetProductByID", ctx, product.ID).Return(nil, repository.ErrNotFound)

		_, err := svc.AddItem(ctx, "cust-1", false, models.AddToCartRequest{ProductID: product.ID, Quantity: 1})

		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestCartService_UpdateItem(t *testing.T) {
	ctx := context.Background()

	t.Run("zero quantity removes the line", func(t *testing.T) {
		svc, cart, products := createTestCartService()
		product := createTestProduct("Grinder", 25, 5)

		cart.On("RemoveItem", ctx, "cust-1", product.ID).Return(nil)
		cart.On("GetCart", ctx, "cust-1").Return([]models.CartItem{}, nil)

		summary, err := svc.UpdateItem(ctx, "cust-1", models.UpdateCartItemRequest{ProductID: product.ID, Quantity: 0})

		require.NoError(t, err)
		assert.Empty(t, summary.Items)
		assert.True(t, summary.Totals.FreeShipping)
		products.AssertNotCalled(t, "GetProductByID", mock.Anything, mock.Anything)
	})

	t.Run("sets quantity within stock", func(t *testing.T) {
		svc, cart, products := createTestCartService()
		product := createTestProduct("Grinder", 25, 5)

		products.On("GetProductByID", ctx, product.ID).Return(product, nil)
		cart.On("SetQuantity", ctx, "cust-1", product.ID, 4).Return(nil)
		cart.On("GetCart", ctx, "cust-1").Return([]models.CartItem{
			{ProductID: product.ID, Product: product, Quantity: 4},
		}, nil)

		summary, err := svc.UpdateItem(ctx, "cust-1", models.UpdateCartItemRequest{ProductID: product.ID, Quantity: 4})

		require.NoError(t, err)
		assert.Equal(t, 100.0, summary.Totals.Subtotal)
		assert.Equal(t, 0.0, summary.Totals.ShippingAmount)
	})

	t.Run("rejects quantity above stock", func(t *testing.T) {
		svc, cart, products := createTestCartService()
		product := createTestProduct("Grinder", 25, 5)

		products.On("GetProductByID", ctx, product.ID).Return(product, nil)

		_, err := svc.UpdateItem(ctx, "cust-1", models.UpdateCartItemRequest{ProductID: product.ID, Quantity: 6})

		assert.ErrorIs(t, err, repository.ErrInsufficientStock)
		cart.AssertNotCalled(t, "SetQuantity", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
