package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"storefront-service/internal/models"
	"storefront-service/internal/repository"
)

var (
	ErrProductUnavailable = errors.New("product is not available")
	ErrVIPOnly            = errors.New("product is exclusive to VIP customers")
)

// CartService defines the shopping cart operations exposed to handlers
type CartService interface {
	GetCart(ctx context.Context, customerID string) (*models.CartSummary, error)
	AddItem(ctx context.Context, customerID string, isVIP bool, req models.AddToCartRequest) (*models.CartSummary, error)
	UpdateItem(ctx context.Context, customerID string, req models.UpdateCartItemRequest) (*models.CartSummary, error)
	RemoveItem(ctx context.Context, customerID string, productID uuid.UUID) (*models.CartSummary, error)
	ClearCart(ctx context.Context, customerID string) error
}

type cartService struct {
	cart     repository.CartRepositoryInterface
	products repository.ProductsRepositoryInterface
	pricing  PricingConfig
}

func NewCartService(cart repository.CartRepositoryInterface, products repository.ProductsRepositoryInterface, pricing PricingConfig) CartService {
	return &cartService{cart: cart, products: products, pricing: pricing}
}

func (s *cartService) GetCart(ctx context.Context, customerID string) (*models.CartSummary, error) {
	items, err := s.cart.GetCart(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if items == nil {
		items = []models.CartItem{}
	}
	return &models.CartSummary{
		Items:  items,
		Totals: CalculateTotals(CartLines(items), s.pricing),
	}, nil
}

// AddItem adds to the cart, incrementing an existing line
func (s *cartService) AddItem(ctx context.Context, customerID string, isVIP bool, req models.AddToCartRequest) (*models.CartSummary, error) {
	quantity := req.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	product, err := s.purchasable(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if product.VIPExclusive && !isVIP {
		return nil, ErrVIPOnly
	}

	existing := 0
	item, err := s.cart.GetItem(ctx, customerID, req.ProductID)
	switch {
	case err == nil:
		existing = item.Quantity
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}
	if existing+quantity > product.StockQuantity {
		return nil, fmt.Errorf("%w: only %d of %s available", repository.ErrInsufficientStock, product.StockQuantity, product.Name)
	}

	if err := s.cart.AddItem(ctx, customerID, req.ProductID, quantity); err != nil {
		return nil, fmt.Errorf("failed to add item: %w", err)
	}
	return s.GetCart(ctx, customerID)
}

// UpdateItem sets a line's quantity; zero removes the line
func (s *cartService) UpdateItem(ctx context.Context, customerID string, req models.UpdateCartItemRequest) (*models.CartSummary, error) {
	if req.Quantity == 0 {
		return s.RemoveItem(ctx, customerID, req.ProductID)
	}

	product, err := s.purchasable(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if req.Quantity > product.StockQuantity {
		return nil, fmt.Errorf("%w: only %d of %s available", repository.ErrInsufficientStock, product.StockQuantity, product.Name)
	}

	if err := s.cart.SetQuantity(ctx, customerID, req.ProductID, req.Quantity); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, customerID)
}

func (s *cartService) RemoveItem(ctx context.Context, customerID string, productID uuid.UUID) (*models.CartSummary, error) {
	if err := s.cart.RemoveItem(ctx, customerID, productID); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, customerID)
}

func (s *cartService) ClearCart(ctx context.Context, customerID string) error {
	return s.cart.Clear(ctx, customerID)
}

func (s *cartService) purchasable(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.products.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsPurchasable() {
		return nil, fmt.Errorf("%w: %s", ErrProductUnavailable, product.Name)
	}
	return product, nil
}
