package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storefront-service/internal/models"
)

type CartRepositoryInterface interface {
	GetCart(ctx context.Context, customerID string) ([]models.CartItem, error)
	GetItem(ctx context.Context, customerID string, productID uuid.UUID) (*models.CartItem, error)
	AddItem(ctx context.Context, customerID string, productID uuid.UUID, quantity int) error
	SetQuantity(ctx context.Context, customerID string, productID uuid.UUID, quantity int) error
	RemoveItem(ctx context.Context, customerID string, productID uuid.UUID) error
	Clear(ctx context.Context, customerID string) error
}

type CartRepository struct {
	db *gorm.DB
}

var _ CartRepositoryInterface = (*CartRepository)(nil)

func NewCartRepository(db *gorm.DB) *CartRepository {
	return &CartRepository{db: db}
}

// GetCart returns the customer's cart lines with product, brand and category loaded
func (r *CartRepository) GetCart(ctx context.Context, customerID string) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Product.Brand").
		Preload("Product.Category").
		Where("customer_id = ?", customerID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}

func (r *CartRepository) GetItem(ctx context.Context, customerID string, productID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND product_id = ?", customerID, productID).
		First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

// AddItem inserts the line or increments the quantity of an existing one
func (r *CartRepository) AddItem(ctx context.Context, customerID string, productID uuid.UUID, quantity int) error {
	now := time.Now()
	item := models.CartItem{
		ID:         uuid.New(),
		CustomerID: customerID,
		ProductID:  productID,
		Quantity:   quantity,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "customer_id"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("shopping_cart.quantity + ?", quantity),
			"updated_at": now,
		}),
	}).Create(&item).Error
}

func (r *CartRepository) SetQuantity(ctx context.Context, customerID string, productID uuid.UUID, quantity int) error {
	result := r.db.WithContext(ctx).Model(&models.CartItem{}).
		Where("customer_id = ? AND product_id = ?", customerID, productID).
		Updates(map[string]interface{}{
			"quantity":   quantity,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CartRepository) RemoveItem(ctx context.Context, customerID string, productID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("customer_id = ? AND product_id = ?", customerID, productID).
		Delete(&models.CartItem{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CartRepository) Clear(ctx context.Context, customerID string) error {
	return r.db.WithContext(ctx).Where("customer_id = ?", customerID).Delete(&models.CartItem{}).Error
}
