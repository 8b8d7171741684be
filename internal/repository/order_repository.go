package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storefront-service/internal/models"
)

type OrderRepositoryInterface interface {
	CreateFromCart(ctx context.Context, order *models.Order, customerID string) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListByCustomer(ctx context.Context, customerID string, page, limit int) ([]models.Order, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, to models.OrderStatus) (*models.Order, error)
}

type OrderRepository struct {
	db *gorm.DB
}

var _ OrderRepositoryInterface = (*OrderRepository)(nil)

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// CreateFromCart writes the order and its items, decrements stock and clears the
// customer's cart in a single transaction. Any failure rolls back every step.
func (r *OrderRepository) CreateFromCart(ctx context.Context, order *models.Order, customerID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		now := time.Now()
		for _, item := range order.Items {
			result := tx.Model(&models.Product{}).
				Where("id = ? AND stock_quantity >= ?", item.ProductID, item.Quantity).
				Updates(map[string]interface{}{
					"stock_quantity": gorm.Expr("stock_quantity - ?", item.Quantity),
					"updated_at":     now,
				})
			if result.Error != nil {
				return fmt.Errorf("failed to decrement stock for %s: %w", item.ProductName, result.Error)
			}
			if result.RowsAffected == 0 {
				return fmt.Errorf("%w: %s", ErrInsufficientStock, item.ProductName)
			}
		}

		if err := tx.Where("customer_id = ?", customerID).Delete(&models.CartItem{}).Error; err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		return nil
	})
}

func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID string, page, limit int) ([]models.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{}).Where("customer_id = ?", customerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	err := query.Preload("Items").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// UpdateStatus validates and applies a status transition under a row lock.
// Cancelling returns the ordered quantities to stock in the same transaction.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, to models.OrderStatus) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Items").
			First(&order, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if err := models.ValidateOrderStatusTransition(order.Status, to); err != nil {
			return err
		}

		now := time.Now()
		if err := tx.Model(&order).Updates(map[string]interface{}{
			"status":     to,
			"updated_at": now,
		}).Error; err != nil {
			return err
		}

		if models.ReleasesStock(to) {
			for _, item := range order.Items {
				if err := tx.Model(&models.Product{}).
					Where("id = ?", item.ProductID).
					Updates(map[string]interface{}{
						"stock_quantity": gorm.Expr("stock_quantity + ?", item.Quantity),
						"updated_at":     now,
					}).Error; err != nil {
					return fmt.Errorf("failed to restock %s: %w", item.ProductName, err)
				}
			}
		}

		order.Status = to
		order.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}
