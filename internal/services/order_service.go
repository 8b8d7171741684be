package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"storefront-service/internal/models"
	"storefront-service/internal/repository"
)

var (
	ErrCartEmpty    = errors.New("cart is empty")
	ErrNotCompliant = errors.New("order is not compliant")
)

// ComplianceError carries the reasons an order was refused
type ComplianceError struct {
	Result *models.OrderComplianceResult
}

func (e *ComplianceError) Error() string {
	return ErrNotCompliant.Error() + ": " + strings.Join(e.Result.Violations, "; ")
}

func (e *ComplianceError) Unwrap() error {
	return ErrNotCompliant
}

type OrderComplianceValidator interface {
	ValidateOrderCompliance(ctx context.Context, req *models.OrderComplianceRequest) (*models.OrderComplianceResult, error)
}

type OrderPublisher interface {
	PublishOrderCreated(ctx context.Context, order *models.Order) error
	PublishOrderStatusChanged(ctx context.Context, order *models.Order) error
}

// OrderService defines the business logic interface for orders
type OrderService interface {
	CreateOrder(ctx context.Context, customerID string, req models.CreateOrderRequest) (*models.Order, error)
	GetOrder(ctx context.Context, customerID string, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, customerID string, page, limit int) ([]models.Order, int64, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error)
}

type orderService struct {
	orders     repository.OrderRepositoryInterface
	cart       repository.CartRepositoryInterface
	compliance OrderComplianceValidator
	publisher  OrderPublisher
	pricing    PricingConfig
	logger     *logrus.Logger
	now        func() time.Time
}

// NewOrderService wires order creation; publisher may be nil
func NewOrderService(
	orders repository.OrderRepositoryInterface,
	cart repository.CartRepositoryInterface,
	compliance OrderComplianceValidator,
	publisher OrderPublisher,
	pricing PricingConfig,
	logger *logrus.Logger,
) OrderService {
	return &orderService{
		orders:     orders,
		cart:       cart,
		compliance: compliance,
		publisher:  publisher,
		pricing:    pricing,
		logger:     logger,
		now:        time.Now,
	}
}

// GenerateOrderNumber returns ORD-YYYYMMDD-XXXXXXXX
func GenerateOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), suffix)
}

// CreateOrder checks out the customer's cart. The order insert, stock
// decrement and cart clear happen in one transaction in the repository.
func (s *orderService) CreateOrder(ctx context.Context, customerID string, req models.CreateOrderRequest) (*models.Order, error) {
	items, err := s.cart.GetCart(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrCartEmpty
	}

	state := strings.ToUpper(strings.TrimSpace(req.ShippingAddress.State))
	checks := make([]models.OrderComplianceItem, 0, len(items))
	for _, item := range items {
		p := item.Product
		if p == nil || !p.IsActive || !p.IsVisible {
			return nil, fmt.Errorf("%w: %s", ErrProductUnavailable, item.ProductID)
		}
		if item.Quantity > p.StockQuantity {
			return nil, fmt.Errorf("%w: only %d of %s available", repository.ErrInsufficientStock, p.StockQuantity, p.Name)
		}
		checks = append(checks, models.OrderComplianceItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    item.Quantity,
		})
	}

	verdict, err := s.compliance.ValidateOrderCompliance(ctx, &models.OrderComplianceRequest{
		CustomerAge:   req.CustomerAge,
		ShippingState: state,
		Items:         checks,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to validate order compliance: %w", err)
	}
	if !verdict.IsCompliant {
		return nil, &ComplianceError{Result: verdict}
	}

	totals := CalculateTotals(CartLines(items), s.pricing)
	now := s.now()
	order := &models.Order{
		ID:                     uuid.New(),
		OrderNumber:            GenerateOrderNumber(now),
		CustomerID:             customerID,
		Email:                  req.Email,
		Status:                 models.OrderStatusPending,
		Subtotal:               totals.Subtotal,
		TaxAmount:              totals.TaxAmount,
		ShippingAmount:         totals.ShippingAmount,
		Total:                  totals.Total,
		ShippingAddress:        req.ShippingAddress.JSON(),
		ShippingState:          state,
		RequiresAdultSignature: verdict.RequiresAdultSignature,
		Notes:                  req.Notes,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if req.BillingAddress != nil {
		order.BillingAddress = req.BillingAddress.JSON()
	}
	for _, item := range items {
		order.Items = append(order.Items, models.OrderItem{
			ID:          uuid.New(),
			OrderID:     order.ID,
			ProductID:   item.ProductID,
			ProductName: item.Product.Name,
			SKU:         item.Product.SKU,
			UnitPrice:   item.Product.Price,
			Quantity:    item.Quantity,
			LineTotal:   LineTotal(item.Product.Price, item.Quantity),
			CreatedAt:   now,
		})
	}

	if err := s.orders.CreateFromCart(ctx, order, customerID); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"total":        order.Total,
	}).Info("Order created")

	if s.publisher != nil {
		if err := s.publisher.PublishOrderCreated(ctx, order); err != nil {
			s.logger.WithError(err).WithField("order_id", order.ID).Warn("Failed to publish order.created")
		}
	}
	return order, nil
}

// GetOrder returns one of the customer's orders; other customers' orders are not found
func (s *orderService) GetOrder(ctx context.Context, customerID string, id uuid.UUID) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customerID {
		return nil, repository.ErrNotFound
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, customerID string, page, limit int) ([]models.Order, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	return s.orders.ListByCustomer(ctx, customerID, page, limit)
}

func (s *orderService) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	order, err := s.orders.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	if s.publisher != nil {
		if err := s.publisher.PublishOrderStatusChanged(ctx, order); err != nil {
			s.logger.WithError(err).WithField("order_id", order.ID).Warn("Failed to publish order.status_changed")
		}
	}
	return order, nil
}
