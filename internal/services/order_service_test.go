package services

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront-service/internal/models"
	"storefront-service/internal/repository"
)

type orderDeps struct {
	orders     *MockOrderRepository
	cart       *MockCartRepository
	compliance *MockComplianceValidator
	publisher  *MockOrderPublisher
}

func createTestOrderService() (*orderService, *orderDeps) {
	deps := &orderDeps{
		orders:     new(MockOrderRepository),
		cart:       new(MockCartRepository),
		compliance: new(MockComplianceValidator),
		publisher:  new(MockOrderPublisher),
	}
	svc := NewOrderService(deps.orders, deps.cart, deps.compliance, deps.publisher, DefaultPricingConfig(), createTestLogger()).(*orderService)
	svc.now = func() time.Time { return time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC) }
	return svc, deps
}

func createTestOrderRequest(state string) models.CreateOrderRequest {
	return models.CreateOrderRequest{
		Email:       "buyer@example.com",
		CustomerAge: 30,
		ShippingAddress: models.Address{
			Name:       "Pat Buyer",
			Line1:      "1 Main St",
			City:       "Austin",
			State:      state,
			PostalCode: "78701",
		},
	}
}

var orderNumberPattern = regexp.MustCompile(`^ORD-\d{8}-[0-9A-F]{8}$`)

func TestGenerateOrderNumber(t *testing.T) {
	n := GenerateOrderNumber(time.Date(2025, 1, 2, 23, 0, 0, 0, time.UTC))

	assert.Regexp(t, orderNumberPattern, n)
	assert.Equal(t, "ORD-20250102-", n[:13])
}

func TestCreateOrder_Success(t *testing.T) {
	svc, deps := createTestOrderService()
	ctx := context.Background()
	beaker := createTestProduct("Glass Beaker", 40, 5)
	pouch := createTestProduct("Nicotine Pouch", 6.5, 10)

	deps.cart.On("GetCart", ctx, "cust-1").Return([]models.CartItem{
		{ProductID: beaker.ID, Product: beaker, Quantity: 2},
		{ProductID: pouch.ID, Product: pouch, Quantity: 1},
	}, nil)
	deps.compliance.On("ValidateOrderCompliance", ctx, mock.MatchedBy(func(req *models.OrderComplianceRequest) bool {
		return req.ShippingState == "TX" && req.CustomerAge == 30 && len(req.Items) == 2
	})).Return(&models.OrderComplianceResult{IsCompliant: true, RequiresAdultSignature: true}, nil)
	deps.orders.On("CreateFromCart", ctx, mock.AnythingOfType("*models.Order"), "cust-1").Return(nil)
	deps.publisher.On("PublishOrderCreated", ctx, mock.AnythingOfType("*models.Order")).Return(nil)

	order, err := svc.CreateOrder(ctx, "cust-1", createTestOrderRequest("tx"))

	require.NoError(t, err)
	assert.Regexp(t, orderNumberPattern, order.OrderNumber)
	assert.Equal(t, "ORD-20250314-", order.OrderNumber[:13])
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, 86.5, order.Subtotal)
	assert.Equal(t, 6.92, order.TaxAmount)
	assert.Equal(t, 0.0, order.ShippingAmount)
	assert.Equal(t, 93.42, order.Total)
	assert.Equal(t, "TX", order.ShippingState)
	assert.True(t, order.RequiresAdultSignature)
	require.Len(t, order.Items, 2)
	assert.Equal(t, 80.0, order.Items[0].LineTotal)
	assert.Equal(t, 40.0, order.Items[0].UnitPrice)
	assert.Equal(t, order.ID, order.Items[1].OrderID)
	deps.orders.AssertExpectations(t)
	deps.publisher.AssertExpectations(t)
}

func TestCreateOrder_EmptyCart(t *testing.T) {
	svc, deps := createTestOrderService()
	ctx := context.Background()

	deps.cart.On("GetCart", ctx, "cust-1").Return([]models.CartItem{}, nil)

	_, err := svc.CreateOrder(ctx, "cust-1", createTestOrderRequest("TX"))

	assert.ErrorIs(t, err, ErrCartEmpty)
	deps.compliance.AssertNotCalled(t, "ValidateOrderCompliance", mock.Anything, mock.Anything)
}

func TestCreateOrder_NotCompliant(t *testing.T) {
	svc, deps := createTestOrderService()
	ctx := context.Background()
	flower := createTestProduct("THCA Flower", 30, 5)

	deps.cart.On("GetCart", ctx, "cust-1").Return([]models.CartItem{
		{ProductID: flower.ID, Product: flower, Quantity: 1},
	}, nil)
	deps.compliance.On("ValidateOrderCompliance", ctx, mock.Anything).Return(&models.OrderComplianceResult{
		IsCompliant: false,
		Violations:  []string{"THCA Flower cannot be shipped to UT"},
	}, nil)

	_, err := svc.CreateOrder(ctx, "cust-1", createTestOrderRequest("UT"))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotCompliant)
	var complianceErr *ComplianceError
	require.True(t, errors.As(err, &complianceErr))
	assert.Equal(t, []string{"THCA Flower cannot be shipped to UT"}, complianceErr.Result.Violations)
	deps.orders.AssertNotCalled(t, "CreateFromCart", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateOrder_StockChangedSinceAdd(t *testing.T) {
	svc, deps := createTestOrderService()
	ctx := context.Background()
	grinder := createTestProduct("Grinder", 25, 1)

	deps.cart.On("GetCart", ctx, "cust-1").Return([]models.CartItem{
		{ProductID: grinder.ID, Product: grinder, Quantity: 3},
	}, nil)

	_, err := svc.CreateOrder(ctx, "cust-1", createTestOrderRequest("TX"))

	assert.ErrorIs(t, err, repository.ErrInsufficientStock)
}

func TestCreateOrder_TransactionFailureIsReturned(t *testing.T) {
	svc, deps := createTestOrderService()
	ctx := context.Background()
	grinder := createTestProduct("Grinder", 25, 3)

	deps.cart.On("GetCart", ctx, "cust-1").Return([]models.CartItem{
		{ProductID: grinder.ID, Product: grinder, Quantity: 3},
	}, nil)
	deps.compliance.On("ValidateOrderCompliance", ctx, mock.Anything).Return(&models.OrderComplianceResult{IsCompliant: true}, nil)
	deps.orders.On("CreateFromCart", ctx, mock.Anything, "cust-1").Return(repository.ErrInsufficientStock)

	_, err := svc.CreateOrder(ctx, "cust-1", createTestOrderRequest("TX"))

	assert.ErrorIs(t, err, repository.ErrInsufficientStock)
	deps.publisher.AssertNotCalled(t, "PublishOrderCreated", mock.Anything, mock.Anything)
}

func TestGetOrder_OtherCustomerIsNotFound(t *testing.T) {
	svc, deps := createTestOrderService()
	ctx := context.Background()
	id := uuid.New()

	deps.orders.On("GetByID", ctx, id).Return(&models.Order{ID: id, CustomerID: "cust-2"}, nil)

	_, err := svc.GetOrder(ctx, "cust-1", id)

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdateOrderStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes the change", func(t *testing.T) {
		svc, deps := createTestOrderService()
		id := uuid.New()
		updated := &models.Order{ID: id, Status: models.OrderStatusProcessing}

		deps.orders.On("UpdateStatus", ctx, id, models.OrderStatusProcessing).Return(updated, nil)
		deps.publisher.On("PublishOrderStatusChanged", ctx, updated).Return(nil)

		order, err := svc.UpdateOrderStatus(ctx, id, models.OrderStatusProcessing)

		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusProcessing, order.Status)
		deps.publisher.AssertExpectations(t)
	})

	t.Run("invalid transition", func(t *testing.T) {
		svc, deps := createTestOrderService()
		id := uuid.New()

		deps.orders.On("UpdateStatus", ctx, id, models.OrderStatusDelivered).
			Return(nil, models.ValidateOrderStatusTransition(models.OrderStatusPending, models.OrderStatusDelivered))

		_, err := svc.UpdateOrderStatus(ctx, id, models.OrderStatusDelivered)

		assert.ErrorIs(t, err, models.ErrInvalidTransition)
		deps.publisher.AssertNotCalled(t, "PublishOrderStatusChanged", mock.Anything, mock.Anything)
	})
}

func TestListOrders_DefaultsPaging(t *testing.T) {
	svc, deps := createTestOrderService()
	ctx := context.Background()

	deps.orders.On("ListByCustomer", ctx, "cust-1", 1, 20).Return([]models.Order{}, int64(0), nil)

	_, total, err := svc.ListOrders(ctx, "cust-1", 0, 0)

	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}
