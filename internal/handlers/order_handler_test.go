package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront-service/internal/models"
	"storefront-service/internal/repository"
	"storefront-service/internal/services"
)

func setupOrderRouter(svc *MockOrderService) http.Handler {
	r := setupTestRouter()
	h := NewOrderHandler(svc)
	orders := r.Group("/api/v1/orders", withCustomer("cust-1", ""))
	orders.POST("", h.CreateOrder)
	orders.GET("", h.ListOrders)
	orders.GET("/:id", h.GetOrder)
	r.PUT("/api/v1/admin/orders/:id/status", h.UpdateOrderStatus)
	return r
}

func createTestCheckoutBody() map[string]interface{} {
	return map[string]interface{}{
		"email":       "buyer@example.com",
		"customerAge": 34,
		"shippingAddress": map[string]interface{}{
			"name":       "Sam Buyer",
			"line1":      "1 Main St",
			"city":       "Austin",
			"state":      "TX",
			"postalCode": "78701",
		},
	}
}

func TestOrderHandler_CreateOrder(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		svc := new(MockOrderService)
		order := &models.Order{ID: uuid.New(), OrderNumber: "ORD-20250101-0A1B2C3D", Total: 93.42}
		svc.On("CreateOrder", mock.Anything, "cust-1", mock.MatchedBy(func(req models.CreateOrderRequest) bool {
			return req.CustomerAge == 34 && req.ShippingAddress.State == "TX"
		})).Return(order, nil)

		w := performRequest(setupOrderRouter(svc), http.MethodPost, "/api/v1/orders", createTestCheckoutBody())

		assert.Equal(t, http.StatusCreated, w.Code)
		data := decodeBody(w)["data"].(map[string]interface{})
		assert.Equal(t, "ORD-20250101-0A1B2C3D", data["orderNumber"])
	})

	t.Run("missing address", func(t *testing.T) {
		svc := new(MockOrderService)
		body := createTestCheckoutBody()
		delete(body, "shippingAddress")

		w := performRequest(setupOrderRouter(svc), http.MethodPost, "/api/v1/orders", body)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("not compliant", func(t *testing.T) {
		svc := new(MockOrderService)
		verdict := &models.OrderComplianceResult{
			IsCompliant: false,
			Violations:  []string{"THCA Flower cannot be shipped to TX"},
		}
		svc.On("CreateOrder", mock.Anything, "cust-1", mock.Anything).Return(nil, &services.ComplianceError{Result: verdict})

		w := performRequest(setupOrderRouter(svc), http.MethodPost, "/api/v1/orders", createTestCheckoutBody())

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "COMPLIANCE_VIOLATION", errorCode(w))
		details := decodeBody(w)["error"].(map[string]interface{})["details"].(map[string]interface{})
		assert.Equal(t, []interface{}{"THCA Flower cannot be shipped to TX"}, details["violations"])
	})

	t.Run("empty cart", func(t *testing.T) {
		svc := new(MockOrderService)
		svc.On("CreateOrder", mock.Anything, "cust-1", mock.Anything).Return(nil, services.ErrCartEmpty)

		w := performRequest(setupOrderRouter(svc), http.MethodPost, "/api/v1/orders", createTestCheckoutBody())

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "CART_EMPTY", errorCode(w))
	})

	t.Run("database failure", func(t *testing.T) {
		svc := new(MockOrderService)
		svc.On("CreateOrder", mock.Anything, "cust-1", mock.Anything).Return(nil, errors.New("connection refused"))

		w := performRequest(setupOrderRouter(svc), http.MethodPost, "/api/v1/orders", createTestCheckoutBody())

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestOrderHandler_ListOrders(t *testing.T) {
	svc := new(MockOrderService)
	svc.On("ListOrders", mock.Anything, "cust-1", 2, 5).Return([]models.Order{{ID: uuid.New()}}, int64(11), nil)

	w := performRequest(setupOrderRouter(svc), http.MethodGet, "/api/v1/orders?page=2&limit=5", nil)

	require.Equal(t, http.StatusOK, w.Code)
	pagination := decodeBody(w)["pagination"].(map[string]interface{})
	assert.Equal(t, float64(3), pagination["totalPages"])
	assert.Equal(t, true, pagination["hasNext"])
}

func TestOrderHandler_GetOrder(t *testing.T) {
	t.Run("other customer's order", func(t *testing.T) {
		svc := new(MockOrderService)
		id := uuid.New()
		svc.On("GetOrder", mock.Anything, "cust-1", id).Return(nil, repository.ErrNotFound)

		w := performRequest(setupOrderRouter(svc), http.MethodGet, "/api/v1/orders/"+id.String(), nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		svc := new(MockOrderService)

		w := performRequest(setupOrderRouter(svc), http.MethodGet, "/api/v1/orders/123", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestOrderHandler_UpdateOrderStatus(t *testing.T) {
	id := uuid.New()

	t.Run("shipped", func(t *testing.T) {
		svc := new(MockOrderService)
		svc.On("UpdateOrderStatus", mock.Anything, id, models.OrderStatusShipped).
			Return(&models.Order{ID: id, Status: models.OrderStatusShipped}, nil)

		w := performRequest(setupOrderRouter(svc), http.MethodPut, "/api/v1/admin/orders/"+id.String()+"/status",
			map[string]string{"status": "shipped"})

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("invalid transition", func(t *testing.T) {
		svc := new(MockOrderService)
		svc.On("UpdateOrderStatus", mock.Anything, id, models.OrderStatusPending).
			Return(nil, fmt.Errorf("%w from delivered to pending", models.ErrInvalidTransition))

		w := performRequest(setupOrderRouter(svc), http.MethodPut, "/api/v1/admin/orders/"+id.String()+"/status",
			map[string]string{"status": "pending"})

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "INVALID_TRANSITION", errorCode(w))
	})
}
