package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"

	"storefront-service/internal/classifier"
	"storefront-service/internal/compliance"
	"storefront-service/internal/models"
	"storefront-service/internal/services"
)

// ============================================================================
// Service mocks
// ============================================================================

type MockCartService struct {
	mock.Mock
}

var _ services.CartService = (*MockCartService)(nil)

func (m *MockCartService) GetCart(ctx context.Context, customerID string) (*models.CartSummary, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CartSummary), args.Error(1)
}

func (m *MockCartService) AddItem(ctx context.Context, customerID string, isVIP bool, req models.AddToCartRequest) (*models.CartSummary, error) {
	args := m.Called(ctx, customerID, isVIP, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CartSummary), args.Error(1)
}

func (m *MockCartService) UpdateItem(ctx context.Context, customerID string, req models.UpdateCartItemRequest) (*models.CartSummary, error) {
	args := m.Called(ctx, customerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CartSummary), args.Error(1)
}

func (m *MockCartService) RemoveItem(ctx context.Context, customerID string, productID uuid.UUID) (*models.CartSummary, error) {
	args := m.Called(ctx, customerID, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CartSummary), args.Error(1)
}

func (m *MockCartService) ClearCart(ctx context.Context, customerID string) error {
	args := m.Called(ctx, customerID)
	return args.Error(0)
}

type MockOrderService struct {
	mock.Mock
}

var _ services.OrderService = (*MockOrderService)(nil)

func (m *MockOrderService) CreateOrder(ctx context.Context, customerID string, req models.CreateOrderRequest) (*models.Order, error) {
	args := m.Called(ctx, customerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderService) GetOrder(ctx context.Context, customerID string, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, customerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderService) ListOrders(ctx context.Context, customerID string, page, limit int) ([]models.Order, int64, error) {
	args := m.Called(ctx, customerID, page, limit)
	return args.Get(0).([]models.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderService) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

type MockCatalog struct {
	mock.Mock
}

var _ Catalog = (*MockCatalog)(nil)

func (m *MockCatalog) Suggestions(ctx context.Context, query string, limit int) (*models.SearchSuggestions, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SearchSuggestions), args.Error(1)
}

func (m *MockCatalog) ListVIPProducts(ctx context.Context, filter models.ProductFilter) ([]models.Product, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.Product), args.Get(1).(int64), args.Error(2)
}

func (m *MockCatalog) CreateVIPProduct(ctx context.Context, req models.CreateProductRequest) (*models.Product, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

type MockZohoSyncer struct {
	mock.Mock
}

var _ ZohoSyncer = (*MockZohoSyncer)(nil)

func (m *MockZohoSyncer) Run(ctx context.Context, phase models.SyncPhase, req models.ZohoSyncRequest) (*models.SyncResponse, error) {
	args := m.Called(ctx, phase, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SyncResponse), args.Error(1)
}

type MockContentSyncer struct {
	mock.Mock
}

var _ ContentSyncer = (*MockContentSyncer)(nil)

func (m *MockContentSyncer) Run(ctx context.Context, opts services.ContentSyncOptions) (*services.ContentSyncOutcome, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ContentSyncOutcome), args.Error(1)
}

type MockComplianceService struct {
	mock.Mock
}

var _ ComplianceService = (*MockComplianceService)(nil)

func (m *MockComplianceService) Analyze(productName, description string) compliance.Analysis {
	args := m.Called(productName, description)
	return args.Get(0).(compliance.Analysis)
}

func (m *MockComplianceService) SeedRules(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockComplianceService) ListRules(ctx context.Context) ([]models.ComplianceRule, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.ComplianceRule), args.Error(1)
}

func (m *MockComplianceService) AssignRule(ctx context.Context, productID uuid.UUID, category, assignedBy string, confidence float64) error {
	args := m.Called(ctx, productID, category, assignedBy, confidence)
	return args.Error(0)
}

func (m *MockComplianceService) CheckStateCompliance(ctx context.Context, productID uuid.UUID, state string) (*models.StateComplianceResult, error) {
	args := m.Called(ctx, productID, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.StateComplianceResult), args.Error(1)
}

func (m *MockComplianceService) AuditProduct(ctx context.Context, productID uuid.UUID) (*models.ProductAuditReport, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProductAuditReport), args.Error(1)
}

func (m *MockComplianceService) PrecheckOrderCompliance(ctx context.Context, req *models.OrderComplianceRequest) (*models.OrderComplianceResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OrderComplianceResult), args.Error(1)
}

func (m *MockComplianceService) ListAuditLogs(ctx context.Context, productID uuid.UUID, limit int) ([]models.ComplianceAuditLog, error) {
	args := m.Called(ctx, productID, limit)
	return args.Get(0).([]models.ComplianceAuditLog), args.Error(1)
}

type MockClassificationQueue struct {
	mock.Mock
}

var _ ClassificationQueue = (*MockClassificationQueue)(nil)

func (m *MockClassificationQueue) Enqueue(ids ...uuid.UUID) int {
	args := m.Called(ids)
	return args.Int(0)
}

func (m *MockClassificationQueue) Status() classifier.Status {
	args := m.Called()
	return args.Get(0).(classifier.Status)
}

func (m *MockClassificationQueue) Classify(ctx context.Context, id uuid.UUID) (*classifier.Decision, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*classifier.Decision), args.Error(1)
}

type MockUnclassifiedLister struct {
	mock.Mock
}

func (m *MockUnclassifiedLister) ListUnclassifiedProducts(ctx context.Context, limit int) ([]models.Product, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]models.Product), args.Error(1)
}

type MockDescriptionGenerator struct {
	mock.Mock
}

func (m *MockDescriptionGenerator) Generate(ctx context.Context, productID uuid.UUID, force bool) (*services.DescriptionResult, error) {
	args := m.Called(ctx, productID, force)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.DescriptionResult), args.Error(1)
}

// ============================================================================
// Helpers
// ============================================================================

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func createTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// withCustomer stands in for CustomerMiddleware
func withCustomer(customerID, tier string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("customer_id", customerID)
		c.Set("customer_tier", tier)
		c.Next()
	}
}

func performRequest(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(w *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}

func errorCode(w *httptest.ResponseRecorder) string {
	body := decodeBody(w)
	if e, ok := body["error"].(map[string]interface{}); ok {
		code, _ := e["code"].(string)
		return code
	}
	return ""
}
