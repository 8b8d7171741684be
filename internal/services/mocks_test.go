package services

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"

	"storefront-service/internal/clients/airtable"
	"storefront-service/internal/clients/openai"
	"storefront-service/internal/clients/zoho"
	"storefront-service/internal/models"
	"storefront-service/internal/repository"
)

// ============================================================================
// Repository mocks
// ============================================================================

type MockProductsRepository struct {
	mock.Mock
}

var _ repository.ProductsRepositoryInterface = (*MockProductsRepository)(nil)

func (m *MockProductsRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductsRepository) GetProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductsRepository) CreateProduct(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductsRepository) UpdateProductFields(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	args := m.Called(ctx, id, updates)
	return args.Error(0)
}

func (m *MockProductsRepository) ListProducts(ctx context.Context, filter *models.ProductFilter) ([]models.Product, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.Product), args.Get(1).(int64), args.Error(2)
}

func (m *MockProductsRepository) ListProductsMissingContent(ctx context.Context, limit int) ([]models.Product, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductsRepository) ListUnclassifiedProducts(ctx context.Context, limit int) ([]models.Product, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductsRepository) HideProduct(ctx context.Context, id uuid.UUID, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

func (m *MockProductsRepository) SetClassificationState(ctx context.Context, id uuid.UUID, state models.ClassificationState) error {
	args := m.Called(ctx, id, state)
	return args.Error(0)
}

func (m *MockProductsRepository) GetSearchSuggestions(ctx context.Context, query string, limit int) (*models.SearchSuggestions, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SearchSuggestions), args.Error(1)
}

func (m *MockProductsRepository) FindByZohoItemID(ctx context.Context, zohoItemID string) (*models.Product, error) {
	args := m.Called(ctx, zohoItemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductsRepository) FindBySKU(ctx context.Context, sku string) (*models.Product, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductsRepository) UpdateStockByZohoItemID(ctx context.Context, zohoItemID string, quantity int) (bool, error) {
	args := m.Called(ctx, zohoItemID, quantity)
	return args.Bool(0), args.Error(1)
}

func (m *MockProductsRepository) GetOrCreateBrand(ctx context.Context, name string) (*models.Brand, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Brand), args.Error(1)
}

func (m *MockProductsRepository) UpsertCategoryByZohoID(ctx context.Context, zohoCategoryID, name string) (bool, error) {
	args := m.Called(ctx, zohoCategoryID, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockProductsRepository) FindCategoryByZohoID(ctx context.Context, zohoCategoryID string) (*models.Category, error) {
	args := m.Called(ctx, zohoCategoryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

func (m *MockProductsRepository) FindCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

type MockCartRepository struct {
	mock.Mock
}

var _ repository.CartRepositoryInterface = (*MockCartRepository)(nil)

func (m *MockCartRepository) GetCart(ctx context.Context, customerID string) ([]models.CartItem, error) {
	args := m.Called(ctx, customerID)
	return args.Get(0).([]models.CartItem), args.Error(1)
}

func (m *MockCartRepository) GetItem(ctx context.Context, customerID string, productID uuid.UUID) (*models.CartItem, error) {
	args := m.Called(ctx, customerID, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CartItem), args.Error(1)
}

func (m *MockCartRepository) AddItem(ctx context.Context, customerID string, productID uuid.UUID, quantity int) error {
	args := m.Called(ctx, customerID, productID, quantity)
	return args.Error(0)
}

func (m *MockCartRepository) SetQuantity(ctx context.Context, customerID string, productID uuid.UUID, quantity int) error {
	args := m.Called(ctx, customerID, productID, quantity)
	return args.Error(0)
}

func (m *MockCartRepository) RemoveItem(ctx context.Context, customerID string, productID uuid.UUID) error {
	args := m.Called(ctx, customerID, productID)
	return args.Error(0)
}

func (m *MockCartRepository) Clear(ctx context.Context, customerID string) error {
	args := m.Called(ctx, customerID)
	return args.Error(0)
}

type MockOrderRepository struct {
	mock.Mock
}

var _ repository.OrderRepositoryInterface = (*MockOrderRepository)(nil)

func (m *MockOrderRepository) CreateFromCart(ctx context.Context, order *models.Order, customerID string) error {
	args := m.Called(ctx, order, customerID)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) ListByCustomer(ctx context.Context, customerID string, page, limit int) ([]models.Order, int64, error) {
	args := m.Called(ctx, customerID, page, limit)
	return args.Get(0).([]models.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, to models.OrderStatus) (*models.Order, error) {
	args := m.Called(ctx, id, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

// ============================================================================
// Collaborator mocks
// ============================================================================

type MockComplianceValidator struct {
	mock.Mock
}

var _ OrderComplianceValidator = (*MockComplianceValidator)(nil)

func (m *MockComplianceValidator) ValidateOrderCompliance(ctx context.Context, req *models.OrderComplianceRequest) (*models.OrderComplianceResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OrderComplianceResult), args.Error(1)
}

type MockOrderPublisher struct {
	mock.Mock
}

var _ OrderPublisher = (*MockOrderPublisher)(nil)

func (m *MockOrderPublisher) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderPublisher) PublishOrderStatusChanged(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

type MockZohoAPI struct {
	mock.Mock
}

var _ ZohoAPI = (*MockZohoAPI)(nil)

func (m *MockZohoAPI) ListCategories(ctx context.Context) ([]zoho.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]zoho.Category), args.Error(1)
}

func (m *MockZohoAPI) ListItems(ctx context.Context, page, perPage int) (*zoho.ItemsPage, error) {
	args := m.Called(ctx, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*zoho.ItemsPage), args.Error(1)
}

type MockAirtableAPI struct {
	mock.Mock
}

var _ AirtableAPI = (*MockAirtableAPI)(nil)

func (m *MockAirtableAPI) ListRecords(ctx context.Context, opts airtable.ListOptions) (*airtable.ListResult, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*airtable.ListResult), args.Error(1)
}

type MockClassificationQueue struct {
	mock.Mock
}

var _ ClassificationQueue = (*MockClassificationQueue)(nil)

func (m *MockClassificationQueue) Enqueue(ids ...uuid.UUID) int {
	args := m.Called(ids)
	return args.Int(0)
}

type MockCopyWriter struct {
	mock.Mock
}

var _ CopyWriter = (*MockCopyWriter)(nil)

func (m *MockCopyWriter) GenerateDescription(ctx context.Context, product openai.ProductInfo) (*openai.GeneratedCopy, error) {
	args := m.Called(ctx, product)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*openai.GeneratedCopy), args.Error(1)
}

// ============================================================================
// Helpers
// ============================================================================

func createTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func createTestProduct(name string, price float64, stock int) *models.Product {
	return &models.Product{
		ID:            uuid.New(),
		Name:          name,
		SKU:           "SKU-" + name[:3],
		Price:         price,
		StockQuantity: stock,
		IsActive:      true,
		IsVisible:     true,
	}
}

func strPtr(s string) *string {
	return &s
}
