package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-service/internal/models"
)

func TestNilPublisherDropsEvents(t *testing.T) {
	var p *Publisher
	ctx := context.Background()

	assert.NoError(t, p.PublishProductHidden(ctx, ProductHidden{ProductID: "x"}))
	assert.NoError(t, p.PublishOrderCreated(ctx, &models.Order{}))
	assert.NoError(t, p.PublishOrderStatusChanged(ctx, &models.Order{}))
	assert.NoError(t, p.PublishComplianceViolations(ctx, []models.ComplianceAuditLog{{Message: "m"}}))
	assert.False(t, p.IsConnected())
	p.Close()
}

func TestOrderCreatedFrom(t *testing.T) {
	p1, p2 := uuid.New(), uuid.New()
	order := &models.Order{
		ID:            uuid.New(),
		OrderNumber:   "ORD-20250101-ABCDEF12",
		CustomerID:    "cust-1",
		Total:         86.40,
		ShippingState: "TX",
		Items: []models.OrderItem{
			{ProductID: p1, Quantity: 2},
			{ProductID: p2, Quantity: 1},
		},
	}

	e := OrderCreatedFrom(order)

	assert.Equal(t, 3, e.ItemCount)
	assert.Equal(t, []string{p1.String(), p2.String()}, e.ProductIDs)
	assert.Equal(t, 86.40, e.Total)
	assert.Equal(t, "ORD-20250101-ABCDEF12", e.OrderNumber)
}

func TestViolationFrom(t *testing.T) {
	productID := uuid.New()
	state := "UT"

	v := ViolationFrom(models.ComplianceAuditLog{
		ProductID:     &productID,
		ViolationType: models.ViolationStateRestricted,
		Severity:      models.SeverityHigh,
		Message:       "THCA Flower cannot be shipped to UT",
		State:         &state,
	})

	assert.Equal(t, productID.String(), v.ProductID)
	assert.Empty(t, v.OrderID)
	assert.Equal(t, "high", v.Severity)
	assert.Equal(t, "UT", v.State)
}

func TestNewEventEnvelope(t *testing.T) {
	e := NewEvent(SubjectProductHidden, ProductHidden{ProductID: "p1", Reason: "Nicotine"})

	payload, err := json.Marshal(e)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, "product.hidden", decoded["type"])
	assert.NotEmpty(t, decoded["id"])
	assert.Equal(t, "p1", decoded["data"].(map[string]interface{})["productId"])
}
