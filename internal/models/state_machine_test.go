package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransitionOrderStatus(t *testing.T) {
	tests := []struct {
		name string
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{"pending to processing", OrderStatusPending, OrderStatusProcessing, true},
		{"pending to cancelled", OrderStatusPending, OrderStatusCancelled, true},
		{"processing to shipped", OrderStatusProcessing, OrderStatusShipped, true},
		{"processing to cancelled", OrderStatusProcessing, OrderStatusCancelled, true},
		{"shipped to delivered", OrderStatusShipped, OrderStatusDelivered, true},
		{"delivered to refunded", OrderStatusDelivered, OrderStatusRefunded, true},
		{"pending skips to shipped", OrderStatusPending, OrderStatusShipped, false},
		{"shipped cannot cancel", OrderStatusShipped, OrderStatusCancelled, false},
		{"delivered cannot go back", OrderStatusDelivered, OrderStatusProcessing, false},
		{"cancelled is terminal", OrderStatusCancelled, OrderStatusPending, false},
		{"refunded is terminal", OrderStatusRefunded, OrderStatusDelivered, false},
		{"same status", OrderStatusPending, OrderStatusPending, false},
		{"unknown source", OrderStatus("lost"), OrderStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransitionOrderStatus(tt.from, tt.to))
		})
	}
}

func TestValidateOrderStatusTransition(t *testing.T) {
	require.NoError(t, ValidateOrderStatusTransition(OrderStatusPending, OrderStatusProcessing))

	err := ValidateOrderStatusTransition(OrderStatusShipped, OrderStatusPending)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Contains(t, err.Error(), string(OrderStatusShipped))
}

func TestIsTerminalOrderStatus(t *testing.T) {
	assert.True(t, IsTerminalOrderStatus(OrderStatusCancelled))
	assert.True(t, IsTerminalOrderStatus(OrderStatusRefunded))
	assert.False(t, IsTerminalOrderStatus(OrderStatusPending))
	assert.False(t, IsTerminalOrderStatus(OrderStatusDelivered))
}

func TestReleasesStock(t *testing.T) {
	assert.True(t, ReleasesStock(OrderStatusCancelled))
	assert.False(t, ReleasesStock(OrderStatusShipped))
}
