package models

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is returned for a status change the state machine forbids
var ErrInvalidTransition = errors.New("invalid order status transition")

// ValidOrderTransitions defines valid state transitions for OrderStatus
// Flow: pending → processing → shipped → delivered
// Cancellation is only possible before the order ships
var ValidOrderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {OrderStatusRefunded},
	OrderStatusCancelled:  {}, // Terminal state
	OrderStatusRefunded:   {}, // Terminal state
}

// CanTransitionOrderStatus checks if a transition from one order status to another is valid
func CanTransitionOrderStatus(from, to OrderStatus) bool {
	validTransitions, exists := ValidOrderTransitions[from]
	if !exists {
		return false
	}
	for _, validTo := range validTransitions {
		if validTo == to {
			return true
		}
	}
	return false
}

// ValidateOrderStatusTransition returns an error if the transition is invalid
func ValidateOrderStatusTransition(from, to OrderStatus) error {
	if !CanTransitionOrderStatus(from, to) {
		return fmt.Errorf("%w from %s to %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// IsTerminalOrderStatus checks if the order status is a terminal state
func IsTerminalOrderStatus(status OrderStatus) bool {
	return len(ValidOrderTransitions[status]) == 0
}

// ReleasesStock reports whether moving into the status returns items to inventory
func ReleasesStock(status OrderStatus) bool {
	return status == OrderStatusCancelled
}
