package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem is one line in a customer's shopping cart
type CartItem struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	CustomerID string    `json:"customerId" gorm:"not null;uniqueIndex:idx_cart_customer_product"`
	ProductID  uuid.UUID `json:"productId" gorm:"type:uuid;not null;uniqueIndex:idx_cart_customer_product"`
	Product    *Product  `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	Quantity   int       `json:"quantity" gorm:"not null;default:1"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// CartTotals is the priced summary of a cart or order
type CartTotals struct {
	Subtotal       float64 `json:"subtotal"`
	TaxAmount      float64 `json:"taxAmount"`
	ShippingAmount float64 `json:"shippingAmount"`
	Total          float64 `json:"total"`
	ItemCount      int     `json:"itemCount"`
	FreeShipping   bool    `json:"freeShipping"`
}

type CartSummary struct {
	Items  []CartItem `json:"items"`
	Totals CartTotals `json:"totals"`
}

type AddToCartRequest struct {
	ProductID uuid.UUID `json:"productId" binding:"required"`
	Quantity  int       `json:"quantity" binding:"omitempty,min=1,max=100"`
}

type UpdateCartItemRequest struct {
	ProductID uuid.UUID `json:"productId" binding:"required"`
	Quantity  int       `json:"quantity" binding:"min=0,max=100"`
}

func (CartItem) TableName() string {
	return "shopping_cart"
}
