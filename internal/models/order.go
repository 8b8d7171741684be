package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// OrderStatus represents the fulfillment lifecycle of an order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// Address is stored as JSONB on the order
type Address struct {
	Name       string `json:"name" binding:"required"`
	Line1      string `json:"line1" binding:"required"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city" binding:"required"`
	State      string `json:"state" binding:"required,len=2"`
	PostalCode string `json:"postalCode" binding:"required"`
	Country    string `json:"country,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// JSON encodes the address for a JSONB column
func (a Address) JSON() datatypes.JSON {
	data, _ := json.Marshal(a)
	return datatypes.JSON(data)
}

type Order struct {
	ID                     uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OrderNumber            string         `json:"orderNumber" gorm:"not null;uniqueIndex"`
	CustomerID             string         `json:"customerId" gorm:"not null;index"`
	Email                  string         `json:"email"`
	Status                 OrderStatus    `json:"status" gorm:"not null;default:'pending';index"`
	Subtotal               float64        `json:"subtotal" gorm:"type:decimal(10,2);not null"`
	TaxAmount              float64        `json:"taxAmount" gorm:"type:decimal(10,2);not null"`
	ShippingAmount         float64        `json:"shippingAmount" gorm:"type:decimal(10,2);not null"`
	Total                  float64        `json:"total" gorm:"type:decimal(10,2);not null"`
	ShippingAddress        datatypes.JSON `json:"shippingAddress" gorm:"type:jsonb"`
	BillingAddress         datatypes.JSON `json:"billingAddress,omitempty" gorm:"type:jsonb"`
	ShippingState          string         `json:"shippingState" gorm:"size:2"`
	RequiresAdultSignature bool           `json:"requiresAdultSignature"`
	Notes                  *string        `json:"notes,omitempty"`
	Items                  []OrderItem    `json:"items" gorm:"foreignKey:OrderID"`
	CreatedAt              time.Time      `json:"createdAt"`
	UpdatedAt              time.Time      `json:"updatedAt"`
}

// OrderItem carries a price snapshot taken at checkout; immutable after creation
type OrderItem struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OrderID     uuid.UUID `json:"orderId" gorm:"type:uuid;not null;index"`
	ProductID   uuid.UUID `json:"productId" gorm:"type:uuid;not null"`
	ProductName string    `json:"productName" gorm:"not null"`
	SKU         string    `json:"sku"`
	UnitPrice   float64   `json:"unitPrice" gorm:"type:decimal(10,2);not null"`
	Quantity    int       `json:"quantity" gorm:"not null"`
	LineTotal   float64   `json:"lineTotal" gorm:"type:decimal(10,2);not null"`
	CreatedAt   time.Time `json:"createdAt"`
}

type CreateOrderRequest struct {
	Email           string   `json:"email" binding:"required,email"`
	CustomerAge     int      `json:"customerAge" binding:"required,min=1"`
	ShippingAddress Address  `json:"shippingAddress" binding:"required"`
	BillingAddress  *Address `json:"billingAddress,omitempty"`
	Notes           *string  `json:"notes,omitempty"`
}

type UpdateOrderStatusRequest struct {
	Status OrderStatus `json:"status" binding:"required"`
}

func (Order) TableName() string {
	return "orders"
}

func (OrderItem) TableName() string {
	return "order_items"
}
