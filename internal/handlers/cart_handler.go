package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"storefront-service/internal/middleware"
	"storefront-service/internal/models"
	"storefront-service/internal/services"
)

type CartHandler struct {
	carts services.CartService
}

func NewCartHandler(carts services.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

// GetCart returns the customer's cart with computed totals
// @Summary Get cart
// @Tags Cart
// @Produce json
// @Success 200 {object} models.SuccessResponse
// @Router /cart [get]
func (h *CartHandler) GetCart(c *gin.Context) {
	summary, err := h.carts.GetCart(c.Request.Context(), middleware.GetCustomerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: summary})
}

// AddItem adds a product to the cart, incrementing the quantity when present
// @Summary Add cart item
// @Tags Cart
// @Accept json
// @Produce json
// @Param item body models.AddToCartRequest true "Item"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /cart/items [post]
func (h *CartHandler) AddItem(c *gin.Context) {
	var req models.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err.Error(), "")
		return
	}

	summary, err := h.carts.AddItem(c.Request.Context(), middleware.GetCustomerID(c), middleware.IsVIP(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: summary})
}

// UpdateItem sets the quantity of a cart line; zero removes it
// @Summary Update cart item
// @Tags Cart
// @Accept json
// @Produce json
// @Param item body models.UpdateCartItemRequest true "Item"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /cart/items [put]
func (h *CartHandler) UpdateItem(c *gin.Context) {
	var req models.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err.Error(), "")
		return
	}

	summary, err := h.carts.UpdateItem(c.Request.Context(), middleware.GetCustomerID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: summary})
}

// RemoveItem deletes one line when productId is given, otherwise clears the cart
// @Summary Remove cart item or clear cart
// @Tags Cart
// @Produce json
// @Param productId query string false "Product ID"
// @Success 200 {object} models.SuccessResponse
// @Router /cart [delete]
func (h *CartHandler) RemoveItem(c *gin.Context) {
	customerID := middleware.GetCustomerID(c)

	raw := c.Query("productId")
	if raw == "" {
		if err := h.carts.ClearCart(c.Request.Context(), customerID); err != nil {
			respondError(c, err)
			return
		}
		summary, err := h.carts.GetCart(c.Request.Context(), customerID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: summary})
		return
	}

	productID, err := uuid.Parse(raw)
	if err != nil {
		validationError(c, "Invalid productId", "productId")
		return
	}
	summary, err := h.carts.RemoveItem(c.Request.Context(), customerID, productID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: summary})
}
