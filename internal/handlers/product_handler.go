package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"storefront-service/internal/models"
	"storefront-service/internal/services"
)

type DescriptionGenerator interface {
	Generate(ctx context.Context, productID uuid.UUID, force bool) (*services.DescriptionResult, error)
}

type ProductHandler struct {
	descriptions DescriptionGenerator
	openAIErr    error
}

// NewProductHandler wires the copy generator; openAIErr disables it when the
// LLM is not configured
func NewProductHandler(descriptions DescriptionGenerator, openAIErr error) *ProductHandler {
	return &ProductHandler{descriptions: descriptions, openAIErr: openAIErr}
}

// GenerateDescription fills empty product copy from the LLM
// @Summary Generate product description
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Product ID"
// @Param request body models.GenerateDescriptionRequest false "Options"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /admin/products/{id}/generate-description [post]
func (h *ProductHandler) GenerateDescription(c *gin.Context) {
	if h.openAIErr != nil {
		respondError(c, h.openAIErr)
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req models.GenerateDescriptionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	result, err := h.descriptions.Generate(c.Request.Context(), id, req.Force)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: result})
}
