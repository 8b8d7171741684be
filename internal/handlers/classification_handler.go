package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"storefront-service/internal/classifier"
	"storefront-service/internal/models"
)

type ClassificationQueue interface {
	Enqueue(ids ...uuid.UUID) int
	Status() classifier.Status
	Classify(ctx context.Context, id uuid.UUID) (*classifier.Decision, error)
}

type UnclassifiedLister interface {
	ListUnclassifiedProducts(ctx context.Context, limit int) ([]models.Product, error)
}

type ClassificationHandler struct {
	queue    ClassificationQueue
	products UnclassifiedLister
}

func NewClassificationHandler(queue ClassificationQueue, products UnclassifiedLister) *ClassificationHandler {
	return &ClassificationHandler{queue: queue, products: products}
}

// Enqueue adds products to the background classifier
// @Summary Enqueue products for classification
// @Tags Classification
// @Accept json
// @Produce json
// @Param request body models.EnqueueClassificationRequest true "Selection"
// @Success 202 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /admin/classification/enqueue [post]
func (h *ClassificationHandler) Enqueue(c *gin.Context) {
	var req models.EnqueueClassificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err.Error(), "")
		return
	}
	if len(req.ProductIDs) == 0 && !req.Unclassified {
		validationError(c, "productIds or unclassified is required", "productIds")
		return
	}

	ids := append([]uuid.UUID{}, req.ProductIDs...)
	if req.Unclassified {
		limit := req.Limit
		if limit == 0 {
			limit = 100
		}
		backlog, err := h.products.ListUnclassifiedProducts(c.Request.Context(), limit)
		if err != nil {
			respondError(c, err)
			return
		}
		for _, p := range backlog {
			ids = append(ids, p.ID)
		}
	}

	added := h.queue.Enqueue(ids...)
	c.JSON(http.StatusAccepted, models.SuccessResponse{
		Success: true,
		Data: gin.H{
			"requested": len(ids),
			"enqueued":  added,
			"status":    h.queue.Status(),
		},
	})
}

// Status reports queue depth, totals and recent per-product results
// @Summary Classification status
// @Tags Classification
// @Produce json
// @Success 200 {object} models.SuccessResponse
// @Router /admin/classification/status [get]
func (h *ClassificationHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: h.queue.Status()})
}

// ClassifyProduct runs one product through the pipeline synchronously
// @Summary Classify one product
// @Tags Classification
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/classification/products/{id} [post]
func (h *ClassificationHandler) ClassifyProduct(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	decision, err := h.queue.Classify(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: decision})
}
