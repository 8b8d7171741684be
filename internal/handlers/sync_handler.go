package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"storefront-service/internal/models"
	"storefront-service/internal/services"
)

type ZohoSyncer interface {
	Run(ctx context.Context, phase models.SyncPhase, req models.ZohoSyncRequest) (*models.SyncResponse, error)
}

type ContentSyncer interface {
	Run(ctx context.Context, opts services.ContentSyncOptions) (*services.ContentSyncOutcome, error)
}

// SyncHandler exposes the Zoho and Airtable jobs. A non-nil configuration
// error disables the matching job and is reported on every call.
type SyncHandler struct {
	zoho        ZohoSyncer
	zohoErr     error
	content     ContentSyncer
	airtableErr error
	logger      *logrus.Logger
}

func NewSyncHandler(zoho ZohoSyncer, zohoErr error, content ContentSyncer, airtableErr error, logger *logrus.Logger) *SyncHandler {
	return &SyncHandler{
		zoho:        zoho,
		zohoErr:     zohoErr,
		content:     content,
		airtableErr: airtableErr,
		logger:      logger,
	}
}

// SyncZoho runs one Zoho Inventory phase
// @Summary Run Zoho sync phase
// @Tags Sync
// @Accept json
// @Produce json
// @Param phase path string true "categories, products or stock"
// @Param request body models.ZohoSyncRequest false "Options"
// @Success 200 {object} models.SyncResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /admin/sync/zoho/{phase} [post]
func (h *SyncHandler) SyncZoho(c *gin.Context) {
	if h.zohoErr != nil {
		respondError(c, h.zohoErr)
		return
	}
	phase := models.SyncPhase(c.Param("phase"))
	if !phase.Valid() {
		validationError(c, "phase must be one of categories, products, stock", "phase")
		return
	}
	var req models.ZohoSyncRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	resp, err := h.zoho.Run(c.Request.Context(), phase, req)
	if err != nil {
		h.logger.WithError(err).WithField("phase", phase).Error("Zoho sync failed")
		upstreamError(c, err, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SyncAirtable matches products missing content against Airtable
// @Summary Run Airtable content sync
// @Description Dry-run unless apply is true
// @Tags Sync
// @Accept json
// @Produce json
// @Param request body models.AirtableSyncRequest false "Options"
// @Success 200 {object} models.AirtableSyncResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 500 {object} models.ErrorResponse
// @Router /admin/sync/airtable [post]
func (h *SyncHandler) SyncAirtable(c *gin.Context) {
	if h.airtableErr != nil {
		respondError(c, h.airtableErr)
		return
	}
	var req models.AirtableSyncRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	opts := services.ContentSyncOptions{
		Limit:           req.Limit,
		Apply:           req.Apply,
		Force:           req.Force,
		FilterByFormula: req.FilterByFormula,
	}
	if req.Threshold != nil {
		opts.Threshold = *req.Threshold
	}

	out, err := h.content.Run(c.Request.Context(), opts)
	if err != nil {
		h.logger.WithError(err).Error("Airtable sync failed")
		upstreamError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, models.AirtableSyncResponse{
		Success: true,
		Results: out.Summary,
		Errors:  out.Errors,
	})
}

// upstreamError reports a failed batch with whatever progress was made
func upstreamError(c *gin.Context, err error, partial interface{}) {
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    "UPSTREAM_ERROR",
			Message: err.Error(),
			Details: partial,
		},
	})
}

// bindOptionalJSON binds a JSON body when one is present
func bindOptionalJSON(c *gin.Context, target interface{}) bool {
	if err := c.ShouldBindJSON(target); err != nil && !errors.Is(err, io.EOF) {
		validationError(c, err.Error(), "")
		return false
	}
	return true
}
