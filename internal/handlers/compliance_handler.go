package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"storefront-service/internal/compliance"
	"storefront-service/internal/models"
	"storefront-service/internal/rules"
)

type ComplianceService interface {
	Analyze(productName, description string) compliance.Analysis
	SeedRules(ctx context.Context) (int, error)
	ListRules(ctx context.Context) ([]models.ComplianceRule, error)
	AssignRule(ctx context.Context, productID uuid.UUID, category, assignedBy string, confidence float64) error
	CheckStateCompliance(ctx context.Context, productID uuid.UUID, state string) (*models.StateComplianceResult, error)
	AuditProduct(ctx context.Context, productID uuid.UUID) (*models.ProductAuditReport, error)
	PrecheckOrderCompliance(ctx context.Context, req *models.OrderComplianceRequest) (*models.OrderComplianceResult, error)
	ListAuditLogs(ctx context.Context, productID uuid.UUID, limit int) ([]models.ComplianceAuditLog, error)
}

type ComplianceHandler struct {
	compliance ComplianceService
}

func NewComplianceHandler(svc ComplianceService) *ComplianceHandler {
	return &ComplianceHandler{compliance: svc}
}

// SeedRules upserts the static rule table
// @Summary Seed compliance rules
// @Tags Compliance
// @Produce json
// @Success 200 {object} models.SuccessResponse
// @Router /admin/compliance/seed [post]
func (h *ComplianceHandler) SeedRules(c *gin.Context) {
	seeded, err := h.compliance.SeedRules(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: gin.H{"seeded": seeded}})
}

// ListRules returns the persisted rule table
// @Summary List compliance rules
// @Tags Compliance
// @Produce json
// @Success 200 {object} models.SuccessResponse
// @Router /admin/compliance/rules [get]
func (h *ComplianceHandler) ListRules(c *gin.Context) {
	list, err := h.compliance.ListRules(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: list})
}

// Analyze runs the rule-based classifier without touching any product
// @Summary Analyze product text
// @Tags Compliance
// @Accept json
// @Produce json
// @Param request body models.AnalyzeProductRequest true "Product text"
// @Success 200 {object} models.SuccessResponse
// @Router /admin/compliance/analyze [post]
func (h *ComplianceHandler) Analyze(c *gin.Context) {
	var req models.AnalyzeProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err.Error(), "name")
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Data:    h.compliance.Analyze(req.Name, req.Description),
	})
}

// AuditProduct checks a product against its assigned rules
// @Summary Audit product compliance
// @Tags Compliance
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/products/{id}/compliance/audit [get]
func (h *ComplianceHandler) AuditProduct(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	report, err := h.compliance.AuditProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: report})
}

// CheckState reports whether a product may ship to a state
// @Summary Check state compliance
// @Tags Compliance
// @Produce json
// @Param id path string true "Product ID"
// @Param state path string true "Two-letter state code"
// @Success 200 {object} models.SuccessResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /admin/products/{id}/compliance/state/{state} [get]
func (h *ComplianceHandler) CheckState(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	state := strings.TrimSpace(c.Param("state"))
	if len(state) != 2 {
		validationError(c, "state must be a two-letter code", "state")
		return
	}

	result, err := h.compliance.CheckStateCompliance(c.Request.Context(), id, state)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: result})
}

// AssignRule links a product to a compliance category by hand
// @Summary Assign compliance rule
// @Tags Compliance
// @Accept json
// @Produce json
// @Param id path string true "Product ID"
// @Param request body models.AssignComplianceRequest true "Category"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /admin/products/{id}/compliance [post]
func (h *ComplianceHandler) AssignRule(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req models.AssignComplianceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err.Error(), "category")
		return
	}
	rule, found := rules.Lookup(req.Category)
	if !found {
		validationError(c, "Unknown compliance category "+req.Category, "category")
		return
	}
	confidence := req.Confidence
	if confidence == 0 {
		confidence = 1
	}

	if err := h.compliance.AssignRule(c.Request.Context(), id, rule.Category, models.AssignedByAdmin, confidence); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Data:    gin.H{"productId": id, "category": rule.Category},
	})
}

// ListAuditLogs returns the most recent audit entries for a product
// @Summary List compliance audit log for a product
// @Tags Compliance
// @Produce json
// @Param id path string true "Product ID"
// @Param limit query int false "Max entries" default(50)
// @Success 200 {object} models.SuccessResponse
// @Router /admin/products/{id}/compliance/logs [get]
func (h *ComplianceHandler) ListAuditLogs(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit < 1 || limit > 500 {
		limit = 50
	}
	logs, err := h.compliance.ListAuditLogs(c.Request.Context(), id, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: logs})
}

// ValidateOrder is the checkout pre-check; nothing is written to the audit log
// @Summary Validate order compliance
// @Tags Compliance
// @Accept json
// @Produce json
// @Param request body models.OrderComplianceRequest true "Order lines"
// @Success 200 {object} models.SuccessResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /compliance/order/validate [post]
func (h *ComplianceHandler) ValidateOrder(c *gin.Context) {
	var req models.OrderComplianceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err.Error(), "")
		return
	}

	result, err := h.compliance.PrecheckOrderCompliance(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: result})
}
