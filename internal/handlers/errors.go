package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"storefront-service/internal/clients"
	"storefront-service/internal/config"
	"storefront-service/internal/models"
	"storefront-service/internal/repository"
	"storefront-service/internal/services"
)

func errorJSON(c *gin.Context, status int, code, message string) {
	c.JSON(status, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    code,
			Message: message,
		},
	})
}

func validationError(c *gin.Context, message, field string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    "VALIDATION_ERROR",
			Message: message,
			Field:   field,
		},
	})
}

func configurationError(c *gin.Context, err *config.MissingVarsError) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    "CONFIGURATION_ERROR",
			Message: err.Error(),
		},
		Missing: err.Vars,
	})
}

// respondError maps service and upstream errors onto the API error envelope
func respondError(c *gin.Context, err error) {
	var missing *config.MissingVarsError
	var notCompliant *services.ComplianceError
	var apiErr *clients.APIError

	switch {
	case errors.As(err, &missing):
		configurationError(c, missing)
	case errors.As(err, &notCompliant):
		c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
			Success: false,
			Error: models.Error{
				Code:    "COMPLIANCE_VIOLATION",
				Message: "Order does not meet compliance requirements",
				Details: notCompliant.Result,
			},
		})
	case errors.Is(err, repository.ErrNotFound):
		errorJSON(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, models.ErrInvalidTransition):
		errorJSON(c, http.StatusConflict, "INVALID_TRANSITION", err.Error())
	case errors.Is(err, services.ErrVIPOnly):
		errorJSON(c, http.StatusForbidden, "VIP_REQUIRED", err.Error())
	case errors.Is(err, repository.ErrInsufficientStock):
		errorJSON(c, http.StatusConflict, "INSUFFICIENT_STOCK", err.Error())
	case errors.Is(err, services.ErrProductUnavailable):
		errorJSON(c, http.StatusBadRequest, "PRODUCT_UNAVAILABLE", err.Error())
	case errors.Is(err, services.ErrCartEmpty):
		errorJSON(c, http.StatusBadRequest, "CART_EMPTY", err.Error())
	case errors.As(err, &apiErr), errors.Is(err, clients.ErrCircuitOpen):
		errorJSON(c, http.StatusInternalServerError, "UPSTREAM_ERROR", err.Error())
	default:
		errorJSON(c, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}

// pathUUID parses a uuid path parameter, writing a 400 when it is malformed
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		validationError(c, "Invalid "+name, name)
		return uuid.Nil, false
	}
	return id, true
}
