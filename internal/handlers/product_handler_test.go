package handlers

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"storefront-service/internal/clients"
	"storefront-service/internal/config"
	"storefront-service/internal/services"
)

func setupProductRouter(h *ProductHandler) http.Handler {
	r := setupTestRouter()
	r.POST("/api/v1/admin/products/:id/generate-description", h.GenerateDescription)
	return r
}

func TestProductHandler_GenerateDescription(t *testing.T) {
	id := uuid.New()
	path := "/api/v1/admin/products/" + id.String() + "/generate-description"

	t.Run("llm not configured", func(t *testing.T) {
		gen := new(MockDescriptionGenerator)
		router := setupProductRouter(NewProductHandler(gen, &config.MissingVarsError{Vars: []string{"OPENAI_API_KEY"}}))

		w := performRequest(router, http.MethodPost, path, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "CONFIGURATION_ERROR", errorCode(w))
		gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("force is forwarded", func(t *testing.T) {
		gen := new(MockDescriptionGenerator)
		gen.On("Generate", mock.Anything, id, true).Return(&services.DescriptionResult{
			ProductID: id, Updated: []string{"shortDescription", "description"},
		}, nil)

		w := performRequest(setupProductRouter(NewProductHandler(gen, nil)), http.MethodPost, path, map[string]bool{"force": true})

		assert.Equal(t, http.StatusOK, w.Code)
		gen.AssertExpectations(t)
	})

	t.Run("llm failure", func(t *testing.T) {
		gen := new(MockDescriptionGenerator)
		gen.On("Generate", mock.Anything, id, false).Return(nil, &clients.APIError{Service: "openai", StatusCode: 429, Body: "rate limited"})

		w := performRequest(setupProductRouter(NewProductHandler(gen, nil)), http.MethodPost, path, nil)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "UPSTREAM_ERROR", errorCode(w))
	})
}
