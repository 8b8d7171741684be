package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

const serviceName = "storefront-service"

// Check reports whether one dependency is reachable
type Check func(ctx context.Context) error

// HealthHandler serves liveness and readiness probes. Required checks fail
// readiness; optional ones are reported only.
type HealthHandler struct {
	required map[string]Check
	optional map[string]Check
}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{
		required: map[string]Check{},
		optional: map[string]Check{},
	}
}

func (h *HealthHandler) Require(name string, check Check) *HealthHandler {
	h.required[name] = check
	return h
}

func (h *HealthHandler) Optional(name string, check Check) *HealthHandler {
	h.optional[name] = check
	return h
}

// Health provides a health check endpoint
// @Summary Health check
// @Description Check if the service is healthy
// @Tags health
// @Produce json
// @Success 200 {object} gin.H
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   serviceName,
		"timestamp": time.Now().UTC(),
	})
}

// Ready provides a readiness check endpoint
// @Summary Readiness check
// @Description Check if the service is ready to handle requests
// @Tags health
// @Produce json
// @Success 200 {object} gin.H
// @Failure 503 {object} gin.H
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := gin.H{}
	ready := true
	for _, name := range sortedKeys(h.required) {
		if err := h.required[name](ctx); err != nil {
			checks[name] = err.Error()
			ready = false
			continue
		}
		checks[name] = "ok"
	}
	for _, name := range sortedKeys(h.optional) {
		if err := h.optional[name](ctx); err != nil {
			checks[name] = "degraded: " + err.Error()
			continue
		}
		checks[name] = "ok"
	}

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":    status,
		"service":   serviceName,
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	})
}

func sortedKeys(m map[string]Check) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
