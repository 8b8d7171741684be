package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func setupTestRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"customer": GetCustomerID(c),
			"vip":      IsVIP(c),
		})
	})
	r.GET("/test", handlers...)
	return r
}

func createTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestCustomerMiddleware(t *testing.T) {
	router := setupTestRouter(CustomerMiddleware())

	t.Run("customer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(HeaderCustomerID, "cust-1")
		req.Header.Set(HeaderCustomerTier, "VIP")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"customer":"cust-1","vip":true}`, w.Body.String())
	})

	t.Run("session fallback", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(HeaderSessionID, "sess-9")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"customer":"sess-9","vip":false}`, w.Body.String())
	})

	t.Run("missing identity", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "CUSTOMER_REQUIRED")
	})
}

func TestRequireVIP(t *testing.T) {
	router := setupTestRouter(CustomerMiddleware(), RequireVIP())

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set(HeaderCustomerID, "cust-1")
	req.Header.Set(HeaderCustomerTier, "standard")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "VIP_REQUIRED")
}

func TestAdminMiddleware(t *testing.T) {
	tests := []struct {
		name        string
		apiKey      string
		environment string
		header      string
		wantStatus  int
	}{
		{"valid key", "secret", "production", "secret", http.StatusOK},
		{"wrong key", "secret", "production", "nope", http.StatusUnauthorized},
		{"missing header", "secret", "development", "", http.StatusUnauthorized},
		{"open in development", "", "development", "", http.StatusOK},
		{"closed in production without key", "", "production", "", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := setupTestRouter(AdminMiddleware(tt.apiKey, tt.environment, createTestLogger()))
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.header != "" {
				req.Header.Set(HeaderAdminKey, tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
