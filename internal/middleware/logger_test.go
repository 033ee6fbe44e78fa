package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"accounthub/internal/pkg/apperr"
	"accounthub/internal/pkg/logging"
	"accounthub/internal/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestErrorHandler(t *testing.T) {
	router := gin.New()
	router.Use(Metrics(), ErrorHandler(logging.Discard()))
	router.GET("/conflict", func(c *gin.Context) {
		_ = c.Error(apperr.Conflict("User with email or username already exists"))
	})
	router.GET("/unknown", func(c *gin.Context) {
		_ = c.Error(errors.New("pq: connection reset"))
	})
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})
	router.GET("/ok", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		path    string
		status  int
		message string
	}{
		{"/conflict", http.StatusConflict, "User with email or username already exists"},
		{"/unknown", http.StatusInternalServerError, "Internal server error"},
		{"/panic", http.StatusInternalServerError, "Internal server error"},
	}

	before := map[string]float64{}
	for _, tt := range tests {
		before[tt.path] = requestCount(tt.path, tt.status)
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, before[tt.path]+1, requestCount(tt.path, tt.status))
			env := decode(t, w)
			assert.Equal(t, tt.status, env.StatusCode)
			assert.Equal(t, tt.message, env.Message)
			assert.False(t, env.Success)
			assert.NotContains(t, w.Body.String(), "connection reset")
		})
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func requestCount(path string, status int) float64 {
	return testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, path, strconv.Itoa(status)))
}

func TestCORS_AllowsConfiguredOrigin(t *testing.T) {
	router := gin.New()
	router.Use(CORS([]string{"https://app.example.com"}))
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "PATCH")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
