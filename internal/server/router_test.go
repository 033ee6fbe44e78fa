package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"accounthub/internal/config"
	"accounthub/internal/domain"
	"accounthub/internal/events"
	"accounthub/internal/media"
	"accounthub/internal/pkg/jwt"
	"accounthub/internal/pkg/lock"
	"accounthub/internal/pkg/logging"
	"accounthub/internal/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// emptyStore holds no users.
type emptyStore struct{}

func (emptyStore) FindByID(context.Context, string, domain.Projection) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}

func (emptyStore) FindByUsernameOrEmail(context.Context, string, string) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}

func (emptyStore) Create(context.Context, *domain.User) error { return nil }

func (emptyStore) Update(context.Context, string, domain.UserUpdate, domain.UpdateOptions) (*domain.User, error) {
	return nil, domain.ErrUserNotFound
}

func (emptyStore) SwapRefreshToken(context.Context, string, string, string) error {
	return domain.ErrUserNotFound
}

func newTestRouter(t *testing.T, ping func(context.Context) error) *gin.Engine {
	dir := t.TempDir()
	cfg := &config.Config{
		AccessTokenTTL:     time.Minute,
		RefreshTokenTTL:    time.Hour,
		BcryptCost:         4,
		CookieSameSite:     "Lax",
		UploadTempDir:      dir,
		MaxUploadBytes:     1 << 20,
		MediaDriver:        config.MediaDriverLocal,
		MediaLocalDir:      dir,
		MediaPublicBaseURL: "/static/media",
	}
	return NewRouter(Deps{
		Config:    cfg,
		Users:     emptyStore{},
		Tokens:    jwt.New("access", time.Minute, "refresh", time.Hour),
		Uploader:  media.NewLocalUploader(dir, cfg.MediaPublicBaseURL, cfg.MaxUploadBytes),
		Locks:     lock.NewLocal(),
		Publisher: events.Noop{},
		Log:       logging.Discard(),
		Ping:      ping,
	})
}

func httpCount(method, path, status string) float64 {
	return testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(method, path, status))
}

func TestRouter_RecordsErrorStatuses(t *testing.T) {
	r := newTestRouter(t, nil)

	tests := []struct {
		method string
		path   string
		status int
		label  string
	}{
		{http.MethodGet, "/api/v1/users/current-user", http.StatusUnauthorized, "401"},
		{http.MethodPost, "/api/v1/users/login", http.StatusBadRequest, "400"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			before := httpCount(tt.method, tt.path, tt.label)
			okBefore := httpCount(tt.method, tt.path, "200")

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, before+1, httpCount(tt.method, tt.path, tt.label))
			assert.Equal(t, okBefore, httpCount(tt.method, tt.path, "200"))
		})
	}
}

func TestRouter_Healthz(t *testing.T) {
	w := httptest.NewRecorder()
	newTestRouter(t, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	down := func(context.Context) error { return errors.New("connection refused") }
	w = httptest.NewRecorder()
	newTestRouter(t, down).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "Store unavailable")
	assert.NotContains(t, w.Body.String(), "connection refused")
}
