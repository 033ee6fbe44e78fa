package account

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"accounthub/internal/middleware"
	"accounthub/internal/pkg/logging"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(env *testEnv) *gin.Engine {
	h := NewHandler(env.service, CookieConfig{
		Secure:     true,
		SameSite:   http.SameSiteStrictMode,
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
	}, "", 1<<20)

	r := gin.New()
	r.Use(middleware.ErrorHandler(logging.Discard()))
	h.RegisterRoutes(r.Group("/api/v1"), middleware.Authenticate(env.issuer, env.store))
	return r
}

func postJSON(r *gin.Engine, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestHandler_LoginSetsSessionCookies(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "kim", "kim@example.com", "pw")
	r := newTestRouter(env)

	w := postJSON(r, "/api/v1/users/login", map[string]string{"username": "kim", "password": "pw"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	for name, maxAge := range map[string]int{
		AccessTokenCookie:  int((15 * time.Minute).Seconds()),
		RefreshTokenCookie: int((24 * time.Hour).Seconds()),
	} {
		c := findCookie(w, name)
		require.NotNil(t, c, name)
		assert.NotEmpty(t, c.Value)
		assert.True(t, c.HttpOnly)
		assert.True(t, c.Secure)
		assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
		assert.Equal(t, "/", c.Path)
		assert.Equal(t, maxAge, c.MaxAge)
	}
}

func TestHandler_RefreshPrefersCookie(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "kim", "kim@example.com", "pw")
	r := newTestRouter(env)

	w := postJSON(r, "/api/v1/users/login", map[string]string{"username": "kim", "password": "pw"})
	require.Equal(t, http.StatusOK, w.Code)
	refresh := findCookie(w, RefreshTokenCookie)
	require.NotNil(t, refresh)

	// The body token is bogus; the cookie wins.
	w = postJSON(r, "/api/v1/users/refresh-token", map[string]string{"refreshToken": "bogus"}, refresh)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEqual(t, refresh.Value, findCookie(w, RefreshTokenCookie).Value)
}

func TestHandler_LogoutClearsCookies(t *testing.T) {
	env := newTestEnv(t)
	u := env.seed(t, "kim", "kim@example.com", "pw")
	r := newTestRouter(env)

	w := postJSON(r, "/api/v1/users/login", map[string]string{"username": "kim", "password": "pw"})
	require.Equal(t, http.StatusOK, w.Code)
	access := findCookie(w, AccessTokenCookie)

	w = postJSON(r, "/api/v1/users/logout", nil, access)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"statusCode":200,"data":{},"message":"User logged out successfully","success":true}`, w.Body.String())

	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		c := findCookie(w, name)
		require.NotNil(t, c, name)
		assert.Empty(t, c.Value)
		assert.Less(t, c.MaxAge, 0)
		assert.True(t, c.Secure)
	}
	assert.Empty(t, env.store.get(u.ID).RefreshToken)
}

func TestHandler_GatedRouteWithoutToken(t *testing.T) {
	r := newTestRouter(newTestEnv(t))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Unauthorized request")
}
