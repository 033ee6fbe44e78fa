// Package server wires the HTTP router shared by cmd/api and the e2e tests.
package server

import (
	"context"
	"net/http"
	"time"

	"accounthub/internal/config"
	"accounthub/internal/middleware"
	"accounthub/internal/modules/account"
	"accounthub/internal/pkg/jwt"
	"accounthub/internal/pkg/logging"
	"accounthub/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Deps struct {
	Config    *config.Config
	Users     account.UserStore
	Tokens    *jwt.Issuer
	Uploader  account.MediaUploader
	Locks     account.Locker
	Publisher account.EventPublisher
	Log       logging.Logger
	// Ping reports store health for /healthz. Nil means always healthy.
	Ping func(ctx context.Context) error
}

func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config

	r := gin.New()
	r.MaxMultipartMemory = cfg.MaxUploadBytes
	// Logging and metrics wrap the error boundary so they see rendered statuses.
	r.Use(
		middleware.RequestLogger(d.Log),
		middleware.Metrics(),
		middleware.CORS(cfg.CORSOrigins),
		middleware.ErrorHandler(d.Log),
	)

	r.GET("/healthz", healthHandler(d.Ping))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if cfg.MediaDriver == config.MediaDriverLocal {
		r.Static(cfg.MediaPublicBaseURL, cfg.MediaLocalDir)
	}

	service := account.NewService(d.Users, d.Tokens, d.Uploader, d.Locks, d.Publisher, d.Log, cfg.BcryptCost)
	handler := account.NewHandler(service, account.CookieConfig{
		Secure:     cfg.CookieSecure,
		SameSite:   cfg.SameSite(),
		Domain:     cfg.CookieDomain,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	}, cfg.UploadTempDir, cfg.MaxUploadBytes)

	v1 := r.Group("/api/v1")
	handler.RegisterRoutes(v1, middleware.Authenticate(d.Tokens, d.Users))

	return r
}

func healthHandler(ping func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				response.Error(c, http.StatusServiceUnavailable, "Store unavailable")
				return
			}
		}
		response.Success(c, http.StatusOK, gin.H{"status": "ok"}, "OK")
	}
}
