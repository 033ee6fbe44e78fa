package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"accounthub/internal/config"
	"accounthub/internal/pkg/jwt"
	"accounthub/internal/pkg/logging"
	"accounthub/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.New("", os.Stderr).Error(context.Background(), "invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logging.New(cfg.AppEnv, os.Stdout)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logging.Logger) error {
	startCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	store, err := server.OpenStore(startCtx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			log.Warn(ctx, "close store", "error", err)
		}
	}()

	uploader, err := server.NewUploader(startCtx, cfg)
	if err != nil {
		return err
	}
	locks, closeLocks := server.NewLocker(startCtx, cfg, log)
	defer func() { _ = closeLocks() }()
	publisher, closePublisher := server.NewPublisher(startCtx, cfg, log)
	defer func() { _ = closePublisher() }()

	router := server.NewRouter(server.Deps{
		Config:    cfg,
		Users:     store.Store,
		Tokens:    jwt.New(cfg.AccessTokenSecret, cfg.AccessTokenTTL, cfg.RefreshTokenSecret, cfg.RefreshTokenTTL),
		Uploader:  uploader,
		Locks:     locks,
		Publisher: publisher,
		Log:       log,
		Ping:      store.Ping,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "http server listening", "addr", cfg.HTTPAddr, "store", string(store.Dialect), "media", cfg.MediaDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-sigCtx.Done():
	}

	log.Info(ctx, "shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(ctx, 15*time.Second)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}
