// Command session_cleanup clears stored refresh tokens that no longer verify
// (expired, or signed with a rotated secret), so those sessions read as
// logged out.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"accounthub/internal/config"
	"accounthub/internal/domain"
	"accounthub/internal/pkg/jwt"
	"accounthub/internal/pkg/logging"
	"accounthub/internal/server"

	"github.com/joho/godotenv"
)

type sessionStore interface {
	ListSessions(ctx context.Context) ([]domain.Session, error)
	SwapRefreshToken(ctx context.Context, id, expected, next string) error
}

type refreshVerifier interface {
	VerifyRefresh(token string) (*jwt.Claims, error)
}

type result struct {
	Scanned int
	Cleared int
	Skipped int
}

func main() {
	dryRun := flag.Bool("dry-run", false, "report stale sessions without clearing them")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		logging.New("", os.Stderr).Error(context.Background(), "invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logging.New(cfg.AppEnv, os.Stdout)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	store, err := server.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "db connect failed", "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close(context.Background()) }()

	issuer := jwt.New(cfg.AccessTokenSecret, cfg.AccessTokenTTL, cfg.RefreshTokenSecret, cfg.RefreshTokenTTL)
	res, err := cleanup(ctx, store.Store, issuer, *dryRun, log)
	if err != nil {
		log.Error(ctx, "session cleanup failed", "error", err)
		os.Exit(1)
	}
	log.Info(ctx, "session cleanup completed",
		"scanned", res.Scanned, "cleared", res.Cleared, "skipped", res.Skipped, "dry_run", *dryRun)
}

func cleanup(ctx context.Context, store sessionStore, tokens refreshVerifier, dryRun bool, log logging.Logger) (result, error) {
	var res result
	sessions, err := store.ListSessions(ctx)
	if err != nil {
		return res, err
	}

	for _, s := range sessions {
		res.Scanned++
		if _, err := tokens.VerifyRefresh(s.RefreshToken); err == nil {
			continue
		}
		if dryRun {
			res.Cleared++
			continue
		}

		// The conditional swap leaves sessions rotated since the scan alone.
		err := store.SwapRefreshToken(ctx, s.UserID, s.RefreshToken, "")
		switch {
		case err == nil:
			res.Cleared++
		case errors.Is(err, domain.ErrRefreshTokenMismatch), errors.Is(err, domain.ErrUserNotFound):
			res.Skipped++
		default:
			return res, err
		}
	}
	if res.Cleared > 0 {
		log.Info(ctx, "stale sessions found", "count", res.Cleared)
	}
	return res, nil
}
