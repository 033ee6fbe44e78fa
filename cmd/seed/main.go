package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"accounthub/internal/config"
	"accounthub/internal/domain"
	"accounthub/internal/pkg/logging"
	"accounthub/internal/server"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

type demoUser struct {
	Username string
	Email    string
	FullName string
	Password string
}

var demoUsers = []demoUser{
	{Username: "demo", Email: "demo@accounthub.local", FullName: "Demo User", Password: "demo12345"},
	{Username: "alice", Email: "alice@accounthub.local", FullName: "Alice Example", Password: "alice12345"},
}

func main() {
	avatar := flag.String("avatar", "https://placehold.co/256x256.png", "avatar URL stored on seeded users")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		logging.New("", os.Stderr).Error(context.Background(), "invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logging.New(cfg.AppEnv, os.Stdout)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, err := server.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "db connection failed", "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close(context.Background()) }()

	created, err := seed(ctx, store.Store, demoUsers, *avatar, cfg.BcryptCost, log)
	if err != nil {
		log.Error(ctx, "seed failed", "error", err)
		os.Exit(1)
	}
	log.Info(ctx, "seed completed", "created", created)
}

type userCreator interface {
	Create(ctx context.Context, u *domain.User) error
}

// seed inserts users that do not exist yet. Re-running it is harmless.
func seed(ctx context.Context, store userCreator, users []demoUser, avatar string, cost int, log logging.Logger) (int, error) {
	created := 0
	for _, d := range users {
		hash, err := bcrypt.GenerateFromPassword([]byte(d.Password), cost)
		if err != nil {
			return created, err
		}
		u := &domain.User{
			Username:     d.Username,
			Email:        d.Email,
			FullName:     d.FullName,
			Avatar:       avatar,
			PasswordHash: string(hash),
		}
		if err := store.Create(ctx, u); err != nil {
			if errors.Is(err, domain.ErrDuplicateUser) {
				log.Info(ctx, "user already exists", "username", d.Username)
				continue
			}
			return created, err
		}
		created++
		log.Info(ctx, "user created", "username", d.Username, "password", d.Password)
	}
	return created, nil
}
