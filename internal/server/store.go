package server

import (
	"context"
	"fmt"

	"accounthub/internal/config"
	"accounthub/internal/database"
	"accounthub/internal/domain"
	"accounthub/internal/modules/account"
	"accounthub/internal/pkg/logging"
	"accounthub/internal/repository"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Store is the user store every backend provides, plus the session listing
// used by the cleanup command.
type Store interface {
	account.UserStore
	ListSessions(ctx context.Context) ([]domain.Session, error)
}

// OpenedStore bundles a connected store with its health check and closer.
type OpenedStore struct {
	Store   Store
	Dialect database.Dialect
	Ping    func(ctx context.Context) error
	Close   func(ctx context.Context) error
}

// OpenStore connects to the backend named by cfg.DatabaseURL and brings its
// schema up to date.
func OpenStore(ctx context.Context, cfg *config.Config, log logging.Logger) (*OpenedStore, error) {
	dialect := database.DetectDialect(cfg.DatabaseURL)
	if dialect == database.DialectMongo {
		return openMongo(ctx, cfg, log)
	}

	db, err := database.Connect(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db, repository.Models()...); err != nil {
		_ = database.Close(db)
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sql handle: %w", err)
	}

	return &OpenedStore{
		Store:   repository.NewUserRepository(db),
		Dialect: dialect,
		Ping:    sqlDB.PingContext,
		Close:   func(context.Context) error { return database.Close(db) },
	}, nil
}

func openMongo(ctx context.Context, cfg *config.Config, log logging.Logger) (*OpenedStore, error) {
	log.Info(ctx, "connecting to MongoDB", "database", cfg.MongoDatabase)
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.DatabaseURL))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	repo := repository.NewMongoUserRepository(client.Database(cfg.MongoDatabase))
	if err := repo.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return &OpenedStore{
		Store:   repo,
		Dialect: database.DialectMongo,
		Ping:    func(ctx context.Context) error { return client.Ping(ctx, nil) },
		Close:   client.Disconnect,
	}, nil
}
