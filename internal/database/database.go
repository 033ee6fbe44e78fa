package database

import (
	"context"
	"fmt"
	"strings"

	"accounthub/internal/pkg/logging"

	"gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	_ "modernc.org/sqlite"
)

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
	DialectMongo    Dialect = "mongo"
)

// DetectDialect picks the store backend from the DSN scheme. Anything that
// is neither postgres nor mongo is treated as a SQLite path or file: URI.
func DetectDialect(dsn string) Dialect {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return DialectPostgres
	case strings.HasPrefix(dsn, "mongodb://"), strings.HasPrefix(dsn, "mongodb+srv://"):
		return DialectMongo
	default:
		return DialectSQLite
	}
}

func Connect(ctx context.Context, dsn string, log logging.Logger) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	}

	switch DetectDialect(dsn) {
	case DialectPostgres:
		log.Info(ctx, "connecting to PostgreSQL")
		db, err := gorm.Open(postgres.Open(dsn), cfg)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return db, nil
	case DialectSQLite:
		log.Info(ctx, "using SQLite for local development", "dsn", dsn)
		db, err := gorm.Open(
			gormsqlite.New(gormsqlite.Config{
				DriverName: "sqlite",
				DSN:        dsn,
			}),
			cfg,
		)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// SQLite allows one writer at a time.
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.SetMaxOpenConns(1)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("dsn %q is not a SQL database", dsn)
	}
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
