package container

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-task-manager/config"
	"github.com/oksasatya/go-task-manager/db"
	pginfra "github.com/oksasatya/go-task-manager/internal/infrastructure/postgres"
	sqliteinfra "github.com/oksasatya/go-task-manager/internal/infrastructure/sqlite"
)

// OpenRepositories migrates and opens the backend selected by cfg.DBDriver.
// The returned close func releases the underlying connections.
func OpenRepositories(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (Repositories, func(), error) {
	switch cfg.DBDriver {
	case db.DriverPostgres:
		store, err := pginfra.Open(ctx, cfg.PostgresDSN(), pginfra.PoolConfig{
			MaxConns:    cfg.DBMaxConns,
			MinConns:    cfg.DBMinConns,
			MaxConnLife: cfg.DBMaxConnLife,
		}, logger)
		if err != nil {
			return Repositories{}, nil, err
		}
		return Repositories{
			Users:  store.Users(),
			Tokens: store.Tokens(),
			Tasks:  store.Tasks(),
			Ping:   store.Ping,
		}, func() { _ = store.Close() }, nil
	case db.DriverSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return Repositories{}, nil, err
			}
		}
		store, err := sqliteinfra.Open(cfg.SQLitePath, logger)
		if err != nil {
			return Repositories{}, nil, err
		}
		return Repositories{
			Users:  store.Users(),
			Tokens: store.Tokens(),
			Tasks:  store.Tasks(),
			Ping:   store.Ping,
		}, func() { _ = store.Close() }, nil
	default:
		return Repositories{}, nil, fmt.Errorf("unsupported DB_DRIVER %q (want postgres or sqlite)", cfg.DBDriver)
	}
}
