package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-task-manager/db"
)

// PoolConfig sizes the connection pool.
type PoolConfig struct {
	MaxConns    int32
	MinConns    int32
	MaxConnLife time.Duration
}

func NewPool(ctx context.Context, dsn string, pc PoolConfig) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = pc.MaxConns
	cfg.MinConns = pc.MinConns
	cfg.MaxConnLifetime = pc.MaxConnLife
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// Store owns the pgx pool shared by the repositories.
type Store struct {
	pool *pgxpool.Pool
}

// Open migrates the schema at dsn, then connects a pool to it.
func Open(ctx context.Context, dsn string, pc PoolConfig, logger *logrus.Logger) (*Store, error) {
	if err := db.Up(db.DriverPostgres, dsn, logger); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	pool, err := NewPool(ctx, dsn, pc)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Users() *UserRepository   { return NewUserRepository(s.pool) }
func (s *Store) Tokens() *TokenRepository { return NewTokenRepository(s.pool) }
func (s *Store) Tasks() *TaskRepository   { return NewTaskRepository(s.pool) }
