package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-task-manager/internal/domain/repository"
)

type TokenRepository struct {
	pool *pgxpool.Pool
}

func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

// GetOrCreate relies on the UNIQUE(user_id) constraint: concurrent first logins
// both end up reading the single row that won the insert.
func (r *TokenRepository) GetOrCreate(ctx context.Context, userID int64, key string) (*entity.AuthToken, error) {
	if _, err := r.pool.Exec(ctx, `
		INSERT INTO auth_tokens (key, user_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`, key, userID); err != nil {
		return nil, err
	}

	t := &entity.AuthToken{}
	err := r.pool.QueryRow(ctx, `
		SELECT key, user_id, created_at FROM auth_tokens WHERE user_id = $1
	`, userID).Scan(&t.Key, &t.UserID, &t.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return t, nil
}

func (r *TokenRepository) GetByKey(ctx context.Context, key string) (*entity.AuthToken, error) {
	t := &entity.AuthToken{}
	err := r.pool.QueryRow(ctx, `
		SELECT key, user_id, created_at FROM auth_tokens WHERE key = $1
	`, key).Scan(&t.Key, &t.UserID, &t.CreatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return t, nil
}

func (r *TokenRepository) DeleteByUser(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM auth_tokens WHERE user_id = $1`, userID)
	return err
}

var _ repository.TokenRepository = (*TokenRepository)(nil)
