package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
	"github.com/oksasatya/go-task-manager/internal/domain/repository"
)

type TokenRepository struct {
	db *sql.DB
}

func (r *TokenRepository) GetOrCreate(ctx context.Context, userID int64, key string) (*entity.AuthToken, error) {
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO auth_tokens (key, user_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO NOTHING
	`, key, userID, toMicros(time.Now())); err != nil {
		return nil, err
	}
	return r.getOne(ctx, `SELECT key, user_id, created_at FROM auth_tokens WHERE user_id = ?`, userID)
}

func (r *TokenRepository) GetByKey(ctx context.Context, key string) (*entity.AuthToken, error) {
	return r.getOne(ctx, `SELECT key, user_id, created_at FROM auth_tokens WHERE key = ?`, key)
}

func (r *TokenRepository) getOne(ctx context.Context, query string, arg any) (*entity.AuthToken, error) {
	t := &entity.AuthToken{}
	var createdAt int64
	if err := r.db.QueryRowContext(ctx, query, arg).Scan(&t.Key, &t.UserID, &createdAt); err != nil {
		return nil, mapError(err)
	}
	t.CreatedAt = fromMicros(createdAt)
	return t, nil
}

func (r *TokenRepository) DeleteByUser(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM auth_tokens WHERE user_id = ?`, userID)
	return err
}

var _ repository.TokenRepository = (*TokenRepository)(nil)
