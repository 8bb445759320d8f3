package repository

import (
	"context"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
)

// TokenRepository persists API tokens. Implementations must enforce one token per user.
type TokenRepository interface {
	// GetOrCreate stores key for userID unless the user already has a token,
	// and returns whichever token is live afterwards.
	GetOrCreate(ctx context.Context, userID int64, key string) (*entity.AuthToken, error)
	GetByKey(ctx context.Context, key string) (*entity.AuthToken, error)
	DeleteByUser(ctx context.Context, userID int64) error
}
