package helpers

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedSessionPrefix = "session:revoked:"

// SessionRevocations remembers logged-out session ids in Redis until the
// session would have expired anyway. Without Redis it records nothing.
type SessionRevocations struct {
	rdb redis.Cmdable
}

func NewSessionRevocations(rdb *redis.Client) *SessionRevocations {
	r := &SessionRevocations{}
	if rdb != nil {
		r.rdb = rdb
	}
	return r
}

// Revoke marks the session id as logged out until its expiry.
func (r *SessionRevocations) Revoke(ctx context.Context, id string, until time.Time) error {
	if r == nil || r.rdb == nil || id == "" {
		return nil
	}
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, revokedSessionPrefix+id, "1", ttl).Err()
}

func (r *SessionRevocations) Revoked(ctx context.Context, id string) (bool, error) {
	if r == nil || r.rdb == nil || id == "" {
		return false, nil
	}
	n, err := r.rdb.Exists(ctx, revokedSessionPrefix+id).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
