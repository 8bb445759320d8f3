package entity

import "time"

// AuthToken is the opaque API credential of a user. A user holds at most one.
type AuthToken struct {
	Key       string
	UserID    int64
	CreatedAt time.Time
}
