// Package metadata stores small device-local values in the SQLite metadata
// table under namespaced keys: the current session, cached password hashes
// and rate limit state.
package metadata

import (
	"context"
)

const (
	KeySessionUserID = "session:user_id"
	KeySessionToken  = "session:token"

	sessionPrefix   = "session:"
	rateLimitPrefix = "ratelimit:"
)

// PasswordHashKey is where the bcrypt hash used for offline login lives.
func PasswordHashKey(userID string) string {
	return "auth:" + userID + ":password_hash"
}

// Repository is a byte-valued key/value store. Get returns (nil, nil) for
// a missing key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
	List(ctx context.Context, prefix string) (map[string][]byte, error)
}
