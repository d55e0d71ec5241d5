package metadata

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/sanposhin/internal/ratelimit"
)

// RateLimitStore keeps limiter state in metadata so lockouts survive CLI
// restarts.
type RateLimitStore struct {
	repo Repository
}

func NewRateLimitStore(repo Repository) *RateLimitStore {
	return &RateLimitStore{repo: repo}
}

func (s *RateLimitStore) Get(ctx context.Context, key string) (ratelimit.State, bool, error) {
	raw, err := s.repo.Get(ctx, rateLimitPrefix+key)
	if err != nil || raw == nil {
		return ratelimit.State{}, false, err
	}
	var st ratelimit.State
	if err := json.Unmarshal(raw, &st); err != nil {
		return ratelimit.State{}, false, fmt.Errorf("decode rate limit state %s: %w", key, err)
	}
	return st, true, nil
}

func (s *RateLimitStore) Set(ctx context.Context, key string, st ratelimit.State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.repo.Set(ctx, rateLimitPrefix+key, raw)
}

func (s *RateLimitStore) Delete(ctx context.Context, key string) error {
	return s.repo.Delete(ctx, rateLimitPrefix+key)
}

// ClearSession forgets the signed-in user.
func ClearSession(ctx context.Context, repo Repository) error {
	_, err := repo.DeletePrefix(ctx, sessionPrefix)
	return err
}
