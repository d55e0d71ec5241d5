package common

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"invalid input", InvalidInput("memo too long"), KindInvalidInput},
		{"rate limited", &RateLimitError{RetryAt: time.Now()}, KindRateLimited},
		{"wrapped rate limited", fmt.Errorf("login: %w", ErrRateLimited), KindRateLimited},
		{"credentials", ErrInvalidCredentials, KindInvalidCredentials},
		{"unauthorized", ErrorUnauthorized, KindUnauthorized},
		{"expired token", fmt.Errorf("x: %w", ErrTokenExpired), KindUnauthorized},
		{"conflict", fmt.Errorf("create user: %w", ErrConflict), KindConflict},
		{"not found", ErrorNotFound, KindNotFound},
		{"unavailable", fmt.Errorf("dial: %w", ErrUnavailable), KindUnavailable},
		{"internal", ErrorInternal, KindServerFault},
		{"other", errors.New("boom"), KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestRateLimitError(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	err := error(&RateLimitError{RetryAt: at})

	assert.True(t, errors.Is(err, ErrRateLimited))
	assert.Contains(t, err.Error(), "2025-01-02T03:04:05Z")

	var rl *RateLimitError
	assert.True(t, errors.As(fmt.Errorf("wrap: %w", err), &rl))
	assert.Equal(t, at, rl.RetryAt)

	assert.Equal(t, ErrRateLimited.Error(), (&RateLimitError{}).Error())
}

func TestInvalidInputMessage(t *testing.T) {
	err := InvalidInput("field %s", "memo")
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Equal(t, "invalid input: field memo", err.Error())
}
