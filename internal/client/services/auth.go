// Package services holds the CLI's application services. They combine the
// remote API with the device-local store so that the CLI keeps working
// while the server is unreachable.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sanposhin/internal/auth"
	"github.com/dmitrijs2005/sanposhin/internal/client/client"
	"github.com/dmitrijs2005/sanposhin/internal/client/queue"
	"github.com/dmitrijs2005/sanposhin/internal/client/repositories/logs"
	"github.com/dmitrijs2005/sanposhin/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/sanposhin/internal/common"
	"github.com/dmitrijs2005/sanposhin/internal/logging"
	"github.com/dmitrijs2005/sanposhin/internal/models"
	"github.com/dmitrijs2005/sanposhin/internal/ratelimit"
)

type AuthRemote interface {
	Signup(ctx context.Context, userID, password string) error
	Login(ctx context.Context, userID, password string) (string, []models.LogEntry, error)
	ResetPassword(ctx context.Context, userID string) (string, error)
	DeleteAccount(ctx context.Context, userID string) (client.AccountDeletion, error)
	SetToken(token string)
}

// Session is the signed-in user. Offline sessions have been verified only
// against the cached password hash.
type Session struct {
	UserID  string
	Token   string
	Offline bool
}

type AuthService struct {
	remote AuthRemote
	meta   metadata.Repository
	cache  logs.Repository
	queue  *queue.Queue
	// offline logins are throttled locally with the login policy
	limiter *ratelimit.Limiter
	logger  logging.Logger
	now     func() time.Time
}

func NewAuthService(remote AuthRemote, meta metadata.Repository, cache logs.Repository, q *queue.Queue, logger logging.Logger) *AuthService {
	return &AuthService{
		remote:  remote,
		meta:    meta,
		cache:   cache,
		queue:   q,
		limiter: ratelimit.New(ratelimit.LoginPolicy, metadata.NewRateLimitStore(meta), logger),
		logger:  logger.With("module", "auth_service"),
		now:     time.Now,
	}
}

func validateCredentials(userID, password string) error {
	if err := auth.ValidateUserID(userID); err != nil {
		return err
	}
	return auth.ValidatePassword(password)
}

func (s *AuthService) Signup(ctx context.Context, userID, password string) error {
	if err := validateCredentials(userID, password); err != nil {
		return err
	}
	return s.remote.Signup(ctx, userID, password)
}

// Login signs in against the server and refreshes the offline cache. When
// the server is unreachable it falls back to the cached password hash.
func (s *AuthService) Login(ctx context.Context, userID, password string) (*Session, error) {
	if err := validateCredentials(userID, password); err != nil {
		return nil, err
	}

	token, remoteLogs, err := s.remote.Login(ctx, userID, password)
	switch {
	case err == nil:
	case errors.Is(err, common.ErrUnavailable):
		s.logger.Info(ctx, "server unreachable, trying offline login", "user_id", userID)
		return s.offlineLogin(ctx, userID, password)
	default:
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	if err := s.meta.Set(ctx, metadata.PasswordHashKey(userID), []byte(hash)); err != nil {
		return nil, fmt.Errorf("cache credentials: %w", err)
	}
	if err := s.saveSession(ctx, userID, token); err != nil {
		return nil, err
	}
	s.remote.SetToken(token)
	s.limiter.ResetOnSuccess(ctx, userID)

	if err := s.cache.ReplaceRemote(ctx, userID, remoteLogs); err != nil {
		s.logger.Warn(ctx, "log cache refresh failed", "user_id", userID, "error", err)
	}
	return &Session{UserID: userID, Token: token}, nil
}

func (s *AuthService) offlineLogin(ctx context.Context, userID, password string) (*Session, error) {
	now := s.now()
	if d := s.limiter.CheckLimit(ctx, userID, now); !d.Allowed {
		return nil, &common.RateLimitError{RetryAt: d.RetryAt}
	}

	hash, err := s.meta.Get(ctx, metadata.PasswordHashKey(userID))
	if err != nil {
		return nil, err
	}
	if hash == nil {
		// never signed in on this device
		return nil, common.ErrUnavailable
	}

	if !auth.VerifyPassword(password, string(hash)) {
		s.limiter.RegisterFailure(ctx, userID, now)
		return nil, common.ErrInvalidCredentials
	}
	s.limiter.ResetOnSuccess(ctx, userID)

	// keep a token issued to this same user earlier; it may still be valid
	var token string
	prev, err := s.Current(ctx)
	if err == nil && prev.UserID == userID {
		token = prev.Token
	}
	if err := s.saveSession(ctx, userID, token); err != nil {
		return nil, err
	}
	s.remote.SetToken(token)
	return &Session{UserID: userID, Token: token, Offline: true}, nil
}

func (s *AuthService) saveSession(ctx context.Context, userID, token string) error {
	if err := s.meta.Set(ctx, metadata.KeySessionUserID, []byte(userID)); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if token == "" {
		return s.meta.Delete(ctx, metadata.KeySessionToken)
	}
	if err := s.meta.Set(ctx, metadata.KeySessionToken, []byte(token)); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Current restores the stored session and arms the remote client with its
// token. Without a session it returns common.ErrorUnauthorized.
func (s *AuthService) Current(ctx context.Context) (*Session, error) {
	uid, err := s.meta.Get(ctx, metadata.KeySessionUserID)
	if err != nil {
		return nil, err
	}
	if len(uid) == 0 {
		return nil, common.ErrorUnauthorized
	}
	token, err := s.meta.Get(ctx, metadata.KeySessionToken)
	if err != nil {
		return nil, err
	}
	s.remote.SetToken(string(token))
	return &Session{UserID: string(uid), Token: string(token), Offline: len(token) == 0}, nil
}

// Logout forgets the session. Cached logs, queued writes and the password
// hash stay so the user can sign in again offline.
func (s *AuthService) Logout(ctx context.Context) error {
	s.remote.SetToken("")
	return metadata.ClearSession(ctx, s.meta)
}

// ResetPassword asks the server for a new password and caches its hash.
func (s *AuthService) ResetPassword(ctx context.Context) (string, error) {
	sess, err := s.Current(ctx)
	if err != nil {
		return "", err
	}
	password, err := s.remote.ResetPassword(ctx, sess.UserID)
	if err != nil {
		return "", err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", err
	}
	if err := s.meta.Set(ctx, metadata.PasswordHashKey(sess.UserID), []byte(hash)); err != nil {
		s.logger.Warn(ctx, "caching new password hash failed", "user_id", sess.UserID, "error", err)
	}
	return password, nil
}

// DeleteAccount removes the account remotely and then every trace of it on
// this device.
func (s *AuthService) DeleteAccount(ctx context.Context) (client.AccountDeletion, error) {
	sess, err := s.Current(ctx)
	if err != nil {
		return client.AccountDeletion{}, err
	}
	res, err := s.remote.DeleteAccount(ctx, sess.UserID)
	if err != nil {
		return res, err
	}

	var errs []error
	if _, err := s.cache.DeleteAll(ctx, sess.UserID); err != nil {
		errs = append(errs, err)
	}
	if err := s.queue.Clear(ctx, sess.UserID); err != nil {
		errs = append(errs, err)
	}
	if err := s.meta.Delete(ctx, metadata.PasswordHashKey(sess.UserID)); err != nil {
		errs = append(errs, err)
	}
	s.limiter.ResetOnSuccess(ctx, sess.UserID)
	if err := s.Logout(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return res, fmt.Errorf("account deleted remotely, local cleanup failed: %w", err)
	}
	return res, nil
}
