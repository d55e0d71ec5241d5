package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sanposhin/internal/auth"
	"github.com/dmitrijs2005/sanposhin/internal/common"
	"github.com/dmitrijs2005/sanposhin/internal/logging"
	"github.com/dmitrijs2005/sanposhin/internal/models"
	"github.com/dmitrijs2005/sanposhin/internal/ratelimit"
	jwtauth "github.com/dmitrijs2005/sanposhin/internal/server/auth"
	"github.com/dmitrijs2005/sanposhin/internal/server/config"
)

// ImageCleaner removes every stored image of a user.
type ImageCleaner interface {
	DeleteAll(ctx context.Context, userID string) (deleted, failed int, err error)
}

// Limiters groups the per-endpoint limiters of the API.
type Limiters struct {
	Signup *ratelimit.Limiter
	Login  *ratelimit.Limiter
	Save   *ratelimit.Limiter
}

// NewLimiters builds the API limiters over one shared store.
func NewLimiters(store ratelimit.Store, logger logging.Logger) Limiters {
	return Limiters{
		Signup: ratelimit.New(ratelimit.SignupPolicy, store, logger),
		Login:  ratelimit.New(ratelimit.LoginPolicy, store, logger),
		Save:   ratelimit.New(ratelimit.SavePolicy, store, logger),
	}
}

type LoginResult struct {
	Token string
	Logs  []models.LogEntry
}

type DeleteAccountResult struct {
	DeletedLogs   int64
	DeletedImages int
}

type UserService struct {
	store                       *Store
	images                      ImageCleaner
	limiters                    Limiters
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
	logger                      logging.Logger
	now                         func() time.Time
}

func NewUserService(store *Store, images ImageCleaner, limiters Limiters, cfg *config.Config, logger logging.Logger) *UserService {
	return &UserService{
		store:                       store,
		images:                      images,
		limiters:                    limiters,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
		logger:                      logger.With("module", "users"),
		now:                         time.Now,
	}
}

func denied(d ratelimit.Decision) error {
	return &common.RateLimitError{RetryAt: d.RetryAt}
}

// Signup registers userID. Every attempt from ip counts against the signup
// policy, successful or not.
func (s *UserService) Signup(ctx context.Context, ip, userID, password string) error {
	if err := auth.ValidateUserID(userID); err != nil {
		return err
	}
	if err := auth.ValidatePassword(password); err != nil {
		return err
	}

	now := s.now()
	if d := s.limiters.Signup.CheckLimit(ctx, ip, now); !d.Allowed {
		return denied(d)
	}
	s.limiters.Signup.RegisterAttempt(ctx, ip, now)

	_, err := s.store.GetUser(ctx, userID)
	switch {
	case err == nil:
		return common.ErrConflict
	case !errors.Is(err, common.ErrorNotFound):
		return fmt.Errorf("error looking up user: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		UserID:       userID,
		PasswordHash: hash,
		CreatedAt:    now,
		LastLoginAt:  &now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return err
		}
		return fmt.Errorf("error creating user: %w", err)
	}

	s.logger.Info(ctx, "user signed up", "user_id", userID)
	return nil
}

// Login checks the password and returns an access token together with the
// user's logs. Failures are counted per ip and user id pair.
func (s *UserService) Login(ctx context.Context, ip, userID, password string) (*LoginResult, error) {
	if err := auth.ValidateUserID(userID); err != nil {
		return nil, err
	}
	if err := auth.ValidatePassword(password); err != nil {
		return nil, err
	}

	identity := ip + ":" + userID
	now := s.now()
	if d := s.limiters.Login.CheckLimit(ctx, identity, now); !d.Allowed {
		return nil, denied(d)
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.limiters.Login.RegisterFailure(ctx, identity, now)
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error looking up user: %w", err)
	}

	if !auth.VerifyPassword(password, user.PasswordHash) {
		s.limiters.Login.RegisterFailure(ctx, identity, now)
		return nil, common.ErrInvalidCredentials
	}
	s.limiters.Login.ResetOnSuccess(ctx, identity)

	if err := s.store.SetUserFields(ctx, userID, models.UserFields{LastLoginAt: &now}); err != nil {
		s.logger.Warn(ctx, "failed to record last login", "user_id", userID, "error", err)
	}

	token, err := jwtauth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}

	logs, err := s.store.ListLogs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing logs: %w", err)
	}

	return &LoginResult{Token: token, Logs: logs}, nil
}

// ResetPassword replaces the stored hash with that of a fresh password and
// returns the plaintext. It is the only time the plaintext is visible.
func (s *UserService) ResetPassword(ctx context.Context, userID string) (string, error) {
	password, err := auth.GeneratePassword()
	if err != nil {
		return "", fmt.Errorf("error generating password: %w", err)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("error hashing password: %w", err)
	}

	if err := s.store.SetUserFields(ctx, userID, models.UserFields{PasswordHash: &hash}); err != nil {
		return "", err
	}

	s.logger.Info(ctx, "password reset", "user_id", userID)
	return password, nil
}

// DeleteAccount removes images, then logs, then the user. Image storage
// failures are logged and do not block the rest.
func (s *UserService) DeleteAccount(ctx context.Context, userID string) (*DeleteAccountResult, error) {
	res := &DeleteAccountResult{}

	if s.images != nil {
		deleted, failed, err := s.images.DeleteAll(ctx, userID)
		if err != nil || failed > 0 {
			s.logger.Warn(ctx, "image cleanup incomplete", "user_id", userID, "failed", failed, "error", err)
		}
		res.DeletedImages = deleted
	}

	n, err := s.store.DeleteAllLogs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error deleting logs: %w", err)
	}
	res.DeletedLogs = n

	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "account deleted", "user_id", userID, "logs", n, "images", res.DeletedImages)
	return res, nil
}

// Authenticate resolves an access token to its user id.
func (s *UserService) Authenticate(token string) (string, error) {
	return jwtauth.GetUserIDFromToken(token, s.jwtSecret)
}
