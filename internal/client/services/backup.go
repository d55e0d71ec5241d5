package services

import (
	"context"
	"io"
	"time"

	"github.com/dmitrijs2005/sanposhin/internal/auth"
	"github.com/dmitrijs2005/sanposhin/internal/backup"
	"github.com/dmitrijs2005/sanposhin/internal/client/repositories/logs"
	"github.com/dmitrijs2005/sanposhin/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/sanposhin/internal/common"
	"github.com/dmitrijs2005/sanposhin/internal/logging"
	"github.com/dmitrijs2005/sanposhin/internal/models"
	"github.com/dmitrijs2005/sanposhin/internal/ratelimit"
)

type BackupRemote interface {
	Backup(ctx context.Context, userID string) (*backup.Snapshot, error)
	Restore(ctx context.Context, userID string, snap *backup.Snapshot) (backup.RestoreResult, error)
	ListLogs(ctx context.Context, userID string) ([]models.LogEntry, error)
}

// BackupService exports snapshots and restores them. A restore must be
// confirmed with the user's id and password; wrong confirmations count
// towards a device-local lockout (3 per hour, then locked for an hour)
// that survives restarts.
type BackupService struct {
	remote  BackupRemote
	meta    metadata.Repository
	cache   logs.Repository
	limiter *ratelimit.Limiter
	logger  logging.Logger
	now     func() time.Time
}

func NewBackupService(remote BackupRemote, meta metadata.Repository, cache logs.Repository, logger logging.Logger) *BackupService {
	return &BackupService{
		remote:  remote,
		meta:    meta,
		cache:   cache,
		limiter: ratelimit.New(ratelimit.RestorePolicy, metadata.NewRateLimitStore(meta), logger),
		logger:  logger.With("module", "backup_service"),
		now:     time.Now,
	}
}

// Export writes the user's snapshot to w.
func (s *BackupService) Export(ctx context.Context, userID string, w io.Writer) (*backup.Snapshot, error) {
	snap, err := s.remote.Backup(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := backup.Encode(w, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// confirm checks a restore confirmation against the signed-in user and the
// password hash cached at login.
func (s *BackupService) confirm(ctx context.Context, userID, confirmUserID, password string, now time.Time) error {
	hash, err := s.meta.Get(ctx, metadata.PasswordHashKey(userID))
	if err != nil {
		return err
	}
	if hash == nil {
		// no login on this device since the hash was cleared
		return common.ErrorUnauthorized
	}
	if confirmUserID != userID || !auth.VerifyPassword(password, string(hash)) {
		s.limiter.RegisterFailure(ctx, userID, now)
		return common.ErrInvalidCredentials
	}
	return nil
}

// Restore reads a snapshot from r, checks it locally and sends it to the
// server, then refreshes the local cache. confirmUserID and password must
// match the signed-in user. On failure the result still counts the entries
// already applied; running the same restore again applies only the rest.
func (s *BackupService) Restore(ctx context.Context, userID, confirmUserID, password string, r io.Reader) (backup.RestoreResult, error) {
	now := s.now()
	if d := s.limiter.CheckLimit(ctx, userID, now); !d.Allowed {
		return backup.RestoreResult{}, &common.RateLimitError{RetryAt: d.RetryAt}
	}
	if err := s.confirm(ctx, userID, confirmUserID, password, now); err != nil {
		return backup.RestoreResult{}, err
	}
	s.limiter.ResetOnSuccess(ctx, userID)

	snap, err := backup.Decode(r)
	if err != nil {
		return backup.RestoreResult{}, err
	}
	if err := backup.Validate(snap, userID); err != nil {
		return backup.RestoreResult{}, err
	}

	// Unavailable is returned as is rather than queued: the merge skips
	// entries already present, so running the restore again is safe.
	res, err := s.remote.Restore(ctx, userID, snap)
	if err != nil {
		return res, err
	}
	s.logger.Info(ctx, "snapshot restored", "user_id", userID, "applied", res.Applied, "skipped", res.Skipped)

	fresh, err := s.remote.ListLogs(ctx, userID)
	if err == nil {
		err = s.cache.ReplaceRemote(ctx, userID, fresh)
	}
	if err != nil {
		// the cache catches up on the next list
		s.logger.Warn(ctx, "cache refresh after restore failed", "user_id", userID, "error", err)
	}
	return res, nil
}
