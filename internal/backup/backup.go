// Package backup builds portable snapshots of a user's logs and merges them
// back additively. Restoring the same snapshot twice has the effect of
// restoring it once.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/sanposhin/internal/auth"
	"github.com/dmitrijs2005/sanposhin/internal/common"
	"github.com/dmitrijs2005/sanposhin/internal/logging"
	"github.com/dmitrijs2005/sanposhin/internal/models"
)

// Version is the only snapshot format understood by Restore.
const Version = "1.0.0"

type Snapshot struct {
	Version   string            `json:"version"`
	UserID    string            `json:"userId"`
	CreatedAt string            `json:"createdAt"`
	Logs      []models.LogEntry `json:"logs"`
}

type RestoreResult struct {
	Applied int `json:"applied"`
	Skipped int `json:"skipped"`
}

// Store is the log store snapshots are taken from and restored into.
type Store interface {
	ListLogs(ctx context.Context, userID string) ([]models.LogEntry, error)
	CreateLog(ctx context.Context, userID string, entry models.LogEntry) (string, error)
	CountLogs(ctx context.Context, userID string) (int64, error)
	SetUserFields(ctx context.Context, userID string, fields models.UserFields) error
}

type Codec struct {
	store  Store
	logger logging.Logger
	now    func() time.Time
}

func NewCodec(store Store, logger logging.Logger) *Codec {
	return &Codec{store: store, logger: logger.With("module", "backup"), now: time.Now}
}

// CreateSnapshot captures every entry of userID without inline image data.
func (c *Codec) CreateSnapshot(ctx context.Context, userID string) (*Snapshot, error) {
	start := time.Now()

	logs, err := c.store.ListLogs(ctx, userID)
	if err != nil {
		backupOperationsTotal.WithLabelValues("backup", "error").Inc()
		backupDurationHistogram.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("error listing logs: %w", err)
	}

	portable := make([]models.LogEntry, 0, len(logs))
	for _, e := range logs {
		portable = append(portable, e.Portable())
	}

	backupOperationsTotal.WithLabelValues("backup", "success").Inc()
	backupDurationHistogram.WithLabelValues("success").Observe(time.Since(start).Seconds())

	return &Snapshot{
		Version:   Version,
		UserID:    userID,
		CreatedAt: models.FormatTime(c.now()),
		Logs:      portable,
	}, nil
}

// Encode writes snap as indented JSON.
func Encode(w io.Writer, snap *Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// Decode parses a snapshot and checks that version, userId and logs are
// all present.
func Decode(r io.Reader) (*Snapshot, error) {
	var raw struct {
		Version   *string            `json:"version"`
		UserID    *string            `json:"userId"`
		CreatedAt string             `json:"createdAt"`
		Logs      *[]models.LogEntry `json:"logs"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, common.InvalidInput("snapshot is not valid JSON: %v", err)
	}

	switch {
	case raw.Version == nil || *raw.Version == "":
		return nil, common.InvalidInput("snapshot version is missing")
	case raw.UserID == nil || *raw.UserID == "":
		return nil, common.InvalidInput("snapshot userId is missing")
	case raw.Logs == nil:
		return nil, common.InvalidInput("snapshot logs are missing")
	}

	return &Snapshot{
		Version:   *raw.Version,
		UserID:    *raw.UserID,
		CreatedAt: raw.CreatedAt,
		Logs:      *raw.Logs,
	}, nil
}

// Validate checks snap before anything is written on behalf of userID.
func Validate(snap *Snapshot, userID string) error {
	switch {
	case snap == nil:
		return common.InvalidInput("snapshot is missing")
	case snap.Logs == nil:
		return common.InvalidInput("snapshot logs are missing")
	case snap.UserID != userID:
		return common.InvalidInput("snapshot belongs to another user")
	case snap.Version != Version:
		return common.InvalidInput("unsupported snapshot version %q", snap.Version)
	}
	return nil
}

// Restore merges snap into userID's logs. Each entry is validated and
// normalized like a fresh save; entries that fail, or carry no parseable
// createdAt, are skipped. An entry is written only when no stored or already
// merged entry has the same canonical createdAt. The adventure
// total is then reset to the number of stored logs.
//
// Writes are not rolled back: on error the result still counts what was
// applied, and a retry with the same snapshot applies only the remainder.
func (c *Codec) Restore(ctx context.Context, userID string, snap *Snapshot) (RestoreResult, error) {
	var res RestoreResult
	start := time.Now()

	fail := func(err error) (RestoreResult, error) {
		backupOperationsTotal.WithLabelValues("restore", "error").Inc()
		restoreDurationHistogram.WithLabelValues("error").Observe(time.Since(start).Seconds())
		restoreAppliedTotal.Add(float64(res.Applied))
		return res, err
	}

	if err := Validate(snap, userID); err != nil {
		return fail(err)
	}

	existing, err := c.store.ListLogs(ctx, userID)
	if err != nil {
		return fail(fmt.Errorf("error listing logs: %w", err))
	}
	seen := make(map[string]struct{}, len(existing)+len(snap.Logs))
	for _, e := range existing {
		seen[canonicalTime(e.CreatedAt)] = struct{}{}
	}

	for _, e := range snap.Logs {
		if _, err := models.ParseTime(e.CreatedAt); err != nil {
			res.Skipped++
			continue
		}
		entry := e.Portable()
		entry.ID = ""
		entry.UserID = userID
		if err := auth.PrepareLogEntry(&entry, c.now()); err != nil {
			c.logger.Debug(ctx, "snapshot entry skipped", "user_id", userID, "created_at", e.CreatedAt, "error", err)
			res.Skipped++
			continue
		}
		if _, dup := seen[entry.CreatedAt]; dup {
			res.Skipped++
			continue
		}

		if _, err := c.store.CreateLog(ctx, userID, entry); err != nil {
			return fail(fmt.Errorf("error restoring log %s: %w", entry.CreatedAt, err))
		}
		seen[entry.CreatedAt] = struct{}{}
		res.Applied++
	}

	total, err := c.store.CountLogs(ctx, userID)
	if err != nil {
		return fail(fmt.Errorf("error counting logs: %w", err))
	}
	if err := c.store.SetUserFields(ctx, userID, models.UserFields{TotalAdventures: &total}); err != nil {
		return fail(fmt.Errorf("error updating adventures: %w", err))
	}

	backupOperationsTotal.WithLabelValues("restore", "success").Inc()
	restoreDurationHistogram.WithLabelValues("success").Observe(time.Since(start).Seconds())
	restoreAppliedTotal.Add(float64(res.Applied))

	c.logger.Info(ctx, "snapshot restored", "user_id", userID, "applied", res.Applied, "skipped", res.Skipped)
	return res, nil
}

// canonicalTime maps equal instants to the same key; unparseable values are
// kept as is so they still match themselves.
func canonicalTime(s string) string {
	t, err := models.ParseTime(s)
	if err != nil {
		return s
	}
	return models.FormatTime(t)
}
