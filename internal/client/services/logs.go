package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/sanposhin/internal/auth"
	"github.com/dmitrijs2005/sanposhin/internal/client/client"
	"github.com/dmitrijs2005/sanposhin/internal/client/queue"
	"github.com/dmitrijs2005/sanposhin/internal/client/repositories/logs"
	"github.com/dmitrijs2005/sanposhin/internal/common"
	"github.com/dmitrijs2005/sanposhin/internal/logging"
	"github.com/dmitrijs2005/sanposhin/internal/models"
)

type LogsRemote interface {
	SaveLog(ctx context.Context, entry models.LogEntry) (string, error)
	ListLogs(ctx context.Context, userID string) ([]models.LogEntry, error)
	DeleteLog(ctx context.Context, userID, logID string) error
	DeleteAllLogs(ctx context.Context, userID string) (int64, error)
	Presign(ctx context.Context, userID string) (client.PresignedUpload, error)
	Upload(ctx context.Context, uploadURL string, data []byte, contentType string) error
	DeleteImages(ctx context.Context, userID string) (deleted, failed int, err error)
}

type Connectivity interface {
	Online() bool
}

// SaveResult tells the caller whether the entry reached the server or is
// waiting in the queue.
type SaveResult struct {
	Entry  models.LogEntry
	Queued bool
}

// ListResult marks listings served from the local cache.
type ListResult struct {
	Logs   []models.LogEntry
	Cached bool
}

type LogService struct {
	remote LogsRemote
	cache  logs.Repository
	queue  *queue.Queue
	online Connectivity
	logger logging.Logger
	now    func() time.Time
}

func NewLogService(remote LogsRemote, cache logs.Repository, q *queue.Queue, online Connectivity, logger logging.Logger) *LogService {
	return &LogService{
		remote: remote,
		cache:  cache,
		queue:  q,
		online: online,
		logger: logger.With("module", "log_service"),
		now:    time.Now,
	}
}

// Save writes entry locally first and then tries the server. Without
// connectivity the entry is queued for the sync engine. Errors other than
// unavailability are final: the local copy is dropped and the error
// returned.
func (s *LogService) Save(ctx context.Context, entry models.LogEntry) (SaveResult, error) {
	if entry.ClientID == "" {
		entry.ClientID = uuid.NewString()
	}
	if err := auth.PrepareLogEntry(&entry, s.now()); err != nil {
		return SaveResult{}, err
	}
	entry.ID = ""
	if entry.ImageData != "" {
		if _, _, err := DecodeImageData(entry.ImageData); err != nil {
			return SaveResult{}, err
		}
	}

	if err := s.cache.Upsert(ctx, entry); err != nil {
		return SaveResult{}, err
	}

	if !s.online.Online() {
		return s.enqueue(ctx, entry)
	}

	saved, err := s.CreateLog(ctx, entry)
	switch {
	case err == nil:
		if err := s.cache.Upsert(ctx, saved); err != nil {
			s.logger.Warn(ctx, "cache update after save failed", "client_id", saved.ClientID, "error", err)
		}
		return SaveResult{Entry: saved}, nil
	case errors.Is(err, common.ErrUnavailable):
		return s.enqueue(ctx, entry)
	default:
		if derr := s.cache.DeleteLocal(ctx, entry.ClientID); derr != nil {
			s.logger.Warn(ctx, "dropping rejected entry failed", "client_id", entry.ClientID, "error", derr)
		}
		return SaveResult{}, err
	}
}

func (s *LogService) enqueue(ctx context.Context, entry models.LogEntry) (SaveResult, error) {
	if _, err := s.queue.Enqueue(ctx, entry); err != nil {
		return SaveResult{}, err
	}
	s.logger.Info(ctx, "log queued for sync", "user_id", entry.UserID, "client_id", entry.ClientID)
	return SaveResult{Entry: entry, Queued: true}, nil
}

// CreateLog uploads any inline image and stores entry remotely. It is also
// the delivery step of the sync engine.
func (s *LogService) CreateLog(ctx context.Context, entry models.LogEntry) (models.LogEntry, error) {
	if entry.ImageData != "" && entry.ImageURL == "" {
		url, err := s.uploadImage(ctx, entry.UserID, entry.ImageData)
		switch {
		case err == nil:
			entry.ImageURL = url
			entry.NormalizeImage()
		case errors.Is(err, common.ErrUnavailable), errors.Is(err, context.Canceled):
			return models.LogEntry{}, err
		default:
			// the entry still carries its image inline
			s.logger.Warn(ctx, "image upload failed, saving inline", "client_id", entry.ClientID, "error", err)
		}
	}

	id, err := s.remote.SaveLog(ctx, entry)
	if err != nil {
		return models.LogEntry{}, err
	}
	entry.ID = id
	return entry, nil
}

func (s *LogService) uploadImage(ctx context.Context, userID, data string) (string, error) {
	raw, contentType, err := DecodeImageData(data)
	if err != nil {
		return "", err
	}
	slot, err := s.remote.Presign(ctx, userID)
	if err != nil {
		return "", err
	}
	if err := s.remote.Upload(ctx, slot.UploadURL, raw, contentType); err != nil {
		return "", err
	}
	return slot.ImageURL, nil
}

// List prefers the server and refreshes the cache from it. When the server
// is unreachable the cached entries, including unsynced ones, are returned.
func (s *LogService) List(ctx context.Context, userID string) (ListResult, error) {
	cached := true
	if s.online.Online() {
		remote, err := s.remote.ListLogs(ctx, userID)
		switch {
		case err == nil:
			cached = false
			if err := s.cache.ReplaceRemote(ctx, userID, remote); err != nil {
				s.logger.Warn(ctx, "log cache refresh failed", "user_id", userID, "error", err)
				return ListResult{Logs: remote}, nil
			}
		case errors.Is(err, common.ErrUnavailable):
			s.logger.Debug(ctx, "listing from cache", "user_id", userID, "error", err)
		default:
			return ListResult{}, err
		}
	}

	entries, err := s.cache.List(ctx, userID)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Logs: entries, Cached: cached}, nil
}

// Delete removes a log by its remote id, or an unsynced one by client id.
func (s *LogService) Delete(ctx context.Context, userID, id string) error {
	if cached, err := s.cache.Get(ctx, id); err == nil && cached.ID == "" {
		if cached.UserID != userID {
			return common.ErrorNotFound
		}
		if err := s.queue.Remove(ctx, userID, id); err != nil {
			return err
		}
		return s.cache.DeleteLocal(ctx, id)
	}

	if err := s.remote.DeleteLog(ctx, userID, id); err != nil {
		return err
	}
	return s.cache.DeleteByRemoteID(ctx, userID, id)
}

// DeleteAll wipes the user's logs remotely and locally, pending ones
// included.
func (s *LogService) DeleteAll(ctx context.Context, userID string) (int64, error) {
	n, err := s.remote.DeleteAllLogs(ctx, userID)
	if err != nil {
		return 0, err
	}
	if _, err := s.cache.DeleteAll(ctx, userID); err != nil {
		return n, fmt.Errorf("clear log cache: %w", err)
	}
	if err := s.queue.Clear(ctx, userID); err != nil {
		return n, fmt.Errorf("clear queue: %w", err)
	}
	return n, nil
}

func (s *LogService) DeleteImages(ctx context.Context, userID string) (deleted, failed int, err error) {
	return s.remote.DeleteImages(ctx, userID)
}

// DecodeImageData accepts a data URL or bare base64 and returns the bytes
// with their content type.
func DecodeImageData(data string) ([]byte, string, error) {
	contentType := "image/jpeg"
	payload := data
	if rest, ok := strings.CutPrefix(data, "data:"); ok {
		meta, b64, found := strings.Cut(rest, ",")
		if !found || !strings.HasSuffix(meta, ";base64") {
			return nil, "", common.InvalidInput("image data must be base64")
		}
		if ct := strings.TrimSuffix(meta, ";base64"); ct != "" {
			contentType = ct
		}
		payload = b64
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", common.InvalidInput("image data is not valid base64")
	}
	return raw, contentType, nil
}
