package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/sanposhin/internal/logging"
	"github.com/google/uuid"
)

// PresignExpiry bounds how long an upload URL stays valid.
const PresignExpiry = 15 * time.Minute

// ObjectStore is the object storage used for log images.
type ObjectStore interface {
	PresignPut(ctx context.Context, key string, expires time.Duration) (string, error)
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	DeleteKeys(ctx context.Context, keys []string) (deleted, failed int, err error)
	// PublicURL is where key can be fetched after upload.
	PublicURL(key string) string
}

type PresignedUpload struct {
	UploadURL string
	ImageURL  string
	Key       string
}

type ImageService struct {
	objects ObjectStore
	logger  logging.Logger
	now     func() time.Time
}

func NewImageService(objects ObjectStore, logger logging.Logger) *ImageService {
	return &ImageService{
		objects: objects,
		logger:  logger.With("module", "images"),
		now:     time.Now,
	}
}

// UserPrefix is the storage prefix owning every image of userID.
func UserPrefix(userID string) string {
	return "users/" + userID + "/"
}

// StorageKey returns a fresh key users/<userID>/<y>/<m>/<d>/<uuid>.
func StorageKey(userID string, t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s%d/%02d/%02d/%s", UserPrefix(userID), t.Year(), t.Month(), t.Day(), uuid.New())
}

// Presign returns a presigned PUT for a new image of userID.
func (s *ImageService) Presign(ctx context.Context, userID string) (*PresignedUpload, error) {
	key := StorageKey(userID, s.now())

	url, err := s.objects.PresignPut(ctx, key, PresignExpiry)
	if err != nil {
		return nil, fmt.Errorf("error presigning upload: %w", err)
	}

	return &PresignedUpload{UploadURL: url, ImageURL: s.objects.PublicURL(key), Key: key}, nil
}

// DeleteAll removes everything under the user's prefix.
func (s *ImageService) DeleteAll(ctx context.Context, userID string) (int, int, error) {
	prefix := UserPrefix(userID)
	if strings.Count(prefix, "/") != 2 || userID == "" {
		return 0, 0, fmt.Errorf("refusing to delete prefix %q", prefix)
	}

	keys, err := s.objects.ListKeys(ctx, prefix)
	if err != nil {
		return 0, 0, fmt.Errorf("error listing images: %w", err)
	}
	if len(keys) == 0 {
		return 0, 0, nil
	}

	deleted, failed, err := s.objects.DeleteKeys(ctx, keys)
	if err != nil {
		return deleted, failed, fmt.Errorf("error deleting images: %w", err)
	}

	s.logger.Info(ctx, "images deleted", "user_id", userID, "deleted", deleted, "failed", failed)
	return deleted, failed, nil
}
