package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/sanposhin/internal/backup"
	"github.com/dmitrijs2005/sanposhin/internal/client/client"
	"github.com/dmitrijs2005/sanposhin/internal/client/queue"
	"github.com/dmitrijs2005/sanposhin/internal/client/repositories/logs"
	"github.com/dmitrijs2005/sanposhin/internal/client/repositories/metadata"
	queuerepo "github.com/dmitrijs2005/sanposhin/internal/client/repositories/queue"
	"github.com/dmitrijs2005/sanposhin/internal/logging"
	"github.com/dmitrijs2005/sanposhin/internal/models"
)

type switchOnline struct{ v atomic.Bool }

func (s *switchOnline) Online() bool { return s.v.Load() }
func (s *switchOnline) set(v bool)   { s.v.Store(v) }

// fakeRemote is an in-memory server. Errors preset on it are returned by
// the matching call.
type fakeRemote struct {
	mu sync.Mutex

	token    string
	password map[string]string
	logs     map[string][]models.LogEntry
	uploads  map[string][]byte

	SignupErr   error
	LoginErr    error
	SaveErr     error
	ListErr     error
	DeleteErr   error
	PresignErr  error
	UploadErr   error
	BackupErr   error
	RestoreErr  error
	RestoreRes  backup.RestoreResult
	ResetRet    string
	DeletionRet client.AccountDeletion

	SaveCalls    int
	RestoreCalls int
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		password: map[string]string{},
		logs:     map[string][]models.LogEntry{},
		uploads:  map[string][]byte{},
	}
}

func (f *fakeRemote) SetToken(token string) {
	f.mu.Lock()
	f.token = token
	f.mu.Unlock()
}

func (f *fakeRemote) Signup(_ context.Context, userID, password string) error {
	if f.SignupErr != nil {
		return f.SignupErr
	}
	f.mu.Lock()
	f.password[userID] = password
	f.mu.Unlock()
	return nil
}

func (f *fakeRemote) Login(_ context.Context, userID, password string) (string, []models.LogEntry, error) {
	if f.LoginErr != nil {
		return "", nil, f.LoginErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return "token-" + userID, append([]models.LogEntry(nil), f.logs[userID]...), nil
}

func (f *fakeRemote) ResetPassword(context.Context, string) (string, error) {
	return f.ResetRet, nil
}

func (f *fakeRemote) DeleteAccount(_ context.Context, userID string) (client.AccountDeletion, error) {
	f.mu.Lock()
	delete(f.logs, userID)
	f.mu.Unlock()
	return f.DeletionRet, nil
}

func (f *fakeRemote) SaveLog(_ context.Context, e models.LogEntry) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SaveCalls++
	if f.SaveErr != nil {
		return "", f.SaveErr
	}
	e.ID = fmt.Sprintf("00000000-0000-0000-0000-%012d", f.SaveCalls)
	f.logs[e.UserID] = append([]models.LogEntry{e}, f.logs[e.UserID]...)
	return e.ID, nil
}

func (f *fakeRemote) ListLogs(_ context.Context, userID string) ([]models.LogEntry, error) {
	if f.ListErr != nil {
		return nil, f.ListErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.LogEntry{}, f.logs[userID]...), nil
}

func (f *fakeRemote) DeleteLog(_ context.Context, userID, id string) error {
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.logs[userID][:0]
	for _, e := range f.logs[userID] {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	f.logs[userID] = kept
	return nil
}

func (f *fakeRemote) DeleteAllLogs(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.logs[userID])
	delete(f.logs, userID)
	return int64(n), nil
}

func (f *fakeRemote) Presign(_ context.Context, userID string) (client.PresignedUpload, error) {
	if f.PresignErr != nil {
		return client.PresignedUpload{}, f.PresignErr
	}
	return client.PresignedUpload{
		UploadURL: "https://s3.test/put/" + userID,
		ImageURL:  "https://s3.test/images/" + userID + "/1.jpg",
		Key:       "images/" + userID + "/1.jpg",
	}, nil
}

func (f *fakeRemote) Upload(_ context.Context, url string, data []byte, _ string) error {
	if f.UploadErr != nil {
		return f.UploadErr
	}
	f.mu.Lock()
	f.uploads[url] = data
	f.mu.Unlock()
	return nil
}

func (f *fakeRemote) DeleteImages(context.Context, string) (int, int, error) {
	return 2, 0, nil
}

func (f *fakeRemote) Backup(_ context.Context, userID string) (*backup.Snapshot, error) {
	if f.BackupErr != nil {
		return nil, f.BackupErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return &backup.Snapshot{Version: backup.Version, UserID: userID, Logs: append([]models.LogEntry{}, f.logs[userID]...)}, nil
}

func (f *fakeRemote) Restore(context.Context, string, *backup.Snapshot) (backup.RestoreResult, error) {
	f.RestoreCalls++
	return f.RestoreRes, f.RestoreErr
}

type env struct {
	db     *sql.DB
	remote *fakeRemote
	online *switchOnline
	meta   *metadata.SQLiteRepository
	cache  *logs.SQLiteRepository
	queue  *queue.Queue
	auth   *AuthService
	logs   *LogService
	backup *BackupService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db, err := client.OpenDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	e := &env{
		db:     db,
		remote: newFakeRemote(),
		online: &switchOnline{},
		meta:   metadata.NewSQLiteRepository(db),
		cache:  logs.NewSQLiteRepository(db),
		queue:  queue.New(queuerepo.NewSQLiteRepository(db), logging.Nop()),
	}
	e.online.set(true)
	e.auth = NewAuthService(e.remote, e.meta, e.cache, e.queue, logging.Nop())
	e.logs = NewLogService(e.remote, e.cache, e.queue, e.online, logging.Nop())
	e.backup = NewBackupService(e.remote, e.meta, e.cache, logging.Nop())
	return e
}

func newEntry() models.LogEntry {
	return models.LogEntry{
		UserID:      "alice",
		MissionID:   "m-1",
		MissionText: "Photograph something blue",
		Memo:        "a blue door",
		Status:      models.StatusCompleted,
	}
}
