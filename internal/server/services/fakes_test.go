package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/sanposhin/internal/common"
	"github.com/dmitrijs2005/sanposhin/internal/dbx"
	"github.com/dmitrijs2005/sanposhin/internal/logging"
	"github.com/dmitrijs2005/sanposhin/internal/models"
	"github.com/dmitrijs2005/sanposhin/internal/ratelimit"
	"github.com/dmitrijs2005/sanposhin/internal/server/config"
	"github.com/dmitrijs2005/sanposhin/internal/server/repositories/logs"
	"github.com/dmitrijs2005/sanposhin/internal/server/repositories/ratelimits"
	"github.com/dmitrijs2005/sanposhin/internal/server/repositories/users"
	"github.com/google/uuid"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

// newSQLMockDB returns a db whose transactions always begin and commit or
// roll back, in any order, so fakes can be driven through dbx.WithTx.
func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func expectTx(mock sqlmock.Sqlmock, n int, commit bool) {
	for i := 0; i < n; i++ {
		mock.ExpectBegin()
		if commit {
			mock.ExpectCommit()
		} else {
			mock.ExpectRollback()
		}
	}
}

type fakeUsersRepo struct {
	mu       sync.Mutex
	users    map[string]*models.User
	getErr   error
	setErr   error
	incErr   error
	incCalls int
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{users: map[string]*models.User{}}
}

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.UserID]; ok {
		return common.ErrConflict
	}
	cp := *u
	f.users[u.UserID] = &cp
	return nil
}

func (f *fakeUsersRepo) Get(_ context.Context, userID string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsersRepo) SetFields(_ context.Context, userID string, fields models.UserFields) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	u, ok := f.users[userID]
	if !ok {
		return common.ErrorNotFound
	}
	if fields.PasswordHash != nil {
		u.PasswordHash = *fields.PasswordHash
	}
	if fields.LastLoginAt != nil {
		t := *fields.LastLoginAt
		u.LastLoginAt = &t
	}
	if fields.TotalAdventures != nil {
		u.TotalAdventures = *fields.TotalAdventures
	}
	return nil
}

func (f *fakeUsersRepo) IncrementAdventures(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.incCalls++
	if f.incErr != nil {
		return 0, f.incErr
	}
	u, ok := f.users[userID]
	if !ok {
		return 0, common.ErrorNotFound
	}
	u.TotalAdventures++
	return u.TotalAdventures, nil
}

func (f *fakeUsersRepo) Delete(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[userID]; !ok {
		return common.ErrorNotFound
	}
	delete(f.users, userID)
	return nil
}

type fakeLogsRepo struct {
	mu        sync.Mutex
	entries   []models.LogEntry
	createErr error
	listErr   error
}

func (f *fakeLogsRepo) Create(_ context.Context, e *models.LogEntry) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return false, f.createErr
	}
	if e.ClientID != "" {
		for _, x := range f.entries {
			if x.UserID == e.UserID && x.ClientID == e.ClientID {
				e.ID = x.ID
				return false, nil
			}
		}
	}
	e.ID = uuid.NewString()
	f.entries = append(f.entries, *e)
	return true, nil
}

func (f *fakeLogsRepo) List(_ context.Context, userID string) ([]models.LogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.LogEntry
	for _, e := range f.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

func (f *fakeLogsRepo) Delete(_ context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, e := range f.entries {
		if e.UserID == userID && e.ID == id {
			f.entries = append(f.entries[:i], f.entries[i+1:]...)
			return nil
		}
	}
	return common.ErrorNotFound
}

func (f *fakeLogsRepo) DeleteAll(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.entries[:0]
	var n int64
	for _, e := range f.entries {
		if e.UserID == userID {
			n++
			continue
		}
		kept = append(kept, e)
	}
	f.entries = kept
	return n, nil
}

func (f *fakeLogsRepo) Count(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, e := range f.entries {
		if e.UserID == userID {
			n++
		}
	}
	return n, nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	l *fakeLogsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{u: newFakeUsersRepo(), l: &fakeLogsRepo{}}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository               { return m.u }
func (m *fakeRepoManager) Logs(dbx.DBTX) logs.Repository                 { return m.l }
func (m *fakeRepoManager) RateLimits(db dbx.DBTX) *ratelimits.PostgresRepository {
	return ratelimits.NewPostgresRepository(db)
}

type fakeImages struct {
	deleted, failed int
	err             error
	calls           []string
}

func (f *fakeImages) DeleteAll(_ context.Context, userID string) (int, int, error) {
	f.calls = append(f.calls, userID)
	return f.deleted, f.failed, f.err
}

func testConfig() *config.Config {
	return &config.Config{SecretKey: "k", AccessTokenValidityDuration: time.Hour}
}

func testLimiters() Limiters {
	return NewLimiters(ratelimit.NewMemoryStore(), logging.Nop())
}
