package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmitrijs2005/sanposhin/internal/backup"
	"github.com/dmitrijs2005/sanposhin/internal/common"
	"github.com/dmitrijs2005/sanposhin/internal/logging"
	"github.com/dmitrijs2005/sanposhin/internal/models"
	"github.com/dmitrijs2005/sanposhin/internal/server/services"
	"github.com/stretchr/testify/require"
)

const (
	aliceToken = "alice-token"
	bobToken   = "bob-token"
)

type fakeUsers struct {
	signupIP  string
	signupErr error
	loginIP   string
	loginRes  *services.LoginResult
	loginErr  error
	resetPw   string
	deleteRes *services.DeleteAccountResult
	deleted   string
}

func (f *fakeUsers) Signup(_ context.Context, ip, _, _ string) error {
	f.signupIP = ip
	return f.signupErr
}

func (f *fakeUsers) Login(_ context.Context, ip, _, _ string) (*services.LoginResult, error) {
	f.loginIP = ip
	return f.loginRes, f.loginErr
}

func (f *fakeUsers) ResetPassword(context.Context, string) (string, error) {
	return f.resetPw, nil
}

func (f *fakeUsers) DeleteAccount(_ context.Context, userID string) (*services.DeleteAccountResult, error) {
	f.deleted = userID
	return f.deleteRes, nil
}

func (f *fakeUsers) Authenticate(token string) (string, error) {
	switch token {
	case aliceToken:
		return "alice", nil
	case bobToken:
		return "bob", nil
	}
	return "", common.ErrInvalidToken
}

type fakeLogs struct {
	saved     []models.LogEntry
	saveErr   error
	list      []models.LogEntry
	deletedID string
	deleteErr error
	cleared   int64
}

func (f *fakeLogs) Save(_ context.Context, e models.LogEntry) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	f.saved = append(f.saved, e)
	return "log-1", nil
}

func (f *fakeLogs) List(context.Context, string) ([]models.LogEntry, error) {
	return f.list, nil
}

func (f *fakeLogs) Delete(_ context.Context, _, id string) error {
	f.deletedID = id
	return f.deleteErr
}

func (f *fakeLogs) DeleteAll(context.Context, string) (int64, error) {
	return f.cleared, nil
}

type fakeImages struct {
	deleted, failed int
}

func (f *fakeImages) Presign(_ context.Context, userID string) (*services.PresignedUpload, error) {
	return &services.PresignedUpload{
		UploadURL: "http://s3/upload?sig=1",
		ImageURL:  "http://s3/users/" + userID + "/k",
		Key:       "users/" + userID + "/k",
	}, nil
}

func (f *fakeImages) DeleteAll(context.Context, string) (int, int, error) {
	return f.deleted, f.failed, nil
}

type fakeMissions struct {
	got models.MissionContext
}

func (f *fakeMissions) Generate(_ context.Context, mc models.MissionContext) models.Mission {
	f.got = mc
	return models.Mission{ID: "fallback_1", Text: "Look up", Category: models.CategoryObserve, Difficulty: 1, Source: models.MissionSourceFallback}
}

type fakeBackups struct {
	snap       *backup.Snapshot
	restored   *backup.Snapshot
	restoreRes backup.RestoreResult
	restoreErr error
}

func (f *fakeBackups) CreateSnapshot(context.Context, string) (*backup.Snapshot, error) {
	return f.snap, nil
}

func (f *fakeBackups) Restore(_ context.Context, _ string, snap *backup.Snapshot) (backup.RestoreResult, error) {
	f.restored = snap
	return f.restoreRes, f.restoreErr
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type harness struct {
	users    *fakeUsers
	logs     *fakeLogs
	images   *fakeImages
	missions *fakeMissions
	backups  *fakeBackups
	health   *fakePinger
	handler  http.Handler
}

func newHarness() *harness {
	h := &harness{
		users:    &fakeUsers{},
		logs:     &fakeLogs{},
		images:   &fakeImages{},
		missions: &fakeMissions{},
		backups:  &fakeBackups{},
		health:   &fakePinger{},
	}
	s := NewServer(":0", Deps{
		Users:    h.users,
		Logs:     h.logs,
		Images:   h.images,
		Missions: h.missions,
		Backups:  h.backups,
		Health:   h.health,
	}, logging.Nop())
	h.handler = s.Handler()
	return h
}

type request struct {
	method string
	path   string
	body   any
	token  string
	header map[string]string
}

func (h *harness) do(t *testing.T, req request) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader = http.NoBody
	switch b := req.body.(type) {
	case nil:
	case string:
		body = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	r := httptest.NewRequest(req.method, req.path, body)
	r.Header.Set("Content-Type", "application/json")
	if req.token != "" {
		r.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+req.token)
	}
	for k, v := range req.header {
		r.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, r)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}
