package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/sanposhin/internal/backup"
	"github.com/dmitrijs2005/sanposhin/internal/common"
	"github.com/dmitrijs2005/sanposhin/internal/models"
)

type captured struct {
	method string
	path   string
	query  string
	auth   string
	body   map[string]any
}

func newServer(t *testing.T, status int, resp string) (*HTTPClient, *captured) {
	t.Helper()
	got := &captured{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.Path
		got.query = r.URL.RawQuery
		got.auth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &got.body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, resp)
	}))
	t.Cleanup(ts.Close)
	return NewHTTPClient(ts.URL+"/", time.Second), got
}

func TestLogin(t *testing.T) {
	c, got := newServer(t, http.StatusOK, `{"ok":true,"token":"tok","logs":[{"id":"l1","userId":"alice","missionText":"m","status":"completed","createdAt":"2024-01-01T00:00:00.000Z"}]}`)

	token, logs, err := c.Login(context.Background(), "alice", "1234567")
	require.NoError(t, err)
	assert.Equal(t, "tok", token)
	require.Len(t, logs, 1)
	assert.Equal(t, "l1", logs[0].ID)

	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/auth/login", got.path)
	assert.Equal(t, "alice", got.body["userId"])
	assert.Equal(t, "1234567", got.body["password"])
	assert.Empty(t, got.auth)
}

func TestBearerToken(t *testing.T) {
	c, got := newServer(t, http.StatusOK, `{"ok":true,"logs":[]}`)
	c.SetToken("abc")

	logs, err := c.ListLogs(context.Background(), "alice")
	require.NoError(t, err)
	assert.NotNil(t, logs)
	assert.Equal(t, "Bearer abc", got.auth)
	assert.Equal(t, "/logs", got.path)
	assert.Equal(t, "userId=alice", got.query)
}

func TestSaveAndDelete(t *testing.T) {
	c, got := newServer(t, http.StatusOK, `{"ok":true,"logId":"new-id","deleted":3}`)
	ctx := context.Background()

	id, err := c.SaveLog(ctx, models.LogEntry{ClientID: "c1", UserID: "alice", MissionText: "m"})
	require.NoError(t, err)
	assert.Equal(t, "new-id", id)
	assert.Equal(t, "/logs/save", got.path)
	assert.Equal(t, "c1", got.body["clientId"])

	require.NoError(t, c.DeleteLog(ctx, "alice", "l/1"))
	assert.Equal(t, http.MethodDelete, got.method)
	assert.Equal(t, "/logs/l/1", got.path)

	n, err := c.DeleteAllLogs(ctx, "alice")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestMission(t *testing.T) {
	c, got := newServer(t, http.StatusOK, `{"ok":true,"id":"m-1","text":"Find a bench","category":"observe","difficulty":2,"source":"fallback"}`)

	m, err := c.Mission(context.Background(), models.MissionContext{TimeOfDay: "evening"})
	require.NoError(t, err)
	assert.Equal(t, "Find a bench", m.Text)
	assert.Equal(t, models.CategoryObserve, m.Category)
	ctxBody, _ := got.body["context"].(map[string]any)
	assert.Equal(t, "evening", ctxBody["timeOfDay"])
}

func TestBackupAndRestore(t *testing.T) {
	c, _ := newServer(t, http.StatusOK, `{"version":"1.0.0","userId":"alice","createdAt":"2024-01-01T00:00:00.000Z","logs":[]}`)
	snap, err := c.Backup(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, backup.Version, snap.Version)

	c, got := newServer(t, http.StatusOK, `{"ok":true,"applied":2,"skipped":1}`)
	res, err := c.Restore(context.Background(), "alice", snap)
	require.NoError(t, err)
	assert.Equal(t, backup.RestoreResult{Applied: 2, Skipped: 1}, res)
	inner, _ := got.body["snapshot"].(map[string]any)
	assert.Equal(t, "alice", inner["userId"])
}

func TestRestoreFailureKeepsApplied(t *testing.T) {
	c, _ := newServer(t, http.StatusServiceUnavailable, `{"ok":false,"code":"UNAVAILABLE","message":"service unavailable","applied":4}`)

	res, err := c.Restore(context.Background(), "alice", &backup.Snapshot{Version: backup.Version, UserID: "alice", Logs: []models.LogEntry{}})
	require.ErrorIs(t, err, common.ErrUnavailable)
	assert.Equal(t, 4, res.Applied)
}

func TestBackupMalformedSnapshot(t *testing.T) {
	c, _ := newServer(t, http.StatusOK, `{"userId":"alice"}`)
	_, err := c.Backup(context.Background(), "alice")
	assert.ErrorIs(t, err, common.ErrServerFault)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"input", 400, `{"code":"INVALID_INPUT","message":"memo too long"}`, common.ErrInvalidInput},
		{"credentials", 401, `{"code":"INVALID_CREDENTIALS"}`, common.ErrInvalidCredentials},
		{"unauthorized", 401, `{"code":"UNAUTHORIZED"}`, common.ErrorUnauthorized},
		{"not found", 404, `{"code":"NOT_FOUND"}`, common.ErrorNotFound},
		{"exists", 409, `{"code":"USER_EXISTS"}`, common.ErrConflict},
		{"rate", 429, `{"code":"RATE_LIMIT"}`, common.ErrRateLimited},
		{"unavailable", 503, `{"code":"UNAVAILABLE"}`, common.ErrUnavailable},
		{"server", 500, `{"code":"SERVER_ERROR"}`, common.ErrServerFault},
		{"proxy html 502", 502, `<html>bad gateway</html>`, common.ErrUnavailable},
		{"plain 500", 500, `oops`, common.ErrServerFault},
		{"plain 404", 404, ``, common.ErrorNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newServer(t, tt.status, tt.body)
			err := c.Signup(context.Background(), "alice", "1234567")
			require.ErrorIs(t, err, tt.want)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.status, apiErr.Status)
		})
	}
}

func TestRateLimitRetryAt(t *testing.T) {
	c, _ := newServer(t, http.StatusTooManyRequests, `{"ok":false,"code":"RATE_LIMIT","message":"too many attempts","retryAt":1700000900000}`)

	err := c.Signup(context.Background(), "alice", "1234567")
	var rl *common.RateLimitError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, int64(1700000900000), rl.RetryAt.UnixMilli())
	assert.Equal(t, common.KindRateLimited, common.KindOf(err))
}

func TestTransportErrorIsUnavailable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	ts.Close()

	c := NewHTTPClient(ts.URL, time.Second)
	_, err := c.ListLogs(context.Background(), "alice")
	assert.ErrorIs(t, err, common.ErrUnavailable)
}

func TestCancelledContext(t *testing.T) {
	c, _ := newServer(t, http.StatusOK, `{}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Signup(ctx, "alice", "1234567")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, common.ErrUnavailable)
}

func TestAccountEndpoints(t *testing.T) {
	c, got := newServer(t, http.StatusOK, `{"ok":true,"password":"7654321","deletedLogs":5,"deletedImages":2,"deletedCount":2,"failedCount":1,"uploadUrl":"http://s3/put","imageUrl":"http://s3/get","key":"images/alice/k"}`)
	ctx := context.Background()

	pw, err := c.ResetPassword(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "7654321", pw)
	assert.Equal(t, "/auth/reset-password", got.path)

	del, err := c.DeleteAccount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, AccountDeletion{DeletedLogs: 5, DeletedImages: 2}, del)

	up, err := c.Presign(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "images/alice/k", up.Key)

	d, f, err := c.DeleteImages(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, d)
	assert.Equal(t, 1, f)
}
