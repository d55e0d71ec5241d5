package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/sanposhin/internal/backup"
	"github.com/dmitrijs2005/sanposhin/internal/common"
	"github.com/dmitrijs2005/sanposhin/internal/models"
	"github.com/dmitrijs2005/sanposhin/internal/netx"
)

const DefaultTimeout = 15 * time.Second

// HTTPClient talks to the sanposhin JSON API. It is safe for concurrent
// use; SetToken may be called at any time.
type HTTPClient struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *HTTPClient) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// send performs one request and returns the response only for 2xx answers.
func (c *HTTPClient) send(ctx context.Context, method, path string, query url.Values, in any) (*http.Response, error) {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.bearer(); token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}

	if resp.StatusCode/100 != 2 {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return resp, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	resp, err := c.send(ctx, method, path, query, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: malformed response: %v", common.ErrServerFault, err)
	}
	return nil
}

func userQuery(userID string) url.Values {
	return url.Values{"userId": {userID}}
}

type credentials struct {
	UserID   string `json:"userId"`
	Password string `json:"password"`
}

type userBody struct {
	UserID string `json:"userId"`
}

// AccountDeletion reports what DeleteAccount removed remotely.
type AccountDeletion struct {
	DeletedLogs   int64 `json:"deletedLogs"`
	DeletedImages int   `json:"deletedImages"`
}

// PresignedUpload is a one-time image upload slot.
type PresignedUpload struct {
	UploadURL string `json:"uploadUrl"`
	ImageURL  string `json:"imageUrl"`
	Key       string `json:"key"`
}

func (c *HTTPClient) Signup(ctx context.Context, userID, password string) error {
	return c.do(ctx, http.MethodPost, "/auth/signup", nil, credentials{userID, password}, nil)
}

// Login returns an access token and the user's logs.
func (c *HTTPClient) Login(ctx context.Context, userID, password string) (string, []models.LogEntry, error) {
	var out struct {
		Token string            `json:"token"`
		Logs  []models.LogEntry `json:"logs"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, credentials{userID, password}, &out); err != nil {
		return "", nil, err
	}
	return out.Token, out.Logs, nil
}

func (c *HTTPClient) ResetPassword(ctx context.Context, userID string) (string, error) {
	var out struct {
		Password string `json:"password"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/reset-password", nil, userBody{userID}, &out); err != nil {
		return "", err
	}
	return out.Password, nil
}

func (c *HTTPClient) DeleteAccount(ctx context.Context, userID string) (AccountDeletion, error) {
	var out AccountDeletion
	err := c.do(ctx, http.MethodPost, "/auth/delete-account", nil, userBody{userID}, &out)
	return out, err
}

func (c *HTTPClient) SaveLog(ctx context.Context, entry models.LogEntry) (string, error) {
	var out struct {
		LogID string `json:"logId"`
	}
	if err := c.do(ctx, http.MethodPost, "/logs/save", nil, entry, &out); err != nil {
		return "", err
	}
	return out.LogID, nil
}

func (c *HTTPClient) ListLogs(ctx context.Context, userID string) ([]models.LogEntry, error) {
	var out struct {
		Logs []models.LogEntry `json:"logs"`
	}
	if err := c.do(ctx, http.MethodGet, "/logs", userQuery(userID), nil, &out); err != nil {
		return nil, err
	}
	if out.Logs == nil {
		out.Logs = []models.LogEntry{}
	}
	return out.Logs, nil
}

func (c *HTTPClient) DeleteLog(ctx context.Context, userID, logID string) error {
	return c.do(ctx, http.MethodDelete, "/logs/"+url.PathEscape(logID), userQuery(userID), nil, nil)
}

func (c *HTTPClient) DeleteAllLogs(ctx context.Context, userID string) (int64, error) {
	var out struct {
		Deleted int64 `json:"deleted"`
	}
	if err := c.do(ctx, http.MethodDelete, "/logs", userQuery(userID), nil, &out); err != nil {
		return 0, err
	}
	return out.Deleted, nil
}

func (c *HTTPClient) Mission(ctx context.Context, mc models.MissionContext) (models.Mission, error) {
	var out models.Mission
	in := struct {
		Context models.MissionContext `json:"context"`
	}{mc}
	err := c.do(ctx, http.MethodPost, "/ai/mission", nil, in, &out)
	return out, err
}

func (c *HTTPClient) Backup(ctx context.Context, userID string) (*backup.Snapshot, error) {
	resp, err := c.send(ctx, http.MethodGet, "/backup", userQuery(userID), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	snap, err := backup.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrServerFault, err)
	}
	return snap, nil
}

// Restore uploads snap. On failure the result still carries the number of
// entries the server applied before stopping.
func (c *HTTPClient) Restore(ctx context.Context, userID string, snap *backup.Snapshot) (backup.RestoreResult, error) {
	var out backup.RestoreResult
	in := struct {
		UserID   string           `json:"userId"`
		Snapshot *backup.Snapshot `json:"snapshot"`
	}{userID, snap}

	if err := c.do(ctx, http.MethodPost, "/restore", nil, in, &out); err != nil {
		return backup.RestoreResult{Applied: AppliedCount(err)}, err
	}
	return out, nil
}

func (c *HTTPClient) Presign(ctx context.Context, userID string) (PresignedUpload, error) {
	var out PresignedUpload
	err := c.do(ctx, http.MethodPost, "/images/presign", nil, userBody{userID}, &out)
	return out, err
}

// Upload PUTs image bytes to a presigned URL.
func (c *HTTPClient) Upload(ctx context.Context, uploadURL string, data []byte, contentType string) error {
	return netx.UploadToPresignedURL(ctx, c.http, uploadURL, data, contentType)
}

func (c *HTTPClient) DeleteImages(ctx context.Context, userID string) (deleted, failed int, err error) {
	var out struct {
		DeletedCount int `json:"deletedCount"`
		FailedCount  int `json:"failedCount"`
	}
	if err := c.do(ctx, http.MethodPost, "/images/delete", nil, userBody{userID}, &out); err != nil {
		return 0, 0, err
	}
	return out.DeletedCount, out.FailedCount, nil
}
