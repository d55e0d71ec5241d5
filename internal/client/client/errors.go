package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/sanposhin/internal/common"
)

// APIError is a failed response. It unwraps to the common sentinel for its
// code, so errors.Is(err, common.ErrInvalidCredentials) and friends work.
type APIError struct {
	Status  int
	Code    string
	Message string
	Applied int

	err error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s (http %d)", e.err, e.Status)
	}
	return fmt.Sprintf("%s: %s (http %d)", e.err, e.Message, e.Status)
}

func (e *APIError) Unwrap() error { return e.err }

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	RetryAt int64  `json:"retryAt"`
	Applied int    `json:"applied"`
}

func sentinelForCode(code string, retryAt int64) error {
	switch code {
	case common.CodeInvalidInput:
		return common.ErrInvalidInput
	case common.CodeInvalidCredentials:
		return common.ErrInvalidCredentials
	case common.CodeUnauthorized:
		return common.ErrorUnauthorized
	case common.CodeNotFound:
		return common.ErrorNotFound
	case common.CodeUserExists:
		return common.ErrConflict
	case common.CodeRateLimit:
		rl := &common.RateLimitError{}
		if retryAt > 0 {
			rl.RetryAt = time.UnixMilli(retryAt)
		}
		return rl
	case common.CodeUnavailable:
		return common.ErrUnavailable
	case common.CodeServerError:
		return common.ErrServerFault
	default:
		return nil
	}
}

func sentinelForStatus(status int) error {
	switch {
	case status == http.StatusBadRequest:
		return common.ErrInvalidInput
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return common.ErrorUnauthorized
	case status == http.StatusNotFound:
		return common.ErrorNotFound
	case status == http.StatusConflict:
		return common.ErrConflict
	case status == http.StatusTooManyRequests:
		return &common.RateLimitError{}
	case status == http.StatusBadGateway, status == http.StatusServiceUnavailable, status == http.StatusGatewayTimeout:
		return common.ErrUnavailable
	default:
		return common.ErrServerFault
	}
}

// decodeError builds an APIError from a non-2xx response. Bodies that are
// not ours (a proxy's HTML page) fall back to the status code.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var body errorResponse
	_ = json.Unmarshal(raw, &body)

	e := &APIError{
		Status:  resp.StatusCode,
		Code:    body.Code,
		Message: body.Message,
		Applied: body.Applied,
		err:     sentinelForCode(body.Code, body.RetryAt),
	}
	if e.err == nil {
		e.err = sentinelForStatus(resp.StatusCode)
	}
	return e
}

// AppliedCount reports how many entries a failed restore had already
// written, or zero.
func AppliedCount(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Applied
	}
	return 0
}
