package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/sanposhin/internal/common"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	OK      bool   `json:"ok"`
	Code    string `json:"code"`
	Message string `json:"message"`
	RetryAt int64  `json:"retryAt,omitempty"`
	Applied int    `json:"applied,omitempty"`
}

// classify maps an error to its HTTP status and response code.
func classify(err error) (int, string, string) {
	switch common.KindOf(err) {
	case common.KindInvalidInput:
		return http.StatusBadRequest, common.CodeInvalidInput, err.Error()
	case common.KindInvalidCredentials:
		return http.StatusUnauthorized, common.CodeInvalidCredentials, "invalid user id or password"
	case common.KindUnauthorized:
		return http.StatusUnauthorized, common.CodeUnauthorized, "authentication required"
	case common.KindNotFound:
		return http.StatusNotFound, common.CodeNotFound, "not found"
	case common.KindConflict:
		return http.StatusConflict, common.CodeUserExists, "user already exists"
	case common.KindRateLimited:
		return http.StatusTooManyRequests, common.CodeRateLimit, "too many attempts"
	case common.KindUnavailable:
		return http.StatusServiceUnavailable, common.CodeUnavailable, "service unavailable"
	default:
		return http.StatusInternalServerError, common.CodeServerError, "internal server error"
	}
}

func errorBody(err error) (int, ErrorResponse) {
	status, code, msg := classify(err)
	body := ErrorResponse{Code: code, Message: msg}

	var rl *common.RateLimitError
	if errors.As(err, &rl) && !rl.RetryAt.IsZero() {
		body.RetryAt = rl.RetryAt.UnixMilli()
	}
	return status, body
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := errorBody(err)
	s.logError(r, status, err)
	writeJSON(w, status, body)
}

func (s *Server) logError(r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err, "request_id", requestID(r.Context()))
		return
	}
	s.logger.Debug(r.Context(), "request rejected", "path", r.URL.Path, "error", err, "request_id", requestID(r.Context()))
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
