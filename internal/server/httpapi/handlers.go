package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/sanposhin/internal/backup"
	"github.com/dmitrijs2005/sanposhin/internal/common"
	"github.com/dmitrijs2005/sanposhin/internal/models"
	"github.com/gorilla/mux"
)

type okResponse struct {
	OK bool `json:"ok"`
}

var okBody = okResponse{OK: true}

type credentialsRequest struct {
	UserID   string `json:"userId"`
	Password string `json:"password"`
}

type userRequest struct {
	UserID string `json:"userId"`
}

type loginResponse struct {
	OK    bool              `json:"ok"`
	Token string            `json:"token"`
	Logs  []models.LogEntry `json:"logs"`
}

type passwordResponse struct {
	OK       bool   `json:"ok"`
	Password string `json:"password"`
}

type deleteAccountResponse struct {
	OK            bool  `json:"ok"`
	DeletedLogs   int64 `json:"deletedLogs"`
	DeletedImages int   `json:"deletedImages"`
}

type saveLogResponse struct {
	OK    bool   `json:"ok"`
	LogID string `json:"logId"`
}

type listLogsResponse struct {
	OK   bool              `json:"ok"`
	Logs []models.LogEntry `json:"logs"`
}

type deletedResponse struct {
	OK      bool  `json:"ok"`
	Deleted int64 `json:"deleted"`
}

type missionRequest struct {
	Context models.MissionContext `json:"context"`
}

type missionResponse struct {
	OK bool `json:"ok"`
	models.Mission
}

type restoreRequest struct {
	UserID   string          `json:"userId"`
	Snapshot json.RawMessage `json:"snapshot"`
}

type restoreResponse struct {
	OK      bool `json:"ok"`
	Applied int  `json:"applied"`
	Skipped int  `json:"skipped"`
}

type presignResponse struct {
	OK        bool   `json:"ok"`
	UploadURL string `json:"uploadUrl"`
	ImageURL  string `json:"imageUrl"`
	Key       string `json:"key"`
}

type deleteImagesResponse struct {
	OK           bool `json:"ok"`
	DeletedCount int  `json:"deletedCount"`
	FailedCount  int  `json:"failedCount"`
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return common.InvalidInput("malformed request body")
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.health.Ping(r.Context()); err != nil {
		s.writeError(w, r, errors.Join(common.ErrUnavailable, err))
		return
	}
	writeJSON(w, http.StatusOK, okBody)
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.users.Signup(r.Context(), clientIP(r), req.UserID, req.Password); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.users.Login(r.Context(), clientIP(r), req.UserID, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	logs := res.Logs
	if logs == nil {
		logs = []models.LogEntry{}
	}
	writeJSON(w, http.StatusOK, loginResponse{OK: true, Token: res.Token, Logs: logs})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := owner(r.Context(), req.UserID); err != nil {
		s.writeError(w, r, err)
		return
	}
	password, err := s.users.ResetPassword(r.Context(), req.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, passwordResponse{OK: true, Password: password})
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := owner(r.Context(), req.UserID); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.users.DeleteAccount(r.Context(), req.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteAccountResponse{OK: true, DeletedLogs: res.DeletedLogs, DeletedImages: res.DeletedImages})
}

func (s *Server) handleSaveLog(w http.ResponseWriter, r *http.Request) {
	var entry models.LogEntry
	if err := decode(r, &entry); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := owner(r.Context(), entry.UserID); err != nil {
		s.writeError(w, r, err)
		return
	}
	id, err := s.logs.Save(r.Context(), entry)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saveLogResponse{OK: true, LogID: id})
}

func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if err := owner(r.Context(), userID); err != nil {
		s.writeError(w, r, err)
		return
	}
	logs, err := s.logs.List(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listLogsResponse{OK: true, Logs: logs})
}

func (s *Server) handleDeleteLog(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if err := owner(r.Context(), userID); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.logs.Delete(r.Context(), userID, mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody)
}

func (s *Server) handleDeleteAllLogs(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if err := owner(r.Context(), userID); err != nil {
		s.writeError(w, r, err)
		return
	}
	n, err := s.logs.DeleteAll(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deletedResponse{OK: true, Deleted: n})
}

// handleMission always answers with a mission; an absent or broken body
// just means default context.
func (s *Server) handleMission(w http.ResponseWriter, r *http.Request) {
	var req missionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.logger.Debug(r.Context(), "ignoring malformed mission request", "error", err)
	}
	m := s.missions.Generate(r.Context(), req.Context)
	writeJSON(w, http.StatusOK, missionResponse{OK: true, Mission: m})
}

func (s *Server) handleBackup(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if err := owner(r.Context(), userID); err != nil {
		s.writeError(w, r, err)
		return
	}
	snap, err := s.backups.CreateSnapshot(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="sanposhin-backup-`+userID+`.json"`)
	if err := backup.Encode(w, snap); err != nil {
		s.logger.Error(r.Context(), "write snapshot failed", "user_id", userID, "error", err)
	}
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := owner(r.Context(), req.UserID); err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(req.Snapshot) == 0 {
		s.writeError(w, r, common.InvalidInput("snapshot is required"))
		return
	}

	snap, err := backup.Decode(bytes.NewReader(req.Snapshot))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.backups.Restore(r.Context(), req.UserID, snap)
	if err != nil {
		status, body := errorBody(err)
		body.Applied = res.Applied
		s.logError(r, status, err)
		writeJSON(w, status, body)
		return
	}
	writeJSON(w, http.StatusOK, restoreResponse{OK: true, Applied: res.Applied, Skipped: res.Skipped})
}

func (s *Server) handlePresign(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := owner(r.Context(), req.UserID); err != nil {
		s.writeError(w, r, err)
		return
	}
	up, err := s.images.Presign(r.Context(), req.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, presignResponse{OK: true, UploadURL: up.UploadURL, ImageURL: up.ImageURL, Key: up.Key})
}

func (s *Server) handleDeleteImages(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := owner(r.Context(), req.UserID); err != nil {
		s.writeError(w, r, err)
		return
	}
	deleted, failed, err := s.images.DeleteAll(r.Context(), req.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteImagesResponse{OK: true, DeletedCount: deleted, FailedCount: failed})
}
