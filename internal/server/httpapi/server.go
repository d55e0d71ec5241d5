// Package httpapi exposes the sanposhin services over JSON/HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/sanposhin/internal/backup"
	"github.com/dmitrijs2005/sanposhin/internal/common"
	"github.com/dmitrijs2005/sanposhin/internal/logging"
	"github.com/dmitrijs2005/sanposhin/internal/models"
	"github.com/dmitrijs2005/sanposhin/internal/server/services"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	maxBodyBytes    = 10 << 20
	shutdownTimeout = 10 * time.Second
)

type UserService interface {
	Signup(ctx context.Context, ip, userID, password string) error
	Login(ctx context.Context, ip, userID, password string) (*services.LoginResult, error)
	ResetPassword(ctx context.Context, userID string) (string, error)
	DeleteAccount(ctx context.Context, userID string) (*services.DeleteAccountResult, error)
	Authenticate(token string) (string, error)
}

type LogService interface {
	Save(ctx context.Context, entry models.LogEntry) (string, error)
	List(ctx context.Context, userID string) ([]models.LogEntry, error)
	Delete(ctx context.Context, userID, id string) error
	DeleteAll(ctx context.Context, userID string) (int64, error)
}

type ImageService interface {
	Presign(ctx context.Context, userID string) (*services.PresignedUpload, error)
	DeleteAll(ctx context.Context, userID string) (deleted, failed int, err error)
}

type MissionService interface {
	Generate(ctx context.Context, mc models.MissionContext) models.Mission
}

type BackupService interface {
	CreateSnapshot(ctx context.Context, userID string) (*backup.Snapshot, error)
	Restore(ctx context.Context, userID string, snap *backup.Snapshot) (backup.RestoreResult, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators a Server dispatches to.
type Deps struct {
	Users    UserService
	Logs     LogService
	Images   ImageService
	Missions MissionService
	Backups  BackupService
	Health   Pinger
}

type Server struct {
	users    UserService
	logs     LogService
	images   ImageService
	missions MissionService
	backups  BackupService
	health   Pinger
	logger   logging.Logger
	http     *http.Server
}

func NewServer(addr string, deps Deps, logger logging.Logger) *Server {
	s := &Server{
		users:    deps.Users,
		logs:     deps.Logs,
		images:   deps.Images,
		missions: deps.Missions,
		backups:  deps.Backups,
		health:   deps.Health,
		logger:   logger.With("module", "http_server"),
	}

	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Handler builds the router with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(requestIDMiddleware, s.recoveryMiddleware, s.loggingMiddleware, maxBytesMiddleware(maxBodyBytes))

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/auth/signup", s.handleSignup).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/auth/reset-password", s.requireAuth(s.handleResetPassword)).Methods(http.MethodPost)
	r.HandleFunc("/auth/delete-account", s.requireAuth(s.handleDeleteAccount)).Methods(http.MethodPost)

	r.HandleFunc("/logs/save", s.requireAuth(s.handleSaveLog)).Methods(http.MethodPost)
	r.HandleFunc("/logs", s.requireAuth(s.handleListLogs)).Methods(http.MethodGet)
	r.HandleFunc("/logs", s.requireAuth(s.handleDeleteAllLogs)).Methods(http.MethodDelete)
	r.HandleFunc("/logs/{id}", s.requireAuth(s.handleDeleteLog)).Methods(http.MethodDelete)

	r.HandleFunc("/ai/mission", s.handleMission).Methods(http.MethodPost)

	r.HandleFunc("/backup", s.requireAuth(s.handleBackup)).Methods(http.MethodGet)
	r.HandleFunc("/restore", s.requireAuth(s.handleRestore)).Methods(http.MethodPost)

	r.HandleFunc("/images/presign", s.requireAuth(s.handlePresign)).Methods(http.MethodPost)
	r.HandleFunc("/images/delete", s.requireAuth(s.handleDeleteImages)).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Code: common.CodeNotFound, Message: "no such endpoint"})
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "http shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", ln.Addr().String())

	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
