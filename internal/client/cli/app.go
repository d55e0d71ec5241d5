package cli

import (
	"context"
	"database/sql"
	"errors"
	"io"

	"github.com/dmitrijs2005/sanposhin/internal/client/client"
	"github.com/dmitrijs2005/sanposhin/internal/client/config"
	"github.com/dmitrijs2005/sanposhin/internal/client/queue"
	"github.com/dmitrijs2005/sanposhin/internal/client/repositories/logs"
	"github.com/dmitrijs2005/sanposhin/internal/client/repositories/metadata"
	queuerepo "github.com/dmitrijs2005/sanposhin/internal/client/repositories/queue"
	"github.com/dmitrijs2005/sanposhin/internal/client/services"
	"github.com/dmitrijs2005/sanposhin/internal/client/syncer"
	"github.com/dmitrijs2005/sanposhin/internal/logging"
)

// App is everything one command needs.
type App struct {
	remote  *client.HTTPClient
	monitor *syncer.Monitor
	engine  *syncer.Engine
	auth    *services.AuthService
	logs    *services.LogService
	backups *services.BackupService

	closers []io.Closer
}

// Opener builds the App for a command run.
type Opener func(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error)

// OpenApp opens the configured database and connects to the server.
func OpenApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	path, err := cfg.ResolveDatabasePath()
	if err != nil {
		return nil, err
	}
	db, err := client.OpenDatabase(ctx, path)
	if err != nil {
		return nil, err
	}
	pinger, err := client.NewHealthPinger(cfg.HealthAddr)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	a := Wire(db, client.NewHTTPClient(cfg.ServerURL, cfg.RequestTimeout), pinger, cfg, logger)
	a.closers = append(a.closers, pinger, db)
	return a, nil
}

// Wire assembles the services over db. The caller keeps ownership of db
// and pinger.
func Wire(db *sql.DB, remote *client.HTTPClient, pinger syncer.Pinger, cfg *config.Config, logger logging.Logger) *App {
	meta := metadata.NewSQLiteRepository(db)
	cache := logs.NewSQLiteRepository(db)
	q := queue.New(queuerepo.NewSQLiteRepository(db), logger)

	monitor := syncer.NewMonitor(pinger, cfg.OnlineCheckInterval, logger)
	logService := services.NewLogService(remote, cache, q, monitor, logger)

	return &App{
		remote:  remote,
		monitor: monitor,
		engine:  syncer.NewEngine(q, cache, logService, monitor, logger),
		auth:    services.NewAuthService(remote, meta, cache, q, logger),
		logs:    logService,
		backups: services.NewBackupService(remote, meta, cache, logger),
	}
}

// Close releases what OpenApp acquired, in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}
