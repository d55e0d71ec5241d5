// Package server wires the sanposhin backend together: Postgres, object
// storage, rate limiting, mission generation, the JSON API and the gRPC
// health service. It also handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/sanposhin/internal/backup"
	"github.com/dmitrijs2005/sanposhin/internal/logging"
	"github.com/dmitrijs2005/sanposhin/internal/ratelimit"
	"github.com/dmitrijs2005/sanposhin/internal/server/config"
	"github.com/dmitrijs2005/sanposhin/internal/server/httpapi"
	"github.com/dmitrijs2005/sanposhin/internal/server/missions"
	"github.com/dmitrijs2005/sanposhin/internal/server/repositories/ratelimits"
	"github.com/dmitrijs2005/sanposhin/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/sanposhin/internal/server/services"

	gs "github.com/dmitrijs2005/sanposhin/internal/server/grpc"
)

const (
	rateLimitSweepInterval = 5 * time.Minute
	// Longer than any policy window or lock.
	rateLimitMaxAge = 2 * time.Hour
)

type App struct {
	config     *config.Config
	logger     logging.Logger
	db         *sql.DB
	rateLimits ratelimit.Store
	httpServer *httpapi.Server
	grpcServer *gs.HealthServer
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.New(os.Stdout, "json", c.LogLevel)

	db, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	var rls ratelimit.Store
	switch c.RateLimitStore {
	case config.RateLimitStorePostgres:
		rls = rm.RateLimits(db)
	default:
		rls = ratelimit.NewMemoryStore()
	}

	objects, err := services.NewS3ObjectStore(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("object storage init error: %w", err)
	}

	store := services.NewStore(db, rm)
	limiters := services.NewLimiters(rls, logger)
	images := services.NewImageService(objects, logger)

	gen := missions.NewAnthropicGenerator(c.AnthropicAPIKey, c.AnthropicModel, c.AnthropicBaseURL, c.AnthropicTimeout)
	if gen == nil {
		logger.Warn(ctx, "no Anthropic API key configured, missions come from the fallback list")
	}

	deps := httpapi.Deps{
		Users:    services.NewUserService(store, images, limiters, c, logger),
		Logs:     services.NewLogService(store, limiters.Save, logger),
		Images:   images,
		Missions: missions.NewService(gen, logger),
		Backups:  backup.NewCodec(store, logger),
		Health:   store,
	}

	return &App{
		config:     c,
		logger:     logger,
		db:         db,
		rateLimits: rls,
		httpServer: httpapi.NewServer(c.HTTPAddr, deps, logger),
		grpcServer: gs.NewHealthServer(c.GRPCHealthAddr, store, logger),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// sweepRateLimits drops stale rate limit state until ctx is cancelled.
func (app *App) sweepRateLimits(ctx context.Context) {
	switch st := app.rateLimits.(type) {
	case *ratelimit.MemoryStore:
		st.RunCleanup(ctx, rateLimitSweepInterval, rateLimitMaxAge)
	case *ratelimits.PostgresRepository:
		ticker := time.NewTicker(rateLimitSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				now := time.Now()
				n, err := st.Sweep(ctx, now.Add(-rateLimitMaxAge).UnixMilli(), now.UnixMilli())
				if err != nil {
					app.logger.Error(ctx, "rate limit sweep failed", "error", err)
				} else if n > 0 {
					app.logger.Debug(ctx, "rate limit state swept", "count", n)
				}
			}
		}
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		app.sweepRateLimits(ctx)
	}()
	go func() {
		defer wg.Done()
		if err := app.httpServer.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()
	go func() {
		defer wg.Done()
		if err := app.grpcServer.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close failed", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
