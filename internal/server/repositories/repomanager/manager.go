package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/sanposhin/internal/dbx"
	"github.com/dmitrijs2005/sanposhin/internal/server/repositories/logs"
	"github.com/dmitrijs2005/sanposhin/internal/server/repositories/ratelimits"
	"github.com/dmitrijs2005/sanposhin/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Logs(db dbx.DBTX) logs.Repository
	RateLimits(db dbx.DBTX) *ratelimits.PostgresRepository
}
