package repomanager

import (
	"context"
	"database/sql"

	"github.com/bloomlabs/bloom/internal/dbx"
	"github.com/bloomlabs/bloom/internal/server/repositories/groups"
	"github.com/bloomlabs/bloom/internal/server/repositories/namespaces"
	"github.com/bloomlabs/bloom/internal/server/repositories/sessions"
	"github.com/bloomlabs/bloom/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	Namespaces(db dbx.DBTX) namespaces.Repository
	Groups(db dbx.DBTX) groups.Repository
}
