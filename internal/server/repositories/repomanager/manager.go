// Package repomanager vends repository implementations and exposes the
// schema migration hook, so services depend on one seam instead of concrete
// repositories.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/corkboard/internal/dbx"
	"github.com/dmitrijs2005/corkboard/internal/server/repositories/notes"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Notes(db dbx.DBTX) notes.Repository
}
