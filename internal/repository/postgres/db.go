package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// DBTX is what repositories run their statements on: a *sqlx.DB, a *sqlx.Tx or a Session.
type DBTX interface {
	sqlx.QueryerContext
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ DBTX = (*sqlx.DB)(nil)
	_ DBTX = (*sqlx.Tx)(nil)
	_ DBTX = (*Session)(nil)
)
