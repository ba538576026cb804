package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"impegni/internal/core"
)

// DefaultTimeout bounds how long a statement waits on a locked database.
const DefaultTimeout = 5 * time.Second

// Repository is the SQL-backed store shared by every service. It is safe
// for concurrent use.
type Repository struct {
	db      *sql.DB
	queries *Queries
}

// NewSQLiteRepository opens (creating when needed) the SQLite database at
// dbPath and applies migrations.
func NewSQLiteRepository(dbPath string, timeout time.Duration) (*Repository, error) {
	return Open(SQLite, dbPath, timeout)
}

// NewPostgresRepository connects to the Postgres database at url and
// applies migrations.
func NewPostgresRepository(url string, timeout time.Duration) (*Repository, error) {
	return Open(Postgres, url, timeout)
}

// Open connects to the database of the given dialect and applies
// migrations. For SQLite, dsn is a file path.
func Open(dialect Dialect, dsn string, timeout time.Duration) (*Repository, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	db, fullDSN, err := openDB(dialect, dsn, timeout)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dialect, fullDSN); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{
		db:      db,
		queries: New(db, dialect),
	}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// withTx runs fn in a transaction. Inside fn only the given Queries may be
// used; touching r.queries would need a second connection, which SQLite's
// single-connection pool never hands out.
func (r *Repository) withTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func idPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}

// forwardClause matches rows whose (year, month) is at or after a cursor.
// It takes the cursor as (year, year, month).
const forwardClause = `(year > ? OR (year = ? AND month >= ?))`

func forwardArgs(p core.Period) []any {
	return []any{p.Year, p.Year, p.Month}
}

func parseStoredDate(s string) (core.Date, error) {
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, fmt.Errorf("parse stored date %q: %w", s, err)
	}
	return d, nil
}
