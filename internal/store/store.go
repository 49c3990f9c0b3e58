// Package store is the SQL implementation of tracker.Store, shared by the
// SQLite and PostgreSQL backends.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/dukerupert/choretracker/internal/database"
	"github.com/dukerupert/choretracker/internal/tracker"
)

var _ tracker.Store = (*Store)(nil)

type Store struct {
	db      *sql.DB
	dialect database.Dialect
	clock   tracker.Clock
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source used for lifecycle timestamps.
func WithClock(c tracker.Clock) Option {
	return func(s *Store) { s.clock = c }
}

func New(db *sql.DB, d database.Dialect, opts ...Option) *Store {
	s := &Store{db: db, dialect: d, clock: tracker.UTCClock}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB exposes the underlying handle for snapshots.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Dialect() database.Dialect {
	return s.dialect
}

func (s *Store) q(query string) string {
	return s.dialect.Rebind(query)
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

func (s *Store) insert(qr querier, query string, args ...any) (int64, error) {
	var id int64
	if err := qr.QueryRow(s.q(query+` RETURNING id`), args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// existsTables are the only tables exists may be asked about.
var existsTables = map[string]string{
	"users":        `SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)`,
	"chore_groups": `SELECT EXISTS(SELECT 1 FROM chore_groups WHERE id = ?)`,
	"chores":       `SELECT EXISTS(SELECT 1 FROM chores WHERE id = ?)`,
	"assignments":  `SELECT EXISTS(SELECT 1 FROM assignments WHERE id = ?)`,
}

func (s *Store) exists(qr querier, table string, id int64) (bool, error) {
	query, ok := existsTables[table]
	if !ok {
		return false, fmt.Errorf("exists: unknown table %q", table)
	}
	var found bool
	if err := qr.QueryRow(s.q(query), id).Scan(&found); err != nil {
		return false, fmt.Errorf("check %s %d: %w", table, id, err)
	}
	return found, nil
}

// require returns an error wrapping tracker.ErrNotFound when the row is
// absent. label names the entity in the message.
func (s *Store) require(qr querier, table, label string, id int64) error {
	found, err := s.exists(qr, table, id)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%s %d: %w", label, id, tracker.ErrNotFound)
	}
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// isUniqueViolation reports whether err is a unique constraint failure from
// either driver.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
