/*
Package sqlstore provides the database/sql implementation of portal.Store.

PURPOSE:
  One implementation, two engines:

    sqlite3   github.com/mattn/go-sqlite3   local runs, tests (":memory:")
    pgx       github.com/jackc/pgx/v5       production PostgreSQL

  Queries are written once with "?" placeholders. The dialect rewrites them
  to "$1, $2, ..." for PostgreSQL and supplies the engine-specific bits
  (row lock suffix, case-insensitive LIKE).

KEY TABLES:
  branches, users, categories, batches, batch_branches,
  students, student_batches, student_payments

  student_payments carries UNIQUE(student_id, installment_number), the
  storage backstop for installment numbering.

CONCURRENCY:
  PostgreSQL: WithTx opens a READ COMMITTED transaction and Lock* methods
  append FOR UPDATE, so concurrent payments for one student queue on the
  student row.

  SQLite: a single connection, transactions opened with BEGIN IMMEDIATE,
  and a sync.RWMutex that lets many View calls or one WithTx run at a time.

ERRORS:
  Unique violations become *portal.ConflictError and foreign-key violations
  *portal.NotFoundError (see errors.go). Everything else is wrapped with the
  name of the failing operation.

USAGE:
  store, err := sqlstore.Open(ctx, "sqlite3", "./data/portal.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := portal.NewService(store, auth.NewBcryptHasher(0))

SEE ALSO:
  - portal/store.go: interface definitions
  - schema/*.sql: table definitions per engine
*/
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/sciencemaster/portal/portal"
)

// Store implements portal.Store over database/sql.
type Store struct {
	db      *sql.DB
	dialect dialect
	mu      sync.RWMutex
}

// Open connects to the database, applies the schema and returns a ready
// store. driver is "sqlite3" or "pgx"; for sqlite3 the dsn is a file path or
// ":memory:".
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	switch driver {
	case "sqlite3", "sqlite", "":
		return openSQLite(ctx, dsn)
	case "pgx", "postgres", "postgresql":
		return openPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// New creates a SQLite store at dbPath. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	return openSQLite(context.Background(), dbPath)
}

func openSQLite(ctx context.Context, dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_txlock=immediate&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" a single database and SQLite a single writer.
	db.SetMaxOpenConns(1)
	return newStore(ctx, db, sqliteDialect)
}

func openPostgres(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return newStore(ctx, db, postgresDialect)
}

func newStore(ctx context.Context, db *sql.DB, d dialect) (*Store, error) {
	store := &Store{db: db, dialect: d}
	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Driver returns the name of the engine behind the store.
func (s *Store) Driver() string {
	return s.dialect.name
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a read-write transaction. fn's error, if any,
// is returned unchanged after rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx portal.Tx) error) error {
	if s.dialect.serialize {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	return s.run(ctx, nil, fn)
}

// View executes fn against a read-only transaction.
func (s *Store) View(ctx context.Context, fn func(tx portal.Tx) error) error {
	if s.dialect.serialize {
		s.mu.RLock()
		defer s.mu.RUnlock()
	}
	return s.run(ctx, s.dialect.readOnly, fn)
}

func (s *Store) run(ctx context.Context, opts *sql.TxOptions, fn func(tx portal.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{q: sqlTx, d: s.dialect}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// txStore implements portal.Tx. Every query goes through q so that reads
// inside a transaction see its own writes.
type txStore struct {
	q querier
	d dialect
}

var _ portal.Tx = (*txStore)(nil)

func (t *txStore) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.q.ExecContext(ctx, t.d.rebind(query), args...)
}

func (t *txStore) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.q.QueryContext(ctx, t.d.rebind(query), args...)
}

func (t *txStore) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return t.q.QueryRowContext(ctx, t.d.rebind(query), args...)
}

// insert runs an INSERT ... RETURNING id.
func (t *txStore) insert(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	if err := t.queryRow(ctx, query+" RETURNING id", args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// mustAffect turns a zero-row UPDATE or DELETE into a NotFoundError.
func mustAffect(res sql.Result, entity string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &portal.NotFoundError{Entity: entity, ID: id}
	}
	return nil
}
