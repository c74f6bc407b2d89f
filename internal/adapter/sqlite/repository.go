package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pressly/goose/v3"

	"github.com/neomorfeo/dealflow/internal/domain"

	_ "modernc.org/sqlite" // Register SQLite driver.
)

//go:embed migrations/*.sql
var migrations embed.FS

// Compile-time check: Repository implements domain.Repository.
var _ domain.Repository = (*Repository)(nil)

// ActivityOutbox receives every appended activity inside the transaction that
// wrote it, so downstream consumers see exactly the committed history.
type ActivityOutbox interface {
	EnqueueTx(ctx context.Context, tx *sql.Tx, activity domain.Activity) error
}

// querier is the subset shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository implements domain.Repository using SQLite.
// A Repository bound to a transaction (tx != nil) is only handed out by WithinTx.
type Repository struct {
	db     *sql.DB
	q      querier
	tx     *sql.Tx
	outbox ActivityOutbox
}

// Option configures a Repository.
type Option func(*Repository)

// WithOutbox registers an outbox that is fed every appended activity.
func WithOutbox(outbox ActivityOutbox) Option {
	return func(r *Repository) { r.outbox = outbox }
}

// New opens a SQLite database, runs migrations, and returns a ready repository.
func New(dataSourceName string, opts ...Option) (*Repository, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One connection: SQLite serializes writers anyway, and ":memory:"
	// databases are per-connection.
	db.SetMaxOpenConns(1)

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	// Enable foreign keys (off by default in SQLite).
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return NewFromDB(db, opts...)
}

// NewFromDB wraps an existing database connection, runs migrations, and returns a ready repository.
// Use this when the *sql.DB has been pre-configured (e.g., with otelsql instrumentation).
func NewFromDB(db *sql.DB, opts ...Option) (*Repository, error) {
	if err := runMigrations(db); err != nil {
		return nil, err
	}

	r := &Repository{db: db, q: db}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// SetOutbox attaches an outbox after construction. The river client needs
// the migrated database before it can be built, so main wires it late.
func (r *Repository) SetOutbox(outbox ActivityOutbox) {
	r.outbox = outbox
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// DB returns the underlying database connection for use by other adapters (e.g., river).
func (r *Repository) DB() *sql.DB {
	return r.db
}

func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

// WithinTx runs fn in a transaction. Calls made through the Store passed to
// fn share the transaction; an error from fn rolls everything back.
// Nested calls reuse the outer transaction.
func (r *Repository) WithinTx(ctx context.Context, fn func(ctx context.Context, store domain.Store) error) error {
	if r.tx != nil {
		return fn(ctx, r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &Repository{db: r.db, q: tx, tx: tx, outbox: r.outbox}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// builder emits "?" placeholders, which modernc.org/sqlite understands.
var builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)

const timeFormat = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeFormat, s)
	return t
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func scanNullableTime(ns sql.NullString) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

// isUniqueViolation checks if a SQLite error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
