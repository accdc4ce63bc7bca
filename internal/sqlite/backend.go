// Package sqlite implements the relational store of daybook on SQLite:
// entries, catalog terms, entry/term links and attachment metadata.
// The schema is managed by goose migrations. No foreign keys or cascades
// are declared; referential cleanup is sequenced by the callers.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/daybook/internal/sqlite/migrations"
	"github.com/mesh-intelligence/daybook/pkg/types"
)

// DatabaseFile is the SQLite file name inside the data directory.
const DatabaseFile = "daybook.db"

// timeLayout is fixed-width so that stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Backend errors.
var (
	ErrDetached        = errors.New("backend is not attached")
	ErrAlreadyAttached = errors.New("backend is already attached")
)

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Backend owns the SQLite connection and hands out table accessors.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	db       *sql.DB
	dataDir  string

	entries     *EntriesTable
	terms       *TermsTable
	links       *LinksTable
	attachments *AttachmentsTable
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach to open the database.
func NewBackend() *Backend {
	b := &Backend{}
	b.entries = &EntriesTable{backend: b}
	b.terms = &TermsTable{backend: b}
	b.links = &LinksTable{backend: b}
	b.attachments = &AttachmentsTable{backend: b}
	return b
}

// Attach opens (or creates) the database under dataDir and applies pending
// migrations. Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(ctx context.Context, dataDir string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return ErrAlreadyAttached
	}
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	dsn := "file:" + filepath.Join(dataDir, DatabaseFile) +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return err
	}

	b.db = db
	b.dataDir = dataDir
	b.attached = true
	return nil
}

// RunMigrations sets up goose with the embedded migrations and runs them.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Detach closes the connection. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	if err := b.db.Close(); err != nil {
		return err
	}
	b.db = nil
	b.attached = false
	return nil
}

// DataDir returns the directory holding the database file.
func (b *Backend) DataDir() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dataDir
}

// Entries returns the entries table accessor.
func (b *Backend) Entries() *EntriesTable { return b.entries }

// Terms returns the catalog terms table accessor.
func (b *Backend) Terms() *TermsTable { return b.terms }

// Links returns the entry/term links table accessor.
func (b *Backend) Links() *LinksTable { return b.links }

// Attachments returns the attachment metadata table accessor.
func (b *Backend) Attachments() *AttachmentsTable { return b.attachments }

// conn returns the open database or ErrDetached.
func (b *Backend) conn() (*sql.DB, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, ErrDetached
	}
	return b.db, nil
}

// newID generates a UUID v7 for entity IDs.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails
		return uuid.New().String()
	}
	return id.String()
}

// now returns the current UTC time without a monotonic reading, so values
// compare equal after a round trip through timeLayout.
func now() time.Time {
	return time.Now().UTC()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// collect drains rows through scan, always returning a non-nil slice.
func collect[T any](rows *sql.Rows, scan func(scanner) (T, error)) ([]T, error) {
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// checkOwner rejects empty owner IDs before they reach a query.
func checkOwner(owner string) error {
	if owner == "" {
		return fmt.Errorf("%w: empty owner", types.ErrInvalidID)
	}
	return nil
}
