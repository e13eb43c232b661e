// SQLite memory storage.
//
// Information Hiding:
// - SQLite connection management hidden behind Store
// - Schema and upsert details encapsulated
// - Thread-safe via sql.DB's built-in connection pooling

package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
)

// driverName is the sqlite3 driver with the fold() function registered.
// fold lowercases with Go's Unicode case mapping, so SQL matching agrees
// with the in-memory store.
const driverName = "sqlite3_memory"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("fold", strings.ToLower, true)
		},
	})
}

// SqliteStore implements Store using SQLite.
type SqliteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSqlite opens or creates a SQLite database at the given path.
// Creates parent directories if they don't exist.
func OpenSqlite(path string) (*SqliteStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	return newSqliteStore(db)
}

// NewSqliteInMemory creates an in-memory database (useful for testing).
func NewSqliteInMemory() (*SqliteStore, error) {
	db, err := sql.Open(driverName, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}
	// Each pooled connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	return newSqliteStore(db)
}

func newSqliteStore(db *sql.DB) (*SqliteStore, error) {
	store := &SqliteStore{db: db, now: time.Now}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *SqliteStore) Close() error {
	return s.db.Close()
}

func (s *SqliteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS memories (
			id TEXT PRIMARY KEY,
			organization TEXT NOT NULL,
			name TEXT NOT NULL,
			content TEXT NOT NULL,
			content_hash TEXT NOT NULL,
			created_by TEXT,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			UNIQUE(organization, name)
		);

		CREATE INDEX IF NOT EXISTS idx_memories_org_name
		ON memories(organization, name);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

const selectColumns = "id, organization, name, content, content_hash, created_by, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var (
		e         Entry
		createdBy sql.NullString
		created   int64
		updated   int64
	)
	if err := row.Scan(&e.ID, &e.Organization, &e.Name, &e.Content, &e.ContentHash, &createdBy, &created, &updated); err != nil {
		return Entry{}, err
	}
	e.CreatedBy = createdBy.String
	e.CreatedAt = time.UnixMilli(created)
	e.UpdatedAt = time.UnixMilli(updated)
	return e, nil
}

// Get returns the entry stored under key.
func (s *SqliteStore) Get(ctx context.Context, key, organization string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM memories WHERE organization = ? AND name = ?",
		organization, key)

	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%q: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get memory: %w", err)
	}
	return &entry, nil
}

// Search returns entries whose name or content contains any term, ordered by name.
// Terms match case-insensitively as substrings, with the same case folding
// as the in-memory store.
func (s *SqliteStore) Search(ctx context.Context, terms []string, organization string) ([]Entry, error) {
	normalized := searchTerms(terms)
	if len(normalized) == 0 {
		return nil, nil
	}

	clauses := make([]string, 0, len(normalized))
	args := []any{organization}
	for _, term := range normalized {
		clauses = append(clauses, `(instr(fold(name), ?) > 0 OR instr(fold(content), ?) > 0)`)
		args = append(args, term, term)
	}

	query := "SELECT " + selectColumns + " FROM memories WHERE organization = ? AND (" +
		strings.Join(clauses, " OR ") + ") ORDER BY name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search memories: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan memory: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate memories: %w", err)
	}
	return entries, nil
}

// Set creates or replaces the entry under key. Rewriting identical content
// leaves the entry untouched.
func (s *SqliteStore) Set(ctx context.Context, key, content, organization, createdBy string) (*Entry, error) {
	if key == "" {
		return nil, fmt.Errorf("memory key is required")
	}

	fresh := newEntry(key, content, organization, createdBy, s.now())
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memories (id, organization, name, content, content_hash, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(organization, name) DO UPDATE SET
			content = excluded.content,
			content_hash = excluded.content_hash,
			updated_at = excluded.updated_at
		WHERE memories.content_hash != excluded.content_hash`,
		fresh.ID, fresh.Organization, fresh.Name, fresh.Content, fresh.ContentHash,
		fresh.CreatedBy, fresh.CreatedAt.UnixMilli(), fresh.UpdatedAt.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to store memory: %w", err)
	}
	return s.Get(ctx, key, organization)
}

// Delete removes the entry under key.
func (s *SqliteStore) Delete(ctx context.Context, key, organization string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM memories WHERE organization = ? AND name = ?",
		organization, key)
	if err != nil {
		return fmt.Errorf("failed to delete memory: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete memory: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%q: %w", key, ErrNotFound)
	}
	return nil
}

// Verify SqliteStore implements Store
var _ Store = (*SqliteStore)(nil)
