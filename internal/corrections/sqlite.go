package corrections

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// schemaVersion is the current corrections schema version. Bump on schema
// changes; mismatched databases are rejected rather than migrated.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by an incompatible
// rfqd version.
var ErrSchemaMismatch = errors.New("corrections schema version mismatch")

const schemaSQL = `
CREATE TABLE corrections (
    fingerprint        TEXT PRIMARY KEY,
    id                 TEXT NOT NULL,
    raw_text_snippet   TEXT NOT NULL,
    normalized_snippet TEXT NOT NULL,
    correct_json       TEXT NOT NULL,
    full_text_context  TEXT NOT NULL DEFAULT '',
    keywords           TEXT NOT NULL DEFAULT '',
    created_at         TEXT NOT NULL
);

CREATE INDEX idx_corrections_created_at ON corrections(created_at);

CREATE TABLE schema_version (
    version INTEGER NOT NULL
);
`

// SQLiteStore is the durable Store implementation backed by SQLite.
type SQLiteStore struct {
	db       *sql.DB
	path     string
	keywords []string
}

// Open initializes or connects to the corrections database.
func Open(path string, keywords []string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure corrections dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	s := &SQLiteStore{db: db, path: path, keywords: keywords}
	if err := s.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d", ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

func (s *SQLiteStore) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Put upserts a correction keyed by its fingerprint. Re-correcting the same
// snippet replaces the previous record.
func (s *SQLiteStore) Put(ctx context.Context, rawTextSnippet string, correctJSON json.RawMessage, fullTextContext string) error {
	fp := Fingerprint(rawTextSnippet)
	prints := KeywordPrints(fullTextContext, s.keywords)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := s.db.ExecContext(ctx, `
        INSERT INTO corrections (
            fingerprint, id, raw_text_snippet, normalized_snippet,
            correct_json, full_text_context, keywords, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(fingerprint) DO UPDATE SET
            raw_text_snippet = excluded.raw_text_snippet,
            correct_json = excluded.correct_json,
            full_text_context = excluded.full_text_context,
            keywords = excluded.keywords,
            created_at = excluded.created_at`,
		fp,
		uuid.NewString(),
		strings.TrimSpace(rawTextSnippet),
		Normalize(rawTextSnippet),
		string(correctJSON),
		fullTextContext,
		strings.Join(prints, ","),
		now,
	)
	if err != nil {
		return fmt.Errorf("upsert correction: %w", err)
	}
	return nil
}

// Matches returns corrections compatible with the document text: keyword
// print overlap, or the corrected snippet appearing verbatim (normalized)
// in the document. Most recent first.
func (s *SQLiteStore) Matches(ctx context.Context, documentText string) ([]Correction, error) {
	prints := KeywordPrints(documentText, s.keywords)
	normalized := Normalize(documentText)

	var clauses []string
	var args []any
	for _, p := range prints {
		clauses = append(clauses, "(',' || keywords || ',') LIKE ?")
		args = append(args, "%,"+p+",%")
	}
	// Exact path: the document contains the corrected snippet itself.
	clauses = append(clauses, "instr(?, normalized_snippet) > 0")
	args = append(args, normalized)

	query := `SELECT id, fingerprint, raw_text_snippet, correct_json, full_text_context, keywords, created_at
        FROM corrections WHERE ` + strings.Join(clauses, " OR ") + ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query corrections: %w", err)
	}
	defer rows.Close()

	return scanCorrections(rows)
}

// All returns every stored correction, most recent first.
func (s *SQLiteStore) All(ctx context.Context) ([]Correction, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, fingerprint, raw_text_snippet, correct_json, full_text_context, keywords, created_at
        FROM corrections ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list corrections: %w", err)
	}
	defer rows.Close()

	return scanCorrections(rows)
}

func scanCorrections(rows *sql.Rows) ([]Correction, error) {
	var result []Correction
	for rows.Next() {
		var c Correction
		var correctJSON, keywords, createdAt string
		if err := rows.Scan(&c.ID, &c.Fingerprint, &c.RawTextSnippet, &correctJSON,
			&c.FullTextContext, &keywords, &createdAt); err != nil {
			return nil, fmt.Errorf("scan correction: %w", err)
		}
		c.CorrectJSON = json.RawMessage(correctJSON)
		if keywords != "" {
			c.Keywords = strings.Split(keywords, ",")
		}
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			c.CreatedAt = ts
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

var _ Store = (*SQLiteStore)(nil)
