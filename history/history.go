// Package history persists finished re-leveling operations in SQLite,
// so the CLI and API can answer "what did relevel do to which pages".
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/relevel/dbopen"
	"github.com/hazyhaar/relevel/idgen"
)

var defaultID func() string = idgen.Prefixed("op_", idgen.UUIDv7())

const schema = `
CREATE TABLE IF NOT EXISTS operations (
	id          TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL,
	operation   TEXT NOT NULL,
	page_url    TEXT NOT NULL,
	page_title  TEXT NOT NULL DEFAULT '',
	level       TEXT NOT NULL DEFAULT '',
	success     INTEGER NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	elements_selected  INTEGER NOT NULL DEFAULT 0,
	elements_rewritten INTEGER NOT NULL DEFAULT 0,
	summary_words      INTEGER NOT NULL DEFAULT 0,
	elapsed_ms  INTEGER NOT NULL DEFAULT 0,
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_operations_created ON operations(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_operations_session ON operations(session_id);
`

// Entry is one recorded operation.
type Entry struct {
	ID                string        `json:"id"`
	SessionID         string        `json:"session_id"`
	Operation         string        `json:"operation"`
	PageURL           string        `json:"page_url"`
	PageTitle         string        `json:"page_title,omitempty"`
	Level             string        `json:"level,omitempty"`
	Success           bool          `json:"success"`
	Error             string        `json:"error,omitempty"`
	ElementsSelected  int           `json:"elements_selected,omitempty"`
	ElementsRewritten int           `json:"elements_rewritten,omitempty"`
	SummaryWords      int           `json:"summary_words,omitempty"`
	Elapsed           time.Duration `json:"elapsed,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
}

// Store is the SQLite-backed operation log.
type Store struct {
	db  *sql.DB
	ids func() string
}

// Option customises a Store.
type Option func(*Store)

// WithIDs overrides row ID generation, mainly for tests.
func WithIDs(gen func() string) Option {
	return func(s *Store) { s.ids = gen }
}

// Open opens (and migrates) the history database at path. Parent
// directories are created as needed.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(schema))
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}
	return NewStore(db, opts...), nil
}

// NewStore wraps an already-open database. The schema must be applied
// by the caller (dbopen.WithSchema(Schema)).
func NewStore(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, ids: defaultID}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Schema is the store's DDL, exported for callers that manage the
// database handle themselves.
const Schema = schema

// Record inserts one finished operation.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = s.ids()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := dbopen.Exec(ctx, s.db, `
		INSERT INTO operations (
			id, session_id, operation, page_url, page_title, level,
			success, error, elements_selected, elements_rewritten,
			summary_words, elapsed_ms, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, e.Operation, e.PageURL, e.PageTitle, e.Level,
		boolToInt(e.Success), e.Error, e.ElementsSelected, e.ElementsRewritten,
		e.SummaryWords, e.Elapsed.Milliseconds(), e.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("history: record operation: %w", err)
	}
	return nil
}

// Recent returns the newest entries, most recent first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, operation, page_url, page_title, level,
		       success, error, elements_selected, elements_rewritten,
		       summary_words, elapsed_ms, created_at
		FROM operations
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query recent: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// BySession returns every entry recorded for one session, oldest first.
func (s *Store) BySession(ctx context.Context, sessionID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, operation, page_url, page_title, level,
		       success, error, elements_selected, elements_rewritten,
		       summary_words, elapsed_ms, created_at
		FROM operations
		WHERE session_id = ?
		ORDER BY created_at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("history: query session %s: %w", sessionID, err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Prune deletes all but the newest keep entries.
func (s *Store) Prune(ctx context.Context, keep int) error {
	if keep < 0 {
		keep = 0
	}
	return dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			DELETE FROM operations
			WHERE id NOT IN (
				SELECT id FROM operations ORDER BY created_at DESC LIMIT ?
			)`, keep)
		if err != nil {
			return fmt.Errorf("history: prune: %w", err)
		}
		return nil
	})
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var out []Entry
	for rows.Next() {
		var (
			e         Entry
			success   int
			elapsedMS int64
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Operation, &e.PageURL,
			&e.PageTitle, &e.Level, &success, &e.Error,
			&e.ElementsSelected, &e.ElementsRewritten,
			&e.SummaryWords, &elapsedMS, &createdAt); err != nil {
			return nil, fmt.Errorf("history: scan row: %w", err)
		}
		e.Success = success != 0
		e.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			e.CreatedAt = t
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate rows: %w", err)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
