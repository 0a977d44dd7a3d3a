// Package journal keeps a history of per-module run outcomes in SQLite. It
// is purely observational: journal failures are logged and never fail a
// build, and the staleness decision does not consult it.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one per-module outcome row.
type Entry struct {
	ID        int64
	RunID     string
	Module    string
	Outcome   string
	Version   string
	Digest    string
	Duration  time.Duration
	CreatedAt time.Time
}

// Journal persists run outcomes.
type Journal struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates a journal backed by the SQLite database at dbPath. Use
// ":memory:" for tests.
func Open(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	j := &Journal{db: db}
	if err := j.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return j, nil
}

func (j *Journal) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS build_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		module TEXT NOT NULL,
		outcome TEXT NOT NULL,
		version TEXT NOT NULL,
		digest TEXT NOT NULL,
		duration_ms INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_build_events_module ON build_events(module);
	CREATE INDEX IF NOT EXISTS idx_build_events_run_id ON build_events(run_id);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Record appends one outcome row.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := j.db.ExecContext(ctx,
		"INSERT INTO build_events (run_id, module, outcome, version, digest, duration_ms, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		e.RunID, e.Module, e.Outcome, e.Version, e.Digest, e.Duration.Milliseconds(), createdAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert build event: %w", err)
	}
	return nil
}

// Recent returns the newest entries, optionally filtered by module.
func (j *Journal) Recent(ctx context.Context, module string, limit int) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}

	query := "SELECT id, run_id, module, outcome, version, digest, duration_ms, created_at FROM build_events"
	args := []any{}
	if module != "" {
		query += " WHERE module = ?"
		args = append(args, module)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query build events: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var durationMS, createdUnix int64
		if err := rows.Scan(&e.ID, &e.RunID, &e.Module, &e.Outcome, &e.Version, &e.Digest, &durationMS, &createdUnix); err != nil {
			return nil, fmt.Errorf("scan build event: %w", err)
		}
		e.Duration = time.Duration(durationMS) * time.Millisecond
		e.CreatedAt = time.Unix(createdUnix, 0)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return entries, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.db.Close()
}
