package history

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"sweep-go/internal/history/migrations"
	"sweep-go/internal/sweep"
)

// SQLiteHistory implements sweep.History on a SQLite database. Each
// completed scan or sync run becomes one row.
type SQLiteHistory struct {
	db *sql.DB
}

// Open opens (and migrates) the history database at path. ":memory:"
// gives an in-memory database for tests.
func Open(path string) (*SQLiteHistory, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating history database: %w", err)
	}
	return &SQLiteHistory{db: db}, nil
}

// Close closes the underlying database.
func (h *SQLiteHistory) Close() error {
	return h.db.Close()
}

// RecordRun inserts one completed run. A missing ID gets a fresh UUID.
func (h *SQLiteHistory) RecordRun(rec sweep.RunRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	_, err := h.db.Exec(`
		INSERT INTO runs (id, kind, rule, started_at, finished_at, scanned, deleted, synced, errors, bytes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Kind, rec.Rule, rec.StartedAt, rec.FinishedAt,
		rec.Scanned, rec.Deleted, rec.Synced, rec.Errors, rec.Bytes)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

// RecentRuns returns the most recent runs, newest first.
func (h *SQLiteHistory) RecentRuns(limit int) ([]sweep.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.db.Query(`
		SELECT id, kind, rule, started_at, finished_at, scanned, deleted, synced, errors, bytes
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []sweep.RunRecord
	for rows.Next() {
		var rec sweep.RunRecord
		if err := rows.Scan(&rec.ID, &rec.Kind, &rec.Rule, &rec.StartedAt, &rec.FinishedAt,
			&rec.Scanned, &rec.Deleted, &rec.Synced, &rec.Errors, &rec.Bytes); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return out, nil
}

// Compile-time check that SQLiteHistory implements the interface.
var _ sweep.History = (*SQLiteHistory)(nil)
