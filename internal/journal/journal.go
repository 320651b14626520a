// Package journal persists run history in SQLite so users can audit what
// each run changed (or would have changed, for dry runs) and retry safely.
package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/othala/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	mode        TEXT NOT NULL,
	dry_run     INTEGER NOT NULL DEFAULT 1,
	started_at  DATETIME NOT NULL,
	finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS run_entries (
	run_id        INTEGER NOT NULL REFERENCES runs(id),
	note_path     TEXT NOT NULL,
	subject       TEXT NOT NULL,
	outcome       TEXT NOT NULL,
	reason        TEXT NOT NULL DEFAULT '',
	asset_path    TEXT NOT NULL DEFAULT '',
	note_checksum TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_entries_run ON run_entries(run_id);
CREATE INDEX IF NOT EXISTS idx_entries_note ON run_entries(note_path);
`

// DB wraps a sql.DB with journal-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the journal database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("journal: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("journal: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("journal: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Run is one recorded invocation.
type Run struct {
	ID         int64
	Mode       string
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time
}

// StartRun records a new run and returns its id.
func (db *DB) StartRun(mode string, dryRun bool) (int64, error) {
	res, err := db.conn.Exec(
		`INSERT INTO runs (mode, dry_run, started_at) VALUES (?, ?, ?)`,
		mode, dryRun, time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("journal: start run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("journal: run id: %w", err)
	}
	return id, nil
}

// FinishRun stamps the run's finish time.
func (db *DB) FinishRun(id int64) error {
	if _, err := db.conn.Exec(
		`UPDATE runs SET finished_at = ? WHERE id = ?`, time.Now().UTC(), id,
	); err != nil {
		return fmt.Errorf("journal: finish run: %w", err)
	}
	return nil
}

// AddEntry records one report entry for the run. checksum is the note's
// content hash at the time the entry was produced.
func (db *DB) AddEntry(runID int64, e models.Entry, checksum string) error {
	if _, err := db.conn.Exec(
		`INSERT INTO run_entries (run_id, note_path, subject, outcome, reason, asset_path, note_checksum)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, e.NotePath, e.Subject, string(e.Outcome), e.Reason, e.AssetPath, checksum,
	); err != nil {
		return fmt.Errorf("journal: add entry: %w", err)
	}
	return nil
}

// Entries returns the report entries recorded for a run, in insertion order.
func (db *DB) Entries(runID int64) ([]models.Entry, error) {
	rows, err := db.conn.Query(
		`SELECT note_path, subject, outcome, reason, asset_path
		 FROM run_entries WHERE run_id = ? ORDER BY rowid`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("journal: entries: %w", err)
	}
	defer rows.Close()

	var out []models.Entry
	for rows.Next() {
		var e models.Entry
		var outcome string
		if err := rows.Scan(&e.NotePath, &e.Subject, &outcome, &e.Reason, &e.AssetPath); err != nil {
			return nil, fmt.Errorf("journal: scan entry: %w", err)
		}
		e.Outcome = models.Outcome(outcome)
		out = append(out, e)
	}
	return out, rows.Err()
}

// LastRun returns the most recent run, or nil when the journal is empty.
func (db *DB) LastRun() (*Run, error) {
	row := db.conn.QueryRow(
		`SELECT id, mode, dry_run, started_at, COALESCE(finished_at, started_at)
		 FROM runs ORDER BY id DESC LIMIT 1`,
	)
	var r Run
	if err := row.Scan(&r.ID, &r.Mode, &r.DryRun, &r.StartedAt, &r.FinishedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("journal: last run: %w", err)
	}
	return &r, nil
}
