// Package histdb persists finished commands to a SQLite database so
// they can be browsed and searched after the session ends.
package histdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/asheshgoplani/promptdeck/internal/logging"
)

var log = logging.ForComponent(logging.CompHistDB)

// SchemaVersion tracks the current database schema version.
// Bump this when adding migrations.
const SchemaVersion = 1

// DB wraps the SQLite command-history database. Thread-safe within a
// process; WAL mode plus a busy timeout make concurrent supervisor
// processes safe too.
type DB struct {
	db *sql.DB
}

// Command is one finished command.
type Command struct {
	ID         int64
	SessionID  string
	Cmd        string
	ExitStatus int
	Dir        string
	StartedAt  time.Time
	Duration   time.Duration
}

// Open creates or opens the history database at dbPath with WAL mode
// and a busy timeout.
func Open(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("histdb: mkdir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("histdb: open: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("histdb: %s: %w", pragma, err)
		}
	}

	return &DB{db: db}, nil
}

// Close checkpoints WAL and closes the database.
func (d *DB) Close() error {
	_, _ = d.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return d.db.Close()
}

// Migrate creates tables if they don't exist and records the schema
// version. Runs in a transaction so a partial migration never sticks.
func (d *DB) Migrate() error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("histdb: begin migrate: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS metadata (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("histdb: create metadata: %w", err)
	}

	if _, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS commands (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id  TEXT NOT NULL DEFAULT '',
			cmd         TEXT NOT NULL,
			exit_status INTEGER NOT NULL DEFAULT 0,
			dir         TEXT NOT NULL DEFAULT '',
			started_at  INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL DEFAULT 0
		)
	`); err != nil {
		return fmt.Errorf("histdb: create commands: %w", err)
	}

	if _, err := tx.Exec(`
		CREATE INDEX IF NOT EXISTS idx_commands_started_at
		ON commands(started_at DESC)
	`); err != nil {
		return fmt.Errorf("histdb: create index: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO metadata (key, value) VALUES ('schema_version', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, fmt.Sprintf("%d", SchemaVersion)); err != nil {
		return fmt.Errorf("histdb: schema version: %w", err)
	}

	return tx.Commit()
}

// Insert records a finished command.
func (d *DB) Insert(c Command) error {
	_, err := d.db.Exec(`
		INSERT INTO commands (session_id, cmd, exit_status, dir, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.SessionID, c.Cmd, c.ExitStatus, c.Dir, c.StartedAt.UnixMilli(), c.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("histdb: insert: %w", err)
	}
	return nil
}

// Recent returns the newest commands, most recent first.
func (d *DB) Recent(limit int) ([]Command, error) {
	return d.query(`
		SELECT id, session_id, cmd, exit_status, dir, started_at, duration_ms
		FROM commands ORDER BY started_at DESC, id DESC LIMIT ?
	`, limit)
}

// Failures returns the newest commands with a non-zero exit status.
func (d *DB) Failures(limit int) ([]Command, error) {
	return d.query(`
		SELECT id, session_id, cmd, exit_status, dir, started_at, duration_ms
		FROM commands WHERE exit_status != 0
		ORDER BY started_at DESC, id DESC LIMIT ?
	`, limit)
}

func (d *DB) query(q string, args ...any) ([]Command, error) {
	rows, err := d.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("histdb: query: %w", err)
	}
	defer rows.Close()

	var out []Command
	for rows.Next() {
		var c Command
		var startedMilli, durationMilli int64
		if err := rows.Scan(&c.ID, &c.SessionID, &c.Cmd, &c.ExitStatus, &c.Dir,
			&startedMilli, &durationMilli); err != nil {
			return nil, fmt.Errorf("histdb: scan: %w", err)
		}
		c.StartedAt = time.UnixMilli(startedMilli)
		c.Duration = time.Duration(durationMilli) * time.Millisecond
		out = append(out, c)
	}
	return out, rows.Err()
}

// Search returns the newest commands whose text contains term.
func (d *DB) Search(term string, limit int) ([]Command, error) {
	return d.query(`
		SELECT id, session_id, cmd, exit_status, dir, started_at, duration_ms
		FROM commands WHERE cmd LIKE ? ESCAPE '\'
		ORDER BY started_at DESC, id DESC LIMIT ?
	`, "%"+escapeLike(term)+"%", limit)
}

// escapeLike quotes LIKE metacharacters so a literal % or _ in the
// search term matches itself.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}

// PruneOlderThan removes commands that started before the cutoff.
// Returns the number of rows removed.
func (d *DB) PruneOlderThan(cutoff time.Time) (int64, error) {
	res, err := d.db.Exec(`DELETE FROM commands WHERE started_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("histdb: prune: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		log.Debug("pruned history", "rows", n)
	}
	return n, nil
}

// Count returns the total number of recorded commands.
func (d *DB) Count() (int64, error) {
	var n int64
	if err := d.db.QueryRow(`SELECT COUNT(*) FROM commands`).Scan(&n); err != nil {
		return 0, fmt.Errorf("histdb: count: %w", err)
	}
	return n, nil
}
