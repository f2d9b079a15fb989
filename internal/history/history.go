// Package history records write operations in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	_ "modernc.org/sqlite"
)

const writesTable = "writes"

// Fixed-width UTC timestamps sort lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Entry is one recorded write.
type Entry struct {
	ID         string    `json:"id"`
	ImagePath  string    `json:"image_path"`
	DevicePath string    `json:"device_path"`
	DeviceName string    `json:"device_name"`
	Bytes      uint64    `json:"bytes"`
	Verified   bool      `json:"verified"`
	Ejected    bool      `json:"ejected"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Error      string    `json:"error,omitempty"`
}

// Succeeded reports whether the write finished without error.
func (e Entry) Succeeded() bool { return e.Error == "" }

// Duration is the wall time of the write.
func (e Entry) Duration() time.Duration { return e.FinishedAt.Sub(e.StartedAt) }

// Store persists entries.
type Store struct {
	db *sql.DB
}

// DefaultPath returns $XDG_DATA_HOME/imgflash/history.db, falling back to
// ~/.local/share.
func DefaultPath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "imgflash", "history.db")
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "create history dir for %s failed", path)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open history database failed")
	}
	if err := configureSQLite(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	log.Debug().Str("path", path).Msg("history store opened")
	return &Store{db: db}, nil
}

func configureSQLite(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA temp_store=MEMORY;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return errors.Wrapf(err, "execute sqlite pragma %s failed", stmt)
		}
	}
	db.SetMaxOpenConns(1)
	return nil
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + writesTable + ` (
			id TEXT PRIMARY KEY,
			image_path TEXT NOT NULL,
			device_path TEXT NOT NULL,
			device_name TEXT NOT NULL DEFAULT '',
			bytes INTEGER NOT NULL DEFAULT 0,
			verified INTEGER NOT NULL DEFAULT 0,
			ejected INTEGER NOT NULL DEFAULT 0,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_writes_started_at ON ` + writesTable + ` (started_at)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return errors.Wrap(err, "create history schema failed")
		}
	}
	return nil
}

// Record stores e, assigning an ID when it has none.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO `+writesTable+` (id, image_path, device_path, device_name, bytes, verified, ejected, started_at, finished_at, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ImagePath, e.DevicePath, e.DeviceName, int64(e.Bytes),
		e.Verified, e.Ejected,
		e.StartedAt.UTC().Format(timeLayout), e.FinishedAt.UTC().Format(timeLayout),
		e.Error,
	)
	if err != nil {
		return e, errors.Wrapf(err, "insert history entry %s failed", e.ID)
	}
	return e, nil
}

// List returns up to limit entries, newest first. A non-positive limit
// returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, image_path, device_path, device_name, bytes, verified, ejected, started_at, finished_at, error
		FROM ` + writesTable + ` ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query history failed")
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e                 Entry
			bytes             int64
			started, finished string
		)
		if err := rows.Scan(&e.ID, &e.ImagePath, &e.DevicePath, &e.DeviceName, &bytes,
			&e.Verified, &e.Ejected, &started, &finished, &e.Error); err != nil {
			return nil, errors.Wrap(err, "scan history row failed")
		}
		if bytes > 0 {
			e.Bytes = uint64(bytes)
		}
		if e.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, errors.Wrapf(err, "parse started_at of %s failed", e.ID)
		}
		if e.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
			return nil, errors.Wrapf(err, "parse finished_at of %s failed", e.ID)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate history rows failed")
	}
	return entries, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
