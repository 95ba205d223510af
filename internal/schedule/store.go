package schedule

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/crosspub/crosspub/internal/publish"
)

// Store wraps a SQLite database and provides CRUD operations for schedules.
// The core treats persistence as external; this store is the default backing
// for the CLI.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and initializes the schema.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL plus a busy timeout so concurrent schedule runs wait instead of
	// failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS schedules (
    id TEXT PRIMARY KEY,
    content_id TEXT NOT NULL,
    platform TEXT NOT NULL,
    publish_at TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'PENDING',
    published_at TEXT NOT NULL DEFAULT '',
    retry_count INTEGER NOT NULL DEFAULT 0,
    last_error TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_schedules_due ON schedules (status, publish_at);
`)
	return err
}

// Create inserts a new schedule.
func (s *Store) Create(sched *Schedule) error {
	_, err := s.db.Exec(`
INSERT INTO schedules (id, content_id, platform, publish_at, status, published_at, retry_count, last_error, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sched.ID, sched.ContentID, string(sched.Platform),
		formatTime(sched.PublishAt), string(sched.Status), formatTime(sched.PublishedAt),
		sched.RetryCount, sched.LastError, formatTime(sched.CreatedAt), formatTime(sched.UpdatedAt))
	return err
}

// Get loads one schedule by id.
func (s *Store) Get(id string) (*Schedule, error) {
	row := s.db.QueryRow(`
SELECT id, content_id, platform, publish_at, status, published_at, retry_count, last_error, created_at, updated_at
FROM schedules WHERE id = ?`, id)
	sched, err := scanSchedule(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("schedule %q not found", id)
	}
	return sched, err
}

// List returns every schedule ordered by publish time.
func (s *Store) List() ([]*Schedule, error) {
	rows, err := s.db.Query(`
SELECT id, content_id, platform, publish_at, status, published_at, retry_count, last_error, created_at, updated_at
FROM schedules ORDER BY publish_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSchedules(rows)
}

// Due returns PENDING schedules whose publish time is at or before now.
func (s *Store) Due(now time.Time) ([]*Schedule, error) {
	rows, err := s.db.Query(`
SELECT id, content_id, platform, publish_at, status, published_at, retry_count, last_error, created_at, updated_at
FROM schedules WHERE status = ? AND publish_at <= ? ORDER BY publish_at`,
		string(StatusPending), formatTime(now))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSchedules(rows)
}

// Save persists the mutable fields of a schedule.
func (s *Store) Save(sched *Schedule) error {
	res, err := s.db.Exec(`
UPDATE schedules
SET publish_at = ?, status = ?, published_at = ?, retry_count = ?, last_error = ?, updated_at = ?
WHERE id = ?`,
		formatTime(sched.PublishAt), string(sched.Status), formatTime(sched.PublishedAt),
		sched.RetryCount, sched.LastError, formatTime(sched.UpdatedAt), sched.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("schedule %q not found", sched.ID)
	}
	return nil
}

// Delete removes a schedule record.
func (s *Store) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM schedules WHERE id = ?`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (*Schedule, error) {
	var sched Schedule
	var platform, status, publishAt, publishedAt, createdAt, updatedAt string
	if err := row.Scan(&sched.ID, &sched.ContentID, &platform, &publishAt, &status,
		&publishedAt, &sched.RetryCount, &sched.LastError, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	sched.Platform = publish.Platform(platform)
	sched.Status = Status(status)
	sched.PublishAt = parseTime(publishAt)
	sched.PublishedAt = parseTime(publishedAt)
	sched.CreatedAt = parseTime(createdAt)
	sched.UpdatedAt = parseTime(updatedAt)
	return &sched, nil
}

func scanSchedules(rows *sql.Rows) ([]*Schedule, error) {
	var out []*Schedule
	for rows.Next() {
		sched, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sched)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
