package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"

	"intake/internal/registry"
)

// ErrLocked is returned when another process already holds the ledger lock.
var ErrLocked = errors.New("ledger is locked by another process")

// Outcome is one terminal transition recorded for a transcript file.
type Outcome struct {
	ID            int64
	BatchID       string
	Path          string
	State         registry.State
	RecordID      string
	InterviewCode string
	CreatedAt     time.Time
}

// Store persists batch outcomes backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

const schema = `
CREATE TABLE IF NOT EXISTS outcomes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    batch_id TEXT NOT NULL,
    path TEXT NOT NULL,
    state TEXT NOT NULL,
    record_id TEXT NOT NULL DEFAULT '',
    interview_code TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_outcomes_batch ON outcomes(batch_id);
`

// Open initializes or connects to the ledger database in dir, acquiring an
// exclusive lock so concurrent sessions cannot interleave writes.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure ledger dir: %w", err)
	}

	lock := flock.New(filepath.Join(dir, "ledger.lock"))
	held, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire ledger lock: %w", err)
	}
	if !held {
		return nil, ErrLocked
	}

	dbPath := filepath.Join(dir, "ledger.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("apply ledger schema: %w", err)
	}

	return &Store{db: db, path: dbPath, lock: lock}, nil
}

// Close closes the database connection and releases the ledger lock.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	if unlockErr := s.lock.Unlock(); err == nil {
		err = unlockErr
	}
	return err
}

// Path returns the ledger database file path.
func (s *Store) Path() string {
	return s.path
}

// RecordOutcome appends one terminal transition to the ledger.
func (s *Store) RecordOutcome(ctx context.Context, o Outcome) error {
	timestamp := o.CreatedAt
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO outcomes (batch_id, path, state, record_id, interview_code, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		o.BatchID,
		o.Path,
		string(o.State),
		o.RecordID,
		o.InterviewCode,
		timestamp.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

// History returns the most recent outcomes, newest first. A limit of zero or
// below returns everything.
func (s *Store) History(ctx context.Context, limit int) ([]Outcome, error) {
	query := `SELECT id, batch_id, path, state, record_id, interview_code, created_at
              FROM outcomes ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	return scanOutcomes(rows)
}

// BatchOutcomes returns every outcome recorded for one batch, oldest first.
func (s *Store) BatchOutcomes(ctx context.Context, batchID string) ([]Outcome, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, batch_id, path, state, record_id, interview_code, created_at
         FROM outcomes WHERE batch_id = ? ORDER BY id ASC`,
		batchID,
	)
	if err != nil {
		return nil, fmt.Errorf("query batch outcomes: %w", err)
	}
	defer rows.Close()

	return scanOutcomes(rows)
}

func scanOutcomes(rows *sql.Rows) ([]Outcome, error) {
	var outcomes []Outcome
	for rows.Next() {
		var (
			o       Outcome
			state   string
			created string
		)
		if err := rows.Scan(&o.ID, &o.BatchID, &o.Path, &state, &o.RecordID, &o.InterviewCode, &created); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.State = registry.State(state)
		if parsed, err := time.Parse(time.RFC3339Nano, created); err == nil {
			o.CreatedAt = parsed
		}
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return outcomes, nil
}
