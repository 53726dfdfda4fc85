package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one journaled capture attempt.
type Entry struct {
	RunID           string
	Outcome         string
	FailedPhase     string
	URL             string
	ReportedSeconds int
	DurationSeconds int
	CaptureExitCode int
	// MeasuredSeconds is nil when the output was not verified.
	MeasuredSeconds *float64
	StepFailures    int
	Error           string
	StartedAt       time.Time
	FinishedAt      time.Time
}

// Elapsed returns the wall time of the attempt.
func (e Entry) Elapsed() time.Duration {
	if e.FinishedAt.Before(e.StartedAt) {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}

// Store manages the journal database.
type Store struct {
	db   *sql.DB
	path string
	keep int
}

// Open creates or connects to the journal at path. keep bounds the number of
// rows retained; zero or less keeps everything.
func Open(ctx context.Context, path string, keep int) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history path required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single connection keeps PRAGMAs and in-memory databases consistent.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}

	store := &Store{db: db, path: path, keep: keep}
	if err := store.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts an entry and prunes old rows.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	var measured sql.NullFloat64
	if entry.MeasuredSeconds != nil {
		measured = sql.NullFloat64{Float64: *entry.MeasuredSeconds, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO runs (
		run_id, outcome, failed_phase, url, reported_seconds, duration_seconds,
		capture_exit_code, measured_seconds, step_failures, error_message, started_at, finished_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID,
		entry.Outcome,
		entry.FailedPhase,
		entry.URL,
		entry.ReportedSeconds,
		entry.DurationSeconds,
		entry.CaptureExitCode,
		measured,
		entry.StepFailures,
		entry.Error,
		formatTime(entry.StartedAt),
		formatTime(entry.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", entry.RunID, err)
	}
	return s.prune(ctx)
}

func (s *Store) prune(ctx context.Context) error {
	if s.keep <= 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY id DESC LIMIT ?)`, s.keep)
	if err != nil {
		return fmt.Errorf("prune history: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `SELECT
		run_id, outcome, failed_phase, url, reported_seconds, duration_seconds,
		capture_exit_code, measured_seconds, step_failures, error_message, started_at, finished_at
		FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry             Entry
			measured          sql.NullFloat64
			started, finished string
		)
		if err := rows.Scan(
			&entry.RunID,
			&entry.Outcome,
			&entry.FailedPhase,
			&entry.URL,
			&entry.ReportedSeconds,
			&entry.DurationSeconds,
			&entry.CaptureExitCode,
			&measured,
			&entry.StepFailures,
			&entry.Error,
			&started,
			&finished,
		); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		if measured.Valid {
			value := measured.Float64
			entry.MeasuredSeconds = &value
		}
		entry.StartedAt = parseTime(started)
		entry.FinishedAt = parseTime(finished)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

// Count returns the number of journaled runs.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM runs").Scan(&count); err != nil {
		return 0, fmt.Errorf("count history: %w", err)
	}
	return count, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
