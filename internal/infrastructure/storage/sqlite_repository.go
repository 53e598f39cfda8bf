package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"NewsVideoPipeline/internal/domain"
	"NewsVideoPipeline/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	attempt_id   TEXT PRIMARY KEY,
	run_id       TEXT NOT NULL,
	status       TEXT NOT NULL,
	dry_run      INTEGER NOT NULL DEFAULT 0,
	start_step   INTEGER NOT NULL,
	end_step     INTEGER NOT NULL,
	current_step INTEGER NOT NULL DEFAULT 0,
	output_dir   TEXT NOT NULL DEFAULT '',
	started_at   TEXT NOT NULL,
	completed_at TEXT,
	results      TEXT NOT NULL DEFAULT '{}',
	error        TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
CREATE TABLE IF NOT EXISTS events (
	id         TEXT PRIMARY KEY,
	attempt_id TEXT NOT NULL REFERENCES runs(attempt_id) ON DELETE CASCADE,
	seq        INTEGER NOT NULL,
	at         TEXT NOT NULL,
	step       INTEGER NOT NULL,
	message    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_attempt ON events(attempt_id, seq);
`

// Fixed-width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteRepository keeps run history in a SQLite database.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ ports.RunRepository = (*SQLiteRepository)(nil)

// Open creates the database file (or ":memory:") and applies the schema.
func Open(path string) (*SQLiteRepository, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer at a time; an in-memory database also lives on a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteRepository{db: db, now: time.Now}, nil
}

// Close releases the database.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func attemptKey(run domain.RunSnapshot) string {
	if run.AttemptID != "" {
		return run.AttemptID
	}
	return run.ID
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

// BeginRun records a fresh attempt; restarting an attempt replaces it.
func (r *SQLiteRepository) BeginRun(ctx context.Context, run domain.RunSnapshot) error {
	started := run.StartedAt
	if started == nil {
		now := r.now()
		started = &now
	}
	_, err := sq.Insert("runs").
		Options("OR REPLACE").
		Columns("attempt_id", "run_id", "status", "dry_run", "start_step", "end_step", "current_step", "output_dir", "started_at").
		Values(attemptKey(run), run.ID, string(run.Status), run.DryRun, int(run.StartStep), int(run.EndStep), int(run.CurrentStep), run.OutputDir, formatTime(started)).
		RunWith(r.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// AppendEvent adds one ledger line to an attempt.
func (r *SQLiteRepository) AppendEvent(ctx context.Context, attemptID string, entry domain.LogEntry) error {
	at := entry.Time
	if at.IsZero() {
		at = r.now()
	}
	nextSeq := sq.Expr("(SELECT COALESCE(MAX(seq), 0) + 1 FROM events WHERE attempt_id = ?)", attemptID)
	_, err := sq.Insert("events").
		Columns("id", "attempt_id", "seq", "at", "step", "message").
		Values(uuid.NewString(), attemptID, nextSeq, at.UTC().Format(timeLayout), int(entry.Stage), entry.Message).
		RunWith(r.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// FinishRun stores the terminal state and results of an attempt.
func (r *SQLiteRepository) FinishRun(ctx context.Context, run domain.RunSnapshot) error {
	results, err := json.Marshal(run.Results.Clone())
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	completed := run.CompletedAt
	if completed == nil {
		now := r.now()
		completed = &now
	}
	res, err := sq.Update("runs").
		SetMap(map[string]any{
			"status":       string(run.Status),
			"current_step": int(run.CurrentStep),
			"output_dir":   run.OutputDir,
			"completed_at": formatTime(completed),
			"results":      string(results),
			"error":        run.Error,
		}).
		Where(sq.Eq{"attempt_id": attemptKey(run)}).
		RunWith(r.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: attempt was never begun", attemptKey(run))
	}
	return nil
}

// ListRuns returns the most recent attempts first, each with its log.
func (r *SQLiteRepository) ListRuns(ctx context.Context, limit uint64) ([]domain.RunSnapshot, error) {
	query := sq.Select("attempt_id", "run_id", "status", "dry_run", "start_step", "end_step", "current_step", "output_dir", "started_at", "completed_at", "results", "error").
		From("runs").
		OrderBy("started_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	rows, err := query.RunWith(r.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	var runs []domain.RunSnapshot
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("close rows: %w", err)
	}

	for i := range runs {
		log, err := r.events(ctx, runs[i].AttemptID)
		if err != nil {
			return nil, err
		}
		runs[i].Log = log
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (domain.RunSnapshot, error) {
	var (
		run                         domain.RunSnapshot
		status, startedAt, results  string
		startStep, endStep, current int
		completedAt                 sql.NullString
	)
	err := row.Scan(&run.AttemptID, &run.ID, &status, &run.DryRun, &startStep, &endStep, &current,
		&run.OutputDir, &startedAt, &completedAt, &results, &run.Error)
	if err != nil {
		return run, fmt.Errorf("scan run: %w", err)
	}
	run.Status = domain.RunStatus(status)
	run.StartStep, run.EndStep, run.CurrentStep = domain.Stage(startStep), domain.Stage(endStep), domain.Stage(current)
	run.TotalSteps = endStep - startStep + 1

	if t, err := time.Parse(timeLayout, startedAt); err == nil {
		run.StartedAt = &t
	}
	if completedAt.Valid {
		if t, err := time.Parse(timeLayout, completedAt.String); err == nil {
			run.CompletedAt = &t
		}
	}
	run.Results = domain.RunResult{}
	if err := json.Unmarshal([]byte(results), &run.Results); err != nil {
		return run, fmt.Errorf("decode results of %s: %w", run.AttemptID, err)
	}
	return run, nil
}

func (r *SQLiteRepository) events(ctx context.Context, attemptID string) ([]domain.LogEntry, error) {
	rows, err := sq.Select("at", "step", "message").
		From("events").
		Where(sq.Eq{"attempt_id": attemptID}).
		OrderBy("seq").
		RunWith(r.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	log := []domain.LogEntry{}
	for rows.Next() {
		var (
			at    string
			step  int
			entry domain.LogEntry
		)
		if err := rows.Scan(&at, &step, &entry.Message); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		entry.Stage = domain.Stage(step)
		if t, err := time.Parse(timeLayout, at); err == nil {
			entry.Time = t
		}
		log = append(log, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("events iteration: %w", err)
	}
	return log, nil
}
