// Package ledger keeps the append-only record of the current run: step
// transitions, results and final status. It is safe for concurrent readers
// while the orchestrator writes.
package ledger

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"NewsVideoPipeline/internal/domain"
	"NewsVideoPipeline/internal/ports"
)

// Ledger is the in-memory run record with an optional persistent sink.
type Ledger struct {
	mu   sync.RWMutex
	run  domain.RunSnapshot
	sink ports.RunRepository
	now  func() time.Time

	logger *slog.Logger
}

// New creates an idle ledger. sink may be nil.
func New(sink ports.RunRepository, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{
		run:    domain.RunSnapshot{Status: domain.RunIdle, Results: domain.RunResult{}},
		sink:   sink,
		now:    time.Now,
		logger: logger.With("component", "ledger"),
	}
}

// WithClock overrides the timestamp source.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
	return l
}

// Reset starts a fresh record for a new run and returns its attempt id.
func (l *Ledger) Reset(ctx context.Context, runID, outputDir string, req domain.RunRequest) string {
	l.mu.Lock()
	started := l.now()
	l.run = domain.RunSnapshot{
		ID:         runID,
		AttemptID:  uuid.NewString(),
		Status:     domain.RunRunning,
		DryRun:     req.DryRun,
		StartStep:  req.Steps.Start,
		EndStep:    req.Steps.End,
		TotalSteps: len(req.Steps.Stages()),
		OutputDir:  outputDir,
		StartedAt:  &started,
		Results:    domain.RunResult{},
	}
	snap := cloneSnapshot(l.run)
	l.mu.Unlock()

	if l.sink != nil {
		if err := l.sink.BeginRun(ctx, snap); err != nil {
			l.logger.Warn("failed to persist run start", "run_id", runID, "error", err)
		}
	}
	return snap.AttemptID
}

// SetStep marks stage as the one currently executing.
func (l *Ledger) SetStep(stage domain.Stage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.run.CurrentStep = stage
	l.run.StepName = stage.Label()
}

// Append adds one log line for stage.
func (l *Ledger) Append(ctx context.Context, stage domain.Stage, message string) {
	l.mu.Lock()
	entry := domain.LogEntry{Time: l.now(), Stage: stage, Message: message}
	l.run.Log = append(l.run.Log, entry)
	attemptID := l.run.AttemptID
	l.mu.Unlock()

	if l.sink != nil && attemptID != "" {
		if err := l.sink.AppendEvent(ctx, attemptID, entry); err != nil {
			l.logger.Warn("failed to persist run event", "attempt_id", attemptID, "error", err)
		}
	}
}

// SetResult records one results-summary value.
func (l *Ledger) SetResult(key, value string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.run.Results == nil {
		l.run.Results = domain.RunResult{}
	}
	l.run.Results[key] = value
}

// Results returns a copy of the results recorded so far.
func (l *Ledger) Results() domain.RunResult {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.run.Results.Clone()
}

// RequestStop flags the active run for a cooperative stop. It reports false
// when there is no active run.
func (l *Ledger) RequestStop() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.run.Status != domain.RunRunning {
		return l.run.Status == domain.RunStopping
	}
	l.run.Status = domain.RunStopping
	l.run.StopPending = true
	return true
}

// StopRequested reports whether a stop was asked for during this run.
func (l *Ledger) StopRequested() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.run.StopPending
}

// Finish records the terminal status. runErr is nil on success.
func (l *Ledger) Finish(ctx context.Context, runErr error) domain.RunSnapshot {
	l.mu.Lock()
	completed := l.now()
	l.run.CompletedAt = &completed
	if runErr != nil {
		l.run.Status = domain.RunFailed
		l.run.Error = runErr.Error()
	} else {
		l.run.Status = domain.RunCompleted
	}
	snap := cloneSnapshot(l.run)
	l.mu.Unlock()

	if l.sink != nil {
		if err := l.sink.FinishRun(ctx, snap); err != nil {
			l.logger.Warn("failed to persist run finish", "run_id", snap.ID, "error", err)
		}
	}
	return snap
}

// Snapshot returns an independent copy of the current record.
func (l *Ledger) Snapshot() domain.RunSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneSnapshot(l.run)
}

// History lists persisted runs, newest first. Without a sink it returns the
// current run only.
func (l *Ledger) History(ctx context.Context, limit uint64) ([]domain.RunSnapshot, error) {
	if l.sink == nil {
		snap := l.Snapshot()
		if snap.ID == "" {
			return nil, nil
		}
		return []domain.RunSnapshot{snap}, nil
	}
	return l.sink.ListRuns(ctx, limit)
}

func cloneSnapshot(in domain.RunSnapshot) domain.RunSnapshot {
	out := in
	out.Log = slices.Clone(in.Log)
	out.Results = in.Results.Clone()
	if in.StartedAt != nil {
		t := *in.StartedAt
		out.StartedAt = &t
	}
	if in.CompletedAt != nil {
		t := *in.CompletedAt
		out.CompletedAt = &t
	}
	return out
}
