package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"NewsVideoPipeline/internal/domain"
	"NewsVideoPipeline/internal/ledger"
)

// ErrRunInProgress rejects a start while another run owns the worker.
var ErrRunInProgress = errors.New("a pipeline run is already in progress")

// PipelineFactory builds a pipeline from a freshly loaded configuration
// snapshot. It is called once at the start of every run.
type PipelineFactory func(ctx context.Context) (*Pipeline, error)

// Runner enforces single-run exclusivity and runs pipelines in the background.
type Runner struct {
	factory PipelineFactory
	ledger  *ledger.Ledger
	logger  *slog.Logger

	mu            sync.Mutex
	running       bool
	stopRequested bool
	done          chan struct{}
	lastErr       error
}

// NewRunner creates a Runner. Every pipeline the factory builds must write to l.
func NewRunner(factory PipelineFactory, l *ledger.Ledger, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	done := make(chan struct{})
	close(done)
	return &Runner{
		factory: factory,
		ledger:  l,
		logger:  logger.With("component", "runner"),
		done:    done,
	}
}

// Start launches a run on a background goroutine. It returns ErrRunInProgress
// when a run is active and a validation error for a bad step range.
func (r *Runner) Start(ctx context.Context, req domain.RunRequest) error {
	if req.Steps == (domain.StepRange{}) {
		req.Steps = domain.FullRange()
	}
	if err := req.Steps.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return ErrRunInProgress
	}
	r.running = true
	r.stopRequested = false
	r.lastErr = nil
	done := make(chan struct{})
	r.done = done
	r.mu.Unlock()

	go func() {
		err := r.execute(ctx, req)
		r.mu.Lock()
		r.running = false
		r.lastErr = err
		r.mu.Unlock()
		close(done)
	}()
	return nil
}

// Run starts a run and blocks until it finishes.
func (r *Runner) Run(ctx context.Context, req domain.RunRequest) (domain.RunSnapshot, error) {
	if err := r.Start(ctx, req); err != nil {
		return domain.RunSnapshot{}, err
	}
	if err := r.Wait(ctx); err != nil {
		return r.Status(), err
	}
	return r.Status(), r.LastError()
}

func (r *Runner) execute(ctx context.Context, req domain.RunRequest) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pipeline panic: %v", rec)
			r.logger.Error("pipeline panicked", "panic", rec)
			r.ledger.Finish(ctx, err)
		}
	}()

	pipeline, err := r.factory(ctx)
	if err != nil {
		r.logger.Error("cannot build pipeline", "error", err)
		r.ledger.Reset(ctx, domain.RunID(time.Now()), "", req)
		r.ledger.Append(ctx, req.Steps.Start, "configuration failed: "+err.Error())
		r.ledger.Finish(ctx, err)
		return err
	}
	pipeline.stopPending = r.StopRequested
	_, err = pipeline.Run(ctx, req)
	return err
}

// Wait blocks until the active run (if any) ends or ctx is done.
func (r *Runner) Wait(ctx context.Context) error {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop asks the active run to halt at the next stage boundary. It reports
// whether a run was active. A stop that arrives while the pipeline is still
// being built is kept and honoured before the first stage.
func (r *Runner) Stop() bool {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return false
	}
	r.stopRequested = true
	r.mu.Unlock()

	if !r.ledger.RequestStop() {
		r.logger.Info("stop requested while the run is starting")
		return true
	}
	r.logger.Info("stop requested")
	return true
}

// StopRequested reports whether Stop was called during the active run.
func (r *Runner) StopRequested() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running && r.stopRequested
}

// Running reports whether a run owns the worker.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// LastError returns the error of the most recent finished run.
func (r *Runner) LastError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// Status returns a snapshot of the current or most recent run.
func (r *Runner) Status() domain.RunSnapshot {
	snap := r.ledger.Snapshot()
	r.mu.Lock()
	running, stopping := r.running, r.stopRequested
	r.mu.Unlock()
	if running && !snap.Status.Active() {
		snap.Status = domain.RunRunning
		if stopping {
			snap.Status = domain.RunStopping
			snap.StopPending = true
		}
	}
	return snap
}

// Ledger returns the shared run record.
func (r *Runner) Ledger() *ledger.Ledger {
	return r.ledger
}
