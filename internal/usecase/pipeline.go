package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"NewsVideoPipeline/internal/domain"
	"NewsVideoPipeline/internal/ledger"
	"NewsVideoPipeline/internal/ports"
)

// ErrRunStopped marks a run that ended because a stop was requested.
var ErrRunStopped = errors.New("run stopped")

// PipelineDeps wires the orchestrator.
type PipelineDeps struct {
	Executor  *Executor
	Ledger    *ledger.Ledger
	Notifiers []ports.Notifier
	OutputDir string
	Location  *time.Location
	Clock     func() time.Time
}

// Pipeline drives the eight stages of one run in order.
type Pipeline struct {
	executor  *Executor
	ledger    *ledger.Ledger
	notifiers []ports.Notifier
	outputDir string
	location  *time.Location
	now       func() time.Time
	logger    *slog.Logger

	// stopPending reports a stop requested before the ledger was reset.
	stopPending func() bool
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	l := deps.Ledger
	if l == nil {
		l = ledger.New(nil, logger)
	}
	return &Pipeline{
		executor:  deps.Executor,
		ledger:    l,
		notifiers: deps.Notifiers,
		outputDir: deps.OutputDir,
		location:  loc,
		now:       clock,
		logger:    logger.With("component", "pipeline"),
	}
}

// Ledger exposes the run record written by this pipeline.
func (p *Pipeline) Ledger() *ledger.Ledger {
	return p.ledger
}

// Run executes the requested stages synchronously and returns the final
// ledger snapshot. The error is non-nil when the run did not complete.
func (p *Pipeline) Run(ctx context.Context, req domain.RunRequest) (domain.RunSnapshot, error) {
	if req.Steps == (domain.StepRange{}) {
		req.Steps = domain.FullRange()
	}
	if err := req.Steps.Validate(); err != nil {
		return domain.RunSnapshot{}, err
	}

	now := p.now()
	day := req.Day
	if day.IsZero() {
		day = now.In(p.location)
	}
	runID := domain.RunID(day)
	artifacts := NewArtifacts(filepath.Join(p.outputDir, runID))

	attemptID := p.ledger.Reset(ctx, runID, artifacts.Dir(), req)
	logger := p.logger.With("run_id", runID, "attempt_id", attemptID)
	mode := "full"
	if req.DryRun {
		mode = "dry run"
	}
	logger.Info("pipeline started", "date", day.Format(ScriptDateLayout), "output", artifacts.Dir(),
		"mode", mode, "start_step", int(req.Steps.Start), "end_step", int(req.Steps.End))

	run := &Run{
		ID:        runID,
		Day:       day,
		Now:       now,
		DryRun:    req.DryRun,
		Artifacts: artifacts,
		Results:   p.previousResults(artifacts),
	}
	for k, v := range run.Results {
		p.ledger.SetResult(k, v)
	}

	failedStage, runErr := p.runStages(ctx, run, req.Steps, logger)
	if runErr == nil {
		if err := artifacts.SaveJSON(domain.ResultsFile, run.Results); err != nil {
			runErr = err
		}
	}

	snap := p.ledger.Finish(ctx, runErr)
	switch {
	case runErr == nil:
		logger.Info("pipeline complete", "output", artifacts.Dir(), "results", run.Results)
	case errors.Is(runErr, ErrRunStopped):
		logger.Warn("pipeline stopped", "error", runErr)
	default:
		logger.Error("pipeline failed", "step", int(failedStage), "error", runErr)
		p.notifyFailure(ctx, failedStage, runErr, logger)
	}
	return snap, runErr
}

func (p *Pipeline) runStages(ctx context.Context, run *Run, steps domain.StepRange, logger *slog.Logger) (domain.Stage, error) {
	if err := run.Artifacts.Ensure(); err != nil {
		return steps.Start, err
	}
	for _, stage := range steps.Stages() {
		if p.stopRequested() {
			p.ledger.Append(ctx, stage, "stop requested")
			return stage, fmt.Errorf("%w before stage %d", ErrRunStopped, int(stage))
		}
		if err := ctx.Err(); err != nil {
			return stage, fmt.Errorf("%w before stage %d: %v", ErrRunStopped, int(stage), err)
		}

		p.ledger.SetStep(stage)
		p.ledger.Append(ctx, stage, stage.Label())
		logger.Info("stage started", "step", int(stage), "stage", stage.Name())

		outcome, err := p.executor.Execute(ctx, stage, run)
		for k, v := range run.Results {
			p.ledger.SetResult(k, v)
		}
		if err != nil {
			err = fmt.Errorf("step %d (%s): %w", int(stage), stage.Name(), err)
			p.ledger.Append(ctx, stage, "failed: "+err.Error())
			return stage, err
		}

		switch {
		case outcome.Skipped:
			logger.Info("stage skipped", "step", int(stage), "stage", stage.Name(), "reason", outcome.Summary)
		case outcome.Degraded:
			logger.Warn("stage degraded", "step", int(stage), "stage", stage.Name(), "summary", outcome.Summary)
		default:
			logger.Info("stage done", "step", int(stage), "stage", stage.Name(), "summary", outcome.Summary)
		}
		p.ledger.Append(ctx, stage, outcome.Summary)
	}
	return 0, nil
}

func (p *Pipeline) stopRequested() bool {
	if p.ledger.StopRequested() {
		return true
	}
	if p.stopPending != nil && p.stopPending() {
		p.ledger.RequestStop()
		return true
	}
	return false
}

// previousResults seeds the summary with values written by earlier runs of the
// same day so a resumed range reports the whole day.
func (p *Pipeline) previousResults(artifacts *Artifacts) domain.RunResult {
	results := domain.RunResult{}
	if _, err := artifacts.LoadJSON(domain.ResultsFile, &results); err != nil {
		p.logger.Warn("ignoring unreadable results file", "error", err)
		return domain.RunResult{}
	}
	return results
}

func (p *Pipeline) notifyFailure(ctx context.Context, stage domain.Stage, runErr error, logger *slog.Logger) {
	msg := FailureMessage(stage, runErr, p.now())
	for _, notifier := range p.notifiers {
		if err := notifier.Notify(ctx, msg); err != nil {
			logger.Warn("failure notification not sent", "error", err)
		}
	}
}
