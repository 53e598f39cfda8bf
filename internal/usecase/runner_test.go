package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"NewsVideoPipeline/internal/domain"
	"NewsVideoPipeline/internal/logging"
)

func blockingRunner(h *harness) (*Runner, *blockingSource) {
	src := &blockingSource{started: make(chan struct{}), release: make(chan struct{})}
	factory := func(context.Context) (*Pipeline, error) {
		p := h.pipeline()
		p.executor.deps.Source = src
		return p, nil
	}
	return NewRunner(factory, h.ledger, logging.Discard()), src
}

func TestRunner_RejectsConcurrentRuns(t *testing.T) {
	t.Parallel()

	h := newHarness(t.TempDir())
	r, src := blockingRunner(h)
	ctx := context.Background()

	require.NoError(t, r.Start(ctx, domain.RunRequest{DryRun: true}))
	<-src.started

	require.True(t, r.Running())
	require.True(t, r.Status().Status.Active())
	require.ErrorIs(t, r.Start(ctx, domain.RunRequest{}), ErrRunInProgress)

	close(src.release)
	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, r.Wait(waitCtx))

	require.False(t, r.Running())
	require.NoError(t, r.LastError())
	require.Equal(t, domain.RunCompleted, r.Status().Status)
}

func TestRunner_StopEndsRunAtBoundary(t *testing.T) {
	t.Parallel()

	h := newHarness(t.TempDir())
	r, src := blockingRunner(h)
	ctx := context.Background()

	require.False(t, r.Stop(), "nothing to stop yet")
	require.NoError(t, r.Start(ctx, domain.RunRequest{DryRun: true}))
	<-src.started

	require.True(t, r.Stop())
	require.Equal(t, domain.RunStopping, r.Status().Status)
	close(src.release)

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, r.Wait(waitCtx))
	require.ErrorIs(t, r.LastError(), ErrRunStopped)
	require.Equal(t, domain.RunFailed, r.Status().Status)
}

func TestRunner_RunAgainAfterFinish(t *testing.T) {
	t.Parallel()

	h := newHarness(t.TempDir())
	factory := func(context.Context) (*Pipeline, error) { return h.pipeline(), nil }
	r := NewRunner(factory, h.ledger, logging.Discard())

	snap, err := r.Run(context.Background(), domain.RunRequest{DryRun: true, Steps: domain.StepRange{Start: 1, End: 1}})
	require.NoError(t, err)
	require.Equal(t, domain.RunCompleted, snap.Status)
	first := snap.AttemptID

	snap, err = r.Run(context.Background(), domain.RunRequest{DryRun: true, Steps: domain.StepRange{Start: 1, End: 2}})
	require.NoError(t, err)
	require.Equal(t, domain.RunCompleted, snap.Status)
	require.NotEqual(t, first, snap.AttemptID)
}

func TestRunner_FactoryErrorIsRecorded(t *testing.T) {
	t.Parallel()

	h := newHarness(t.TempDir())
	boom := errors.New("config unreadable")
	r := NewRunner(func(context.Context) (*Pipeline, error) { return nil, boom }, h.ledger, logging.Discard())

	snap, err := r.Run(context.Background(), domain.RunRequest{})
	require.ErrorIs(t, err, boom)
	require.Equal(t, domain.RunFailed, snap.Status)
	require.Contains(t, snap.Error, "config unreadable")
}

func TestRunner_RejectsInvalidRangeSynchronously(t *testing.T) {
	t.Parallel()

	h := newHarness(t.TempDir())
	r := NewRunner(func(context.Context) (*Pipeline, error) { return h.pipeline(), nil }, h.ledger, logging.Discard())

	err := r.Start(context.Background(), domain.RunRequest{Steps: domain.StepRange{Start: 0, End: 9}})
	require.Error(t, err)
	require.False(t, r.Running())
}

func TestRunner_StopWhilePipelineIsBuilding(t *testing.T) {
	t.Parallel()

	h := newHarness(t.TempDir())
	building := make(chan struct{})
	release := make(chan struct{})
	factory := func(context.Context) (*Pipeline, error) {
		close(building)
		<-release
		return h.pipeline(), nil
	}
	r := NewRunner(factory, h.ledger, logging.Discard())
	ctx := context.Background()

	require.NoError(t, r.Start(ctx, domain.RunRequest{DryRun: true}))
	<-building

	require.True(t, r.Stop(), "stop during startup must be accepted")
	require.Equal(t, domain.RunStopping, r.Status().Status)
	close(release)

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, r.Wait(waitCtx))
	require.ErrorIs(t, r.LastError(), ErrRunStopped)

	snap := r.Status()
	require.Equal(t, domain.RunFailed, snap.Status)
	require.Contains(t, snap.Error, "before stage 1")
	require.Empty(t, h.log.list(), "no stage may run after an early stop")

	// The flag belongs to one run only.
	_, err := r.Run(ctx, domain.RunRequest{DryRun: true, Steps: domain.StepRange{Start: 1, End: 1}})
	require.NoError(t, err)
}
