package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"NewsVideoPipeline/internal/domain"
	"NewsVideoPipeline/internal/logging"
)

func newRun(t *testing.T) *Run {
	t.Helper()
	artifacts := NewArtifacts(t.TempDir())
	require.NoError(t, artifacts.Ensure())
	return &Run{ID: domain.RunID(testDay), Day: testDay, Now: testDay, Artifacts: artifacts}
}

func TestNextPublishTime(t *testing.T) {
	t.Parallel()

	kolkata := time.FixedZone("IST", 5*3600+1800)
	tests := []struct {
		name string
		now  time.Time
		loc  *time.Location
		want time.Time
	}{
		{
			name: "later today",
			now:  time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC),
			loc:  time.UTC,
			want: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "already passed rolls to tomorrow",
			now:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
			loc:  time.UTC,
			want: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "exactly on time rolls to tomorrow",
			now:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
			loc:  nil,
			want: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		},
		{
			name: "uses the schedule zone",
			now:  time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC), // 07:30 IST
			loc:  kolkata,
			want: time.Date(2026, 3, 1, 9, 0, 0, 0, kolkata),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := NextPublishTime(tc.now, 9, 0, tc.loc)
			require.True(t, tc.want.Equal(got), "want %s, got %s", tc.want, got)
		})
	}
}

func TestExecutor_VideoNeedsVoiceover(t *testing.T) {
	t.Parallel()

	h := newHarness(t.TempDir())
	ex := NewExecutor(StageDeps{Renderer: h.renderer}, StageSettings{}, logging.Discard())
	run := newRun(t)
	run.Carry.Script = &domain.ScriptDocument{Title: "T", FullScript: "x"}

	_, err := ex.Execute(context.Background(), domain.StageVideo, run)
	require.ErrorIs(t, err, domain.ErrPreconditionMissing)
	require.Contains(t, err.Error(), "run step 3 (voice) first")
	require.Empty(t, h.log.list())
}

func TestExecutor_ScriptLoadsArticlesFromDisk(t *testing.T) {
	t.Parallel()

	h := newHarness(t.TempDir())
	ex := NewExecutor(StageDeps{Writer: h.writer()}, StageSettings{}, logging.Discard())
	run := newRun(t)
	require.NoError(t, run.Artifacts.SaveJSON(domain.ArticlesFile, []domain.Article{{Title: "Saved"}}))

	out, err := ex.Execute(context.Background(), domain.StageScript, run)
	require.NoError(t, err)
	require.Contains(t, out.Summary, "2 stories")
	require.Equal(t, "Saved", run.Carry.Articles[0].Title)
	require.True(t, run.Artifacts.Exists(domain.ScriptFile))
	require.True(t, run.Artifacts.Exists(domain.ScriptTextFile))
	require.Equal(t, "2", run.Results[domain.ResultStoryCount])
}

func TestExecutor_ScriptRejectsEmptyArticles(t *testing.T) {
	t.Parallel()

	h := newHarness(t.TempDir())
	ex := NewExecutor(StageDeps{Writer: h.writer()}, StageSettings{}, logging.Discard())
	run := newRun(t)
	require.NoError(t, run.Artifacts.SaveJSON(domain.ArticlesFile, []domain.Article{}))

	_, err := ex.Execute(context.Background(), domain.StageScript, run)
	require.ErrorIs(t, err, domain.ErrPreconditionMissing)
}

func TestExecutor_MissingCollaboratorIsConfigError(t *testing.T) {
	t.Parallel()

	ex := NewExecutor(StageDeps{}, StageSettings{}, logging.Discard())
	_, err := ex.Execute(context.Background(), domain.StageFetch, newRun(t))
	require.ErrorIs(t, err, domain.ErrConfigurationMissing)
}

func TestExecutor_UnconfiguredAuxiliariesAreSkipped(t *testing.T) {
	t.Parallel()

	ex := NewExecutor(StageDeps{}, StageSettings{}, logging.Discard())
	run := newRun(t)
	run.Carry.VideoPath = "/tmp/video.mp4"

	out, err := ex.Execute(context.Background(), domain.StageCrossPost, run)
	require.NoError(t, err)
	require.False(t, out.Degraded)
	require.Equal(t, domain.StatusNotConfigured, run.Results[domain.ResultShort])
	require.Equal(t, domain.StatusNotConfigured, run.Results[domain.ResultTelegram])

	_, err = ex.Execute(context.Background(), domain.StageNotify, run)
	require.NoError(t, err)
	require.Equal(t, domain.StatusNotConfigured, run.Results[domain.ResultNotify])
}

func TestExecutor_ShortWithoutUploadIsCreated(t *testing.T) {
	t.Parallel()

	h := newHarness(t.TempDir())
	ex := NewExecutor(StageDeps{Renderer: h.renderer, Publisher: h.publisher}, StageSettings{UploadShorts: false}, logging.Discard())
	run := newRun(t)
	run.Carry.VideoPath = run.Artifacts.Path(domain.VideoFile)

	_, err := ex.Execute(context.Background(), domain.StageCrossPost, run)
	require.NoError(t, err)
	require.Equal(t, "created", run.Results[domain.ResultShort])
	require.Empty(t, h.publisher.metas)
}

func TestExecutor_PublishWithoutScheduleHasNoPublishTime(t *testing.T) {
	t.Parallel()

	h := newHarness(t.TempDir())
	ex := NewExecutor(StageDeps{Publisher: h.publisher}, StageSettings{Privacy: "unlisted", DefaultTags: []string{"d"}}, logging.Discard())
	run := newRun(t)
	run.Carry.Script = &domain.ScriptDocument{Description: "desc"}
	require.NoError(t, run.Artifacts.WriteText(domain.VideoFile, "video"))

	_, err := ex.Execute(context.Background(), domain.StagePublish, run)
	require.NoError(t, err)
	require.Len(t, h.publisher.metas, 1)
	meta := h.publisher.metas[0]
	require.Nil(t, meta.PublishAt)
	require.Equal(t, DefaultTitle, meta.Title)
	require.Equal(t, []string{"d"}, meta.Tags)
	require.Equal(t, "unlisted", meta.Privacy)
	require.True(t, run.Artifacts.Exists(domain.PublicationFile))
	require.Equal(t, "https://youtu.be/vid1", run.Results[domain.ResultYouTubeURL])
}

func TestExecutor_DryRunSkipsIrreversibleStagesOnly(t *testing.T) {
	t.Parallel()

	// No collaborators and no artifacts: any stage that actually ran would fail.
	ex := NewExecutor(StageDeps{}, StageSettings{}, logging.Discard())
	run := newRun(t)
	run.DryRun = true

	for _, stage := range domain.FullRange().Stages() {
		out, err := ex.Execute(context.Background(), stage, run)
		if !stage.Irreversible() {
			require.Error(t, err, "stage %s must still run on a dry run", stage)
			continue
		}
		require.NoError(t, err)
		require.True(t, out.Skipped)
	}
	for _, key := range []string{domain.ResultUpload, domain.ResultShort, domain.ResultTelegram, domain.ResultNotify} {
		require.Equal(t, domain.StatusSkippedDryRun, run.Results[key])
	}
}
