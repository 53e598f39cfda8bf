package ports

import (
	"context"
	"time"

	"NewsVideoPipeline/internal/domain"
)

// ArticleSource pulls fresh headlines from upstream feeds.
// Individual feed failures are skipped, not returned.
type ArticleSource interface {
	Fetch(ctx context.Context, maxCount int) ([]domain.Article, error)
}

// TextGenerator asks a generative model for text. Throttling is reported as
// an error satisfying errors.Is(err, domain.ErrRateLimited).
type TextGenerator interface {
	Generate(ctx context.Context, prompt, model string) (string, error)
}

// SpeechSynthesizer turns narration into an audio file plus timing data.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, outputDir string) (domain.Voiceover, error)
}

// Renderer produces the visual artifacts of a run.
type Renderer interface {
	RenderVideo(ctx context.Context, script domain.ScriptDocument, audioPath, outputDir string) (string, error)
	RenderShort(ctx context.Context, videoPath, outputDir string) (string, error)
	RenderThumbnail(ctx context.Context, title, date, outputDir string) (string, error)
}

// Publisher uploads a video to the video platform.
type Publisher interface {
	Publish(ctx context.Context, videoPath string, meta domain.VideoMetadata, thumbnailPath string) (domain.Publication, error)
}

// ChannelPoster announces a published video on a messaging channel.
type ChannelPoster interface {
	PostVideo(ctx context.Context, post domain.ChannelPost) error
}

// Notifier delivers operator notifications. Callers log failures and never propagate them.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// RunRepository keeps the on-disk history of run ledgers.
type RunRepository interface {
	BeginRun(ctx context.Context, run domain.RunSnapshot) error
	AppendEvent(ctx context.Context, attemptID string, entry domain.LogEntry) error
	FinishRun(ctx context.Context, run domain.RunSnapshot) error
	ListRuns(ctx context.Context, limit uint64) ([]domain.RunSnapshot, error)
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
