package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"NewsVideoPipeline/internal/domain"
	"NewsVideoPipeline/internal/ledger"
	"NewsVideoPipeline/internal/logging"
	"NewsVideoPipeline/internal/ports"
)

var testDay = time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)

const scriptJSON = `{
  "title": "Top Stories",
  "description": "The day in brief.",
  "tags": ["news"],
  "intro_script": "Good morning.",
  "stories": [
    {"headline": "One", "script": "First story."},
    {"headline": "Two", "script": "Second story."}
  ],
  "outro_script": "Goodbye."
}`

type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (c *callLog) add(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, fmt.Sprintf(format, args...))
}

func (c *callLog) list() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

type fakeSource struct {
	log      *callLog
	articles []domain.Article
	err      error
}

func (f *fakeSource) Fetch(_ context.Context, maxCount int) ([]domain.Article, error) {
	f.log.add("source.fetch %d", maxCount)
	return f.articles, f.err
}

type fakeGenerator struct {
	log       *callLog
	mu        sync.Mutex
	responses []generatorResponse
	fallback  generatorResponse
}

type generatorResponse struct {
	text string
	err  error
}

func (f *fakeGenerator) Generate(_ context.Context, _ string, model string) (string, error) {
	f.log.add("generate %s", model)
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.responses) == 0 {
		return f.fallback.text, f.fallback.err
	}
	r := f.responses[0]
	f.responses = f.responses[1:]
	return r.text, r.err
}

type fakeSpeech struct {
	log *callLog
	err error
}

func (f *fakeSpeech) Synthesize(_ context.Context, text, dir string) (domain.Voiceover, error) {
	f.log.add("speech")
	if f.err != nil {
		return domain.Voiceover{}, f.err
	}
	audio := filepath.Join(dir, domain.VoiceoverFile)
	subs := filepath.Join(dir, domain.SubtitlesFile)
	if err := os.WriteFile(audio, []byte("audio:"+text), 0o644); err != nil {
		return domain.Voiceover{}, err
	}
	if err := os.WriteFile(subs, []byte("WEBVTT\n"), 0o644); err != nil {
		return domain.Voiceover{}, err
	}
	return domain.Voiceover{AudioPath: audio, SubtitlePath: subs}, nil
}

type fakeRenderer struct {
	log      *callLog
	shortErr error
}

func (f *fakeRenderer) RenderVideo(_ context.Context, script domain.ScriptDocument, audioPath, dir string) (string, error) {
	f.log.add("render.video")
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, domain.VideoFile)
	return path, os.WriteFile(path, append([]byte(script.Title+"|"), audio...), 0o644)
}

func (f *fakeRenderer) RenderShort(_ context.Context, videoPath, dir string) (string, error) {
	f.log.add("render.short")
	if f.shortErr != nil {
		return "", f.shortErr
	}
	path := filepath.Join(dir, domain.ShortFile)
	return path, os.WriteFile(path, []byte("short"), 0o644)
}

func (f *fakeRenderer) RenderThumbnail(_ context.Context, title, date, dir string) (string, error) {
	f.log.add("render.thumbnail")
	path := filepath.Join(dir, domain.ThumbnailFile)
	return path, os.WriteFile(path, []byte(title+"|"+date), 0o644)
}

type fakePublisher struct {
	log   *callLog
	err   error
	metas []domain.VideoMetadata
}

func (f *fakePublisher) Publish(_ context.Context, videoPath string, meta domain.VideoMetadata, thumbnailPath string) (domain.Publication, error) {
	f.log.add("publish %s thumb=%t", filepath.Base(videoPath), thumbnailPath != "")
	f.metas = append(f.metas, meta)
	if f.err != nil {
		return domain.Publication{}, f.err
	}
	return domain.Publication{VideoID: "vid1", URL: "https://youtu.be/vid1", Title: meta.Title}, nil
}

type fakeChannel struct {
	log *callLog
	err error
}

func (f *fakeChannel) PostVideo(_ context.Context, post domain.ChannelPost) error {
	f.log.add("channel.post %s", post.URL)
	return f.err
}

type fakeNotifier struct {
	log      *callLog
	err      error
	mu       sync.Mutex
	messages []string
}

func (f *fakeNotifier) Notify(_ context.Context, message string) error {
	f.log.add("notify")
	f.mu.Lock()
	f.messages = append(f.messages, message)
	f.mu.Unlock()
	return f.err
}

func (f *fakeNotifier) received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}

type harness struct {
	log       *callLog
	source    *fakeSource
	generator *fakeGenerator
	speech    *fakeSpeech
	renderer  *fakeRenderer
	publisher *fakePublisher
	channel   *fakeChannel
	notifier  *fakeNotifier
	ledger    *ledger.Ledger
	outputDir string
}

func newHarness(outputDir string) *harness {
	log := &callLog{}
	return &harness{
		log: log,
		source: &fakeSource{log: log, articles: []domain.Article{
			{Title: "Budget passed", Source: "Daily", Summary: "Parliament passed the budget.", URL: "https://example.com/1"},
			{Title: "Rain expected", Source: "Weather", Summary: "Monsoon arrives early.", URL: "https://example.com/2"},
		}},
		generator: &fakeGenerator{log: log, fallback: generatorResponse{text: scriptJSON}},
		speech:    &fakeSpeech{log: log},
		renderer:  &fakeRenderer{log: log},
		publisher: &fakePublisher{log: log},
		channel:   &fakeChannel{log: log},
		notifier:  &fakeNotifier{log: log},
		ledger:    ledger.New(nil, logging.Discard()),
		outputDir: outputDir,
	}
}

func (h *harness) writer() *ScriptWriter {
	w, err := NewScriptWriter(h.generator, ScriptWriterConfig{
		Model:          "primary",
		FallbackModels: []string{"backup"},
		ChannelName:    "Daily Current Affairs",
		SelectCount:    2,
		Language:       "English",
	}, logging.Discard())
	if err != nil {
		panic(err)
	}
	return w.WithSleep(func(context.Context, time.Duration) error { return nil })
}

func (h *harness) pipeline() *Pipeline {
	executor := NewExecutor(StageDeps{
		Source:    h.source,
		Writer:    h.writer(),
		Speech:    h.speech,
		Renderer:  h.renderer,
		Publisher: h.publisher,
		Channel:   h.channel,
		Notifiers: []ports.Notifier{h.notifier},
	}, StageSettings{
		MaxArticles:    20,
		DefaultTags:    []string{"daily"},
		Privacy:        "private",
		Schedule:       true,
		ScheduleHour:   9,
		ScheduleMinute: 0,
		UploadShorts:   true,
	}, logging.Discard())

	return NewPipeline(PipelineDeps{
		Executor:  executor,
		Ledger:    h.ledger,
		Notifiers: []ports.Notifier{h.notifier},
		OutputDir: h.outputDir,
		Clock:     func() time.Time { return testDay },
	}, logging.Discard())
}
