package usecase

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/template"
	"time"

	"NewsVideoPipeline/internal/domain"
	"NewsVideoPipeline/internal/extractor"
	"NewsVideoPipeline/internal/ports"
)

//go:embed prompt.tmpl
var defaultPrompt string

// ScriptDateLayout formats the run day inside the script document.
const ScriptDateLayout = "January 2, 2006"

// ScriptWriterConfig shapes prompting and the model fallback policy.
type ScriptWriterConfig struct {
	Model           string
	FallbackModels  []string
	MaxAttempts     int
	Backoff         []time.Duration
	ChannelName     string
	SelectCount     int
	Language        string
	DurationMinutes int
	DefaultTags     []string
	// PromptTemplate is a path to a text/template file; empty uses the built-in prompt.
	PromptTemplate string
}

// ScriptWriter turns headlines into a sealed ScriptDocument using a text generator.
type ScriptWriter struct {
	generator ports.TextGenerator
	cfg       ScriptWriterConfig
	tmpl      *template.Template
	sleep     func(context.Context, time.Duration) error
	logger    *slog.Logger
}

type promptData struct {
	ChannelName     string
	SelectCount     int
	Language        string
	DurationMinutes int
	Date            string
	Articles        []domain.Article
}

// NewScriptWriter parses the prompt template and returns a writer.
func NewScriptWriter(generator ports.TextGenerator, cfg ScriptWriterConfig, logger *slog.Logger) (*ScriptWriter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if len(cfg.Backoff) == 0 {
		cfg.Backoff = []time.Duration{5 * time.Second, 15 * time.Second, 30 * time.Second}
	}

	text := defaultPrompt
	if cfg.PromptTemplate != "" {
		raw, err := os.ReadFile(cfg.PromptTemplate)
		if err != nil {
			return nil, fmt.Errorf("read prompt template: %w", err)
		}
		text = string(raw)
	}
	tmpl, err := template.New("prompt").Funcs(template.FuncMap{
		"inc": func(i int) int { return i + 1 },
	}).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template: %w", err)
	}

	return &ScriptWriter{
		generator: generator,
		cfg:       cfg,
		tmpl:      tmpl,
		sleep:     sleepContext,
		logger:    logger.With("component", "script-writer"),
	}, nil
}

// WithSleep replaces the backoff wait, mainly for tests.
func (w *ScriptWriter) WithSleep(sleep func(context.Context, time.Duration) error) *ScriptWriter {
	w.sleep = sleep
	return w
}

// Models returns the configured model followed by the fallbacks, without duplicates.
func (w *ScriptWriter) Models() []string {
	seen := map[string]bool{}
	var models []string
	for _, m := range append([]string{w.cfg.Model}, w.cfg.FallbackModels...) {
		m = strings.TrimSpace(m)
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		models = append(models, m)
	}
	return models
}

// Prompt renders the generation prompt for the given headlines.
func (w *ScriptWriter) Prompt(articles []domain.Article, day time.Time) (string, error) {
	var buf bytes.Buffer
	err := w.tmpl.Execute(&buf, promptData{
		ChannelName:     w.cfg.ChannelName,
		SelectCount:     w.cfg.SelectCount,
		Language:        w.cfg.Language,
		DurationMinutes: w.cfg.DurationMinutes,
		Date:            day.Format(ScriptDateLayout),
		Articles:        articles,
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}

// Write generates, extracts and normalizes the script for day. A failed
// extraction leaves the raw response in debugDir.
func (w *ScriptWriter) Write(ctx context.Context, articles []domain.Article, day time.Time, debugDir string) (domain.ScriptDocument, error) {
	if w.generator == nil {
		return domain.ScriptDocument{}, &domain.ConfigError{Setting: "generator", Hint: "no text generator configured"}
	}
	prompt, err := w.Prompt(articles, day)
	if err != nil {
		return domain.ScriptDocument{}, err
	}

	w.logger.Info("sending headlines to generator", "articles", len(articles))
	text, err := w.generate(ctx, prompt)
	if err != nil {
		return domain.ScriptDocument{}, err
	}

	var doc domain.ScriptDocument
	ex := extractor.New(debugDir, w.logger, extractor.WithRequiredKeys("stories"))
	if err := ex.Decode(text, &doc); err != nil {
		return domain.ScriptDocument{}, err
	}
	doc, err = w.normalize(doc, day)
	var rejected *domain.ExtractionError
	if errors.As(err, &rejected) {
		return domain.ScriptDocument{}, ex.Reject(text, rejected.Reason)
	}
	return doc, err
}

func (w *ScriptWriter) generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for _, model := range w.Models() {
		for attempt := 0; attempt < w.cfg.MaxAttempts; attempt++ {
			w.logger.Info("trying model", "model", model, "attempt", attempt+1, "max_attempts", w.cfg.MaxAttempts)
			text, err := w.generator.Generate(ctx, prompt, model)
			if err == nil {
				w.logger.Info("model succeeded", "model", model)
				return text, nil
			}
			lastErr = err
			if errors.Is(err, domain.ErrConfigurationMissing) || ctx.Err() != nil {
				return "", err
			}
			if !errors.Is(err, domain.ErrRateLimited) {
				w.logger.Error("model failed", "model", model, "error", err)
				break
			}
			if attempt == w.cfg.MaxAttempts-1 {
				w.logger.Warn("rate limited, moving to next model", "model", model)
				break
			}
			wait := w.cfg.Backoff[min(attempt, len(w.cfg.Backoff)-1)]
			w.logger.Warn("rate limited", "model", model, "wait", wait)
			if err := w.sleep(ctx, wait); err != nil {
				return "", err
			}
		}
	}
	if lastErr == nil {
		return "", &domain.ConfigError{Setting: "generator.model", Hint: "no model configured"}
	}
	return "", fmt.Errorf("all models failed: %w", lastErr)
}

// normalize keeps only complete stories and seals the narration.
func (w *ScriptWriter) normalize(doc domain.ScriptDocument, day time.Time) (domain.ScriptDocument, error) {
	stories := doc.Stories[:0]
	for _, story := range doc.Stories {
		story.Headline = strings.TrimSpace(story.Headline)
		story.Script = strings.TrimSpace(story.Script)
		if story.Script == "" {
			continue
		}
		stories = append(stories, story)
	}
	doc.Stories = stories
	if len(doc.Stories) == 0 {
		return domain.ScriptDocument{}, &domain.ExtractionError{Reason: "response contained no complete stories"}
	}

	doc.Date = day.Format(ScriptDateLayout)
	if strings.TrimSpace(doc.Title) == "" {
		doc.Title = fmt.Sprintf("%s | %s", w.cfg.ChannelName, doc.Date)
	}
	if len(doc.Tags) == 0 {
		doc.Tags = append([]string(nil), w.cfg.DefaultTags...)
	}
	doc.IntroScript = strings.TrimSpace(doc.IntroScript)
	doc.OutroScript = strings.TrimSpace(doc.OutroScript)
	doc.Seal()

	w.logger.Info("script generated", "stories", len(doc.Stories), "words", doc.WordCount())
	return doc, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
