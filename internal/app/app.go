package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"NewsVideoPipeline/internal/config"
	"NewsVideoPipeline/internal/domain"
	"NewsVideoPipeline/internal/infrastructure/command"
	"NewsVideoPipeline/internal/infrastructure/httpapi"
	"NewsVideoPipeline/internal/infrastructure/llm"
	"NewsVideoPipeline/internal/infrastructure/parser"
	"NewsVideoPipeline/internal/infrastructure/render"
	"NewsVideoPipeline/internal/infrastructure/scheduler"
	"NewsVideoPipeline/internal/infrastructure/storage"
	"NewsVideoPipeline/internal/infrastructure/telegram"
	"NewsVideoPipeline/internal/infrastructure/tts"
	"NewsVideoPipeline/internal/infrastructure/whatsapp"
	"NewsVideoPipeline/internal/infrastructure/youtube"
	"NewsVideoPipeline/internal/ledger"
	"NewsVideoPipeline/internal/ports"
	"NewsVideoPipeline/internal/scanner"
	"NewsVideoPipeline/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg    config.Config
	load   func() (config.Config, error)
	logger *slog.Logger

	repo   *storage.SQLiteRepository
	ledger *ledger.Ledger
	runner *usecase.Runner
	tools  command.Runner
}

// New opens the run-history database and prepares the runner. load is called
// at the start of every run so each run sees a fresh configuration snapshot;
// nil reuses cfg.
func New(cfg config.Config, load func() (config.Config, error), logger *slog.Logger) *Application {
	if logger == nil {
		logger = slog.Default()
	}
	if load == nil {
		load = func() (config.Config, error) { return cfg, nil }
	}
	a := &Application{cfg: cfg, load: load, logger: logger, tools: command.Exec}

	var sink ports.RunRepository
	if cfg.Database.Path != "" {
		repo, err := storage.Open(cfg.Database.Path)
		if err != nil {
			logger.Warn("run history disabled", "path", cfg.Database.Path, "error", err)
		} else {
			a.repo = repo
			sink = repo
		}
	}
	a.ledger = ledger.New(sink, logger)
	a.runner = usecase.NewRunner(a.pipelineFactory, a.ledger, logger)
	return a
}

// Close releases the run-history database.
func (a *Application) Close() error {
	if a.repo == nil {
		return nil
	}
	return a.repo.Close()
}

// Runner exposes run control.
func (a *Application) Runner() *usecase.Runner {
	return a.runner
}

// Run performs one synchronous pipeline execution.
func (a *Application) Run(ctx context.Context, req domain.RunRequest) (domain.RunSnapshot, error) {
	return a.runner.Run(ctx, req)
}

// History lists recorded runs, newest first.
func (a *Application) History(ctx context.Context, limit uint64) ([]domain.RunSnapshot, error) {
	return a.ledger.History(ctx, limit)
}

// PreviewNews fetches headlines with the current configuration.
func (a *Application) PreviewNews(ctx context.Context, limit int) ([]domain.Article, error) {
	cfg, err := a.load()
	if err != nil {
		return nil, err
	}
	source, err := newSource(cfg, a.logger)
	if err != nil {
		return nil, err
	}
	return source.Fetch(ctx, limit)
}

// Channel reads the authorized YouTube channel. Calls fail with a
// configuration error until credentials are set.
func (a *Application) Channel() *youtube.Channel {
	return youtube.NewChannel(a.cfg.YouTube, a.logger)
}

// Serve runs the control surface and, when enabled, the daily scheduler
// until ctx is cancelled.
func (a *Application) Serve(ctx context.Context, addr string) error {
	if addr == "" {
		addr = a.cfg.HTTP.Addr
	}
	loc := a.cfg.Scheduler.Location()
	cron := scheduler.NewCronScheduler(a.cfg.Scheduler.CronExpression, loc, a.logger)

	if a.cfg.Scheduler.Enabled {
		sched := usecase.NewScheduler(cron, a.runner, a.logger)
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = sched.Stop(stopCtx)
		}()
	}

	server := httpapi.New(httpapi.Deps{
		Runs:      a.runner,
		History:   a.ledger,
		Preview:   a.PreviewNews,
		Channel:   a.Channel(),
		Health:    a.SystemHealth,
		OutputDir: a.cfg.OutputDir,
		Location:  loc,
		Schedule: httpapi.Schedule{
			Enabled:  a.cfg.Scheduler.Enabled,
			Cron:     a.cfg.Scheduler.CronExpression,
			Timezone: loc.String(),
			Next:     cron.Next,
		},
		RunContext: ctx,
	}, a.logger)
	return server.ListenAndServe(ctx, addr)
}

func (a *Application) pipelineFactory(ctx context.Context) (*usecase.Pipeline, error) {
	cfg, err := a.load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	a.logger.Info("configuration loaded", "config", cfg.String())
	return BuildPipeline(ctx, cfg, a.ledger, a.logger)
}

// BuildPipeline assembles every adapter for one run. Optional collaborators
// whose credentials are missing are left nil so their stages report it.
func BuildPipeline(ctx context.Context, cfg config.Config, l *ledger.Ledger, logger *slog.Logger) (*usecase.Pipeline, error) {
	source, err := newSource(cfg, logger)
	if err != nil {
		return nil, err
	}

	generator, err := newGenerator(ctx, cfg)
	if err != nil {
		return nil, err
	}
	writer, err := usecase.NewScriptWriter(generator, usecase.ScriptWriterConfig{
		Model:           cfg.Generator.Model(),
		FallbackModels:  fallbackModels(cfg.Generator),
		MaxAttempts:     cfg.Generator.MaxAttempts,
		Backoff:         cfg.Generator.Backoff(),
		ChannelName:     cfg.Script.ChannelName,
		SelectCount:     cfg.News.SelectCount,
		Language:        cfg.Script.Language,
		DurationMinutes: cfg.Script.DurationMinutes,
		DefaultTags:     cfg.Script.DefaultTags,
		PromptTemplate:  cfg.Script.PromptTemplate,
	}, logger)
	if err != nil {
		return nil, err
	}

	renderer, err := render.New(render.Options{
		Video:       cfg.Video,
		Shorts:      cfg.Shorts,
		Thumbnail:   cfg.Thumbnail,
		ChannelName: cfg.Script.ChannelName,
		Tagline:     cfg.Script.Tagline,
	}, nil, logger)
	if err != nil {
		return nil, fmt.Errorf("renderer: %w", err)
	}

	deps := usecase.StageDeps{
		Source:   source,
		Writer:   writer,
		Speech:   tts.NewEdgeTTS(cfg.TTS, nil, logger),
		Renderer: renderer,
	}
	if _, _, err := cfg.YouTubeCredentials(); err == nil {
		deps.Publisher = youtube.NewPublisher(cfg.YouTube, logger)
	} else {
		logger.Debug("youtube publishing not configured", "reason", err)
	}
	if cfg.Notifications.Telegram.Enabled() {
		tg := telegram.NewNotifier(cfg.Notifications.Telegram, nil, logger)
		deps.Channel = tg
		deps.Notifiers = append(deps.Notifiers, tg)
	}
	if cfg.Notifications.WhatsApp.Enabled() {
		deps.Notifiers = append(deps.Notifiers, whatsapp.NewNotifier(cfg.Notifications.WhatsApp, nil, logger))
	}

	loc := cfg.Scheduler.Location()
	executor := usecase.NewExecutor(deps, usecase.StageSettings{
		MaxArticles:    cfg.News.MaxArticles,
		DefaultTags:    cfg.Script.DefaultTags,
		Privacy:        cfg.YouTube.Privacy,
		Schedule:       cfg.YouTube.Schedule,
		ScheduleHour:   cfg.YouTube.ScheduleHour,
		ScheduleMinute: cfg.YouTube.ScheduleMinute,
		Location:       loc,
		UploadShorts:   cfg.YouTube.UploadShorts,
		PlaylistID:     cfg.YouTube.PlaylistID,
	}, logger)

	return usecase.NewPipeline(usecase.PipelineDeps{
		Executor:  executor,
		Ledger:    l,
		Notifiers: deps.Notifiers,
		OutputDir: cfg.OutputDir,
		Location:  loc,
	}, logger), nil
}

func newSource(cfg config.Config, logger *slog.Logger) (*parser.StrategySource, error) {
	reddit, err := parser.NewRedditScanner(nil, logger)
	if err != nil {
		return nil, fmt.Errorf("reddit scanner: %w", err)
	}
	registry := scanner.NewRegistry(parser.NewRSSScanner(nil, logger), reddit)
	return parser.NewStrategySource(registry, cfg.News.Sites, logger), nil
}

func newGenerator(ctx context.Context, cfg config.Config) (ports.TextGenerator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Generator.Provider)) {
	case "chatgpt", "openai":
		return llm.NewChatGPTClient(cfg.Generator, nil), nil
	case "", "gemini":
		client, err := llm.NewGeminiClient(ctx, cfg.Generator)
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		return client, nil
	default:
		return nil, &domain.ConfigError{Setting: "GENERATOR_PROVIDER", Hint: fmt.Sprintf("unknown provider %q, use gemini or chatgpt", cfg.Generator.Provider)}
	}
}

// fallbackModels drops Gemini model names when another provider is selected.
func fallbackModels(g config.GeneratorConfig) []string {
	if strings.EqualFold(g.Provider, "gemini") || g.Provider == "" {
		return g.FallbackModels
	}
	var out []string
	for _, m := range g.FallbackModels {
		if !strings.HasPrefix(m, "gemini") {
			out = append(out, m)
		}
	}
	return out
}
