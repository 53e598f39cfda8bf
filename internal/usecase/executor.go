package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"NewsVideoPipeline/internal/domain"
	"NewsVideoPipeline/internal/ports"
)

// DefaultTitle is used whenever a script title is unavailable.
const DefaultTitle = "Daily Current Affairs"

// ScriptGenerator produces the narration document for a run.
type ScriptGenerator interface {
	Write(ctx context.Context, articles []domain.Article, day time.Time, debugDir string) (domain.ScriptDocument, error)
}

// StageDeps wires the collaborators used by the stages. Any of them may be nil;
// a stage that needs a missing collaborator fails with a configuration error,
// auxiliary ones record "not configured".
type StageDeps struct {
	Source    ports.ArticleSource
	Writer    ScriptGenerator
	Speech    ports.SpeechSynthesizer
	Renderer  ports.Renderer
	Publisher ports.Publisher
	Channel   ports.ChannelPoster
	Notifiers []ports.Notifier
}

// StageSettings carries the run-invariant knobs of the stages.
type StageSettings struct {
	MaxArticles    int
	DefaultTags    []string
	Privacy        string
	Schedule       bool
	ScheduleHour   int
	ScheduleMinute int
	Location       *time.Location
	UploadShorts   bool
	PlaylistID     string
}

// CarryState is the in-memory hand-off between stages of one invocation.
// Every slot is optional: a stage that finds a slot empty falls back to the
// artifact persisted by the producing stage.
type CarryState struct {
	Articles      []domain.Article
	Script        *domain.ScriptDocument
	Voiceover     *domain.Voiceover
	VideoPath     string
	ThumbnailPath string
	Publication   *domain.Publication
}

// Run is the mutable state of one pipeline invocation shared by its stages.
type Run struct {
	ID        string
	Day       time.Time
	Now       time.Time
	DryRun    bool
	Artifacts *Artifacts
	Carry     CarryState
	Results   domain.RunResult
}

// Outcome is what a stage reports back to the orchestrator.
type Outcome struct {
	Summary  string
	Skipped  bool
	Degraded bool
}

// Executor runs single stages against a Run.
type Executor struct {
	deps     StageDeps
	settings StageSettings
	logger   *slog.Logger
}

// NewExecutor constructs the stage executor.
func NewExecutor(deps StageDeps, settings StageSettings, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	return &Executor{deps: deps, settings: settings, logger: logger.With("component", "stages")}
}

// dryRunResults lists the result keys an irreversible stage reports when a
// dry run skips it.
var dryRunResults = map[domain.Stage][]string{
	domain.StagePublish:   {domain.ResultUpload},
	domain.StageCrossPost: {domain.ResultShort, domain.ResultTelegram},
	domain.StageNotify:    {domain.ResultNotify},
}

// Execute runs one stage. A returned error is fatal for the run.
func (e *Executor) Execute(ctx context.Context, stage domain.Stage, run *Run) (Outcome, error) {
	if run.Results == nil {
		run.Results = domain.RunResult{}
	}
	if run.DryRun && stage.Irreversible() {
		for _, key := range dryRunResults[stage] {
			run.Results[key] = domain.StatusSkippedDryRun
		}
		return Outcome{Summary: domain.StatusSkippedDryRun, Skipped: true}, nil
	}
	switch stage {
	case domain.StageFetch:
		return e.fetch(ctx, run)
	case domain.StageScript:
		return e.script(ctx, run)
	case domain.StageVoice:
		return e.voice(ctx, run)
	case domain.StageVideo:
		return e.video(ctx, run)
	case domain.StageThumbnail:
		return e.thumbnail(ctx, run)
	case domain.StagePublish:
		return e.publish(ctx, run)
	case domain.StageCrossPost:
		return e.crossPost(ctx, run)
	case domain.StageNotify:
		return e.notify(ctx, run)
	default:
		return Outcome{}, fmt.Errorf("unknown stage %d", int(stage))
	}
}

func (e *Executor) fetch(ctx context.Context, run *Run) (Outcome, error) {
	if e.deps.Source == nil {
		return Outcome{}, &domain.ConfigError{Setting: "news.sites", Hint: "configure at least one feed"}
	}
	articles, err := e.deps.Source.Fetch(ctx, e.settings.MaxArticles)
	if err != nil {
		return Outcome{}, fmt.Errorf("fetch news: %w", err)
	}
	if articles == nil {
		articles = []domain.Article{}
	}
	if err := run.Artifacts.SaveJSON(domain.ArticlesFile, articles); err != nil {
		return Outcome{}, err
	}
	run.Carry.Articles = articles
	run.Results[domain.ResultNewsCount] = strconv.Itoa(len(articles))
	return Outcome{Summary: fmt.Sprintf("%d articles fetched", len(articles))}, nil
}

func (e *Executor) script(ctx context.Context, run *Run) (Outcome, error) {
	articles, err := e.articles(run)
	if err != nil {
		return Outcome{}, err
	}
	if e.deps.Writer == nil {
		return Outcome{}, &domain.ConfigError{Setting: "generator", Hint: "no script generator configured"}
	}
	doc, err := e.deps.Writer.Write(ctx, articles, run.Day, run.Artifacts.Dir())
	if err != nil {
		return Outcome{}, fmt.Errorf("generate script: %w", err)
	}
	if err := run.Artifacts.SaveJSON(domain.ScriptFile, doc); err != nil {
		return Outcome{}, err
	}
	if err := run.Artifacts.WriteText(domain.ScriptTextFile, doc.FullScript); err != nil {
		return Outcome{}, err
	}
	run.Carry.Script = &doc
	run.Results[domain.ResultStoryCount] = strconv.Itoa(len(doc.Stories))
	return Outcome{Summary: fmt.Sprintf("script with %d stories, ~%d words", len(doc.Stories), doc.WordCount())}, nil
}

func (e *Executor) voice(ctx context.Context, run *Run) (Outcome, error) {
	doc, err := e.requireScript(run, domain.StageVoice)
	if err != nil {
		return Outcome{}, err
	}
	if strings.TrimSpace(doc.FullScript) == "" {
		return Outcome{}, &domain.PreconditionError{Stage: domain.StageVoice, Artifact: "narration", Hint: "script is empty"}
	}
	if e.deps.Speech == nil {
		return Outcome{}, &domain.ConfigError{Setting: "tts", Hint: "no speech synthesizer configured"}
	}
	vo, err := e.deps.Speech.Synthesize(ctx, doc.FullScript, run.Artifacts.Dir())
	if err != nil {
		return Outcome{}, fmt.Errorf("synthesize voiceover: %w", err)
	}
	run.Carry.Voiceover = &vo
	run.Results[domain.ResultVoiceover] = domain.StatusDone
	return Outcome{Summary: "voiceover at " + vo.AudioPath}, nil
}

func (e *Executor) video(ctx context.Context, run *Run) (Outcome, error) {
	doc, err := e.requireScript(run, domain.StageVideo)
	if err != nil {
		return Outcome{}, err
	}
	vo, err := e.voiceover(run)
	if err != nil {
		return Outcome{}, err
	}
	if e.deps.Renderer == nil {
		return Outcome{}, &domain.ConfigError{Setting: "video", Hint: "no renderer configured"}
	}
	path, err := e.deps.Renderer.RenderVideo(ctx, *doc, vo.AudioPath, run.Artifacts.Dir())
	if err != nil {
		return Outcome{}, fmt.Errorf("build video: %w", err)
	}
	run.Carry.VideoPath = path
	size, err := run.Artifacts.Size(domain.VideoFile)
	if err != nil {
		run.Results[domain.ResultVideo] = domain.StatusDone
	} else {
		run.Results[domain.ResultVideo] = fmt.Sprintf("%s (%.1f MB)", domain.StatusDone, float64(size)/1024/1024)
	}
	return Outcome{Summary: "video at " + path}, nil
}

func (e *Executor) thumbnail(ctx context.Context, run *Run) (Outcome, error) {
	doc, err := e.requireScript(run, domain.StageThumbnail)
	if err != nil {
		return Outcome{}, err
	}
	if e.deps.Renderer == nil {
		return Outcome{}, &domain.ConfigError{Setting: "thumbnail", Hint: "no renderer configured"}
	}
	path, err := e.deps.Renderer.RenderThumbnail(ctx, doc.TitleOr(DefaultTitle), doc.Date, run.Artifacts.Dir())
	if err != nil {
		return Outcome{}, fmt.Errorf("generate thumbnail: %w", err)
	}
	run.Carry.ThumbnailPath = path
	run.Results[domain.ResultThumbnail] = domain.StatusDone
	return Outcome{Summary: "thumbnail at " + path}, nil
}

func (e *Executor) publish(ctx context.Context, run *Run) (Outcome, error) {
	doc, err := e.requireScript(run, domain.StagePublish)
	if err != nil {
		return Outcome{}, err
	}
	videoPath, err := e.videoPath(run, domain.StagePublish)
	if err != nil {
		return Outcome{}, err
	}
	if e.deps.Publisher == nil {
		return Outcome{}, &domain.ConfigError{Setting: "youtube", Hint: "no publisher configured"}
	}

	meta := domain.VideoMetadata{
		Title:       doc.TitleOr(DefaultTitle),
		Description: doc.Description,
		Tags:        e.tags(doc),
		Privacy:     e.settings.Privacy,
		PlaylistID:  e.settings.PlaylistID,
	}
	if e.settings.Schedule {
		at := NextPublishTime(run.Now, e.settings.ScheduleHour, e.settings.ScheduleMinute, e.settings.Location)
		meta.PublishAt = &at
	}

	pub, err := e.deps.Publisher.Publish(ctx, videoPath, meta, e.thumbnailPath(run))
	if err != nil {
		return Outcome{}, fmt.Errorf("upload video: %w", err)
	}
	if err := run.Artifacts.SaveJSON(domain.PublicationFile, pub); err != nil {
		return Outcome{}, err
	}
	run.Carry.Publication = &pub
	run.Results[domain.ResultUpload] = domain.StatusDone
	run.Results[domain.ResultYouTubeURL] = pub.URL
	return Outcome{Summary: "uploaded " + pub.URL}, nil
}

func (e *Executor) crossPost(ctx context.Context, run *Run) (Outcome, error) {
	videoPath, err := e.videoPath(run, domain.StageCrossPost)
	if err != nil {
		return Outcome{}, err
	}
	doc := e.optionalScript(run)
	title := doc.TitleOr(DefaultTitle)
	var description string
	if doc != nil {
		description = doc.Description
	}
	url := e.publicationURL(run)

	degraded := false
	run.Results[domain.ResultShort] = e.short(ctx, run, videoPath, doc, title, description)
	if strings.HasPrefix(run.Results[domain.ResultShort], "degraded") {
		degraded = true
	}

	switch {
	case e.deps.Channel == nil:
		run.Results[domain.ResultTelegram] = domain.StatusNotConfigured
	default:
		post := domain.ChannelPost{Title: title, URL: url, Summary: description}
		if err := e.deps.Channel.PostVideo(ctx, post); err != nil {
			e.logger.Warn("channel post failed", "run_id", run.ID, "error", err)
			run.Results[domain.ResultTelegram] = domain.Degraded(err)
			degraded = true
		} else {
			run.Results[domain.ResultTelegram] = domain.StatusDone
		}
	}

	summary := fmt.Sprintf("short: %s, telegram: %s", run.Results[domain.ResultShort], run.Results[domain.ResultTelegram])
	return Outcome{Summary: summary, Degraded: degraded}, nil
}

// short renders and optionally uploads the vertical clip; it never fails the stage.
func (e *Executor) short(ctx context.Context, run *Run, videoPath string, doc *domain.ScriptDocument, title, description string) string {
	if e.deps.Renderer == nil {
		return domain.StatusNotConfigured
	}
	shortPath, err := e.deps.Renderer.RenderShort(ctx, videoPath, run.Artifacts.Dir())
	if err != nil {
		e.logger.Warn("short clip failed", "run_id", run.ID, "error", err)
		return domain.Degraded(err)
	}
	if !e.settings.UploadShorts || e.deps.Publisher == nil {
		return "created"
	}
	meta := domain.VideoMetadata{
		Title:       title + " #Shorts",
		Description: description + "\n\n#Shorts #CurrentAffairs #DailyNews",
		Tags:        append(e.tags(doc), "Shorts"),
		Privacy:     "public",
	}
	if _, err := e.deps.Publisher.Publish(ctx, shortPath, meta, ""); err != nil {
		e.logger.Warn("short upload failed", "run_id", run.ID, "error", err)
		return domain.Degraded(err)
	}
	return domain.StatusDone
}

func (e *Executor) notify(ctx context.Context, run *Run) (Outcome, error) {
	if len(e.deps.Notifiers) == 0 {
		run.Results[domain.ResultNotify] = domain.StatusNotConfigured
		return Outcome{Summary: domain.StatusNotConfigured}, nil
	}

	title := e.optionalScript(run).TitleOr(DefaultTitle)
	url := e.publicationURL(run)
	messages := []string{
		ReadyMessage(title, url, run.Now),
		SummaryMessage(run.Results, run.Now),
	}

	var errs []error
	for _, notifier := range e.deps.Notifiers {
		for _, msg := range messages {
			if err := notifier.Notify(ctx, msg); err != nil {
				e.logger.Warn("notification failed", "run_id", run.ID, "error", err)
				errs = append(errs, err)
				break
			}
		}
	}
	if len(errs) > 0 {
		err := errors.Join(errs...)
		run.Results[domain.ResultNotify] = domain.Degraded(err)
		return Outcome{Summary: run.Results[domain.ResultNotify], Degraded: true}, nil
	}
	run.Results[domain.ResultNotify] = domain.StatusDone
	return Outcome{Summary: "notifications sent"}, nil
}

func (e *Executor) articles(run *Run) ([]domain.Article, error) {
	if len(run.Carry.Articles) > 0 {
		return run.Carry.Articles, nil
	}
	var articles []domain.Article
	found, err := run.Artifacts.LoadJSON(domain.ArticlesFile, &articles)
	if err != nil {
		return nil, err
	}
	if !found || len(articles) == 0 {
		return nil, domain.MissingArtifact(domain.StageScript, "articles", domain.StageFetch)
	}
	run.Carry.Articles = articles
	return articles, nil
}

func (e *Executor) requireScript(run *Run, stage domain.Stage) (*domain.ScriptDocument, error) {
	if doc := e.optionalScript(run); doc != nil {
		return doc, nil
	}
	return nil, domain.MissingArtifact(stage, "script", domain.StageScript)
}

// optionalScript returns the carried or persisted script, or nil.
func (e *Executor) optionalScript(run *Run) *domain.ScriptDocument {
	if run.Carry.Script != nil {
		return run.Carry.Script
	}
	var doc domain.ScriptDocument
	found, err := run.Artifacts.LoadJSON(domain.ScriptFile, &doc)
	if err != nil {
		e.logger.Warn("unreadable script artifact", "run_id", run.ID, "error", err)
		return nil
	}
	if !found {
		return nil
	}
	run.Carry.Script = &doc
	return &doc
}

func (e *Executor) voiceover(run *Run) (domain.Voiceover, error) {
	if run.Carry.Voiceover != nil {
		return *run.Carry.Voiceover, nil
	}
	if !run.Artifacts.Exists(domain.VoiceoverFile) {
		return domain.Voiceover{}, domain.MissingArtifact(domain.StageVideo, "voiceover", domain.StageVoice)
	}
	vo := domain.Voiceover{AudioPath: run.Artifacts.Path(domain.VoiceoverFile)}
	if run.Artifacts.Exists(domain.SubtitlesFile) {
		vo.SubtitlePath = run.Artifacts.Path(domain.SubtitlesFile)
	}
	run.Carry.Voiceover = &vo
	return vo, nil
}

func (e *Executor) videoPath(run *Run, stage domain.Stage) (string, error) {
	if run.Carry.VideoPath != "" {
		return run.Carry.VideoPath, nil
	}
	if !run.Artifacts.Exists(domain.VideoFile) {
		return "", domain.MissingArtifact(stage, "video", domain.StageVideo)
	}
	run.Carry.VideoPath = run.Artifacts.Path(domain.VideoFile)
	return run.Carry.VideoPath, nil
}

// thumbnailPath is optional for publishing.
func (e *Executor) thumbnailPath(run *Run) string {
	if run.Carry.ThumbnailPath != "" {
		return run.Carry.ThumbnailPath
	}
	if run.Artifacts.Exists(domain.ThumbnailFile) {
		return run.Artifacts.Path(domain.ThumbnailFile)
	}
	return ""
}

func (e *Executor) publicationURL(run *Run) string {
	if run.Carry.Publication == nil {
		var pub domain.Publication
		if found, err := run.Artifacts.LoadJSON(domain.PublicationFile, &pub); err == nil && found {
			run.Carry.Publication = &pub
		}
	}
	if run.Carry.Publication != nil {
		return run.Carry.Publication.URL
	}
	return run.Results[domain.ResultYouTubeURL]
}

func (e *Executor) tags(doc *domain.ScriptDocument) []string {
	if doc != nil && len(doc.Tags) > 0 {
		return append([]string(nil), doc.Tags...)
	}
	return append([]string(nil), e.settings.DefaultTags...)
}

// NextPublishTime returns the next hour:minute in loc strictly after now.
func NextPublishTime(now time.Time, hour, minute int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	at := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !at.After(local) {
		at = at.AddDate(0, 0, 1)
	}
	return at
}
