package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"NewsVideoPipeline/internal/domain"
	"NewsVideoPipeline/internal/usecase"
)

// RunControl starts, stops, and reports pipeline runs.
type RunControl interface {
	Start(ctx context.Context, req domain.RunRequest) error
	Stop() bool
	Status() domain.RunSnapshot
}

// HistoryReader lists past runs.
type HistoryReader interface {
	History(ctx context.Context, limit uint64) ([]domain.RunSnapshot, error)
}

// NewsPreview fetches headlines without starting a run.
type NewsPreview func(ctx context.Context, limit int) ([]domain.Article, error)

// ChannelReader reads and organizes the publishing channel.
type ChannelReader interface {
	Info(ctx context.Context) (domain.ChannelInfo, error)
	RecentVideos(ctx context.Context, limit int) ([]domain.ChannelVideo, error)
	VideoStats(ctx context.Context, videoID string) (domain.VideoStats, error)
	CreatePlaylist(ctx context.Context, title, description, privacy string) (string, error)
}

// HealthCheck sweeps the tools and credentials a run depends on.
type HealthCheck func(ctx context.Context) domain.SystemReport

// Schedule describes the cron trigger for the schedule endpoint.
type Schedule struct {
	Enabled  bool
	Cron     string
	Timezone string
	Next     func(now time.Time) (time.Time, error)
}

// Deps collects what the control surface serves.
type Deps struct {
	Runs      RunControl
	History   HistoryReader
	Preview   NewsPreview
	Schedule  Schedule
	Channel   ChannelReader
	Health    HealthCheck
	OutputDir string
	// Location resolves dated output folders to days.
	Location *time.Location
	// RunContext outlives requests; runs started over HTTP inherit it.
	RunContext context.Context
}

// Server is the JSON control surface of the pipeline.
type Server struct {
	deps   Deps
	logger *slog.Logger
	mux    *http.ServeMux
}

// New registers every route.
func New(deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.RunContext == nil {
		deps.RunContext = context.Background()
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}
	s := &Server{deps: deps, logger: logger.With("component", "http"), mux: http.NewServeMux()}

	s.mux.HandleFunc("GET /health", s.health)
	s.mux.HandleFunc("GET /api/pipeline/status", s.status)
	s.mux.HandleFunc("POST /api/pipeline/run", s.run)
	s.mux.HandleFunc("POST /api/pipeline/stop", s.stop)
	s.mux.HandleFunc("GET /api/outputs", s.outputs)
	s.mux.HandleFunc("GET /api/outputs/{date}/{filename}", s.outputFile)
	s.mux.HandleFunc("POST /api/outputs/{date}/upload", s.upload)
	s.mux.HandleFunc("GET /api/runs", s.runs)
	s.mux.HandleFunc("GET /api/news/preview", s.newsPreview)
	s.mux.HandleFunc("GET /api/schedule/info", s.schedule)
	s.mux.HandleFunc("GET /api/system/health", s.systemHealth)
	s.mux.HandleFunc("GET /api/channel/info", s.channelInfo)
	s.mux.HandleFunc("GET /api/channel/videos", s.channelVideos)
	s.mux.HandleFunc("GET /api/channel/videos/{id}/stats", s.videoStats)
	s.mux.HandleFunc("POST /api/channel/playlists", s.createPlaylist)
	return s
}

// Handler exposes the routes, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("control surface listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("health check", "remote_addr", r.RemoteAddr)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Runs.Status())
}

type runBody struct {
	DryRun    bool `json:"dry_run"`
	StartStep int  `json:"start_step"`
	EndStep   int  `json:"end_step"`
}

func (s *Server) run(w http.ResponseWriter, r *http.Request) {
	body := runBody{StartStep: int(domain.FirstStage), EndStep: int(domain.LastStage)}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}

	req := domain.RunRequest{
		DryRun: body.DryRun,
		Steps:  domain.StepRange{Start: domain.Stage(body.StartStep), End: domain.Stage(body.EndStep)},
	}
	err := s.deps.Runs.Start(s.deps.RunContext, req)
	switch {
	case errors.Is(err, usecase.ErrRunInProgress):
		writeError(w, http.StatusConflict, err)
	case err != nil:
		writeError(w, http.StatusBadRequest, err)
	default:
		s.logger.Info("run started over http", "dry_run", req.DryRun, "steps", fmt.Sprintf("%d-%d", body.StartStep, body.EndStep))
		writeJSON(w, http.StatusAccepted, map[string]any{"status": "started", "dry_run": req.DryRun})
	}
}

func (s *Server) stop(w http.ResponseWriter, _ *http.Request) {
	if !s.deps.Runs.Stop() {
		writeError(w, http.StatusConflict, errors.New("no run in progress"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(domain.RunStopping)})
}

type outputFile struct {
	Name   string  `json:"name"`
	SizeKB float64 `json:"size_kb"`
}

type outputDay struct {
	Date      string       `json:"date"`
	Files     []outputFile `json:"files"`
	FileCount int          `json:"file_count"`
}

func (s *Server) outputs(w http.ResponseWriter, _ *http.Request) {
	entries, err := os.ReadDir(s.deps.OutputDir)
	if errors.Is(err, os.ErrNotExist) {
		writeJSON(w, http.StatusOK, map[string]any{"outputs": []outputDay{}})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	days := []outputDay{}
	for _, e := range entries {
		if !e.IsDir() || hidden(e.Name()) {
			continue
		}
		files, err := os.ReadDir(filepath.Join(s.deps.OutputDir, e.Name()))
		if err != nil {
			continue
		}
		day := outputDay{Date: e.Name(), Files: []outputFile{}}
		for _, f := range files {
			if f.IsDir() || hidden(f.Name()) {
				continue
			}
			info, err := f.Info()
			if err != nil {
				continue
			}
			kb := math.Round(float64(info.Size())/1024*10) / 10
			day.Files = append(day.Files, outputFile{Name: f.Name(), SizeKB: kb})
		}
		day.FileCount = len(day.Files)
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date > days[j].Date })
	writeJSON(w, http.StatusOK, map[string]any{"outputs": days})
}

func (s *Server) outputFile(w http.ResponseWriter, r *http.Request) {
	date, name := r.PathValue("date"), r.PathValue("filename")
	if !safeSegment(date) || !safeSegment(name) {
		writeError(w, http.StatusNotFound, errors.New("file not found"))
		return
	}
	path := filepath.Join(s.deps.OutputDir, date, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, errors.New("file not found"))
		return
	}
	http.ServeFile(w, r, path)
}

// upload publishes an already rendered day on its own.
func (s *Server) upload(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	day, err := domain.ParseRunID(date, s.deps.Location)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("date must look like 2006-01-02: %w", err))
		return
	}
	if _, err := os.Stat(filepath.Join(s.deps.OutputDir, date, domain.VideoFile)); err != nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("no video for %s", date))
		return
	}

	req := domain.RunRequest{
		Steps: domain.StepRange{Start: domain.StagePublish, End: domain.StagePublish},
		Day:   day,
	}
	err = s.deps.Runs.Start(s.deps.RunContext, req)
	switch {
	case errors.Is(err, usecase.ErrRunInProgress):
		writeError(w, http.StatusConflict, err)
	case err != nil:
		writeError(w, http.StatusBadRequest, err)
	default:
		s.logger.Info("manual upload started", "date", date)
		writeJSON(w, http.StatusAccepted, map[string]any{"status": "started", "date": date})
	}
}

func (s *Server) runs(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeJSON(w, http.StatusOK, map[string]any{"runs": []domain.RunSnapshot{}})
		return
	}
	limit := queryInt(r, "limit", 20)
	runs, err := s.deps.History.History(r.Context(), uint64(limit))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		runs = []domain.RunSnapshot{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) newsPreview(w http.ResponseWriter, r *http.Request) {
	if s.deps.Preview == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("news preview not configured"))
		return
	}
	articles, err := s.deps.Preview(r.Context(), queryInt(r, "limit", 10))
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "articles": articles, "count": len(articles)})
}

func (s *Server) schedule(w http.ResponseWriter, _ *http.Request) {
	info := map[string]any{
		"enabled":  s.deps.Schedule.Enabled,
		"cron":     s.deps.Schedule.Cron,
		"timezone": s.deps.Schedule.Timezone,
	}
	if s.deps.Schedule.Enabled && s.deps.Schedule.Next != nil {
		if next, err := s.deps.Schedule.Next(time.Now()); err == nil {
			info["next_run"] = next.Format(time.RFC3339)
		}
	}
	writeJSON(w, http.StatusOK, info)
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// safeSegment accepts a single visible path element.
func safeSegment(s string) bool {
	return s != "" && !hidden(s) && !strings.ContainsAny(s, `/\`) && filepath.Base(s) == s
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
