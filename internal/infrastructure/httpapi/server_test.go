package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"NewsVideoPipeline/internal/domain"
	"NewsVideoPipeline/internal/logging"
	"NewsVideoPipeline/internal/usecase"
)

type fakeRuns struct {
	mu       sync.Mutex
	started  []domain.RunRequest
	startErr error
	active   bool
}

func (f *fakeRuns) Start(_ context.Context, req domain.RunRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	if err := req.Steps.Validate(); err != nil {
		return err
	}
	f.started = append(f.started, req)
	return nil
}

func (f *fakeRuns) Stop() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *fakeRuns) Status() domain.RunSnapshot {
	return domain.RunSnapshot{ID: "2026-03-01", Status: domain.RunRunning, CurrentStep: domain.StageVoice, Results: domain.RunResult{}}
}

type fakeHistory []domain.RunSnapshot

func (h fakeHistory) History(context.Context, uint64) ([]domain.RunSnapshot, error) {
	return h, nil
}

func newTestServer(t *testing.T, runs *fakeRuns, outputDir string) *httptest.Server {
	t.Helper()
	s := New(Deps{
		Runs:      runs,
		History:   fakeHistory{{ID: "2026-02-28", Status: domain.RunCompleted}},
		OutputDir: outputDir,
		Preview: func(_ context.Context, limit int) ([]domain.Article, error) {
			return []domain.Article{{Title: "Budget announced", Source: "The Hindu"}}[:min(limit, 1)], nil
		},
		Schedule: Schedule{
			Enabled: true, Cron: "0 6 * * *", Timezone: "Asia/Kolkata",
			Next: func(time.Time) (time.Time, error) { return time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC), nil },
		},
	}, logging.Discard())
	server := httptest.NewServer(s.Handler())
	t.Cleanup(server.Close)
	return server
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestRunEndpoint(t *testing.T) {
	t.Parallel()

	runs := &fakeRuns{}
	server := newTestServer(t, runs, t.TempDir())

	resp, err := http.Post(server.URL+"/api/pipeline/run", "application/json", strings.NewReader(`{"dry_run":true,"start_step":2,"end_step":4}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Equal(t, "started", decode(t, resp)["status"])
	require.Equal(t, []domain.RunRequest{{DryRun: true, Steps: domain.StepRange{Start: 2, End: 4}}}, runs.started)

	resp, err = http.Post(server.URL+"/api/pipeline/run", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp.Body.Close()
	require.Equal(t, domain.FullRange(), runs.started[1].Steps, "empty body runs every step")

	resp, err = http.Post(server.URL+"/api/pipeline/run", "application/json", strings.NewReader(`{"start_step":5,"end_step":2}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	runs.startErr = usecase.ErrRunInProgress
	resp, err = http.Post(server.URL+"/api/pipeline/run", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Contains(t, decode(t, resp)["error"], "already in progress")
}

func TestStatusAndStop(t *testing.T) {
	t.Parallel()

	runs := &fakeRuns{}
	server := newTestServer(t, runs, t.TempDir())

	resp, err := http.Get(server.URL + "/api/pipeline/status")
	require.NoError(t, err)
	status := decode(t, resp)
	require.Equal(t, "running", status["status"])
	require.EqualValues(t, 3, status["current_step"])

	resp, err = http.Post(server.URL+"/api/pipeline/stop", "", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	runs.active = true
	resp, err = http.Post(server.URL+"/api/pipeline/stop", "", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "stopping", decode(t, resp)["status"])
}

func TestOutputs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, day := range []string{"2026-02-28", "2026-03-01"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, day, ".frames"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, day, domain.ScriptTextFile), make([]byte, 2048), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, day, ".tts-1.txt"), []byte("x"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pipeline.db"), []byte("db"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "secret.txt"), []byte("nope"), 0o644))
	server := newTestServer(t, &fakeRuns{}, filepath.Join(dir))

	resp, err := http.Get(server.URL + "/api/outputs")
	require.NoError(t, err)
	body := decode(t, resp)
	days := body["outputs"].([]any)
	require.Len(t, days, 2)
	first := days[0].(map[string]any)
	require.Equal(t, "2026-03-01", first["date"])
	require.EqualValues(t, 1, first["file_count"])
	file := first["files"].([]any)[0].(map[string]any)
	require.Equal(t, domain.ScriptTextFile, file["name"])
	require.EqualValues(t, 2, file["size_kb"])

	resp, err = http.Get(server.URL + "/api/outputs/2026-03-01/" + domain.ScriptTextFile)
	require.NoError(t, err)
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, raw, 2048)

	for _, path := range []string{
		"/api/outputs/2026-03-01/missing.mp4",
		"/api/outputs/2026-03-01/.tts-1.txt",
		"/api/outputs/../secret.txt",
		"/api/outputs/..%2F/secret.txt",
	} {
		resp, err := http.Get(server.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		require.NotEqual(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestOutputsMissingDir(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, &fakeRuns{}, filepath.Join(t.TempDir(), "absent"))
	resp, err := http.Get(server.URL + "/api/outputs")
	require.NoError(t, err)
	require.Empty(t, decode(t, resp)["outputs"])
}

func TestRunsPreviewAndSchedule(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, &fakeRuns{}, t.TempDir())

	resp, err := http.Get(server.URL + "/api/runs?limit=5")
	require.NoError(t, err)
	require.Len(t, decode(t, resp)["runs"], 1)

	resp, err = http.Get(server.URL + "/api/news/preview")
	require.NoError(t, err)
	preview := decode(t, resp)
	require.EqualValues(t, 1, preview["count"])

	resp, err = http.Get(server.URL + "/api/schedule/info")
	require.NoError(t, err)
	info := decode(t, resp)
	require.Equal(t, "2026-03-02T06:00:00Z", info["next_run"])

	resp, err = http.Get(server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPreviewFailure(t *testing.T) {
	t.Parallel()

	s := New(Deps{
		Runs: &fakeRuns{},
		Preview: func(context.Context, int) ([]domain.Article, error) {
			return nil, domain.Unavailable("news feeds", errors.New("timeout"))
		},
	}, logging.Discard())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/news/preview", nil))
	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestManualUpload(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "2026-02-28"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2026-02-28", domain.VideoFile), []byte("mp4"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "2026-03-01"), 0o755))

	loc := time.FixedZone("IST", 5*3600+1800)
	runs := &fakeRuns{}
	s := New(Deps{Runs: runs, OutputDir: dir, Location: loc}, logging.Discard())
	post := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
		return rec
	}

	rec := post("/api/outputs/2026-02-28/upload")
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, []domain.RunRequest{{
		Steps: domain.StepRange{Start: domain.StagePublish, End: domain.StagePublish},
		Day:   time.Date(2026, 2, 28, 0, 0, 0, 0, loc),
	}}, runs.started)

	require.Equal(t, http.StatusNotFound, post("/api/outputs/2026-03-01/upload").Code, "folder without a video")
	require.Equal(t, http.StatusNotFound, post("/api/outputs/2026-03-02/upload").Code, "missing folder")
	require.Equal(t, http.StatusBadRequest, post("/api/outputs/yesterday/upload").Code)

	runs.startErr = usecase.ErrRunInProgress
	require.Equal(t, http.StatusConflict, post("/api/outputs/2026-02-28/upload").Code)
	require.Len(t, runs.started, 1)
}
