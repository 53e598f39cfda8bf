package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"NewsVideoPipeline/internal/domain"
	"NewsVideoPipeline/internal/logging"
)

type fakeChannel struct {
	err       error
	limit     int
	playlists []playlistBody
}

func (f *fakeChannel) Info(context.Context) (domain.ChannelInfo, error) {
	if f.err != nil {
		return domain.ChannelInfo{}, f.err
	}
	return domain.ChannelInfo{ID: "UC1", Title: "Daily Brief", Subscribers: 1200}, nil
}

func (f *fakeChannel) RecentVideos(_ context.Context, limit int) ([]domain.ChannelVideo, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	return []domain.ChannelVideo{{VideoID: "abc123", Title: "Budget day", Privacy: "public"}}, nil
}

func (f *fakeChannel) VideoStats(_ context.Context, id string) (domain.VideoStats, error) {
	if id != "abc123" {
		return domain.VideoStats{}, fmt.Errorf("video %s: %w", id, domain.ErrNotFound)
	}
	return domain.VideoStats{VideoID: id, Views: 42, Likes: 7}, nil
}

func (f *fakeChannel) CreatePlaylist(_ context.Context, title, description, privacy string) (string, error) {
	f.playlists = append(f.playlists, playlistBody{Title: title, Description: description, Privacy: privacy})
	return "PL1", nil
}

func serve(s *Server, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestChannelRoutes(t *testing.T) {
	t.Parallel()

	channel := &fakeChannel{}
	s := New(Deps{Runs: &fakeRuns{}, Channel: channel}, logging.Discard())

	rec := serve(s, http.MethodGet, "/api/channel/info", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var info domain.ChannelInfo
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&info))
	require.Equal(t, "Daily Brief", info.Title)
	require.EqualValues(t, 1200, info.Subscribers)

	rec = serve(s, http.MethodGet, "/api/channel/videos?limit=500", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, maxChannelVideos, channel.limit)
	require.Contains(t, rec.Body.String(), `"count":1`)

	rec = serve(s, http.MethodGet, "/api/channel/videos/abc123/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"views":42`)

	rec = serve(s, http.MethodGet, "/api/channel/videos/zzz/stats", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreatePlaylist(t *testing.T) {
	t.Parallel()

	channel := &fakeChannel{}
	loc := time.UTC
	s := New(Deps{Runs: &fakeRuns{}, Channel: channel, Location: loc}, logging.Discard())

	rec := serve(s, http.MethodPost, "/api/channel/playlists", `{"title":"Explainers","privacy":"unlisted"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), `"playlist_id":"PL1"`)

	rec = serve(s, http.MethodPost, "/api/channel/playlists", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	want := []playlistBody{
		{Title: "Explainers", Privacy: "unlisted"},
		{Title: MonthlyPlaylistTitle(time.Now().In(loc))},
	}
	if diff := cmp.Diff(want, channel.playlists); diff != "" {
		t.Fatalf("playlists mismatch (-want +got):\n%s", diff)
	}

	rec = serve(s, http.MethodPost, "/api/channel/playlists", `{"title":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMonthlyPlaylistTitle(t *testing.T) {
	t.Parallel()

	got := MonthlyPlaylistTitle(time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC))
	require.Equal(t, "Daily Current Affairs - January 2026", got)
}

func TestChannelErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		channel ChannelReader
		want    int
	}{
		{name: "not configured", channel: nil, want: http.StatusServiceUnavailable},
		{name: "missing credentials", channel: &fakeChannel{err: &domain.ConfigError{Setting: "YOUTUBE_CLIENT_ID"}}, want: http.StatusServiceUnavailable},
		{name: "api failure", channel: &fakeChannel{err: domain.Unavailable("youtube", errors.New("quota exceeded"))}, want: http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := New(Deps{Runs: &fakeRuns{}, Channel: tt.channel}, logging.Discard())
			require.Equal(t, tt.want, serve(s, http.MethodGet, "/api/channel/info", "").Code)
			require.Equal(t, tt.want, serve(s, http.MethodGet, "/api/channel/videos", "").Code)
		})
	}
}

func TestSystemHealthRoute(t *testing.T) {
	t.Parallel()

	healthy := true
	s := New(Deps{
		Runs: &fakeRuns{},
		Health: func(context.Context) domain.SystemReport {
			report := domain.SystemReport{Healthy: true}
			report.Add(domain.DependencyCheck{Name: "ffmpeg", OK: true, Required: true})
			report.Add(domain.DependencyCheck{Name: "edge-tts", OK: healthy, Required: true})
			report.Add(domain.DependencyCheck{Name: "telegram", OK: false})
			return report
		},
	}, logging.Discard())

	rec := serve(s, http.MethodGet, "/api/system/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var report domain.SystemReport
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	require.True(t, report.Healthy, "optional checks do not affect health")
	require.Len(t, report.Checks, 3)

	healthy = false
	rec = serve(s, http.MethodGet, "/api/system/health", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), `"healthy":false`)

	unconfigured := New(Deps{Runs: &fakeRuns{}}, logging.Discard())
	require.Equal(t, http.StatusServiceUnavailable, serve(unconfigured, http.MethodGet, "/api/system/health", "").Code)
}
