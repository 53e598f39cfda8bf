package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"NewsVideoPipeline/internal/domain"
)

const maxChannelVideos = 50

func (s *Server) systemHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("health checks not configured"))
		return
	}
	report := s.deps.Health(r.Context())
	status := http.StatusOK
	if !report.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func (s *Server) channelInfo(w http.ResponseWriter, r *http.Request) {
	if !s.channelReady(w) {
		return
	}
	info, err := s.deps.Channel.Info(r.Context())
	if err != nil {
		s.channelError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) channelVideos(w http.ResponseWriter, r *http.Request) {
	if !s.channelReady(w) {
		return
	}
	videos, err := s.deps.Channel.RecentVideos(r.Context(), min(queryInt(r, "limit", 10), maxChannelVideos))
	if err != nil {
		s.channelError(w, err)
		return
	}
	if videos == nil {
		videos = []domain.ChannelVideo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"videos": videos, "count": len(videos)})
}

func (s *Server) videoStats(w http.ResponseWriter, r *http.Request) {
	if !s.channelReady(w) {
		return
	}
	stats, err := s.deps.Channel.VideoStats(r.Context(), r.PathValue("id"))
	if err != nil {
		s.channelError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type playlistBody struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Privacy     string `json:"privacy"`
}

func (s *Server) createPlaylist(w http.ResponseWriter, r *http.Request) {
	if !s.channelReady(w) {
		return
	}
	var body playlistBody
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	if strings.TrimSpace(body.Title) == "" {
		body.Title = MonthlyPlaylistTitle(time.Now().In(s.deps.Location))
	}

	id, err := s.deps.Channel.CreatePlaylist(r.Context(), body.Title, body.Description, body.Privacy)
	if err != nil {
		s.channelError(w, err)
		return
	}
	s.logger.Info("playlist created", "playlist_id", id, "title", body.Title)
	writeJSON(w, http.StatusCreated, map[string]string{"playlist_id": id, "title": body.Title})
}

// MonthlyPlaylistTitle names the playlist collecting one month of episodes.
func MonthlyPlaylistTitle(now time.Time) string {
	return "Daily Current Affairs - " + now.Format("January 2006")
}

func (s *Server) channelReady(w http.ResponseWriter) bool {
	if s.deps.Channel == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("youtube channel not configured"))
		return false
	}
	return true
}

func (s *Server) channelError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domain.ErrConfigurationMissing):
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		s.logger.Warn("channel request failed", "error", err)
		writeError(w, http.StatusBadGateway, err)
	}
}
