package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"NewsVideoPipeline/internal/config"
	"NewsVideoPipeline/internal/domain"
	"NewsVideoPipeline/internal/infrastructure/command"
	"NewsVideoPipeline/internal/ports"
)

// Options collects everything the renderer draws or encodes with.
type Options struct {
	Video       config.VideoConfig
	Shorts      config.ShortsConfig
	Thumbnail   config.ThumbnailConfig
	ChannelName string
	Tagline     string
}

// Renderer draws frames with gg and encodes them with ffmpeg.
type Renderer struct {
	video       config.VideoConfig
	shorts      config.ShortsConfig
	thumb       config.ThumbnailConfig
	channelName string
	tagline     string

	fonts  *fontSet
	run    command.Runner
	logger *slog.Logger
}

var _ ports.Renderer = (*Renderer)(nil)

// New loads fonts and returns a renderer; a nil runner uses command.Exec.
func New(opts Options, run command.Runner, logger *slog.Logger) (*Renderer, error) {
	fonts, err := loadFonts(opts.Video.FontPath)
	if err != nil {
		return nil, err
	}
	if run == nil {
		run = command.Exec
	}
	if logger == nil {
		logger = slog.Default()
	}

	video := opts.Video
	if video.Width <= 0 || video.Height <= 0 {
		video.Width, video.Height = 1920, 1080
	}
	if video.FPS <= 0 {
		video.FPS = 24
	}
	if video.Bitrate == "" {
		video.Bitrate = "5000k"
	}
	if video.FFmpegPath == "" {
		video.FFmpegPath = "ffmpeg"
	}
	if video.FFprobePath == "" {
		video.FFprobePath = "ffprobe"
	}
	shorts := opts.Shorts
	if shorts.Width <= 0 || shorts.Height <= 0 {
		shorts.Width, shorts.Height = 1080, 1920
	}
	if shorts.DurationSeconds <= 0 {
		shorts.DurationSeconds = 60
	}
	thumb := opts.Thumbnail
	if thumb.Width <= 0 || thumb.Height <= 0 {
		thumb.Width, thumb.Height = 1280, 720
	}

	return &Renderer{
		video:       video,
		shorts:      shorts,
		thumb:       thumb,
		channelName: opts.ChannelName,
		tagline:     opts.Tagline,
		fonts:       fonts,
		run:         run,
		logger:      logger.With("component", "renderer"),
	}, nil
}

// probeDuration asks ffprobe for the container duration in seconds.
func (r *Renderer) probeDuration(ctx context.Context, path string) (float64, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, fmt.Errorf("probe %s: %w", path, err)
	}
	out, err := r.run(ctx, r.video.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, domain.Unavailable("ffprobe", err)
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration of %s: %w", path, err)
	}
	if seconds <= 0 {
		return 0, fmt.Errorf("%s has no playable duration", path)
	}
	return seconds, nil
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
