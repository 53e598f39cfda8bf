package youtube

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"NewsVideoPipeline/internal/config"
	"NewsVideoPipeline/internal/domain"
	"NewsVideoPipeline/internal/ports"
)

const (
	maxTitleRunes       = 100
	maxDescriptionRunes = 5000
	defaultCategory     = "25"
	watchURL            = "https://www.youtube.com/watch?v="
)

// Publisher uploads videos through the YouTube Data API.
type Publisher struct {
	cfg    config.YouTubeConfig
	client func(ctx context.Context) (*http.Client, error)
	logger *slog.Logger
}

var _ ports.Publisher = (*Publisher)(nil)

// NewPublisher authenticates with the cached token in cfg.TokenFile.
func NewPublisher(cfg config.YouTubeConfig, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		cfg: cfg,
		client: func(ctx context.Context) (*http.Client, error) {
			return authorizedClient(ctx, cfg)
		},
		logger: logger.With("component", "youtube"),
	}
}

func (p *Publisher) service(ctx context.Context) (*youtube.Service, error) {
	return openService(ctx, p.client, p.cfg.Endpoint)
}

// openService builds a Data API client over an authorized HTTP client.
func openService(ctx context.Context, client func(context.Context) (*http.Client, error), endpoint string) (*youtube.Service, error) {
	hc, err := client(ctx)
	if err != nil {
		return nil, err
	}
	opts := []option.ClientOption{option.WithHTTPClient(hc)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	return svc, nil
}

// Publish uploads videoPath and, when given, sets its thumbnail. A scheduled
// upload is forced private until its publish time.
func (p *Publisher) Publish(ctx context.Context, videoPath string, meta domain.VideoMetadata, thumbnailPath string) (domain.Publication, error) {
	svc, err := p.service(ctx)
	if err != nil {
		return domain.Publication{}, err
	}

	f, err := os.Open(videoPath)
	if err != nil {
		return domain.Publication{}, fmt.Errorf("open video: %w", err)
	}
	defer f.Close()

	video := p.video(meta)
	if info, err := f.Stat(); err == nil {
		p.logger.Info("uploading video", "title", video.Snippet.Title, "mb", fmt.Sprintf("%.1f", float64(info.Size())/1024/1024), "privacy", video.Status.PrivacyStatus)
	}

	uploaded, err := svc.Videos.Insert([]string{"snippet", "status"}, video).Media(f).Context(ctx).Do()
	if err != nil {
		return domain.Publication{}, domain.Unavailable("youtube", err)
	}

	pub := domain.Publication{
		VideoID: uploaded.Id,
		URL:     watchURL + uploaded.Id,
		Title:   video.Snippet.Title,
	}
	p.logger.Info("video uploaded", "video_id", pub.VideoID, "url", pub.URL)

	if thumbnailPath != "" {
		if err := p.setThumbnail(ctx, svc, pub.VideoID, thumbnailPath); err != nil {
			p.logger.Warn("thumbnail upload failed", "video_id", pub.VideoID, "error", err)
		}
	}
	if meta.PlaylistID != "" {
		if err := addToPlaylist(ctx, svc, meta.PlaylistID, pub.VideoID); err != nil {
			p.logger.Warn("playlist insert failed", "video_id", pub.VideoID, "playlist_id", meta.PlaylistID, "error", err)
		}
	}
	return pub, nil
}

func (p *Publisher) video(meta domain.VideoMetadata) *youtube.Video {
	category := p.cfg.CategoryID
	if category == "" {
		category = defaultCategory
	}
	privacy := meta.Privacy
	if privacy == "" {
		privacy = p.cfg.Privacy
	}
	if privacy == "" {
		privacy = "private"
	}

	status := &youtube.VideoStatus{
		PrivacyStatus:           privacy,
		SelfDeclaredMadeForKids: false,
	}
	// The API only honours publishAt on private videos.
	if meta.PublishAt != nil {
		status.PrivacyStatus = "private"
		status.PublishAt = meta.PublishAt.UTC().Format(time.RFC3339)
	}

	return &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:                truncate(meta.Title, maxTitleRunes),
			Description:          truncate(meta.Description, maxDescriptionRunes),
			Tags:                 meta.Tags,
			CategoryId:           category,
			DefaultLanguage:      "en",
			DefaultAudioLanguage: "en",
		},
		Status: status,
	}
}

func (p *Publisher) setThumbnail(ctx context.Context, svc *youtube.Service, videoID, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = svc.Thumbnails.Set(videoID).Media(f).Context(ctx).Do()
	return err
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
