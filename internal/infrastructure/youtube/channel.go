package youtube

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"google.golang.org/api/youtube/v3"

	"NewsVideoPipeline/internal/config"
	"NewsVideoPipeline/internal/domain"
)

const channelURL = "https://www.youtube.com/channel/"

// ErrVideoNotFound is returned for an id the API does not know.
var ErrVideoNotFound = fmt.Errorf("video %w", domain.ErrNotFound)

// Channel reads and organizes the authorized channel.
type Channel struct {
	cfg    config.YouTubeConfig
	client func(ctx context.Context) (*http.Client, error)
	logger *slog.Logger
}

// NewChannel uses the same cached token as the publisher.
func NewChannel(cfg config.YouTubeConfig, logger *slog.Logger) *Channel {
	if logger == nil {
		logger = slog.Default()
	}
	return &Channel{
		cfg: cfg,
		client: func(ctx context.Context) (*http.Client, error) {
			return authorizedClient(ctx, cfg)
		},
		logger: logger.With("component", "youtube-channel"),
	}
}

// Info returns the channel owned by the token.
func (c *Channel) Info(ctx context.Context) (domain.ChannelInfo, error) {
	svc, err := openService(ctx, c.client, c.cfg.Endpoint)
	if err != nil {
		return domain.ChannelInfo{}, err
	}
	resp, err := svc.Channels.List([]string{"snippet", "statistics", "contentDetails"}).Mine(true).Context(ctx).Do()
	if err != nil {
		return domain.ChannelInfo{}, domain.Unavailable("youtube", err)
	}
	if len(resp.Items) == 0 {
		return domain.ChannelInfo{}, domain.Unavailable("youtube", fmt.Errorf("no channel found for this account"))
	}

	ch := resp.Items[0]
	info := domain.ChannelInfo{ID: ch.Id, URL: channelURL + ch.Id}
	if ch.Snippet != nil {
		info.Title = ch.Snippet.Title
		info.Description = ch.Snippet.Description
	}
	if ch.Statistics != nil {
		info.Subscribers = ch.Statistics.SubscriberCount
		info.Views = ch.Statistics.ViewCount
		info.Videos = ch.Statistics.VideoCount
	}
	if ch.ContentDetails != nil && ch.ContentDetails.RelatedPlaylists != nil {
		info.UploadsPlaylist = ch.ContentDetails.RelatedPlaylists.Uploads
	}
	return info, nil
}

// RecentVideos lists the newest uploads, at most limit.
func (c *Channel) RecentVideos(ctx context.Context, limit int) ([]domain.ChannelVideo, error) {
	info, err := c.Info(ctx)
	if err != nil {
		return nil, err
	}
	if info.UploadsPlaylist == "" {
		return []domain.ChannelVideo{}, nil
	}
	svc, err := openService(ctx, c.client, c.cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	resp, err := svc.PlaylistItems.List([]string{"snippet", "status"}).
		PlaylistId(info.UploadsPlaylist).
		MaxResults(int64(limit)).
		Context(ctx).Do()
	if err != nil {
		return nil, domain.Unavailable("youtube", err)
	}

	videos := make([]domain.ChannelVideo, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Snippet == nil || item.Snippet.ResourceId == nil {
			continue
		}
		v := domain.ChannelVideo{
			VideoID: item.Snippet.ResourceId.VideoId,
			Title:   item.Snippet.Title,
			URL:     watchURL + item.Snippet.ResourceId.VideoId,
			Privacy: "unknown",
		}
		if at, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
			v.PublishedAt = at
		}
		if item.Status != nil && item.Status.PrivacyStatus != "" {
			v.Privacy = item.Status.PrivacyStatus
		}
		videos = append(videos, v)
	}
	return videos, nil
}

// VideoStats returns view, like and comment counts of one video.
func (c *Channel) VideoStats(ctx context.Context, videoID string) (domain.VideoStats, error) {
	svc, err := openService(ctx, c.client, c.cfg.Endpoint)
	if err != nil {
		return domain.VideoStats{}, err
	}
	resp, err := svc.Videos.List([]string{"snippet", "statistics"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		return domain.VideoStats{}, domain.Unavailable("youtube", err)
	}
	if len(resp.Items) == 0 {
		return domain.VideoStats{}, fmt.Errorf("video %s: %w", videoID, ErrVideoNotFound)
	}
	v := resp.Items[0]
	stats := domain.VideoStats{VideoID: v.Id}
	if v.Snippet != nil {
		stats.Title = v.Snippet.Title
	}
	if v.Statistics != nil {
		stats.Views = v.Statistics.ViewCount
		stats.Likes = v.Statistics.LikeCount
		stats.Comments = v.Statistics.CommentCount
	}
	return stats, nil
}

// CreatePlaylist creates a playlist and returns its id.
func (c *Channel) CreatePlaylist(ctx context.Context, title, description, privacy string) (string, error) {
	svc, err := openService(ctx, c.client, c.cfg.Endpoint)
	if err != nil {
		return "", err
	}
	if privacy == "" {
		privacy = "public"
	}
	pl, err := svc.Playlists.Insert([]string{"snippet", "status"}, &youtube.Playlist{
		Snippet: &youtube.PlaylistSnippet{Title: truncate(title, maxTitleRunes), Description: description},
		Status:  &youtube.PlaylistStatus{PrivacyStatus: privacy},
	}).Context(ctx).Do()
	if err != nil {
		return "", domain.Unavailable("youtube", err)
	}
	c.logger.Info("playlist created", "playlist_id", pl.Id, "title", title)
	return pl.Id, nil
}

// AddToPlaylist appends a video to a playlist.
func (c *Channel) AddToPlaylist(ctx context.Context, playlistID, videoID string) error {
	svc, err := openService(ctx, c.client, c.cfg.Endpoint)
	if err != nil {
		return err
	}
	if err := addToPlaylist(ctx, svc, playlistID, videoID); err != nil {
		return domain.Unavailable("youtube", err)
	}
	return nil
}

func addToPlaylist(ctx context.Context, svc *youtube.Service, playlistID, videoID string) error {
	_, err := svc.PlaylistItems.Insert([]string{"snippet"}, &youtube.PlaylistItem{
		Snippet: &youtube.PlaylistItemSnippet{
			PlaylistId: playlistID,
			ResourceId: &youtube.ResourceId{Kind: "youtube#video", VideoId: videoID},
		},
	}).Context(ctx).Do()
	return err
}
