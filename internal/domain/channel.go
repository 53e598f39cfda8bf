package domain

import "time"

// ChannelInfo summarizes the authorized YouTube channel.
type ChannelInfo struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	Subscribers     uint64 `json:"subscribers"`
	Views           uint64 `json:"views"`
	Videos          uint64 `json:"videos"`
	URL             string `json:"url"`
	UploadsPlaylist string `json:"uploads_playlist"`
}

// ChannelVideo is one recent upload.
type ChannelVideo struct {
	VideoID     string    `json:"video_id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"published"`
	Privacy     string    `json:"status"`
}

// VideoStats are the public counters of a video.
type VideoStats struct {
	VideoID  string `json:"video_id"`
	Title    string `json:"title"`
	Views    uint64 `json:"views"`
	Likes    uint64 `json:"likes"`
	Comments uint64 `json:"comments"`
}
