package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"NewsVideoPipeline/internal/config"
	"NewsVideoPipeline/internal/domain"
	"NewsVideoPipeline/internal/ports"
)

const summaryLimit = 200

// Notifier sends messages to a Telegram chat via the bot API.
type Notifier struct {
	baseURL  string
	botToken string
	chatID   string
	client   *http.Client
	logger   *slog.Logger
}

var (
	_ ports.Notifier      = (*Notifier)(nil)
	_ ports.ChannelPoster = (*Notifier)(nil)
)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(cfg config.TelegramConfig, client *http.Client, logger *slog.Logger) *Notifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = "https://api.telegram.org"
	}
	return &Notifier{
		baseURL:  base,
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		client:   client,
		logger:   logger.With("component", "telegram"),
	}
}

// Notify posts a plain-text message.
func (n *Notifier) Notify(ctx context.Context, message string) error {
	return n.send(ctx, message)
}

// PostVideo announces a published video with a short summary and its link.
func (n *Notifier) PostVideo(ctx context.Context, post domain.ChannelPost) error {
	return n.send(ctx, ChannelMessage(post))
}

// ChannelMessage formats a video announcement.
func ChannelMessage(post domain.ChannelPost) string {
	var b strings.Builder
	b.WriteString(post.Title)
	if summary := strings.TrimSpace(post.Summary); summary != "" {
		if r := []rune(summary); len(r) > summaryLimit {
			summary = string(r[:summaryLimit]) + "..."
		}
		b.WriteString("\n\n")
		b.WriteString(summary)
	}
	if post.URL != "" {
		b.WriteString("\n\nWatch: ")
		b.WriteString(post.URL)
	}
	return b.String()
}

func (n *Notifier) send(ctx context.Context, text string) error {
	if !config.IsSet(n.botToken) || !config.IsSet(n.chatID) {
		return &domain.ConfigError{Setting: "TELEGRAM_BOT_TOKEN/TELEGRAM_CHAT_ID", Hint: "telegram notifier misconfigured"}
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", text)
	form.Set("disable_web_page_preview", "false")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return domain.Unavailable("telegram", fmt.Errorf("do request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Description string `json:"description"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(raw, &body)
		return domain.Unavailable("telegram", fmt.Errorf("telegram error: %s %s", resp.Status, body.Description))
	}

	n.logger.Debug("message sent", "chars", len(text))
	return nil
}
