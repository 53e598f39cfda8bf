package whatsapp

import (
	"context"
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

// Notifier sends WhatsApp messages through the CallMeBot gateway.
type Notifier struct {
	baseURL string
	phone   string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

var _ ports.Notifier = (*Notifier)(nil)

func NewNotifier(cfg config.WhatsAppConfig, client *http.Client, logger *slog.Logger) *Notifier {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	base := cfg.BaseURL
	if base == "" {
		base = "https://api.callmebot.com/whatsapp.php"
	}
	return &Notifier{
		baseURL: base,
		phone:   cfg.Phone,
		apiKey:  cfg.APIKey,
		client:  client,
		logger:  logger.With("component", "whatsapp"),
	}
}

// Notify delivers message to the configured phone.
func (n *Notifier) Notify(ctx context.Context, message string) error {
	if !config.IsSet(n.phone) || !config.IsSet(n.apiKey) {
		return &domain.ConfigError{Setting: "WHATSAPP_PHONE/WHATSAPP_API_KEY", Hint: "whatsapp notifier misconfigured"}
	}

	q := url.Values{}
	q.Set("phone", n.phone)
	q.Set("text", message)
	q.Set("apikey", n.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	resp, err := n.client.Do(req)
	if err != nil {
		return domain.Unavailable("whatsapp", fmt.Errorf("do request: %w", err))
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return domain.Unavailable("whatsapp", fmt.Errorf("callmebot error: %s %s", resp.Status, strings.TrimSpace(string(raw))))
	}
	// The gateway answers 200 with an HTML page even for a bad key.
	if strings.Contains(strings.ToLower(string(raw)), "apikey is invalid") {
		return domain.Unavailable("whatsapp", fmt.Errorf("callmebot rejected the api key"))
	}
	n.logger.Debug("message sent", "chars", len(message))
	return nil
}
