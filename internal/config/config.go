package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"NewsVideoPipeline/internal/domain"
)

const (
	defaultTimezone   = "UTC"
	defaultConfigPath = "config.yaml"
	defaultEnvFile    = ".env"

	configPathEnv       = "NEWSVIDEO_CONFIG"
	envFileEnv          = "NEWSVIDEO_ENV_FILE"
	outputDirEnv        = "NEWSVIDEO_OUTPUT_DIR"
	databasePathEnv     = "NEWSVIDEO_DB_PATH"
	logLevelEnv         = "LOG_LEVEL"
	httpAddrEnv         = "HTTP_ADDR"
	geminiAPIKeyEnv     = "GEMINI_API_KEY"
	geminiModelEnv      = "GEMINI_MODEL"
	chatGPTAPIKeyEnv    = "CHATGPT_API_KEY"
	chatGPTModelEnv     = "CHATGPT_MODEL"
	youtubeClientIDEnv  = "YOUTUBE_CLIENT_ID"
	youtubeSecretEnv    = "YOUTUBE_CLIENT_SECRET"
	youtubePlaylistEnv  = "YOUTUBE_PLAYLIST_ID"
	telegramTokenEnv    = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv   = "TELEGRAM_CHAT_ID"
	whatsappPhoneEnv    = "WHATSAPP_PHONE"
	whatsappAPIKeyEnv   = "WHATSAPP_API_KEY"
	generatorProvEnv    = "GENERATOR_PROVIDER"
	scheduleTimezoneEnv = "SCHEDULER_TIMEZONE"
)

// Config is an immutable snapshot of every setting. It is loaded once per run
// and passed down the call chain.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging" toml:"logging"`
	OutputDir     string             `yaml:"outputDir" toml:"outputDir"`
	Database      DatabaseConfig     `yaml:"database" toml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler" toml:"scheduler"`
	News          NewsConfig         `yaml:"news" toml:"news"`
	Generator     GeneratorConfig    `yaml:"generator" toml:"generator"`
	Script        ScriptConfig       `yaml:"script" toml:"script"`
	TTS           TTSConfig          `yaml:"tts" toml:"tts"`
	Video         VideoConfig        `yaml:"video" toml:"video"`
	Shorts        ShortsConfig       `yaml:"shorts" toml:"shorts"`
	Thumbnail     ThumbnailConfig    `yaml:"thumbnail" toml:"thumbnail"`
	YouTube       YouTubeConfig      `yaml:"youtube" toml:"youtube"`
	Notifications NotificationConfig `yaml:"notifications" toml:"notifications"`
	HTTP          HTTPConfig         `yaml:"http" toml:"http"`
}

// LoggingConfig selects slog level and handler format.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// DatabaseConfig points at the SQLite run-history database.
type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// SchedulerConfig defines when the pipeline should run.
type SchedulerConfig struct {
	Enabled        bool           `yaml:"enabled" toml:"enabled"`
	CronExpression string         `yaml:"cronExpression" toml:"cronExpression"`
	Timezone       string         `yaml:"timezone" toml:"timezone"`
	location       *time.Location `yaml:"-" toml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// NewsConfig groups settings for headline sources.
type NewsConfig struct {
	MaxArticles int          `yaml:"maxArticles" toml:"maxArticles"`
	SelectCount int          `yaml:"selectCount" toml:"selectCount"`
	Sites       []SiteConfig `yaml:"sites" toml:"sites"`
}

// SiteConfig describes a single site with its scanner strategy.
type SiteConfig struct {
	Name    string            `yaml:"name" toml:"name"`
	Scanner string            `yaml:"scanner" toml:"scanner"`
	Feeds   []FeedConfig      `yaml:"feeds" toml:"feeds"`
	Options map[string]string `yaml:"options" toml:"options"`
}

// FeedConfig holds one concrete endpoint (an RSS URL or a subreddit).
type FeedConfig struct {
	Name string `yaml:"name" toml:"name"`
	URL  string `yaml:"url" toml:"url"`
}

// GeneratorConfig selects the text-generation provider and its retry policy.
type GeneratorConfig struct {
	Provider        string        `yaml:"provider" toml:"provider"`
	FallbackModels  []string      `yaml:"fallbackModels" toml:"fallbackModels"`
	MaxAttempts     int           `yaml:"maxAttempts" toml:"maxAttempts"`
	BackoffSeconds  []int         `yaml:"backoffSeconds" toml:"backoffSeconds"`
	Temperature     float64       `yaml:"temperature" toml:"temperature"`
	MaxOutputTokens int           `yaml:"maxOutputTokens" toml:"maxOutputTokens"`
	Gemini          GeminiConfig  `yaml:"gemini" toml:"gemini"`
	ChatGPT         ChatGPTConfig `yaml:"chatgpt" toml:"chatgpt"`
}

// Backoff converts the configured seconds into durations.
func (g GeneratorConfig) Backoff() []time.Duration {
	out := make([]time.Duration, 0, len(g.BackoffSeconds))
	for _, s := range g.BackoffSeconds {
		out = append(out, time.Duration(s)*time.Second)
	}
	return out
}

// Model returns the primary model of the selected provider.
func (g GeneratorConfig) Model() string {
	if strings.EqualFold(g.Provider, "chatgpt") {
		return g.ChatGPT.Model
	}
	return g.Gemini.Model
}

// GeminiConfig defines how to contact the Gemini generateContent API.
// Endpoint is the service root; the API version is part of the client.
type GeminiConfig struct {
	Endpoint string `yaml:"endpoint" toml:"endpoint"`
	Model    string `yaml:"model" toml:"model"`
	APIKey   string `yaml:"apiKey" toml:"apiKey"`
}

// ChatGPTConfig defines how to contact an OpenAI-compatible chat API.
type ChatGPTConfig struct {
	Endpoint     string `yaml:"endpoint" toml:"endpoint"`
	Model        string `yaml:"model" toml:"model"`
	APIKey       string `yaml:"apiKey" toml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt" toml:"systemPrompt"`
}

// ScriptConfig shapes the narration prompt.
type ScriptConfig struct {
	DurationMinutes int      `yaml:"durationMinutes" toml:"durationMinutes"`
	Language        string   `yaml:"language" toml:"language"`
	ChannelName     string   `yaml:"channelName" toml:"channelName"`
	Tagline         string   `yaml:"tagline" toml:"tagline"`
	DefaultTags     []string `yaml:"defaultTags" toml:"defaultTags"`
	PromptTemplate  string   `yaml:"promptTemplate" toml:"promptTemplate"`
}

// TTSConfig configures the edge-tts command.
type TTSConfig struct {
	Command string `yaml:"command" toml:"command"`
	Voice   string `yaml:"voice" toml:"voice"`
	Rate    string `yaml:"rate" toml:"rate"`
	Volume  string `yaml:"volume" toml:"volume"`
}

// VideoConfig configures frame drawing and ffmpeg encoding.
type VideoConfig struct {
	Width       int    `yaml:"width" toml:"width"`
	Height      int    `yaml:"height" toml:"height"`
	FPS         int    `yaml:"fps" toml:"fps"`
	Bitrate     string `yaml:"bitrate" toml:"bitrate"`
	FFmpegPath  string `yaml:"ffmpegPath" toml:"ffmpegPath"`
	FFprobePath string `yaml:"ffprobePath" toml:"ffprobePath"`
	FontPath    string `yaml:"fontPath" toml:"fontPath"`
}

// ShortsConfig configures the vertical clip.
type ShortsConfig struct {
	Width           int `yaml:"width" toml:"width"`
	Height          int `yaml:"height" toml:"height"`
	DurationSeconds int `yaml:"durationSeconds" toml:"durationSeconds"`
}

// ThumbnailConfig configures the thumbnail canvas.
type ThumbnailConfig struct {
	Width  int `yaml:"width" toml:"width"`
	Height int `yaml:"height" toml:"height"`
}

// YouTubeConfig holds upload and OAuth settings.
type YouTubeConfig struct {
	ClientID       string `yaml:"clientId" toml:"clientId"`
	ClientSecret   string `yaml:"clientSecret" toml:"clientSecret"`
	TokenFile      string `yaml:"tokenFile" toml:"tokenFile"`
	Endpoint       string `yaml:"endpoint" toml:"endpoint"`
	CategoryID     string `yaml:"categoryId" toml:"categoryId"`
	Privacy        string `yaml:"privacy" toml:"privacy"`
	Schedule       bool   `yaml:"schedule" toml:"schedule"`
	ScheduleHour   int    `yaml:"scheduleHour" toml:"scheduleHour"`
	ScheduleMinute int    `yaml:"scheduleMinute" toml:"scheduleMinute"`
	UploadShorts   bool   `yaml:"uploadShorts" toml:"uploadShorts"`
	// PlaylistID, when set, receives every published long-form video.
	PlaylistID     string `yaml:"playlistId" toml:"playlistId"`
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram" toml:"telegram"`
	WhatsApp WhatsAppConfig `yaml:"whatsapp" toml:"whatsapp"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken" toml:"botToken"`
	ChatID   string `yaml:"chatId" toml:"chatId"`
	BaseURL  string `yaml:"baseUrl" toml:"baseUrl"`
}

// Enabled reports whether both token and chat are set.
func (t TelegramConfig) Enabled() bool {
	return IsSet(t.BotToken) && IsSet(t.ChatID)
}

// WhatsAppConfig wires the CallMeBot gateway.
type WhatsAppConfig struct {
	Phone   string `yaml:"phone" toml:"phone"`
	APIKey  string `yaml:"apiKey" toml:"apiKey"`
	BaseURL string `yaml:"baseUrl" toml:"baseUrl"`
}

// Enabled reports whether phone and key are set.
func (w WhatsAppConfig) Enabled() bool {
	return IsSet(w.Phone) && IsSet(w.APIKey)
}

// HTTPConfig configures the control surface.
type HTTPConfig struct {
	Addr string `yaml:"addr" toml:"addr"`
}

// LookupFunc resolves an environment variable.
type LookupFunc func(key string) (string, bool)

// Loader reads configuration from disk and the environment.
type Loader struct {
	Path    string
	EnvFile string
	Lookup  LookupFunc
}

// NewLoader builds a Loader from the process environment.
func NewLoader() Loader {
	path := defaultConfigPath
	if v, ok := os.LookupEnv(configPathEnv); ok && v != "" {
		path = v
	}
	envFile := defaultEnvFile
	if v, ok := os.LookupEnv(envFileEnv); ok && v != "" {
		envFile = v
	}
	return Loader{Path: path, EnvFile: envFile, Lookup: os.LookupEnv}
}

// Load is shorthand for NewLoader().Load().
func Load() (Config, error) {
	return NewLoader().Load()
}

// Load applies defaults, then the config file (if present), then .env values,
// then real environment variables.
func (l Loader) Load() (Config, error) {
	cfg := defaultConfig()

	if l.Path != "" {
		if err := decodeFile(l.Path, &cfg); err != nil {
			return Config{}, err
		}
	}

	dotenv := map[string]string{}
	if l.EnvFile != "" {
		values, err := godotenv.Read(l.EnvFile)
		switch {
		case err == nil:
			dotenv = values
		case errors.Is(err, fs.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("config: read %s: %w", l.EnvFile, err)
		}
	}

	lookup := l.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cfg.applyEnvOverrides(func(key string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return dotenv[key]
	})
	cfg.bindTimezone()

	if len(cfg.News.Sites) == 0 {
		cfg.News.Sites = defaultConfig().News.Sites
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: cannot read %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(string(raw), cfg); err != nil {
			return fmt.Errorf("config: cannot parse %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return fmt.Errorf("config: cannot parse %s: %w", path, err)
		}
	}
	return nil
}

func (c *Config) applyEnvOverrides(get func(string) string) {
	setString := func(dst *string, key string) {
		if v := get(key); IsSet(v) {
			*dst = v
		}
	}

	setString(&c.OutputDir, outputDirEnv)
	setString(&c.Database.Path, databasePathEnv)
	setString(&c.Logging.Level, logLevelEnv)
	setString(&c.HTTP.Addr, httpAddrEnv)
	setString(&c.Scheduler.Timezone, scheduleTimezoneEnv)
	setString(&c.Generator.Provider, generatorProvEnv)
	setString(&c.Generator.Gemini.APIKey, geminiAPIKeyEnv)
	setString(&c.Generator.Gemini.Model, geminiModelEnv)
	setString(&c.Generator.ChatGPT.APIKey, chatGPTAPIKeyEnv)
	setString(&c.Generator.ChatGPT.Model, chatGPTModelEnv)
	setString(&c.YouTube.ClientID, youtubeClientIDEnv)
	setString(&c.YouTube.ClientSecret, youtubeSecretEnv)
	setString(&c.YouTube.PlaylistID, youtubePlaylistEnv)
	setString(&c.Notifications.Telegram.BotToken, telegramTokenEnv)
	setString(&c.Notifications.Telegram.ChatID, telegramChatIDEnv)
	setString(&c.Notifications.WhatsApp.Phone, whatsappPhoneEnv)
	setString(&c.Notifications.WhatsApp.APIKey, whatsappAPIKeyEnv)
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
		c.Scheduler.Timezone = defaultTimezone
	}
	c.Scheduler.location = loc
}

// IsSet reports whether v holds a real value rather than nothing or a
// "your_..._here" placeholder copied from a sample file.
func IsSet(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return false
	}
	lower := strings.ToLower(v)
	return !(strings.HasPrefix(lower, "your_") && strings.HasSuffix(lower, "_here"))
}

// Require returns a ConfigError when value is unset.
func Require(setting, value, hint string) (string, error) {
	if !IsSet(value) {
		return "", &domain.ConfigError{Setting: setting, Hint: hint}
	}
	return value, nil
}

// GeneratorAPIKey returns the key of the selected provider.
func (c Config) GeneratorAPIKey() (string, error) {
	if strings.EqualFold(c.Generator.Provider, "chatgpt") {
		return Require(chatGPTAPIKeyEnv, c.Generator.ChatGPT.APIKey, "add it to your .env file")
	}
	return Require(geminiAPIKeyEnv, c.Generator.Gemini.APIKey, "get a free key at https://aistudio.google.com/apikey and add it to your .env file")
}

// YouTubeCredentials returns the OAuth client id and secret.
func (c Config) YouTubeCredentials() (string, string, error) {
	id, err := Require(youtubeClientIDEnv, c.YouTube.ClientID, "create an OAuth client in Google Cloud Console")
	if err != nil {
		return "", "", err
	}
	secret, err := Require(youtubeSecretEnv, c.YouTube.ClientSecret, "create an OAuth client in Google Cloud Console")
	if err != nil {
		return "", "", err
	}
	return id, secret, nil
}

// DayDir is the date-partitioned output directory for day.
func (c Config) DayDir(day time.Time) string {
	return filepath.Join(c.OutputDir, domain.RunID(day))
}

// Today returns the current day in the scheduler timezone.
func (c Config) Today(now time.Time) time.Time {
	return now.In(c.Scheduler.Location())
}

// String renders a one-line summary safe for logs (no secrets).
func (c Config) String() string {
	return "output=" + c.OutputDir +
		" db=" + c.Database.Path +
		" cron=" + strconv.Quote(c.Scheduler.CronExpression) +
		" tz=" + c.Scheduler.Location().String() +
		" provider=" + c.Generator.Provider +
		" model=" + c.Generator.Model()
}

func defaultConfig() Config {
	return Config{
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		OutputDir: "output",
		Database:  DatabaseConfig{Path: filepath.Join("output", "pipeline.db")},
		Scheduler: SchedulerConfig{Enabled: true, CronExpression: "0 6 * * *", Timezone: defaultTimezone, location: time.UTC},
		News: NewsConfig{
			MaxArticles: 20,
			SelectCount: 8,
			Sites: []SiteConfig{
				{
					Name:    "google-news-india",
					Scanner: "rss",
					Feeds: []FeedConfig{
						{Name: "top", URL: "https://news.google.com/rss?hl=en-IN&gl=IN&ceid=IN:en"},
						{Name: "nation", URL: "https://news.google.com/rss/topics/CAAqIQgKIhtDQkFTRGdvSUwyMHZNRE55YXpBU0FtVnVLQUFQAQ?hl=en-IN&gl=IN&ceid=IN:en"},
						{Name: "business", URL: "https://news.google.com/rss/topics/CAAqJggKIiBDQkFTRWdvSUwyMHZNRGx6TVdZU0FtVnVHZ0pKVGlnQVAB?hl=en-IN&gl=IN&ceid=IN:en"},
					},
				},
			},
		},
		Generator: GeneratorConfig{
			Provider:        "gemini",
			FallbackModels:  []string{"gemini-2.5-flash", "gemini-2.0-flash", "gemini-2.0-flash-lite"},
			MaxAttempts:     3,
			BackoffSeconds:  []int{5, 15, 30},
			Temperature:     0.7,
			MaxOutputTokens: 8192,
			Gemini: GeminiConfig{
				Endpoint: "https://generativelanguage.googleapis.com/",
				Model:    "gemini-2.5-flash",
			},
			ChatGPT: ChatGPTConfig{
				Endpoint:     "https://api.openai.com/v1/chat/completions",
				Model:        "gpt-4o-mini",
				SystemPrompt: "You are a news editor. Reply with a single JSON object only.",
			},
		},
		Script: ScriptConfig{
			DurationMinutes: 5,
			Language:        "English",
			ChannelName:     "Daily Current Affairs",
			Tagline:         "Your Daily News in 5 Minutes",
			DefaultTags: []string{
				"current affairs", "daily news", "india news", "today news",
				"news today", "current affairs today", "daily current affairs",
				"upsc current affairs", "news analysis",
			},
		},
		TTS:       TTSConfig{Command: "edge-tts", Voice: "en-IN-NeerjaNeural", Rate: "+0%", Volume: "+0%"},
		Video:     VideoConfig{Width: 1920, Height: 1080, FPS: 24, Bitrate: "5000k", FFmpegPath: "ffmpeg", FFprobePath: "ffprobe"},
		Shorts:    ShortsConfig{Width: 1080, Height: 1920, DurationSeconds: 60},
		Thumbnail: ThumbnailConfig{Width: 1280, Height: 720},
		YouTube: YouTubeConfig{
			TokenFile:      "token.json",
			CategoryID:     "25",
			Privacy:        "private",
			Schedule:       true,
			ScheduleHour:   9,
			ScheduleMinute: 0,
			UploadShorts:   true,
		},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{BaseURL: "https://api.telegram.org"},
			WhatsApp: WhatsAppConfig{BaseURL: "https://api.callmebot.com/whatsapp.php"},
		},
		HTTP: HTTPConfig{Addr: ":8080"},
	}
}
