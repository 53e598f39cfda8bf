package app

import (
	"context"
	"errors"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"NewsVideoPipeline/internal/config"
	"NewsVideoPipeline/internal/domain"
)

const checkTimeout = 5 * time.Second

// SystemHealth checks the external tools and credentials a run depends on.
// The report is unhealthy when a required check fails.
func (a *Application) SystemHealth(ctx context.Context) domain.SystemReport {
	cfg, err := a.load()
	if err != nil {
		a.logger.Warn("health check uses startup configuration", "error", err)
		cfg = a.cfg
	}

	report := domain.SystemReport{Healthy: true, CheckedAt: time.Now()}
	report.Add(a.checkTool(ctx, "ffmpeg", cfg.Video.FFmpegPath, "-version"))
	report.Add(a.checkTool(ctx, "ffprobe", cfg.Video.FFprobePath, "-version"))
	report.Add(a.checkTool(ctx, "edge-tts", cfg.TTS.Command, "--version"))
	report.Add(generatorKeyCheck(cfg))
	report.Add(youtubeCheck(cfg.YouTube))
	report.Add(domain.DependencyCheck{Name: "telegram", OK: cfg.Notifications.Telegram.Enabled(), Detail: detail(cfg.Notifications.Telegram.Enabled(), "TELEGRAM_BOT_TOKEN / TELEGRAM_CHAT_ID not set")})
	report.Add(domain.DependencyCheck{Name: "whatsapp", OK: cfg.Notifications.WhatsApp.Enabled(), Detail: detail(cfg.Notifications.WhatsApp.Enabled(), "WHATSAPP_PHONE / WHATSAPP_API_KEY not set")})
	report.Add(domain.DependencyCheck{Name: "run history", OK: a.repo != nil, Detail: cfg.Database.Path})

	report.OutputSizeMB = dirSizeMB(cfg.OutputDir)
	return report
}

func (a *Application) checkTool(ctx context.Context, name, binary string, args ...string) domain.DependencyCheck {
	check := domain.DependencyCheck{Name: name, Required: true}
	if binary == "" {
		check.Detail = "not configured"
		return check
	}
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	out, err := a.tools(ctx, binary, args...)
	if err != nil {
		check.Detail = "not found: " + err.Error()
		return check
	}
	check.OK = true
	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	check.Detail = truncate(line, 60)
	return check
}

func generatorKeyCheck(cfg config.Config) domain.DependencyCheck {
	check := domain.DependencyCheck{Name: "generator key", Required: true, Detail: "configured"}
	if _, err := cfg.GeneratorAPIKey(); err != nil {
		check.Detail = err.Error()
		return check
	}
	check.OK = true
	return check
}

func youtubeCheck(y config.YouTubeConfig) domain.DependencyCheck {
	check := domain.DependencyCheck{Name: "youtube"}
	if !config.IsSet(y.ClientID) || !config.IsSet(y.ClientSecret) {
		check.Detail = "YOUTUBE_CLIENT_ID / YOUTUBE_CLIENT_SECRET not set"
		return check
	}
	if _, err := os.Stat(y.TokenFile); err != nil {
		check.Detail = "no cached token, run `newsvideo auth`"
		return check
	}
	check.OK = true
	check.Detail = "authorized"
	return check
}

func detail(ok bool, missing string) string {
	if ok {
		return "configured"
	}
	return missing
}

func dirSizeMB(root string) float64 {
	var total int64
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				total += info.Size()
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return 0
	}
	return math.Round(float64(total)/(1<<20)*10) / 10
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
