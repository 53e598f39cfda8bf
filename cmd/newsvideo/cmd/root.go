package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"NewsVideoPipeline/internal/app"
	"NewsVideoPipeline/internal/config"
	"NewsVideoPipeline/internal/logging"
)

// Version is set at build time via ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "newsvideo",
	Short: "Daily news video pipeline",
	Long: `newsvideo turns the day's headlines into a narrated video.

It fetches news, writes a script with a generative model, synthesizes a
voiceover, renders the video, short clip and thumbnail, publishes to
YouTube and announces the result on Telegram and WhatsApp.

Configuration is read from config.yaml (or NEWSVIDEO_CONFIG) and .env.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("newsvideo {{.Version}}\n")
}

// setup loads configuration and builds the application.
func setup() (*app.Application, config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, config.Config{}, nil, err
	}
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	return app.New(cfg, config.Load, logger), cfg, logger, nil
}

// signalContext is cancelled on Ctrl-C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
