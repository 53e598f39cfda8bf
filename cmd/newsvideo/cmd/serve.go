package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP control surface and the daily scheduler",
	RunE: func(_ *cobra.Command, _ []string) error {
		application, cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer application.Close()

		ctx, cancel := signalContext()
		defer cancel()

		addr := serveAddr
		if addr == "" {
			addr = cfg.HTTP.Addr
		}
		logger.Info("starting", "config", cfg.String(), "addr", addr, "scheduler", cfg.Scheduler.Enabled)
		if err := application.Serve(ctx, addr); err != nil {
			return err
		}
		if application.Runner().Running() {
			logger.Info("waiting for the active run to stop")
			application.Runner().Stop()
			waitCtx, cancelWait := context.WithTimeout(context.Background(), time.Minute)
			defer cancelWait()
			_ = application.Runner().Wait(waitCtx)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config http.addr)")
}
