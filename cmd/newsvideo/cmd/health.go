package cmd

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check ffmpeg, edge-tts, and the configured credentials",
	RunE: func(cmd *cobra.Command, _ []string) error {
		application, _, _, err := setup()
		if err != nil {
			return err
		}
		defer application.Close()

		ctx, cancel := signalContext()
		defer cancel()

		report := application.SystemHealth(ctx)
		out := cmd.OutOrStdout()
		for _, c := range report.Checks {
			mark := color.GreenString("ok  ")
			switch {
			case !c.OK && c.Required:
				mark = color.RedString("FAIL")
			case !c.OK:
				mark = color.YellowString("off ")
			}
			fmt.Fprintf(out, "  %s %-14s %s\n", mark, c.Name, c.Detail)
		}
		fmt.Fprintf(out, "\nOutput folder: %.1f MB\n", report.OutputSizeMB)
		if !report.Healthy {
			return errors.New("required dependencies are missing")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
