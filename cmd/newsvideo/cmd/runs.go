package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"NewsVideoPipeline/internal/domain"
)

var (
	runsLimit   uint64
	runsVerbose bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded pipeline runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		application, _, _, err := setup()
		if err != nil {
			return err
		}
		defer application.Close()

		runs, err := application.History(cmd.Context(), runsLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(runs) == 0 {
			fmt.Fprintln(out, "no runs recorded yet")
			return nil
		}
		for _, run := range runs {
			started := "-"
			if run.StartedAt != nil {
				started = run.StartedAt.Local().Format(time.DateTime)
			}
			mode := ""
			if run.DryRun {
				mode = color.New(color.Faint).Sprint(" dry-run")
			}
			fmt.Fprintf(out, "%s  %s  steps %d-%d  %s%s\n",
				run.ID, started, int(run.StartStep), int(run.EndStep), statusColor(run.Status), mode)
			if run.Error != "" {
				fmt.Fprintf(out, "    %s\n", color.RedString(run.Error))
			}
			if runsVerbose {
				for _, entry := range run.Log {
					fmt.Fprintf(out, "    [%s] step %d: %s\n", entry.Time.Local().Format(time.TimeOnly), int(entry.Stage), entry.Message)
				}
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().Uint64VarP(&runsLimit, "limit", "n", 10, "Maximum runs")
	runsCmd.Flags().BoolVarP(&runsVerbose, "verbose", "v", false, "Show the log of each run")
}

func statusColor(s domain.RunStatus) string {
	switch s {
	case domain.RunCompleted:
		return color.GreenString(string(s))
	case domain.RunFailed:
		return color.RedString(string(s))
	default:
		return color.YellowString(string(s))
	}
}
