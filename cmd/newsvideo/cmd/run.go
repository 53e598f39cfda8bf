package cmd

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"NewsVideoPipeline/internal/domain"
)

var (
	runDryRun bool
	runSteps  string
	runDate   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline once and wait for it",
	Long: `Run executes the pipeline synchronously for today's date.

Examples:
  newsvideo run                 # every step
  newsvideo run --dry-run       # skip upload, cross-post and notifications
  newsvideo run --step 4        # only rebuild the video
  newsvideo run --step 2-5      # script through thumbnail
  newsvideo run --step 6 --date 2024-03-01   # upload an earlier day`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		steps, err := parseSteps(runSteps)
		if err != nil {
			return err
		}
		application, cfg, _, err := setup()
		if err != nil {
			return err
		}
		defer application.Close()

		day, err := parseDay(runDate, cfg.Scheduler.Location())
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()

		snap, runErr := application.Run(ctx, domain.RunRequest{DryRun: runDryRun, Steps: steps, Day: day})
		printSummary(cmd, snap)
		return runErr
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Skip irreversible steps (publish, cross-post, notify)")
	runCmd.Flags().StringVar(&runSteps, "step", "", "Step N or range N-M (1-8)")
	runCmd.Flags().StringVar(&runDate, "date", "", "Reuse the output folder of YYYY-MM-DD instead of today")
}

// parseDay returns the zero time for "", which selects today.
func parseDay(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	day, err := domain.ParseRunID(v, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD", v)
	}
	return day, nil
}

// parseSteps accepts "", "N", or "N-M".
func parseSteps(v string) (domain.StepRange, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return domain.FullRange(), nil
	}
	first, last, isRange := strings.Cut(v, "-")
	start, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil {
		return domain.StepRange{}, fmt.Errorf("invalid step %q", v)
	}
	end := start
	if isRange {
		if end, err = strconv.Atoi(strings.TrimSpace(last)); err != nil {
			return domain.StepRange{}, fmt.Errorf("invalid step range %q", v)
		}
	}
	r := domain.StepRange{Start: domain.Stage(start), End: domain.Stage(end)}
	if err := r.Validate(); err != nil {
		return domain.StepRange{}, err
	}
	return r, nil
}

func printSummary(cmd *cobra.Command, snap domain.RunSnapshot) {
	out := cmd.OutOrStdout()
	if snap.ID == "" {
		return
	}

	status := color.New(color.FgGreen, color.Bold)
	switch snap.Status {
	case domain.RunFailed:
		status = color.New(color.FgRed, color.Bold)
	case domain.RunStopping, domain.RunRunning:
		status = color.New(color.FgYellow, color.Bold)
	}
	fmt.Fprintf(out, "\nRun %s: %s\n", snap.ID, status.Sprint(strings.ToUpper(string(snap.Status))))
	if snap.OutputDir != "" {
		fmt.Fprintf(out, "Output: %s\n", snap.OutputDir)
	}

	keys := make([]string, 0, len(snap.Results))
	for k := range snap.Results {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(out, "  %-18s %s\n", k, colorResult(snap.Results[k]))
	}
	if snap.Error != "" {
		fmt.Fprintf(out, "%s %s\n", color.RedString("Error:"), snap.Error)
	}
}

func colorResult(v string) string {
	switch {
	case v == domain.StatusDone:
		return color.GreenString(v)
	case strings.HasPrefix(v, "degraded"):
		return color.YellowString(v)
	case strings.HasPrefix(v, "skipped"):
		return color.New(color.Faint).Sprint(v)
	default:
		return v
	}
}
