package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var newsLimit int

var newsCmd = &cobra.Command{
	Use:   "news",
	Short: "Preview the headlines the next run would fetch",
	RunE: func(cmd *cobra.Command, _ []string) error {
		application, _, _, err := setup()
		if err != nil {
			return err
		}
		defer application.Close()

		ctx, cancel := signalContext()
		defer cancel()

		articles, err := application.PreviewNews(ctx, newsLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for i, a := range articles {
			fmt.Fprintf(out, "%2d. %s", i+1, color.New(color.Bold).Sprint(a.Title))
			if a.Source != "" {
				fmt.Fprintf(out, " %s", color.CyanString("(%s)", a.Source))
			}
			fmt.Fprintln(out)
			if a.URL != "" {
				fmt.Fprintf(out, "    %s\n", a.URL)
			}
		}
		fmt.Fprintf(out, "\n%d headlines\n", len(articles))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(newsCmd)
	newsCmd.Flags().IntVarP(&newsLimit, "limit", "n", 10, "Maximum headlines")
}
