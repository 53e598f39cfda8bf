package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var channelVideos int

var channelCmd = &cobra.Command{
	Use:   "channel",
	Short: "Show the authorized YouTube channel and its recent uploads",
	RunE: func(cmd *cobra.Command, _ []string) error {
		application, _, _, err := setup()
		if err != nil {
			return err
		}
		defer application.Close()

		ctx, cancel := signalContext()
		defer cancel()

		channel := application.Channel()
		info, err := channel.Info(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s  %s\n", color.New(color.Bold).Sprint(info.Title), info.URL)
		fmt.Fprintf(out, "  subscribers %d, views %d, videos %d\n", info.Subscribers, info.Views, info.Videos)

		if channelVideos <= 0 {
			return nil
		}
		videos, err := channel.RecentVideos(ctx, channelVideos)
		if err != nil {
			return err
		}
		fmt.Fprintln(out)
		for _, v := range videos {
			fmt.Fprintf(out, "  %s  %-9s %s\n", v.PublishedAt.Format("2006-01-02"), v.Privacy, v.Title)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(channelCmd)
	channelCmd.Flags().IntVar(&channelVideos, "videos", 5, "Recent uploads to list, 0 to skip")
}
