package cmd

import (
	"bufio"
	"fmt"
	"net/url"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"NewsVideoPipeline/internal/config"
	"NewsVideoPipeline/internal/infrastructure/youtube"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize YouTube uploads (one time)",
	Long: `Auth prints the Google consent URL, reads the returned code and caches
the OAuth token in youtube.tokenFile. The browser is redirected to
http://localhost after consent; paste that full address or just its code.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		state := uuid.NewString()
		link, err := youtube.AuthCodeURL(cfg.YouTube, state)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Open this URL in your browser and approve access:")
		fmt.Fprintln(out, color.CyanString(link))
		fmt.Fprint(out, "\nPaste the redirected URL or code: ")

		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read code: %w", err)
		}
		code, err := extractCode(line, state)
		if err != nil {
			return err
		}

		ctx, cancel := signalContext()
		defer cancel()
		if err := youtube.Exchange(ctx, cfg.YouTube, code); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s token saved to %s\n", color.GreenString("Authorized:"), cfg.YouTube.TokenFile)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
}

// extractCode accepts either the bare code or the full redirect URL.
func extractCode(input, state string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("empty code")
	}
	if !strings.Contains(input, "code=") {
		return input, nil
	}
	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("parse redirect url: %w", err)
	}
	q := u.Query()
	if got := q.Get("state"); got != "" && got != state {
		return "", fmt.Errorf("state mismatch, restart auth")
	}
	code := q.Get("code")
	if code == "" {
		return "", fmt.Errorf("redirect url has no code")
	}
	return code, nil
}
