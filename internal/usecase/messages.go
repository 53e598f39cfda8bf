package usecase

import (
	"fmt"
	"strings"
	"time"

	"NewsVideoPipeline/internal/domain"
)

const messageTimeLayout = "03:04 PM, January 2, 2006"

// ReadyMessage announces that today's video is up for review.
func ReadyMessage(title, url string, now time.Time) string {
	var b strings.Builder
	b.WriteString("Today's video is ready!\n")
	b.WriteString("Review it before it goes public.\n\n")
	fmt.Fprintf(&b, "Title: %s\n", title)
	if url != "" {
		fmt.Fprintf(&b, "Preview: %s\n", url)
	}
	fmt.Fprintf(&b, "Generated at: %s\n", now.Format(messageTimeLayout))
	return b.String()
}

// FailureMessage reports a fatal run error.
func FailureMessage(stage domain.Stage, err error, now time.Time) string {
	detail := truncate(err.Error(), 200)
	var b strings.Builder
	b.WriteString("Video generation failed!\n\n")
	if stage.Valid() {
		fmt.Fprintf(&b, "Step: %d (%s)\n", int(stage), stage.Label())
	}
	fmt.Fprintf(&b, "Error: %s\n", detail)
	fmt.Fprintf(&b, "Time: %s\n", now.Format(messageTimeLayout))
	return b.String()
}

var summaryLines = []struct {
	label string
	key   string
}{
	{"News fetched", domain.ResultNewsCount},
	{"Stories", domain.ResultStoryCount},
	{"Voiceover", domain.ResultVoiceover},
	{"Video", domain.ResultVideo},
	{"Thumbnail", domain.ResultThumbnail},
	{"YouTube upload", domain.ResultUpload},
	{"Short clip", domain.ResultShort},
	{"Telegram post", domain.ResultTelegram},
}

// SummaryMessage renders the daily results summary.
func SummaryMessage(results domain.RunResult, now time.Time) string {
	var b strings.Builder
	b.WriteString("Daily pipeline summary\n")
	b.WriteString(now.Format(messageTimeLayout))
	b.WriteString("\n\n")
	for _, line := range summaryLines {
		value := results[line.key]
		if value == "" {
			value = "?"
		}
		fmt.Fprintf(&b, "%s: %s\n", line.label, value)
	}
	if url := results[domain.ResultYouTubeURL]; url != "" {
		fmt.Fprintf(&b, "\n%s", url)
	}
	return b.String()
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
