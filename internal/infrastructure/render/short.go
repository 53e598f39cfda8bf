package render

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"NewsVideoPipeline/internal/domain"
)

// RenderShort cuts a vertical clip from the main video, skipping the first
// few seconds of the intro card.
func (r *Renderer) RenderShort(ctx context.Context, videoPath, outputDir string) (string, error) {
	total, err := r.probeDuration(ctx, videoPath)
	if err != nil {
		return "", err
	}
	start, length := shortWindow(total, float64(r.shorts.DurationSeconds))
	if length <= 0 {
		return "", fmt.Errorf("video of %.1fs is too short for a clip", total)
	}

	out := filepath.Join(outputDir, domain.ShortFile)
	filter := fmt.Sprintf(
		"crop=w='min(iw,ih*%[1]d/%[2]d)':h='min(ih,iw*%[2]d/%[1]d)',scale=%[1]d:%[2]d,setsar=1",
		r.shorts.Width, r.shorts.Height,
	)
	r.logger.Info("cutting short", "start", formatSeconds(start), "length", formatSeconds(length))
	_, err = r.run(ctx, r.video.FFmpegPath,
		"-y",
		"-ss", formatSeconds(start),
		"-i", videoPath,
		"-t", formatSeconds(length),
		"-vf", filter,
		"-c:v", "libx264", "-preset", "fast", "-pix_fmt", "yuv420p",
		"-c:a", "aac", "-b:a", "128k",
		out,
	)
	if err != nil {
		return "", domain.Unavailable("ffmpeg", err)
	}
	if _, err := os.Stat(out); err != nil {
		return "", domain.Unavailable("ffmpeg", fmt.Errorf("no clip written to %s", out))
	}
	return out, nil
}

func shortWindow(total, maxLength float64) (start, length float64) {
	start = math.Min(5, total*0.05)
	length = math.Min(maxLength, total-start)
	return start, length
}
