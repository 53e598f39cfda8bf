package render

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fogleman/gg"

	"NewsVideoPipeline/internal/domain"
)

const framesDir = ".frames"

// RenderVideo draws one frame per script section, holds each for a share of
// the narration proportional to its word count, and muxes the slideshow
// with the voiceover into final_video.mp4.
func (r *Renderer) RenderVideo(ctx context.Context, script domain.ScriptDocument, audioPath, outputDir string) (string, error) {
	total, err := r.probeDuration(ctx, audioPath)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(outputDir, framesDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create frames dir: %w", err)
	}
	defer os.RemoveAll(dir)

	date := script.Date
	if date == "" {
		date = time.Now().Format("January 2, 2006")
	}
	title := script.TitleOr(r.channelName)

	frames := make([]image.Image, 0, len(script.Stories)+2)
	frames = append(frames, r.introFrame(title, date))
	for i, story := range script.Stories {
		frames = append(frames, r.storyFrame(story, i+1, len(script.Stories), date))
	}
	frames = append(frames, r.outroFrame())

	paths := make([]string, len(frames))
	for i, frame := range frames {
		paths[i] = filepath.Join(dir, fmt.Sprintf("frame_%03d.png", i))
		if err := gg.SavePNG(paths[i], frame); err != nil {
			return "", fmt.Errorf("save frame %d: %w", i, err)
		}
	}

	durations := segmentDurations(script, total)
	listPath := filepath.Join(dir, "frames.txt")
	if err := writeConcatList(listPath, paths, durations); err != nil {
		return "", err
	}

	out := filepath.Join(outputDir, domain.VideoFile)
	r.logger.Info("encoding video", "frames", len(frames), "duration", formatSeconds(total))
	_, err = r.run(ctx, r.video.FFmpegPath,
		"-y",
		"-f", "concat", "-safe", "0", "-i", listPath,
		"-i", audioPath,
		"-c:v", "libx264", "-pix_fmt", "yuv420p",
		"-r", fmt.Sprint(r.video.FPS),
		"-b:v", r.video.Bitrate,
		"-c:a", "aac", "-b:a", "192k",
		"-shortest",
		out,
	)
	if err != nil {
		return "", domain.Unavailable("ffmpeg", err)
	}
	if info, err := os.Stat(out); err != nil || info.Size() == 0 {
		return "", domain.Unavailable("ffmpeg", fmt.Errorf("no video written to %s", out))
	}
	r.logger.Info("video saved", "path", out)
	return out, nil
}

// segmentDurations splits total seconds across intro, stories, and outro in
// proportion to how many words each section narrates.
func segmentDurations(script domain.ScriptDocument, total float64) []float64 {
	weights := make([]float64, 0, len(script.Stories)+2)
	weights = append(weights, sectionWeight(script.IntroScript))
	for _, story := range script.Stories {
		weights = append(weights, sectionWeight(story.Script))
	}
	weights = append(weights, sectionWeight(script.OutroScript))

	var sum float64
	for _, w := range weights {
		sum += w
	}
	out := make([]float64, len(weights))
	for i, w := range weights {
		out[i] = total * w / sum
	}
	return out
}

// Silent sections still get a frame on screen.
func sectionWeight(text string) float64 {
	if n := len(strings.Fields(text)); n > 0 {
		return float64(n)
	}
	return 1
}

// writeConcatList writes an ffmpeg concat demuxer script. The demuxer ignores
// the duration of the final entry, so the last frame is listed twice.
func writeConcatList(path string, frames []string, durations []float64) error {
	var b strings.Builder
	for i, frame := range frames {
		abs, err := filepath.Abs(frame)
		if err != nil {
			return fmt.Errorf("resolve frame path: %w", err)
		}
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
		fmt.Fprintf(&b, "duration %s\n", formatSeconds(durations[i]))
		if i == len(frames)-1 {
			fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
		}
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	return nil
}
