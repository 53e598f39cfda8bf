package render

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"NewsVideoPipeline/internal/config"
	"NewsVideoPipeline/internal/domain"
	"NewsVideoPipeline/internal/logging"
)

// fakeTools stands in for ffprobe and ffmpeg. ffmpeg writes its last
// argument so existence checks pass.
type fakeTools struct {
	duration string
	ffmpeg   [][]string
	list     string
	fail     error
}

func (f *fakeTools) run(_ context.Context, name string, args ...string) ([]byte, error) {
	switch name {
	case "ffprobe":
		return []byte(f.duration + "\n"), nil
	case "ffmpeg":
		f.ffmpeg = append(f.ffmpeg, args)
		if f.fail != nil {
			return nil, f.fail
		}
		for i, a := range args {
			if a == "concat" && i+4 < len(args) {
				raw, err := os.ReadFile(args[i+4])
				if err != nil {
					return nil, err
				}
				f.list = string(raw)
			}
		}
		return nil, os.WriteFile(args[len(args)-1], []byte("mp4"), 0o644)
	}
	return nil, errors.New("unexpected command " + name)
}

func newTestRenderer(t *testing.T, tools *fakeTools) *Renderer {
	t.Helper()
	r, err := New(Options{
		Video:       config.VideoConfig{Width: 1920, Height: 1080, FPS: 24, Bitrate: "5000k"},
		ChannelName: "Daily Current Affairs",
		Tagline:     "Your Daily News in 5 Minutes",
	}, tools.run, logging.Discard())
	require.NoError(t, err)
	return r
}

func sampleScript() domain.ScriptDocument {
	doc := domain.ScriptDocument{
		Title:       "Budget day and monsoon updates",
		Date:        "March 1, 2026",
		IntroScript: "Good morning and welcome.",
		Stories: []domain.Story{
			{Headline: "Budget announced", Script: "The finance minister presented the budget today in parliament."},
			{Headline: "Monsoon arrives early", Script: "Rains reached Kerala."},
		},
		OutroScript: "Thanks for watching.",
	}
	doc.Seal()
	return doc
}

func near(t *testing.T, want color.RGBA, got color.RGBA) {
	t.Helper()
	d := func(a, b uint8) int {
		if a > b {
			return int(a - b)
		}
		return int(b - a)
	}
	if d(want.R, got.R) > 6 || d(want.G, got.G) > 6 || d(want.B, got.B) > 6 {
		t.Fatalf("pixel %v, want about %v", got, want)
	}
}

func TestFrames(t *testing.T) {
	t.Parallel()

	r := newTestRenderer(t, &fakeTools{})
	doc := sampleScript()

	intro := r.introFrame(doc.Title, doc.Date).(*image.RGBA)
	require.Equal(t, image.Rect(0, 0, 1920, 1080), intro.Bounds())
	near(t, rgb(10, 10, 30), intro.RGBAAt(1, 1))

	story := r.storyFrame(doc.Stories[0], 1, 2, doc.Date).(*image.RGBA)
	near(t, colorRed, story.RGBAAt(960, 55))
	near(t, colorRed, story.RGBAAt(960, 1078))

	outro := r.outroFrame().(*image.RGBA)
	require.Equal(t, intro.Bounds(), outro.Bounds())
}

func TestSegmentDurations(t *testing.T) {
	t.Parallel()

	doc := sampleScript()
	got := segmentDurations(doc, 60)
	require.Len(t, got, 4)

	var sum float64
	for _, d := range got {
		sum += d
	}
	require.InDelta(t, 60, sum, 1e-9)
	require.Greater(t, got[1], got[2], "longer narration holds its frame longer")

	silent := segmentDurations(domain.ScriptDocument{}, 10)
	require.Equal(t, []float64{5, 5}, silent)
}

func TestRenderVideo(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	audio := filepath.Join(dir, domain.VoiceoverFile)
	require.NoError(t, os.WriteFile(audio, []byte("ID3"), 0o644))

	tools := &fakeTools{duration: "30.0"}
	r := newTestRenderer(t, tools)

	out, err := r.RenderVideo(context.Background(), sampleScript(), audio, dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, domain.VideoFile), out)

	require.Len(t, tools.ffmpeg, 1)
	args := tools.ffmpeg[0]
	require.Contains(t, args, "-shortest")
	require.Contains(t, args, "5000k")
	require.Contains(t, args, audio)

	lines := strings.Split(strings.TrimSpace(tools.list), "\n")
	require.Len(t, lines, 4*2+1)
	require.Equal(t, lines[len(lines)-3], lines[len(lines)-1], "last frame repeated")
	require.True(t, strings.HasPrefix(lines[1], "duration "))

	_, err = os.Stat(filepath.Join(dir, framesDir))
	require.True(t, os.IsNotExist(err), "frames are cleaned up")
}

func TestRenderVideoEncoderFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	audio := filepath.Join(dir, domain.VoiceoverFile)
	require.NoError(t, os.WriteFile(audio, []byte("ID3"), 0o644))

	r := newTestRenderer(t, &fakeTools{duration: "30", fail: errors.New("exit status 1")})
	_, err := r.RenderVideo(context.Background(), sampleScript(), audio, dir)
	require.ErrorIs(t, err, domain.ErrCollaboratorUnavailable)
}

func TestRenderShort(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	video := filepath.Join(dir, domain.VideoFile)
	require.NoError(t, os.WriteFile(video, []byte("mp4"), 0o644))

	tools := &fakeTools{duration: "300"}
	r := newTestRenderer(t, tools)

	out, err := r.RenderShort(context.Background(), video, dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, domain.ShortFile), out)

	args := tools.ffmpeg[0]
	want := []string{"-y", "-ss", "5.000", "-i", video, "-t", "60.000", "-vf"}
	if diff := cmp.Diff(want, args[:len(want)]); diff != "" {
		t.Fatalf("ffmpeg args mismatch (-want +got):\n%s", diff)
	}
	require.Contains(t, args[len(want)], "scale=1080:1920")
}

func TestShortWindow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		total, start, length float64
	}{
		{total: 300, start: 5, length: 60},
		{total: 40, start: 2, length: 38},
		{total: 0, start: 0, length: 0},
	}
	for _, tt := range tests {
		start, length := shortWindow(tt.total, 60)
		require.InDelta(t, tt.start, start, 1e-9)
		require.InDelta(t, tt.length, length, 1e-9)
	}
}

func TestRenderThumbnail(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	r := newTestRenderer(t, &fakeTools{})

	out, err := r.RenderThumbnail(context.Background(), "A very long headline about the union budget and what it means for the middle class this year", "", dir)
	require.NoError(t, err)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 1280, 720), img.Bounds())

	cr, cg, cb, _ := img.At(640, 2).RGBA()
	require.Equal(t, uint32(0xFFFF), cr)
	require.Zero(t, cg)
	require.Zero(t, cb)
}
