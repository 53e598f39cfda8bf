package render

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fogleman/gg"

	"NewsVideoPipeline/internal/domain"
)

const maxHeadlineLines = 4

// RenderThumbnail draws the upload thumbnail. An empty date falls back to
// today's date.
func (r *Renderer) RenderThumbnail(ctx context.Context, title, date, outputDir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(date) == "" {
		date = time.Now().Format("02 Jan 2006")
	}
	if strings.TrimSpace(title) == "" {
		title = r.channelName
	}

	c := newCanvas(r.thumb.Width, r.thumb.Height, 1280, r.fonts)
	c.gradient(rgb(15, 10, 40), rgb(45, 20, 70), false)
	c.rect(0, 0, c.w, c.px(8), colorBright)

	// Channel badge, top left.
	c.font(30, true)
	badge := strings.ToUpper(r.channelName)
	bw := c.width(badge)
	c.rect(c.px(40), c.px(30), bw+c.px(40), c.px(50), colorRed)
	c.text(badge, c.px(60), c.px(40), colorWhite)

	// Date badge, top right.
	c.font(26, true)
	dw := c.width(date)
	c.rect(c.w-dw-c.px(80), c.px(30), dw+c.px(40), c.px(50), colorGold)
	c.text(date, c.w-dw-c.px(60), c.px(42), colorInk)

	// Headline with a drop shadow.
	c.font(64, true)
	lines := c.wrap(strings.ToUpper(title), c.w-c.px(120), maxHeadlineLines)
	y := c.px(130)
	for _, line := range lines {
		c.text(line, c.px(63), y+c.px(3), colorShadow)
		c.text(line, c.px(60), y, colorWhite)
		y += c.px(80)
	}

	c.rect(c.px(60), y+c.px(10), c.px(200), c.px(6), colorAccent)

	bar := c.px(90)
	c.rect(0, c.h-bar, c.w, bar, colorOverlay)
	c.font(34, true)
	c.centered(r.channelName, c.h-bar+c.px(24), colorGold)
	c.rect(0, c.h-c.px(6), c.w, c.px(6), colorBright)

	out := filepath.Join(outputDir, domain.ThumbnailFile)
	if err := gg.SavePNG(out, c.image()); err != nil {
		return "", fmt.Errorf("save thumbnail: %w", err)
	}
	r.logger.Info("thumbnail saved", "path", out, "lines", len(lines))
	return out, nil
}
