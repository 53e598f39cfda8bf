package render

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/fogleman/gg"

	"NewsVideoPipeline/internal/domain"
)

var (
	colorWhite   = color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
	colorRed     = color.RGBA{0xCC, 0x00, 0x00, 0xFF}
	colorAccent  = color.RGBA{0xE9, 0x45, 0x60, 0xFF}
	colorGold    = color.RGBA{0xFF, 0xD7, 0x00, 0xFF}
	colorBody    = color.RGBA{0xE0, 0xE0, 0xE0, 0xFF}
	colorInk     = color.RGBA{0x1A, 0x1A, 0x2E, 0xFF}
	colorShadow  = color.RGBA{0x00, 0x00, 0x00, 0xFF}
	colorBright  = color.RGBA{0xFF, 0x00, 0x00, 0xFF}
	colorOverlay = color.RGBA{0x00, 0x00, 0x00, 0xC8}
)

// canvas wraps a gg context with a scale factor relative to the 1920px
// reference layout, so the same layout works for other resolutions.
type canvas struct {
	dc    *gg.Context
	fonts *fontSet
	scale float64
	w, h  float64
}

func newCanvas(width, height int, ref float64, fonts *fontSet) *canvas {
	return &canvas{
		dc:    gg.NewContext(width, height),
		fonts: fonts,
		scale: float64(width) / ref,
		w:     float64(width),
		h:     float64(height),
	}
}

func (c *canvas) px(v float64) float64 {
	return v * c.scale
}

func (c *canvas) gradient(from, to color.Color, diagonal bool) {
	x1, y1 := 0.0, c.h
	if diagonal {
		x1 = c.w
	}
	grad := gg.NewLinearGradient(0, 0, x1, y1)
	grad.AddColorStop(0, from)
	grad.AddColorStop(1, to)
	c.dc.SetFillStyle(grad)
	c.dc.DrawRectangle(0, 0, c.w, c.h)
	c.dc.Fill()
}

func (c *canvas) rect(x, y, w, h float64, col color.Color) {
	c.dc.SetColor(col)
	c.dc.DrawRectangle(x, y, w, h)
	c.dc.Fill()
}

func (c *canvas) font(size float64, bold bool) {
	c.dc.SetFontFace(c.fonts.face(c.px(size), bold))
}

// text draws s with its top-left corner at (x, y).
func (c *canvas) text(s string, x, y float64, col color.Color) {
	c.dc.SetColor(col)
	c.dc.DrawStringAnchored(s, x, y, 0, 1)
}

// centered draws s horizontally centered with its top at y.
func (c *canvas) centered(s string, y float64, col color.Color) {
	c.dc.SetColor(col)
	c.dc.DrawStringAnchored(s, c.w/2, y, 0.5, 1)
}

func (c *canvas) width(s string) float64 {
	w, _ := c.dc.MeasureString(s)
	return w
}

func (c *canvas) wrap(s string, maxWidth float64, maxLines int) []string {
	lines := c.dc.WordWrap(strings.Join(strings.Fields(s), " "), maxWidth)
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return lines
}

func (c *canvas) image() image.Image {
	return c.dc.Image()
}

func rgb(r, g, b uint8) color.RGBA {
	return color.RGBA{r, g, b, 0xFF}
}

// introFrame is the title card shown during the intro narration.
func (r *Renderer) introFrame(title, date string) image.Image {
	c := newCanvas(r.video.Width, r.video.Height, 1920, r.fonts)
	c.gradient(rgb(10, 10, 30), rgb(40, 20, 60), true)

	c.font(72, true)
	c.centered(r.channelName, c.px(250), colorWhite)

	c.rect((c.w-c.px(400))/2, c.px(360), c.px(400), c.px(4), colorAccent)

	c.font(42, false)
	c.centered(date, c.px(400), colorGold)

	c.font(48, true)
	y := c.px(500)
	for _, line := range c.wrap(title, c.w-c.px(200), 3) {
		c.centered(line, y, colorWhite)
		y += c.px(60)
	}

	c.font(36, true)
	badge := "TOP STORIES TODAY"
	bw := c.width(badge)
	c.rect((c.w-bw)/2-c.px(20), c.px(700), bw+c.px(40), c.px(55), colorRed)
	c.centered(badge, c.px(708), colorWhite)

	c.rect(0, c.h-c.px(8), c.w, c.px(8), colorAccent)
	return c.image()
}

// storyFrame is the news card for story n of total.
func (r *Renderer) storyFrame(story domain.Story, n, total int, date string) image.Image {
	c := newCanvas(r.video.Width, r.video.Height, 1920, r.fonts)
	c.gradient(rgb(15, 15, 35), rgb(25, 40, 75), true)

	bar := c.px(60)
	c.rect(0, 0, c.w, bar, colorRed)
	c.rect(0, 0, c.px(8), bar, colorAccent)
	c.rect(c.w-c.px(8), 0, c.px(8), bar, colorAccent)
	c.font(28, true)
	c.text(r.channelName, c.px(30), c.px(14), colorWhite)

	c.font(24, true)
	counter := fmt.Sprintf("STORY %d/%d", n, total)
	c.text(counter, c.w-c.width(counter)-c.px(30), c.px(18), colorGold)

	bannerY := c.px(100)
	c.rect(c.px(50), bannerY, c.w-c.px(100), c.px(6), colorAccent)

	headline := story.Headline
	if strings.TrimSpace(headline) == "" {
		headline = fmt.Sprintf("Story %d", n)
	}
	c.font(52, true)
	y := bannerY + c.px(40)
	for _, line := range c.wrap(headline, c.w-c.px(160), 3) {
		c.text(line, c.px(80), y, colorWhite)
		y += c.px(65)
	}

	y += c.px(20)
	c.rect(c.px(80), y, c.w-c.px(160), c.px(3), colorAccent)
	y += c.px(30)

	c.font(36, false)
	for _, line := range c.wrap(story.Script, c.w-c.px(200), 10) {
		c.text(line, c.px(100), y, colorBody)
		y += c.px(48)
	}

	ticker := c.px(50)
	c.rect(0, c.h-ticker, c.w, ticker, colorRed)
	c.font(26, true)
	c.text(fmt.Sprintf("LIVE  |  %s  |  %s", date, r.channelName), c.px(30), c.h-ticker+c.px(12), colorWhite)
	return c.image()
}

// outroFrame thanks viewers and asks for engagement.
func (r *Renderer) outroFrame() image.Image {
	c := newCanvas(r.video.Width, r.video.Height, 1920, r.fonts)
	c.gradient(rgb(10, 10, 30), rgb(30, 15, 50), true)

	c.font(64, true)
	c.centered("Thanks for Watching!", c.px(300), colorWhite)

	c.font(44, true)
	cta := "LIKE  |  SUBSCRIBE  |  COMMENT"
	cw := c.width(cta)
	c.rect((c.w-cw)/2-c.px(30), c.px(440), cw+c.px(60), c.px(70), colorRed)
	c.centered(cta, c.px(450), colorWhite)

	c.font(36, false)
	c.centered(r.channelName, c.px(580), colorGold)

	if r.tagline != "" {
		c.font(28, false)
		c.centered(r.tagline, c.px(640), colorBody)
	}
	return c.image()
}
