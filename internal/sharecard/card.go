// Package sharecard renders shareable 1080x1080 PNG cards summarizing
// a reading, flavored by the reading's cultural origin.
package sharecard

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/fortunia-app/fortunia-api/internal/domain"
)

// Card dimensions and layout constants.
const (
	cardSize   = 1080
	cardInset  = 90  // gradient border around the inner panel
	textMargin = 70  // padding inside the inner panel
	lineWidth  = 58  // characters per wrapped line
	maxLines   = 34  // fortune text lines before truncation
	lineHeight = 22  // pixels between baselines
)

// palette holds the colors used for one cultural origin.
type palette struct {
	primary   color.NRGBA
	secondary color.NRGBA
	accent    color.NRGBA
}

var palettes = map[domain.CulturalOrigin]palette{
	domain.OriginChinese: {
		primary:   color.NRGBA{0x9B, 0x86, 0xBD, 0xFF},
		secondary: color.NRGBA{0xD4, 0xA5, 0xA5, 0xFF},
		accent:    color.NRGBA{0xFF, 0xD7, 0x00, 0xFF},
	},
	domain.OriginMiddleEastern: {
		primary:   color.NRGBA{0x8B, 0x45, 0x13, 0xFF},
		secondary: color.NRGBA{0xDA, 0xA5, 0x20, 0xFF},
		accent:    color.NRGBA{0xFF, 0x63, 0x47, 0xFF},
	},
	domain.OriginEuropean: {
		primary:   color.NRGBA{0x4B, 0x00, 0x82, 0xFF},
		secondary: color.NRGBA{0x93, 0x70, 0xDB, 0xFF},
		accent:    color.NRGBA{0xFF, 0x69, 0xB4, 0xFF},
	},
	domain.OriginIndian: {
		primary:   color.NRGBA{0xB8, 0x3A, 0x14, 0xFF},
		secondary: color.NRGBA{0xF4, 0xA2, 0x3C, 0xFF},
		accent:    color.NRGBA{0x0E, 0x7C, 0x61, 0xFF},
	},
	domain.OriginAfrican: {
		primary:   color.NRGBA{0x6B, 0x3F, 0x1D, 0xFF},
		secondary: color.NRGBA{0xC9, 0x7B, 0x2D, 0xFF},
		accent:    color.NRGBA{0x1F, 0x6E, 0x43, 0xFF},
	},
}

var originTitles = map[domain.CulturalOrigin]string{
	domain.OriginChinese:       "Chinese",
	domain.OriginMiddleEastern: "Middle Eastern",
	domain.OriginEuropean:      "European",
	domain.OriginIndian:        "Indian",
	domain.OriginAfrican:       "African",
}

// RenderParams contains the inputs for one card.
type RenderParams struct {
	FortuneText    string
	ReadingType    domain.ReadingType
	CulturalOrigin domain.CulturalOrigin
}

// Renderer draws share cards.
type Renderer struct{}

// NewRenderer creates a Renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render produces a 1080x1080 PNG for the reading.
func (r *Renderer) Render(params RenderParams) ([]byte, error) {
	if params.FortuneText == "" {
		return nil, fmt.Errorf("fortune text is required")
	}

	pal, ok := palettes[params.CulturalOrigin]
	if !ok {
		pal = palettes[domain.OriginChinese]
	}

	img := image.NewNRGBA(image.Rect(0, 0, cardSize, cardSize))
	drawGradient(img, pal.primary, pal.secondary)
	drawPanel(img, pal.accent)
	drawText(img, params)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode share card: %w", err)
	}
	return buf.Bytes(), nil
}

// drawGradient fills the background with a vertical blend between the
// two palette colors.
func drawGradient(img *image.NRGBA, top, bottom color.NRGBA) {
	for y := 0; y < cardSize; y++ {
		t := float64(y) / float64(cardSize-1)
		c := color.NRGBA{
			R: lerp(top.R, bottom.R, t),
			G: lerp(top.G, bottom.G, t),
			B: lerp(top.B, bottom.B, t),
			A: 0xFF,
		}
		for x := 0; x < cardSize; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
}

// drawPanel draws the light inner panel with an accent band on top.
func drawPanel(img *image.NRGBA, accent color.NRGBA) {
	panel := image.Rect(cardInset, cardInset, cardSize-cardInset, cardSize-cardInset)
	draw.Draw(img, panel, &image.Uniform{color.NRGBA{0xFA, 0xF8, 0xF4, 0xFF}}, image.Point{}, draw.Src)

	band := image.Rect(cardInset, cardInset, cardSize-cardInset, cardInset+14)
	draw.Draw(img, band, &image.Uniform{accent}, image.Point{}, draw.Src)
}

// drawText draws the title, wrapped fortune text, and footer.
func drawText(img *image.NRGBA, params RenderParams) {
	ink := color.NRGBA{0x2B, 0x22, 0x3A, 0xFF}
	faded := color.NRGBA{0x8A, 0x82, 0x96, 0xFF}

	title := fmt.Sprintf("%s %s Reading",
		originTitles[params.CulturalOrigin],
		capitalize(params.ReadingType.String()))

	x := cardInset + textMargin
	y := cardInset + textMargin + 20

	drawLine(img, title, x, y, ink)
	y += 2 * lineHeight

	for _, line := range wrap(params.FortuneText, lineWidth, maxLines) {
		drawLine(img, line, x, y, ink)
		y += lineHeight
	}

	drawLine(img, "fortunia.app", x, cardSize-cardInset-textMargin, faded)
}

// drawLine renders one line of text at the given baseline.
func drawLine(img *image.NRGBA, text string, x, y int, c color.NRGBA) {
	d := font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{c},
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

// wrap splits text into lines of at most width characters, breaking on
// spaces, truncating with an ellipsis past maxLines.
func wrap(text string, width, maxLines int) []string {
	words := strings.Fields(text)
	var lines []string
	var line string

	for _, word := range words {
		candidate := word
		if line != "" {
			candidate = line + " " + word
		}
		if len(candidate) > width && line != "" {
			lines = append(lines, line)
			line = word
		} else {
			line = candidate
		}
		if len(lines) == maxLines {
			lines[maxLines-1] = strings.TrimSuffix(lines[maxLines-1], ".") + "…"
			return lines
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
