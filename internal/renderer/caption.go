// Package renderer rasterizes the still layers of a preview video: slide
// backdrops and the caption overlay.
package renderer

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/ivlev/coursevideo/internal/system"
)

// Caption overlay geometry at the 1280x720 reference size. Everything is
// scaled by the composition height.
const (
	refHeight      = 720.0
	captionSize    = 24.0
	captionBottom  = 60.0
	captionPadX    = 24.0
	captionPadY    = 12.0
	captionLineGap = 1.3
	captionMaxFrac = 0.8
)

var captionBox = color.RGBA{A: 204} // rgba(0,0,0,0.8)

// CaptionRenderer draws caption text into full-frame transparent images
// ready to be overlaid on the composition. Drawing is serialized because
// the font face is not safe for concurrent use.
type CaptionRenderer struct {
	mu            sync.Mutex
	width, height int
	scale         float64
	face          font.Face

	// Trimmer crops page margins off embedded slide images. Nil keeps
	// pages whole.
	Trimmer *MarginTrimmer
}

func NewCaptionRenderer(width, height int) (*CaptionRenderer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid caption canvas %dx%d", width, height)
	}

	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse caption font: %w", err)
	}

	scale := float64(height) / refHeight
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    captionSize * scale,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("caption font face: %w", err)
	}

	return &CaptionRenderer{
		width:   width,
		height:  height,
		scale:   scale,
		face:    face,
		Trimmer: NewMarginTrimmer(),
	}, nil
}

func (r *CaptionRenderer) Close() error {
	return r.face.Close()
}

// Wrap breaks text into lines no wider than maxWidth pixels. A single word
// wider than maxWidth gets a line of its own.
func (r *CaptionRenderer) Wrap(text string, maxWidth int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.wrap(text, maxWidth)
}

func (r *CaptionRenderer) wrap(text string, maxWidth int) []string {
	limit := fixed.I(maxWidth)
	var (
		lines []string
		line  string
	)
	for _, word := range strings.Fields(text) {
		candidate := word
		if line != "" {
			candidate = line + " " + word
		}
		if line != "" && font.MeasureString(r.face, candidate) > limit {
			lines = append(lines, line)
			line = word
			continue
		}
		line = candidate
	}
	if line != "" {
		lines = append(lines, line)
	}
	return lines
}

// Render draws text centered near the bottom of the frame on a
// semi-transparent box. The returned image comes from the shared pool;
// callers hand it back with system.PutImage once encoded.
func (r *CaptionRenderer) Render(text string) *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()

	img := system.GetImage(r.width, r.height)

	padX := int(captionPadX * r.scale)
	padY := int(captionPadY * r.scale)
	maxText := int(float64(r.width)*captionMaxFrac) - 2*padX

	lines := r.wrap(text, maxText)
	if len(lines) == 0 {
		return img
	}

	metrics := r.face.Metrics()
	lineHeight := int(float64(metrics.Height.Ceil()) * captionLineGap)

	textW := 0
	for _, l := range lines {
		textW = max(textW, font.MeasureString(r.face, l).Ceil())
	}

	boxW := textW + 2*padX
	boxH := lineHeight*len(lines) + 2*padY
	bottom := r.height - int(captionBottom*r.scale)
	box := image.Rect((r.width-boxW)/2, bottom-boxH, (r.width+boxW)/2, bottom)
	draw.Draw(img, box, image.NewUniform(captionBox), image.Point{}, draw.Over)

	d := &font.Drawer{Dst: img, Src: image.White, Face: r.face}
	y := box.Min.Y + padY + metrics.Ascent.Ceil()
	for _, l := range lines {
		w := font.MeasureString(r.face, l).Ceil()
		d.Dot = fixed.P((r.width-w)/2, y)
		d.DrawString(l)
		y += lineHeight
	}

	return img
}
