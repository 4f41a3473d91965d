package renderer

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"regexp"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/ivlev/coursevideo/internal/slide"
)

var (
	dataImage = regexp.MustCompile(`data:image/(?:png|jpeg);base64,([A-Za-z0-9+/=]+)`)
	tags      = regexp.MustCompile(`(?s)<(script|style)[^>]*>.*?</(script|style)>|<[^>]+>`)
)

var backdropFill = color.RGBA{R: 17, G: 24, B: 39, A: 255}

// EmbeddedImage decodes the first inline data-URI image of a slide
// document. Decks built from images or PDFs carry their page this way.
func EmbeddedImage(html string) (image.Image, bool) {
	m := dataImage.FindStringSubmatch(html)
	if m == nil {
		return nil, false
	}
	data, err := base64.StdEncoding.DecodeString(m[1])
	if err != nil {
		return nil, false
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false
	}
	return img, true
}

// PlainText strips markup from a slide document.
func PlainText(html string) string {
	return strings.Join(strings.Fields(tags.ReplaceAllString(html, " ")), " ")
}

// Backdrop renders the still that stands in for a slide in the preview
// video: its embedded page image letterboxed into the frame, or a title
// card with the slide's text.
func (r *CaptionRenderer) Backdrop(s slide.Slide) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	xdraw.Draw(dst, dst.Bounds(), image.NewUniform(backdropFill), image.Point{}, xdraw.Src)

	if img, ok := EmbeddedImage(s.HTML); ok {
		src := img.Bounds()
		if r.Trimmer != nil {
			src = r.Trimmer.ContentBounds(img)
		}
		xdraw.CatmullRom.Scale(dst, fit(src, dst.Bounds()), img, src, xdraw.Over, nil)
		return dst
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	text := PlainText(s.HTML)
	if text == "" {
		text = s.Narration
	}
	if text == "" {
		text = fmt.Sprintf("Slide %d", s.Index)
	}

	lines := r.wrap(text, int(float64(r.width)*captionMaxFrac))
	lineHeight := int(float64(r.face.Metrics().Height.Ceil()) * captionLineGap)
	if maxLines := r.height / (2 * max(1, lineHeight)); len(lines) > maxLines {
		lines = lines[:maxLines]
	}

	d := &font.Drawer{Dst: dst, Src: image.White, Face: r.face}
	y := (r.height-lineHeight*len(lines))/2 + r.face.Metrics().Ascent.Ceil()
	for _, l := range lines {
		w := font.MeasureString(r.face, l).Ceil()
		d.Dot = fixed.P((r.width-w)/2, y)
		d.DrawString(l)
		y += lineHeight
	}
	return dst
}

// fit centers src inside dst keeping its aspect ratio.
func fit(src, dst image.Rectangle) image.Rectangle {
	sw, sh := src.Dx(), src.Dy()
	dw, dh := dst.Dx(), dst.Dy()
	if sw == 0 || sh == 0 {
		return dst
	}

	w, h := dw, sh*dw/sw
	if h > dh {
		h = dh
		w = sw * dh / sh
	}
	x := dst.Min.X + (dw-w)/2
	y := dst.Min.Y + (dh-h)/2
	return image.Rect(x, y, x+w, y+h)
}
