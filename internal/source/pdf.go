package source

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/ivlev/coursevideo/internal/slide"
)

// PDFSource rasterizes every page of a deck into an image slide. The page
// text, when the PDF has any, is used as the slide narration so that
// reading-time estimation applies. The file is reopened on every Course
// call.
type PDFSource struct {
	path string
	opts Options
}

func NewPDFSource(path string, opts Options) (*PDFSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	doc.Close()

	if opts.DPI <= 0 {
		opts.DPI = 150
	}
	return &PDFSource{path: path, opts: opts}, nil
}

func (f *PDFSource) Course(ctx context.Context) (*Course, error) {
	doc, err := fitz.New(f.path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", f.path, err)
	}
	defer doc.Close()

	n := doc.NumPage()
	records := make([]slide.Record, 0, n)

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		img, err := doc.ImageDPI(i, float64(f.opts.DPI))
		if err != nil {
			return nil, fmt.Errorf("render page %d: %w", i+1, err)
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode page %d: %w", i+1, err)
		}

		b := img.Bounds()
		rec := deckRecord(fmt.Sprintf("page-%03d", i+1), i, "image/png", buf.Bytes(), b.Dx(), b.Dy())
		if text, err := doc.Text(i); err == nil {
			if text = strings.TrimSpace(text); text != "" {
				rec.Narration = &slide.NarrationData{FullText: text}
			}
		}
		records = append(records, rec)
	}

	id := deckID(f.path)
	return Assemble(id, id, Layout{}, records, f.opts.assemble())
}

func (f *PDFSource) Close() error {
	return nil
}
