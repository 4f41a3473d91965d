package source

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ivlev/coursevideo/internal/slide"
)

const deckPage = `<!DOCTYPE html><html><head><style>html,body{margin:0;height:100%%;background:#000}img{display:block;width:100%%;height:100%%;object-fit:contain}</style></head><body><img src="data:%s;base64,%s" width="%d" height="%d"></body></html>`

// ImageSource turns a directory of rendered slides (or a single image) into
// a one-chapter course. A sibling <name>.txt file becomes the narration.
// The directory is listed again on every Course call.
type ImageSource struct {
	root string
	opts Options
}

func NewImageSource(path string, opts Options) (*ImageSource, error) {
	s := &ImageSource{root: path, opts: opts}
	paths, err := s.list()
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoSlides)
	}
	return s, nil
}

func (s *ImageSource) list() ([]string, error) {
	fi, err := os.Stat(s.root)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return []string{s.root}, nil
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, entry := range entries {
		if !entry.IsDir() && imageMime(entry.Name()) != "" {
			paths = append(paths, filepath.Join(s.root, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// PageCount is the number of image files currently in the deck.
func (s *ImageSource) PageCount() int {
	paths, _ := s.list()
	return len(paths)
}

func (s *ImageSource) Course(ctx context.Context) (*Course, error) {
	paths, err := s.list()
	if err != nil {
		return nil, err
	}

	records := make([]slide.Record, 0, len(paths))
	for i, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			s.opts.Logger.Warn().Err(err).Str("file", p).Msg("skipping undecodable image")
			continue
		}

		rec := deckRecord(deckID(p), i, imageMime(p), data, cfg.Width, cfg.Height)
		if text, err := os.ReadFile(strings.TrimSuffix(p, filepath.Ext(p)) + ".txt"); err == nil {
			rec.Narration = &slide.NarrationData{FullText: strings.TrimSpace(string(text))}
		}
		records = append(records, rec)
	}

	id := deckID(s.root)
	return Assemble(id, id, Layout{}, records, s.opts.assemble())
}

func (s *ImageSource) Close() error {
	return nil
}

func deckRecord(id string, index int, mime string, data []byte, w, h int) slide.Record {
	html := fmt.Sprintf(deckPage, mime, base64.StdEncoding.EncodeToString(data), w, h)
	return slide.Record{
		SlideID:    id,
		ChapterID:  DefaultChapterID,
		SlideIndex: index,
		HTML:       &html,
	}
}

func imageMime(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	}
	return ""
}
