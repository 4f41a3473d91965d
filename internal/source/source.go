// Package source loads courses from the places slides live: a course JSON
// export, a directory of rendered images or a PDF deck.
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Source yields a course. Implementations re-read their backing data on
// every Course call so a reload picks up changes.
type Source interface {
	Course(ctx context.Context) (*Course, error)
	Close() error
}

// Options are shared by every file-backed source.
type Options struct {
	Logger         zerolog.Logger
	StrictCaptions bool
	DPI            int // PDF rasterization
}

func (o Options) assemble() AssembleOptions {
	return AssembleOptions{Logger: o.Logger, StrictCaptions: o.StrictCaptions}
}

// Open picks a source by looking at path: a directory is an image deck,
// .pdf is a PDF deck, anything else is a course JSON file.
func Open(path string, opts Options) (Source, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if fi.IsDir() {
		return NewImageSource(path, opts)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return NewPDFSource(path, opts)
	case ".json":
		return NewJSONSource(path, opts), nil
	case ".png", ".jpg", ".jpeg":
		return NewImageSource(path, opts)
	default:
		return nil, fmt.Errorf("unsupported input %s", path)
	}
}

// deckID derives a course ID from a file or directory name.
func deckID(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
