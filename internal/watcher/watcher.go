// Package watcher reloads the course when its source files change on disk.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const DefaultDebounce = 500 * time.Millisecond

// Event is a filesystem change that survived filtering.
type Event struct {
	Type string // created, modified, deleted, renamed
	Path string
	Time time.Time
}

// Config configures a Watcher.
type Config struct {
	// Path is the course input: a file or a directory of slides.
	Path     string
	Debounce time.Duration
	// OnChange runs once per burst of events, after Debounce of quiet.
	OnChange func(ctx context.Context, ev Event)
	Logger   zerolog.Logger
}

// Watcher watches a course input. Watching a single file means watching its
// directory and filtering by name, since editors often replace files by
// renaming.
type Watcher struct {
	fs       *fsnotify.Watcher
	match    func(name string) bool
	debounce time.Duration
	onChange func(ctx context.Context, ev Event)
	logger   zerolog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	pending Event
}

func New(cfg Config) (*Watcher, error) {
	info, err := os.Stat(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", cfg.Path, err)
	}

	dir := cfg.Path
	match := func(string) bool { return true }
	if !info.IsDir() {
		dir = filepath.Dir(cfg.Path)
		base := filepath.Base(cfg.Path)
		match = func(name string) bool { return filepath.Base(name) == base }
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fs.Add(dir); err != nil {
		fs.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}

	cfg.Logger.Info().Str("path", cfg.Path).Msg("watching course input")
	return &Watcher{
		fs:       fs,
		match:    match,
		debounce: cfg.Debounce,
		onChange: cfg.OnChange,
		logger:   cfg.Logger,
	}, nil
}

// Run processes events until ctx is cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.stopTimer()

	for {
		select {
		case <-ctx.Done():
			return w.fs.Close()

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			ev, ok := w.classify(event)
			if !ok {
				continue
			}
			w.logger.Debug().Str("type", ev.Type).Str("file", filepath.Base(ev.Path)).Msg("course file changed")
			w.schedule(ctx, ev)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Msg("watcher error")
		}
	}
}

func (w *Watcher) classify(event fsnotify.Event) (Event, bool) {
	if !w.match(event.Name) {
		return Event{}, false
	}

	var kind string
	switch {
	case event.Has(fsnotify.Create):
		kind = "created"
	case event.Has(fsnotify.Write):
		kind = "modified"
	case event.Has(fsnotify.Remove):
		kind = "deleted"
	case event.Has(fsnotify.Rename):
		kind = "renamed"
	default:
		return Event{}, false
	}
	return Event{Type: kind, Path: event.Name, Time: time.Now()}, true
}

func (w *Watcher) schedule(ctx context.Context, ev Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = ev
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		last := w.pending
		w.timer = nil
		w.mu.Unlock()

		if ctx.Err() != nil || w.onChange == nil {
			return
		}
		w.onChange(ctx, last)
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}
