// Package cache keeps computed duration maps so that reloading a course
// only re-estimates chapters whose slides changed.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ivlev/coursevideo/internal/config"
	"github.com/ivlev/coursevideo/internal/slide"
	"github.com/ivlev/coursevideo/internal/timing"
)

// Key identifies a duration map: the chapter, the frame rate and a digest
// of everything the estimator reads.
type Key struct {
	CourseID  string
	ChapterID string
	FPS       int
	Digest    string
}

func (k Key) String() string {
	return fmt.Sprintf("durations:%s:%s:%d:%s", k.CourseID, k.ChapterID, k.FPS, k.Digest)
}

// KeyFor builds a key for a chapter's slides under the given timing.
func KeyFor(courseID, chapterID string, t config.Timing, slides []slide.Slide) Key {
	return Key{CourseID: courseID, ChapterID: chapterID, FPS: t.FPS, Digest: Digest(slides, t)}
}

// Digest hashes the timing constants and the estimator inputs of each slide.
func Digest(slides []slide.Slide, t config.Timing) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%g|%g|%g\x00", t.FPS, t.DefaultSlideSeconds, t.MinNarrationSeconds, t.WordsPerSecond)
	for _, s := range slides {
		h.Write([]byte(s.ID))
		h.Write([]byte{0})
		h.Write([]byte(s.Narration))
		h.Write([]byte{0})
		for _, c := range s.Caption.Chunks {
			if c.OpenEnd {
				h.Write([]byte{'-'})
			} else {
				h.Write(strconv.AppendFloat(nil, c.End, 'g', -1, 64))
			}
			h.Write([]byte{','})
		}
		h.Write([]byte{1})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// DurationCache stores duration maps. A miss is (nil, false, nil).
type DurationCache interface {
	Get(ctx context.Context, key Key) (timing.DurationMap, bool, error)
	Set(ctx context.Context, key Key, durations timing.DurationMap) error
	Close() error
}

type memoryEntry struct {
	durations timing.DurationMap
	expires   time.Time
}

// Memory is an in-process DurationCache.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemory creates an in-memory cache. ttl <= 0 keeps entries forever.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{entries: make(map[string]memoryEntry), ttl: ttl, now: time.Now}
}

func (m *Memory) Get(_ context.Context, key Key) (timing.DurationMap, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key.String()]
	m.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && m.now().After(e.expires) {
		m.mu.Lock()
		delete(m.entries, key.String())
		m.mu.Unlock()
		return nil, false, nil
	}
	return copyMap(e.durations), true, nil
}

func (m *Memory) Set(_ context.Context, key Key, durations timing.DurationMap) error {
	e := memoryEntry{durations: copyMap(durations)}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}

	m.mu.Lock()
	m.entries[key.String()] = e
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error {
	return nil
}

func copyMap(src timing.DurationMap) timing.DurationMap {
	dst := make(timing.DurationMap, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// Estimate returns the cached durations for key or estimates and stores
// them. Cache failures are logged and fall back to estimating.
func Estimate(ctx context.Context, c DurationCache, key Key, slides []slide.Slide, t config.Timing, logger zerolog.Logger) (timing.DurationMap, bool) {
	if c != nil {
		d, ok, err := c.Get(ctx, key)
		if err != nil {
			logger.Warn().Err(err).Str("key", key.String()).Msg("duration cache read failed")
		}
		if ok {
			return d, true
		}
	}

	d := timing.EstimateAll(slides, t)
	if c != nil {
		if err := c.Set(ctx, key, d); err != nil {
			logger.Warn().Err(err).Str("key", key.String()).Msg("duration cache write failed")
		}
	}
	return d, false
}
