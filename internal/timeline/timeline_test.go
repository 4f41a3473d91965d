package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/coursevideo/internal/config"
	"github.com/ivlev/coursevideo/internal/slide"
	"github.com/ivlev/coursevideo/internal/timing"
)

func slides(ids ...string) []slide.Slide {
	out := make([]slide.Slide, len(ids))
	for i, id := range ids {
		out[i] = slide.Slide{ID: id}
	}
	return out
}

func TestBuildTwoSlides(t *testing.T) {
	cfg := config.DefaultTiming()
	tl := Build(slides("A", "B"), timing.DurationMap{"A": 90, "B": 60}, cfg)

	require.Len(t, tl.Placements, 2)
	assert.Equal(t, 0, tl.Placements[0].Start)
	assert.Equal(t, 90, tl.Placements[0].Duration)
	assert.Equal(t, 120, tl.Placements[1].Start)
	assert.Equal(t, 60, tl.Placements[1].Duration)
	assert.Equal(t, 180, tl.TotalFrames())
	assert.Equal(t, 6.0, tl.TotalSeconds())
}

func TestBuildAdjacentPlacements(t *testing.T) {
	cfg := config.DefaultTiming()
	cfg.FPS = 24
	cfg.InterSlideGapSeconds = 0.5

	durations := timing.DurationMap{"a": 10, "b": 1, "c": 400, "e": 33}
	tl := Build(slides("a", "b", "c", "d", "e"), durations, cfg)

	gap := cfg.GapFrames()
	require.Equal(t, 12, gap)
	for i := 0; i+1 < len(tl.Placements); i++ {
		cur, next := tl.Placements[i], tl.Placements[i+1]
		assert.Equal(t, cur.Start+cur.Duration+gap, next.Start)
		assert.Less(t, cur.End(), next.Start+1, "placements must not overlap")
		assert.Equal(t, i, cur.Index)
	}
	assert.Equal(t, "d", tl.Placements[3].SlideID)
	assert.Equal(t, cfg.DefaultFrames(), tl.Placements[3].Duration, "missing duration uses default")
}

func TestBuildClampsNonPositiveDuration(t *testing.T) {
	tl := Build(slides("a"), timing.DurationMap{"a": 0}, config.DefaultTiming())
	assert.Equal(t, 1, tl.Placements[0].Duration)
}

func TestBuildIdempotent(t *testing.T) {
	cfg := config.DefaultTiming()
	in := slides("x", "y", "z")
	durations := timing.DurationMap{"x": 45, "z": 75}

	first := Build(in, durations, cfg)
	second := Build(in, durations, cfg)
	assert.Equal(t, first, second)
}

func TestBuildEmpty(t *testing.T) {
	tl := Build(nil, nil, config.DefaultTiming())
	assert.Empty(t, tl.Placements)
	assert.Equal(t, 0, tl.TotalFrames())
	_, ok := tl.At(0)
	assert.False(t, ok)
}

func TestAt(t *testing.T) {
	tl := Build(slides("A", "B"), timing.DurationMap{"A": 90, "B": 60}, config.DefaultTiming())

	tests := []struct {
		frame  int
		wantID string
	}{
		{-1, ""},
		{0, "A"},
		{89, "A"},
		{90, ""}, // gap
		{119, ""},
		{120, "B"},
		{179, "B"},
		{180, ""},
	}

	for _, tt := range tests {
		p, ok := tl.At(tt.frame)
		if tt.wantID == "" {
			assert.False(t, ok, "frame %d", tt.frame)
			continue
		}
		require.True(t, ok, "frame %d", tt.frame)
		assert.Equal(t, tt.wantID, p.SlideID, "frame %d", tt.frame)
	}
}

func TestFind(t *testing.T) {
	tl := Build(slides("A", "B"), timing.DurationMap{"A": 90, "B": 60}, config.DefaultTiming())

	p, ok := tl.Find("B")
	require.True(t, ok)
	assert.Equal(t, 4.0, tl.StartSeconds(p))
	assert.Equal(t, 6.0, tl.EndSeconds(p))

	_, ok = tl.Find("missing")
	assert.False(t, ok)
}
