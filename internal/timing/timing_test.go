package timing

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ivlev/coursevideo/internal/config"
	"github.com/ivlev/coursevideo/internal/slide"
)

func TestEstimateFromCaption(t *testing.T) {
	cfg := config.DefaultTiming()

	tests := []struct {
		end  float64
		want int
	}{
		{3.5, 105},
		{3.0, 90},
		{0.01, 1},
		{0, 1}, // floored at one frame
		{12.345, int(math.Ceil(12.345 * 30))},
	}

	for _, tt := range tests {
		s := slide.Slide{
			ID:        "s",
			Narration: strings.Repeat("word ", 100), // ignored when captions exist
			Caption: slide.Caption{Chunks: []slide.CaptionChunk{
				{Text: "a", Start: 0, End: tt.end / 2},
				{Text: "b", Start: tt.end / 2, End: tt.end},
			}},
		}
		frames, src := EstimateWithSource(s, cfg)
		assert.Equal(t, tt.want, frames, "end=%v", tt.end)
		assert.Equal(t, SourceCaption, src)
	}
}

func TestEstimateFromNarration(t *testing.T) {
	cfg := config.DefaultTiming()

	tests := []struct {
		name string
		text string
		want int
	}{
		{"short text hits 3s floor", "just a few words", 90},
		{"whitespace only hits floor", "   \n\t ", 90},
		// 20 words / 2.5 = 8s
		{"twenty words", strings.Repeat("lorem ", 20), 240},
		// 21 words / 2.5 = 8.4s, ceil to 9s
		{"rounds seconds up", strings.Repeat("lorem ", 21), 270},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frames, src := EstimateWithSource(slide.Slide{ID: "s", Narration: tt.text}, cfg)
			assert.Equal(t, tt.want, frames)
			assert.Equal(t, SourceNarration, src)
			assert.GreaterOrEqual(t, frames, 3*cfg.FPS)
		})
	}
}

func TestEstimateOpenCaptionEnd(t *testing.T) {
	cfg := config.DefaultTiming()
	chunks := []slide.CaptionChunk{
		{Text: "a", Start: 0, End: 1},
		{Text: "b", Start: 1.2, End: 1.2, OpenEnd: true},
	}

	narrated := slide.Slide{
		ID:        "n",
		Narration: strings.Repeat("word ", 30),
		Caption:   slide.Caption{Chunks: chunks},
	}
	frames, src := EstimateWithSource(narrated, cfg)
	assert.Equal(t, 360, frames)
	assert.Equal(t, SourceNarration, src)

	silent := slide.Slide{ID: "s", Caption: slide.Caption{Chunks: chunks}}
	frames, src = EstimateWithSource(silent, cfg)
	assert.Equal(t, 180, frames)
	assert.Equal(t, SourceDefault, src)
}

func TestEstimateDefault(t *testing.T) {
	cfg := config.DefaultTiming()
	frames, src := EstimateWithSource(slide.Slide{ID: "s"}, cfg)
	assert.Equal(t, 180, frames)
	assert.Equal(t, SourceDefault, src)

	cfg.FPS = 24
	assert.Equal(t, 144, Estimate(slide.Slide{ID: "s"}, cfg))
}

func TestEstimateAll(t *testing.T) {
	cfg := config.DefaultTiming()
	slides := []slide.Slide{
		{ID: "a", Caption: slide.Caption{Chunks: []slide.CaptionChunk{{Start: 0, End: 2}}}},
		{ID: "b", Narration: "hi"},
		{ID: "c"},
	}

	durations := EstimateAll(slides, cfg)
	assert.Equal(t, DurationMap{"a": 60, "b": 90, "c": 180}, durations)
	for id, d := range durations {
		assert.GreaterOrEqual(t, d, 1, id)
	}
}

func TestWordCount(t *testing.T) {
	assert.Equal(t, 0, WordCount(""))
	assert.Equal(t, 3, WordCount("  one\ttwo\n three  "))
}

func TestSeconds(t *testing.T) {
	assert.Equal(t, 2.0, Seconds(60, 30))
	assert.Equal(t, 0.0, Seconds(60, 0))
}
