// Package timing estimates how many frames each slide plays for.
package timing

import (
	"math"
	"strings"

	"github.com/ivlev/coursevideo/internal/config"
	"github.com/ivlev/coursevideo/internal/slide"
)

// DurationMap maps slide IDs to frame counts. Values are always >= 1.
type DurationMap map[string]int

// Source names the rule that produced a slide's duration.
type Source string

const (
	SourceCaption   Source = "caption"
	SourceNarration Source = "narration"
	SourceDefault   Source = "default"
)

// Estimate returns the playback length of a slide in frames. The first
// applicable rule wins: caption end timestamp, narration reading time,
// default slide length. A final caption chunk without an end timestamp
// does not count.
func Estimate(s slide.Slide, t config.Timing) int {
	frames, _ := EstimateWithSource(s, t)
	return frames
}

// EstimateWithSource is Estimate plus the rule that was applied.
func EstimateWithSource(s slide.Slide, t config.Timing) (int, Source) {
	fps := float64(t.FPS)

	if end, ok := s.LastCaptionEnd(); ok {
		return max(1, int(math.Ceil(end*fps))), SourceCaption
	}

	if s.HasNarration() {
		words := WordCount(s.Narration)
		seconds := math.Ceil(float64(words) / t.WordsPerSecond)
		frames := int(math.Ceil(seconds * fps))
		return max(1, t.MinNarrationFrames(), frames), SourceNarration
	}

	return max(1, t.DefaultFrames()), SourceDefault
}

// EstimateAll builds the duration map for a list of slides.
func EstimateAll(slides []slide.Slide, t config.Timing) DurationMap {
	durations := make(DurationMap, len(slides))
	for _, s := range slides {
		durations[s.ID] = Estimate(s, t)
	}
	return durations
}

// WordCount counts whitespace-delimited non-empty tokens.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// Seconds converts a frame count back to seconds.
func Seconds(frames, fps int) float64 {
	if fps <= 0 {
		return 0
	}
	return float64(frames) / float64(fps)
}
