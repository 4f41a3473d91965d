// Package captions resolves the caption overlay text for a moment of a
// slide and exports a composition's captions as WebVTT.
package captions

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/ivlev/coursevideo/internal/slide"
	"github.com/ivlev/coursevideo/internal/timeline"
)

// At returns the first chunk whose [Start, End) interval contains t.
func At(chunks []slide.CaptionChunk, t float64) (slide.CaptionChunk, bool) {
	for _, c := range chunks {
		if t >= c.Start && t < c.End {
			return c, true
		}
	}
	return slide.CaptionChunk{}, false
}

// Cue is a caption placed on the composition clock, in seconds.
type Cue struct {
	SlideID string
	Start   float64
	End     float64
	Text    string
}

// Cues places every caption chunk of the timeline on the composition
// clock. Cues are clipped to their slide's placement; chunks that fall
// entirely outside it are skipped.
func Cues(tl timeline.Timeline) []Cue {
	var cues []Cue
	for _, p := range tl.Placements {
		offset := tl.StartSeconds(p)
		limit := tl.EndSeconds(p)
		for _, c := range p.Slide.Caption.Chunks {
			start := offset + c.Start
			end := math.Min(offset+c.End, limit)
			text := strings.TrimSpace(c.Text)
			if end <= start || text == "" {
				continue
			}
			cues = append(cues, Cue{SlideID: p.SlideID, Start: start, End: end, Text: text})
		}
	}
	return cues
}

// WriteVTT writes the timeline captions as a WebVTT document.
func WriteVTT(w io.Writer, tl timeline.Timeline) error {
	bw := bufio.NewWriter(w)
	fmt.Fprint(bw, "WEBVTT\n")
	for i, c := range Cues(tl) {
		fmt.Fprintf(bw, "\n%d\n%s --> %s\n%s\n", i+1, FormatTimestamp(c.Start), FormatTimestamp(c.End), c.Text)
	}
	return bw.Flush()
}

// FormatTimestamp renders seconds as HH:MM:SS.mmm.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	ms := int64(math.Round(seconds * 1000))
	h := ms / 3_600_000
	ms -= h * 3_600_000
	m := ms / 60_000
	ms -= m * 60_000
	s := ms / 1000
	ms -= s * 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}
