// Package timeline lays slides out on a frame sequence.
package timeline

import (
	"sort"

	"github.com/ivlev/coursevideo/internal/config"
	"github.com/ivlev/coursevideo/internal/slide"
	"github.com/ivlev/coursevideo/internal/timing"
)

// Placement schedules one slide: it is active on frames [Start, Start+Duration).
type Placement struct {
	Slide    slide.Slide `json:"-"`
	SlideID  string      `json:"slideId"`
	Index    int         `json:"index"`
	Start    int         `json:"start"`
	Duration int         `json:"duration"`
}

// End is the first frame after the placement.
func (p Placement) End() int {
	return p.Start + p.Duration
}

// Contains reports whether frame falls inside the placement.
func (p Placement) Contains(frame int) bool {
	return frame >= p.Start && frame < p.End()
}

// Timeline is the ordered, non-overlapping list of placements.
type Timeline struct {
	Placements []Placement `json:"placements"`
	FPS        int         `json:"fps"`
	GapFrames  int         `json:"gapFrames"`
}

// Build places slides in input order separated by the configured gap.
// Missing durations fall back to the default slide length. Build keeps no
// state between calls.
func Build(slides []slide.Slide, durations timing.DurationMap, t config.Timing) Timeline {
	gap := t.GapFrames()
	tl := Timeline{
		Placements: make([]Placement, 0, len(slides)),
		FPS:        t.FPS,
		GapFrames:  gap,
	}

	cursor := 0
	for i, s := range slides {
		dur, ok := durations[s.ID]
		if !ok {
			dur = t.DefaultFrames()
		}
		if dur < 1 {
			dur = 1
		}

		tl.Placements = append(tl.Placements, Placement{
			Slide:    s,
			SlideID:  s.ID,
			Index:    i,
			Start:    cursor,
			Duration: dur,
		})
		cursor += dur + gap
	}

	return tl
}

// TotalFrames is the last placement's end, or 0 for an empty timeline.
func (tl Timeline) TotalFrames() int {
	if len(tl.Placements) == 0 {
		return 0
	}
	return tl.Placements[len(tl.Placements)-1].End()
}

// TotalSeconds is TotalFrames expressed in seconds.
func (tl Timeline) TotalSeconds() float64 {
	return timing.Seconds(tl.TotalFrames(), tl.FPS)
}

// At returns the placement active on frame. Frames inside a gap, before 0
// or past the end have no placement.
func (tl Timeline) At(frame int) (Placement, bool) {
	i := sort.Search(len(tl.Placements), func(i int) bool {
		return tl.Placements[i].End() > frame
	})
	if i < len(tl.Placements) && tl.Placements[i].Contains(frame) {
		return tl.Placements[i], true
	}
	return Placement{}, false
}

// Find returns the placement of a slide by ID.
func (tl Timeline) Find(slideID string) (Placement, bool) {
	for _, p := range tl.Placements {
		if p.SlideID == slideID {
			return p, true
		}
	}
	return Placement{}, false
}

// StartSeconds is the placement start in seconds.
func (tl Timeline) StartSeconds(p Placement) float64 {
	return timing.Seconds(p.Start, tl.FPS)
}

// EndSeconds is the placement end in seconds.
func (tl Timeline) EndSeconds(p Placement) float64 {
	return timing.Seconds(p.End(), tl.FPS)
}
