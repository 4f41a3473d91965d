// Package scenario describes a rendered chapter as a YAML cue sheet: where
// every slide sits on the composition clock and when its reveal steps fire.
package scenario

import (
	"github.com/ivlev/coursevideo/internal/config"
	"github.com/ivlev/coursevideo/internal/reveal"
	"github.com/ivlev/coursevideo/internal/timeline"
	"github.com/ivlev/coursevideo/internal/timing"
)

const Version = "1.0"

// Scenario is the cue sheet of one chapter composition.
type Scenario struct {
	Version     string  `yaml:"version"`
	CourseID    string  `yaml:"courseId,omitempty"`
	ChapterID   string  `yaml:"chapterId,omitempty"`
	FPS         int     `yaml:"fps"`
	Width       int     `yaml:"width"`
	Height      int     `yaml:"height"`
	TotalFrames int     `yaml:"totalFrames"`
	Duration    float64 `yaml:"duration"` // seconds
	Slides      []Slide `yaml:"slides"`
}

// Slide is one placement with its reveal keyframes.
type Slide struct {
	ID         string     `yaml:"id"`
	Index      int        `yaml:"index"`
	Document   string     `yaml:"document,omitempty"`
	Audio      string     `yaml:"audio,omitempty"`
	StartFrame int        `yaml:"startFrame"`
	Frames     int        `yaml:"frames"`
	Start      float64    `yaml:"start"`    // seconds on the composition clock
	Duration   float64    `yaml:"duration"` // seconds
	Estimate   string     `yaml:"estimate"` // caption, narration or default
	Keyframes  []Keyframe `yaml:"keyframes,omitempty"`
}

// Keyframe fires a reveal step Time seconds after the slide starts.
type Keyframe struct {
	Time   float64 `yaml:"time"`
	Reveal string  `yaml:"reveal"`
}

// Meta carries the values a timeline does not know about.
type Meta struct {
	CourseID  string
	ChapterID string
	Width     int
	Height    int
	// Document maps a placement to the path of its prepared slide document.
	Document func(p timeline.Placement) string
}

// FromTimeline builds the cue sheet of a timeline.
func FromTimeline(tl timeline.Timeline, t config.Timing, meta Meta) *Scenario {
	sc := &Scenario{
		Version:     Version,
		CourseID:    meta.CourseID,
		ChapterID:   meta.ChapterID,
		FPS:         tl.FPS,
		Width:       meta.Width,
		Height:      meta.Height,
		TotalFrames: tl.TotalFrames(),
		Duration:    tl.TotalSeconds(),
		Slides:      make([]Slide, 0, len(tl.Placements)),
	}

	for _, p := range tl.Placements {
		_, source := timing.EstimateWithSource(p.Slide, t)
		s := Slide{
			ID:         p.SlideID,
			Index:      p.Index,
			Audio:      p.Slide.AudioURL,
			StartFrame: p.Start,
			Frames:     p.Duration,
			Start:      tl.StartSeconds(p),
			Duration:   timing.Seconds(p.Duration, tl.FPS),
			Estimate:   string(source),
		}
		if meta.Document != nil {
			s.Document = meta.Document(p)
		}
		for _, e := range reveal.PlanFor(p.Slide) {
			s.Keyframes = append(s.Keyframes, Keyframe{Time: e.At, Reveal: e.StepID})
		}
		sc.Slides = append(sc.Slides, s)
	}

	return sc
}

// Find returns the slide entry with the given ID.
func (sc *Scenario) Find(id string) (*Slide, bool) {
	for i := range sc.Slides {
		if sc.Slides[i].ID == id {
			return &sc.Slides[i], true
		}
	}
	return nil, false
}
