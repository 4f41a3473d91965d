package player

import (
	"github.com/ivlev/coursevideo/internal/config"
	"github.com/ivlev/coursevideo/internal/timeline"
)

// Composition describes the fixed-resolution video a timeline renders to.
type Composition struct {
	Width            int `json:"width"`
	Height           int `json:"height"`
	FPS              int `json:"fps"`
	DurationInFrames int `json:"durationInFrames"`
}

// CompositionFor sizes a composition for a timeline. Empty timelines still
// get one frame.
func CompositionFor(tl timeline.Timeline, r config.Render) Composition {
	w, h := r.Width, r.Height
	if w <= 0 || h <= 0 {
		w, h = 1280, 720
	}
	return Composition{
		Width:            w,
		Height:           h,
		FPS:              tl.FPS,
		DurationInFrames: max(1, tl.TotalFrames()),
	}
}

// FitSize scales the composition into a maxW x maxH box keeping its aspect
// ratio. A non-positive bound means unbounded on that axis.
func (c Composition) FitSize(maxW, maxH int) (int, int) {
	if c.Width <= 0 || c.Height <= 0 {
		return 0, 0
	}
	if maxW <= 0 && maxH <= 0 {
		return c.Width, c.Height
	}

	w := maxW
	h := w * c.Height / c.Width
	if maxW <= 0 || (maxH > 0 && h > maxH) {
		h = maxH
		w = h * c.Width / c.Height
	}
	return w, h
}
