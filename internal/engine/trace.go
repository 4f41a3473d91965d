package engine

import (
	"github.com/ivlev/coursevideo/internal/bridge"
	"github.com/ivlev/coursevideo/internal/player"
	"github.com/ivlev/coursevideo/internal/timeline"
)

// TraceFrame evaluates one frame of a chapter against a document that loads
// instantly and returns the frame state with the messages it received.
func TraceFrame(plan ChapterPlan, frame int) (player.FrameState, []bridge.Message) {
	rec := &bridge.Recorder{}
	p := player.New(plan.Timeline, func(timeline.Placement) bridge.Channel { return rec })

	state := p.Seek(frame)
	if p.ViewportLoaded() {
		// the first RESET comes from the load event itself
		msgs := rec.Take()
		return state, msgs[1:]
	}
	return state, nil
}
