// Package player evaluates a slide timeline one frame at a time: it picks
// the active slide, drives its reveal state through the bridge and resolves
// the caption overlay and narration audio for that frame.
package player

import (
	"github.com/rs/zerolog"

	"github.com/ivlev/coursevideo/internal/bridge"
	"github.com/ivlev/coursevideo/internal/captions"
	"github.com/ivlev/coursevideo/internal/reveal"
	"github.com/ivlev/coursevideo/internal/timeline"
)

// ViewportOpener returns the channel to a freshly mounted embedded document
// for a placement. It may return nil, in which case every message is
// dropped.
type ViewportOpener func(p timeline.Placement) bridge.Channel

// AudioCue tells the host which narration asset to play and where.
type AudioCue struct {
	URL    string  `json:"url,omitempty"`
	Offset float64 `json:"offset"`
	Muted  bool    `json:"muted"`
}

// FrameState is the outcome of evaluating one frame.
type FrameState struct {
	Frame          int      `json:"frame"`
	Active         bool     `json:"active"`
	SlideID        string   `json:"slideId,omitempty"`
	PlacementIndex int      `json:"placementIndex"`
	Entered        bool     `json:"entered"`
	Elapsed        float64  `json:"elapsed"`
	Caption        string   `json:"caption,omitempty"`
	HasCaption     bool     `json:"hasCaption"`
	Audio          AudioCue `json:"audio"`
	Revealed       []string `json:"revealed,omitempty"`
}

type mounted struct {
	placement timeline.Placement
	viewport  *bridge.Viewport
}

// Player is single-threaded: callers serialize Tick, Seek and
// ViewportLoaded.
type Player struct {
	tl          timeline.Timeline
	open        ViewportOpener
	plans       [][]reveal.Entry
	active      *mounted
	lastElapsed float64
	logger      zerolog.Logger
}

type Option func(*Player)

func WithLogger(logger zerolog.Logger) Option {
	return func(p *Player) { p.logger = logger }
}

// New creates a player over a built timeline. Reveal plans are computed
// once here and never change afterwards.
func New(tl timeline.Timeline, open ViewportOpener, opts ...Option) *Player {
	p := &Player{
		tl:     tl,
		open:   open,
		plans:  make([][]reveal.Entry, len(tl.Placements)),
		logger: zerolog.Nop(),
	}
	for i, pl := range tl.Placements {
		p.plans[i] = reveal.PlanFor(pl.Slide)
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Timeline returns the timeline the player was built with.
func (p *Player) Timeline() timeline.Timeline { return p.tl }

// Plan returns the reveal plan of the placement at index i.
func (p *Player) Plan(i int) []reveal.Entry {
	if i < 0 || i >= len(p.plans) {
		return nil
	}
	return p.plans[i]
}

// Tick evaluates a frame. The reveal state of the active slide is rebuilt
// from RESET on every call, so any frame order (playback, scrubbing,
// seeking backwards) yields the same messages for the same frame.
func (p *Player) Tick(frame int) FrameState {
	state := FrameState{Frame: frame, PlacementIndex: -1}

	pl, ok := p.tl.At(frame)
	if !ok {
		if p.active != nil {
			p.logger.Debug().Int("frame", frame).Str("slide", p.active.placement.SlideID).Msg("slide unmounted")
		}
		p.active = nil
		return state
	}

	if p.active == nil || p.active.placement.Index != pl.Index {
		var ch bridge.Channel
		if p.open != nil {
			ch = p.open(pl)
		}
		p.active = &mounted{placement: pl, viewport: bridge.NewViewport(ch)}
		state.Entered = true
		p.logger.Debug().Int("frame", frame).Str("slide", pl.SlideID).Msg("slide mounted")
	}

	elapsed := float64(frame-pl.Start) / float64(p.tl.FPS)
	p.lastElapsed = elapsed

	due := reveal.Due(p.plans[pl.Index], elapsed)
	if p.active.viewport.Loaded() {
		p.active.viewport.Sync(due)
	}

	state.Active = true
	state.SlideID = pl.SlideID
	state.PlacementIndex = pl.Index
	state.Elapsed = elapsed
	state.Revealed = due

	if c, ok := captions.At(pl.Slide.Caption.Chunks, elapsed); ok {
		state.Caption = c.Text
		state.HasCaption = true
	}

	state.Audio = AudioCue{
		URL:    pl.Slide.AudioURL,
		Offset: elapsed,
		Muted:  !pl.Slide.HasAudio(),
	}

	return state
}

// Seek jumps to an arbitrary frame. It is Tick: no state from the previous
// frame influences the result beyond which viewport is mounted.
func (p *Player) Seek(frame int) FrameState {
	return p.Tick(frame)
}

// ViewportLoaded is called when the active slide's document reports it has
// loaded. It sends the initial RESET and replays the reveals due at the
// last evaluated time. It returns false when no slide is mounted.
func (p *Player) ViewportLoaded() bool {
	if p.active == nil {
		return false
	}
	vp := p.active.viewport
	vp.MarkLoaded()
	vp.Sync(reveal.Due(p.plans[p.active.placement.Index], p.lastElapsed))
	return true
}

// ViewportLoadedAt is ViewportLoaded for a load event that names the
// placement its document was mounted for. Events from a placement that is
// no longer active are ignored.
func (p *Player) ViewportLoadedAt(index int) bool {
	if p.active == nil || p.active.placement.Index != index {
		p.logger.Debug().Int("placement", index).Msg("stale viewport load ignored")
		return false
	}
	return p.ViewportLoaded()
}

// ActiveStats reports message counters of the mounted viewport.
func (p *Player) ActiveStats() (sent, dropped int, err error) {
	if p.active == nil {
		return 0, 0, nil
	}
	return p.active.viewport.Stats()
}
