package renderer

import (
	"fmt"
	"strings"
)

// Layer is a still input shown over the composition on [Start, End)
// seconds.
type Layer struct {
	Input int
	Start float64
	End   float64
}

// AudioClip is an audio input that starts Delay seconds into the
// composition.
type AudioClip struct {
	Input int
	Delay float64
}

// EnableExpr is a half-open time window for a filter's enable option.
func EnableExpr(start, end float64) string {
	return fmt.Sprintf("gte(t,%.3f)*lt(t,%.3f)", start, end)
}

// OverlayChain stacks layers onto base in order and returns the graph and
// its output label. With no layers the base label is returned unchanged.
func OverlayChain(base string, layers []Layer) (string, string) {
	var b strings.Builder
	last := base
	for i, l := range layers {
		out := fmt.Sprintf("[v%d]", i+1)
		if i > 0 {
			b.WriteByte(';')
		}
		fmt.Fprintf(&b, "%s[%d:v]overlay=x=0:y=0:enable='%s'%s", last, l.Input, EnableExpr(l.Start, l.End), out)
		last = out
	}
	return b.String(), last
}

// AudioMix delays every clip to its slide start and mixes them without
// level normalization. It returns an empty graph when there are no clips.
func AudioMix(clips []AudioClip) (string, string) {
	if len(clips) == 0 {
		return "", ""
	}

	var b strings.Builder
	for i, c := range clips {
		if i > 0 {
			b.WriteByte(';')
		}
		ms := int64(c.Delay * 1000)
		fmt.Fprintf(&b, "[%d:a]adelay=%d:all=1[a%d]", c.Input, ms, i)
	}

	if len(clips) == 1 {
		return b.String(), "[a0]"
	}

	b.WriteByte(';')
	for i := range clips {
		fmt.Fprintf(&b, "[a%d]", i)
	}
	fmt.Fprintf(&b, "amix=inputs=%d:duration=longest:normalize=0[aout]", len(clips))
	return b.String(), "[aout]"
}
