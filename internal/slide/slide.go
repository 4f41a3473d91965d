// Package slide defines the playable unit of a course video and the
// nullable wire record it is decoded from.
package slide

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingID    = errors.New("slide: missing slideId")
	ErrCaptionOrder = errors.New("slide: caption chunks out of order")
	ErrCaptionRange = errors.New("slide: caption chunk has invalid range")
)

// CaptionChunk is a timestamped fragment of the narration transcript.
// Start and End are seconds from the slide start. OpenEnd marks a chunk
// whose end was not timestamped; its End equals Start.
type CaptionChunk struct {
	Text    string
	Start   float64
	End     float64
	OpenEnd bool
}

// Caption holds the ordered chunks and optionally the full transcript.
type Caption struct {
	Chunks []CaptionChunk
	Text   string
}

// Slide is immutable during playback. Absent captions, audio, narration or
// reveal steps are represented by zero values, never by nil checks at call
// sites.
type Slide struct {
	ID          string
	ChapterID   string
	Index       int
	HTML        string
	AudioURL    string
	Narration   string
	RevealSteps []string
	Caption     Caption
}

func (s Slide) HasAudio() bool { return s.AudioURL != "" }
func (s Slide) HasCaptions() bool { return len(s.Caption.Chunks) > 0 }
func (s Slide) HasNarration() bool { return s.Narration != "" }

// LastCaptionEnd returns the end timestamp of the final caption chunk. It
// reports false when the final chunk has no end timestamp.
func (s Slide) LastCaptionEnd() (float64, bool) {
	if !s.HasCaptions() {
		return 0, false
	}
	last := s.Caption.Chunks[len(s.Caption.Chunks)-1]
	if last.OpenEnd {
		return 0, false
	}
	return last.End, true
}

// Record is the slide shape produced by the content pipeline and stored in
// chapter_content_slides. Every field except SlideID may be null.
type Record struct {
	SlideID      string         `json:"slideId"`
	ChapterID    string         `json:"chapterId,omitempty"`
	CourseID     string         `json:"courseId,omitempty"`
	SlideIndex   int            `json:"slideIndex"`
	HTML         *string        `json:"html"`
	AudioFileURL *string        `json:"audioFileUrl"`
	Narration    *NarrationData `json:"narration"`
	RevealData   []string       `json:"revealData"`
	Caption      *CaptionData   `json:"caption"`
}

type NarrationData struct {
	FullText string `json:"fullText"`
}

type CaptionData struct {
	Chunks []ChunkData `json:"chunks"`
	Text   string      `json:"text,omitempty"`
}

// ChunkData mirrors {"text": "...", "timestamp": [start, end]}. The end
// timestamp of the last chunk is null in some transcriber outputs.
type ChunkData struct {
	Text      string      `json:"text"`
	Timestamp [2]*float64 `json:"timestamp"`
}

// New builds a Slide from a wire record. Only a missing ID is rejected;
// caption ordering is not checked here (see ValidateCaption).
func New(rec Record) (Slide, error) {
	id := strings.TrimSpace(rec.SlideID)
	if id == "" {
		return Slide{}, ErrMissingID
	}

	s := Slide{
		ID:        id,
		ChapterID: rec.ChapterID,
		Index:     rec.SlideIndex,
	}
	if rec.HTML != nil {
		s.HTML = *rec.HTML
	}
	if rec.AudioFileURL != nil {
		s.AudioURL = strings.TrimSpace(*rec.AudioFileURL)
	}
	if rec.Narration != nil {
		s.Narration = rec.Narration.FullText
	}
	if len(rec.RevealData) > 0 {
		s.RevealSteps = append([]string(nil), rec.RevealData...)
	}
	if rec.Caption != nil {
		s.Caption.Text = rec.Caption.Text
		for _, c := range rec.Caption.Chunks {
			s.Caption.Chunks = append(s.Caption.Chunks, c.chunk())
		}
	}
	return s, nil
}

func (c ChunkData) chunk() CaptionChunk {
	out := CaptionChunk{Text: c.Text}
	if c.Timestamp[0] != nil {
		out.Start = *c.Timestamp[0]
	}
	if c.Timestamp[1] != nil {
		out.End = *c.Timestamp[1]
	} else {
		out.End = out.Start
		out.OpenEnd = true
	}
	return out
}

// Decode parses a single JSON record.
func Decode(data []byte) (Slide, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Slide{}, fmt.Errorf("decode slide: %w", err)
	}
	return New(rec)
}

// ToRecord converts a slide back to its wire shape.
func (s Slide) ToRecord() Record {
	rec := Record{
		SlideID:    s.ID,
		ChapterID:  s.ChapterID,
		SlideIndex: s.Index,
		RevealData: s.RevealSteps,
	}
	if s.HTML != "" {
		html := s.HTML
		rec.HTML = &html
	}
	if s.HasAudio() {
		url := s.AudioURL
		rec.AudioFileURL = &url
	}
	if s.HasNarration() {
		rec.Narration = &NarrationData{FullText: s.Narration}
	}
	if s.HasCaptions() || s.Caption.Text != "" {
		rec.Caption = &CaptionData{Text: s.Caption.Text}
		for _, c := range s.Caption.Chunks {
			start, end := c.Start, c.End
			ts := [2]*float64{&start, &end}
			if c.OpenEnd {
				ts[1] = nil
			}
			rec.Caption.Chunks = append(rec.Caption.Chunks, ChunkData{
				Text:      c.Text,
				Timestamp: ts,
			})
		}
	}
	return rec
}

// ValidateCaption checks that chunks are well-formed ranges starting at or
// after zero, in chronological order without overlap.
func ValidateCaption(c Caption) error {
	prevEnd := 0.0
	for i, ch := range c.Chunks {
		if ch.Start < 0 || ch.End < ch.Start {
			return fmt.Errorf("%w: chunk %d [%.3f, %.3f]", ErrCaptionRange, i, ch.Start, ch.End)
		}
		if ch.Start < prevEnd {
			return fmt.Errorf("%w: chunk %d starts at %.3f before previous end %.3f", ErrCaptionOrder, i, ch.Start, prevEnd)
		}
		prevEnd = ch.End
	}
	return nil
}
