package slide

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFullRecord(t *testing.T) {
	data := []byte(`{
		"slideId": "intro-01",
		"chapterId": "ch-1",
		"slideIndex": 2,
		"html": "<html><body><h1>Hi</h1></body></html>",
		"audioFileUrl": "https://cdn.example.com/a.mp3",
		"narration": {"fullText": "hello there"},
		"revealData": ["r1", "r2"],
		"caption": {"chunks": [
			{"text": "hello", "timestamp": [0, 1.5]},
			{"text": "there", "timestamp": [1.5, 3.2]}
		], "text": "hello there"}
	}`)

	s, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, "intro-01", s.ID)
	assert.Equal(t, "ch-1", s.ChapterID)
	assert.Equal(t, 2, s.Index)
	assert.True(t, s.HasAudio())
	assert.True(t, s.HasNarration())
	assert.True(t, s.HasCaptions())
	assert.Equal(t, []string{"r1", "r2"}, s.RevealSteps)
	require.Len(t, s.Caption.Chunks, 2)
	assert.Equal(t, CaptionChunk{Text: "there", Start: 1.5, End: 3.2}, s.Caption.Chunks[1])

	end, ok := s.LastCaptionEnd()
	assert.True(t, ok)
	assert.Equal(t, 3.2, end)
}

func TestDecodeNullFields(t *testing.T) {
	s, err := Decode([]byte(`{"slideId":"s1","html":null,"audioFileUrl":null,"narration":null,"revealData":null,"caption":null}`))
	require.NoError(t, err)

	assert.False(t, s.HasAudio())
	assert.False(t, s.HasNarration())
	assert.False(t, s.HasCaptions())
	assert.Empty(t, s.RevealSteps)
	assert.Equal(t, "", s.HTML)
}

func TestDecodeNullEndTimestamp(t *testing.T) {
	s, err := Decode([]byte(`{"slideId":"s1","caption":{"chunks":[{"text":"x","timestamp":[2.5,null]}]}}`))
	require.NoError(t, err)
	require.Len(t, s.Caption.Chunks, 1)
	assert.Equal(t, 2.5, s.Caption.Chunks[0].End)
	assert.True(t, s.Caption.Chunks[0].OpenEnd)
	assert.True(t, s.HasCaptions())

	_, ok := s.LastCaptionEnd()
	assert.False(t, ok)

	rec := s.ToRecord()
	require.Len(t, rec.Caption.Chunks, 1)
	assert.Nil(t, rec.Caption.Chunks[0].Timestamp[1])
}

func TestNewMissingID(t *testing.T) {
	_, err := New(Record{SlideID: "  "})
	assert.True(t, errors.Is(err, ErrMissingID))
}

func TestRecordRoundTripKeepsAbsence(t *testing.T) {
	s, err := New(Record{SlideID: "s1"})
	require.NoError(t, err)

	rec := s.ToRecord()
	assert.Nil(t, rec.AudioFileURL)
	assert.Nil(t, rec.Caption)
	assert.Nil(t, rec.Narration)
}

func TestValidateCaption(t *testing.T) {
	tests := []struct {
		name    string
		chunks  []CaptionChunk
		wantErr error
	}{
		{"empty", nil, nil},
		{"ordered", []CaptionChunk{{Start: 0, End: 1}, {Start: 1, End: 2}}, nil},
		{"overlap", []CaptionChunk{{Start: 0, End: 2}, {Start: 1, End: 3}}, ErrCaptionOrder},
		{"reversed", []CaptionChunk{{Start: 2, End: 1}}, ErrCaptionRange},
		{"negative", []CaptionChunk{{Start: -1, End: 1}}, ErrCaptionRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCaption(Caption{Chunks: tt.chunks})
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
