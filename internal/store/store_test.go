package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRow assigns its values to Scan destinations in order.
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case **string:
			if v, ok := r.values[i].(string); ok {
				*p = &v
			}
		case *string:
			*p = r.values[i].(string)
		case **int:
			if v, ok := r.values[i].(int); ok {
				*p = &v
			}
		case *[]byte:
			if v, ok := r.values[i].(string); ok {
				*p = []byte(v)
			}
		default:
			return errors.New("unexpected destination")
		}
	}
	return nil
}

func TestScanRecord(t *testing.T) {
	row := fakeRow{values: []any{
		"ch1",
		"s1",
		4,
		"https://cdn.example.com/s1.mp3",
		`{"fullText":"hello there"}`,
		`{"chunks":[{"text":"hello","timestamp":[0,1.2]},{"text":"there","timestamp":[1.2,null]}]}`,
		"<body>x</body>",
		`["r1","r2"]`,
	}}

	rec, err := scanRecord(row)
	require.NoError(t, err)
	assert.Equal(t, "ch1", rec.ChapterID)
	assert.Equal(t, "s1", rec.SlideID)
	assert.Equal(t, 4, rec.SlideIndex)
	require.NotNil(t, rec.AudioFileURL)
	assert.Equal(t, "https://cdn.example.com/s1.mp3", *rec.AudioFileURL)
	require.NotNil(t, rec.Narration)
	assert.Equal(t, "hello there", rec.Narration.FullText)
	require.NotNil(t, rec.Caption)
	require.Len(t, rec.Caption.Chunks, 2)
	assert.Nil(t, rec.Caption.Chunks[1].Timestamp[1])
	require.NotNil(t, rec.HTML)
	assert.Equal(t, "<body>x</body>", *rec.HTML)
	assert.Equal(t, []string{"r1", "r2"}, rec.RevealData)
}

func TestScanRecordNulls(t *testing.T) {
	row := fakeRow{values: []any{nil, "s2", nil, nil, nil, nil, nil, nil}}

	rec, err := scanRecord(row)
	require.NoError(t, err)
	assert.Empty(t, rec.ChapterID)
	assert.Zero(t, rec.SlideIndex)
	assert.Nil(t, rec.AudioFileURL)
	assert.Nil(t, rec.Narration)
	assert.Nil(t, rec.Caption)
	assert.Nil(t, rec.HTML)
	assert.Nil(t, rec.RevealData)
}

func TestScanRecordBadJSON(t *testing.T) {
	row := fakeRow{values: []any{"ch1", "s3", 1, nil, `{"fullText":`, nil, nil, nil}}
	_, err := scanRecord(row)
	assert.ErrorContains(t, err, "narration")
}

func TestScanRecordError(t *testing.T) {
	_, err := scanRecord(fakeRow{err: errors.New("conn reset")})
	assert.ErrorContains(t, err, "conn reset")
}
