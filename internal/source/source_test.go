package source

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/coursevideo/internal/slide"
)

func TestJSONSource(t *testing.T) {
	src, err := Open("testdata/course.json", Options{Logger: zerolog.Nop()})
	require.NoError(t, err)
	defer src.Close()

	course, err := src.Course(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "go-basics", course.ID)
	assert.Equal(t, "Go Basics", course.Name)
	require.Len(t, course.Chapters, 2)
	assert.Equal(t, 3, course.SlideCount(), "slide without slideId is skipped")

	intro, ok := course.Chapter("intro")
	require.True(t, ok)
	assert.Equal(t, "Introduction", intro.Title)
	assert.Equal(t, []string{"Why Go", "Tooling"}, intro.SubContent)
	require.Len(t, intro.Slides, 2)
	assert.Equal(t, "intro-01", intro.Slides[0].ID)
	assert.Equal(t, "intro-02", intro.Slides[1].ID)

	s := intro.Slides[1]
	assert.Equal(t, []string{"r1", "r2"}, s.RevealSteps)
	require.Len(t, s.Caption.Chunks, 3)
	last := s.Caption.Chunks[2]
	assert.Equal(t, 2.9, last.Start)
	assert.Equal(t, 2.9, last.End, "null end timestamp collapses to start")

	assert.Empty(t, intro.Slides[0].HTML)
	assert.Empty(t, intro.Slides[0].RevealSteps)

	assert.Equal(t, "types", course.Chapters[1].ID)
	_, ok = course.Slide("types-01")
	assert.True(t, ok)
	_, ok = course.Chapter("missing")
	assert.False(t, ok)
}

func TestAssembleChapterOrder(t *testing.T) {
	records := []slide.Record{
		{SlideID: "x2", ChapterID: "extra", SlideIndex: 2},
		{SlideID: "a1", ChapterID: "a", SlideIndex: 1},
		{SlideID: "x1", ChapterID: "extra", SlideIndex: 1},
		{SlideID: "n1"},
	}
	layout := Layout{Chapters: []ChapterInfo{
		{ID: "empty", Title: "Nothing here"},
		{ID: "a", Title: "A"},
	}}

	course, err := Assemble("c", "", layout, records, AssembleOptions{Logger: zerolog.Nop()})
	require.NoError(t, err)

	var ids []string
	for _, ch := range course.Chapters {
		ids = append(ids, ch.ID)
	}
	assert.Equal(t, []string{"a", "extra", DefaultChapterID}, ids)

	extra, _ := course.Chapter("extra")
	assert.Equal(t, "x1", extra.Slides[0].ID)
	assert.Equal(t, "x2", extra.Slides[1].ID)
}

func TestAssembleStrictCaptions(t *testing.T) {
	start, end := 3.0, 1.0
	records := []slide.Record{
		{SlideID: "ok"},
		{SlideID: "bad", Caption: &slide.CaptionData{Chunks: []slide.ChunkData{
			{Text: "backwards", Timestamp: [2]*float64{&start, &end}},
		}}},
	}

	lenient, err := Assemble("c", "", Layout{}, records, AssembleOptions{Logger: zerolog.Nop()})
	require.NoError(t, err)
	assert.Equal(t, 2, lenient.SlideCount())

	strict, err := Assemble("c", "", Layout{}, records, AssembleOptions{Logger: zerolog.Nop(), StrictCaptions: true})
	require.NoError(t, err)
	assert.Equal(t, 1, strict.SlideCount())
}

func TestAssembleNoSlides(t *testing.T) {
	_, err := Assemble("c", "", Layout{}, []slide.Record{{SlideID: "  "}}, AssembleOptions{Logger: zerolog.Nop()})
	assert.ErrorIs(t, err, ErrNoSlides)
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestImageSource(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "deck")
	require.NoError(t, os.Mkdir(dir, 0755))
	writePNG(t, filepath.Join(dir, "02.png"), 32, 18)
	writePNG(t, filepath.Join(dir, "01.png"), 16, 9)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "01.txt"), []byte(" one two three \n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "03.jpg"), []byte("not an image"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("ignored"), 0644))

	src, err := Open(dir, Options{Logger: zerolog.Nop()})
	require.NoError(t, err)
	assert.Equal(t, 3, src.(*ImageSource).PageCount())

	course, err := src.Course(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "deck", course.ID)
	require.Len(t, course.Chapters, 1)

	slides := course.Chapters[0].Slides
	require.Len(t, slides, 2)
	assert.Equal(t, "01", slides[0].ID)
	assert.Equal(t, "one two three", slides[0].Narration)
	assert.Contains(t, slides[0].HTML, "data:image/png;base64,")
	assert.Contains(t, slides[0].HTML, `width="16" height="9"`)
	assert.False(t, slides[1].HasNarration())
}

func TestImageSourceEmptyDir(t *testing.T) {
	_, err := NewImageSource(t.TempDir(), Options{})
	assert.ErrorIs(t, err, ErrNoSlides)
}

func TestOpenUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "course.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	_, err := Open(path, Options{})
	assert.Error(t, err)

	_, err = Open(filepath.Join(t.TempDir(), "missing.json"), Options{})
	assert.Error(t, err)
}

func TestContextCancelled(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "a.png"), 4, 4)
	src, err := NewImageSource(dir, Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.Course(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestImageSourceRelists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "deck")
	require.NoError(t, os.Mkdir(dir, 0755))
	writePNG(t, filepath.Join(dir, "01.png"), 16, 9)

	src, err := NewImageSource(dir, Options{Logger: zerolog.Nop()})
	require.NoError(t, err)

	course, err := src.Course(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, course.SlideCount())

	writePNG(t, filepath.Join(dir, "02.png"), 16, 9)
	course, err = src.Course(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, course.SlideCount())
}
