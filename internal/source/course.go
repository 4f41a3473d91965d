package source

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/ivlev/coursevideo/internal/slide"
)

// DefaultChapterID groups slides that carry no chapter.
const DefaultChapterID = "main"

var ErrNoSlides = errors.New("source: no playable slides")

// ChapterInfo is a chapter entry of the course layout.
type ChapterInfo struct {
	ID         string   `json:"chapterId"`
	Title      string   `json:"chapterTitle"`
	SubContent []string `json:"subContent,omitempty"`
}

// Layout is the course outline stored next to the course.
type Layout struct {
	CourseName        string        `json:"courseName,omitempty"`
	CourseDescription string        `json:"courseDescription,omitempty"`
	Level             string        `json:"level,omitempty"`
	TotalChapters     int           `json:"totalChapters,omitempty"`
	Chapters          []ChapterInfo `json:"chapters"`
}

// Chapter is one composition worth of slides, ordered by slide index.
type Chapter struct {
	ChapterInfo
	Slides []slide.Slide
}

// Course is a loaded course ready for playback.
type Course struct {
	ID       string
	Name     string
	Layout   Layout
	Chapters []Chapter
}

// Chapter returns a chapter by ID.
func (c *Course) Chapter(id string) (*Chapter, bool) {
	for i := range c.Chapters {
		if c.Chapters[i].ID == id {
			return &c.Chapters[i], true
		}
	}
	return nil, false
}

// Slide finds a slide in any chapter.
func (c *Course) Slide(id string) (slide.Slide, bool) {
	for _, ch := range c.Chapters {
		for _, s := range ch.Slides {
			if s.ID == id {
				return s, true
			}
		}
	}
	return slide.Slide{}, false
}

// SlideCount is the number of slides across chapters.
func (c *Course) SlideCount() int {
	n := 0
	for _, ch := range c.Chapters {
		n += len(ch.Slides)
	}
	return n
}

// AssembleOptions controls how records are turned into slides.
type AssembleOptions struct {
	Logger zerolog.Logger
	// StrictCaptions drops slides whose caption chunks are out of order or
	// malformed instead of playing them as-is.
	StrictCaptions bool
}

// Assemble builds a course from raw slide records. Invalid records are
// skipped with a warning. Chapters follow the layout order; chapters that
// only appear in records are appended in first-seen order.
func Assemble(id, name string, layout Layout, records []slide.Record, opts AssembleOptions) (*Course, error) {
	logger := opts.Logger

	byChapter := make(map[string][]slide.Slide)
	var seen []string

	for i, rec := range records {
		s, err := slide.New(rec)
		if err != nil {
			logger.Warn().Err(err).Int("record", i).Msg("skipping slide record")
			continue
		}
		if opts.StrictCaptions {
			if err := slide.ValidateCaption(s.Caption); err != nil {
				logger.Warn().Err(err).Str("slide", s.ID).Msg("skipping slide with invalid caption")
				continue
			}
		}
		if s.ChapterID == "" {
			s.ChapterID = DefaultChapterID
		}
		if _, ok := byChapter[s.ChapterID]; !ok {
			seen = append(seen, s.ChapterID)
		}
		byChapter[s.ChapterID] = append(byChapter[s.ChapterID], s)
	}

	if len(byChapter) == 0 {
		return nil, fmt.Errorf("course %q: %w", id, ErrNoSlides)
	}

	course := &Course{ID: id, Name: name, Layout: layout}
	if course.Name == "" {
		course.Name = layout.CourseName
	}

	used := make(map[string]bool)
	add := func(info ChapterInfo) {
		slides := byChapter[info.ID]
		sort.SliceStable(slides, func(i, j int) bool { return slides[i].Index < slides[j].Index })
		course.Chapters = append(course.Chapters, Chapter{ChapterInfo: info, Slides: slides})
		used[info.ID] = true
	}

	for _, info := range layout.Chapters {
		if _, ok := byChapter[info.ID]; !ok || used[info.ID] {
			continue
		}
		add(info)
	}
	for _, chID := range seen {
		if !used[chID] {
			add(ChapterInfo{ID: chID, Title: chID})
		}
	}

	logger.Debug().Str("course", id).Int("chapters", len(course.Chapters)).Int("slides", course.SlideCount()).Msg("course assembled")
	return course, nil
}
