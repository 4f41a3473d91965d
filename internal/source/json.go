package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ivlev/coursevideo/internal/slide"
)

// CourseFile is the course export shape: the course row plus its
// chapter_content_slides rows.
type CourseFile struct {
	CourseID             string         `json:"courseId"`
	CourseName           string         `json:"courseName"`
	CourseLayout         Layout         `json:"courseLayout"`
	ChapterContentSlides []slide.Record `json:"chapterContentSlides"`
}

// JSONSource reads a course export file.
type JSONSource struct {
	path string
	opts Options
}

func NewJSONSource(path string, opts Options) *JSONSource {
	return &JSONSource{path: path, opts: opts}
}

func (s *JSONSource) Path() string { return s.path }

func (s *JSONSource) Course(ctx context.Context) (*Course, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}

	var file CourseFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse course %s: %w", s.path, err)
	}

	id := file.CourseID
	if id == "" {
		id = deckID(s.path)
	}
	return Assemble(id, file.CourseName, file.CourseLayout, file.ChapterContentSlides, s.opts.assemble())
}

func (s *JSONSource) Close() error {
	return nil
}
