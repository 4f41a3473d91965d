// Package store reads courses and their slide rows from Postgres. The
// schema is owned by the content pipeline; this package never writes.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/ivlev/coursevideo/internal/config"
	"github.com/ivlev/coursevideo/internal/slide"
	"github.com/ivlev/coursevideo/internal/source"
)

var ErrNotFound = errors.New("store: not found")

// DB wraps the database connection pool
type DB struct {
	Pool   *pgxpool.Pool
	logger zerolog.Logger
}

// New creates a new database connection
func New(ctx context.Context, cfg config.Database, logger zerolog.Logger) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool, logger: logger}, nil
}

// Close closes the database connection pool
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// Health checks if the database is healthy
func (db *DB) Health(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

const courseQuery = `
	SELECT course_id, course_name, course_layout
	FROM courses
	WHERE course_id = $1
`

const slidesQuery = `
	SELECT chapter_id, slide_id, slide_index, audio_file_url,
	       narration, caption, html, reveal_data
	FROM chapter_content_slides
	WHERE course_id = $1
	ORDER BY chapter_id, slide_index
`

// CourseRow is the course header row.
type CourseRow struct {
	ID     string
	Name   string
	Layout source.Layout
}

// GetCourse retrieves the course row by ID
func (db *DB) GetCourse(ctx context.Context, courseID string) (*CourseRow, error) {
	var (
		row    CourseRow
		layout []byte
	)
	err := db.Pool.QueryRow(ctx, courseQuery, courseID).Scan(&row.ID, &row.Name, &layout)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("course %q: %w", courseID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}

	if len(layout) > 0 {
		if err := json.Unmarshal(layout, &row.Layout); err != nil {
			return nil, fmt.Errorf("course %q: bad course_layout: %w", courseID, err)
		}
	}
	return &row, nil
}

// GetSlideRecords retrieves every slide row of a course
func (db *DB) GetSlideRecords(ctx context.Context, courseID string) ([]slide.Record, error) {
	rows, err := db.Pool.Query(ctx, slidesQuery, courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query slides: %w", err)
	}
	defer rows.Close()

	var records []slide.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			// one bad JSON column should not hide the rest of the course
			db.logger.Warn().Err(err).Str("course", courseID).Msg("skipping slide row")
			continue
		}
		rec.CourseID = courseID
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read slides: %w", err)
	}
	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (slide.Record, error) {
	var (
		rec                        slide.Record
		chapterID                  *string
		index                      *int
		narration, caption, reveal []byte
	)

	if err := row.Scan(&chapterID, &rec.SlideID, &index, &rec.AudioFileURL, &narration, &caption, &rec.HTML, &reveal); err != nil {
		return slide.Record{}, fmt.Errorf("scan slide: %w", err)
	}

	if chapterID != nil {
		rec.ChapterID = *chapterID
	}
	if index != nil {
		rec.SlideIndex = *index
	}

	if err := decodeJSON(narration, &rec.Narration); err != nil {
		return slide.Record{}, fmt.Errorf("slide %s narration: %w", rec.SlideID, err)
	}
	if err := decodeJSON(caption, &rec.Caption); err != nil {
		return slide.Record{}, fmt.Errorf("slide %s caption: %w", rec.SlideID, err)
	}
	if err := decodeJSON(reveal, &rec.RevealData); err != nil {
		return slide.Record{}, fmt.Errorf("slide %s reveal_data: %w", rec.SlideID, err)
	}
	return rec, nil
}

// decodeJSON leaves dst untouched for SQL NULL.
func decodeJSON(data []byte, dst any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}

// LoadCourse reads a course and assembles its chapters.
func (db *DB) LoadCourse(ctx context.Context, courseID string, opts source.AssembleOptions) (*source.Course, error) {
	row, err := db.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}

	records, err := db.GetSlideRecords(ctx, courseID)
	if err != nil {
		return nil, err
	}

	return source.Assemble(row.ID, row.Name, row.Layout, records, opts)
}

// Source exposes one course of the database as a source.Source.
type Source struct {
	db       *DB
	courseID string
	opts     source.AssembleOptions
}

func NewSource(db *DB, courseID string, opts source.AssembleOptions) *Source {
	return &Source{db: db, courseID: courseID, opts: opts}
}

func (s *Source) Course(ctx context.Context) (*source.Course, error) {
	return s.db.LoadCourse(ctx, s.courseID, s.opts)
}

func (s *Source) Close() error {
	s.db.Close()
	return nil
}
