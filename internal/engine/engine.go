package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/coursevideo/internal/bridge"
	"github.com/ivlev/coursevideo/internal/cache"
	"github.com/ivlev/coursevideo/internal/captions"
	"github.com/ivlev/coursevideo/internal/config"
	"github.com/ivlev/coursevideo/internal/player"
	"github.com/ivlev/coursevideo/internal/scenario"
	"github.com/ivlev/coursevideo/internal/source"
	"github.com/ivlev/coursevideo/internal/system"
	"github.com/ivlev/coursevideo/internal/timeline"
	"github.com/ivlev/coursevideo/internal/timing"
	"github.com/ivlev/coursevideo/internal/video"
)

// Names of the per-chapter artifacts.
const (
	SlidesDir     = "slides"
	CueSheetFile  = "cuesheet.yaml"
	CaptionsFile  = "captions.vtt"
	TimelineFile  = "timeline.json"
	PreviewFile   = "preview.mp4"
	BenchmarkFile = "benchmark.log"
)

// AudioProbe returns the length of an audio asset in seconds.
type AudioProbe func(ctx context.Context, url string) (float64, error)

type VideoProject struct {
	Config  *config.Config
	Source  source.Source
	Encoder video.Encoder
	Cache   cache.DurationCache
	Probe   AudioProbe
	Logger  zerolog.Logger
}

func NewVideoProject(cfg *config.Config, src source.Source, enc video.Encoder, c cache.DurationCache, logger zerolog.Logger) *VideoProject {
	return &VideoProject{
		Config:  cfg,
		Source:  src,
		Encoder: enc,
		Cache:   c,
		Probe:   system.GetAudioDuration,
		Logger:  logger,
	}
}

// ChapterPlan is everything needed to play or export one chapter.
type ChapterPlan struct {
	CourseID    string
	Chapter     source.Chapter
	Durations   timing.DurationMap
	Timeline    timeline.Timeline
	Composition player.Composition
	CacheHit    bool
}

// TimelineDoc is the JSON shape of a planned chapter.
type TimelineDoc struct {
	CourseID    string               `json:"courseId"`
	ChapterID   string               `json:"chapterId"`
	Title       string               `json:"title"`
	Composition player.Composition   `json:"composition"`
	GapFrames   int                  `json:"gapFrames"`
	Placements  []timeline.Placement `json:"placements"`
}

func (cp ChapterPlan) Doc() TimelineDoc {
	return TimelineDoc{
		CourseID:    cp.CourseID,
		ChapterID:   cp.Chapter.ID,
		Title:       cp.Chapter.Title,
		Composition: cp.Composition,
		GapFrames:   cp.Timeline.GapFrames,
		Placements:  cp.Timeline.Placements,
	}
}

// PlanChapter estimates durations (through the cache when one is set) and
// lays the chapter out on a timeline.
func PlanChapter(ctx context.Context, cfg *config.Config, c cache.DurationCache, courseID string, ch source.Chapter, logger zerolog.Logger) ChapterPlan {
	key := cache.KeyFor(courseID, ch.ID, cfg.Timing, ch.Slides)
	durations, hit := cache.Estimate(ctx, c, key, ch.Slides, cfg.Timing, logger)

	if !hit {
		for _, s := range ch.Slides {
			frames, rule := timing.EstimateWithSource(s, cfg.Timing)
			logger.Debug().
				Str("chapter", ch.ID).
				Str("slide", s.ID).
				Str("rule", string(rule)).
				Int("frames", frames).
				Msg("slide duration estimated")
		}
	}

	tl := timeline.Build(ch.Slides, durations, cfg.Timing)
	return ChapterPlan{
		CourseID:    courseID,
		Chapter:     ch,
		Durations:   durations,
		Timeline:    tl,
		Composition: player.CompositionFor(tl, cfg.Render),
		CacheHit:    hit,
	}
}

// ExportResult summarizes one exported chapter.
type ExportResult struct {
	ChapterID string
	Dir       string
	Slides    int
	Frames    int
	Preview   string
	Elapsed   time.Duration
}

// Run loads the course and exports the selected chapter, or every chapter.
func (p *VideoProject) Run(ctx context.Context) ([]ExportResult, error) {
	course, err := p.Source.Course(ctx)
	if err != nil {
		return nil, fmt.Errorf("загрузка курса: %w", err)
	}

	chapters := course.Chapters
	if p.Config.Chapter != "" {
		ch, ok := course.Chapter(p.Config.Chapter)
		if !ok {
			return nil, fmt.Errorf("глава %q не найдена в курсе %s", p.Config.Chapter, course.ID)
		}
		chapters = []source.Chapter{*ch}
	}

	fmt.Println("--- [PROJECT: COURSE VIDEO] ---")
	fmt.Printf("[*] Курс: %s (%s) | Глав: %d | Слайдов: %d\n", course.Name, course.ID, len(chapters), course.SlideCount())
	fmt.Printf("[*] Композиция: %dx%d @ %d FPS | Пауза между слайдами: %.1fs\n",
		p.Config.Render.Width, p.Config.Render.Height, p.Config.Timing.FPS, p.Config.Timing.InterSlideGapSeconds)
	fmt.Println("-----------------------------")

	var results []ExportResult
	for _, ch := range chapters {
		res, err := p.ExportChapter(ctx, course, ch)
		if err != nil {
			return results, fmt.Errorf("глава %s: %w", ch.ID, err)
		}
		results = append(results, *res)
		fmt.Printf("[>] Ready: %s (%d слайдов, %d кадров) -> %s\n", ch.ID, res.Slides, res.Frames, res.Dir)
	}
	return results, nil
}

// ExportChapter writes the prepared slide documents, the cue sheet, the
// caption track and the timeline of one chapter, plus the preview video
// when enabled.
func (p *VideoProject) ExportChapter(ctx context.Context, course *source.Course, ch source.Chapter) (*ExportResult, error) {
	start := time.Now()
	plan := PlanChapter(ctx, p.Config, p.Cache, course.ID, ch, p.Logger)

	dir := filepath.Join(p.Config.OutputDir, course.ID, ch.ID)
	if err := os.MkdirAll(filepath.Join(dir, SlidesDir), 0755); err != nil {
		return nil, err
	}

	if err := p.writeDocuments(ctx, dir, plan.Timeline); err != nil {
		return nil, err
	}

	sc := scenario.FromTimeline(plan.Timeline, p.Config.Timing, scenario.Meta{
		CourseID:  course.ID,
		ChapterID: ch.ID,
		Width:     plan.Composition.Width,
		Height:    plan.Composition.Height,
		Document:  documentPath,
	})
	if err := scenario.Write(sc, filepath.Join(dir, CueSheetFile)); err != nil {
		return nil, err
	}

	if err := writeVTT(filepath.Join(dir, CaptionsFile), plan.Timeline); err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(plan.Doc(), "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, TimelineFile), data, 0644); err != nil {
		return nil, err
	}

	if p.Probe != nil {
		p.checkAudio(ctx, plan.Timeline)
	}

	res := &ExportResult{
		ChapterID: ch.ID,
		Dir:       dir,
		Slides:    len(plan.Timeline.Placements),
		Frames:    plan.Timeline.TotalFrames(),
	}

	if p.Config.Render.Preview {
		out := filepath.Join(dir, PreviewFile)
		fmt.Printf("[*] Сборка превью %s...\n", out)
		if err := p.renderPreview(ctx, plan, out); err != nil {
			return nil, fmt.Errorf("ошибка сборки превью: %w", err)
		}
		res.Preview = out
	}

	res.Elapsed = time.Since(start)

	if p.Config.Render.ShowStats {
		report := system.ExportReport{
			CourseID:  course.ID,
			ChapterID: ch.ID,
			Slides:    res.Slides,
			Frames:    res.Frames,
			FPS:       plan.Timeline.FPS,
			Elapsed:   res.Elapsed,
			Preview:   res.Preview != "",
			Host:      system.CollectHostStats(),
		}
		system.WriteReport(os.Stdout, report)
		if err := system.AppendReport(BenchmarkFile, report); err != nil {
			fmt.Printf("[!] Не удалось записать %s: %v\n", BenchmarkFile, err)
		}
	}

	p.Logger.Info().
		Str("course", course.ID).
		Str("chapter", ch.ID).
		Int("slides", res.Slides).
		Int("frames", res.Frames).
		Bool("cacheHit", plan.CacheHit).
		Dur("elapsed", res.Elapsed).
		Msg("chapter exported")

	return res, nil
}

func documentPath(p timeline.Placement) string {
	return SlidesDir + "/" + fileName(p.SlideID) + ".html"
}

// fileName keeps slide IDs inside the slides directory. IDs that had to be
// rewritten get a suffix derived from the original ID, so two IDs never
// share a file.
func fileName(id string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, id)
	if strings.Trim(name, ".") == "" {
		name = "_" + name
	}
	if name == id {
		return name
	}
	sum := sha256.Sum256([]byte(id))
	return name + "-" + hex.EncodeToString(sum[:4])
}

func (p *VideoProject) writeDocuments(ctx context.Context, dir string, tl timeline.Timeline) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, p.Config.Render.Workers))

	for _, pl := range tl.Placements {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(dir, filepath.FromSlash(documentPath(pl)))
			return os.WriteFile(path, []byte(bridge.Prepare(pl.Slide.HTML)), 0644)
		})
	}
	return g.Wait()
}

func writeVTT(path string, tl timeline.Timeline) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := captions.WriteVTT(f, tl); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// checkAudio warns about narration that runs past its slide. Playback still
// cuts it at the slide end.
func (p *VideoProject) checkAudio(ctx context.Context, tl timeline.Timeline) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, p.Config.Render.Workers))

	for _, pl := range tl.Placements {
		if !pl.Slide.HasAudio() {
			continue
		}
		g.Go(func() error {
			d, err := p.Probe(ctx, pl.Slide.AudioURL)
			if err != nil {
				p.Logger.Debug().Err(err).Str("slide", pl.SlideID).Msg("audio probe failed")
				return nil
			}
			if limit := tl.EndSeconds(pl) - tl.StartSeconds(pl); d > limit {
				p.Logger.Warn().
					Str("slide", pl.SlideID).
					Float64("audio", d).
					Float64("slideSeconds", limit).
					Msg("narration is longer than its slide and will be cut")
			}
			return nil
		})
	}
	g.Wait()
}
