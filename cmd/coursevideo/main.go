package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/coursevideo/internal/bridge"
	"github.com/ivlev/coursevideo/internal/cache"
	"github.com/ivlev/coursevideo/internal/config"
	"github.com/ivlev/coursevideo/internal/engine"
	"github.com/ivlev/coursevideo/internal/logging"
	"github.com/ivlev/coursevideo/internal/player"
	"github.com/ivlev/coursevideo/internal/server"
	"github.com/ivlev/coursevideo/internal/source"
	"github.com/ivlev/coursevideo/internal/store"
	"github.com/ivlev/coursevideo/internal/system"
	"github.com/ivlev/coursevideo/internal/video"
	"github.com/ivlev/coursevideo/internal/watcher"
)

var buildVersion = "dev"

func main() {
	// Увеличиваем лимиты системы (для macOS/Linux)
	system.InitResourceLimits()

	configPtr := flag.String("config", "", "Путь к YAML-конфигу (переменные окружения COURSEVIDEO_* имеют приоритет)")
	inputPtr := flag.String("input", "", "Курс: JSON-экспорт, PDF или папка с изображениями (по умолчанию: самый свежий файл в input/)")
	chapterPtr := flag.String("chapter", "", "ID главы (если пусто, обрабатываются все главы)")
	outputPtr := flag.String("output", "", "Папка для результатов")
	fpsPtr := flag.Int("fps", 30, "FPS композиции")
	widthPtr := flag.Int("width", 1280, "Ширина")
	heightPtr := flag.Int("height", 720, "Высота")
	workersPtr := flag.Int("workers", runtime.NumCPU(), "Потоки")
	gapPtr := flag.Float64("gap", 1, "Пауза между слайдами (сек)")
	qualityPtr := flag.Int("quality", 0, "Качество превью (0 - авто, x264: CRF 1-51, VideoToolbox: битрейт = Q*100кбит/с)")
	previewPtr := flag.Bool("preview", false, "Собрать превью-видео через ffmpeg")
	statsPtr := flag.Bool("stats", false, "Записать отчет о ресурсах в benchmark_results.md")
	strictPtr := flag.Bool("strict-captions", false, "Отбрасывать слайды с перекрывающимися субтитрами")
	servePtr := flag.Bool("serve", false, "Запустить превью-сервер вместо экспорта")
	addrPtr := flag.String("addr", ":8080", "Адрес превью-сервера")
	watchPtr := flag.Bool("watch", true, "Перезагружать курс при изменении файла (только с -serve)")
	qrPtr := flag.Bool("qr", false, "Показать QR-код ссылки на плеер главы")
	tracePtr := flag.Int("trace-frame", -1, "Вычислить один кадр главы и вывести состояние плеера")
	dsnPtr := flag.String("dsn", "", "Строка подключения к Postgres (вместо -input)")
	courseIDPtr := flag.String("course-id", "", "ID курса в базе (с -dsn)")

	flag.Parse()

	cfg, err := config.Load(*configPtr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[-] Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}
	cfg.BuildVersion = buildVersion

	// Флаги, заданные явно, перекрывают конфиг
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input":
			cfg.InputPath = *inputPtr
		case "chapter":
			cfg.Chapter = *chapterPtr
		case "output":
			cfg.OutputDir = *outputPtr
		case "fps":
			cfg.Timing.FPS = *fpsPtr
		case "width":
			cfg.Render.Width = *widthPtr
		case "height":
			cfg.Render.Height = *heightPtr
		case "workers":
			cfg.Render.Workers = *workersPtr
		case "gap":
			cfg.Timing.InterSlideGapSeconds = *gapPtr
		case "quality":
			cfg.Render.Quality = *qualityPtr
		case "preview":
			cfg.Render.Preview = *previewPtr
		case "stats":
			cfg.Render.ShowStats = *statsPtr
		case "strict-captions":
			cfg.Timing.StrictCaptions = *strictPtr
		case "addr":
			cfg.Server.Addr = *addrPtr
		case "dsn":
			cfg.Database.DSN = *dsnPtr
		case "course-id":
			cfg.CourseID = *courseIDPtr
		}
	})
	if err := cfg.Timing.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "[-] Ошибка параметров: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[-] Ошибка логгера: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	src, err := openSource(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("source init failed")
	}
	defer src.Close()

	durations := openCache(cfg, logger)
	defer durations.Close()

	switch {
	case *qrPtr:
		err = printQR(ctx, cfg, src)
	case *tracePtr >= 0:
		err = trace(ctx, cfg, src, durations, *tracePtr, logger)
	case *servePtr:
		err = serve(ctx, cfg, src, durations, *watchPtr && cfg.Database.DSN == "", logger)
	default:
		err = export(ctx, cfg, src, durations, logger)
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("coursevideo failed")
	}
}

func openSource(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (source.Source, error) {
	if cfg.Database.DSN != "" {
		if cfg.CourseID == "" {
			return nil, fmt.Errorf("-course-id обязателен вместе с -dsn")
		}
		db, err := store.New(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		fmt.Printf("[*] Курс %s загружается из базы\n", cfg.CourseID)
		return store.NewSource(db, cfg.CourseID, source.AssembleOptions{
			Logger:         logger,
			StrictCaptions: cfg.Timing.StrictCaptions,
		}), nil
	}

	if cfg.InputPath == "" {
		os.MkdirAll("input", 0755)
		latest, err := system.FindLatestCourse("input")
		if err != nil {
			return nil, fmt.Errorf("%w: положите курс в input/", err)
		}
		cfg.InputPath = latest
		fmt.Printf("[*] Выбран файл: %s\n", cfg.InputPath)
	}

	return source.Open(cfg.InputPath, source.Options{
		Logger:         logger,
		StrictCaptions: cfg.Timing.StrictCaptions,
		DPI:            cfg.Render.DPI,
	})
}

func openCache(cfg *config.Config, logger zerolog.Logger) cache.DurationCache {
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedis(cfg.Redis)
		if err == nil {
			return rc
		}
		logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, using in-memory duration cache")
	}
	return cache.NewMemory(cfg.Redis.TTL)
}

func export(ctx context.Context, cfg *config.Config, src source.Source, durations cache.DurationCache, logger zerolog.Logger) error {
	project := engine.NewVideoProject(cfg, src, &video.FFmpegEncoder{}, durations, logger)
	results, err := project.Run(ctx)
	if err != nil {
		return err
	}

	for _, r := range results {
		if r.Preview != "" {
			fmt.Printf("[+++] Превью главы %s: %s\n", r.ChapterID, r.Preview)
		}
	}
	fmt.Printf("[+++] Успех! Результат: %s\n", cfg.OutputDir)
	return nil
}

func serve(ctx context.Context, cfg *config.Config, src source.Source, durations cache.DurationCache, watch bool, logger zerolog.Logger) error {
	srv := server.New(cfg, durations, logger)
	if err := srv.Reload(ctx, src); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx) })

	if watch {
		w, err := watcher.New(watcher.Config{
			Path: cfg.InputPath,
			OnChange: func(ctx context.Context, ev watcher.Event) {
				fmt.Printf("[*] Курс изменен (%s), перезагрузка...\n", ev.Type)
				srv.Reload(ctx, src)
			},
			Logger: logger,
		})
		if err != nil {
			return err
		}
		g.Go(func() error { return w.Run(ctx) })
	}

	fmt.Printf("[*] Превью-сервер: %s\n", strings.TrimRight(cfg.Server.PublicURL, "/"))
	return g.Wait()
}

func trace(ctx context.Context, cfg *config.Config, src source.Source, durations cache.DurationCache, frame int, logger zerolog.Logger) error {
	course, err := src.Course(ctx)
	if err != nil {
		return err
	}
	ch, err := pickChapter(course, cfg.Chapter)
	if err != nil {
		return err
	}

	plan := engine.PlanChapter(ctx, cfg, durations, course.ID, *ch, logger)
	state, messages := engine.TraceFrame(plan, frame)

	out := struct {
		Chapter  string            `json:"chapterId"`
		Frames   int               `json:"durationInFrames"`
		State    player.FrameState `json:"state"`
		Messages []bridge.Message  `json:"messages"`
	}{ch.ID, plan.Composition.DurationInFrames, state, messages}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printQR(ctx context.Context, cfg *config.Config, src source.Source) error {
	course, err := src.Course(ctx)
	if err != nil {
		return err
	}
	ch, err := pickChapter(course, cfg.Chapter)
	if err != nil {
		return err
	}

	url := strings.TrimRight(cfg.Server.PublicURL, "/") + "/player/" + ch.ID
	q, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return err
	}
	fmt.Println(q.ToSmallString(false))
	fmt.Printf("[*] %s\n", url)

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return err
	}
	path := filepath.Join(cfg.OutputDir, ch.ID+"-qr.png")
	if err := q.WriteFile(256, path); err != nil {
		return err
	}
	fmt.Printf("[+++] QR-код: %s\n", path)
	return nil
}

func pickChapter(course *source.Course, id string) (*source.Chapter, error) {
	if id == "" {
		if len(course.Chapters) == 0 {
			return nil, source.ErrNoSlides
		}
		return &course.Chapters[0], nil
	}
	ch, ok := course.Chapter(id)
	if !ok {
		return nil, fmt.Errorf("глава %q не найдена в курсе %s", id, course.ID)
	}
	return ch, nil
}
