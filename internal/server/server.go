// Package server is the preview server: it publishes chapter timelines and
// prepared slide documents, and runs one composition player per websocket
// session so a browser can scrub through a chapter.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ivlev/coursevideo/internal/cache"
	"github.com/ivlev/coursevideo/internal/config"
	"github.com/ivlev/coursevideo/internal/engine"
	"github.com/ivlev/coursevideo/internal/source"
)

var ErrNoCourse = errors.New("server: no course loaded")

// Server serves one course at a time. SetCourse swaps it atomically;
// sessions opened before a swap keep playing the timeline they started
// with.
type Server struct {
	router   *gin.Engine
	cfg      *config.Config
	cache    cache.DurationCache
	logger   zerolog.Logger
	metrics  *Metrics
	upgrader websocket.Upgrader

	mu     sync.RWMutex
	course *source.Course
	plans  map[string]engine.ChapterPlan
	loaded time.Time

	sessionsMu sync.Mutex
	sessions   map[string]*session
}

func New(cfg *config.Config, c cache.DurationCache, logger zerolog.Logger) *Server {
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	if cfg.Server.EnableCORS {
		router.Use(cors.New(cors.Config{
			AllowOrigins:  []string{"*"},
			AllowMethods:  []string{"GET", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders: []string{"Content-Length"},
		}))
	}

	s := &Server{
		router:  router,
		cfg:     cfg,
		cache:   c,
		logger:  logger.With().Str("component", "server").Logger(),
		metrics: NewMetrics(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return cfg.Server.EnableCORS || r.Header.Get("Origin") == ""
			},
		},
		plans:    make(map[string]engine.ChapterPlan),
		sessions: make(map[string]*session),
	}

	router.Use(s.metrics.Middleware())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/health", s.healthCheck)
		api.GET("/course", s.getCourse)

		api.GET("/chapters/:chapter/timeline", s.getTimeline)
		api.GET("/chapters/:chapter/captions.vtt", s.getCaptions)
		api.GET("/chapters/:chapter/qr.png", s.getQRCode)

		api.GET("/slides/:slide/document", s.getDocument)
		api.GET("/slides/:slide/plan", s.getPlan)
	}

	s.router.GET("/player/:chapter", s.playerPage)
	s.router.GET("/ws/:chapter", s.handleWebSocket)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})))
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// SetCourse plans every chapter of course and makes it the served course.
func (s *Server) SetCourse(ctx context.Context, course *source.Course) {
	plans := make(map[string]engine.ChapterPlan, len(course.Chapters))
	for _, ch := range course.Chapters {
		plans[ch.ID] = engine.PlanChapter(ctx, s.cfg, s.cache, course.ID, ch, s.logger)
	}

	s.mu.Lock()
	s.course = course
	s.plans = plans
	s.loaded = time.Now()
	s.mu.Unlock()

	s.metrics.CourseReloads.WithLabelValues("ok").Inc()
	s.logger.Info().Str("course", course.ID).Int("chapters", len(plans)).Msg("course loaded")
}

// Reload reads the course from src and swaps it in. On error the current
// course keeps being served.
func (s *Server) Reload(ctx context.Context, src source.Source) error {
	course, err := src.Course(ctx)
	if err != nil {
		s.metrics.CourseReloads.WithLabelValues("error").Inc()
		s.logger.Error().Err(err).Msg("course reload failed")
		return err
	}
	s.SetCourse(ctx, course)
	return nil
}

func (s *Server) current() (*source.Course, map[string]engine.ChapterPlan) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.course, s.plans
}

func (s *Server) plan(chapterID string) (engine.ChapterPlan, bool) {
	_, plans := s.current()
	p, ok := plans[chapterID]
	return p, ok
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.Server.Addr).Msg("preview server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.closeSessions()
	return srv.Shutdown(shutdownCtx)
}
