package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every setting of the application.
type Config struct {
	Timing   Timing   `mapstructure:"timing"`
	Render   Render   `mapstructure:"render"`
	Server   Server   `mapstructure:"server"`
	Logging  Logging  `mapstructure:"logging"`
	Redis    Redis    `mapstructure:"redis"`
	Database Database `mapstructure:"database"`

	InputPath    string `mapstructure:"input"`
	OutputDir    string `mapstructure:"output"`
	Chapter      string `mapstructure:"chapter"`
	CourseID     string `mapstructure:"courseId"`
	BuildVersion string `mapstructure:"-"`
}

// Timing is the single set of playback constants shared by the estimator,
// the timeline builder and the player.
type Timing struct {
	FPS                  int     `mapstructure:"fps"`
	DefaultSlideSeconds  float64 `mapstructure:"defaultSlideSeconds"`
	MinNarrationSeconds  float64 `mapstructure:"minNarrationSeconds"`
	WordsPerSecond       float64 `mapstructure:"wordsPerSecond"`
	InterSlideGapSeconds float64 `mapstructure:"interSlideGapSeconds"`
	StrictCaptions       bool    `mapstructure:"strictCaptions"`
}

// Render holds composition size and export options.
type Render struct {
	Width        int    `mapstructure:"width"`
	Height       int    `mapstructure:"height"`
	Workers      int    `mapstructure:"workers"`
	VideoEncoder string `mapstructure:"videoEncoder"` // auto picks the best available h264 encoder
	Quality      int    `mapstructure:"quality"`      // 0 picks the encoder default
	Preview      bool   `mapstructure:"preview"`
	ShowStats    bool   `mapstructure:"showStats"`
	DPI          int    `mapstructure:"dpi"`
}

// Server holds preview server settings.
type Server struct {
	Addr       string `mapstructure:"addr"`
	PublicURL  string `mapstructure:"publicUrl"`
	Debug      bool   `mapstructure:"debug"`
	EnableCORS bool   `mapstructure:"enableCors"`
}

// Logging holds logger settings.
type Logging struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout, stderr, file path
}

// Redis holds the duration cache settings. Empty Addr disables redis.
type Redis struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// Database holds the slide store settings. Empty DSN disables postgres.
type Database struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int    `mapstructure:"maxConns"`
}

// DefaultTiming returns the stock playback constants:
// 30 fps, 6s default slide, 3s narration floor, 2.5 words/s, 1s gap.
func DefaultTiming() Timing {
	return Timing{
		FPS:                  30,
		DefaultSlideSeconds:  6,
		MinNarrationSeconds:  3,
		WordsPerSecond:       2.5,
		InterSlideGapSeconds: 1,
	}
}

// GapFrames is the inter-slide gap expressed in frames.
func (t Timing) GapFrames() int {
	return int(math.Round(t.InterSlideGapSeconds * float64(t.FPS)))
}

// DefaultFrames is the duration used for slides without any timing source.
func (t Timing) DefaultFrames() int {
	return int(math.Ceil(t.DefaultSlideSeconds * float64(t.FPS)))
}

// MinNarrationFrames is the floor applied to narration-based estimates.
func (t Timing) MinNarrationFrames() int {
	return int(math.Ceil(t.MinNarrationSeconds * float64(t.FPS)))
}

// Validate rejects constant sets that would produce non-positive durations.
func (t Timing) Validate() error {
	var errs []error
	if t.FPS <= 0 {
		errs = append(errs, fmt.Errorf("fps must be positive, got %d", t.FPS))
	}
	if t.WordsPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("wordsPerSecond must be positive, got %v", t.WordsPerSecond))
	}
	if t.DefaultSlideSeconds <= 0 {
		errs = append(errs, fmt.Errorf("defaultSlideSeconds must be positive, got %v", t.DefaultSlideSeconds))
	}
	if t.MinNarrationSeconds < 0 || t.InterSlideGapSeconds < 0 {
		errs = append(errs, errors.New("minNarrationSeconds and interSlideGapSeconds must not be negative"))
	}
	return errors.Join(errs...)
}

// Load reads configuration from an optional YAML file and from environment
// variables prefixed with COURSEVIDEO_ (e.g. COURSEVIDEO_TIMING_FPS).
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("coursevideo")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Timing.Validate(); err != nil {
		return nil, fmt.Errorf("invalid timing: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	t := DefaultTiming()
	v.SetDefault("timing.fps", t.FPS)
	v.SetDefault("timing.defaultSlideSeconds", t.DefaultSlideSeconds)
	v.SetDefault("timing.minNarrationSeconds", t.MinNarrationSeconds)
	v.SetDefault("timing.wordsPerSecond", t.WordsPerSecond)
	v.SetDefault("timing.interSlideGapSeconds", t.InterSlideGapSeconds)
	v.SetDefault("timing.strictCaptions", false)

	v.SetDefault("render.width", 1280)
	v.SetDefault("render.height", 720)
	v.SetDefault("render.workers", 4)
	v.SetDefault("render.videoEncoder", "auto")
	v.SetDefault("render.quality", 0)
	v.SetDefault("render.preview", false)
	v.SetDefault("render.showStats", false)
	v.SetDefault("render.dpi", 150)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.publicUrl", "http://localhost:8080")
	v.SetDefault("server.debug", false)
	v.SetDefault("server.enableCors", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "24h")

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.maxConns", 10)

	v.SetDefault("input", "")
	v.SetDefault("output", "output")
	v.SetDefault("chapter", "")
	v.SetDefault("courseId", "")
}
