package system

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

// InitResourceLimits поднимает лимит открытых файлов: каждый websocket
// сеанс превью держит свой сокет.
func InitResourceLimits() {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Warn().Err(err).Msg("[!] Не удалось получить лимит файлов")
		return
	}

	rLimit.Cur = 4096
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	err = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Warn().Err(err).Msg("[!] Не удалось установить лимит файлов")
	} else {
		fmt.Printf("[*] Системный лимит открытых файлов увеличен до %d\n", rLimit.Cur)
	}
}

// CourseExtensions перечисляет входы, которые понимает source.Open.
var CourseExtensions = []string{".json", ".pdf"}

// FindLatest возвращает самый свежий файл в dir с одним из расширений.
func FindLatest(dir string, extensions ...string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() || !hasExt(f.Name(), extensions) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("в папке %s не найдено файлов %s", dir, strings.Join(extensions, ", "))
	}

	return latestFile, nil
}

// FindLatestCourse ищет самый свежий экспорт курса или PDF-деку.
func FindLatestCourse(dir string) (string, error) {
	return FindLatest(dir, CourseExtensions...)
}

func hasExt(name string, extensions []string) bool {
	name = strings.ToLower(name)
	for _, ext := range extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// GetAudioDuration спрашивает у ffprobe длительность аудио (файл или URL).
func GetAudioDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe", "-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", path)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w: %s", path, err, strings.TrimSpace(string(out)))
	}
	return ParseDuration(string(out))
}

// ParseDuration разбирает вывод ffprobe format=duration.
func ParseDuration(out string) (float64, error) {
	d, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration %q: %w", strings.TrimSpace(out), err)
	}
	return d, nil
}

var (
	encoderOnce sync.Once
	encoderName string
)

// GetBestH264Encoder выбирает аппаратный H.264 энкодер, если он есть.
// Приоритеты: VideoToolbox (macOS), NVENC (NVIDIA), libx264.
func GetBestH264Encoder() string {
	encoderOnce.Do(func() {
		encoderName = "libx264"
		out, err := exec.Command("ffmpeg", "-hide_banner", "-encoders").CombinedOutput()
		if err != nil {
			return
		}
		encoderName = pickEncoder(string(out))
	})
	return encoderName
}

func pickEncoder(list string) string {
	for _, name := range []string{"h264_videotoolbox", "h264_nvenc"} {
		if strings.Contains(list, name) {
			return name
		}
	}
	return "libx264"
}

// DefaultQuality подбирает качество под энкодер, как его понимает
// video.QualityArgs.
func DefaultQuality(encoder string) int {
	switch encoder {
	case "h264_videotoolbox":
		return 75 // 7.5 Мбит/с
	case "h264_nvenc":
		return 28 // эквивалент CRF
	default:
		return 23 // стандартный CRF для x264
	}
}
