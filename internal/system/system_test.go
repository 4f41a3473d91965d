package system

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindLatestCourse(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.json")
	fresh := filepath.Join(dir, "fresh.PDF")
	ignored := filepath.Join(dir, "notes.txt")
	for _, p := range []string{old, fresh, ignored} {
		require.NoError(t, os.WriteFile(p, []byte("{}"), 0644))
	}
	base := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(old, base, base))
	require.NoError(t, os.Chtimes(fresh, base.Add(time.Minute), base.Add(time.Minute)))
	require.NoError(t, os.Chtimes(ignored, base.Add(time.Hour), base.Add(time.Hour)))

	got, err := FindLatestCourse(dir)
	require.NoError(t, err)
	assert.Equal(t, fresh, got)

	_, err = FindLatest(dir, ".mp3")
	assert.Error(t, err)
}

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("12.480000\n")
	require.NoError(t, err)
	assert.InDelta(t, 12.48, d, 1e-9)

	_, err = ParseDuration("N/A")
	assert.Error(t, err)
}

func TestPickEncoder(t *testing.T) {
	assert.Equal(t, "h264_nvenc", pickEncoder(" V....D h264_nvenc  NVIDIA NVENC H.264 encoder"))
	assert.Equal(t, "libx264", pickEncoder(" V....D libx264 libx264 H.264"))
}

func TestDefaultQuality(t *testing.T) {
	assert.Equal(t, 75, DefaultQuality("h264_videotoolbox"))
	assert.Equal(t, 28, DefaultQuality("h264_nvenc"))
	assert.Equal(t, 23, DefaultQuality("libx264"))
}

func TestImagePool(t *testing.T) {
	p := NewImagePool()

	img := p.Get(4, 2)
	assert.Equal(t, 4, img.Rect.Dx())
	assert.Equal(t, 2, img.Rect.Dy())
	img.Pix[0] = 255
	p.Put(img)

	again := p.Get(4, 2)
	assert.Equal(t, uint8(0), again.Pix[0], "pooled frames come back cleared")

	hits, misses := p.Stats()
	assert.Equal(t, hits+misses, int64(2))
	assert.GreaterOrEqual(t, misses, int64(1))

	other := p.Get(8, 8)
	assert.Equal(t, 8, other.Rect.Dx())
	p.Put(nil)
}

func TestWriteReport(t *testing.T) {
	var sb strings.Builder
	err := WriteReport(&sb, ExportReport{
		CourseID: "c", ChapterID: "ch1", Slides: 3, Frames: 450, FPS: 30,
		Elapsed: 1500 * time.Millisecond,
		Host:    HostStats{CPUs: 8, SampledAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
	})
	require.NoError(t, err)
	line := sb.String()
	assert.True(t, strings.HasPrefix(line, "[2024-05-01T10:00:00Z] course=c chapter=ch1 slides=3 frames=450 video=15.00s elapsed=1.5s"))
	assert.True(t, strings.HasSuffix(line, "\n"))
}

func TestAppendReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "benchmark.log")
	r := ExportReport{CourseID: "c", ChapterID: "a", FPS: 30, Host: CollectHostStats()}
	require.NoError(t, AppendReport(path, r))
	require.NoError(t, AppendReport(path, r))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))
}
