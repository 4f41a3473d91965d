package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, path string, calls *atomic.Int32, last *atomic.Value) {
	t.Helper()
	w, err := New(Config{
		Path:     path,
		Debounce: 50 * time.Millisecond,
		OnChange: func(_ context.Context, ev Event) {
			last.Store(ev)
			calls.Add(1)
		},
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestWatchFileDebounces(t *testing.T) {
	dir := t.TempDir()
	course := filepath.Join(dir, "course.json")
	require.NoError(t, os.WriteFile(course, []byte("{}"), 0644))

	var calls atomic.Int32
	var last atomic.Value
	startWatcher(t, course, &calls, &last)

	for i := range 5 {
		require.NoError(t, os.WriteFile(course, []byte{'{', byte('0' + i), '}'}, 0644))
		time.Sleep(5 * time.Millisecond)
	}

	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	ev := last.Load().(Event)
	assert.Equal(t, course, ev.Path)
}

func TestWatchFileIgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	course := filepath.Join(dir, "course.json")
	require.NoError(t, os.WriteFile(course, []byte("{}"), 0644))

	var calls atomic.Int32
	var last atomic.Value
	startWatcher(t, course, &calls, &last)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestWatchDirectory(t *testing.T) {
	dir := t.TempDir()

	var calls atomic.Int32
	var last atomic.Value
	startWatcher(t, dir, &calls, &last)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "slide-01.png"), []byte("x"), 0644))
	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestNewMissingPath(t *testing.T) {
	_, err := New(Config{Path: filepath.Join(t.TempDir(), "missing.json"), Logger: zerolog.Nop()})
	require.Error(t, err)
}
