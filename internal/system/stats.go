package system

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// HostStats снимок ресурсов хоста и процесса после экспорта.
type HostStats struct {
	CPUs          int
	CPUPercent    float64
	MemTotalMB    uint64
	MemUsedPct    float64
	ProcessRSSMB  uint64
	Goroutines    int
	PoolHits      int64
	PoolMisses    int64
	SampledAt     time.Time
	SampleWarning string
}

// CollectHostStats собирает статистику; недоступные метрики остаются
// нулевыми, а причина пишется в SampleWarning.
func CollectHostStats() HostStats {
	s := HostStats{
		CPUs:       runtime.NumCPU(),
		Goroutines: runtime.NumGoroutine(),
		SampledAt:  time.Now(),
	}
	s.PoolHits, s.PoolMisses = PoolStats()

	if pct, err := cpu.Percent(200*time.Millisecond, false); err == nil && len(pct) > 0 {
		s.CPUPercent = pct[0]
	} else if err != nil {
		s.SampleWarning = err.Error()
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		s.MemTotalMB = vm.Total / 1024 / 1024
		s.MemUsedPct = vm.UsedPercent
	} else {
		s.SampleWarning = err.Error()
	}

	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mi, err := p.MemoryInfo(); err == nil {
			s.ProcessRSSMB = mi.RSS / 1024 / 1024
		}
	}

	return s
}

// ExportReport описывает один экспорт главы для benchmark.log.
type ExportReport struct {
	CourseID  string
	ChapterID string
	Slides    int
	Frames    int
	FPS       int
	Elapsed   time.Duration
	Preview   bool
	Host      HostStats
}

// WriteReport печатает отчёт в формате benchmark.log.
func WriteReport(w io.Writer, r ExportReport) error {
	seconds := 0.0
	if r.FPS > 0 {
		seconds = float64(r.Frames) / float64(r.FPS)
	}
	_, err := fmt.Fprintf(w,
		"[%s] course=%s chapter=%s slides=%d frames=%d video=%.2fs elapsed=%s preview=%t cpus=%d cpu=%.1f%% mem=%.1f%%/%dMB rss=%dMB goroutines=%d pool=%d/%d\n",
		r.Host.SampledAt.Format(time.RFC3339), r.CourseID, r.ChapterID, r.Slides, r.Frames, seconds,
		r.Elapsed.Round(time.Millisecond), r.Preview, r.Host.CPUs, r.Host.CPUPercent,
		r.Host.MemUsedPct, r.Host.MemTotalMB, r.Host.ProcessRSSMB, r.Host.Goroutines,
		r.Host.PoolHits, r.Host.PoolHits+r.Host.PoolMisses,
	)
	return err
}

// AppendReport дописывает отчёт в файл журнала.
func AppendReport(path string, r ExportReport) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteReport(f, r)
}
