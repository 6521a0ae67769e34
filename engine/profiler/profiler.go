package profiler

import (
	"log/slog"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-frame/common"
)

// Stats is one reporting window of frame statistics.
type Stats struct {
	Frames       int
	FPS          float64
	AvgFrameTime time.Duration
	MaxFrameTime time.Duration
	HeapMB       float64
	AllocRateMB  float64
	NumGC        uint32
}

// Profiler tracks frame rate, frame times and memory statistics.
// Outputs stats to the process logger at a configurable interval.
type Profiler struct {
	now            func() time.Time
	frameCount     int
	windowStart    time.Time
	lastFrame      time.Time
	maxFrameTime   time.Duration
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastTotalAlloc uint64
	last           Stats
}

// NewProfiler creates a new Profiler. The update interval defaults to 1 second.
//
// Parameters:
//   - options: optional configuration such as the interval or the clock
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerOption) *Profiler {
	p := &Profiler{
		now:            time.Now,
		updateInterval: time.Second,
	}
	for _, opt := range options {
		opt(p)
	}
	p.windowStart = p.now()
	p.lastFrame = p.windowStart
	return p
}

// Tick should be called once per frame after the frame was presented.
// When the update interval has elapsed it logs FPS, average and worst frame time, heap usage, allocation rate and GC count.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	now := p.now()
	p.frameCount++
	p.maxFrameTime = max(p.maxFrameTime, now.Sub(p.lastFrame))
	p.lastFrame = now

	elapsed := now.Sub(p.windowStart)
	if elapsed < p.updateInterval || elapsed <= 0 {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	p.last = Stats{
		Frames:       p.frameCount,
		FPS:          float64(p.frameCount) / elapsed.Seconds(),
		AvgFrameTime: elapsed / time.Duration(p.frameCount),
		MaxFrameTime: p.maxFrameTime,
		HeapMB:       float64(p.memStats.Alloc) / 1024 / 1024,
		AllocRateMB:  float64(allocDelta) / 1024 / 1024 / elapsed.Seconds(),
		NumGC:        p.memStats.NumGC,
	}
	common.Logger().Info("frame stats",
		slog.Float64("fps", p.last.FPS),
		slog.Duration("avg_frame", p.last.AvgFrameTime),
		slog.Duration("max_frame", p.last.MaxFrameTime),
		slog.Float64("heap_mb", p.last.HeapMB),
		slog.Float64("alloc_rate_mb_s", p.last.AllocRateMB),
		slog.Uint64("gc", uint64(p.last.NumGC)),
	)

	p.frameCount = 0
	p.maxFrameTime = 0
	p.windowStart = now
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// Last returns the statistics of the most recently completed window.
func (p *Profiler) Last() Stats {
	return p.last
}
