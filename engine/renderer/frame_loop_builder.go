package renderer

import (
	"time"

	"github.com/Carmen-Shannon/oxy-frame/engine/profiler"

	"github.com/cogentcore/webgpu/wgpu"
)

// FrameLoopOption configures a FrameLoop.
type FrameLoopOption func(*FrameLoop)

// WithClearColor sets the color the surface image is cleared to at the start of every frame.
//
// Parameters:
//   - color: the clear color
//
// Returns:
//   - FrameLoopOption: the option
func WithClearColor(color wgpu.Color) FrameLoopOption {
	return func(l *FrameLoop) {
		l.clearColor = color
	}
}

// WithMaxFrames stops the loop after n presented frames. Zero runs until the window closes.
func WithMaxFrames(n uint64) FrameLoopOption {
	return func(l *FrameLoop) {
		l.maxFrames = n
	}
}

// WithClock replaces time.Now as the source of the elapsed time written to the uniforms.
func WithClock(now func() time.Time) FrameLoopOption {
	return func(l *FrameLoop) {
		if now != nil {
			l.now = now
		}
	}
}

// WithProfiler ticks p after every presented frame.
func WithProfiler(p *profiler.Profiler) FrameLoopOption {
	return func(l *FrameLoop) {
		l.profiler = p
	}
}

// WithDebugMarkers inserts debug markers around the frame's commands.
func WithDebugMarkers(enabled bool) FrameLoopOption {
	return func(l *FrameLoop) {
		l.debugMarkers = enabled
	}
}
