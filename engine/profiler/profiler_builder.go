package profiler

import "time"

// ProfilerOption configures a Profiler during construction.
type ProfilerOption func(*Profiler)

// WithInterval sets how often statistics are logged.
//
// Parameters:
//   - interval: the reporting interval, must be positive
//
// Returns:
//   - ProfilerOption: the option
func WithInterval(interval time.Duration) ProfilerOption {
	return func(p *Profiler) {
		if interval > 0 {
			p.updateInterval = interval
		}
	}
}

// WithClock replaces time.Now as the profiler's time source.
func WithClock(now func() time.Time) ProfilerOption {
	return func(p *Profiler) {
		if now != nil {
			p.now = now
		}
	}
}
