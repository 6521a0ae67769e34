package renderer

import "time"

// ErrorSinkOption configures an ErrorSink during construction.
type ErrorSinkOption func(*ErrorSink)

// WithQueueSize sets how many reports can wait for the drain goroutine before they are only recorded.
//
// Parameters:
//   - n: the queue capacity, at least 1
//
// Returns:
//   - ErrorSinkOption: the option
func WithQueueSize(n int) ErrorSinkOption {
	return func(s *ErrorSink) {
		if n > 0 {
			s.pending = make(chan UncapturedError, n)
		}
	}
}

// WithSinkClock replaces time.Now as the source of report timestamps.
func WithSinkClock(now func() time.Time) ErrorSinkOption {
	return func(s *ErrorSink) {
		if now != nil {
			s.now = now
		}
	}
}
