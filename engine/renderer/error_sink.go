package renderer

import (
	"log/slog"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/hal"
)

// UncapturedError is one error reported out of band by the device.
type UncapturedError struct {
	Kind    hal.ErrorKind
	Message string
	Time    time.Time
}

// ErrorSink records errors the device reports without a local error channel. Reports are kept in order and
// logged by a drain goroutine. Report never blocks on logging and never drops a record.
type ErrorSink struct {
	mu       sync.Mutex
	errors   []UncapturedError
	overflow int
	now      func() time.Time

	pending chan UncapturedError
	done    chan struct{}
	close   sync.Once
	closed  bool
}

// NewErrorSink creates a sink and starts its drain goroutine. Close must be called to stop it.
//
// Parameters:
//   - options: optional configuration such as the drain queue size
//
// Returns:
//   - *ErrorSink: the running sink
func NewErrorSink(options ...ErrorSinkOption) *ErrorSink {
	s := &ErrorSink{
		now:     time.Now,
		pending: make(chan UncapturedError, 64),
		done:    make(chan struct{}),
	}
	for _, opt := range options {
		opt(s)
	}
	go s.drain()
	return s
}

// Handler returns the callback to register on the device descriptor.
func (s *ErrorSink) Handler() hal.ErrorHandler {
	return s.Report
}

// Report records an error. It is safe to call from any goroutine, including after Close.
//
// Parameters:
//   - kind: the error kind reported by the device
//   - message: the device's message
func (s *ErrorSink) Report(kind hal.ErrorKind, message string) {
	e := UncapturedError{Kind: kind, Message: message, Time: s.now()}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, e)
	if s.closed {
		return
	}
	select {
	case s.pending <- e:
	default:
		s.overflow++
	}
}

// Errors returns a copy of every recorded error in report order.
func (s *ErrorSink) Errors() []UncapturedError {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]UncapturedError, len(s.errors))
	copy(out, s.errors)
	return out
}

// Count returns the number of recorded errors.
func (s *ErrorSink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.errors)
}

// Close stops the drain goroutine after it has logged every queued report. Records stay available through Errors.
func (s *ErrorSink) Close() {
	s.close.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.pending)
		s.mu.Unlock()
		<-s.done
	})
}

func (s *ErrorSink) drain() {
	defer close(s.done)
	for e := range s.pending {
		s.mu.Lock()
		skipped := s.overflow
		s.overflow = 0
		s.mu.Unlock()
		if skipped > 0 {
			common.Logger().Warn("uncaptured device errors recorded but not logged", slog.Int("count", skipped))
		}
		common.Logger().Error("uncaptured device error",
			slog.String("category", CategoryAsync.String()),
			slog.String("kind", e.Kind.String()),
			slog.String("message", e.Message),
		)
	}
	if s.overflow > 0 {
		common.Logger().Warn("uncaptured device errors recorded but not logged", slog.Int("count", s.overflow))
	}
}
