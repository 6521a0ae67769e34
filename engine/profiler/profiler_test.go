package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestTickReportsAfterInterval(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := NewProfiler(WithClock(clock.now), WithInterval(100*time.Millisecond))

	for range 4 {
		clock.advance(20 * time.Millisecond)
		assert.False(t, p.Tick())
	}
	clock.advance(20 * time.Millisecond)
	assert.True(t, p.Tick())

	stats := p.Last()
	assert.Equal(t, 5, stats.Frames)
	assert.InDelta(t, 50.0, stats.FPS, 0.001)
	assert.Equal(t, 20*time.Millisecond, stats.AvgFrameTime)
	assert.Equal(t, 20*time.Millisecond, stats.MaxFrameTime)
}

func TestTickTracksWorstFrame(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := NewProfiler(WithClock(clock.now), WithInterval(time.Second))

	clock.advance(10 * time.Millisecond)
	p.Tick()
	clock.advance(700 * time.Millisecond)
	p.Tick()
	clock.advance(300 * time.Millisecond)
	assert.True(t, p.Tick())
	assert.Equal(t, 700*time.Millisecond, p.Last().MaxFrameTime)

	clock.advance(10 * time.Millisecond)
	assert.False(t, p.Tick(), "a new window starts after reporting")
}

func TestInvalidOptionsKeepDefaults(t *testing.T) {
	p := NewProfiler(WithInterval(0), WithClock(nil))
	assert.Equal(t, time.Second, p.updateInterval)
	assert.NotNil(t, p.now)
}
