package renderer

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-frame/engine/profiler"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newLoop builds resources on a configured surface and returns a frame loop over them.
func newLoop(t *testing.T, events EventSource, options ...FrameLoopOption) (*session, *FrameLoop) {
	t.Helper()
	s := newSession(t, DefaultLimits())
	m := NewSurfaceManager(s.surface, s.negotiated.Adapter, s.negotiated.Device)
	res, err := BuildResources(s.negotiated.Device, s.negotiated.Queue, triangle(), frameShader(t), m.Format())
	require.NoError(t, err)
	t.Cleanup(res.Release)
	require.NoError(t, m.Configure(640, 480))
	s.instance.Recorder.Reset()
	return s, NewFrameLoop(events, m, s.negotiated.Device, res, options...)
}

func TestFrameLoopOrdering(t *testing.T) {
	s, loop := newLoop(t, &fakeEvents{closeAfter: -1}, WithMaxFrames(1))
	assert.Equal(t, FrameStateIdle, loop.State())

	reason, err := loop.Run()
	require.NoError(t, err)
	assert.Equal(t, ShutdownFrameLimit, reason)
	assert.Equal(t, FrameStateShutdown, loop.State())
	assert.Equal(t, uint64(1), loop.Frames())

	assert.Equal(t, []string{
		"surface.acquire",
		"queue.write_buffer:Frame Uniform Buffer@16+4",
		"device.create_command_encoder",
		"encoder.begin_render_pass",
		"pass.set_pipeline",
		"pass.set_vertex_buffer:0:Frame Vertex Buffer",
		"pass.set_index_buffer:Frame Index Buffer",
		"pass.set_bind_group:0",
		"pass.draw_indexed:3:1",
		"pass.end",
		"pass.release",
		"encoder.finish",
		"encoder.release",
		"view.release",
		"queue.submit",
		"command_buffer.release",
		"surface.present",
	}, s.instance.Recorder.Calls())
	assert.Zero(t, s.ctx.Sink().Count())
}

func TestFrameLoopStopsWhenWindowCloses(t *testing.T) {
	s, loop := newLoop(t, &fakeEvents{closeAfter: 2})

	reason, err := loop.Run()
	require.NoError(t, err)
	assert.Equal(t, ShutdownWindowClosed, reason)
	assert.Equal(t, uint64(2), loop.Frames())
	assert.Equal(t, 2, s.surface.Presented())
	assert.Equal(t, 2, s.instance.Recorder.Count("surface.acquire"))
}

func TestFrameLoopSurfaceUnavailable(t *testing.T) {
	s, loop := newLoop(t, &fakeEvents{closeAfter: -1})
	s.surface.Close()

	reason, err := loop.Run()
	require.NoError(t, err)
	assert.Equal(t, ShutdownSurfaceUnavailable, reason)
	assert.Zero(t, loop.Frames())

	rec := s.instance.Recorder
	assert.Equal(t, 1, rec.Count("surface.acquire"))
	assert.Zero(t, rec.Count("queue.submit"))
	assert.Zero(t, rec.Count("surface.present"))
	assert.Zero(t, rec.Count("device.create_command_encoder"))
}

func TestFrameLoopSurfaceLostMidSession(t *testing.T) {
	s, loop := newLoop(t, &fakeEvents{closeAfter: -1})
	s.surface.LimitImages(2)

	reason, err := loop.Run()
	require.NoError(t, err)
	assert.Equal(t, ShutdownSurfaceUnavailable, reason)
	assert.Equal(t, uint64(2), loop.Frames())
	assert.Equal(t, 2, s.surface.Presented())
	assert.Equal(t, 2, s.instance.Recorder.Count("queue.submit"))
	assert.Equal(t, 3, s.instance.Recorder.Count("surface.acquire"))
}

func TestFrameLoopWritesElapsedTime(t *testing.T) {
	start := time.Unix(1000, 0)
	ticks := 0
	clock := func() time.Time {
		now := start.Add(time.Duration(ticks) * 1500 * time.Millisecond)
		ticks++
		return now
	}
	s, loop := newLoop(t, &fakeEvents{closeAfter: -1},
		WithMaxFrames(1),
		WithClock(clock),
		WithClearColor(wgpu.Color{R: 1, A: 1}),
		WithDebugMarkers(true),
		WithProfiler(profiler.NewProfiler()),
	)

	_, err := loop.Run()
	require.NoError(t, err)

	raw, err := loop.res.ReadUniforms()
	require.NoError(t, err)
	assert.Equal(t, float32(1.5), math.Float32frombits(binary.LittleEndian.Uint32(raw[UniformTimeOffset:])))
	assert.Equal(t, DefaultUniforms().Bytes()[:UniformTimeOffset], raw[:UniformTimeOffset])

	rec := s.instance.Recorder
	begin := rec.Index("encoder.debug_marker:frame begin", 0)
	pass := rec.Index("encoder.begin_render_pass", 0)
	end := rec.Index("encoder.debug_marker:frame end", 0)
	finish := rec.Index("encoder.finish", 0)
	assert.True(t, begin >= 0 && begin < pass, rec.Calls())
	assert.True(t, pass < end && end < finish, rec.Calls())
}

func TestFrameLoopFrameFailure(t *testing.T) {
	s, loop := newLoop(t, &fakeEvents{closeAfter: -1})
	loop.res.Release()
	s.instance.Recorder.Reset()

	reason, err := loop.Run()
	require.Error(t, err)
	assert.Equal(t, ShutdownFrameFailure, reason)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, CategoryPresentation, stageErr.Category)
	assert.Equal(t, "write time", stageErr.Stage)

	rec := s.instance.Recorder
	assert.Equal(t, 1, rec.Count("view.release"))
	assert.Zero(t, rec.Count("queue.submit"))
	assert.Zero(t, rec.Count("surface.present"))
}

func TestFrameStateStrings(t *testing.T) {
	assert.Equal(t, "record", FrameStateRecord.String())
	assert.Equal(t, "surface unavailable", ShutdownSurfaceUnavailable.String())
}
