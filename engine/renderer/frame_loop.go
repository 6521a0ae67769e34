package renderer

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/profiler"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/hal"

	"github.com/cogentcore/webgpu/wgpu"
)

// EventSource is the window side of the frame loop.
type EventSource interface {
	// PollEvents processes pending window events without blocking.
	PollEvents()

	// ShouldClose reports whether the window asked to close.
	ShouldClose() bool
}

// FrameState is the step the frame loop is executing.
type FrameState int

const (
	FrameStateIdle FrameState = iota
	FrameStateAcquire
	FrameStateRecord
	FrameStateSubmit
	FrameStatePresent
	FrameStateShutdown
)

func (s FrameState) String() string {
	switch s {
	case FrameStateIdle:
		return "idle"
	case FrameStateAcquire:
		return "acquire"
	case FrameStateRecord:
		return "record"
	case FrameStateSubmit:
		return "submit"
	case FrameStatePresent:
		return "present"
	case FrameStateShutdown:
		return "shutdown"
	default:
		return fmt.Sprintf("FrameState(%d)", int(s))
	}
}

// ShutdownReason tells why Run returned.
type ShutdownReason int

const (
	// ShutdownWindowClosed means the event source asked to close.
	ShutdownWindowClosed ShutdownReason = iota
	// ShutdownSurfaceUnavailable means the surface could not supply an image.
	ShutdownSurfaceUnavailable
	// ShutdownFrameFailure means recording or submitting a frame failed. Run returns the error.
	ShutdownFrameFailure
	// ShutdownFrameLimit means the configured number of frames was presented.
	ShutdownFrameLimit
)

func (r ShutdownReason) String() string {
	switch r {
	case ShutdownWindowClosed:
		return "window closed"
	case ShutdownSurfaceUnavailable:
		return "surface unavailable"
	case ShutdownFrameFailure:
		return "frame failure"
	case ShutdownFrameLimit:
		return "frame limit"
	default:
		return fmt.Sprintf("ShutdownReason(%d)", int(r))
	}
}

// FrameLoop records, submits and presents one frame per iteration until the window closes or the surface goes away.
// Exactly one frame is in flight: the loop does not start the next frame before the previous one was presented.
type FrameLoop struct {
	events  EventSource
	surface *SurfaceManager
	device  hal.Device
	queue   hal.Queue
	res     *Resources

	clearColor   wgpu.Color
	maxFrames    uint64
	now          func() time.Time
	profiler     *profiler.Profiler
	debugMarkers bool

	state  FrameState
	frames uint64
	start  time.Time
}

// NewFrameLoop creates a frame loop over built resources and a configured surface.
//
// Parameters:
//   - events: the window events source
//   - surface: the configured surface manager
//   - device: the device that owns the resources
//   - res: the frame resources
//   - options: optional configuration such as the clear color or a frame limit
//
// Returns:
//   - *FrameLoop: the loop, in FrameStateIdle
func NewFrameLoop(events EventSource, surface *SurfaceManager, device hal.Device, res *Resources, options ...FrameLoopOption) *FrameLoop {
	l := &FrameLoop{
		events:     events,
		surface:    surface,
		device:     device,
		queue:      device.Queue(),
		res:        res,
		clearColor: wgpu.Color{R: 0.05, G: 0.05, B: 0.05, A: 1.0},
		now:        time.Now,
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

// Run drives frames until shutdown. Window close, surface loss and the frame limit are orderly shutdowns and
// return a nil error.
//
// Returns:
//   - ShutdownReason: why the loop ended
//   - error: a *StageError of CategoryPresentation when the reason is ShutdownFrameFailure
func (l *FrameLoop) Run() (ShutdownReason, error) {
	l.start = l.now()
	for {
		l.state = FrameStateIdle
		l.events.PollEvents()
		if l.events.ShouldClose() {
			return l.shutdown(ShutdownWindowClosed, nil)
		}
		if l.maxFrames > 0 && l.frames >= l.maxFrames {
			return l.shutdown(ShutdownFrameLimit, nil)
		}

		if err := l.frame(); err != nil {
			if errors.Is(err, ErrSurfaceUnavailable) {
				common.Logger().Info("surface unavailable, stopping", slog.String("error", err.Error()))
				return l.shutdown(ShutdownSurfaceUnavailable, nil)
			}
			return l.shutdown(ShutdownFrameFailure, err)
		}
		l.frames++
		if l.profiler != nil {
			l.profiler.Tick()
		}
	}
}

func (l *FrameLoop) shutdown(reason ShutdownReason, err error) (ShutdownReason, error) {
	l.state = FrameStateShutdown
	common.Logger().Info("frame loop stopped",
		slog.String("reason", reason.String()),
		slog.Uint64("frames", l.frames),
	)
	return reason, err
}

// frame runs one Acquire, Record, Submit, Present cycle.
func (l *FrameLoop) frame() error {
	l.state = FrameStateAcquire
	view, err := l.surface.AcquireImage()
	if err != nil {
		return err
	}

	l.state = FrameStateRecord
	commands, err := l.record(view)
	view.Release()
	if err != nil {
		return err
	}

	l.state = FrameStateSubmit
	l.queue.Submit(commands)
	commands.Release()

	l.state = FrameStatePresent
	l.surface.Present()
	return nil
}

// record writes the frame time and encodes the draw into a finished command buffer.
func (l *FrameLoop) record(view hal.TextureView) (hal.CommandBuffer, error) {
	elapsed := float32(l.now().Sub(l.start).Seconds())
	if err := l.res.WriteTime(elapsed); err != nil {
		return nil, stageError(CategoryPresentation, "write time", err)
	}

	encoder, err := l.device.CreateCommandEncoder("Frame Encoder")
	if err != nil {
		return nil, stageError(CategoryPresentation, "create command encoder", err)
	}
	defer encoder.Release()

	if l.debugMarkers {
		encoder.InsertDebugMarker("frame begin")
	}
	pass, err := encoder.BeginRenderPass(hal.RenderPassDescriptor{
		ColorAttachments: []hal.ColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: l.clearColor,
		}},
	})
	if err != nil {
		return nil, stageError(CategoryPresentation, "begin render pass", err)
	}

	provider := l.res.Provider()
	vertexBuffer := provider.VertexBuffer()
	indexBuffer := provider.IndexBuffer()
	pass.SetPipeline(l.res.Pipeline().RenderPipeline())
	pass.SetVertexBuffer(0, vertexBuffer, 0, vertexBuffer.Size())
	pass.SetIndexBuffer(indexBuffer, provider.IndexFormat(), 0, indexBuffer.Size())
	pass.SetBindGroup(uniformGroup, provider.BindGroup())
	pass.DrawIndexed(uint32(provider.IndexCount()), 1, 0, 0, 0)
	pass.End()
	pass.Release()

	if l.debugMarkers {
		encoder.InsertDebugMarker("frame end")
	}
	commands, err := encoder.Finish("Frame Commands")
	if err != nil {
		return nil, stageError(CategoryPresentation, "finish command encoder", err)
	}
	return commands, nil
}

// State returns the step the loop is in.
func (l *FrameLoop) State() FrameState {
	return l.state
}

// Frames returns the number of presented frames.
func (l *FrameLoop) Frames() uint64 {
	return l.frames
}
