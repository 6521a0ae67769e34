package renderer

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/loader"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/hal"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/shader"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu sync.Mutex

	ctx      *Context
	surface  hal.Surface
	events   EventSource
	geometry *loader.Geometry
	shader   shader.Shader

	// Pre-creation config collected from builder options
	limits            Limits
	negotiatorOptions []NegotiatorOption
	resourceOptions   []ResourceOption
	surfaceOptions    []SurfaceOption
	frameLoopOptions  []FrameLoopOption

	negotiated     *Negotiated
	surfaceManager *SurfaceManager
	resources      *Resources
	loop           *FrameLoop
	released       bool
}

// Renderer runs one frame pipeline session: it negotiates a device for a surface, builds the frame resources,
// configures the surface and drives the frame loop, then tears everything down in reverse order.
//
// Usage pattern:
//  1. Create the Renderer with NewRenderer, passing the session context and the window's surface
//  2. Call Init with the window size
//  3. Call Run, which returns when the window closes or the surface goes away
//  4. Call Release, then release the context
type Renderer interface {
	// Init negotiates the device, builds the resources and configures the surface.
	// On failure everything created by Init is released.
	//
	// Parameters:
	//   - width: the surface width in pixels
	//   - height: the surface height in pixels
	//
	// Returns:
	//   - error: a *StageError naming the failed step
	Init(width, height int) error

	// Run drives the frame loop until shutdown.
	//
	// Returns:
	//   - ShutdownReason: why the loop ended
	//   - error: the frame error when the reason is ShutdownFrameFailure
	Run() (ShutdownReason, error)

	// Negotiated returns the adapter, device and queue, or nil before Init.
	Negotiated() *Negotiated

	// Resources returns the frame resources, or nil before Init.
	Resources() *Resources

	// Surface returns the surface manager, or nil before Init.
	Surface() *SurfaceManager

	// Loop returns the frame loop, or nil before Init.
	Loop() *FrameLoop

	// Release releases the resources, the surface, the device and the adapter in that order.
	// The context is not released. It is safe to call more than once.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a renderer for one surface. The renderer takes ownership of the surface.
//
// Parameters:
//   - ctx: the session context holding the instance and the error sink
//   - surface: the window's presentation surface
//   - events: the window event source polled by the frame loop
//   - geometry: the geometry to draw
//   - sh: the parsed shader
//   - options: a variadic list of RendererBuilderOption functions
//
// Returns:
//   - Renderer: the renderer, not yet initialized
func NewRenderer(ctx *Context, surface hal.Surface, events EventSource, geometry *loader.Geometry, sh shader.Shader, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		ctx:      ctx,
		surface:  surface,
		events:   events,
		geometry: geometry,
		shader:   sh,
		limits:   DefaultLimits(),
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *renderer) Init(width, height int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.released {
		return errors.New("renderer is released")
	}
	if r.negotiated != nil {
		return errors.New("renderer is already initialized")
	}
	if err := r.init(width, height); err != nil {
		r.release()
		return err
	}
	return nil
}

func (r *renderer) init(width, height int) error {
	negotiated, err := NegotiateDevice(r.ctx, r.surface, r.limits, r.negotiatorOptions...)
	if err != nil {
		return err
	}
	r.negotiated = negotiated

	r.surfaceManager = NewSurfaceManager(r.surface, negotiated.Adapter, negotiated.Device, r.surfaceOptions...)

	resources, err := BuildResources(negotiated.Device, negotiated.Queue, r.geometry, r.shader, r.surfaceManager.Format(), r.resourceOptions...)
	if err != nil {
		return err
	}
	r.resources = resources

	if err := r.surfaceManager.Configure(width, height); err != nil {
		return err
	}

	r.loop = NewFrameLoop(r.events, r.surfaceManager, negotiated.Device, resources, r.frameLoopOptions...)
	return nil
}

func (r *renderer) Run() (ShutdownReason, error) {
	r.mu.Lock()
	loop := r.loop
	r.mu.Unlock()
	if loop == nil {
		return ShutdownFrameFailure, stageError(CategoryPresentation, "run frame loop", errors.New("renderer is not initialized"))
	}
	return loop.Run()
}

func (r *renderer) Negotiated() *Negotiated {
	return r.negotiated
}

func (r *renderer) Resources() *Resources {
	return r.resources
}

func (r *renderer) Surface() *SurfaceManager {
	return r.surfaceManager
}

func (r *renderer) Loop() *FrameLoop {
	return r.loop
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.release()
}

func (r *renderer) release() {
	if r.released {
		return
	}
	r.released = true

	if r.resources != nil {
		r.resources.Release()
	}
	if r.surfaceManager != nil {
		r.surfaceManager.Release()
	} else if r.surface != nil {
		r.surface.Release()
	}
	r.surface = nil
	if r.negotiated != nil {
		r.negotiated.Release()
	}
	common.Logger().Debug("renderer released", slog.Int("uncaptured_errors", r.sinkCount()))
}

func (r *renderer) sinkCount() int {
	if r.ctx == nil || r.ctx.Sink() == nil {
		return 0
	}
	return r.ctx.Sink().Count()
}
