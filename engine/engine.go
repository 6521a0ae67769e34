package engine

import (
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/config"
	"github.com/Carmen-Shannon/oxy-frame/engine/loader"
	"github.com/Carmen-Shannon/oxy-frame/engine/profiler"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/hal"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/hal/webgpu"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-frame/engine/window"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/cogentcore/webgpu/wgpu"
)

// engine implements the Engine interface.
// Prepares assets, then owns the window and the renderer session for the duration of Run.
type engine struct {
	cfg *config.Config

	newWindow   func(options ...window.WindowBuilderOption) (window.Window, error)
	newInstance func() (hal.Instance, error)

	assetWorkers     int
	assetPool        worker.DynamicWorkerPool
	validateShader   bool
	rendererOptions  []renderer.RendererBuilderOption
	profilingEnabled bool

	quit atomic.Bool

	mu       sync.Mutex
	window   window.Window
	renderer renderer.Renderer
	running  bool
}

// Engine is the main entry point for a frame pipeline session.
// It loads the assets, creates the window and the GPU session, runs the frame loop and tears everything down.
type Engine interface {
	// Run executes one session and blocks until the frame loop stops.
	// Must be called from the thread locked at startup.
	//
	// Returns:
	//   - renderer.ShutdownReason: why the frame loop ended
	//   - error: a *renderer.StageError when setup or a frame failed, nil on an orderly shutdown
	Run() (renderer.ShutdownReason, error)

	// Quit asks a running session to stop at the next frame boundary. Safe to call from any goroutine.
	Quit()

	// Window returns the window of the running session, or nil outside Run.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Renderer returns the renderer of the running session, or nil outside Run.
	Renderer() renderer.Renderer
}

var _ Engine = &engine{}

// NewEngine creates an Engine for the given configuration.
// Applies default values first, then each option in order.
//
// Parameters:
//   - cfg: the session configuration, Default when nil
//   - options: variadic list of EngineBuilderOption functions
//
// Returns:
//   - Engine: the configured engine
func NewEngine(cfg *config.Config, options ...EngineBuilderOption) Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	e := &engine{
		cfg:              cfg,
		newWindow:        window.NewWindow,
		newInstance:      webgpu.NewInstance,
		assetWorkers:     max(runtime.NumCPU()-1, 1),
		validateShader:   true,
		profilingEnabled: cfg.Frame.Profile,
	}
	for _, opt := range options {
		opt(e)
	}

	// Built after options so WithAssetWorkers applies. Shared by every Run.
	e.assetPool = worker.NewDynamicWorkerPool(e.assetWorkers, 2, 1*time.Second)
	return e
}

func (e *engine) Run() (renderer.ShutdownReason, error) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return renderer.ShutdownFrameFailure, errors.New("engine is already running")
	}
	e.running = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.running = false
		e.window = nil
		e.renderer = nil
		e.mu.Unlock()
	}()

	geometry, sh, err := e.prepareAssets()
	if err != nil {
		return renderer.ShutdownFrameFailure, err
	}

	win, err := e.newWindow(
		window.WithTitle(e.cfg.Window.Title),
		window.WithWidth(e.cfg.Window.Width),
		window.WithHeight(e.cfg.Window.Height),
	)
	if err != nil {
		return renderer.ShutdownFrameFailure, &renderer.StageError{Category: renderer.CategoryNegotiation, Stage: "create window", Err: err}
	}
	defer func() {
		// Quit must not reach a window that is being destroyed.
		e.mu.Lock()
		e.window = nil
		e.mu.Unlock()
		if err := win.Close(); err != nil {
			common.Logger().Warn("failed to close window", slog.String("error", err.Error()))
		}
	}()

	instance, err := e.newInstance()
	if err != nil {
		return renderer.ShutdownFrameFailure, &renderer.StageError{Category: renderer.CategoryNegotiation, Stage: "create instance", Err: err}
	}
	ctx, err := renderer.NewContext(instance, nil)
	if err != nil {
		return renderer.ShutdownFrameFailure, err
	}
	defer ctx.Release()

	surface, err := instance.CreateSurface(win.SurfaceDescriptor())
	if err != nil {
		return renderer.ShutdownFrameFailure, &renderer.StageError{Category: renderer.CategoryNegotiation, Stage: "create surface", Err: err}
	}

	r := renderer.NewRenderer(ctx, surface, &sessionEvents{window: win, quit: &e.quit}, geometry, sh, e.sessionOptions()...)
	defer r.Release()

	e.mu.Lock()
	e.window = win
	e.renderer = r
	e.mu.Unlock()

	if err := r.Init(win.Width(), win.Height()); err != nil {
		return renderer.ShutdownFrameFailure, err
	}
	return r.Run()
}

func (e *engine) Quit() {
	e.quit.Store(true)
	e.mu.Lock()
	win := e.window
	e.mu.Unlock()
	if win != nil {
		win.RequestClose()
	}
}

func (e *engine) Window() window.Window {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.window
}

func (e *engine) Renderer() renderer.Renderer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.renderer
}

// prepareAssets parses the geometry and reads and validates the shader in parallel on the asset worker pool.
func (e *engine) prepareAssets() (*loader.Geometry, shader.Shader, error) {
	var (
		wg          sync.WaitGroup
		geometry    *loader.Geometry
		sh          shader.Shader
		geometryErr error
		shaderErr   error
	)
	start := time.Now()

	wg.Add(2)
	e.assetPool.SubmitTask(worker.Task{
		ID: 0,
		Do: func() (any, error) {
			defer wg.Done()
			l := loader.NewLoader(loader.BackendTypeText, loader.WithDimensions(e.cfg.Assets.Dimensions))
			geometry, geometryErr = l.Load(e.cfg.Assets.GeometryPath)
			return geometry, geometryErr
		},
	})
	e.assetPool.SubmitTask(worker.Task{
		ID: 1,
		Do: func() (any, error) {
			defer wg.Done()
			sh, shaderErr = shader.NewShaderFromPath("Frame Shader", e.cfg.Assets.ShaderPath)
			if shaderErr == nil && e.validateShader {
				shaderErr = sh.Validate()
			}
			return sh, shaderErr
		},
	})
	wg.Wait()

	if geometryErr != nil {
		return nil, nil, &renderer.StageError{Category: renderer.CategoryConstruction, Stage: "load geometry", Err: geometryErr}
	}
	if shaderErr != nil {
		return nil, nil, &renderer.StageError{Category: renderer.CategoryConstruction, Stage: "load shader", Err: shaderErr}
	}

	common.Logger().Info("assets prepared",
		slog.String("geometry", e.cfg.Assets.GeometryPath),
		slog.Int("vertices", geometry.VertexCount()),
		slog.Int("indices", len(geometry.Indices)),
		slog.String("shader", e.cfg.Assets.ShaderPath),
		slog.Duration("elapsed", time.Since(start)),
	)
	return geometry, sh, nil
}

// sessionOptions translates the configuration into renderer options. Options passed with WithRendererOptions
// are applied last.
func (e *engine) sessionOptions() []renderer.RendererBuilderOption {
	cfg := e.cfg

	negotiatorOptions := []renderer.NegotiatorOption{
		renderer.WithDeviceLabel(cfg.Device.Label),
		renderer.WithForceFallbackAdapter(cfg.Device.ForceFallbackAdapter),
	}
	if cfg.Device.HighPerformance {
		negotiatorOptions = append(negotiatorOptions, renderer.WithPowerPreference(wgpu.PowerPreferenceHighPerformance))
	}

	resourceOptions := []renderer.ResourceOption{
		renderer.WithVerifyUploads(cfg.Frame.VerifyUploads),
	}
	if cfg.Frame.IndexFormat == "uint32" {
		resourceOptions = append(resourceOptions, renderer.WithIndexFormat(wgpu.IndexFormatUint32))
	}

	// Validate has already rejected unknown modes.
	mode, _ := renderer.ParsePresentMode(cfg.Surface.PresentMode)

	c := cfg.Frame.ClearColor
	frameLoopOptions := []renderer.FrameLoopOption{
		renderer.WithClearColor(wgpu.Color{R: c[0], G: c[1], B: c[2], A: c[3]}),
		renderer.WithMaxFrames(cfg.Frame.MaxFrames),
		renderer.WithDebugMarkers(cfg.Frame.DebugMarkers),
	}
	if e.profilingEnabled {
		frameLoopOptions = append(frameLoopOptions, renderer.WithProfiler(profiler.NewProfiler()))
	}

	options := []renderer.RendererBuilderOption{
		renderer.WithLimits(limitsFromConfig(cfg.Device.Limits)),
		renderer.WithNegotiatorOptions(negotiatorOptions...),
		renderer.WithResourceOptions(resourceOptions...),
		renderer.WithSurfaceOptions(renderer.WithPresentMode(mode)),
		renderer.WithFrameLoopOptions(frameLoopOptions...),
	}
	return append(options, e.rendererOptions...)
}

// limitsFromConfig starts from the default envelope and replaces every entry set in the configuration.
func limitsFromConfig(c config.LimitsConfig) renderer.Limits {
	l := renderer.DefaultLimits()
	override32 := func(dst *uint32, v uint32) {
		if v != 0 {
			*dst = v
		}
	}
	override64 := func(dst *uint64, v uint64) {
		if v != 0 {
			*dst = v
		}
	}
	override32(&l.MaxVertexAttributes, c.MaxVertexAttributes)
	override32(&l.MaxVertexBuffers, c.MaxVertexBuffers)
	override64(&l.MaxBufferSize, c.MaxBufferSize)
	override32(&l.MaxVertexBufferArrayStride, c.MaxVertexBufferArrayStride)
	override32(&l.MaxInterStageShaderComponents, c.MaxInterStageShaderComponents)
	override32(&l.MaxBindGroups, c.MaxBindGroups)
	override32(&l.MaxUniformBuffersPerShaderStage, c.MaxUniformBuffersPerShaderStage)
	override64(&l.MaxUniformBufferBindingSize, c.MaxUniformBufferBindingSize)
	return l
}

// sessionEvents adds the engine's quit request to the window's close state.
type sessionEvents struct {
	window window.Window
	quit   *atomic.Bool
}

func (s *sessionEvents) PollEvents() {
	s.window.PollEvents()
}

func (s *sessionEvents) ShouldClose() bool {
	return s.quit.Load() || s.window.ShouldClose()
}
