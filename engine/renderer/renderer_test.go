package renderer

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-frame/engine/loader"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/hal/haltest"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/shader"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frameWGSL = `
struct Uniforms {
    color: vec4f,
    time: f32,
};

@group(0) @binding(0) var<uniform> uniforms: Uniforms;

struct VertexInput {
    @location(0) position: vec2f,
    @location(1) color: vec3f,
};

struct VertexOutput {
    @builtin(position) position: vec4f,
    @location(0) color: vec3f,
};

@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    let offset = 0.3 * vec2f(cos(uniforms.time), sin(uniforms.time));
    out.position = vec4f(in.position + offset, 0.0, 1.0);
    out.color = in.color;
    return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4f {
    return vec4f(in.color * uniforms.color.rgb, uniforms.color.a);
}
`

// adapterLimits are generous limits reported by the fake adapter.
func adapterLimits() wgpu.Limits {
	l := wgpu.DefaultLimits()
	l.MaxVertexAttributes = 16
	l.MaxVertexBuffers = 8
	l.MaxBufferSize = 1 << 28
	l.MaxVertexBufferArrayStride = 2048
	l.MaxInterStageShaderComponents = 60
	l.MinUniformBufferOffsetAlignment = 256
	l.MinStorageBufferOffsetAlignment = 256
	l.MaxBindGroups = 4
	l.MaxUniformBuffersPerShaderStage = 12
	l.MaxUniformBufferBindingSize = 1 << 16
	return l
}

func triangle() *loader.Geometry {
	return &loader.Geometry{
		Points: []float32{
			-0.5, -0.5, 1, 0, 0,
			0.5, -0.5, 0, 1, 0,
			0.0, 0.5, 0, 0, 1,
		},
		Indices:    []uint32{0, 1, 2},
		Dimensions: 2,
	}
}

func frameShader(t *testing.T) shader.Shader {
	t.Helper()
	s, err := shader.NewShader("Frame Shader", frameWGSL)
	require.NoError(t, err)
	return s
}

// session is a negotiated fake backend with its surface.
type session struct {
	instance   *haltest.Instance
	ctx        *Context
	surface    *haltest.Surface
	negotiated *Negotiated
}

func newInstance() *haltest.Instance {
	inst := haltest.NewInstance()
	inst.AdapterLimits = adapterLimits()
	return inst
}

func newSession(t *testing.T, limits Limits) *session {
	t.Helper()
	inst := newInstance()
	ctx, err := NewContext(inst, nil)
	require.NoError(t, err)
	surface, err := inst.CreateSurface(nil)
	require.NoError(t, err)
	negotiated, err := NegotiateDevice(ctx, surface, limits)
	require.NoError(t, err)
	t.Cleanup(func() {
		negotiated.Release()
		surface.Release()
		ctx.Release()
	})
	return &session{instance: inst, ctx: ctx, surface: surface.(*haltest.Surface), negotiated: negotiated}
}

func (s *session) build(t *testing.T, geometry *loader.Geometry, sh shader.Shader, options ...ResourceOption) (*Resources, error) {
	t.Helper()
	return BuildResources(s.negotiated.Device, s.negotiated.Queue, geometry, sh, wgpu.TextureFormatBGRA8UnormSrgb, options...)
}

// fakeEvents reports close once PollEvents has been called more than closeAfter times. A negative closeAfter never closes.
type fakeEvents struct {
	closeAfter int
	polls      int
}

func (e *fakeEvents) PollEvents() { e.polls++ }

func (e *fakeEvents) ShouldClose() bool {
	return e.closeAfter >= 0 && e.polls > e.closeAfter
}

func TestRendererSession(t *testing.T) {
	inst := newInstance()
	ctx, err := NewContext(inst, nil)
	require.NoError(t, err)
	surface, err := inst.CreateSurface(nil)
	require.NoError(t, err)

	r := NewRenderer(ctx, surface, &fakeEvents{closeAfter: -1}, triangle(), frameShader(t),
		WithFrameLoopOptions(WithMaxFrames(3)),
		WithSurfaceOptions(WithPresentMode(PresentModeImmediate)),
	)
	require.NoError(t, r.Init(640, 480))
	assert.NotNil(t, r.Negotiated())
	assert.NotNil(t, r.Resources())
	assert.Equal(t, wgpu.TextureFormatBGRA8UnormSrgb, r.Surface().Format())

	reason, err := r.Run()
	require.NoError(t, err)
	assert.Equal(t, ShutdownFrameLimit, reason)
	assert.Equal(t, uint64(3), r.Loop().Frames())
	assert.Equal(t, 3, surface.(*haltest.Surface).Presented())

	rec := inst.Recorder
	rec.Reset()
	r.Release()
	r.Release()
	ctx.Release()

	module := rec.Index("shader_module.release", 0)
	surf := rec.Index("surface.release", 0)
	device := rec.Index("device.release", 0)
	adapter := rec.Index("adapter.release", 0)
	instance := rec.Index("instance.release", 0)
	require.True(t, module >= 0 && surf >= 0 && device >= 0 && adapter >= 0 && instance >= 0, rec.Calls())
	assert.Less(t, module, surf)
	assert.Less(t, surf, device)
	assert.Less(t, device, adapter)
	assert.Less(t, adapter, instance)
	assert.Equal(t, 1, rec.Count("device.release"))
	assert.Zero(t, ctx.Sink().Count())
}

func TestRendererInitFailureReleasesSurface(t *testing.T) {
	inst := newInstance()
	inst.NoAdapter = true
	ctx, err := NewContext(inst, nil)
	require.NoError(t, err)
	defer ctx.Release()
	surface, err := inst.CreateSurface(nil)
	require.NoError(t, err)

	r := NewRenderer(ctx, surface, &fakeEvents{}, triangle(), frameShader(t))
	err = r.Init(640, 480)
	require.Error(t, err)

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, CategoryNegotiation, stageErr.Category)
	assert.ErrorIs(t, err, ErrNoAdapter)
	assert.Equal(t, 1, inst.Recorder.Count("surface.release"))

	_, err = r.Run()
	assert.Error(t, err)
}

func TestRendererRejectsSecondInit(t *testing.T) {
	inst := newInstance()
	ctx, err := NewContext(inst, nil)
	require.NoError(t, err)
	defer ctx.Release()
	surface, err := inst.CreateSurface(nil)
	require.NoError(t, err)

	r := NewRenderer(ctx, surface, &fakeEvents{}, triangle(), frameShader(t))
	defer r.Release()
	require.NoError(t, r.Init(640, 480))
	assert.Error(t, r.Init(640, 480))
}

func TestRendererConstructionFailure(t *testing.T) {
	inst := newInstance()
	ctx, err := NewContext(inst, nil)
	require.NoError(t, err)
	defer ctx.Release()
	surface, err := inst.CreateSurface(nil)
	require.NoError(t, err)

	g := triangle()
	g.Dimensions = 3
	g.Points = append(g.Points, 0, 0, 0)
	r := NewRenderer(ctx, surface, &fakeEvents{}, g, frameShader(t))
	err = r.Init(640, 480)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStrideMismatch)
	assert.Equal(t, 1, inst.Recorder.Count("device.release"))
	assert.Equal(t, 1, inst.Recorder.Count("adapter.release"))
	assert.Zero(t, inst.Recorder.Count("surface.configure"))
}

func TestNewContextRequiresInstance(t *testing.T) {
	_, err := NewContext(nil, nil)
	assert.ErrorIs(t, err, ErrNoInstance)

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, CategoryNegotiation, stageErr.Category)
}

func TestStageErrorFormat(t *testing.T) {
	err := stageError(CategoryConstruction, "create index buffer", ErrIndexSizeMismatch)
	assert.Equal(t, "construction: create index buffer: index buffer size mismatch", err.Error())
	assert.ErrorIs(t, err, ErrIndexSizeMismatch)
	assert.Equal(t, "async", CategoryAsync.String())
}
