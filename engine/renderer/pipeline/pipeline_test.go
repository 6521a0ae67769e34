package pipeline

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/hal"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/hal/haltest"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/shader"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const triangleWGSL = `
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
    out.position = vec4f(in.position, 0.0, 1.0);
    out.color = in.color;
    return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4f {
    return vec4f(in.color, 1.0);
}
`

func TestDefaults(t *testing.T) {
	p := NewPipeline("Frame Pipeline", nil)
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, p.Topology())
	assert.Equal(t, wgpu.FrontFaceCCW, p.FrontFace())
	assert.Equal(t, wgpu.CullModeNone, p.CullMode())
	assert.True(t, p.BlendEnabled())

	target := p.ColorTarget(wgpu.TextureFormatBGRA8Unorm)
	assert.Equal(t, wgpu.TextureFormatBGRA8Unorm, target.Format)
	assert.Equal(t, wgpu.ColorWriteMaskAll, target.WriteMask)
	require.NotNil(t, target.Blend)
	assert.Equal(t, wgpu.BlendFactorSrcAlpha, target.Blend.Color.SrcFactor)
	assert.Equal(t, wgpu.BlendFactorOneMinusSrcAlpha, target.Blend.Color.DstFactor)
}

func TestOptions(t *testing.T) {
	p := NewPipeline("Frame Pipeline", nil,
		WithTopology(wgpu.PrimitiveTopologyLineList),
		WithCullMode(wgpu.CullModeBack),
		WithFrontFace(wgpu.FrontFaceCW),
		WithWriteMask(wgpu.ColorWriteMaskRed),
		WithBlendEnabled(false),
	)
	assert.Equal(t, wgpu.PrimitiveTopologyLineList, p.Topology())
	assert.Equal(t, wgpu.CullModeBack, p.CullMode())
	assert.Equal(t, wgpu.FrontFaceCW, p.FrontFace())
	assert.Nil(t, p.ColorTarget(wgpu.TextureFormatBGRA8Unorm).Blend)

	assert.False(t, NewPipeline("Opaque", nil, WithBlendState(nil)).BlendEnabled())
}

func TestInitAndRelease(t *testing.T) {
	inst := haltest.NewInstance()
	a, err := inst.RequestAdapter(hal.AdapterOptions{})
	require.NoError(t, err)
	d, err := a.RequestDevice(hal.DeviceDescriptor{RequiredLimits: wgpu.DefaultLimits()})
	require.NoError(t, err)

	s, err := shader.NewShader("Frame Shader", triangleWGSL)
	require.NoError(t, err)
	module, err := s.CreateModule(d)
	require.NoError(t, err)

	p := NewPipeline("Frame Pipeline", s)
	require.NoError(t, p.Init(d, module, nil, wgpu.TextureFormatBGRA8Unorm))
	assert.NotNil(t, p.RenderPipeline())
	assert.NotNil(t, p.Layout())
	assert.Error(t, p.Init(d, module, nil, wgpu.TextureFormatBGRA8Unorm), "second init is rejected")

	p.Release()
	p.Release()
	calls := inst.Recorder.Calls()
	rp := inst.Recorder.Index("render_pipeline.release", 0)
	pl := inst.Recorder.Index("pipeline_layout.release", 0)
	require.NotEqual(t, -1, rp, calls)
	assert.Less(t, rp, pl, "the pipeline is released before its layout")
	assert.Equal(t, 1, inst.Recorder.Count("render_pipeline.release"))
}

func TestInitReleasesLayoutOnFailure(t *testing.T) {
	inst := haltest.NewInstance()
	a, err := inst.RequestAdapter(hal.AdapterOptions{})
	require.NoError(t, err)
	limits := wgpu.DefaultLimits()
	limits.MaxVertexAttributes = 1
	d, err := a.RequestDevice(hal.DeviceDescriptor{RequiredLimits: limits})
	require.NoError(t, err)

	s, err := shader.NewShader("Frame Shader", triangleWGSL)
	require.NoError(t, err)
	module, err := s.CreateModule(d)
	require.NoError(t, err)

	p := NewPipeline("Frame Pipeline", s)
	require.Error(t, p.Init(d, module, nil, wgpu.TextureFormatBGRA8Unorm))
	assert.Nil(t, p.RenderPipeline())
	assert.Nil(t, p.Layout())
	assert.Equal(t, 1, inst.Recorder.Count("pipeline_layout.release"))
}
