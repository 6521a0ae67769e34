package pipeline

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/hal"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/shader"

	"github.com/cogentcore/webgpu/wgpu"
)

// pipeline is the implementation of the Pipeline interface.
// It holds the fixed-function state of the single render pipeline and, once initialized, its GPU objects.
type pipeline struct {
	// pipelineKey is the unique identifier for this pipeline, used as the label of its GPU objects
	pipelineKey string
	// shader provides the entry points and vertex layout
	shader shader.Shader

	// The following fields are GPU allocated and populated by Init.

	layout         hal.PipelineLayout
	renderPipeline hal.RenderPipeline

	// The following properties configure the pipeline at creation and are set with the builder options.

	blendEnabled bool
	cullMode     wgpu.CullMode
	topology     wgpu.PrimitiveTopology
	frontFace    wgpu.FrontFace
	writeMask    wgpu.ColorWriteMask
	blendState   *wgpu.BlendState
}

// Pipeline describes one render pipeline: a vertex and fragment stage from a single shader,
// the vertex buffer layout that stage consumes and the fixed-function state. The GPU objects
// are created by Init and are immutable afterwards.
type Pipeline interface {
	// PipelineKey returns the unique key associated with this pipeline.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Shader returns the shader whose entry points the pipeline uses.
	Shader() shader.Shader

	// RenderPipeline returns the compiled pipeline, or nil before Init.
	RenderPipeline() hal.RenderPipeline

	// Layout returns the pipeline layout, or nil before Init.
	Layout() hal.PipelineLayout

	// BlendEnabled returns whether the color target is blended.
	//
	// Returns:
	//   - bool: true if blending is enabled, false otherwise
	BlendEnabled() bool

	// CullMode returns the cull mode configured for this pipeline.
	//
	// Returns:
	//   - wgpu.CullMode: the cull mode for this pipeline
	CullMode() wgpu.CullMode

	// Topology returns the primitive topology configured for this pipeline.
	//
	// Returns:
	//   - wgpu.PrimitiveTopology: the primitive topology for this pipeline
	Topology() wgpu.PrimitiveTopology

	// FrontFace returns the front face winding order configured for this pipeline.
	//
	// Returns:
	//   - wgpu.FrontFace: the winding order that is considered front facing
	FrontFace() wgpu.FrontFace

	// WriteMask returns the color write mask configured for this pipeline.
	//
	// Returns:
	//   - wgpu.ColorWriteMask: the color write mask for this pipeline
	WriteMask() wgpu.ColorWriteMask

	// BlendState returns the blend state configured for this pipeline.
	//
	// Returns:
	//   - *wgpu.BlendState: the blend state, or nil if blending is not enabled
	BlendState() *wgpu.BlendState

	// ColorTarget returns the single color target state for a surface format.
	//
	// Parameters:
	//   - format: the pixel format of the presentation surface
	//
	// Returns:
	//   - wgpu.ColorTargetState: the color target with the configured blend state and write mask
	ColorTarget(format wgpu.TextureFormat) wgpu.ColorTargetState

	// Init creates the pipeline layout and the render pipeline on a device.
	// On failure nothing created by this call is retained.
	//
	// Parameters:
	//   - device: the device that will own the pipeline
	//   - module: the compiled module of the pipeline's shader
	//   - bindGroupLayouts: the bind group layouts in group order
	//   - format: the pixel format of the single color target
	//
	// Returns:
	//   - error: error if the pipeline was already initialized or the device rejects a descriptor
	Init(device hal.Device, module hal.ShaderModule, bindGroupLayouts []hal.BindGroupLayout, format wgpu.TextureFormat) error

	// Release releases the render pipeline and then its layout. It is safe to call more than once.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a render pipeline description for a shader. The defaults are a triangle list
// with counter-clockwise front faces, no culling, alpha blending and all channels written.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - s: the shader providing the vertex and fragment entry points
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new, uninitialized Pipeline
func NewPipeline(pipelineKey string, s shader.Shader, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey:  pipelineKey,
		shader:       s,
		blendEnabled: true,
		cullMode:     wgpu.CullModeNone,
		topology:     wgpu.PrimitiveTopologyTriangleList,
		frontFace:    wgpu.FrontFaceCCW,
		writeMask:    wgpu.ColorWriteMaskAll,
		blendState: &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorZero,
				DstFactor: wgpu.BlendFactorOne,
				Operation: wgpu.BlendOperationAdd,
			},
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Shader() shader.Shader {
	return p.shader
}

func (p *pipeline) RenderPipeline() hal.RenderPipeline {
	return p.renderPipeline
}

func (p *pipeline) Layout() hal.PipelineLayout {
	return p.layout
}

func (p *pipeline) BlendEnabled() bool {
	return p.blendEnabled
}

func (p *pipeline) CullMode() wgpu.CullMode {
	return p.cullMode
}

func (p *pipeline) Topology() wgpu.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) FrontFace() wgpu.FrontFace {
	return p.frontFace
}

func (p *pipeline) WriteMask() wgpu.ColorWriteMask {
	return p.writeMask
}

func (p *pipeline) BlendState() *wgpu.BlendState {
	if !p.blendEnabled {
		return nil
	}
	return p.blendState
}

func (p *pipeline) ColorTarget(format wgpu.TextureFormat) wgpu.ColorTargetState {
	return wgpu.ColorTargetState{
		Format:    format,
		Blend:     p.BlendState(),
		WriteMask: p.writeMask,
	}
}

func (p *pipeline) Init(device hal.Device, module hal.ShaderModule, bindGroupLayouts []hal.BindGroupLayout, format wgpu.TextureFormat) error {
	if p.renderPipeline != nil {
		return fmt.Errorf("pipeline %s: already initialized", p.pipelineKey)
	}
	if p.shader == nil || module == nil {
		return fmt.Errorf("pipeline %s: a shader and its module are required", p.pipelineKey)
	}

	layout, err := device.CreatePipelineLayout(hal.PipelineLayoutDescriptor{
		Label:            p.pipelineKey + " Layout",
		BindGroupLayouts: bindGroupLayouts,
	})
	if err != nil {
		return fmt.Errorf("pipeline %s: create layout: %w", p.pipelineKey, err)
	}

	rp, err := device.CreateRenderPipeline(hal.RenderPipelineDescriptor{
		Label:              p.pipelineKey,
		Layout:             layout,
		Module:             module,
		VertexEntryPoint:   p.shader.VertexEntryPoint(),
		FragmentEntryPoint: p.shader.FragmentEntryPoint(),
		VertexBuffers:      p.shader.VertexLayouts(),
		Topology:           p.topology,
		FrontFace:          p.frontFace,
		CullMode:           p.cullMode,
		Targets:            []wgpu.ColorTargetState{p.ColorTarget(format)},
	})
	if err != nil {
		layout.Release()
		return fmt.Errorf("pipeline %s: create render pipeline: %w", p.pipelineKey, err)
	}

	p.layout = layout
	p.renderPipeline = rp
	return nil
}

func (p *pipeline) Release() {
	if p.renderPipeline != nil {
		p.renderPipeline.Release()
		p.renderPipeline = nil
	}
	if p.layout != nil {
		p.layout.Release()
		p.layout = nil
	}
}
