package renderer

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/loader"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/hal"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/shader"

	"github.com/cogentcore/webgpu/wgpu"
)

// uniformGroup is the single bind group of the frame pipeline.
const uniformGroup = 0

// Resources holds every GPU object built for the frame: the shader module, the render pipeline and its layout,
// the bind group with its layout, and the vertex, index and uniform buffers. Everything except the uniform
// contents is immutable after BuildResources returns.
type Resources struct {
	label  string
	device hal.Device
	queue  hal.Queue

	shader   shader.Shader
	module   hal.ShaderModule
	pipeline pipeline.Pipeline
	provider bind_group_provider.BindGroupProvider

	uniformBinding int
	format         wgpu.TextureFormat

	// options
	indexFormat     wgpu.IndexFormat
	uniforms        Uniforms
	pipelineOptions []pipeline.PipelineBuilderOption
	verifyUploads   bool

	released bool
}

// BuildResources creates the GPU resources for one geometry and one shader and uploads their contents.
// Every construction invariant is checked before the resource it concerns is created. On failure everything
// created by this call is released.
//
// Parameters:
//   - device: the negotiated device
//   - queue: the device queue used for uploads
//   - geometry: the interleaved vertex records and triangle indices
//   - sh: the parsed shader
//   - format: the pixel format of the presentation surface
//   - options: optional configuration such as the index format or initial uniforms
//
// Returns:
//   - *Resources: the built resources
//   - error: a *StageError of CategoryConstruction
func BuildResources(device hal.Device, queue hal.Queue, geometry *loader.Geometry, sh shader.Shader, format wgpu.TextureFormat, options ...ResourceOption) (*Resources, error) {
	r := &Resources{
		label:       "Frame",
		device:      device,
		queue:       queue,
		shader:      sh,
		format:      format,
		indexFormat: wgpu.IndexFormatUint16,
		uniforms:    DefaultUniforms(),
	}
	for _, opt := range options {
		opt(r)
	}

	if err := r.build(geometry); err != nil {
		r.Release()
		return nil, err
	}
	common.Logger().Debug("frame resources built",
		slog.String("label", r.label),
		slog.Int("vertices", geometry.VertexCount()),
		slog.Int("indices", len(geometry.Indices)),
		slog.Any("format", format),
	)
	return r, nil
}

func (r *Resources) build(geometry *loader.Geometry) error {
	if geometry == nil {
		return stageError(CategoryConstruction, "load geometry", fmt.Errorf("no geometry"))
	}
	if err := geometry.Validate(); err != nil {
		return stageError(CategoryConstruction, "load geometry", err)
	}
	if r.shader == nil {
		return stageError(CategoryConstruction, "load shader", fmt.Errorf("no shader"))
	}

	limits := FromDevice(r.device.Limits())
	if err := checkVertexStage(r.shader, geometry, limits); err != nil {
		return stageError(CategoryConstruction, "check vertex stage", err)
	}

	layoutEntries, err := r.uniformLayout(limits)
	if err != nil {
		return stageError(CategoryConstruction, "check uniform layout", err)
	}

	vertexData := common.SliceToBytes(geometry.Points)
	indexData, err := encodeIndices(geometry.Indices, r.indexFormat)
	if err != nil {
		return stageError(CategoryConstruction, "encode indices", err)
	}
	if err := checkIndexSize(uint64(len(indexData)), len(geometry.Indices), r.indexFormat); err != nil {
		return stageError(CategoryConstruction, "create index buffer", err)
	}
	for _, b := range []struct {
		name string
		size uint64
	}{
		{"vertex buffer", uint64(len(vertexData))},
		{"index buffer", uint64(len(indexData))},
		{"uniform buffer", UniformSize},
	} {
		if limits.MaxBufferSize != 0 && b.size > limits.MaxBufferSize {
			return stageError(CategoryConstruction, "create "+b.name, fmt.Errorf("%w: %d > %d", ErrBufferTooLarge, b.size, limits.MaxBufferSize))
		}
	}

	module, err := r.shader.CreateModule(r.device)
	if err != nil {
		return stageError(CategoryConstruction, "create shader module", err)
	}
	r.module = module

	r.provider = bind_group_provider.NewBindGroupProvider(r.label + " Bind Group")

	vertexBuffer, err := r.device.CreateBuffer(hal.BufferDescriptor{
		Label: r.label + " Vertex Buffer",
		Size:  uint64(len(vertexData)),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return stageError(CategoryConstruction, "create vertex buffer", err)
	}
	r.provider.SetVertexBuffer(vertexBuffer)
	r.queue.WriteBuffer(vertexBuffer, 0, vertexData)

	indexBuffer, err := r.device.CreateBuffer(hal.BufferDescriptor{
		Label: r.label + " Index Buffer",
		Size:  uint64(len(indexData)),
		Usage: wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return stageError(CategoryConstruction, "create index buffer", err)
	}
	r.provider.SetIndexBuffer(indexBuffer, len(geometry.Indices), r.indexFormat)
	r.queue.WriteBuffer(indexBuffer, 0, indexData)

	uniformBuffer, err := r.device.CreateBuffer(hal.BufferDescriptor{
		Label: r.label + " Uniform Buffer",
		Size:  UniformSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc,
	})
	if err != nil {
		return stageError(CategoryConstruction, "create uniform buffer", err)
	}
	r.provider.SetBuffer(r.uniformBinding, uniformBuffer)

	bindGroupLayout, err := r.device.CreateBindGroupLayout(hal.BindGroupLayoutDescriptor{
		Label:   r.label + " Bind Group Layout",
		Entries: layoutEntries,
	})
	if err != nil {
		return stageError(CategoryConstruction, "create bind group layout", err)
	}
	r.provider.SetBindGroupLayout(bindGroupLayout)

	r.pipeline = pipeline.NewPipeline(r.label+" Pipeline", r.shader, r.pipelineOptions...)
	if err := r.pipeline.Init(r.device, r.module, []hal.BindGroupLayout{bindGroupLayout}, r.format); err != nil {
		return stageError(CategoryConstruction, "create render pipeline", err)
	}

	if err := r.provider.Init(r.device); err != nil {
		return stageError(CategoryConstruction, "create bind group", err)
	}

	if err := r.WriteUniforms(r.uniforms); err != nil {
		return stageError(CategoryConstruction, "upload uniforms", err)
	}
	if r.verifyUploads {
		if err := r.verifyUniforms(); err != nil {
			return stageError(CategoryConstruction, "verify uniform upload", err)
		}
	}
	return nil
}

// checkVertexStage checks the shader's vertex stage against the geometry and the device envelope.
func checkVertexStage(sh shader.Shader, geometry *loader.Geometry, limits Limits) error {
	layouts := sh.VertexLayouts()
	if uint32(len(layouts)) > limits.MaxVertexBuffers {
		return fmt.Errorf("%w: %d > %d", ErrTooManyVertexBuffers, len(layouts), limits.MaxVertexBuffers)
	}
	if len(layouts) != 1 {
		return fmt.Errorf("%w: vertex stage reads %d buffers, the frame supplies 1", ErrStrideMismatch, len(layouts))
	}

	attributes := 0
	for _, layout := range layouts {
		attributes += len(layout.Attributes)
	}
	if uint32(attributes) > limits.MaxVertexAttributes {
		return fmt.Errorf("%w: %d > %d", ErrTooManyAttributes, attributes, limits.MaxVertexAttributes)
	}

	for _, layout := range layouts {
		if layout.ArrayStride > uint64(limits.MaxVertexBufferArrayStride) {
			return fmt.Errorf("%w: %d > %d", ErrStrideTooLarge, layout.ArrayStride, limits.MaxVertexBufferArrayStride)
		}
		var sum uint64
		for _, attr := range layout.Attributes {
			sum += shader.VertexFormatSize(attr.Format)
		}
		if layout.ArrayStride != sum {
			return fmt.Errorf("%w: stride %d, attributes total %d bytes", ErrStrideMismatch, layout.ArrayStride, sum)
		}
	}
	if layouts[0].ArrayStride != geometry.Stride() {
		return fmt.Errorf("%w: shader stride %d, geometry has %d floats per vertex", ErrStrideMismatch, layouts[0].ArrayStride, geometry.AttributesPerVertex())
	}

	if n := sh.InterStageComponents(); n > limits.MaxInterStageShaderComponents {
		return fmt.Errorf("%w: %d > %d", ErrTooManyInterStageComponents, n, limits.MaxInterStageShaderComponents)
	}
	return nil
}

// uniformLayout returns the layout entries of the frame's bind group and records which binding holds the uniform block.
func (r *Resources) uniformLayout(limits Limits) ([]wgpu.BindGroupLayoutEntry, error) {
	groups := r.shader.BindGroupLayoutDescriptors()
	if limits.MaxBindGroups != 0 && uint32(len(groups)) > limits.MaxBindGroups {
		return nil, fmt.Errorf("%w: shader declares %d bind groups, device allows %d", ErrLayoutMismatch, len(groups), limits.MaxBindGroups)
	}
	entries := r.shader.BindGroupLayoutDescriptor(uniformGroup).Entries
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: shader declares no bindings in group %d", ErrLayoutMismatch, uniformGroup)
	}

	found := false
	for _, e := range entries {
		if e.Buffer.Type != wgpu.BufferBindingTypeUniform {
			continue
		}
		if !found {
			r.uniformBinding = int(e.Binding)
			found = true
		}
		if e.Buffer.MinBindingSize > UniformSize {
			return nil, fmt.Errorf("%w: shader block %q needs %d bytes, uniform buffer is %d",
				ErrUniformTooSmall, r.shader.BindGroupVarName(uniformGroup, int(e.Binding)), e.Buffer.MinBindingSize, UniformSize)
		}
		if limits.MaxUniformBufferBindingSize != 0 && e.Buffer.MinBindingSize > limits.MaxUniformBufferBindingSize {
			return nil, fmt.Errorf("%w: uniform binding %d needs %d bytes, device allows %d",
				ErrUnmetLimits, e.Binding, e.Buffer.MinBindingSize, limits.MaxUniformBufferBindingSize)
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: group %d has no uniform binding", ErrLayoutMismatch, uniformGroup)
	}
	return entries, nil
}

// indexBufferSize returns the padded byte size of count indices in format.
func indexBufferSize(count int, format wgpu.IndexFormat) uint64 {
	return common.AlignUp(uint64(count)*indexWidth(format), 4)
}

// checkIndexSize rejects a declared index buffer size that is not exactly count elements of the format's width,
// padded to the 4 byte write alignment.
func checkIndexSize(declared uint64, count int, format wgpu.IndexFormat) error {
	payload := uint64(count) * indexWidth(format)
	if want := indexBufferSize(count, format); declared != want {
		return fmt.Errorf("%w: %d bytes declared, %d %s indices need %d (%d padded)", ErrIndexSizeMismatch, declared, count, indexFormatName(format), payload, want)
	}
	return nil
}

func indexFormatName(format wgpu.IndexFormat) string {
	if format == wgpu.IndexFormatUint32 {
		return "uint32"
	}
	return "uint16"
}

func indexWidth(format wgpu.IndexFormat) uint64 {
	if format == wgpu.IndexFormatUint32 {
		return 4
	}
	return 2
}

// encodeIndices packs indices in the index format and pads the result to a multiple of 4 bytes.
func encodeIndices(indices []uint32, format wgpu.IndexFormat) ([]byte, error) {
	switch format {
	case wgpu.IndexFormatUint32:
		return common.SliceToBytes(indices), nil
	case wgpu.IndexFormatUint16:
		out := make([]byte, indexBufferSize(len(indices), format))
		for i, idx := range indices {
			if idx > 0xFFFF {
				return nil, fmt.Errorf("%w: index %d at position %d does not fit uint16", ErrIndexSizeMismatch, idx, i)
			}
			binary.LittleEndian.PutUint16(out[i*2:], uint16(idx))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unsupported index format %v", ErrIndexSizeMismatch, format)
	}
}

func (r *Resources) uniformWrite(offset uint64, data []byte) bind_group_provider.BufferWrite {
	return bind_group_provider.BufferWrite{
		Provider: r.provider,
		Binding:  r.uniformBinding,
		Offset:   offset,
		Data:     data,
	}
}

// WriteUniformField writes a byte range of the uniform buffer without touching the other fields.
//
// Parameters:
//   - offset: the byte offset of the field, a multiple of 4
//   - data: the field bytes, a multiple of 4 in length
//
// Returns:
//   - error: error if the range is misaligned or runs past the uniform block; nothing is written in that case
func (r *Resources) WriteUniformField(offset uint64, data []byte) error {
	if r.released {
		return fmt.Errorf("%s resources are released", r.label)
	}
	if err := r.uniformWrite(offset, data).Apply(r.queue); err != nil {
		return err
	}
	raw := r.uniforms.Bytes()
	copy(raw[offset:], data)
	r.uniforms = uniformsFromBytes(raw)
	return nil
}

// WriteTime writes only the time field of the uniform block.
//
// Parameters:
//   - seconds: the elapsed time
//
// Returns:
//   - error: the write error, if any
func (r *Resources) WriteTime(seconds float32) error {
	return r.WriteUniformField(UniformTimeOffset, common.Float32Bytes(seconds))
}

// WriteUniforms writes the whole uniform block.
func (r *Resources) WriteUniforms(u Uniforms) error {
	return r.WriteUniformField(0, u.Bytes())
}

// Uniforms returns the host copy of the last written uniform values.
func (r *Resources) Uniforms() Uniforms {
	return r.uniforms
}

// ReadUniforms copies the uniform buffer back from the device.
//
// Returns:
//   - []byte: the buffer contents
//   - error: error if the readback fails
func (r *Resources) ReadUniforms() ([]byte, error) {
	buf := r.provider.Buffer(r.uniformBinding)
	if buf == nil {
		return nil, fmt.Errorf("%s has no uniform buffer", r.label)
	}
	return r.device.ReadBuffer(buf, 0, buf.Size())
}

func (r *Resources) verifyUniforms() error {
	got, err := r.ReadUniforms()
	if err != nil {
		return err
	}
	if want := r.uniforms.Bytes(); !bytes.Equal(got, want) {
		return fmt.Errorf("uniform buffer holds %x, wrote %x", got, want)
	}
	common.Logger().Debug("uniform upload verified", slog.Int("bytes", len(got)))
	return nil
}

func uniformsFromBytes(raw []byte) Uniforms {
	var u Uniforms
	_ = binary.Read(bytes.NewReader(raw), binary.LittleEndian, &u)
	return u
}

func (r *Resources) Pipeline() pipeline.Pipeline {
	return r.pipeline
}

func (r *Resources) Provider() bind_group_provider.BindGroupProvider {
	return r.provider
}

func (r *Resources) Module() hal.ShaderModule {
	return r.module
}

func (r *Resources) Format() wgpu.TextureFormat {
	return r.format
}

// UniformBinding returns the binding index of the uniform block within group 0.
func (r *Resources) UniformBinding() int {
	return r.uniformBinding
}

// Release releases the bind group, the pipeline and its layout, the bind group layout and buffers, and finally
// the shader module. It is safe to call more than once and on partially built resources.
func (r *Resources) Release() {
	if r.released {
		return
	}
	r.released = true
	if r.provider != nil {
		r.provider.ReleaseBindGroup()
	}
	if r.pipeline != nil {
		r.pipeline.Release()
	}
	if r.provider != nil {
		r.provider.Release()
	}
	if r.module != nil {
		r.module.Release()
		r.module = nil
	}
}
