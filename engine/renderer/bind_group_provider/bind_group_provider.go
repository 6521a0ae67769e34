package bind_group_provider

import (
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/hal"

	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label used for the bind group and its layout.
	label string

	// The following fields are GPU allocated resources and must be released when no longer needed. They are populated by the resource builder.

	// bindGroup is the GPU bind group, or nil until Init has succeeded.
	bindGroup hal.BindGroup
	// bindGroupLayout is the GPU bind group layout the bind group is checked against.
	bindGroupLayout hal.BindGroupLayout
	// buffers holds the buffers bound by this provider, keyed by binding index.
	buffers map[int]hal.Buffer

	// The following fields describe the geometry drawn with this bind group.

	// vertexBuffer is the interleaved vertex buffer bound to slot 0.
	vertexBuffer hal.Buffer
	// indexBuffer is the index buffer.
	indexBuffer hal.Buffer
	// indexCount is the number of indices issued by DrawIndexed.
	indexCount int
	// indexFormat is the fixed width of one index.
	indexFormat wgpu.IndexFormat
}

// BindGroupProvider owns the single bind group of the frame pipeline together with the buffers it binds
// and the geometry buffers drawn with it.
//
// Usage pattern:
//  1. The resource builder creates the buffers and the bind group layout and stores them on the provider
//  2. The resource builder calls Init, which checks the buffers against the layout and creates the bind group
//  3. The frame loop binds BindGroup, VertexBuffer and IndexBuffer and draws IndexCount indices
//  4. Per-frame uniform updates go through a BufferWrite targeting one binding
type BindGroupProvider interface {
	// Release releases the bind group, its layout and every buffer held by the provider. It is safe to call more than once.
	Release()

	// ReleaseBindGroup releases only the bind group, so it can be destroyed before the pipeline that uses it.
	ReleaseBindGroup()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// BindGroup returns the created bind group, or nil before Init.
	//
	// Returns:
	//   - hal.BindGroup: the bind group or nil
	BindGroup() hal.BindGroup

	// BindGroupLayout returns the bind group layout, or nil if none was set.
	//
	// Returns:
	//   - hal.BindGroupLayout: the bind group layout or nil
	BindGroupLayout() hal.BindGroupLayout

	// Buffer returns the buffer bound at a binding index.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - hal.Buffer: the buffer or nil
	Buffer(binding int) hal.Buffer

	// Buffers returns every bound buffer keyed by binding index.
	Buffers() map[int]hal.Buffer

	// VertexBuffer returns the vertex buffer, or nil if not set.
	VertexBuffer() hal.Buffer

	// IndexBuffer returns the index buffer, or nil if not set.
	IndexBuffer() hal.Buffer

	// IndexCount returns the number of indices for draw calls.
	//
	// Returns:
	//   - int: the index count
	IndexCount() int

	// IndexFormat returns the width of one index.
	IndexFormat() wgpu.IndexFormat

	// SetBindGroupLayout sets the layout the bind group is created against.
	//
	// Parameters:
	//   - bgl: the created bind group layout
	SetBindGroupLayout(bgl hal.BindGroupLayout)

	// SetBuffer binds a buffer to a binding index.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the created buffer
	SetBuffer(binding int, buf hal.Buffer)

	// SetVertexBuffer stores the vertex buffer.
	SetVertexBuffer(buf hal.Buffer)

	// SetIndexBuffer stores the index buffer together with the draw parameters.
	//
	// Parameters:
	//   - buf: the created index buffer
	//   - count: the number of indices to draw
	//   - format: the width of one index
	SetIndexBuffer(buf hal.Buffer, count int, format wgpu.IndexFormat)

	// Entries builds the bind group entries from the bound buffers, each covering its whole buffer, sorted by binding.
	//
	// Returns:
	//   - []hal.BindGroupEntry: one entry per bound buffer
	Entries() []hal.BindGroupEntry

	// Init checks that the bound buffers supply exactly the bindings of the layout and creates the bind group.
	//
	// Parameters:
	//   - device: the device that owns the layout and buffers
	//
	// Returns:
	//   - error: an error wrapping ErrLayoutMismatch if the entries differ from the layout, or the device's error
	Init(device hal.Device) error
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates an empty provider.
//
// Parameters:
//   - label: the debug label of the bind group
//   - options: a variadic list of BindGroupProviderOption functions to apply
//
// Returns:
//   - BindGroupProvider: the provider
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:       label,
		buffers:     make(map[int]hal.Buffer),
		indexFormat: wgpu.IndexFormatUint16,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) BindGroup() hal.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) BindGroupLayout() hal.BindGroupLayout {
	return p.bindGroupLayout
}

func (p *bindGroupProvider) Buffer(binding int) hal.Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) Buffers() map[int]hal.Buffer {
	return p.buffers
}

func (p *bindGroupProvider) VertexBuffer() hal.Buffer {
	return p.vertexBuffer
}

func (p *bindGroupProvider) IndexBuffer() hal.Buffer {
	return p.indexBuffer
}

func (p *bindGroupProvider) IndexCount() int {
	return p.indexCount
}

func (p *bindGroupProvider) IndexFormat() wgpu.IndexFormat {
	return p.indexFormat
}

func (p *bindGroupProvider) SetBindGroupLayout(bgl hal.BindGroupLayout) {
	p.bindGroupLayout = bgl
}

func (p *bindGroupProvider) SetBuffer(binding int, buf hal.Buffer) {
	p.buffers[binding] = buf
}

func (p *bindGroupProvider) SetVertexBuffer(buf hal.Buffer) {
	p.vertexBuffer = buf
}

func (p *bindGroupProvider) SetIndexBuffer(buf hal.Buffer, count int, format wgpu.IndexFormat) {
	p.indexBuffer = buf
	p.indexCount = count
	p.indexFormat = format
}

func (p *bindGroupProvider) Entries() []hal.BindGroupEntry {
	entries := make([]hal.BindGroupEntry, 0, len(p.buffers))
	for binding, buf := range p.buffers {
		entries = append(entries, hal.BindGroupEntry{
			Binding: uint32(binding),
			Buffer:  buf,
			Size:    buf.Size(),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Binding < entries[j].Binding
	})
	return entries
}

func (p *bindGroupProvider) Init(device hal.Device) error {
	if p.bindGroupLayout == nil {
		return fmt.Errorf("bind group %s: %w: no layout", p.label, ErrLayoutMismatch)
	}
	entries := p.Entries()
	if err := CheckEntries(p.bindGroupLayout.Entries(), entries); err != nil {
		return fmt.Errorf("bind group %s: %w", p.label, err)
	}
	bg, err := device.CreateBindGroup(hal.BindGroupDescriptor{
		Label:   p.label,
		Layout:  p.bindGroupLayout,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("bind group %s: %w", p.label, err)
	}
	p.bindGroup = bg
	return nil
}

func (p *bindGroupProvider) ReleaseBindGroup() {
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
}

func (p *bindGroupProvider) Release() {
	p.ReleaseBindGroup()
	if p.bindGroupLayout != nil {
		p.bindGroupLayout.Release()
		p.bindGroupLayout = nil
	}
	if p.vertexBuffer != nil {
		p.vertexBuffer.Release()
		p.vertexBuffer = nil
	}
	if p.indexBuffer != nil {
		p.indexBuffer.Release()
		p.indexBuffer = nil
	}
	for binding, buf := range p.buffers {
		buf.Release()
		delete(p.buffers, binding)
	}
}
