package webgpu

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/hal"

	"github.com/cogentcore/webgpu/wgpu"
)

type device struct {
	device  *wgpu.Device
	queue   *queue
	limits  wgpu.Limits
	onError hal.ErrorHandler
	lost    *deviceLost
}

var _ hal.Device = &device{}

// report forwards an error that has no caller to return to.
func (d *device) report(err error) {
	if err == nil || d.onError == nil {
		return
	}
	d.onError(errorKind(err), err.Error())
}

func (d *device) Queue() hal.Queue {
	return d.queue
}

func (d *device) Limits() wgpu.Limits {
	return d.limits
}

func (d *device) CreateShaderModule(descriptor hal.ShaderModuleDescriptor) (hal.ShaderModule, error) {
	m, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: descriptor.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: descriptor.WGSL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &shaderModule{module: m}, nil
}

func (d *device) CreateBuffer(descriptor hal.BufferDescriptor) (hal.Buffer, error) {
	b, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            descriptor.Label,
		Size:             descriptor.Size,
		Usage:            descriptor.Usage,
		MappedAtCreation: false,
	})
	if err != nil {
		return nil, err
	}
	return &buffer{buffer: b, label: descriptor.Label, size: descriptor.Size, usage: descriptor.Usage}, nil
}

func (d *device) CreateBindGroupLayout(descriptor hal.BindGroupLayoutDescriptor) (hal.BindGroupLayout, error) {
	l, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   descriptor.Label,
		Entries: descriptor.Entries,
	})
	if err != nil {
		return nil, err
	}
	entries := make([]wgpu.BindGroupLayoutEntry, len(descriptor.Entries))
	copy(entries, descriptor.Entries)
	return &bindGroupLayout{layout: l, entries: entries}, nil
}

func (d *device) CreatePipelineLayout(descriptor hal.PipelineLayoutDescriptor) (hal.PipelineLayout, error) {
	layouts := make([]*wgpu.BindGroupLayout, len(descriptor.BindGroupLayouts))
	for i, l := range descriptor.BindGroupLayouts {
		bgl, ok := l.(*bindGroupLayout)
		if !ok {
			return nil, fmt.Errorf("wgpu: bind group layout %d was not created by this backend", i)
		}
		layouts[i] = bgl.layout
	}
	pl, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            descriptor.Label,
		BindGroupLayouts: layouts,
	})
	if err != nil {
		return nil, err
	}
	return &pipelineLayout{layout: pl}, nil
}

func (d *device) CreateRenderPipeline(descriptor hal.RenderPipelineDescriptor) (hal.RenderPipeline, error) {
	layout, ok := descriptor.Layout.(*pipelineLayout)
	if !ok {
		return nil, errors.New("wgpu: pipeline layout was not created by this backend")
	}
	module, ok := descriptor.Module.(*shaderModule)
	if !ok {
		return nil, errors.New("wgpu: shader module was not created by this backend")
	}
	p, err := d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  descriptor.Label,
		Layout: layout.layout,
		Vertex: wgpu.VertexState{
			Module:     module.module,
			EntryPoint: descriptor.VertexEntryPoint,
			Buffers:    descriptor.VertexBuffers,
		},
		Fragment: &wgpu.FragmentState{
			Module:     module.module,
			EntryPoint: descriptor.FragmentEntryPoint,
			Targets:    descriptor.Targets,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  descriptor.Topology,
			FrontFace: descriptor.FrontFace,
			CullMode:  descriptor.CullMode,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, err
	}
	return &renderPipeline{pipeline: p}, nil
}

func (d *device) CreateBindGroup(descriptor hal.BindGroupDescriptor) (hal.BindGroup, error) {
	layout, ok := descriptor.Layout.(*bindGroupLayout)
	if !ok {
		return nil, errors.New("wgpu: bind group layout was not created by this backend")
	}
	entries := make([]wgpu.BindGroupEntry, len(descriptor.Entries))
	for i, e := range descriptor.Entries {
		b, ok := e.Buffer.(*buffer)
		if !ok {
			return nil, fmt.Errorf("wgpu: buffer for binding %d was not created by this backend", e.Binding)
		}
		size := e.Size
		if size == 0 {
			size = wgpu.WholeSize
		}
		entries[i] = wgpu.BindGroupEntry{
			Binding: e.Binding,
			Buffer:  b.buffer,
			Offset:  e.Offset,
			Size:    size,
		}
	}
	bg, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   descriptor.Label,
		Layout:  layout.layout,
		Entries: entries,
	})
	if err != nil {
		return nil, err
	}
	return &bindGroup{group: bg}, nil
}

func (d *device) CreateCommandEncoder(label string) (hal.CommandEncoder, error) {
	e, err := d.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, err
	}
	return &commandEncoder{encoder: e, device: d}, nil
}

func (d *device) ReadBuffer(b hal.Buffer, offset, size uint64) ([]byte, error) {
	src, ok := b.(*buffer)
	if !ok {
		return nil, errors.New("wgpu: buffer was not created by this backend")
	}
	if offset > src.size || size > src.size-offset {
		return nil, fmt.Errorf("wgpu: read range %d+%d exceeds buffer size %d", offset, size, src.size)
	}

	staging, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: src.label + " Readback",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	defer staging.Release()

	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, err
	}
	encoder.CopyBufferToBuffer(src.buffer, offset, staging, 0, size)
	cmd, err := encoder.Finish(nil)
	encoder.Release()
	if err != nil {
		return nil, err
	}
	d.queue.queue.Submit(cmd)
	cmd.Release()

	var status wgpu.BufferMapAsyncStatus
	if err := staging.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		status = s
	}); err != nil {
		return nil, err
	}
	d.device.Poll(true, nil)
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("wgpu: buffer map failed: %s", status.String())
	}

	out := make([]byte, size)
	copy(out, staging.GetMappedRange(0, uint(size)))
	staging.Unmap()
	return out, nil
}

func (d *device) Release() {
	if d.lost != nil {
		d.lost.released.Store(true)
	}
	d.device.Release()
}

type queue struct {
	queue  *wgpu.Queue
	device *device
}

var _ hal.Queue = &queue{}

func (q *queue) WriteBuffer(b hal.Buffer, offset uint64, data []byte) {
	dst, ok := b.(*buffer)
	if !ok {
		q.device.report(errors.New("wgpu: buffer was not created by this backend"))
		return
	}
	q.device.report(q.queue.WriteBuffer(dst.buffer, offset, data))
}

func (q *queue) Submit(buffers ...hal.CommandBuffer) {
	cmds := make([]*wgpu.CommandBuffer, 0, len(buffers))
	for _, b := range buffers {
		cb, ok := b.(*commandBuffer)
		if !ok {
			q.device.report(errors.New("wgpu: command buffer was not created by this backend"))
			continue
		}
		cmds = append(cmds, cb.buffer)
	}
	q.queue.Submit(cmds...)
}

type buffer struct {
	buffer *wgpu.Buffer
	label  string
	size   uint64
	usage  wgpu.BufferUsage
}

var _ hal.Buffer = &buffer{}

func (b *buffer) Label() string           { return b.label }
func (b *buffer) Size() uint64            { return b.size }
func (b *buffer) Usage() wgpu.BufferUsage { return b.usage }
func (b *buffer) Release()                { b.buffer.Release() }

type bindGroupLayout struct {
	layout  *wgpu.BindGroupLayout
	entries []wgpu.BindGroupLayoutEntry
}

func (l *bindGroupLayout) Entries() []wgpu.BindGroupLayoutEntry { return l.entries }
func (l *bindGroupLayout) Release()                             { l.layout.Release() }

type pipelineLayout struct {
	layout *wgpu.PipelineLayout
}

func (l *pipelineLayout) Release() { l.layout.Release() }

type shaderModule struct {
	module *wgpu.ShaderModule
}

func (m *shaderModule) Release() { m.module.Release() }

type renderPipeline struct {
	pipeline *wgpu.RenderPipeline
}

func (p *renderPipeline) Release() { p.pipeline.Release() }

type bindGroup struct {
	group *wgpu.BindGroup
}

func (g *bindGroup) Release() { g.group.Release() }

type commandBuffer struct {
	buffer *wgpu.CommandBuffer
}

func (c *commandBuffer) Release() { c.buffer.Release() }
