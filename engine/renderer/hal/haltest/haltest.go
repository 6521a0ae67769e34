// Package haltest is an in-memory implementation of the hal interfaces. Buffers are byte slices, every call is
// recorded in order, and the device enforces the limits it was created with the way a native driver would.
package haltest

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/hal"

	"github.com/cogentcore/webgpu/wgpu"
)

// Recorder is an ordered, concurrency safe log of HAL calls.
type Recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *Recorder) record(format string, args ...any) {
	r.mu.Lock()
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
	r.mu.Unlock()
}

// Calls returns a copy of every recorded call in order.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	copy(out, r.calls)
	return out
}

// Count returns how many recorded calls equal name or start with name followed by ':'.
func (r *Recorder) Count(name string) int {
	n := 0
	for _, c := range r.Calls() {
		if c == name || strings.HasPrefix(c, name+":") {
			n++
		}
	}
	return n
}

// Index returns the position of the first call equal to name at or after from, or -1.
func (r *Recorder) Index(name string, from int) int {
	calls := r.Calls()
	for i := from; i < len(calls); i++ {
		if calls[i] == name || strings.HasPrefix(calls[i], name+":") {
			return i
		}
	}
	return -1
}

// Reset clears the log.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}

// Instance is the root of a fake backend. Exported fields may be changed before use to inject failures.
type Instance struct {
	Recorder *Recorder

	// AdapterLimits are reported by every adapter. Device requests above them fail.
	AdapterLimits wgpu.Limits
	// AdapterFeatures are reported by every adapter.
	AdapterFeatures []string
	// SurfaceFormats are reported by surfaces as their preferred formats. Empty means no preference.
	SurfaceFormats []wgpu.TextureFormat
	// NoAdapter makes RequestAdapter fail.
	NoAdapter bool
	// DeviceError makes RequestDevice fail with this error.
	DeviceError error
	// ShaderError makes CreateShaderModule fail with this error.
	ShaderError error
}

var _ hal.Instance = &Instance{}

// NewInstance returns a fake backend whose adapters support wgpu.DefaultLimits.
func NewInstance() *Instance {
	return &Instance{
		Recorder:        &Recorder{},
		AdapterLimits:   wgpu.DefaultLimits(),
		AdapterFeatures: []string{"DepthClipControl"},
		SurfaceFormats:  []wgpu.TextureFormat{wgpu.TextureFormatBGRA8UnormSrgb},
	}
}

func (i *Instance) CreateSurface(descriptor *wgpu.SurfaceDescriptor) (hal.Surface, error) {
	i.Recorder.record("instance.create_surface")
	return &Surface{rec: i.Recorder, formats: i.SurfaceFormats, imagesLeft: -1}, nil
}

func (i *Instance) RequestAdapter(options hal.AdapterOptions) (hal.Adapter, error) {
	i.Recorder.record("instance.request_adapter")
	if i.NoAdapter {
		return nil, errors.New("no adapter available")
	}
	return &Adapter{instance: i, fallback: options.ForceFallbackAdapter}, nil
}

func (i *Instance) Release() {
	i.Recorder.record("instance.release")
}

// Adapter is a fake adapter.
type Adapter struct {
	instance *Instance
	fallback bool
}

var _ hal.Adapter = &Adapter{}

func (a *Adapter) Info() hal.AdapterInfo {
	adapterType := "IntegratedGPU"
	if a.fallback {
		adapterType = "CPU"
	}
	return hal.AdapterInfo{
		Vendor:       "haltest",
		Architecture: "memory",
		Device:       "haltest device",
		Description:  "in-memory HAL",
		Backend:      "Null",
		AdapterType:  adapterType,
	}
}

func (a *Adapter) Limits() wgpu.Limits {
	return a.instance.AdapterLimits
}

func (a *Adapter) Features() []string {
	return a.instance.AdapterFeatures
}

func (a *Adapter) RequestDevice(descriptor hal.DeviceDescriptor) (hal.Device, error) {
	a.instance.Recorder.record("adapter.request_device")
	if a.instance.DeviceError != nil {
		return nil, a.instance.DeviceError
	}
	supported := a.instance.AdapterLimits
	required := descriptor.RequiredLimits
	switch {
	case required.MaxVertexAttributes > supported.MaxVertexAttributes:
		return nil, fmt.Errorf("limit maxVertexAttributes %d exceeds adapter limit %d", required.MaxVertexAttributes, supported.MaxVertexAttributes)
	case required.MaxVertexBuffers > supported.MaxVertexBuffers:
		return nil, fmt.Errorf("limit maxVertexBuffers %d exceeds adapter limit %d", required.MaxVertexBuffers, supported.MaxVertexBuffers)
	case required.MaxBufferSize > supported.MaxBufferSize:
		return nil, fmt.Errorf("limit maxBufferSize %d exceeds adapter limit %d", required.MaxBufferSize, supported.MaxBufferSize)
	case required.MaxBindGroups > supported.MaxBindGroups:
		return nil, fmt.Errorf("limit maxBindGroups %d exceeds adapter limit %d", required.MaxBindGroups, supported.MaxBindGroups)
	}
	return &Device{
		rec:       a.instance.Recorder,
		label:     descriptor.Label,
		limits:    required,
		onError:   descriptor.OnUncapturedError,
		shaderErr: a.instance.ShaderError,
	}, nil
}

func (a *Adapter) Release() {
	a.instance.Recorder.record("adapter.release")
}

// Device is a fake device. Resources it creates hold their contents in host memory.
type Device struct {
	rec       *Recorder
	label     string
	limits    wgpu.Limits
	onError   hal.ErrorHandler
	shaderErr error

	queueOnce sync.Once
	queue     *Queue
}

var _ hal.Device = &Device{}

// Label returns the label the device was requested with.
func (d *Device) Label() string { return d.label }

func (d *Device) report(kind hal.ErrorKind, format string, args ...any) {
	if d.onError != nil {
		d.onError(kind, fmt.Sprintf(format, args...))
	}
}

// ReportAsync delivers an error to the uncaptured error handler from a separate goroutine, the way a native
// backend reports device loss or validation failures outside any caller's stack. It returns once the handler ran.
func (d *Device) ReportAsync(kind hal.ErrorKind, message string) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.report(kind, "%s", message)
	}()
	<-done
}

func (d *Device) Queue() hal.Queue {
	d.queueOnce.Do(func() {
		d.queue = &Queue{device: d}
	})
	return d.queue
}

func (d *Device) Limits() wgpu.Limits {
	return d.limits
}

func (d *Device) CreateShaderModule(descriptor hal.ShaderModuleDescriptor) (hal.ShaderModule, error) {
	d.rec.record("device.create_shader_module:%s", descriptor.Label)
	if d.shaderErr != nil {
		return nil, d.shaderErr
	}
	if strings.TrimSpace(descriptor.WGSL) == "" {
		return nil, errors.New("empty shader source")
	}
	return &releasable{rec: d.rec, name: "shader_module.release"}, nil
}

func (d *Device) CreateBuffer(descriptor hal.BufferDescriptor) (hal.Buffer, error) {
	d.rec.record("device.create_buffer:%s", descriptor.Label)
	if descriptor.Size == 0 {
		return nil, fmt.Errorf("buffer %q has zero size", descriptor.Label)
	}
	if descriptor.Size%4 != 0 {
		return nil, fmt.Errorf("buffer %q size %d is not a multiple of 4", descriptor.Label, descriptor.Size)
	}
	if d.limits.MaxBufferSize != 0 && descriptor.Size > d.limits.MaxBufferSize {
		return nil, fmt.Errorf("buffer %q size %d exceeds maxBufferSize %d", descriptor.Label, descriptor.Size, d.limits.MaxBufferSize)
	}
	return &Buffer{
		rec:   d.rec,
		label: descriptor.Label,
		usage: descriptor.Usage,
		data:  make([]byte, descriptor.Size),
	}, nil
}

func (d *Device) CreateBindGroupLayout(descriptor hal.BindGroupLayoutDescriptor) (hal.BindGroupLayout, error) {
	d.rec.record("device.create_bind_group_layout:%s", descriptor.Label)
	seen := make(map[uint32]bool, len(descriptor.Entries))
	for _, e := range descriptor.Entries {
		if seen[e.Binding] {
			return nil, fmt.Errorf("duplicate binding %d", e.Binding)
		}
		seen[e.Binding] = true
	}
	entries := make([]wgpu.BindGroupLayoutEntry, len(descriptor.Entries))
	copy(entries, descriptor.Entries)
	return &BindGroupLayout{rec: d.rec, entries: entries}, nil
}

func (d *Device) CreatePipelineLayout(descriptor hal.PipelineLayoutDescriptor) (hal.PipelineLayout, error) {
	d.rec.record("device.create_pipeline_layout:%s", descriptor.Label)
	if d.limits.MaxBindGroups != 0 && uint32(len(descriptor.BindGroupLayouts)) > d.limits.MaxBindGroups {
		return nil, fmt.Errorf("%d bind group layouts exceed maxBindGroups %d", len(descriptor.BindGroupLayouts), d.limits.MaxBindGroups)
	}
	return &releasable{rec: d.rec, name: "pipeline_layout.release"}, nil
}

func (d *Device) CreateRenderPipeline(descriptor hal.RenderPipelineDescriptor) (hal.RenderPipeline, error) {
	d.rec.record("device.create_render_pipeline:%s", descriptor.Label)
	if descriptor.Module == nil || descriptor.Layout == nil {
		return nil, errors.New("render pipeline needs a module and a layout")
	}
	if uint32(len(descriptor.VertexBuffers)) > d.limits.MaxVertexBuffers {
		return nil, fmt.Errorf("%d vertex buffers exceed maxVertexBuffers %d", len(descriptor.VertexBuffers), d.limits.MaxVertexBuffers)
	}
	attributes := 0
	for _, vb := range descriptor.VertexBuffers {
		attributes += len(vb.Attributes)
		if vb.ArrayStride > uint64(d.limits.MaxVertexBufferArrayStride) {
			return nil, fmt.Errorf("stride %d exceeds maxVertexBufferArrayStride %d", vb.ArrayStride, d.limits.MaxVertexBufferArrayStride)
		}
	}
	if uint32(attributes) > d.limits.MaxVertexAttributes {
		return nil, fmt.Errorf("%d vertex attributes exceed maxVertexAttributes %d", attributes, d.limits.MaxVertexAttributes)
	}
	if len(descriptor.Targets) != 1 {
		return nil, fmt.Errorf("expected 1 color target, got %d", len(descriptor.Targets))
	}
	return &releasable{rec: d.rec, name: "render_pipeline.release"}, nil
}

func (d *Device) CreateBindGroup(descriptor hal.BindGroupDescriptor) (hal.BindGroup, error) {
	d.rec.record("device.create_bind_group:%s", descriptor.Label)
	layout, ok := descriptor.Layout.(*BindGroupLayout)
	if !ok {
		return nil, errors.New("bind group layout was not created by this device")
	}
	if len(descriptor.Entries) != len(layout.entries) {
		return nil, fmt.Errorf("bind group has %d entries, layout expects %d", len(descriptor.Entries), len(layout.entries))
	}
	return &releasable{rec: d.rec, name: "bind_group.release"}, nil
}

func (d *Device) CreateCommandEncoder(label string) (hal.CommandEncoder, error) {
	d.rec.record("device.create_command_encoder")
	return &CommandEncoder{rec: d.rec}, nil
}

func (d *Device) ReadBuffer(buffer hal.Buffer, offset, size uint64) ([]byte, error) {
	b, ok := buffer.(*Buffer)
	if !ok {
		return nil, errors.New("buffer was not created by this device")
	}
	if b.usage&wgpu.BufferUsageCopySrc == 0 {
		return nil, fmt.Errorf("buffer %q lacks CopySrc usage", b.label)
	}
	if offset%4 != 0 || size%4 != 0 {
		return nil, fmt.Errorf("read range %d+%d is not 4 byte aligned", offset, size)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if n := uint64(len(b.data)); offset > n || size > n-offset {
		return nil, fmt.Errorf("read range %d+%d exceeds buffer size %d", offset, size, len(b.data))
	}
	out := make([]byte, size)
	copy(out, b.data[offset:offset+size])
	return out, nil
}

func (d *Device) Release() {
	d.rec.record("device.release")
}

// Queue is a fake queue. Writes land in the target buffer immediately.
type Queue struct {
	device    *Device
	mu        sync.Mutex
	submitted int
}

var _ hal.Queue = &Queue{}

func (q *Queue) WriteBuffer(buffer hal.Buffer, offset uint64, data []byte) {
	q.device.rec.record("queue.write_buffer:%s@%d+%d", buffer.Label(), offset, len(data))
	b, ok := buffer.(*Buffer)
	if !ok {
		q.device.report(hal.ErrorKindValidation, "buffer was not created by this device")
		return
	}
	if b.usage&wgpu.BufferUsageCopyDst == 0 {
		q.device.report(hal.ErrorKindValidation, "buffer %q lacks CopyDst usage", b.label)
		return
	}
	if offset%4 != 0 || len(data)%4 != 0 {
		q.device.report(hal.ErrorKindValidation, "write %d+%d to %q is not 4 byte aligned", offset, len(data), b.label)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if size := uint64(len(b.data)); offset > size || uint64(len(data)) > size-offset {
		q.device.report(hal.ErrorKindValidation, "write %d+%d overruns buffer %q of size %d", offset, len(data), b.label, len(b.data))
		return
	}
	copy(b.data[offset:], data)
}

func (q *Queue) Submit(buffers ...hal.CommandBuffer) {
	q.device.rec.record("queue.submit")
	for _, cb := range buffers {
		c, ok := cb.(*CommandBuffer)
		if !ok || c.released {
			q.device.report(hal.ErrorKindValidation, "submitted command buffer is invalid")
			continue
		}
		c.submitted = true
	}
	q.mu.Lock()
	q.submitted++
	q.mu.Unlock()
}

// Submitted returns how many times Submit was called.
func (q *Queue) Submitted() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.submitted
}

// Buffer is a host memory buffer.
type Buffer struct {
	rec   *Recorder
	label string
	usage wgpu.BufferUsage

	mu   sync.Mutex
	data []byte
}

var _ hal.Buffer = &Buffer{}

func (b *Buffer) Label() string           { return b.label }
func (b *Buffer) Size() uint64            { return uint64(len(b.data)) }
func (b *Buffer) Usage() wgpu.BufferUsage { return b.usage }

// Bytes returns a copy of the buffer contents.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

func (b *Buffer) Release() {
	b.rec.record("buffer.release:%s", b.label)
}

// BindGroupLayout records its entries so bind groups can be checked against it.
type BindGroupLayout struct {
	rec     *Recorder
	entries []wgpu.BindGroupLayoutEntry
}

var _ hal.BindGroupLayout = &BindGroupLayout{}

func (l *BindGroupLayout) Entries() []wgpu.BindGroupLayoutEntry { return l.entries }

func (l *BindGroupLayout) Release() {
	l.rec.record("bind_group_layout.release")
}

// releasable backs every handle that has no observable state besides its release.
type releasable struct {
	rec  *Recorder
	name string
}

func (r *releasable) Release() {
	r.rec.record(r.name)
}

// CommandEncoder records a single render pass.
type CommandEncoder struct {
	rec      *Recorder
	pass     *RenderPass
	finished bool
}

var _ hal.CommandEncoder = &CommandEncoder{}

func (e *CommandEncoder) InsertDebugMarker(label string) {
	e.rec.record("encoder.debug_marker:%s", label)
}

func (e *CommandEncoder) BeginRenderPass(descriptor hal.RenderPassDescriptor) (hal.RenderPass, error) {
	e.rec.record("encoder.begin_render_pass")
	if e.pass != nil && !e.pass.ended {
		return nil, errors.New("a render pass is already open")
	}
	if len(descriptor.ColorAttachments) == 0 {
		return nil, errors.New("render pass has no color attachment")
	}
	for _, ca := range descriptor.ColorAttachments {
		if v, ok := ca.View.(*TextureView); !ok || v.released {
			return nil, errors.New("color attachment view is invalid")
		}
	}
	e.pass = &RenderPass{rec: e.rec, descriptor: descriptor}
	return e.pass, nil
}

func (e *CommandEncoder) Finish(label string) (hal.CommandBuffer, error) {
	e.rec.record("encoder.finish")
	if e.finished {
		return nil, errors.New("encoder already finished")
	}
	if e.pass != nil && !e.pass.ended {
		return nil, errors.New("render pass was not ended")
	}
	e.finished = true
	return &CommandBuffer{rec: e.rec}, nil
}

func (e *CommandEncoder) Release() {
	e.rec.record("encoder.release")
}

// DrawCall holds the arguments of one DrawIndexed call.
type DrawCall struct {
	IndexCount, InstanceCount, FirstIndex uint32
	BaseVertex                            int32
	FirstInstance                         uint32
}

// RenderPass records draw state.
type RenderPass struct {
	rec        *Recorder
	descriptor hal.RenderPassDescriptor
	ended      bool

	Draws []DrawCall
}

var _ hal.RenderPass = &RenderPass{}

func (p *RenderPass) SetPipeline(pipeline hal.RenderPipeline) {
	p.rec.record("pass.set_pipeline")
}

func (p *RenderPass) SetVertexBuffer(slot uint32, buffer hal.Buffer, offset, size uint64) {
	p.rec.record("pass.set_vertex_buffer:%d:%s", slot, buffer.Label())
}

func (p *RenderPass) SetIndexBuffer(buffer hal.Buffer, format wgpu.IndexFormat, offset, size uint64) {
	p.rec.record("pass.set_index_buffer:%s", buffer.Label())
}

func (p *RenderPass) SetBindGroup(group uint32, bindGroup hal.BindGroup) {
	p.rec.record("pass.set_bind_group:%d", group)
}

func (p *RenderPass) DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32) {
	p.rec.record("pass.draw_indexed:%d:%d", indexCount, instanceCount)
	p.Draws = append(p.Draws, DrawCall{indexCount, instanceCount, firstIndex, baseVertex, firstInstance})
}

func (p *RenderPass) End() {
	p.rec.record("pass.end")
	p.ended = true
}

func (p *RenderPass) Release() {
	p.rec.record("pass.release")
}

// CommandBuffer is a finished fake command stream.
type CommandBuffer struct {
	rec       *Recorder
	submitted bool
	released  bool
}

var _ hal.CommandBuffer = &CommandBuffer{}

func (c *CommandBuffer) Release() {
	c.rec.record("command_buffer.release")
	c.released = true
}

// TextureView is a fake presentable image.
type TextureView struct {
	rec      *Recorder
	format   wgpu.TextureFormat
	width    uint32
	height   uint32
	released bool
}

var _ hal.TextureView = &TextureView{}

func (v *TextureView) Format() wgpu.TextureFormat { return v.format }
func (v *TextureView) Width() uint32              { return v.width }
func (v *TextureView) Height() uint32             { return v.height }

func (v *TextureView) Release() {
	v.rec.record("view.release")
	v.released = true
}

// Surface is a fake presentation surface.
type Surface struct {
	rec     *Recorder
	formats []wgpu.TextureFormat

	mu         sync.Mutex
	config     *hal.SurfaceConfiguration
	configured int
	closed     bool
	imagesLeft int
	presented  int
}

var _ hal.Surface = &Surface{}

func (s *Surface) PreferredFormat(adapter hal.Adapter) (wgpu.TextureFormat, bool) {
	if len(s.formats) == 0 {
		return wgpu.TextureFormatUndefined, false
	}
	return s.formats[0], true
}

func (s *Surface) Configure(adapter hal.Adapter, device hal.Device, config hal.SurfaceConfiguration) error {
	s.rec.record("surface.configure")
	if config.Width == 0 || config.Height == 0 {
		return fmt.Errorf("invalid surface size %dx%d", config.Width, config.Height)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c := config
	s.config = &c
	s.configured++
	return nil
}

func (s *Surface) GetCurrentTexture() (hal.TextureView, error) {
	s.rec.record("surface.acquire")
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config == nil {
		return nil, fmt.Errorf("surface is not configured: %w", hal.ErrSurfaceUnavailable)
	}
	if s.closed || s.imagesLeft == 0 {
		return nil, fmt.Errorf("surface lost: %w", hal.ErrSurfaceUnavailable)
	}
	if s.imagesLeft > 0 {
		s.imagesLeft--
	}
	return &TextureView{rec: s.rec, format: s.config.Format, width: s.config.Width, height: s.config.Height}, nil
}

func (s *Surface) Present() {
	s.rec.record("surface.present")
	s.mu.Lock()
	s.presented++
	s.mu.Unlock()
}

func (s *Surface) Release() {
	s.rec.record("surface.release")
}

// Close makes every later image acquisition fail with hal.ErrSurfaceUnavailable, as when the window is destroyed.
func (s *Surface) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// LimitImages makes the surface supply n more images before it reports unavailable.
func (s *Surface) LimitImages(n int) {
	s.mu.Lock()
	s.imagesLeft = n
	s.mu.Unlock()
}

// Configuration returns the last applied configuration and how many times Configure succeeded.
func (s *Surface) Configuration() (hal.SurfaceConfiguration, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config == nil {
		return hal.SurfaceConfiguration{}, 0
	}
	return *s.config, s.configured
}

// Presented returns how many times Present was called.
func (s *Surface) Presented() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presented
}
