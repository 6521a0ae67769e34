// Package hal defines the WebGPU shaped device interfaces the frame pipeline is written against.
//
// Descriptors reuse the wgpu enum and layout types so the webgpu implementation passes them through unchanged,
// while the haltest implementation can run the same pipeline code without a GPU.
package hal

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// ErrSurfaceUnavailable is returned by Surface.GetCurrentTexture when the surface cannot supply an image,
// for example because the window was closed, resized or lost.
var ErrSurfaceUnavailable = errors.New("surface image unavailable")

// ErrorKind tags an error reported out of band by the device.
type ErrorKind int

const (
	ErrorKindValidation ErrorKind = iota
	ErrorKindOutOfMemory
	ErrorKindInternal
	ErrorKindDeviceLost
	ErrorKindUnknown
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindValidation:
		return "validation"
	case ErrorKindOutOfMemory:
		return "out-of-memory"
	case ErrorKindInternal:
		return "internal"
	case ErrorKindDeviceLost:
		return "device-lost"
	case ErrorKindUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// ErrorHandler receives errors that have no local error channel. It may be called from any goroutine.
type ErrorHandler func(kind ErrorKind, message string)

// Instance is the process-wide entry point to a GPU backend.
type Instance interface {
	// CreateSurface creates a presentation surface for a native window.
	//
	// Parameters:
	//   - descriptor: the platform surface descriptor produced by the window
	//
	// Returns:
	//   - Surface: the created surface
	//   - error: error if the backend cannot create a surface for the window
	CreateSurface(descriptor *wgpu.SurfaceDescriptor) (Surface, error)

	// RequestAdapter selects a physical or virtual GPU. The call blocks until the backend has resolved the request.
	//
	// Parameters:
	//   - options: adapter selection options
	//
	// Returns:
	//   - Adapter: the selected adapter
	//   - error: error if no compatible adapter exists
	RequestAdapter(options AdapterOptions) (Adapter, error)

	// Release frees the instance. It must be called after every object created from it has been released.
	Release()
}

// AdapterOptions selects an adapter.
type AdapterOptions struct {
	CompatibleSurface    Surface
	ForceFallbackAdapter bool
	PowerPreference      wgpu.PowerPreference
}

// AdapterInfo describes the selected adapter for diagnostics.
type AdapterInfo struct {
	Vendor       string
	Architecture string
	Device       string
	Description  string
	Backend      string
	AdapterType  string
}

// Adapter is a read-only capability descriptor for one GPU.
type Adapter interface {
	Info() AdapterInfo

	// Limits returns the limits the adapter supports.
	Limits() wgpu.Limits

	// Features returns the names of the optional features the adapter supports.
	Features() []string

	// RequestDevice creates a logical device. The call blocks until the backend has resolved the request.
	//
	// Parameters:
	//   - descriptor: the device label, required limits and out of band error handler
	//
	// Returns:
	//   - Device: the created device
	//   - error: error if the adapter cannot satisfy the descriptor
	RequestDevice(descriptor DeviceDescriptor) (Device, error)

	Release()
}

// DeviceDescriptor describes a device request.
type DeviceDescriptor struct {
	Label          string
	RequiredLimits wgpu.Limits
	// OnUncapturedError is registered before the device is returned.
	OnUncapturedError ErrorHandler
}

// Device creates every GPU resident resource and owns the single queue.
type Device interface {
	Queue() Queue
	Limits() wgpu.Limits

	CreateShaderModule(descriptor ShaderModuleDescriptor) (ShaderModule, error)
	CreateBuffer(descriptor BufferDescriptor) (Buffer, error)
	CreateBindGroupLayout(descriptor BindGroupLayoutDescriptor) (BindGroupLayout, error)
	CreatePipelineLayout(descriptor PipelineLayoutDescriptor) (PipelineLayout, error)
	CreateRenderPipeline(descriptor RenderPipelineDescriptor) (RenderPipeline, error)
	CreateBindGroup(descriptor BindGroupDescriptor) (BindGroup, error)
	CreateCommandEncoder(label string) (CommandEncoder, error)

	// ReadBuffer copies a byte range of a buffer back to the host, blocking until the copy has completed.
	// The buffer must have been created with wgpu.BufferUsageCopySrc.
	//
	// Parameters:
	//   - buffer: the buffer to read
	//   - offset: the byte offset to start at, a multiple of 4
	//   - size: the number of bytes to read, a multiple of 4
	//
	// Returns:
	//   - []byte: a copy of the requested range
	//   - error: error if the range is invalid or the mapping fails
	ReadBuffer(buffer Buffer, offset, size uint64) ([]byte, error)

	Release()
}

// Queue is the ordered submission channel from host to device.
// Failures of WriteBuffer and Submit are delivered to the device's ErrorHandler.
type Queue interface {
	WriteBuffer(buffer Buffer, offset uint64, data []byte)
	Submit(buffers ...CommandBuffer)
}

// ShaderModuleDescriptor describes a WGSL module.
type ShaderModuleDescriptor struct {
	Label string
	WGSL  string
}

// BufferDescriptor describes a buffer. Size and Usage are fixed for the buffer's lifetime.
type BufferDescriptor struct {
	Label string
	Size  uint64
	Usage wgpu.BufferUsage
}

// BindGroupLayoutDescriptor describes the ordered resource slots of a bind group.
type BindGroupLayoutDescriptor struct {
	Label   string
	Entries []wgpu.BindGroupLayoutEntry
}

// PipelineLayoutDescriptor lists the bind group layouts a pipeline expects, in group order.
type PipelineLayoutDescriptor struct {
	Label            string
	BindGroupLayouts []BindGroupLayout
}

// RenderPipelineDescriptor describes a render pipeline with a single vertex and fragment stage.
type RenderPipelineDescriptor struct {
	Label              string
	Layout             PipelineLayout
	Module             ShaderModule
	VertexEntryPoint   string
	FragmentEntryPoint string
	VertexBuffers      []wgpu.VertexBufferLayout
	Topology           wgpu.PrimitiveTopology
	FrontFace          wgpu.FrontFace
	CullMode           wgpu.CullMode
	Targets            []wgpu.ColorTargetState
}

// BindGroupEntry binds a buffer range to a layout slot.
type BindGroupEntry struct {
	Binding uint32
	Buffer  Buffer
	Offset  uint64
	Size    uint64
}

// BindGroupDescriptor binds concrete buffers to a layout.
type BindGroupDescriptor struct {
	Label   string
	Layout  BindGroupLayout
	Entries []BindGroupEntry
}

// Buffer is a GPU resident buffer.
type Buffer interface {
	Label() string
	Size() uint64
	Usage() wgpu.BufferUsage
	Release()
}

// BindGroupLayout is a compiled bind group layout.
type BindGroupLayout interface {
	Entries() []wgpu.BindGroupLayoutEntry
	Release()
}

// PipelineLayout is a compiled pipeline layout.
type PipelineLayout interface {
	Release()
}

// ShaderModule is a compiled shader module.
type ShaderModule interface {
	Release()
}

// RenderPipeline is an immutable compiled render pipeline.
type RenderPipeline interface {
	Release()
}

// BindGroup is a set of concrete resources matching a BindGroupLayout.
type BindGroup interface {
	Release()
}

// CommandBuffer is a finished command stream. It is submitted once and then released.
type CommandBuffer interface {
	Release()
}

// TextureView is a per-frame presentable image. It is valid for one frame only.
type TextureView interface {
	Format() wgpu.TextureFormat
	Width() uint32
	Height() uint32
	Release()
}

// ColorAttachment describes the single color target of a render pass.
type ColorAttachment struct {
	View       TextureView
	LoadOp     wgpu.LoadOp
	StoreOp    wgpu.StoreOp
	ClearValue wgpu.Color
}

// RenderPassDescriptor describes a render pass.
type RenderPassDescriptor struct {
	ColorAttachments []ColorAttachment
}

// CommandEncoder records commands into a CommandBuffer.
type CommandEncoder interface {
	InsertDebugMarker(label string)
	BeginRenderPass(descriptor RenderPassDescriptor) (RenderPass, error)
	Finish(label string) (CommandBuffer, error)
	Release()
}

// RenderPass records draw commands. End must be called before the encoder is finished.
type RenderPass interface {
	SetPipeline(pipeline RenderPipeline)
	SetVertexBuffer(slot uint32, buffer Buffer, offset, size uint64)
	SetIndexBuffer(buffer Buffer, format wgpu.IndexFormat, offset, size uint64)
	SetBindGroup(group uint32, bindGroup BindGroup)
	DrawIndexed(indexCount, instanceCount, firstIndex uint32, baseVertex int32, firstInstance uint32)
	End()
	Release()
}

// SurfaceConfiguration configures a presentation surface.
type SurfaceConfiguration struct {
	Width       uint32
	Height      uint32
	Format      wgpu.TextureFormat
	Usage       wgpu.TextureUsage
	PresentMode wgpu.PresentMode
}

// Surface is a presentation target bound to one window.
type Surface interface {
	// PreferredFormat returns the surface's preferred pixel format for the adapter.
	// The boolean is false when the backend reports no format.
	PreferredFormat(adapter Adapter) (wgpu.TextureFormat, bool)

	Configure(adapter Adapter, device Device, config SurfaceConfiguration) error

	// GetCurrentTexture returns the next presentable image, or an error wrapping ErrSurfaceUnavailable.
	GetCurrentTexture() (TextureView, error)

	Present()
	Release()
}
