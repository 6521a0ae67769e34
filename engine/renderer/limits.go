package renderer

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// Limits is the capability envelope requested for the device. Zero fields are left at the wgpu defaults.
type Limits struct {
	MaxVertexAttributes             uint32
	MaxVertexBuffers                uint32
	MaxBufferSize                   uint64
	MaxVertexBufferArrayStride      uint32
	MaxInterStageShaderComponents   uint32
	MinUniformBufferOffsetAlignment uint32
	MinStorageBufferOffsetAlignment uint32
	MaxBindGroups                   uint32
	MaxUniformBuffersPerShaderStage uint32
	MaxUniformBufferBindingSize     uint64
}

const (
	defaultMaxVertices        = 15
	defaultFloatsPerVertex    = 5
	defaultInterStageFloats   = 3
	defaultUniformBindingSize = 16 * 4
)

// DefaultLimits returns the envelope sized for the frame geometry: interleaved 2D position and RGB color,
// a single uniform block, and at most 15 vertices per buffer.
//
// Returns:
//   - Limits: the default capability envelope
func DefaultLimits() Limits {
	return Limits{
		MaxVertexAttributes:             2,
		MaxVertexBuffers:                1,
		MaxBufferSize:                   max(defaultMaxVertices*defaultFloatsPerVertex*4, UniformSize),
		MaxVertexBufferArrayStride:      defaultFloatsPerVertex * 4,
		MaxInterStageShaderComponents:   defaultInterStageFloats,
		MinUniformBufferOffsetAlignment: 256,
		MinStorageBufferOffsetAlignment: 256,
		MaxBindGroups:                   1,
		MaxUniformBuffersPerShaderStage: 1,
		MaxUniformBufferBindingSize:     defaultUniformBindingSize,
	}
}

// Check verifies that an adapter supports the envelope. Maximums must not exceed the supported value and
// alignments must not be finer than the supported value.
//
// Parameters:
//   - supported: the adapter's limits
//
// Returns:
//   - error: an error wrapping ErrUnmetLimits naming the first unmet limit
func (l Limits) Check(supported wgpu.Limits) error {
	maxima := []struct {
		name       string
		want, have uint64
	}{
		{"maxVertexAttributes", uint64(l.MaxVertexAttributes), uint64(supported.MaxVertexAttributes)},
		{"maxVertexBuffers", uint64(l.MaxVertexBuffers), uint64(supported.MaxVertexBuffers)},
		{"maxBufferSize", l.MaxBufferSize, supported.MaxBufferSize},
		{"maxVertexBufferArrayStride", uint64(l.MaxVertexBufferArrayStride), uint64(supported.MaxVertexBufferArrayStride)},
		{"maxInterStageShaderComponents", uint64(l.MaxInterStageShaderComponents), uint64(supported.MaxInterStageShaderComponents)},
		{"maxBindGroups", uint64(l.MaxBindGroups), uint64(supported.MaxBindGroups)},
		{"maxUniformBuffersPerShaderStage", uint64(l.MaxUniformBuffersPerShaderStage), uint64(supported.MaxUniformBuffersPerShaderStage)},
		{"maxUniformBufferBindingSize", l.MaxUniformBufferBindingSize, supported.MaxUniformBufferBindingSize},
	}
	for _, m := range maxima {
		if m.want != 0 && m.want > m.have {
			return fmt.Errorf("%w: %s %d > %d", ErrUnmetLimits, m.name, m.want, m.have)
		}
	}

	alignments := []struct {
		name       string
		want, have uint32
	}{
		{"minUniformBufferOffsetAlignment", l.MinUniformBufferOffsetAlignment, supported.MinUniformBufferOffsetAlignment},
		{"minStorageBufferOffsetAlignment", l.MinStorageBufferOffsetAlignment, supported.MinStorageBufferOffsetAlignment},
	}
	for _, a := range alignments {
		if a.want != 0 && a.want < a.have {
			return fmt.Errorf("%w: %s %d < %d", ErrUnmetLimits, a.name, a.want, a.have)
		}
	}
	return nil
}

// Merge overlays the non-zero fields of the envelope onto base.
//
// Parameters:
//   - base: the limits to start from, usually wgpu.DefaultLimits()
//
// Returns:
//   - wgpu.Limits: the limits to request from the adapter
func (l Limits) Merge(base wgpu.Limits) wgpu.Limits {
	set32 := func(dst *uint32, v uint32) {
		if v != 0 {
			*dst = v
		}
	}
	set64 := func(dst *uint64, v uint64) {
		if v != 0 {
			*dst = v
		}
	}
	set32(&base.MaxVertexAttributes, l.MaxVertexAttributes)
	set32(&base.MaxVertexBuffers, l.MaxVertexBuffers)
	set64(&base.MaxBufferSize, l.MaxBufferSize)
	set32(&base.MaxVertexBufferArrayStride, l.MaxVertexBufferArrayStride)
	set32(&base.MaxInterStageShaderComponents, l.MaxInterStageShaderComponents)
	set32(&base.MinUniformBufferOffsetAlignment, l.MinUniformBufferOffsetAlignment)
	set32(&base.MinStorageBufferOffsetAlignment, l.MinStorageBufferOffsetAlignment)
	set32(&base.MaxBindGroups, l.MaxBindGroups)
	set32(&base.MaxUniformBuffersPerShaderStage, l.MaxUniformBuffersPerShaderStage)
	set64(&base.MaxUniformBufferBindingSize, l.MaxUniformBufferBindingSize)
	return base
}

// FromDevice reads the envelope a device was created with.
func FromDevice(limits wgpu.Limits) Limits {
	return Limits{
		MaxVertexAttributes:             limits.MaxVertexAttributes,
		MaxVertexBuffers:                limits.MaxVertexBuffers,
		MaxBufferSize:                   limits.MaxBufferSize,
		MaxVertexBufferArrayStride:      limits.MaxVertexBufferArrayStride,
		MaxInterStageShaderComponents:   limits.MaxInterStageShaderComponents,
		MinUniformBufferOffsetAlignment: limits.MinUniformBufferOffsetAlignment,
		MinStorageBufferOffsetAlignment: limits.MinStorageBufferOffsetAlignment,
		MaxBindGroups:                   limits.MaxBindGroups,
		MaxUniformBuffersPerShaderStage: limits.MaxUniformBuffersPerShaderStage,
		MaxUniformBufferBindingSize:     limits.MaxUniformBufferBindingSize,
	}
}
