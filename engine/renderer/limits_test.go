package renderer

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLimits(t *testing.T) {
	l := DefaultLimits()
	assert.Equal(t, uint32(2), l.MaxVertexAttributes)
	assert.Equal(t, uint32(1), l.MaxVertexBuffers)
	assert.Equal(t, uint64(15*5*4), l.MaxBufferSize)
	assert.Equal(t, uint32(5*4), l.MaxVertexBufferArrayStride)
	assert.Equal(t, uint32(3), l.MaxInterStageShaderComponents)
	assert.Equal(t, uint32(1), l.MaxBindGroups)
	assert.Equal(t, uint32(1), l.MaxUniformBuffersPerShaderStage)
	assert.Equal(t, uint64(64), l.MaxUniformBufferBindingSize)
	assert.GreaterOrEqual(t, l.MaxUniformBufferBindingSize, UniformSize)
}

func TestLimitsCheck(t *testing.T) {
	require.NoError(t, DefaultLimits().Check(adapterLimits()))

	tests := []struct {
		name   string
		modify func(*wgpu.Limits)
		want   string
	}{
		{"attributes", func(l *wgpu.Limits) { l.MaxVertexAttributes = 1 }, "maxVertexAttributes 2 > 1"},
		{"buffer size", func(l *wgpu.Limits) { l.MaxBufferSize = 64 }, "maxBufferSize 300 > 64"},
		{"inter-stage", func(l *wgpu.Limits) { l.MaxInterStageShaderComponents = 2 }, "maxInterStageShaderComponents"},
		{"uniform alignment", func(l *wgpu.Limits) { l.MinUniformBufferOffsetAlignment = 512 }, "minUniformBufferOffsetAlignment 256 < 512"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			supported := adapterLimits()
			tt.modify(&supported)
			err := DefaultLimits().Check(supported)
			require.ErrorIs(t, err, ErrUnmetLimits)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLimitsCheckIgnoresZeroFields(t *testing.T) {
	supported := adapterLimits()
	supported.MaxBindGroups = 0
	assert.ErrorIs(t, Limits{MaxBindGroups: 1}.Check(supported), ErrUnmetLimits)
	assert.NoError(t, Limits{}.Check(supported))
}

func TestLimitsMerge(t *testing.T) {
	base := adapterLimits()
	merged := Limits{MaxVertexAttributes: 3, MaxBufferSize: 1024}.Merge(base)
	assert.Equal(t, uint32(3), merged.MaxVertexAttributes)
	assert.Equal(t, uint64(1024), merged.MaxBufferSize)
	assert.Equal(t, base.MaxVertexBuffers, merged.MaxVertexBuffers)
	assert.Equal(t, base.MaxBindGroups, merged.MaxBindGroups)

	assert.Equal(t, DefaultLimits(), FromDevice(DefaultLimits().Merge(base)))
}

func TestUniformLayout(t *testing.T) {
	assert.Equal(t, uint64(32), UniformSize)
	assert.Equal(t, uint64(16), UniformTimeOffset)
	assert.Equal(t, uint64(4), UniformTimeSize)

	raw := DefaultUniforms().Bytes()
	require.Len(t, raw, 32)
	assert.Equal(t, []byte{0, 0, 0x80, 0x3f}, raw[0:4])
	assert.Equal(t, []byte{0, 0, 0, 0}, raw[16:20])
}
