package bind_group_provider

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/hal"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/hal/haltest"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDevice(t *testing.T) (*haltest.Instance, hal.Device) {
	t.Helper()
	inst := haltest.NewInstance()
	a, err := inst.RequestAdapter(hal.AdapterOptions{})
	require.NoError(t, err)
	d, err := a.RequestDevice(hal.DeviceDescriptor{Label: "Test Device", RequiredLimits: wgpu.DefaultLimits()})
	require.NoError(t, err)
	return inst, d
}

func uniformLayout(t *testing.T, d hal.Device, bindings ...uint32) hal.BindGroupLayout {
	t.Helper()
	entries := make([]wgpu.BindGroupLayoutEntry, len(bindings))
	for i, b := range bindings {
		entries[i] = wgpu.BindGroupLayoutEntry{
			Binding:    b,
			Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
			Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform, MinBindingSize: 32},
		}
	}
	l, err := d.CreateBindGroupLayout(hal.BindGroupLayoutDescriptor{Label: "Uniforms", Entries: entries})
	require.NoError(t, err)
	return l
}

func uniformBuffer(t *testing.T, d hal.Device, size uint64) hal.Buffer {
	t.Helper()
	b, err := d.CreateBuffer(hal.BufferDescriptor{
		Label: "Uniform Buffer",
		Size:  size,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc,
	})
	require.NoError(t, err)
	return b
}

func TestInitCreatesBindGroup(t *testing.T) {
	inst, d := newDevice(t)
	p := NewBindGroupProvider("Frame Bind Group",
		WithBindGroupLayout(uniformLayout(t, d, 0)),
		WithBuffer(0, uniformBuffer(t, d, 32)),
	)
	require.NoError(t, p.Init(d))
	assert.NotNil(t, p.BindGroup())
	assert.Equal(t, 1, inst.Recorder.Count("device.create_bind_group"))

	entries := p.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, uint64(32), entries[0].Size)
}

func TestInitRejectsMismatchedEntries(t *testing.T) {
	tests := []struct {
		name     string
		bindings []uint32
		buffers  map[int]uint64
	}{
		{name: "missing entry", bindings: []uint32{0, 1}, buffers: map[int]uint64{0: 32}},
		{name: "extra entry", bindings: []uint32{0}, buffers: map[int]uint64{0: 32, 1: 32}},
		{name: "wrong binding", bindings: []uint32{0}, buffers: map[int]uint64{2: 32}},
		{name: "buffer too small", bindings: []uint32{0}, buffers: map[int]uint64{0: 16}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst, d := newDevice(t)
			p := NewBindGroupProvider("Frame Bind Group", WithBindGroupLayout(uniformLayout(t, d, tt.bindings...)))
			for binding, size := range tt.buffers {
				p.SetBuffer(binding, uniformBuffer(t, d, size))
			}
			err := p.Init(d)
			assert.ErrorIs(t, err, ErrLayoutMismatch)
			assert.Nil(t, p.BindGroup())
			assert.Zero(t, inst.Recorder.Count("device.create_bind_group"), "mismatch must be caught before the device sees it")
		})
	}
}

func TestInitWithoutLayout(t *testing.T) {
	_, d := newDevice(t)
	p := NewBindGroupProvider("Empty")
	assert.ErrorIs(t, p.Init(d), ErrLayoutMismatch)
}

func TestBufferWrite(t *testing.T) {
	inst, d := newDevice(t)
	buf := uniformBuffer(t, d, 32)
	p := NewBindGroupProvider("Frame Bind Group", WithBuffer(0, buf))

	require.NoError(t, BufferWrite{Provider: p, Binding: 0, Offset: 16, Data: common.Float32Bytes(2)}.Apply(d.Queue()))
	assert.Equal(t, common.Float32Bytes(2), buf.(*haltest.Buffer).Bytes()[16:20])

	tests := []struct {
		name  string
		write BufferWrite
		errIs error
	}{
		{name: "misaligned offset", write: BufferWrite{Provider: p, Offset: 2, Data: make([]byte, 4)}, errIs: ErrMisalignedWrite},
		{name: "misaligned length", write: BufferWrite{Provider: p, Offset: 0, Data: make([]byte, 6)}, errIs: ErrMisalignedWrite},
		{name: "overrun", write: BufferWrite{Provider: p, Offset: 28, Data: make([]byte, 8)}, errIs: ErrWriteOutOfBounds},
		{name: "offset wraps around", write: BufferWrite{Provider: p, Offset: math.MaxUint64 - 3, Data: make([]byte, 4)}, errIs: ErrWriteOutOfBounds},
		{name: "offset past end", write: BufferWrite{Provider: p, Offset: 36}, errIs: ErrWriteOutOfBounds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := inst.Recorder.Count("queue.write_buffer")
			assert.ErrorIs(t, tt.write.Apply(d.Queue()), tt.errIs)
			assert.Equal(t, before, inst.Recorder.Count("queue.write_buffer"), "invalid writes are never issued")
		})
	}

	_, err := BufferWrite{Provider: p, Binding: 3, Data: make([]byte, 4)}.Validate()
	assert.Error(t, err)
}

func TestRelease(t *testing.T) {
	inst, d := newDevice(t)
	p := NewBindGroupProvider("Frame Bind Group",
		WithBindGroupLayout(uniformLayout(t, d, 0)),
		WithBuffer(0, uniformBuffer(t, d, 32)),
	)
	require.NoError(t, p.Init(d))

	p.ReleaseBindGroup()
	assert.Nil(t, p.BindGroup())
	p.Release()
	p.Release()

	assert.Equal(t, 1, inst.Recorder.Count("bind_group.release"))
	assert.Equal(t, 1, inst.Recorder.Count("bind_group_layout.release"))
	assert.Equal(t, 1, inst.Recorder.Count("buffer.release"))
	assert.Empty(t, p.Buffers())
}
