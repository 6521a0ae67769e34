package common

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlignUp(t *testing.T) {
	tests := []struct {
		n, align, want uint64
	}{
		{0, 4, 0},
		{1, 4, 4},
		{4, 4, 4},
		{6, 4, 8},
		{20, 16, 32},
		{7, 0, 7},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AlignUp(tt.n, tt.align), "AlignUp(%d, %d)", tt.n, tt.align)
	}
}

func TestFloat32Bytes(t *testing.T) {
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3f}, Float32Bytes(1))
	assert.Equal(t, SliceToBytes([]float32{2.5}), Float32Bytes(2.5))
}

func TestSliceToBytes(t *testing.T) {
	assert.Nil(t, SliceToBytes([]uint16{}))
	b := SliceToBytes([]uint16{1, 2})
	require.Len(t, b, 4)
	assert.Equal(t, []byte{1, 0, 2, 0}, b)
}

func TestStructToBytes(t *testing.T) {
	v := struct {
		A uint32
		B float32
	}{A: 1, B: 1}
	b := StructToBytes(&v)
	require.Len(t, b, 8)
	assert.Equal(t, []byte{1, 0, 0, 0, 0x00, 0x00, 0x80, 0x3f}, b)
}

func TestLoggerDefaultsToSilent(t *testing.T) {
	t.Cleanup(func() { SetLogger(nil) })
	require.NotNil(t, Logger())
	assert.False(t, Logger().Enabled(t.Context(), slog.LevelError))

	SetLogger(slog.New(slog.DiscardHandler))
	assert.NotNil(t, Logger())

	SetLogger(nil)
	assert.False(t, Logger().Enabled(t.Context(), slog.LevelError))
}

func TestCoalesce(t *testing.T) {
	assert.Equal(t, "Frame", Coalesce("", "Frame"))
	assert.Equal(t, "Wide", Coalesce("Wide", "Frame"))
	assert.Equal(t, "", Coalesce("", ""))
	assert.Equal(t, 3, Coalesce(0, 3, 4))
}
