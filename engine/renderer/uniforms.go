package renderer

import (
	"unsafe"

	"github.com/Carmen-Shannon/oxy-frame/common"
)

// Uniforms mirrors the shader's uniform block: a vec4f color followed by an f32 time, padded to 16 bytes.
type Uniforms struct {
	Color [4]float32
	Time  float32
	_     [3]float32
}

const (
	// UniformSize is the size in bytes of the uniform block.
	UniformSize = uint64(unsafe.Sizeof(Uniforms{}))

	// UniformTimeOffset is the byte offset of the time field.
	UniformTimeOffset = uint64(unsafe.Offsetof(Uniforms{}.Time))

	// UniformTimeSize is the size in bytes of the time field.
	UniformTimeSize = uint64(unsafe.Sizeof(Uniforms{}.Time))
)

// DefaultUniforms returns the initial uniform values: an opaque color that leaves vertex colors unchanged and time zero.
func DefaultUniforms() Uniforms {
	return Uniforms{Color: [4]float32{1, 1, 1, 1}}
}

// Bytes returns the little-endian byte representation uploaded to the uniform buffer.
func (u Uniforms) Bytes() []byte {
	return common.StructToBytes(&u)
}
