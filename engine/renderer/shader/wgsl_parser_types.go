package shader

import "github.com/cogentcore/webgpu/wgpu"

// vertexFormatInfo holds the wgpu vertex format, its byte size for offset calculation and its component count
type vertexFormatInfo struct {
	format     wgpu.VertexFormat
	size       uint64
	components uint32
}

// wgslTypeLayout holds the byte size and alignment for a WGSL type per the WGSL specification.
// Used to compute MinBindingSize for buffer bindings.
type wgslTypeLayout struct {
	size  uint64
	align uint64
}

// parsedField represents a single field extracted from a WGSL struct or parameter list during parsing
type parsedField struct {
	name      string
	typeName  string
	location  int
	isBuiltin bool
}

// parsedStruct represents a WGSL struct block extracted during parsing
type parsedStruct struct {
	name   string
	fields []parsedField
}

// entrySignature is the parameter list and return type of an entry point function
type entrySignature struct {
	name       string
	params     string
	returnType string
}
