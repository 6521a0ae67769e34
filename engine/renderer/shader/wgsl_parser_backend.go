package shader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-frame/common"

	"github.com/cogentcore/webgpu/wgpu"
)

// hostShareableLayouts holds size and alignment of the host-shareable WGSL types a uniform block may contain.
var hostShareableLayouts = map[string]wgslTypeLayout{
	"f32":  {4, 4},
	"i32":  {4, 4},
	"u32":  {4, 4},
	"bool": {4, 4},

	"vec2f": {8, 8}, "vec2<f32>": {8, 8},
	"vec2i": {8, 8}, "vec2<i32>": {8, 8},
	"vec2u": {8, 8}, "vec2<u32>": {8, 8},
	"vec3f": {12, 16}, "vec3<f32>": {12, 16},
	"vec3i": {12, 16}, "vec3<i32>": {12, 16},
	"vec3u": {12, 16}, "vec3<u32>": {12, 16},
	"vec4f": {16, 16}, "vec4<f32>": {16, 16},
	"vec4i": {16, 16}, "vec4<i32>": {16, 16},
	"vec4u": {16, 16}, "vec4<u32>": {16, 16},

	"mat2x2f": {16, 8}, "mat2x2<f32>": {16, 8},
	"mat3x3f": {48, 16}, "mat3x3<f32>": {48, 16},
	"mat4x4f": {64, 16}, "mat4x4<f32>": {64, 16},
}

// resolveTypeLayout returns the size and alignment of a WGSL type. Fixed-size arrays are resolved from their
// element type, runtime-sized arrays report a single element.
//
// Parameters:
//   - typeName: the WGSL type, e.g. "f32", "Uniforms" or "array<vec4f, 4>"
//   - structs: layouts of the structs resolved so far
//
// Returns:
//   - wgslTypeLayout: the resolved layout
//   - bool: false if the type is unknown
func resolveTypeLayout(typeName string, structs map[string]wgslTypeLayout) (wgslTypeLayout, bool) {
	if l, ok := hostShareableLayouts[typeName]; ok {
		return l, true
	}
	if l, ok := structs[typeName]; ok {
		return l, true
	}
	inner, ok := strings.CutPrefix(typeName, "array<")
	if !ok || !strings.HasSuffix(inner, ">") {
		return wgslTypeLayout{}, false
	}
	elemName, countText, fixed := strings.Cut(strings.TrimSuffix(inner, ">"), ",")
	elem, ok := resolveTypeLayout(strings.TrimSpace(elemName), structs)
	if !ok {
		return wgslTypeLayout{}, false
	}
	stride := common.AlignUp(elem.size, elem.align)
	if !fixed {
		return wgslTypeLayout{stride, elem.align}, true
	}
	count, err := strconv.ParseUint(strings.TrimSpace(countText), 10, 64)
	if err != nil {
		return wgslTypeLayout{}, false
	}
	return wgslTypeLayout{count * stride, elem.align}, true
}

// computeStructLayout lays out a struct's members at their aligned offsets and rounds the total
// up to the largest member alignment. Builtin members are ignored.
func computeStructLayout(ps parsedStruct, structs map[string]wgslTypeLayout) (wgslTypeLayout, bool) {
	var offset uint64
	align := uint64(1)
	for _, f := range ps.fields {
		if f.isBuiltin {
			continue
		}
		l, ok := resolveTypeLayout(f.typeName, structs)
		if !ok {
			return wgslTypeLayout{}, false
		}
		offset = common.AlignUp(offset, l.align) + l.size
		align = max(align, l.align)
	}
	return wgslTypeLayout{common.AlignUp(offset, align), align}, true
}

// computeStructSizes resolves the layout of every struct, repeating until no struct that depends on
// another struct can make further progress.
//
// Parameters:
//   - structs: all struct blocks of the module
//
// Returns:
//   - map[string]wgslTypeLayout: layouts keyed by struct name
func computeStructSizes(structs []parsedStruct) map[string]wgslTypeLayout {
	resolved := make(map[string]wgslTypeLayout, len(structs))
	pending := append([]parsedStruct(nil), structs...)
	for len(pending) > 0 {
		var unresolved []parsedStruct
		for _, ps := range pending {
			if l, ok := computeStructLayout(ps, resolved); ok {
				resolved[ps.name] = l
			} else {
				unresolved = append(unresolved, ps)
			}
		}
		if len(unresolved) == len(pending) {
			break
		}
		pending = unresolved
	}
	return resolved
}

// classifyResource builds the layout entry for a buffer declaration. Handle types such as textures and
// samplers produce an entry with an undefined buffer type, which the resource builder rejects.
//
// Parameters:
//   - binding: the @binding index
//   - visibility: the stages that can see the binding
//   - addressSpace: the var<...> qualifier, e.g. "uniform" or "storage, read"
//
// Returns:
//   - wgpu.BindGroupLayoutEntry: the layout entry
func classifyResource(binding uint32, visibility wgpu.ShaderStage, addressSpace string) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: visibility,
	}
	switch {
	case addressSpace == "uniform":
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
	case strings.HasPrefix(addressSpace, "storage") && strings.Contains(addressSpace, "read_write"):
		entry.Buffer.Type = wgpu.BufferBindingTypeStorage
	case strings.HasPrefix(addressSpace, "storage"):
		entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
	}
	return entry
}

// stripComments removes line comments and (possibly nested) block comments from WGSL source.
func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		next := byte(0)
		if i+1 < len(source) {
			next = source[i+1]
		}
		switch {
		case source[i] == '/' && next == '*':
			depth++
			i++
		case depth > 0 && source[i] == '*' && next == '/':
			depth--
			i++
		case depth > 0:
			if source[i] == '\n' {
				sb.WriteByte('\n')
			}
		case source[i] == '/' && next == '/':
			for i < len(source) && source[i] != '\n' {
				i++
			}
			if i < len(source) {
				sb.WriteByte('\n')
			}
		default:
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}

// buildVertexBufferLayout packs the vertex inputs in declaration order into one interleaved layout.
//
// Parameters:
//   - ps: the vertex inputs, each with a @location
//
// Returns:
//   - wgpu.VertexBufferLayout: the interleaved layout with its stride
//   - error: if an input type has no vertex format
func buildVertexBufferLayout(ps parsedStruct) (wgpu.VertexBufferLayout, error) {
	attrs := make([]wgpu.VertexAttribute, 0, len(ps.fields))
	var offset uint64
	for _, f := range ps.fields {
		info, ok := wgslVertexFormatMap[f.typeName]
		if !ok {
			return wgpu.VertexBufferLayout{}, fmt.Errorf("vertex input %q of %s has unsupported type %q", f.name, ps.name, f.typeName)
		}
		attrs = append(attrs, wgpu.VertexAttribute{
			Format:         info.format,
			Offset:         offset,
			ShaderLocation: uint32(f.location),
		})
		offset += info.size
	}
	return wgpu.VertexBufferLayout{
		ArrayStride: offset,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes:  attrs,
	}, nil
}

// splitAtTopLevelCommas splits a field or parameter list at commas outside of <...> and (...),
// so array<T, N> and @interpolate(flat, either) stay in one piece.
func splitAtTopLevelCommas(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<', '(':
			depth++
		case '>', ')':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
