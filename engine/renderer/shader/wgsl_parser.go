package shader

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// wgslVertexFormatMap maps WGSL type names to their corresponding wgpu vertex format, byte size and component count
var wgslVertexFormatMap = map[string]vertexFormatInfo{
	"f32":       {wgpu.VertexFormatFloat32, 4, 1},
	"vec2f":     {wgpu.VertexFormatFloat32x2, 8, 2},
	"vec2<f32>": {wgpu.VertexFormatFloat32x2, 8, 2},
	"vec3f":     {wgpu.VertexFormatFloat32x3, 12, 3},
	"vec3<f32>": {wgpu.VertexFormatFloat32x3, 12, 3},
	"vec4f":     {wgpu.VertexFormatFloat32x4, 16, 4},
	"vec4<f32>": {wgpu.VertexFormatFloat32x4, 16, 4},
	"i32":       {wgpu.VertexFormatSint32, 4, 1},
	"vec2i":     {wgpu.VertexFormatSint32x2, 8, 2},
	"vec2<i32>": {wgpu.VertexFormatSint32x2, 8, 2},
	"vec3i":     {wgpu.VertexFormatSint32x3, 12, 3},
	"vec3<i32>": {wgpu.VertexFormatSint32x3, 12, 3},
	"vec4i":     {wgpu.VertexFormatSint32x4, 16, 4},
	"vec4<i32>": {wgpu.VertexFormatSint32x4, 16, 4},
	"u32":       {wgpu.VertexFormatUint32, 4, 1},
	"vec2u":     {wgpu.VertexFormatUint32x2, 8, 2},
	"vec2<u32>": {wgpu.VertexFormatUint32x2, 8, 2},
	"vec3u":     {wgpu.VertexFormatUint32x3, 12, 3},
	"vec3<u32>": {wgpu.VertexFormatUint32x3, 12, 3},
	"vec4u":     {wgpu.VertexFormatUint32x4, 16, 4},
	"vec4<u32>": {wgpu.VertexFormatUint32x4, 16, 4},
}

var (
	// structBlockRegex matches struct declarations and captures the name and body
	structBlockRegex = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)

	// locationRegex matches @location(N) attributes
	locationRegex = regexp.MustCompile(`@location\((\d+)\)`)

	// builtinRegex matches @builtin(...) attributes
	builtinRegex = regexp.MustCompile(`@builtin\(\w+\)`)

	// fieldRegex matches a struct field line: optional attributes, name, colon, type.
	// The type capture (.+) is greedy to handle parameterized types like array<T, N>.
	fieldRegex = regexp.MustCompile(`(?:(?:@\w+\([^)]*\)\s*)*)*\s*(\w+)\s*:\s*(.+)`)

	// entrySignatureRegex captures the name, parameter list and optional return type of a function
	// following a stage attribute. The return type may carry its own attributes, e.g. -> @location(0) vec4f.
	entrySignatureRegex = regexp.MustCompile(`(?s)@(vertex|fragment)\b.*?\bfn\s+(\w+)\s*\(((?:[^()]|\([^()]*\))*)\)\s*(?:->\s*((?:@\w+\([^)]*\)\s*)*[\w<>]+))?`)

	// bindGroupDeclRegex captures group, binding, optional address space, variable name, and type
	// from declarations like: @group(0) @binding(0) var<uniform> uniforms: MyUniforms;
	bindGroupDeclRegex = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)

	// attributePrefixRegex strips leading attributes from a return type
	attributePrefixRegex = regexp.MustCompile(`^(?:@\w+\([^)]*\)\s*)+`)
)

// parseEntrySignatures extracts every @vertex and @fragment function signature from WGSL source.
//
// Parameters:
//   - source: WGSL source with comments already stripped
//
// Returns:
//   - map[string][]entrySignature: signatures keyed by stage name ("vertex" or "fragment")
func parseEntrySignatures(source string) map[string][]entrySignature {
	result := make(map[string][]entrySignature)
	for _, m := range entrySignatureRegex.FindAllStringSubmatch(source, -1) {
		ret := strings.TrimSpace(attributePrefixRegex.ReplaceAllString(strings.TrimSpace(m[4]), ""))
		result[m[1]] = append(result[m[1]], entrySignature{
			name:       m[2],
			params:     m[3],
			returnType: ret,
		})
	}
	return result
}

// findEntry returns the signature with the given name among the stage's entry points.
func findEntry(entries []entrySignature, name string) (entrySignature, bool) {
	for _, e := range entries {
		if e.name == name {
			return e, true
		}
	}
	return entrySignature{}, false
}

// parseVertexLayout builds the vertex buffer layout consumed by a vertex entry point. The inputs are either
// declared directly as @location parameters or gathered in a single struct parameter.
// Entry points without vertex inputs yield an empty layout slice.
//
// Parameters:
//   - entry: the vertex entry point signature
//   - structs: all struct blocks of the module
//
// Returns:
//   - []wgpu.VertexBufferLayout: zero or one layout for buffer slot 0
//   - error: if an input has a type that cannot be fed from a vertex buffer
func parseVertexLayout(entry entrySignature, structs []parsedStruct) ([]wgpu.VertexBufferLayout, error) {
	params := parseStructFields(entry.params)
	var inputs []parsedField
	for _, p := range params {
		if p.isBuiltin {
			continue
		}
		if p.location >= 0 {
			inputs = append(inputs, p)
			continue
		}
		ps, ok := findStruct(structs, p.typeName)
		if !ok {
			return nil, fmt.Errorf("vertex input %q has unknown type %q", p.name, p.typeName)
		}
		for _, f := range ps.fields {
			if !f.isBuiltin && f.location >= 0 {
				inputs = append(inputs, f)
			}
		}
	}
	if len(inputs) == 0 {
		return nil, nil
	}
	layout, err := buildVertexBufferLayout(parsedStruct{name: entry.name, fields: inputs})
	if err != nil {
		return nil, err
	}
	return []wgpu.VertexBufferLayout{layout}, nil
}

// countInterStageComponents sums the scalar components of every user-defined output of a vertex entry point.
// Builtin outputs such as the clip position are not counted.
//
// Parameters:
//   - entry: the vertex entry point signature
//   - structs: all struct blocks of the module
//
// Returns:
//   - uint32: the number of inter-stage scalar components
func countInterStageComponents(entry entrySignature, structs []parsedStruct) uint32 {
	ps, ok := findStruct(structs, entry.returnType)
	if !ok {
		return 0
	}
	var total uint32
	for _, f := range ps.fields {
		if f.isBuiltin || f.location < 0 {
			continue
		}
		if info, ok := wgslVertexFormatMap[f.typeName]; ok {
			total += info.components
		}
	}
	return total
}

func findStruct(structs []parsedStruct, name string) (parsedStruct, bool) {
	for _, ps := range structs {
		if ps.name == name {
			return ps, true
		}
	}
	return parsedStruct{}, false
}

// parseBindGroupLayouts extracts all @group(N) @binding(M) resource declarations from WGSL
// source and returns them as wgpu.BindGroupLayoutDescriptor values grouped by group index.
// Each descriptor's entries are sorted by binding index. The provided visibility flag is
// applied to all entries.
//
// Parameters:
//   - source: WGSL source with comments already stripped
//   - visibility: the shader stage visibility flag to set on each entry
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: layout descriptors keyed by group index
//   - map[int]map[int]string: variable names keyed by group and binding index for resource tracking
func parseBindGroupLayouts(source string, visibility wgpu.ShaderStage) (map[int]wgpu.BindGroupLayoutDescriptor, map[int]map[int]string) {
	groups := make(map[int][]wgpu.BindGroupLayoutEntry)
	varNames := make(map[int]map[int]string)

	// Struct sizes drive MinBindingSize on buffer entries so uniform buffers can be sized from the shader.
	structs := parseStructBlocks(source)
	structSizes := computeStructSizes(structs)

	matches := bindGroupDeclRegex.FindAllStringSubmatch(source, -1)
	for _, match := range matches {
		group, _ := strconv.Atoi(match[1])
		binding, _ := strconv.Atoi(match[2])
		addressSpace := strings.TrimSpace(match[3])
		varName := strings.TrimSpace(match[4])
		typeName := strings.TrimSpace(match[5])

		entry := classifyResource(uint32(binding), visibility, addressSpace)

		if entry.Buffer.Type != wgpu.BufferBindingTypeUndefined {
			if layout, ok := resolveTypeLayout(typeName, structSizes); ok && layout.size > 0 {
				entry.Buffer.MinBindingSize = layout.size
			}
		}

		groups[group] = append(groups[group], entry)

		if varNames[group] == nil {
			varNames[group] = make(map[int]string)
		}
		varNames[group][binding] = varName
	}

	result := make(map[int]wgpu.BindGroupLayoutDescriptor, len(groups))
	for g, entries := range groups {
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Binding < entries[j].Binding
		})
		result[g] = wgpu.BindGroupLayoutDescriptor{
			Entries: entries,
		}
	}

	return result, varNames
}

// parseStructBlocks finds all struct { ... } blocks in the cleaned WGSL source
// and parses their fields including @location and @builtin attributes
//
// Parameters:
//   - source: WGSL source with comments already stripped
//
// Returns:
//   - []parsedStruct: all struct blocks found in the source
func parseStructBlocks(source string) []parsedStruct {
	matches := structBlockRegex.FindAllStringSubmatch(source, -1)
	structs := make([]parsedStruct, 0, len(matches))

	for _, match := range matches {
		structs = append(structs, parsedStruct{
			name:   match[1],
			fields: parseStructFields(match[2]),
		})
	}

	return structs
}

// parseStructFields parses a comma separated field or parameter list,
// extracting @location and @builtin attributes along with the field name and type
//
// Parameters:
//   - body: the content between { and } of a struct declaration, or between ( and ) of a function
//
// Returns:
//   - []parsedField: all fields found in the body
func parseStructFields(body string) []parsedField {
	lines := splitAtTopLevelCommas(body)
	fields := make([]parsedField, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var field parsedField

		if builtinRegex.MatchString(line) {
			field.isBuiltin = true
		}

		if locMatch := locationRegex.FindStringSubmatch(line); locMatch != nil {
			loc, err := strconv.Atoi(locMatch[1])
			if err == nil {
				field.location = loc
			}
		} else {
			field.location = -1
		}

		if fm := fieldRegex.FindStringSubmatch(line); fm != nil {
			field.name = fm[1]
			field.typeName = strings.TrimSpace(fm[2])
		} else {
			continue
		}

		fields = append(fields, field)
	}

	return fields
}
