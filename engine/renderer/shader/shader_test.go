package shader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frameWGSL = `
// Uniform block shared by both stages.
struct Uniforms {
    color: vec4f,
    time: f32,
};

@group(0) @binding(0) var<uniform> uniforms: Uniforms;

struct VertexInput {
    @location(0) position: vec2f,
    @location(1) color: vec3f,
};

/* The clip position is a builtin and does not count
   towards the inter-stage budget. */
struct VertexOutput {
    @builtin(position) position: vec4f,
    @location(0) color: vec3f,
};

@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    let offset = 0.3 * vec2f(cos(uniforms.time), sin(uniforms.time));
    out.position = vec4f(in.position + offset, 0.0, 1.0);
    out.color = in.color;
    return out;
}

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4f {
    return vec4f(in.color * uniforms.color.rgb, uniforms.color.a);
}
`

func TestNewShaderParsesFrameShader(t *testing.T) {
	s, err := NewShader("Frame Shader", frameWGSL)
	require.NoError(t, err)

	assert.Equal(t, "Frame Shader", s.Key())
	assert.Equal(t, DefaultVertexEntryPoint, s.VertexEntryPoint())
	assert.Equal(t, DefaultFragmentEntryPoint, s.FragmentEntryPoint())

	layouts := s.VertexLayouts()
	require.Len(t, layouts, 1)
	assert.Equal(t, uint64(20), layouts[0].ArrayStride)
	assert.Equal(t, wgpu.VertexStepModeVertex, layouts[0].StepMode)
	assert.Equal(t, []wgpu.VertexAttribute{
		{Format: wgpu.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
		{Format: wgpu.VertexFormatFloat32x3, Offset: 8, ShaderLocation: 1},
	}, layouts[0].Attributes)

	assert.Equal(t, uint32(3), s.InterStageComponents())

	descriptors := s.BindGroupLayoutDescriptors()
	require.Len(t, descriptors, 1)
	entries := s.BindGroupLayoutDescriptor(0).Entries
	require.Len(t, entries, 1)
	assert.Equal(t, uint32(0), entries[0].Binding)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, entries[0].Buffer.Type)
	assert.Equal(t, uint64(32), entries[0].Buffer.MinBindingSize)
	assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, entries[0].Visibility)
	assert.Equal(t, "uniforms", s.BindGroupVarName(0, 0))
	assert.Empty(t, s.BindGroupVarName(1, 0))
}

func TestNewShaderLocationParameters(t *testing.T) {
	src := `
@vertex
fn draw(@builtin(vertex_index) i: u32, @location(1) color: vec3f, @location(0) position: vec4f) -> @builtin(position) vec4f {
    return position;
}

@fragment
fn shade() -> @location(0) vec4f {
    return vec4f(1.0);
}
`
	s, err := NewShader("Params", src, WithVertexEntryPoint("draw"), WithFragmentEntryPoint("shade"))
	require.NoError(t, err)

	layouts := s.VertexLayouts()
	require.Len(t, layouts, 1)
	assert.Equal(t, uint64(28), layouts[0].ArrayStride)
	require.Len(t, layouts[0].Attributes, 2)
	assert.Equal(t, uint32(1), layouts[0].Attributes[0].ShaderLocation)
	assert.Equal(t, uint64(12), layouts[0].Attributes[1].Offset)
	assert.Zero(t, s.InterStageComponents())
	assert.Empty(t, s.BindGroupLayoutDescriptors())
}

func TestNewShaderErrors(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		options []ShaderBuilderOption
		errIs   error
		errText string
	}{
		{
			name:   "missing vertex entry",
			source: "@fragment fn fs_main() -> @location(0) vec4f { return vec4f(1.0); }",
			errIs:  ErrMissingEntryPoint,
		},
		{
			name:   "missing fragment entry",
			source: "@vertex fn vs_main() -> @builtin(position) vec4f { return vec4f(0.0); }",
			errIs:  ErrMissingEntryPoint,
		},
		{
			name:    "renamed entry not found",
			source:  frameWGSL,
			options: []ShaderBuilderOption{WithVertexEntryPoint("main")},
			errIs:   ErrMissingEntryPoint,
		},
		{
			name: "unsupported vertex input",
			source: `
@vertex fn vs_main(@location(0) m: mat2x2f) -> @builtin(position) vec4f { return vec4f(0.0); }
@fragment fn fs_main() -> @location(0) vec4f { return vec4f(1.0); }
`,
			errText: "unsupported type",
		},
		{
			name: "unknown input struct",
			source: `
@vertex fn vs_main(in: Missing) -> @builtin(position) vec4f { return vec4f(0.0); }
@fragment fn fs_main() -> @location(0) vec4f { return vec4f(1.0); }
`,
			errText: "unknown type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewShader("Broken", tt.source, tt.options...)
			require.Error(t, err)
			if tt.errIs != nil {
				assert.ErrorIs(t, err, tt.errIs)
			}
			if tt.errText != "" {
				assert.Contains(t, err.Error(), tt.errText)
			}
		})
	}
}

func TestCommentedOutEntryIsIgnored(t *testing.T) {
	src := strings.Replace(frameWGSL, "@fragment", "// @fragment", 1)
	_, err := NewShader("Commented", src)
	assert.ErrorIs(t, err, ErrMissingEntryPoint)
}

func TestNewShaderFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shader.wgsl")
	require.NoError(t, os.WriteFile(path, []byte(frameWGSL), 0o644))

	s, err := NewShaderFromPath("File Shader", path)
	require.NoError(t, err)
	assert.Equal(t, frameWGSL, s.Source())

	_, err = NewShaderFromPath("Missing", filepath.Join(t.TempDir(), "nope.wgsl"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestValidate(t *testing.T) {
	s, err := NewShader("Frame Shader", frameWGSL)
	require.NoError(t, err)
	if err := s.Validate(); err != nil && strings.Contains(err.Error(), "not yet implemented") {
		t.Skipf("naga feature not yet implemented: %v", err)
	} else {
		assert.NoError(t, err)
	}

	broken, err := NewShader("Broken", frameWGSL+"\nfn dangling( {")
	require.NoError(t, err)
	assert.Error(t, broken.Validate())
}

func TestStructLayouts(t *testing.T) {
	structs := parseStructBlocks(stripComments(`
struct Inner { a: vec3f, b: f32, };
struct Outer { m: mat4x4f, inner: Inner, list: array<vec2f, 3>, };
`))
	sizes := computeStructSizes(structs)
	assert.Equal(t, wgslTypeLayout{16, 16}, sizes["Inner"])
	assert.Equal(t, wgslTypeLayout{112, 16}, sizes["Outer"])
}

func TestStripComments(t *testing.T) {
	src := "a // line\n/* outer /* nested */ still */b\nc"
	assert.Equal(t, "a \nb\nc", stripComments(src))
}
