package shader

import (
	"errors"
	"fmt"
	"os"

	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/hal"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/naga"
)

const (
	// DefaultVertexEntryPoint is the vertex stage function looked up when no other name is configured.
	DefaultVertexEntryPoint = "vs_main"

	// DefaultFragmentEntryPoint is the fragment stage function looked up when no other name is configured.
	DefaultFragmentEntryPoint = "fs_main"
)

// ErrMissingEntryPoint is returned when the source has no @vertex or @fragment function with the configured name.
var ErrMissingEntryPoint = errors.New("shader entry point not found")

// shader is the implementation of the Shader interface.
// It holds the WGSL source and the layout metadata derived from it.
type shader struct {
	key                        string
	source                     string
	vertexEntryPoint           string
	fragmentEntryPoint         string
	visibility                 wgpu.ShaderStage
	vertexLayouts              []wgpu.VertexBufferLayout
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	bindingVarNames            map[int]map[int]string
	interStageComponents       uint32
}

// Shader is a parsed WGSL module with one vertex and one fragment entry point. It exposes the vertex buffer layout
// the vertex stage consumes, the bind group layouts the module declares and the number of scalar components passed
// from the vertex to the fragment stage, so the resource builder can check them against the device envelope
// before any pipeline is created.
type Shader interface {
	// Key retrieves the unique identifier of the shader, used as the module label.
	//
	// Returns:
	//   - string: the shader's key
	Key() string

	// Source retrieves the WGSL source code.
	//
	// Returns:
	//   - string: the WGSL source
	Source() string

	// VertexEntryPoint returns the name of the @vertex function.
	VertexEntryPoint() string

	// FragmentEntryPoint returns the name of the @fragment function.
	FragmentEntryPoint() string

	// VertexLayouts retrieves the vertex buffer layouts of the vertex entry point, one per buffer slot.
	// Inputs are interleaved into a single slot in @location declaration order.
	//
	// Returns:
	//   - []wgpu.VertexBufferLayout: the layouts, empty if the vertex stage has no vertex inputs
	VertexLayouts() []wgpu.VertexBufferLayout

	// BindGroupLayoutDescriptor retrieves the layout descriptor for one bind group.
	//
	// Parameters:
	//   - group: the @group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the descriptor, or an empty descriptor if the group is not declared
	BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor

	// BindGroupLayoutDescriptors retrieves all declared bind group layouts. Buffer entries carry the
	// MinBindingSize computed from the WGSL struct layout rules.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupVarName retrieves the variable name declared at a group and binding.
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index within the group
	//
	// Returns:
	//   - string: the variable name, or an empty string if nothing is declared there
	BindGroupVarName(group, binding int) string

	// InterStageComponents returns the number of scalar components the vertex stage passes to the fragment stage.
	InterStageComponents() uint32

	// Validate compiles the source with naga without touching a device.
	//
	// Returns:
	//   - error: the compiler error if the source is not valid WGSL
	Validate() error

	// CreateModule compiles the shader on a device.
	//
	// Parameters:
	//   - device: the device that will own the module
	//
	// Returns:
	//   - hal.ShaderModule: the compiled module
	//   - error: error if the device rejects the source
	CreateModule(device hal.Device) (hal.ShaderModule, error)
}

var _ Shader = &shader{}

// NewShader parses WGSL source and derives the layouts of the configured entry points.
//
// Parameters:
//   - key: a unique identifier for the shader, used as the module label
//   - source: the WGSL source
//   - options: optional configuration such as the entry point names
//
// Returns:
//   - Shader: the parsed shader
//   - error: error if an entry point is missing or a vertex input cannot be fed from a buffer
func NewShader(key, source string, options ...ShaderBuilderOption) (Shader, error) {
	s := &shader{
		key:                key,
		source:             source,
		vertexEntryPoint:   DefaultVertexEntryPoint,
		fragmentEntryPoint: DefaultFragmentEntryPoint,
		visibility:         wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
	}
	for _, opt := range options {
		opt(s)
	}
	if err := s.parse(); err != nil {
		return nil, fmt.Errorf("shader %s: %w", key, err)
	}
	return s, nil
}

// NewShaderFromPath reads a WGSL file and parses it with NewShader.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - path: the path of the WGSL file
//   - options: optional configuration such as the entry point names
//
// Returns:
//   - Shader: the parsed shader
//   - error: error if the file cannot be read or parsed
func NewShaderFromPath(key, path string, options ...ShaderBuilderOption) (Shader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("shader %s: failed to read source: %w", key, err)
	}
	return NewShader(key, string(data), options...)
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) VertexEntryPoint() string {
	return s.vertexEntryPoint
}

func (s *shader) FragmentEntryPoint() string {
	return s.fragmentEntryPoint
}

func (s *shader) VertexLayouts() []wgpu.VertexBufferLayout {
	return s.vertexLayouts
}

func (s *shader) BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors[group]
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) BindGroupVarName(group, binding int) string {
	if s.bindingVarNames[group] == nil {
		return ""
	}
	return s.bindingVarNames[group][binding]
}

func (s *shader) InterStageComponents() uint32 {
	return s.interStageComponents
}

func (s *shader) Validate() error {
	if _, err := naga.Compile(s.source); err != nil {
		return fmt.Errorf("shader %s: invalid WGSL: %w", s.key, err)
	}
	return nil
}

func (s *shader) CreateModule(device hal.Device) (hal.ShaderModule, error) {
	module, err := device.CreateShaderModule(hal.ShaderModuleDescriptor{
		Label: s.key,
		WGSL:  s.source,
	})
	if err != nil {
		return nil, fmt.Errorf("shader %s: failed to create module: %w", s.key, err)
	}
	return module, nil
}

// parse derives the vertex layout, inter-stage component count and bind group layouts from the source.
func (s *shader) parse() error {
	clean := stripComments(s.source)
	structs := parseStructBlocks(clean)
	entries := parseEntrySignatures(clean)

	vs, ok := findEntry(entries["vertex"], s.vertexEntryPoint)
	if !ok {
		return fmt.Errorf("%w: @vertex fn %s", ErrMissingEntryPoint, s.vertexEntryPoint)
	}
	if _, ok := findEntry(entries["fragment"], s.fragmentEntryPoint); !ok {
		return fmt.Errorf("%w: @fragment fn %s", ErrMissingEntryPoint, s.fragmentEntryPoint)
	}

	layouts, err := parseVertexLayout(vs, structs)
	if err != nil {
		return err
	}
	s.vertexLayouts = layouts
	s.interStageComponents = countInterStageComponents(vs, structs)
	s.bindGroupLayoutDescriptors, s.bindingVarNames = parseBindGroupLayouts(clean, s.visibility)
	return nil
}

// VertexFormatSize returns the byte size of a vertex format the parser can produce.
//
// Parameters:
//   - format: the vertex attribute format
//
// Returns:
//   - uint64: the size in bytes, or 0 for a format the parser never emits
func VertexFormatSize(format wgpu.VertexFormat) uint64 {
	for _, info := range wgslVertexFormatMap {
		if info.format == format {
			return info.size
		}
	}
	return 0
}
