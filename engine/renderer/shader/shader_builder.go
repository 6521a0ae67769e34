package shader

import "github.com/cogentcore/webgpu/wgpu"

// ShaderBuilderOption configures a shader before its source is parsed.
type ShaderBuilderOption func(*shader)

// WithVertexEntryPoint sets the name of the @vertex function to use.
//
// Parameters:
//   - name: the function name, "vs_main" by default
//
// Returns:
//   - ShaderBuilderOption: the option
func WithVertexEntryPoint(name string) ShaderBuilderOption {
	return func(s *shader) {
		s.vertexEntryPoint = name
	}
}

// WithFragmentEntryPoint sets the name of the @fragment function to use.
//
// Parameters:
//   - name: the function name, "fs_main" by default
//
// Returns:
//   - ShaderBuilderOption: the option
func WithFragmentEntryPoint(name string) ShaderBuilderOption {
	return func(s *shader) {
		s.fragmentEntryPoint = name
	}
}

// WithVisibility sets the stage visibility applied to every parsed bind group entry.
// The default is the vertex and fragment stages.
func WithVisibility(visibility wgpu.ShaderStage) ShaderBuilderOption {
	return func(s *shader) {
		s.visibility = visibility
	}
}
