package renderer

import (
	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/pipeline"

	"github.com/cogentcore/webgpu/wgpu"
)

// ResourceOption configures BuildResources.
type ResourceOption func(*Resources)

// WithIndexFormat sets the width of one index in the index buffer.
//
// Parameters:
//   - format: wgpu.IndexFormatUint16 (default) or wgpu.IndexFormatUint32
//
// Returns:
//   - ResourceOption: the option
func WithIndexFormat(format wgpu.IndexFormat) ResourceOption {
	return func(r *Resources) {
		r.indexFormat = format
	}
}

// WithUniforms sets the uniform values uploaded at construction.
func WithUniforms(u Uniforms) ResourceOption {
	return func(r *Resources) {
		r.uniforms = u
	}
}

// WithPipelineOptions passes options through to the render pipeline.
//
// Parameters:
//   - options: pipeline options such as pipeline.WithCullMode
//
// Returns:
//   - ResourceOption: the option
func WithPipelineOptions(options ...pipeline.PipelineBuilderOption) ResourceOption {
	return func(r *Resources) {
		r.pipelineOptions = append(r.pipelineOptions, options...)
	}
}

// WithVerifyUploads reads the uniform buffer back after the initial upload and compares it with what was written.
func WithVerifyUploads(verify bool) ResourceOption {
	return func(r *Resources) {
		r.verifyUploads = verify
	}
}

// WithLabel sets the prefix of every resource label.
func WithLabel(label string) ResourceOption {
	return func(r *Resources) {
		r.label = common.Coalesce(label, r.label)
	}
}
