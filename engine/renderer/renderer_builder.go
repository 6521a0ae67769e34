package renderer

// RendererBuilderOption is a functional option used to configure a Renderer during construction.
type RendererBuilderOption func(*renderer)

// WithLimits sets the capability envelope requested from the device. DefaultLimits is used otherwise.
//
// Parameters:
//   - limits: the envelope
//
// Returns:
//   - RendererBuilderOption: a function that applies the limits
func WithLimits(limits Limits) RendererBuilderOption {
	return func(r *renderer) {
		r.limits = limits
	}
}

// WithNegotiatorOptions passes options to NegotiateDevice.
func WithNegotiatorOptions(options ...NegotiatorOption) RendererBuilderOption {
	return func(r *renderer) {
		r.negotiatorOptions = append(r.negotiatorOptions, options...)
	}
}

// WithResourceOptions passes options to BuildResources.
func WithResourceOptions(options ...ResourceOption) RendererBuilderOption {
	return func(r *renderer) {
		r.resourceOptions = append(r.resourceOptions, options...)
	}
}

// WithSurfaceOptions passes options to the surface manager.
func WithSurfaceOptions(options ...SurfaceOption) RendererBuilderOption {
	return func(r *renderer) {
		r.surfaceOptions = append(r.surfaceOptions, options...)
	}
}

// WithFrameLoopOptions passes options to the frame loop.
//
// Parameters:
//   - options: frame loop options such as WithMaxFrames
//
// Returns:
//   - RendererBuilderOption: a function that appends the options
func WithFrameLoopOptions(options ...FrameLoopOption) RendererBuilderOption {
	return func(r *renderer) {
		r.frameLoopOptions = append(r.frameLoopOptions, options...)
	}
}
