package engine

import (
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/hal"
	"github.com/Carmen-Shannon/oxy-frame/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables performance profiling output, overriding the configuration.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithAssetWorkers sets the number of workers used to prepare assets.
// Values <= 0 are ignored.
//
// Parameters:
//   - n: the worker count (default NumCPU-1, at least 1)
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithAssetWorkers(n int) EngineBuilderOption {
	return func(e *engine) {
		if n > 0 {
			e.assetWorkers = n
		}
	}
}

// WithShaderValidation enables or disables compiling the shader with naga before any GPU work.
func WithShaderValidation(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.validateShader = enabled
	}
}

// WithRendererOptions appends renderer options applied after the ones derived from the configuration.
//
// Parameters:
//   - options: the renderer options
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRendererOptions(options ...renderer.RendererBuilderOption) EngineBuilderOption {
	return func(e *engine) {
		e.rendererOptions = append(e.rendererOptions, options...)
	}
}

// WithWindowFactory replaces the platform window constructor.
func WithWindowFactory(factory func(options ...window.WindowBuilderOption) (window.Window, error)) EngineBuilderOption {
	return func(e *engine) {
		if factory != nil {
			e.newWindow = factory
		}
	}
}

// WithInstanceFactory replaces the WebGPU instance constructor, e.g. with an in-memory backend for headless runs.
func WithInstanceFactory(factory func() (hal.Instance, error)) EngineBuilderOption {
	return func(e *engine) {
		if factory != nil {
			e.newInstance = factory
		}
	}
}
