// Package config holds the session settings for a frame pipeline run. Values come from Default, an optional TOML file
// and command line overrides applied by the caller, in that order.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the root of the TOML document.
type Config struct {
	Window  WindowConfig  `toml:"window"`
	Device  DeviceConfig  `toml:"device"`
	Surface SurfaceConfig `toml:"surface"`
	Frame   FrameConfig   `toml:"frame"`
	Assets  AssetsConfig  `toml:"assets"`
	Log     LogConfig     `toml:"log"`
}

// WindowConfig describes the window that backs the presentation surface.
type WindowConfig struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

// DeviceConfig describes adapter selection and the capability envelope requested from the device.
type DeviceConfig struct {
	Label                string       `toml:"label"`
	ForceFallbackAdapter bool         `toml:"force_fallback_adapter"`
	HighPerformance      bool         `toml:"high_performance"`
	Limits               LimitsConfig `toml:"limits"`
}

// LimitsConfig overrides individual entries of the requested capability envelope. Zero keeps the built in value.
type LimitsConfig struct {
	MaxVertexAttributes             uint32 `toml:"max_vertex_attributes"`
	MaxVertexBuffers                uint32 `toml:"max_vertex_buffers"`
	MaxBufferSize                   uint64 `toml:"max_buffer_size"`
	MaxVertexBufferArrayStride      uint32 `toml:"max_vertex_buffer_array_stride"`
	MaxInterStageShaderComponents   uint32 `toml:"max_inter_stage_shader_components"`
	MaxBindGroups                   uint32 `toml:"max_bind_groups"`
	MaxUniformBuffersPerShaderStage uint32 `toml:"max_uniform_buffers_per_shader_stage"`
	MaxUniformBufferBindingSize     uint64 `toml:"max_uniform_buffer_binding_size"`
}

// SurfaceConfig describes how the presentation surface is configured.
type SurfaceConfig struct {
	// PresentMode is one of "fifo", "immediate" or "mailbox".
	PresentMode string `toml:"present_mode"`
}

// FrameConfig controls the steady state loop.
type FrameConfig struct {
	ClearColor    [4]float64 `toml:"clear_color"`
	MaxFrames     uint64     `toml:"max_frames"`
	DebugMarkers  bool       `toml:"debug_markers"`
	Profile       bool       `toml:"profile"`
	VerifyUploads bool       `toml:"verify_uploads"`
	// IndexFormat is "uint16" or "uint32".
	IndexFormat string `toml:"index_format"`
}

// AssetsConfig points at the geometry and shader files loaded at startup.
type AssetsConfig struct {
	GeometryPath string `toml:"geometry"`
	ShaderPath   string `toml:"shader"`
	Dimensions   int    `toml:"dimensions"`
}

// LogConfig sets the verbosity of the engine logger and of the native WebGPU layer.
type LogConfig struct {
	Level     string `toml:"level"`
	WGPULevel string `toml:"wgpu_level"`
}

var (
	presentModes = []string{"fifo", "immediate", "mailbox"}
	indexFormats = []string{"uint16", "uint32"}
	logLevels    = []string{"debug", "info", "warn", "error"}
	wgpuLevels   = []string{"off", "error", "warn", "info", "debug", "trace"}
)

// Default returns the configuration used when no file is given.
//
// Returns:
//   - *Config: a fully populated configuration
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			Title:  "This is WebGPU",
			Width:  640,
			Height: 480,
		},
		Device: DeviceConfig{
			Label: "Main Device",
		},
		Surface: SurfaceConfig{
			PresentMode: "fifo",
		},
		Frame: FrameConfig{
			ClearColor:  [4]float64{0.05, 0.05, 0.05, 1.0},
			IndexFormat: "uint16",
		},
		Assets: AssetsConfig{
			GeometryPath: "assets/geometry.txt",
			ShaderPath:   "assets/shader.wgsl",
			Dimensions:   2,
		},
		Log: LogConfig{
			Level:     "info",
			WGPULevel: "warn",
		},
	}
}

// Load reads a TOML file on top of Default. Keys missing from the file keep their default values.
//
// Parameters:
//   - path: the file to read
//
// Returns:
//   - *Config: the merged configuration
//   - error: if the file cannot be read, decoded or validated
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes TOML bytes on top of Default and validates the result.
//
// Parameters:
//   - data: the TOML document
//
// Returns:
//   - *Config: the merged configuration
//   - error: if the document is malformed, has unknown keys or fails validation
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return nil, fmt.Errorf("failed to decode config at line %d column %d: %w", row, col, err)
		}
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first setting that cannot be used.
//
// Returns:
//   - error: nil when the configuration is usable
func (c *Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size must be positive, got %dx%d", c.Window.Width, c.Window.Height)
	}
	if !oneOf(c.Surface.PresentMode, presentModes) {
		return fmt.Errorf("unknown present mode %q, expected one of %v", c.Surface.PresentMode, presentModes)
	}
	if !oneOf(c.Frame.IndexFormat, indexFormats) {
		return fmt.Errorf("unknown index format %q, expected one of %v", c.Frame.IndexFormat, indexFormats)
	}
	for i, v := range c.Frame.ClearColor {
		if v < 0 || v > 1 {
			return fmt.Errorf("clear color component %d out of range [0,1]: %v", i, v)
		}
	}
	if c.Assets.GeometryPath == "" {
		return errors.New("geometry path must not be empty")
	}
	if c.Assets.ShaderPath == "" {
		return errors.New("shader path must not be empty")
	}
	if c.Assets.Dimensions < 1 || c.Assets.Dimensions > 4 {
		return fmt.Errorf("geometry dimensions must be between 1 and 4, got %d", c.Assets.Dimensions)
	}
	if !oneOf(c.Log.Level, logLevels) {
		return fmt.Errorf("unknown log level %q, expected one of %v", c.Log.Level, logLevels)
	}
	if !oneOf(c.Log.WGPULevel, wgpuLevels) {
		return fmt.Errorf("unknown wgpu log level %q, expected one of %v", c.Log.WGPULevel, wgpuLevels)
	}
	return nil
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
