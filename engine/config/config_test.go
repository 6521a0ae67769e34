package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "This is WebGPU", cfg.Window.Title)
	assert.Equal(t, 640, cfg.Window.Width)
	assert.Equal(t, 480, cfg.Window.Height)
	assert.Equal(t, "fifo", cfg.Surface.PresentMode)
	assert.Equal(t, "uint16", cfg.Frame.IndexFormat)
	assert.Equal(t, 2, cfg.Assets.Dimensions)
}

func TestParseMergesOverDefaults(t *testing.T) {
	doc := `
[window]
title = "triangle"
width = 800

[device.limits]
max_vertex_attributes = 4

[frame]
max_frames = 120
clear_color = [1.0, 0.0, 0.0, 1.0]
`
	cfg, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "triangle", cfg.Window.Title)
	assert.Equal(t, 800, cfg.Window.Width)
	assert.Equal(t, 480, cfg.Window.Height, "unset keys keep defaults")
	assert.Equal(t, uint32(4), cfg.Device.Limits.MaxVertexAttributes)
	assert.Equal(t, uint64(120), cfg.Frame.MaxFrames)
	assert.Equal(t, [4]float64{1, 0, 0, 1}, cfg.Frame.ClearColor)
	assert.Equal(t, "fifo", cfg.Surface.PresentMode)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown key", "[window]\ncolour = 1\n"},
		{"malformed", "[window\n"},
		{"bad present mode", "[surface]\npresent_mode = \"vsync\"\n"},
		{"bad index format", "[frame]\nindex_format = \"uint8\"\n"},
		{"negative width", "[window]\nwidth = -1\n"},
		{"clear color range", "[frame]\nclear_color = [2.0, 0.0, 0.0, 1.0]\n"},
		{"dimensions", "[assets]\ndimensions = 0\n"},
		{"log level", "[log]\nlevel = \"loud\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oxy-frame.toml")
	require.NoError(t, os.WriteFile(path, []byte("[assets]\nshader = \"other.wgsl\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "other.wgsl", cfg.Assets.ShaderPath)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
