package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-frame/engine/renderer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := parseConfig(nil, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 640, cfg.Window.Width)
	assert.Equal(t, "fifo", cfg.Surface.PresentMode)
	assert.Zero(t, cfg.Frame.MaxFrames)
}

func TestParseConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[window]
width = 1024
height = 768

[surface]
present_mode = "immediate"
`), 0o644))

	cfg, err := parseConfig([]string{"--config", path, "--height", "600", "--max-frames", "10", "--profile"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, 1024, cfg.Window.Width)
	assert.Equal(t, 600, cfg.Window.Height)
	assert.Equal(t, "immediate", cfg.Surface.PresentMode)
	assert.Equal(t, uint64(10), cfg.Frame.MaxFrames)
	assert.True(t, cfg.Frame.Profile)
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"--bogus"}},
		{"invalid present mode", []string{"--present-mode", "triple"}},
		{"non-positive width", []string{"--width", "0"}},
		{"missing config file", []string{"--config", filepath.Join(os.TempDir(), "does-not-exist.toml")}},
		{"positional argument", []string{"extra"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseConfig(tt.args, &bytes.Buffer{})
			assert.Error(t, err)
		})
	}
}

func TestRunExitCodes(t *testing.T) {
	var stderr bytes.Buffer
	assert.Equal(t, exitUsage, run([]string{"--log-level", "loud"}, &stderr))
	assert.Contains(t, stderr.String(), "unknown log level")

	stderr.Reset()
	assert.Equal(t, exitOK, run([]string{"--help"}, &stderr))
}

func TestFailureMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"negotiation", &renderer.StageError{Category: renderer.CategoryNegotiation, Stage: "request adapter", Err: renderer.ErrNoAdapter}, "startup failed"},
		{"construction", &renderer.StageError{Category: renderer.CategoryConstruction, Stage: "load shader", Err: errors.New("bad shader")}, "startup failed"},
		{"presentation", &renderer.StageError{Category: renderer.CategoryPresentation, Stage: "acquire image", Err: errors.New("lost")}, "frame loop failed"},
		{"wrapped presentation", fmt.Errorf("session: %w", &renderer.StageError{Category: renderer.CategoryPresentation, Stage: "submit", Err: errors.New("lost")}), "frame loop failed"},
		{"plain", errors.New("engine is already running"), "startup failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, failureMessage(tt.err))
		})
	}
}
