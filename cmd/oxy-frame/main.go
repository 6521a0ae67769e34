// Command oxy-frame opens a window and draws the configured geometry with a single WebGPU pipeline until the
// window is closed.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine"
	"github.com/Carmen-Shannon/oxy-frame/engine/config"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/hal/webgpu"

	"github.com/spf13/pflag"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func init() {
	// GLFW and wgpu-native must be driven from the main thread.
	runtime.LockOSThread()
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	cfg, err := parseConfig(args, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "oxy-frame: %v\n", err)
		return exitUsage
	}

	common.SetLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: logLevel(cfg.Log.Level)})))
	if err := webgpu.SetLogLevel(cfg.Log.WGPULevel); err != nil {
		fmt.Fprintf(stderr, "oxy-frame: %v\n", err)
		return exitUsage
	}

	e := engine.NewEngine(cfg)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)
	go func() {
		if sig, ok := <-signals; ok {
			common.Logger().Info("signal received, closing window", slog.String("signal", sig.String()))
			e.Quit()
		}
	}()

	reason, err := e.Run()
	if err != nil {
		logFailure(err)
		return exitFailure
	}
	common.Logger().Info("session ended", slog.String("reason", reason.String()))
	return exitOK
}

// parseConfig loads the optional config file and applies the flags that were set on top of it.
func parseConfig(args []string, output io.Writer) (*config.Config, error) {
	fs := pflag.NewFlagSet("oxy-frame", pflag.ContinueOnError)
	fs.SetOutput(output)

	defaults := config.Default()
	configPath := fs.StringP("config", "c", "", "path to a TOML configuration file")
	geometry := fs.String("geometry", defaults.Assets.GeometryPath, "geometry file to draw")
	shaderPath := fs.String("shader", defaults.Assets.ShaderPath, "WGSL shader with vs_main and fs_main entry points")
	width := fs.Int("width", defaults.Window.Width, "window width in pixels")
	height := fs.Int("height", defaults.Window.Height, "window height in pixels")
	title := fs.String("title", defaults.Window.Title, "window title")
	presentMode := fs.String("present-mode", defaults.Surface.PresentMode, "present mode: fifo, immediate or mailbox")
	maxFrames := fs.Uint64("max-frames", 0, "stop after this many frames, 0 runs until the window closes")
	level := fs.String("log-level", defaults.Log.Level, "log level: debug, info, warn or error")
	wgpuLevel := fs.String("wgpu-log-level", defaults.Log.WGPULevel, "wgpu-native log level: off, error, warn, info, debug or trace")
	fallback := fs.Bool("fallback-adapter", false, "force the software fallback adapter")
	profile := fs.Bool("profile", false, "log frame statistics every second")
	verify := fs.Bool("verify-uploads", false, "read the uniform buffer back after the initial upload and compare it")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	cfg := defaults
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if fs.Changed("geometry") {
		cfg.Assets.GeometryPath = *geometry
	}
	if fs.Changed("shader") {
		cfg.Assets.ShaderPath = *shaderPath
	}
	if fs.Changed("width") {
		cfg.Window.Width = *width
	}
	if fs.Changed("height") {
		cfg.Window.Height = *height
	}
	if fs.Changed("title") {
		cfg.Window.Title = *title
	}
	if fs.Changed("present-mode") {
		cfg.Surface.PresentMode = *presentMode
	}
	if fs.Changed("max-frames") {
		cfg.Frame.MaxFrames = *maxFrames
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = *level
	}
	if fs.Changed("wgpu-log-level") {
		cfg.Log.WGPULevel = *wgpuLevel
	}
	if fs.Changed("fallback-adapter") {
		cfg.Device.ForceFallbackAdapter = *fallback
	}
	if fs.Changed("profile") {
		cfg.Frame.Profile = *profile
	}
	if fs.Changed("verify-uploads") {
		cfg.Frame.VerifyUploads = *verify
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func logFailure(err error) {
	msg := failureMessage(err)
	var stageErr *renderer.StageError
	if errors.As(err, &stageErr) {
		common.Logger().Error(msg,
			slog.String("stage", stageErr.Stage),
			slog.String("category", stageErr.Category.String()),
			slog.String("error", stageErr.Err.Error()),
		)
		return
	}
	common.Logger().Error(msg, slog.String("error", err.Error()))
}

// failureMessage names the phase a session failed in. Presentation failures happen inside the frame loop.
func failureMessage(err error) string {
	var stageErr *renderer.StageError
	if errors.As(err, &stageErr) && stageErr.Category == renderer.CategoryPresentation {
		return "frame loop failed"
	}
	return "startup failed"
}
