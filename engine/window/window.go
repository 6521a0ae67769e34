package window

import (
	"fmt"
	"sync/atomic"

	"github.com/cogentcore/webgpu/wgpu"
)

// Window is the native window that backs the presentation surface. It supplies the platform surface descriptor
// and the event pump polled by the frame loop.
//
// All methods except RequestClose must be called from the thread that created the window.
type Window interface {
	// SetKeyCallback sets the callback for key events. Escape always requests close before the callback runs.
	//
	// Parameters:
	//   - callback: function receiving the GLFW key code and whether the key went down (or nil to disable)
	SetKeyCallback(callback func(keyCode uint32, pressed bool))

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is platform-appropriate (Windows HWND, X11 Xlib, Wayland, macOS Metal, etc.)
	// and is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if window is not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// PollEvents processes pending window events without blocking.
	PollEvents()

	// ShouldClose reports whether the user or RequestClose asked the window to close.
	//
	// Returns:
	//   - bool: true once a close was requested
	ShouldClose() bool

	// RequestClose asks the window to close. It is safe to call from any goroutine.
	RequestClose()

	// Close destroys the window and releases platform resources.
	//
	// Returns:
	//   - error: error if the window was never created or is already closed
	Close() error

	// Width returns the framebuffer width in pixels.
	//
	// Returns:
	//   - int: width in pixels
	Width() int

	// Height returns the framebuffer height in pixels.
	//
	// Returns:
	//   - int: height in pixels
	Height() int
}

// engineWindow is the implementation of the Window interface.
type engineWindow struct {
	// title is the window title displayed in the title bar.
	title string

	// width is the framebuffer width in pixels.
	width int

	// height is the framebuffer height in pixels.
	height int

	// internalWindow holds the platform-specific window data (glfwWindow).
	internalWindow any

	// closeRequested is set by RequestClose, possibly from another goroutine.
	closeRequested atomic.Bool

	// onKey is called for key presses and releases.
	onKey func(keyCode uint32, pressed bool)
}

var _ Window = &engineWindow{}

// NewWindow creates and shows a fixed-size window.
// Applies default values first, then each option in order.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the created window
//   - error: error if the platform cannot create the window
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := newEngineWindow(options...)
	if w.width <= 0 || w.height <= 0 {
		return nil, fmt.Errorf("invalid window size %dx%d", w.width, w.height)
	}
	if err := newPlatformWindow(w); err != nil {
		return nil, fmt.Errorf("failed to create platform window: %w", err)
	}
	return w, nil
}

func newEngineWindow(options ...WindowBuilderOption) *engineWindow {
	w := &engineWindow{
		title:  "This is WebGPU",
		width:  640,
		height: 480,
	}
	for _, opt := range options {
		opt(w)
	}
	return w
}

func (w *engineWindow) SetKeyCallback(callback func(keyCode uint32, pressed bool)) {
	w.onKey = callback
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) PollEvents() {
	platformPollEvents(w)
}

func (w *engineWindow) ShouldClose() bool {
	return w.closeRequested.Load() || platformShouldClose(w)
}

func (w *engineWindow) RequestClose() {
	w.closeRequested.Store(true)
	platformWake(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}
