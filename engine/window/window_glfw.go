package window

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-frame/common"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// glfwWindow holds the GLFW-specific window state.
type glfwWindow struct {
	window *glfw.Window
	closed atomic.Bool

	// mu serializes platformWake against Destroy and Terminate.
	mu sync.Mutex
}

// newPlatformWindow creates a fixed-size GLFW window without a client API and stores it as the internal window.
// The caller must have locked the OS thread.
//
// GLFW reference: https://www.glfw.org/docs/latest/window_guide.html
// go-gl/glfw: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw
func newPlatformWindow(w *engineWindow) error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("failed to initialize GLFW: %w", err)
	}

	// WebGPU provides its own graphics API, so disable OpenGL context creation.
	// Reference: https://www.glfw.org/docs/latest/window_guide.html#window_hints_ctx
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.False)

	win, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return fmt.Errorf("failed to create GLFW window: %w", err)
	}
	w.internalWindow = &glfwWindow{window: win}

	// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Window.SetKeyCallback
	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if uint32(key) == common.KeyEsc && action == glfw.Press {
			w.closeRequested.Store(true)
			win.SetShouldClose(true)
		}
		if w.onKey == nil {
			return
		}
		switch action {
		case glfw.Press, glfw.Repeat:
			w.onKey(uint32(key), true)
		case glfw.Release:
			w.onKey(uint32(key), false)
		}
	})

	// On high-DPI displays the framebuffer size differs from the requested window size.
	w.width, w.height = win.GetFramebufferSize()
	return nil
}

// platformGetSurfaceDescriptor creates a platform-appropriate wgpu.SurfaceDescriptor from the GLFW window.
//
// Reference: https://pkg.go.dev/github.com/cogentcore/webgpu/wgpuglfw#GetSurfaceDescriptor
func platformGetSurfaceDescriptor(w *engineWindow) *wgpu.SurfaceDescriptor {
	gw, ok := w.internalWindow.(*glfwWindow)
	if !ok || gw.closed.Load() {
		return nil
	}
	return wgpuglfw.GetSurfaceDescriptor(gw.window)
}

// platformPollEvents processes pending GLFW events without blocking.
//
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#PollEvents
func platformPollEvents(w *engineWindow) {
	if gw, ok := w.internalWindow.(*glfwWindow); ok && !gw.closed.Load() {
		glfw.PollEvents()
	}
}

// platformShouldClose reports GLFW's close flag. A window that was never created or is destroyed reports true.
func platformShouldClose(w *engineWindow) bool {
	gw, ok := w.internalWindow.(*glfwWindow)
	if !ok || gw.closed.Load() {
		return true
	}
	return gw.window.ShouldClose()
}

// platformWake unblocks an event wait on the main thread. glfw.PostEmptyEvent may be called from any goroutine,
// but never after glfw.Terminate.
func platformWake(w *engineWindow) {
	gw, ok := w.internalWindow.(*glfwWindow)
	if !ok {
		return
	}
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if !gw.closed.Load() {
		glfw.PostEmptyEvent()
	}
}

// platformCloseWindow destroys the GLFW window and terminates the GLFW library.
//
// Parameters:
//   - w: the engineWindow to close
//
// Returns:
//   - error: error if the window is not initialized or already closed
func platformCloseWindow(w *engineWindow) error {
	gw, ok := w.internalWindow.(*glfwWindow)
	if !ok {
		return fmt.Errorf("window is not initialized")
	}
	gw.mu.Lock()
	defer gw.mu.Unlock()
	if gw.closed.Load() {
		return fmt.Errorf("window is already closed")
	}
	gw.closed.Store(true)
	gw.window.Destroy()
	glfw.Terminate()
	return nil
}
