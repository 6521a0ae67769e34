package window

import (
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-frame/common"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/stretchr/testify/assert"
)

func TestWindowOptions(t *testing.T) {
	var keys []uint32
	w := newEngineWindow(
		WithTitle("Frame"),
		WithWidth(800),
		WithHeight(600),
		WithKeyCallback(func(keyCode uint32, pressed bool) { keys = append(keys, keyCode) }),
	)
	assert.Equal(t, "Frame", w.title)
	assert.Equal(t, 800, w.Width())
	assert.Equal(t, 600, w.Height())
	w.onKey(common.KeySpace, true)
	assert.Equal(t, []uint32{common.KeySpace}, keys)
}

func TestWindowDefaults(t *testing.T) {
	w := newEngineWindow()
	assert.Equal(t, 640, w.Width())
	assert.Equal(t, 480, w.Height())
}

func TestUncreatedWindow(t *testing.T) {
	w := newEngineWindow()
	assert.True(t, w.ShouldClose())
	assert.Nil(t, w.SurfaceDescriptor())
	assert.Error(t, w.Close())
	w.PollEvents()
	w.RequestClose()
	assert.True(t, w.closeRequested.Load())
}

func TestRequestCloseAfterCloseSkipsWake(t *testing.T) {
	gw := &glfwWindow{}
	gw.closed.Store(true)
	w := newEngineWindow()
	w.internalWindow = gw

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.RequestClose()
		}()
	}
	assert.EqualError(t, w.Close(), "window is already closed")
	wg.Wait()

	assert.True(t, w.ShouldClose())
	assert.Nil(t, w.SurfaceDescriptor())
}

func TestNewWindowRejectsEmptySize(t *testing.T) {
	_, err := NewWindow(WithWidth(0))
	assert.Error(t, err)
}

func TestKeyCodesMatchGLFW(t *testing.T) {
	assert.Equal(t, uint32(glfw.KeyEscape), uint32(common.KeyEsc))
	assert.Equal(t, uint32(glfw.KeySpace), uint32(common.KeySpace))
}
