package renderer

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/hal"

	"github.com/cogentcore/webgpu/wgpu"
)

// PresentMode selects how presented images are queued for display.
type PresentMode int

const (
	// PresentModeFifo waits for vertical blank and never tears. Always supported.
	PresentModeFifo PresentMode = iota
	// PresentModeImmediate presents without waiting and may tear.
	PresentModeImmediate
	// PresentModeMailbox replaces the queued image with the newest one without tearing.
	PresentModeMailbox
)

// FallbackFormat is configured when the backend reports no preferred surface format.
const FallbackFormat = wgpu.TextureFormatBGRA8Unorm

// ErrSurfaceUnavailable is returned by AcquireImage when the surface cannot supply an image.
var ErrSurfaceUnavailable = hal.ErrSurfaceUnavailable

// ParsePresentMode maps "fifo", "immediate" or "mailbox" to a PresentMode.
func ParsePresentMode(s string) (PresentMode, error) {
	switch s {
	case "fifo", "":
		return PresentModeFifo, nil
	case "immediate":
		return PresentModeImmediate, nil
	case "mailbox":
		return PresentModeMailbox, nil
	default:
		return PresentModeFifo, fmt.Errorf("unknown present mode %q", s)
	}
}

func (m PresentMode) String() string {
	switch m {
	case PresentModeFifo:
		return "fifo"
	case PresentModeImmediate:
		return "immediate"
	case PresentModeMailbox:
		return "mailbox"
	default:
		return fmt.Sprintf("PresentMode(%d)", int(m))
	}
}

func (m PresentMode) native() wgpu.PresentMode {
	switch m {
	case PresentModeImmediate:
		return wgpu.PresentModeImmediate
	case PresentModeMailbox:
		return wgpu.PresentModeMailbox
	default:
		return wgpu.PresentModeFifo
	}
}

// SurfaceManager configures the presentation surface and hands out one image per frame.
type SurfaceManager struct {
	surface hal.Surface
	adapter hal.Adapter
	device  hal.Device

	presentMode PresentMode
	format      wgpu.TextureFormat
	width       int
	height      int
	configured  bool
}

// NewSurfaceManager binds a surface to the negotiated adapter and device. The surface is not configured until
// Configure is called.
//
// Parameters:
//   - surface: the window's presentation surface
//   - adapter: the adapter the surface formats are queried for
//   - device: the device that renders into the surface
//   - options: optional configuration such as the present mode
//
// Returns:
//   - *SurfaceManager: the manager
func NewSurfaceManager(surface hal.Surface, adapter hal.Adapter, device hal.Device, options ...SurfaceOption) *SurfaceManager {
	m := &SurfaceManager{
		surface:     surface,
		adapter:     adapter,
		device:      device,
		presentMode: PresentModeFifo,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Configure sets the surface size using the surface's preferred format, or FallbackFormat when there is none.
// Calling it again with the same size does nothing.
//
// Parameters:
//   - width: the surface width in pixels
//   - height: the surface height in pixels
//
// Returns:
//   - error: a *StageError of CategoryPresentation if the size is invalid or the backend rejects the configuration
func (m *SurfaceManager) Configure(width, height int) error {
	if width <= 0 || height <= 0 {
		return stageError(CategoryPresentation, "configure surface", fmt.Errorf("invalid surface size %dx%d", width, height))
	}
	format := m.preferredFormat()
	if m.configured && width == m.width && height == m.height && format == m.format {
		return nil
	}

	if err := m.surface.Configure(m.adapter, m.device, hal.SurfaceConfiguration{
		Width:       uint32(width),
		Height:      uint32(height),
		Format:      format,
		Usage:       wgpu.TextureUsageRenderAttachment,
		PresentMode: m.presentMode.native(),
	}); err != nil {
		return stageError(CategoryPresentation, "configure surface", err)
	}
	m.format = format
	m.width = width
	m.height = height
	m.configured = true

	common.Logger().Info("surface configured",
		slog.Int("width", width),
		slog.Int("height", height),
		slog.Any("format", format),
		slog.String("present_mode", m.presentMode.String()),
	)
	return nil
}

func (m *SurfaceManager) preferredFormat() wgpu.TextureFormat {
	if format, ok := m.surface.PreferredFormat(m.adapter); ok && format != wgpu.TextureFormatUndefined {
		return format
	}
	return FallbackFormat
}

// Format returns the pixel format the surface was configured with, or the format it would be configured with.
func (m *SurfaceManager) Format() wgpu.TextureFormat {
	if m.configured {
		return m.format
	}
	return m.preferredFormat()
}

// Size returns the configured size in pixels.
func (m *SurfaceManager) Size() (width, height int) {
	return m.width, m.height
}

func (m *SurfaceManager) PresentMode() PresentMode {
	return m.presentMode
}

// AcquireImage returns the next presentable image. The caller releases the view once the frame is recorded.
//
// Returns:
//   - hal.TextureView: the image view
//   - error: an error wrapping ErrSurfaceUnavailable when no image can be supplied
func (m *SurfaceManager) AcquireImage() (hal.TextureView, error) {
	if !m.configured {
		return nil, stageError(CategoryPresentation, "acquire image", fmt.Errorf("%w: surface not configured", ErrSurfaceUnavailable))
	}
	view, err := m.surface.GetCurrentTexture()
	if err != nil {
		if !errors.Is(err, ErrSurfaceUnavailable) {
			err = fmt.Errorf("%w: %w", ErrSurfaceUnavailable, err)
		}
		return nil, stageError(CategoryPresentation, "acquire image", err)
	}
	return view, nil
}

// Present queues the last acquired image for display. It must follow the submit of the frame's commands.
func (m *SurfaceManager) Present() {
	m.surface.Present()
}

// Release releases the surface.
func (m *SurfaceManager) Release() {
	if m.surface != nil {
		m.surface.Release()
		m.surface = nil
	}
	m.configured = false
}
