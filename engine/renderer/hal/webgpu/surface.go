package webgpu

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/hal"

	"github.com/cogentcore/webgpu/wgpu"
)

type surface struct {
	surface *wgpu.Surface
	config  wgpu.SurfaceConfiguration

	// texture is the image acquired for the current frame. It is released after Present.
	texture *wgpu.Texture
}

var _ hal.Surface = &surface{}

func (s *surface) PreferredFormat(a hal.Adapter) (wgpu.TextureFormat, bool) {
	ad, ok := a.(*adapter)
	if !ok {
		return wgpu.TextureFormatUndefined, false
	}
	capabilities := s.surface.GetCapabilities(ad.adapter)
	if len(capabilities.Formats) == 0 {
		return wgpu.TextureFormatUndefined, false
	}
	return capabilities.Formats[0], true
}

func (s *surface) Configure(a hal.Adapter, d hal.Device, config hal.SurfaceConfiguration) error {
	ad, ok := a.(*adapter)
	if !ok {
		return errors.New("wgpu: adapter was not created by this backend")
	}
	dev, ok := d.(*device)
	if !ok {
		return errors.New("wgpu: device was not created by this backend")
	}
	if config.Width == 0 || config.Height == 0 {
		return fmt.Errorf("wgpu: invalid surface size %dx%d", config.Width, config.Height)
	}

	capabilities := s.surface.GetCapabilities(ad.adapter)
	s.config = wgpu.SurfaceConfiguration{
		Usage:       config.Usage,
		Format:      config.Format,
		Width:       config.Width,
		Height:      config.Height,
		PresentMode: config.PresentMode,
	}
	if len(capabilities.AlphaModes) > 0 {
		s.config.AlphaMode = capabilities.AlphaModes[0]
	}
	s.surface.Configure(ad.adapter, dev.device, &s.config)
	return nil
}

func (s *surface) GetCurrentTexture() (hal.TextureView, error) {
	if s.texture != nil {
		return nil, fmt.Errorf("previous frame surface not yet presented: %w", hal.ErrSurfaceUnavailable)
	}
	texture, err := s.surface.GetCurrentTexture()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", hal.ErrSurfaceUnavailable, err)
	}
	if texture == nil {
		return nil, hal.ErrSurfaceUnavailable
	}
	view, err := texture.CreateView(nil)
	if err != nil {
		texture.Release()
		return nil, fmt.Errorf("%w: %w", hal.ErrSurfaceUnavailable, err)
	}
	s.texture = texture
	return &textureView{
		view:   view,
		format: s.config.Format,
		width:  s.config.Width,
		height: s.config.Height,
	}, nil
}

func (s *surface) Present() {
	if s.texture == nil {
		return
	}
	s.surface.Present()
	s.texture.Release()
	s.texture = nil
}

func (s *surface) Release() {
	if s.texture != nil {
		s.texture.Release()
		s.texture = nil
	}
	s.surface.Release()
}

type textureView struct {
	view   *wgpu.TextureView
	format wgpu.TextureFormat
	width  uint32
	height uint32
}

var _ hal.TextureView = &textureView{}

func (v *textureView) Format() wgpu.TextureFormat { return v.format }
func (v *textureView) Width() uint32              { return v.width }
func (v *textureView) Height() uint32             { return v.height }

func (v *textureView) Release() {
	if v.view != nil {
		v.view.Release()
		v.view = nil
	}
}
