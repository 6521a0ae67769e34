// Package webgpu implements the hal interfaces on top of wgpu-native through github.com/cogentcore/webgpu.
//
// Every native call that can fail without a local error channel is routed to the device's hal.ErrorHandler.
package webgpu

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/hal"

	"github.com/cogentcore/webgpu/wgpu"
)

// SetLogLevel sets the verbosity of wgpu-native's own logging.
//
// Parameters:
//   - level: one of "off", "error", "warn", "info", "debug" or "trace"
//
// Returns:
//   - error: if the level name is unknown
func SetLogLevel(level string) error {
	switch level {
	case "off":
		wgpu.SetLogLevel(wgpu.LogLevelOff)
	case "error":
		wgpu.SetLogLevel(wgpu.LogLevelError)
	case "warn":
		wgpu.SetLogLevel(wgpu.LogLevelWarn)
	case "info":
		wgpu.SetLogLevel(wgpu.LogLevelInfo)
	case "debug":
		wgpu.SetLogLevel(wgpu.LogLevelDebug)
	case "trace":
		wgpu.SetLogLevel(wgpu.LogLevelTrace)
	default:
		return fmt.Errorf("unknown wgpu log level %q", level)
	}
	return nil
}

type instance struct {
	instance *wgpu.Instance
}

var _ hal.Instance = &instance{}

// NewInstance creates the wgpu-native instance.
//
// Returns:
//   - hal.Instance: the backend instance
//   - error: if the native instance could not be created
func NewInstance() (hal.Instance, error) {
	inst := wgpu.CreateInstance(nil)
	if inst == nil {
		return nil, errors.New("wgpu: could not create instance")
	}
	return &instance{instance: inst}, nil
}

func (i *instance) CreateSurface(descriptor *wgpu.SurfaceDescriptor) (hal.Surface, error) {
	if descriptor == nil {
		return nil, errors.New("wgpu: nil surface descriptor")
	}
	s := i.instance.CreateSurface(descriptor)
	if s == nil {
		return nil, errors.New("wgpu: could not create surface")
	}
	return &surface{surface: s}, nil
}

func (i *instance) RequestAdapter(options hal.AdapterOptions) (hal.Adapter, error) {
	opts := &wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: options.ForceFallbackAdapter,
		PowerPreference:      options.PowerPreference,
	}
	if options.CompatibleSurface != nil {
		s, ok := options.CompatibleSurface.(*surface)
		if !ok {
			return nil, errors.New("wgpu: compatible surface was not created by this backend")
		}
		opts.CompatibleSurface = s.surface
	}
	a, err := i.instance.RequestAdapter(opts)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, errors.New("wgpu: no adapter returned")
	}
	return &adapter{adapter: a}, nil
}

func (i *instance) Release() {
	i.instance.Release()
}

type adapter struct {
	adapter *wgpu.Adapter
}

var _ hal.Adapter = &adapter{}

func (a *adapter) Info() hal.AdapterInfo {
	info := a.adapter.GetInfo()
	return hal.AdapterInfo{
		Vendor:       info.Vendor,
		Architecture: info.Architecture,
		Device:       info.Device,
		Description:  info.Description,
		Backend:      fmt.Sprint(info.BackendType),
		AdapterType:  fmt.Sprint(info.AdapterType),
	}
}

func (a *adapter) Limits() wgpu.Limits {
	return a.adapter.GetLimits().Limits
}

func (a *adapter) Features() []string {
	features := a.adapter.EnumerateFeatures()
	names := make([]string, len(features))
	for i, f := range features {
		names[i] = fmt.Sprint(f)
	}
	return names
}

func (a *adapter) RequestDevice(descriptor hal.DeviceDescriptor) (hal.Device, error) {
	lost := &deviceLost{onError: descriptor.OnUncapturedError}
	d, err := a.adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: descriptor.Label,
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: descriptor.RequiredLimits,
		},
		DeviceLostCallback: lost.callback,
	})
	if err != nil {
		return nil, err
	}
	dev := &device{
		device:  d,
		limits:  descriptor.RequiredLimits,
		onError: descriptor.OnUncapturedError,
		lost:    lost,
	}
	dev.queue = &queue{queue: d.GetQueue(), device: dev}
	return dev, nil
}

// deviceLost forwards the native device-lost notification, which wgpu-native delivers outside any call made by
// the frame pipeline, to the uncaptured error handler. Loss caused by releasing the device is not reported.
type deviceLost struct {
	onError  hal.ErrorHandler
	released atomic.Bool
}

func (l *deviceLost) callback(reason wgpu.DeviceLostReason, message string) {
	if l.released.Load() || l.onError == nil {
		return
	}
	l.onError(hal.ErrorKindDeviceLost, fmt.Sprintf("device lost (reason %d): %s", reason, message))
}

func (a *adapter) Release() {
	a.adapter.Release()
}
