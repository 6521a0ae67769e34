package renderer

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/Carmen-Shannon/oxy-frame/common"
	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/hal"

	"github.com/cogentcore/webgpu/wgpu"
)

// DefaultDeviceLabel is the label of the requested device.
const DefaultDeviceLabel = "Main Device"

// Negotiated holds the adapter, device and queue produced by NegotiateDevice.
type Negotiated struct {
	Adapter hal.Adapter
	Device  hal.Device
	Queue   hal.Queue
	// Limits is the envelope the device was requested with.
	Limits Limits
}

// Release releases the device and then the adapter.
func (n *Negotiated) Release() {
	if n.Device != nil {
		n.Device.Release()
		n.Device = nil
	}
	if n.Adapter != nil {
		n.Adapter.Release()
		n.Adapter = nil
	}
	n.Queue = nil
}

type negotiator struct {
	deviceLabel     string
	forceFallback   bool
	powerPreference wgpu.PowerPreference
}

// NegotiateDevice selects an adapter compatible with the surface and requests a device with the envelope.
// The context's error sink is registered on the device before it is returned, so it observes every later call.
// On failure nothing acquired by this call is retained.
//
// Parameters:
//   - c: the session context holding the instance and error sink
//   - surface: the presentation target the adapter must be able to present to
//   - limits: the capability envelope to request
//   - options: adapter selection and device label options
//
// Returns:
//   - *Negotiated: the adapter, device and queue
//   - error: a *StageError of CategoryNegotiation
func NegotiateDevice(c *Context, surface hal.Surface, limits Limits, options ...NegotiatorOption) (*Negotiated, error) {
	if c == nil || c.Instance() == nil {
		return nil, stageError(CategoryNegotiation, "request adapter", ErrNoInstance)
	}
	n := &negotiator{deviceLabel: DefaultDeviceLabel}
	for _, opt := range options {
		opt(n)
	}

	adapter, err := c.Instance().RequestAdapter(hal.AdapterOptions{
		CompatibleSurface:    surface,
		ForceFallbackAdapter: n.forceFallback,
		PowerPreference:      n.powerPreference,
	})
	if err != nil {
		return nil, stageError(CategoryNegotiation, "request adapter", fmt.Errorf("%w: %w", ErrNoAdapter, err))
	}
	if adapter == nil {
		return nil, stageError(CategoryNegotiation, "request adapter", ErrNoAdapter)
	}
	logAdapter(adapter)

	if err := limits.Check(adapter.Limits()); err != nil {
		adapter.Release()
		return nil, stageError(CategoryNegotiation, "check limits", err)
	}

	device, err := adapter.RequestDevice(hal.DeviceDescriptor{
		Label:             n.deviceLabel,
		RequiredLimits:    limits.Merge(wgpu.DefaultLimits()),
		OnUncapturedError: c.Sink().Handler(),
	})
	if err != nil {
		adapter.Release()
		return nil, stageError(CategoryNegotiation, "request device", err)
	}
	common.Logger().Info("device acquired", slog.String("label", n.deviceLabel))

	return &Negotiated{
		Adapter: adapter,
		Device:  device,
		Queue:   device.Queue(),
		Limits:  limits,
	}, nil
}

func logAdapter(adapter hal.Adapter) {
	info := adapter.Info()
	common.Logger().Info("adapter selected",
		slog.String("vendor", info.Vendor),
		slog.String("architecture", info.Architecture),
		slog.String("device", info.Device),
		slog.String("description", info.Description),
		slog.String("backend", info.Backend),
		slog.String("type", info.AdapterType),
	)
	if features := adapter.Features(); len(features) > 0 {
		common.Logger().Debug("adapter features", slog.String("features", strings.Join(features, ", ")))
	}
}
