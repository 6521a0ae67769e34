package renderer

import (
	"github.com/Carmen-Shannon/oxy-frame/common"

	"github.com/cogentcore/webgpu/wgpu"
)

// NegotiatorOption configures adapter selection and the device request.
type NegotiatorOption func(*negotiator)

// WithDeviceLabel sets the label of the requested device.
//
// Parameters:
//   - label: the device label, "Main Device" by default
//
// Returns:
//   - NegotiatorOption: the option
func WithDeviceLabel(label string) NegotiatorOption {
	return func(n *negotiator) {
		n.deviceLabel = common.Coalesce(label, n.deviceLabel)
	}
}

// WithForceFallbackAdapter requests the software fallback adapter.
func WithForceFallbackAdapter(force bool) NegotiatorOption {
	return func(n *negotiator) {
		n.forceFallback = force
	}
}

// WithPowerPreference sets the adapter power preference.
func WithPowerPreference(preference wgpu.PowerPreference) NegotiatorOption {
	return func(n *negotiator) {
		n.powerPreference = preference
	}
}
