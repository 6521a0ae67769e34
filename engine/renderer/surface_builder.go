package renderer

// SurfaceOption configures a SurfaceManager.
type SurfaceOption func(*SurfaceManager)

// WithPresentMode sets the present mode. PresentModeFifo is used by default.
//
// Parameters:
//   - mode: the present mode
//
// Returns:
//   - SurfaceOption: the option
func WithPresentMode(mode PresentMode) SurfaceOption {
	return func(m *SurfaceManager) {
		m.presentMode = mode
	}
}
