package bind_group_provider

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/hal"

	"github.com/cogentcore/webgpu/wgpu"
)

// ErrLayoutMismatch is returned when bind group entries do not supply exactly the bindings of their layout.
var ErrLayoutMismatch = errors.New("bind group does not match its layout")

// CheckEntries verifies that entries and layout have the same count and binding indices, and that each buffer
// entry is at least the layout's minimum binding size.
//
// Parameters:
//   - layout: the layout entries
//   - entries: the bind group entries, sorted by binding
//
// Returns:
//   - error: an error wrapping ErrLayoutMismatch describing the first difference
func CheckEntries(layout []wgpu.BindGroupLayoutEntry, entries []hal.BindGroupEntry) error {
	if len(entries) != len(layout) {
		return fmt.Errorf("%w: %d entries for %d layout bindings", ErrLayoutMismatch, len(entries), len(layout))
	}
	byBinding := make(map[uint32]wgpu.BindGroupLayoutEntry, len(layout))
	for _, l := range layout {
		byBinding[l.Binding] = l
	}
	for _, e := range entries {
		l, ok := byBinding[e.Binding]
		if !ok {
			return fmt.Errorf("%w: binding %d is not in the layout", ErrLayoutMismatch, e.Binding)
		}
		if e.Buffer == nil {
			return fmt.Errorf("%w: binding %d has no buffer", ErrLayoutMismatch, e.Binding)
		}
		if l.Buffer.MinBindingSize > 0 && e.Size < l.Buffer.MinBindingSize {
			return fmt.Errorf("%w: binding %d is %d bytes, layout needs %d", ErrLayoutMismatch, e.Binding, e.Size, l.Buffer.MinBindingSize)
		}
	}
	return nil
}
