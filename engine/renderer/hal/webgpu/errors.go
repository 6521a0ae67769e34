package webgpu

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/hal"

	"github.com/cogentcore/webgpu/wgpu"
)

// errorKind maps a native error to its hal.ErrorKind. Errors that did not come from an error scope are unknown.
func errorKind(err error) hal.ErrorKind {
	var werr *wgpu.Error
	if !errors.As(err, &werr) {
		return hal.ErrorKindUnknown
	}
	switch werr.Type {
	case wgpu.ErrorTypeValidation:
		return hal.ErrorKindValidation
	case wgpu.ErrorTypeOutOfMemory:
		return hal.ErrorKindOutOfMemory
	case wgpu.ErrorTypeInternal:
		return hal.ErrorKindInternal
	case wgpu.ErrorTypeDeviceLost:
		return hal.ErrorKindDeviceLost
	default:
		return hal.ErrorKindUnknown
	}
}
