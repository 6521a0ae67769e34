package bind_group_provider

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/hal"
)

var (
	// ErrMisalignedWrite is returned for writes whose offset or length is not a multiple of 4 bytes.
	ErrMisalignedWrite = errors.New("buffer write is not 4 byte aligned")

	// ErrWriteOutOfBounds is returned for writes that would run past the end of the buffer.
	ErrWriteOutOfBounds = errors.New("buffer write out of bounds")
)

// BufferWrite describes a single GPU buffer write operation targeting a specific binding
// on a BindGroupProvider at a given byte offset.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}

// Validate checks the write against the target buffer without issuing it.
//
// Returns:
//   - hal.Buffer: the target buffer
//   - error: error if the binding has no buffer, or the range is misaligned or out of bounds
func (w BufferWrite) Validate() (hal.Buffer, error) {
	if w.Provider == nil {
		return nil, errors.New("buffer write has no provider")
	}
	buf := w.Provider.Buffer(w.Binding)
	if buf == nil {
		return nil, fmt.Errorf("%s has no buffer at binding %d", w.Provider.Label(), w.Binding)
	}
	size := uint64(len(w.Data))
	if w.Offset%4 != 0 || size%4 != 0 {
		return nil, fmt.Errorf("%w: %d+%d to %s", ErrMisalignedWrite, w.Offset, size, buf.Label())
	}
	if w.Offset > buf.Size() || size > buf.Size()-w.Offset {
		return nil, fmt.Errorf("%w: %d+%d exceeds %s of size %d", ErrWriteOutOfBounds, w.Offset, size, buf.Label(), buf.Size())
	}
	return buf, nil
}

// Apply validates the write and issues it on the queue. Invalid writes are never issued.
//
// Parameters:
//   - queue: the device queue
//
// Returns:
//   - error: the validation error, if any
func (w BufferWrite) Apply(queue hal.Queue) error {
	buf, err := w.Validate()
	if err != nil {
		return err
	}
	queue.WriteBuffer(buf, w.Offset, w.Data)
	return nil
}
