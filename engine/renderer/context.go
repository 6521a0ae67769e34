package renderer

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/hal"
)

// Context owns the process-wide objects of a session: the backend instance and the error sink.
// Every other GPU object is created from it and must be released before it.
type Context struct {
	instance hal.Instance
	sink     *ErrorSink
	release  sync.Once
}

// NewContext wraps an instance and a sink. A nil sink gets a fresh one.
//
// Parameters:
//   - instance: the backend instance
//   - sink: the error sink to register on the device, or nil
//
// Returns:
//   - *Context: the session context
//   - error: an error wrapping ErrNoInstance if instance is nil
func NewContext(instance hal.Instance, sink *ErrorSink) (*Context, error) {
	if instance == nil {
		return nil, stageError(CategoryNegotiation, "create instance", ErrNoInstance)
	}
	if sink == nil {
		sink = NewErrorSink()
	}
	return &Context{instance: instance, sink: sink}, nil
}

func (c *Context) Instance() hal.Instance {
	return c.instance
}

func (c *Context) Sink() *ErrorSink {
	return c.sink
}

// Release releases the instance and then stops the error sink. It is safe to call more than once.
func (c *Context) Release() {
	c.release.Do(func() {
		c.instance.Release()
		c.sink.Close()
	})
}
