package renderer

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-frame/engine/renderer/bind_group_provider"
)

// Category classifies a failure by the pipeline stage it ends.
type Category int

const (
	// CategoryNegotiation covers instance, adapter and device acquisition. Fatal before the frame loop starts.
	CategoryNegotiation Category = iota

	// CategoryConstruction covers geometry, shader and GPU resource creation. Fatal before the frame loop starts.
	CategoryConstruction

	// CategoryPresentation covers image acquisition and frame recording. Ends the session in an orderly way.
	CategoryPresentation

	// CategoryAsync covers errors reported out of band by the device. Observational only.
	CategoryAsync
)

func (c Category) String() string {
	switch c {
	case CategoryNegotiation:
		return "negotiation"
	case CategoryConstruction:
		return "construction"
	case CategoryPresentation:
		return "presentation"
	case CategoryAsync:
		return "async"
	default:
		return fmt.Sprintf("Category(%d)", int(c))
	}
}

var (
	// ErrNoInstance is returned when no backend instance is available.
	ErrNoInstance = errors.New("no backend instance")

	// ErrNoAdapter is returned when no adapter compatible with the surface exists.
	ErrNoAdapter = errors.New("no compatible adapter")

	// ErrUnmetLimits is returned when the adapter cannot support the requested capability envelope.
	ErrUnmetLimits = errors.New("adapter does not support the requested limits")

	// ErrLayoutMismatch is returned when bind group entries do not match their layout.
	ErrLayoutMismatch = bind_group_provider.ErrLayoutMismatch

	// ErrStrideMismatch is returned when a vertex stride disagrees with its attributes or the geometry.
	ErrStrideMismatch = errors.New("vertex stride mismatch")

	// ErrTooManyAttributes is returned when the pipeline uses more vertex attributes than the device allows.
	ErrTooManyAttributes = errors.New("too many vertex attributes")

	// ErrTooManyVertexBuffers is returned when the pipeline uses more vertex buffers than the device allows.
	ErrTooManyVertexBuffers = errors.New("too many vertex buffers")

	// ErrStrideTooLarge is returned when a vertex stride exceeds the device limit.
	ErrStrideTooLarge = errors.New("vertex stride exceeds device limit")

	// ErrTooManyInterStageComponents is returned when the vertex stage passes more components than the device allows.
	ErrTooManyInterStageComponents = errors.New("too many inter-stage components")

	// ErrUniformTooSmall is returned when the uniform buffer is smaller than the shader's uniform block.
	ErrUniformTooSmall = errors.New("uniform buffer too small")

	// ErrIndexSizeMismatch is returned when the index buffer size or contents disagree with the index format.
	ErrIndexSizeMismatch = errors.New("index buffer size mismatch")

	// ErrBufferTooLarge is returned when a buffer exceeds the device's maximum buffer size.
	ErrBufferTooLarge = errors.New("buffer exceeds device limit")
)

// StageError names the step that failed and the category of the failure.
type StageError struct {
	Category Category
	Stage    string
	Err      error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Category, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageError(category Category, stage string, err error) error {
	return &StageError{Category: category, Stage: stage, Err: err}
}
