package loader

import (
	"io"
)

// loaderBackend defines the generic interface for decoding geometry from files or streams.
// Concrete implementations (e.g., textLoaderBackend) handle format-specific details.
type loaderBackend interface {
	// Load decodes the geometry stored at the given file path.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - *Geometry: the decoded geometry
	//   - error: error if the file cannot be opened or decoded
	Load(path string) (*Geometry, error)

	// LoadReader decodes geometry from a reader stream.
	//
	// Parameters:
	//   - r: the reader providing geometry data
	//
	// Returns:
	//   - *Geometry: the decoded geometry
	//   - error: error if decoding fails
	LoadReader(r io.Reader) (*Geometry, error)
}
