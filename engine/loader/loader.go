package loader

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
)

// LoaderBackendType identifies the geometry file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeText selects the line based [points]/[indices] text backend.
	BackendTypeText LoaderBackendType = iota
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.RWMutex

	dimensions    int
	geometryCache map[string]*Geometry

	backend loaderBackend
}

// Loader defines the public-facing interface for loading and caching geometry.
// It abstracts the file format behind a backend and keeps every successfully decoded geometry by key.
type Loader interface {
	// Load decodes a geometry file and caches the result.
	// If the geometry is already cached (by file path), the cached version is returned.
	//
	// Parameters:
	//   - path: the file path to the geometry file
	//
	// Returns:
	//   - *Geometry: the loaded geometry
	//   - error: error if the file is missing, malformed or references vertices that do not exist
	Load(path string) (*Geometry, error)

	// LoadReader decodes geometry from a reader stream and caches it by the given name.
	//
	// Parameters:
	//   - name: the cache key for the loaded geometry
	//   - r: the reader providing geometry data
	//
	// Returns:
	//   - *Geometry: the loaded geometry
	//   - error: error if decoding fails
	LoadReader(name string, r io.Reader) (*Geometry, error)

	// Get retrieves a cached geometry by name. Returns nil if not found.
	//
	// Parameters:
	//   - name: the cache key to look up
	//
	// Returns:
	//   - *Geometry: the cached geometry or nil
	Get(name string) *Geometry

	// Dimensions returns the number of position components per vertex this loader expects.
	Dimensions() int
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeText)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided backend and options
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		mu:            sync.RWMutex{},
		dimensions:    2,
		geometryCache: make(map[string]*Geometry),
	}

	for _, option := range options {
		option(l)
	}

	switch backendType {
	case BackendTypeText:
		l.backend = newTextLoaderBackend(l.dimensions)
	}
	return l
}

func (l *loader) Load(path string) (*Geometry, error) {
	l.mu.RLock()
	if cached, ok := l.geometryCache[path]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	backend, err := l.resolveBackend(path)
	if err != nil {
		return nil, err
	}

	g, err := backend.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	l.mu.Lock()
	l.geometryCache[path] = g
	l.mu.Unlock()

	return g, nil
}

func (l *loader) LoadReader(name string, r io.Reader) (*Geometry, error) {
	l.mu.RLock()
	if cached, ok := l.geometryCache[name]; ok {
		l.mu.RUnlock()
		return cached, nil
	}
	l.mu.RUnlock()

	g, err := l.backend.LoadReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to load from reader %q: %w", name, err)
	}

	l.mu.Lock()
	l.geometryCache[name] = g
	l.mu.Unlock()

	return g, nil
}

func (l *loader) Get(name string) *Geometry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.geometryCache[name]
}

func (l *loader) Dimensions() int {
	return l.dimensions
}

// resolveBackend selects an appropriate loader backend based on the file extension.
// Extensionless files are treated as text.
func (l *loader) resolveBackend(path string) (loaderBackend, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case "", ".txt", ".geom", ".geometry":
		return l.backend, nil
	default:
		return nil, fmt.Errorf("unsupported geometry format: %s", ext)
	}
}
