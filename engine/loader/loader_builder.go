package loader

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithDimensions is an option builder that sets the number of position components per vertex.
// Every point line must then carry dimensions + 3 values.
//
// Parameters:
//   - dimensions: the position component count, 2 for planar geometry
//
// Returns:
//   - LoaderBuilderOption: a function that applies the dimensions option to a loader
func WithDimensions(dimensions int) LoaderBuilderOption {
	return func(l *loader) {
		l.dimensions = dimensions
	}
}

// WithGeometry is an option builder that pre-populates the geometry cache.
//
// Parameters:
//   - key: the cache key for the geometry
//   - g: the geometry to cache
//
// Returns:
//   - LoaderBuilderOption: a function that applies the geometry option to a loader
func WithGeometry(key string, g *Geometry) LoaderBuilderOption {
	return func(l *loader) {
		l.geometryCache[key] = g
	}
}
