package loader

import (
	"errors"
	"fmt"
)

// colorComponents is the number of color floats that follow the position of every vertex.
const colorComponents = 3

// Geometry is the CPU side result of a geometry load: interleaved position + color vertex records and index triples.
type Geometry struct {
	// Points holds Dimensions position components followed by 3 color components per vertex.
	Points []float32
	// Indices holds vertex indices, three per triangle.
	Indices []uint32
	// Dimensions is the number of position components per vertex.
	Dimensions int
}

// AttributesPerVertex returns the number of floats that make up one vertex record.
func (g *Geometry) AttributesPerVertex() int {
	return g.Dimensions + colorComponents
}

// VertexCount returns the number of complete vertex records in Points.
func (g *Geometry) VertexCount() int {
	if g.AttributesPerVertex() == 0 {
		return 0
	}
	return len(g.Points) / g.AttributesPerVertex()
}

// Stride returns the byte size of one vertex record.
func (g *Geometry) Stride() uint64 {
	return uint64(g.AttributesPerVertex()) * 4
}

// Validate checks that Points holds whole vertex records and that every index refers to one of them.
//
// Returns:
//   - error: nil when the geometry can be uploaded as is
func (g *Geometry) Validate() error {
	if g.Dimensions < 1 {
		return fmt.Errorf("invalid dimensions %d", g.Dimensions)
	}
	if len(g.Points) == 0 {
		return errors.New("geometry has no points")
	}
	if len(g.Indices) == 0 {
		return errors.New("geometry has no indices")
	}
	if len(g.Points)%g.AttributesPerVertex() != 0 {
		return fmt.Errorf("point count %d is not a multiple of %d attributes per vertex", len(g.Points), g.AttributesPerVertex())
	}
	if len(g.Indices)%3 != 0 {
		return fmt.Errorf("index count %d is not a multiple of 3", len(g.Indices))
	}
	vertices := uint32(g.VertexCount())
	for i, idx := range g.Indices {
		if idx >= vertices {
			return fmt.Errorf("index %d at position %d is out of range for %d vertices", idx, i, vertices)
		}
	}
	return nil
}
