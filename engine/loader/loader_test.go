package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const triangleGeometry = `# a single triangle
[points]
# x y r g b
-0.5 -0.5   1.0 0.0 0.0
+0.5 -0.5   0.0 1.0 0.0
+0.0 +0.5   0.0 0.0 1.0

[indices]
0 1 2
`

func TestLoadReaderSinglePoint(t *testing.T) {
	l := NewLoader(BackendTypeText)
	g, err := l.LoadReader("single", strings.NewReader("[points]\n-0.5 -0.5 1 0 0\n[indices]\n0 0 0\n"))
	require.NoError(t, err)
	assert.Equal(t, []float32{-0.5, -0.5, 1, 0, 0}, g.Points)
	assert.Equal(t, []uint32{0, 0, 0}, g.Indices)
	assert.Equal(t, 1, g.VertexCount())
}

func TestLoadReaderTriangle(t *testing.T) {
	l := NewLoader(BackendTypeText)
	g, err := l.LoadReader("triangle", strings.NewReader(triangleGeometry))
	require.NoError(t, err)
	assert.Len(t, g.Points, 15)
	assert.Equal(t, []uint32{0, 1, 2}, g.Indices)
	assert.Equal(t, 5, g.AttributesPerVertex())
	assert.Equal(t, uint64(20), g.Stride())
}

func TestLoadReaderCRLFAndUnknownSections(t *testing.T) {
	doc := "[meta]\nname triangle\r\n[points]\r\n0 0 1 1 1\r\n1 0 1 1 1\r\n0 1 1 1 1\r\n\r\n[indices]\r\n0 1 2\r\n"
	g, err := NewLoader(BackendTypeText).LoadReader("crlf", strings.NewReader(doc))
	require.NoError(t, err)
	assert.Len(t, g.Points, 15)
	assert.Len(t, g.Indices, 3)
}

func TestLoadReaderThreeDimensions(t *testing.T) {
	l := NewLoader(BackendTypeText, WithDimensions(3))
	g, err := l.LoadReader("3d", strings.NewReader("[points]\n0 0 0 1 1 1\n[indices]\n0 0 0\n"))
	require.NoError(t, err)
	assert.Equal(t, 6, g.AttributesPerVertex())
	assert.Equal(t, 3, l.Dimensions())
}

func TestLoadReaderRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"short point line", "[points]\n0 0 1 1\n[indices]\n0 0 0\n"},
		{"bad float", "[points]\n0 x 1 1 1\n[indices]\n0 0 0\n"},
		{"short index line", "[points]\n0 0 1 1 1\n[indices]\n0 0\n"},
		{"negative index", "[points]\n0 0 1 1 1\n[indices]\n0 -1 0\n"},
		{"index out of range", "[points]\n0 0 1 1 1\n[indices]\n0 0 1\n"},
		{"no points", "[indices]\n0 0 0\n"},
		{"no indices", "[points]\n0 0 1 1 1\n"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader(BackendTypeText).LoadReader(tt.name, strings.NewReader(tt.doc))
			assert.Error(t, err)
		})
	}
}

// Every accepted geometry holds whole vertex records and in-range indices.
func TestLoadedGeometryInvariants(t *testing.T) {
	docs := []string{
		triangleGeometry,
		"[points]\n-0.5 -0.5 1 0 0\n[indices]\n0 0 0\n",
		"[points]\n0 0 1 0 0\n1 0 0 1 0\n1 1 0 0 1\n0 1 1 1 0\n[indices]\n0 1 2\n0 2 3\n",
	}
	for i, doc := range docs {
		g, err := NewLoader(BackendTypeText).LoadReader("doc", strings.NewReader(doc))
		require.NoError(t, err, "doc %d", i)
		assert.Zero(t, len(g.Points)%g.AttributesPerVertex(), "doc %d", i)
		for _, idx := range g.Indices {
			assert.Less(t, int(idx), len(g.Points)/g.AttributesPerVertex(), "doc %d", i)
		}
	}
}

func TestLoadFromFileIsCached(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geometry.txt")
	require.NoError(t, os.WriteFile(path, []byte(triangleGeometry), 0o644))

	l := NewLoader(BackendTypeText)
	first, err := l.Load(path)
	require.NoError(t, err)
	second, err := l.Load(path)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Same(t, first, l.Get(path))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := NewLoader(BackendTypeText).Load(filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadUnsupportedExtension(t *testing.T) {
	_, err := NewLoader(BackendTypeText).Load("mesh.gltf")
	assert.Error(t, err)
}

func TestWithGeometryPrepopulatesCache(t *testing.T) {
	g := &Geometry{Dimensions: 2, Points: []float32{0, 0, 1, 1, 1}, Indices: []uint32{0, 0, 0}}
	l := NewLoader(BackendTypeText, WithGeometry("builtin", g))
	assert.Same(t, g, l.Get("builtin"))
	assert.Nil(t, l.Get("other"))
}
