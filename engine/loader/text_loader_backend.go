package loader

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-frame/common"
)

type textSection int

const (
	sectionNone textSection = iota
	sectionPoints
	sectionIndices
)

// textLoaderBackend decodes the line based geometry format:
//
//	[points]
//	x y r g b
//	[indices]
//	a b c
//
// Blank lines and lines starting with '#' are skipped. Unknown [section] headers switch to a section whose lines are ignored.
type textLoaderBackend struct {
	dimensions int
}

var _ loaderBackend = &textLoaderBackend{}

func newTextLoaderBackend(dimensions int) *textLoaderBackend {
	return &textLoaderBackend{dimensions: dimensions}
}

func (b *textLoaderBackend) Load(path string) (*Geometry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not load geometry: %w", err)
	}
	defer f.Close()
	return b.LoadReader(f)
}

func (b *textLoaderBackend) LoadReader(r io.Reader) (*Geometry, error) {
	g := &Geometry{Dimensions: b.dimensions}
	perVertex := g.AttributesPerVertex()
	section := sectionNone

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		switch line {
		case "[points]":
			section = sectionPoints
			continue
		case "[indices]":
			section = sectionIndices
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			common.Logger().Debug("ignoring geometry section", "section", line, "line", lineNo)
			section = sectionNone
			continue
		}

		fields := strings.Fields(line)
		switch section {
		case sectionPoints:
			if len(fields) != perVertex {
				return nil, fmt.Errorf("line %d: expected %d values per point, got %d", lineNo, perVertex, len(fields))
			}
			for _, f := range fields {
				v, err := strconv.ParseFloat(f, 32)
				if err != nil {
					return nil, fmt.Errorf("line %d: invalid point value %q: %w", lineNo, f, err)
				}
				g.Points = append(g.Points, float32(v))
			}
		case sectionIndices:
			if len(fields) != 3 {
				return nil, fmt.Errorf("line %d: expected an index triple, got %d values", lineNo, len(fields))
			}
			for _, f := range fields {
				v, err := strconv.ParseUint(f, 10, 32)
				if err != nil {
					return nil, fmt.Errorf("line %d: invalid index %q: %w", lineNo, f, err)
				}
				g.Indices = append(g.Indices, uint32(v))
			}
		default:
			common.Logger().Debug("ignoring geometry line outside a known section", "line", lineNo)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read geometry: %w", err)
	}

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("invalid geometry: %w", err)
	}
	return g, nil
}
