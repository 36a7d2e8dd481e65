package backend

import (
	"fmt"
	"sort"

	"github.com/gogpu/gputypes"
)

// Components returns the number of scalar components of a float vertex
// format, or 0 for formats adapters do not accept.
func Components(f gputypes.VertexFormat) int {
	switch f {
	case gputypes.VertexFormatFloat32:
		return 1
	case gputypes.VertexFormatFloat32x2:
		return 2
	case gputypes.VertexFormatFloat32x3:
		return 3
	case gputypes.VertexFormatFloat32x4:
		return 4
	default:
		return 0
	}
}

// MatchInputLayout checks that elements feed every vertex input in vs with
// the right component count, fit inside stride, and do not repeat a
// location. Elements the shader does not read are allowed.
func MatchInputLayout(vs *Bytecode, elements []VertexElement, stride uint64) error {
	if vs == nil || vs.Stage != StageVertex {
		return fmt.Errorf("%w: not a vertex shader", ErrInputLayoutMismatch)
	}
	if len(elements) == 0 || stride == 0 {
		return fmt.Errorf("%w: empty layout", ErrInputLayoutMismatch)
	}

	byLoc := make(map[uint32]VertexElement, len(elements))
	for _, e := range elements {
		n := Components(e.Format)
		if n == 0 {
			return fmt.Errorf("%w: unsupported format %v at location %d", ErrInputLayoutMismatch, e.Format, e.Location)
		}
		if e.Offset+uint64(n)*4 > stride {
			return fmt.Errorf("%w: location %d overruns stride %d", ErrInputLayoutMismatch, e.Location, stride)
		}
		if _, dup := byLoc[e.Location]; dup {
			return fmt.Errorf("%w: location %d declared twice", ErrInputLayoutMismatch, e.Location)
		}
		byLoc[e.Location] = e
	}

	for _, in := range vs.Inputs {
		e, ok := byLoc[in.Location]
		if !ok {
			return fmt.Errorf("%w: missing location %d", ErrInputLayoutMismatch, in.Location)
		}
		if got := Components(e.Format); got != in.Components {
			return fmt.Errorf("%w: location %d has %d components, shader reads %d",
				ErrInputLayoutMismatch, in.Location, got, in.Components)
		}
	}
	return nil
}

// SortedElements returns a copy of elements ordered by location.
func SortedElements(elements []VertexElement) []VertexElement {
	out := append([]VertexElement(nil), elements...)
	sort.Slice(out, func(i, j int) bool { return out[i].Location < out[j].Location })
	return out
}

// LayoutStride returns the byte size of one vertex described by elements:
// the end of the element that reaches furthest.
func LayoutStride(elements []VertexElement) uint64 {
	var stride uint64
	for _, e := range elements {
		if end := e.Offset + uint64(Components(e.Format))*4; end > stride {
			stride = end
		}
	}
	return stride
}
