package dimension

import "fmt"

// Kind distinguishes independent (X) from dependent (Y) quantities.
type Kind uint8

const (
	// KindX marks an independent-variable cell.
	KindX Kind = iota
	// KindY marks a dependent-variable cell.
	KindY
)

// String returns "x" or "y".
func (k Kind) String() string {
	switch k {
	case KindX:
		return "x"
	case KindY:
		return "y"
	default:
		return "unknown"
	}
}

// Cell identifies a single scalar quantity.
//
// For KindX cells Index is the coordinate along X dimension Dim.
// For KindY cells Index is the flat data index of a point of Y dimension Dim.
type Cell struct {
	Kind  Kind
	Dim   int
	Index int
}

// XCell returns the cell of value r of X dimension i.
func XCell(i, r int) Cell {
	return Cell{Kind: KindX, Dim: i, Index: r}
}

// YCell returns the cell of data point k of Y dimension j.
func YCell(j, k int) Cell {
	return Cell{Kind: KindY, Dim: j, Index: k}
}

// String returns a compact representation such as "y0[12]".
func (c Cell) String() string {
	return fmt.Sprintf("%s%d[%d]", c.Kind, c.Dim, c.Index)
}

// less orders cells by kind, then dimension, then index.
func (c Cell) less(o Cell) bool {
	if c.Kind != o.Kind {
		return c.Kind < o.Kind
	}
	if c.Dim != o.Dim {
		return c.Dim < o.Dim
	}

	return c.Index < o.Index
}

// Edge is an unordered pair of distinct cells declared correlated.
// A and B are stored in canonical order (A before B).
type Edge struct {
	A, B Cell
}

// NewEdge returns the canonical edge joining a and b.
func NewEdge(a, b Cell) Edge {
	if b.less(a) {
		a, b = b, a
	}

	return Edge{A: a, B: b}
}

// IsDiagonal reports whether the edge joins a cell with itself.
func (e Edge) IsDiagonal() bool {
	return e.A == e.B
}

// String returns "a<->b".
func (e Edge) String() string {
	return e.A.String() + "<->" + e.B.String()
}
