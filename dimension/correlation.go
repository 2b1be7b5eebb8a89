package dimension

import (
	"slices"

	"gonum.org/v1/gonum/mat"
)

// SetCorrelated adds (correlated=true) or removes the correlation edge between
// cells a and b.
//
// The diagonal self pair is implicitly always correlated, so toggling it is a
// no-op. Returns a range error if either cell does not exist.
func (r *Registry) SetCorrelated(a, b Cell, correlated bool) error {
	if err := r.checkCell(a); err != nil {
		return err
	}
	if err := r.checkCell(b); err != nil {
		return err
	}

	e := NewEdge(a, b)
	if e.IsDiagonal() {
		return nil
	}
	if err := r.checkMutable(); err != nil {
		return err
	}

	_, exists := r.edges[e]
	switch {
	case correlated && !exists:
		r.edges[e] = struct{}{}
	case !correlated && exists:
		delete(r.edges, e)
	default:
		return nil
	}
	r.touch()

	return nil
}

// AssumeXXCorrelated toggles the correlation of X values (r1,i1) and (r2,i2).
func (r *Registry) AssumeXXCorrelated(correlated bool, r1, i1, r2, i2 int) error {
	return r.SetCorrelated(XCell(i1, r1), XCell(i2, r2), correlated)
}

// AssumeYYCorrelated toggles the correlation of Y values (k1,j1) and (k2,j2).
func (r *Registry) AssumeYYCorrelated(correlated bool, k1, j1, k2, j2 int) error {
	return r.SetCorrelated(YCell(j1, k1), YCell(j2, k2), correlated)
}

// AssumeXYCorrelated toggles the correlation of X value (r,i) and Y value (k,j).
func (r *Registry) AssumeXYCorrelated(correlated bool, r0, i, k, j int) error {
	return r.SetCorrelated(XCell(i, r0), YCell(j, k), correlated)
}

// IsCorrelated reports whether a and b are correlated. A cell is always
// correlated with itself.
func (r *Registry) IsCorrelated(a, b Cell) bool {
	e := NewEdge(a, b)
	if e.IsDiagonal() {
		return true
	}
	_, ok := r.edges[e]

	return ok
}

// Edges returns the declared edges in canonical order.
func (r *Registry) Edges() []Edge {
	out := make([]Edge, 0, len(r.edges))
	for e := range r.edges {
		out = append(out, e)
	}
	slices.SortFunc(out, func(x, y Edge) int {
		switch {
		case x.A.less(y.A):
			return -1
		case y.A.less(x.A):
			return 1
		case x.B.less(y.B):
			return -1
		case y.B.less(x.B):
			return 1
		default:
			return 0
		}
	})

	return out
}

// CorrelationMask returns the 0/1 matrix over the current Layout: ones on the
// diagonal and at every pair of active positions joined by a declared edge.
func (r *Registry) CorrelationMask() *mat.SymDense {
	l := r.Layout()
	n := l.Size()
	if n == 0 {
		return &mat.SymDense{}
	}

	mask := mat.NewSymDense(n, nil)
	for p := range n {
		mask.SetSym(p, p, 1)
	}
	for e := range r.edges {
		p, okA := l.Position(e.A)
		q, okB := l.Position(e.B)
		if okA && okB {
			mask.SetSym(p, q, 1)
		}
	}

	return mask
}
