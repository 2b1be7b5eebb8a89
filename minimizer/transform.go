package minimizer

import (
	"math"

	"github.com/arloliu/corrfit/fit"
)

// faceTolerance is the distance to a bound, relative to the bound scale,
// below which a coordinate is considered to rest on that bound.
const faceTolerance = 1e-6

// startMargin keeps start points off the bound faces, where the internal
// derivative of every transform vanishes.
const startMargin = 1e-2

type boundKind uint8

const (
	boundFree boundKind = iota
	boundLower
	boundUpper
	boundBoth
	boundFixed
)

// transform maps the box given by per-coordinate bounds onto an unbounded
// internal space, so methods search a smooth objective with no flat region
// outside the box.
//
// Doubly bounded coordinates use x = lo + (hi-lo)/2·(sin u + 1). Coordinates
// bounded on one side use x = lo - 1 + sqrt(u²+1) or x = hi + 1 - sqrt(u²+1).
// Free coordinates are the identity.
type transform struct {
	bounds []fit.Bound
	kinds  []boundKind
}

func newTransform(bounds []fit.Bound, n int) transform {
	if len(bounds) != n {
		return transform{}
	}

	kinds := make([]boundKind, n)
	active := false
	for i, b := range bounds {
		loInf, hiInf := math.IsInf(b.Lo, -1), math.IsInf(b.Hi, 1)
		switch {
		case loInf && hiInf:
			kinds[i] = boundFree
		case hiInf:
			kinds[i] = boundLower
		case loInf:
			kinds[i] = boundUpper
		case b.Hi > b.Lo:
			kinds[i] = boundBoth
		default:
			kinds[i] = boundFixed
		}
		active = active || kinds[i] != boundFree
	}
	if !active {
		return transform{}
	}

	return transform{bounds: bounds, kinds: kinds}
}

// internal returns the internal point of external point x. x is clamped into
// the box first and kept startMargin away from the faces in internal space.
func (t transform) internal(x []float64) []float64 {
	u := append([]float64(nil), x...)
	for i, k := range t.kinds {
		b := t.bounds[i]
		v := b.Clamp(x[i])
		switch k {
		case boundLower:
			d := v - b.Lo + 1
			u[i] = math.Max(math.Sqrt(d*d-1), startMargin)
		case boundUpper:
			d := b.Hi - v + 1
			u[i] = math.Max(math.Sqrt(d*d-1), startMargin)
		case boundBoth:
			s := 2*(v-b.Lo)/(b.Hi-b.Lo) - 1
			lim := math.Pi/2 - startMargin
			u[i] = math.Max(-lim, math.Min(lim, math.Asin(math.Max(-1, math.Min(1, s)))))
		case boundFixed:
			u[i] = 0
		}
	}

	return u
}

// external writes the external point of internal point u into dst and
// returns it. The result always lies inside the box.
func (t transform) external(dst, u []float64) []float64 {
	copy(dst, u)
	for i, k := range t.kinds {
		b := t.bounds[i]
		switch k {
		case boundLower:
			dst[i] = b.Lo - 1 + math.Sqrt(u[i]*u[i]+1)
		case boundUpper:
			dst[i] = b.Hi + 1 - math.Sqrt(u[i]*u[i]+1)
		case boundBoth:
			dst[i] = b.Lo + 0.5*(b.Hi-b.Lo)*(math.Sin(u[i])+1)
		case boundFixed:
			dst[i] = b.Lo
		default:
			continue
		}
		dst[i] = b.Clamp(dst[i])
	}

	return dst
}

// onFace reports whether any bounded coordinate of x rests on one of its
// bounds. Fixed coordinates never count.
func (t transform) onFace(x []float64) bool {
	for i, k := range t.kinds {
		b := t.bounds[i]
		switch k {
		case boundLower:
			if x[i]-b.Lo <= faceTolerance*math.Max(1, math.Abs(b.Lo)) {
				return true
			}
		case boundUpper:
			if b.Hi-x[i] <= faceTolerance*math.Max(1, math.Abs(b.Hi)) {
				return true
			}
		case boundBoth:
			tol := faceTolerance * (b.Hi - b.Lo)
			if x[i]-b.Lo <= tol || b.Hi-x[i] <= tol {
				return true
			}
		}
	}

	return false
}
