package fit

import "math"

// Objective is the scalar function a minimizer minimizes. It returns NaN
// where it cannot be evaluated.
type Objective func(x []float64) float64

// Bound is a closed interval constraint on one coordinate.
type Bound struct {
	Lo, Hi float64
}

// Unbounded returns the bound (-Inf, +Inf).
func Unbounded() Bound {
	return Bound{Lo: math.Inf(-1), Hi: math.Inf(1)}
}

// IsUnbounded reports whether b places no constraint.
func (b Bound) IsUnbounded() bool {
	return math.IsInf(b.Lo, -1) && math.IsInf(b.Hi, 1)
}

// Contains reports whether v lies within b.
func (b Bound) Contains(v float64) bool {
	return v >= b.Lo && v <= b.Hi
}

// Clamp returns v projected into b.
func (b Bound) Clamp(v float64) float64 {
	return math.Min(math.Max(v, b.Lo), b.Hi)
}

// Status is the outcome of a minimization.
type Status int

const (
	// StatusConverged means the minimizer met its convergence criterion.
	StatusConverged Status = iota
	// StatusNotConverged means the minimizer stopped on a budget (iterations,
	// evaluations) with a usable best point.
	StatusNotConverged
	// StatusFailed means the minimizer could not produce a usable point.
	StatusFailed
)

var statusNames = map[Status]string{
	StatusConverged:    "converged",
	StatusNotConverged: "not converged",
	StatusFailed:       "failed",
}

// String returns the string representation of the status.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}

	return "unknown"
}

// Solution is the result of a minimization.
type Solution struct {
	// X is the best point found. Nil or wrongly sized X is treated as failure.
	X []float64
	// F is the objective at X.
	F float64
	// Status reports convergence.
	Status Status
	// Evaluations is the number of objective evaluations.
	Evaluations int
}

// Minimizer minimizes an objective from a start point within per-coordinate
// bounds. bounds is either nil or has len(x0) entries.
//
// Non-convergence is reported through Solution.Status, never by panicking.
// Retry and algorithm chaining are composed outside the fit driver.
type Minimizer interface {
	Minimize(f Objective, x0 []float64, bounds []Bound) Solution
}

// MinimizerFunc adapts a function to the Minimizer interface.
type MinimizerFunc func(f Objective, x0 []float64, bounds []Bound) Solution

// Minimize calls m(f, x0, bounds).
func (m MinimizerFunc) Minimize(f Objective, x0 []float64, bounds []Bound) Solution {
	return m(f, x0, bounds)
}
