// Package model defines the model callables fitted by the chi2 and fit
// packages.
//
// A Model maps an argument vector x, one entry per X dimension of the fit
// registry, and a parameter vector p to a scalar prediction. Every Y
// dimension of a fit gets its own Model; all of them share the same
// parameter vector, so their NPar must agree.
//
// # Custom Models
//
//	line := model.MustNew("line", 1, 2, func(x, p []float64) float64 {
//	    return p[0]*x[0] + p[1]
//	})
//
// # Standard Shapes
//
// Standard returns ready-made one-argument models:
//
//   - linear: y = a + b*x
//   - quadratic: y = a + b*x + c*x²
//   - hyperbolic: y = a + b / x
//   - logarithmic: y = a + b * ln(x)
//   - power: y = a * x^b
//   - exponential: y = a * e^(b * x)
//
// # Initial Parameters
//
// Correlated fits are non-linear and start from an initial parameter vector.
// Initial computes one in closed form by linearizing the shape and running an
// unweighted least-squares fit; Rank tries several shapes and orders them by
// R²:
//
//	guesses, err := model.Rank(xs, ys)
//	best := guesses[0]
//	p0 := best.Coefficients
package model
