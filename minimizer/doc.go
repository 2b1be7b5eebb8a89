// Package minimizer adapts gonum's optimize package to the fit.Minimizer
// contract.
//
// NewNelderMead and NewBFGS wrap the corresponding optimize methods; BFGS
// receives central finite-difference gradients from gonum's diff/fd.
// Per-parameter bounds are enforced by a smooth change of variables onto the
// box; a solution resting on a bound face is not reported as converged.
// Gonum termination codes are mapped to fit.Status: convergence criteria to
// StatusConverged, budget limits to StatusNotConverged and unusable results
// to StatusFailed.
//
// Chain composes minimizers, for example a derivative-free search for the
// central fit followed by a quasi-Newton refinement:
//
//	nm, _ := minimizer.NewNelderMead()
//	bfgs, _ := minimizer.NewBFGS(minimizer.WithMaxIterations(200))
//	res, err := driver.Fit(models, p0, minimizer.Chain(nm, bfgs), true)
package minimizer
