// Package fit runs single correlated fits.
//
// A Driver attaches one model per Y dimension to a variance store, assembles
// the start point θ₀ = p₀ followed by the measured value of every uncertain X
// slot, bounds the nuisance parameters around their measurements and hands
// the chi-square objective to a Minimizer. The outcome is a Result holding
// the fitted vector, chi-square, degrees of freedom, p-value and bound model
// closures.
//
// Minimizers are pluggable. Non-convergence is a status on the Result, never
// an error: a best-effort result stays usable and retry policy belongs to the
// caller (see minimizer.Chain).
//
// Example:
//
//	d, err := fit.NewDriver(store, fit.WithParameterNames("a", "b"))
//	if err != nil {
//	    return err
//	}
//	res, err := d.Fit([]model.Model{line}, []float64{0, 0}, nm, true)
//	if err != nil {
//	    return err
//	}
//	a, _ := res.Param("a")
package fit
