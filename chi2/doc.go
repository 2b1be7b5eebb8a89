// Package chi2 implements the generalized chi-square objective of a
// correlated fit.
//
// The objective is a function of θ = [p | ξ]: the model parameters p shared
// by every Y dimension, followed by one nuisance value ξ per active uncertain
// X slot in Layout order. For every active Y point the model of its Y
// dimension is evaluated on an argument vector that reads exact X dimensions
// from the stored values and uncertain ones from ξ. Together with the
// nuisance residuals ξ - x_raw these residuals form the vector v, and
//
//	g(θ) = vᵀ · V⁺ · v
//
// with V⁺ the tolerance-truncated pseudo-inverse held by the variance store.
//
// Example:
//
//	e, err := chi2.New(store, []model.Model{line})
//	if err != nil {
//	    return err
//	}
//	value, err := e.Chi2([]float64{2, 1})
package chi2
