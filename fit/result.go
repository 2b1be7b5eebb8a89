package fit

import (
	"fmt"
	"math"
	"strings"

	"github.com/arloliu/corrfit/model"
	"gonum.org/v1/gonum/stat/distuv"
)

// Result is the outcome of one fit.
//
// Values holds the flat vector [params | nuisance] at the minimum. A Result
// is immutable; accessors return copies.
type Result struct {
	values      []float64
	nPar        int
	chi2        float64
	nDof        int
	names       []string
	status      Status
	evaluations int
	layoutID    uint64
	models      []model.Model
}

// Values returns a copy of the flat vector [params | nuisance].
func (r *Result) Values() []float64 {
	return append([]float64(nil), r.values...)
}

// Params returns a copy of the fitted model parameters.
func (r *Result) Params() []float64 {
	return append([]float64(nil), r.values[:r.nPar]...)
}

// Nuisance returns a copy of the fitted nuisance values in layout order.
func (r *Result) Nuisance() []float64 {
	return append([]float64(nil), r.values[r.nPar:]...)
}

// Param returns the fitted value of the named parameter.
func (r *Result) Param(name string) (float64, bool) {
	for i, n := range r.names {
		if n == name {
			return r.values[i], true
		}
	}

	return 0, false
}

// ParamNames returns a copy of the parameter names.
func (r *Result) ParamNames() []string {
	return append([]string(nil), r.names...)
}

// Chi2 returns the chi-square at the minimum, NaN for failed fits.
func (r *Result) Chi2() float64 {
	return r.chi2
}

// NDof returns active Y points minus parameters. It may be zero or negative.
func (r *Result) NDof() int {
	return r.nDof
}

// NPar returns the number of model parameters.
func (r *Result) NPar() int {
	return r.nPar
}

// Chi2PerDof returns Chi2/NDof, or NaN when NDof is not positive.
func (r *Result) Chi2PerDof() float64 {
	if r.nDof <= 0 {
		return math.NaN()
	}

	return r.chi2 / float64(r.nDof)
}

// PValue returns the probability of a chi-square at least as large as Chi2
// under a chi-square distribution with NDof degrees of freedom. NaN when
// NDof is not positive or the fit failed.
func (r *Result) PValue() float64 {
	if r.nDof <= 0 || math.IsNaN(r.chi2) {
		return math.NaN()
	}

	return distuv.ChiSquared{K: float64(r.nDof)}.Survival(r.chi2)
}

// Status returns the minimizer outcome.
func (r *Result) Status() Status {
	return r.status
}

// Converged reports whether the minimizer converged.
func (r *Result) Converged() bool {
	return r.status == StatusConverged
}

// Evaluations returns the number of objective evaluations of the minimizer.
func (r *Result) Evaluations() int {
	return r.evaluations
}

// LayoutID returns the fingerprint of the layout the fit ran on.
func (r *Result) LayoutID() uint64 {
	return r.layoutID
}

// NumModels returns the number of fitted models, one per Y dimension.
func (r *Result) NumModels() int {
	return len(r.models)
}

// Model returns the model of Y dimension j bound to the fitted parameters.
func (r *Result) Model(j int) func(x ...float64) float64 {
	return model.Bind(r.models[j], r.values[:r.nPar])
}

// String returns a human-readable summary of the result.
func (r *Result) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Result{Status: %s, χ²: %.4g, NDof: %d, χ²/dof: %.4g, p: %.4g",
		r.status, r.chi2, r.nDof, r.Chi2PerDof(), r.PValue())
	for i, n := range r.names {
		fmt.Fprintf(&sb, ", %s: %.6g", n, r.values[i])
	}
	sb.WriteString("}")

	return sb.String()
}
