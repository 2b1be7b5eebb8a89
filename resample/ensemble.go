package resample

import (
	"math"

	"github.com/arloliu/corrfit/fit"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Ensemble holds the Central fit and the replica fits of one FitAll.
//
// Cross-replica statistics use the completed replicas only and follow the
// coordinator's resampling scheme: the unbiased sample variance around the
// replica mean for Bootstrap, scaled by (N-1)²/N for Jackknife.
type Ensemble struct {
	central    *fit.Result
	replicas   []*fit.Result
	failure    string
	resampling Resampling
}

// Central returns the Central fit result.
func (e *Ensemble) Central() *fit.Result {
	return e.central
}

// Replica returns the result of replica r, nil if it was not fitted or r is
// out of range.
func (e *Ensemble) Replica(r Replica) *fit.Result {
	if r.IsCentral() {
		return e.central
	}
	if check(r, len(e.replicas)) != nil {
		return nil
	}

	return e.replicas[r.Index()]
}

// NSample returns the number of resampled replicas of the ensemble.
func (e *Ensemble) NSample() int {
	return len(e.replicas)
}

// Completed returns the number of replicas that were fitted.
func (e *Ensemble) Completed() int {
	n := 0
	for _, r := range e.replicas {
		if r != nil {
			n++
		}
	}

	return n
}

// CheckFit reports whether the Central fit passed the quality window.
func (e *Ensemble) CheckFit() bool {
	return e.failure == ""
}

// FailureReason describes why CheckFit is false, "" otherwise.
func (e *Ensemble) FailureReason() string {
	return e.failure
}

// Chi2PerDof returns chi2/dof of replica r, NaN if unavailable.
func (e *Ensemble) Chi2PerDof(r Replica) float64 {
	res := e.Replica(r)
	if res == nil {
		return math.NaN()
	}

	return res.Chi2PerDof()
}

// PValue returns the p-value of replica r, NaN if unavailable.
func (e *Ensemble) PValue(r Replica) float64 {
	res := e.Replica(r)
	if res == nil {
		return math.NaN()
	}

	return res.PValue()
}

// Derived evaluates fn on every result. Missing replicas read as NaN.
func (e *Ensemble) Derived(fn func(*fit.Result) float64) Vector {
	v := Vector{Central: fn(e.central), Samples: make([]float64, len(e.replicas))}
	for i, r := range e.replicas {
		if r == nil {
			v.Samples[i] = math.NaN()
			continue
		}
		v.Samples[i] = fn(r)
	}

	return v
}

// Variance returns the cross-replica variance of the quantity fn derives
// from a fit result. NaN with fewer than two completed replicas.
func (e *Ensemble) Variance(fn func(*fit.Result) float64) float64 {
	samples := e.completed(fn)
	n := len(samples)
	if n < 2 {
		return math.NaN()
	}

	return stat.Variance(samples, nil) * e.resampling.scale(n)
}

// Error returns the square root of Variance.
func (e *Ensemble) Error(fn func(*fit.Result) float64) float64 {
	return math.Sqrt(e.Variance(fn))
}

// ParamError returns the cross-replica standard error of parameter i.
func (e *Ensemble) ParamError(i int) float64 {
	return e.Error(func(r *fit.Result) float64 { return r.Params()[i] })
}

// ParamCovariance returns the cross-replica covariance matrix of the model
// parameters, nil with fewer than two completed replicas.
func (e *Ensemble) ParamCovariance() *mat.SymDense {
	var rows [][]float64
	for _, r := range e.replicas {
		if r != nil {
			rows = append(rows, r.Params())
		}
	}
	n := len(rows)
	if n < 2 {
		return nil
	}

	data := mat.NewDense(n, len(rows[0]), nil)
	for i, row := range rows {
		data.SetRow(i, row)
	}
	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, data, nil)
	cov.ScaleSym(e.resampling.scale(n), &cov)

	return &cov
}

// ParamMean returns the replica mean of every model parameter, nil with no
// completed replica.
func (e *Ensemble) ParamMean() []float64 {
	var mean []float64
	n := 0
	for _, r := range e.replicas {
		if r == nil {
			continue
		}
		if mean == nil {
			mean = make([]float64, r.NPar())
		}
		floats.Add(mean, r.Params())
		n++
	}
	if n == 0 {
		return nil
	}
	floats.Scale(1/float64(n), mean)

	return mean
}

func (e *Ensemble) completed(fn func(*fit.Result) float64) []float64 {
	out := make([]float64, 0, len(e.replicas))
	for _, r := range e.replicas {
		if r != nil {
			out = append(out, fn(r))
		}
	}

	return out
}
