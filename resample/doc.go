// Package resample fits an ensemble of statistically resampled datasets.
//
// A Coordinator owns one registry and one variance store shared by the
// Central (original) dataset and N resampled replicas. Values are written
// once per cell as a Vector holding the Central value and the N samples.
//
// ComputeCovariance estimates every raw covariance block from the spread of
// the samples. The Central value never takes part in that estimate: the
// covariance is the unbiased sample covariance of the N samples around their
// own mean, rescaled by (N-1)²/N for jackknife ensembles.
//
// FitAll fits Central first, checks its chi2/dof against a quality window and
// then fits every replica seeded with the Central parameters. Replica fits run
// in parallel on worker-local forks of the store while the registry is
// frozen; the results are independent of the worker count.
//
// Example:
//
//	c, _ := resample.NewCoordinator(100, resample.WithWorkers(8))
//	reg := c.Registry()
//	reg.AddXDimension("x", 5, dimension.Exact)
//	reg.AddYDimension("y")
//	for k := range 5 {
//	    c.SetX(k, 0, resample.NewVector(xs[k], xSamples[k]...))
//	    c.SetY(k, 0, resample.NewVector(ys[k], ySamples[k]...))
//	}
//	ens, err := c.FitAll(models, resample.Minimizers{Central: nm, Replica: bfgs}, p0)
//	if err != nil {
//	    return err
//	}
//	if !ens.CheckFit() {
//	    log.Println(ens.FailureReason())
//	}
//	slopeErr := ens.ParamError(0)
package resample
