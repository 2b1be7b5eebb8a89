package resample

import (
	"fmt"
	"math"

	"github.com/arloliu/corrfit/errs"
	"github.com/arloliu/corrfit/fit"
	"github.com/arloliu/corrfit/model"
	"golang.org/x/sync/errgroup"
)

// Minimizers selects the minimizer of the Central fit and of the replica
// fits. Replica fits start from the Central parameters, so a fast local
// method usually suffices there. A nil Replica reuses Central.
//
// The Replica minimizer is called from several goroutines at once.
type Minimizers struct {
	Central fit.Minimizer
	Replica fit.Minimizer
}

// FitAll fits the Central replica and then every resampled replica.
//
// Steps:
//  1. Estimate the covariance if values changed since the last estimate.
//  2. Fit Central from p0 with a full engine rebuild.
//  3. Check Central's chi2/dof against the quality window. Outside it the
//     ensemble is flagged failed and, with SkipOnFailure, returned as is.
//  4. Freeze the registry, fit every replica seeded with the Central
//     parameters on worker-local forks of the store, then thaw.
//  5. Reload the Central values into the live store.
//
// Parameters:
//   - models: One model per Y dimension
//   - ms: Central and replica minimizers
//   - p0: Initial parameters of the Central fit
//
// Returns:
//   - *Ensemble: Central and replica results; replicas stay nil when skipped
//   - error: Any error of the Central fit, covariance estimation or data loading
func (c *Coordinator) FitAll(models []model.Model, ms Minimizers, p0 []float64) (*Ensemble, error) {
	if ms.Central == nil {
		return nil, errs.ErrNilMinimizer
	}
	if ms.Replica == nil {
		ms.Replica = ms.Central
	}

	if err := c.ComputeCovariance(); err != nil {
		return nil, err
	}
	if err := c.SetActiveReplica(Central); err != nil {
		return nil, err
	}

	driver, err := fit.NewDriver(c.store, c.cfg.FitOptions...)
	if err != nil {
		return nil, err
	}
	central, err := driver.Fit(models, p0, ms.Central, true)
	if err != nil {
		return nil, err
	}

	ens := &Ensemble{
		central:    central,
		replicas:   make([]*fit.Result, c.nSample),
		resampling: c.cfg.Resampling,
	}
	c.log.Info().
		Str("status", central.Status().String()).
		Float64("chi2_per_dof", central.Chi2PerDof()).
		Msg("central fit finished")

	if reason := c.qualityGate(central); reason != "" {
		ens.failure = reason
		c.log.Warn().Str("reason", reason).Bool("skip", c.cfg.SkipOnFailure).Msg("central fit rejected")
		if c.cfg.SkipOnFailure {
			return ens, nil
		}
	}

	if err := c.fitReplicas(models, ms.Replica, central.Params(), ens); err != nil {
		return nil, err
	}

	if err := c.SetActiveReplica(Central); err != nil {
		return nil, err
	}

	return ens, nil
}

// qualityGate returns why central is unacceptable, or "" if it passes.
func (c *Coordinator) qualityGate(central *fit.Result) string {
	if central.Status() == fit.StatusFailed {
		return "central fit failed"
	}

	v := central.Chi2PerDof()
	switch {
	case math.IsNaN(v):
		return fmt.Sprintf("chi2/dof undefined (ndof %d)", central.NDof())
	case v < c.cfg.MinChi2PerDof || v >= c.cfg.MaxChi2PerDof:
		return fmt.Sprintf("chi2/dof %.4g outside [%g, %g)", v, c.cfg.MinChi2PerDof, c.cfg.MaxChi2PerDof)
	default:
		return ""
	}
}

// fitReplicas fits every sample on a frozen registry. Samples are split into
// contiguous chunks, one per worker; each worker owns a fork of the store and
// a driver, so the chunks share nothing mutable.
func (c *Coordinator) fitReplicas(models []model.Model, m fit.Minimizer, seed []float64, ens *Ensemble) error {
	if _, err := c.store.Inverse(); err != nil {
		return err
	}

	if !c.reg.Frozen() {
		c.reg.Freeze()
		defer c.reg.Thaw()
	}

	workers := min(c.cfg.Workers, c.nSample)
	chunk := (c.nSample + workers - 1) / workers

	var g errgroup.Group
	g.SetLimit(workers)
	for lo := 0; lo < c.nSample; lo += chunk {
		hi := min(lo+chunk, c.nSample)
		g.Go(func() error {
			fork := c.store.Fork()
			driver, err := fit.NewDriver(fork, c.cfg.FitOptions...)
			if err != nil {
				return err
			}

			for i := lo; i < hi; i++ {
				rep := Sample(i)
				if err := c.load(fork, rep); err != nil {
					return err
				}
				res, err := driver.Fit(models, seed, m, false)
				if err != nil {
					return fmt.Errorf("%s: %w", rep, err)
				}
				ens.replicas[i] = res

				c.log.Debug().
					Int("replica", i).
					Str("status", res.Status().String()).
					Float64("chi2", res.Chi2()).
					Msg("replica fit finished")
			}

			return nil
		})
	}

	return g.Wait()
}
