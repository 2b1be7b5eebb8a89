// Package corrfit fits user models to correlated, multi-dimensional data by
// generalized least squares, with uncertain independent variables and
// statistically resampled replicas.
//
// # Core Features
//
//   - Any number of X (independent) and Y (dependent) dimensions over a dense
//     coordinate grid, with sparse Y data
//   - Exact X dimensions read directly, uncertain ones fitted as nuisance
//     parameters penalized against their measurement
//   - Declared pairwise correlations between any two X or Y cells
//   - Tolerance-truncated pseudo-inverse of the total variance matrix
//   - Replica ensembles (bootstrap or jackknife) with covariance estimation
//     and parallel replica fits
//
// # Basic Usage
//
// Fitting a line through five points with unit Y errors:
//
//	reg := corrfit.NewRegistry()
//	reg.AddXDimension("x", 5, dimension.Exact)
//	reg.AddYDimension("y")
//
//	store, _ := corrfit.NewStore(reg)
//	for k := range 5 {
//	    store.SetX(k, 0, float64(k))
//	    store.SetY(k, 0, 2*float64(k)+1)
//	}
//	store.SetYYVar(0, 0, identity5)
//
//	line := model.MustNew("line", 1, 2, func(x, p []float64) float64 {
//	    return p[0]*x[0] + p[1]
//	})
//	res, _ := corrfit.Fit(store, []model.Model{line}, []float64{0, 0})
//	fmt.Println(res)
//
// # Package Structure
//
// This package provides top-level wrappers for the common cases. The
// dimension, variance, chi2, fit, minimizer and resample packages expose the
// full API.
package corrfit

import (
	"fmt"

	"github.com/arloliu/corrfit/dimension"
	"github.com/arloliu/corrfit/errs"
	"github.com/arloliu/corrfit/fit"
	"github.com/arloliu/corrfit/internal/hash"
	"github.com/arloliu/corrfit/minimizer"
	"github.com/arloliu/corrfit/model"
	"github.com/arloliu/corrfit/resample"
	"github.com/arloliu/corrfit/variance"
)

// NewRegistry creates an empty dimension registry.
func NewRegistry() *dimension.Registry {
	return dimension.NewRegistry()
}

// NewStore creates a variance store over reg.
//
// Parameters:
//   - reg: Registry describing axes and data points
//   - opts: Optional store configuration (e.g. variance.WithTolerance)
//
// Returns:
//   - *variance.Store: The new store
//   - error: Configuration error if an option is invalid
func NewStore(reg *dimension.Registry, opts ...variance.Option) (*variance.Store, error) {
	return variance.NewStore(reg, opts...)
}

// NewCoordinator creates a replica coordinator for nSample resampled datasets.
func NewCoordinator(nSample int, opts ...resample.Option) (*resample.Coordinator, error) {
	return resample.NewCoordinator(nSample, opts...)
}

// DefaultMinimizer returns the default single-fit minimizer: a Nelder-Mead
// search refined by BFGS.
func DefaultMinimizer() (fit.Minimizer, error) {
	nm, err := minimizer.NewNelderMead()
	if err != nil {
		return nil, err
	}
	bfgs, err := minimizer.NewBFGS()
	if err != nil {
		return nil, err
	}

	return minimizer.Chain(nm, bfgs), nil
}

// DefaultMinimizers returns the default ensemble minimizers: the default
// minimizer for Central and plain BFGS for the replicas, which start close
// to the Central minimum.
func DefaultMinimizers() (resample.Minimizers, error) {
	central, err := DefaultMinimizer()
	if err != nil {
		return resample.Minimizers{}, err
	}
	bfgs, err := minimizer.NewBFGS()
	if err != nil {
		return resample.Minimizers{}, err
	}

	return resample.Minimizers{Central: central, Replica: bfgs}, nil
}

// Fit runs one fit of models to store with the default minimizer.
//
// Parameters:
//   - store: Store with data and covariance blocks
//   - models: One model per Y dimension
//   - p0: Initial parameters
//   - opts: Optional driver configuration
//
// Returns:
//   - *fit.Result: The fit result
//   - error: Any driver error (see fit.Driver.Fit)
func Fit(store *variance.Store, models []model.Model, p0 []float64, opts ...fit.Option) (*fit.Result, error) {
	m, err := DefaultMinimizer()
	if err != nil {
		return nil, err
	}
	d, err := fit.NewDriver(store, opts...)
	if err != nil {
		return nil, err
	}

	return d.Fit(models, p0, m, true)
}

// Guess ranks standard model shapes on the active points of Y dimension j,
// best first. The registry must have exactly one X dimension; its stored
// values are the abscissae.
//
// Parameters:
//   - store: Store holding the data
//   - j: Y dimension index
//   - types: Shapes to try, all standard shapes when empty
//
// Returns:
//   - []*model.Guess: Successful guesses ordered by R²; the first one's
//     Coefficients are a natural p0 for Fit or FitAll
//   - error: errs.ErrInvalidDimension for multi-axis registries, range errors,
//     or the ranking error when no shape fits
func Guess(store *variance.Store, j int, types ...model.Type) ([]*model.Guess, error) {
	reg := store.Registry()
	if reg.NumXDimensions() != 1 {
		return nil, fmt.Errorf("%w: shape guesses need one X dimension, have %d",
			errs.ErrInvalidDimension, reg.NumXDimensions())
	}
	if j < 0 || j >= reg.NumYDimensions() {
		return nil, fmt.Errorf("%w: Y dimension %d", errs.ErrUnknownDimension, j)
	}

	points := reg.Layout().YPoints(j)
	x := make([]float64, len(points))
	y := make([]float64, len(points))
	for n, k := range points {
		var err error
		if x[n], err = store.X(k, 0); err != nil {
			return nil, err
		}
		if y[n], err = store.Y(k, j); err != nil {
			return nil, err
		}
	}

	return model.Rank(x, y, types...)
}

// DimensionID returns the 64-bit xxHash64 identifier the registry uses for a
// dimension name.
func DimensionID(name string) uint64 {
	return hash.ID(name)
}
