package fit

import (
	"fmt"
	"math"

	"github.com/arloliu/corrfit/chi2"
	"github.com/arloliu/corrfit/errs"
	"github.com/arloliu/corrfit/internal/options"
	"github.com/arloliu/corrfit/logging"
	"github.com/arloliu/corrfit/model"
	"github.com/arloliu/corrfit/variance"
	"github.com/rs/zerolog"
)

// DefaultNuisanceBound is the default half-width, in marginal standard
// deviations, of the box each nuisance parameter is kept in.
const DefaultNuisanceBound = 10.0

// Config holds Driver configuration.
type Config struct {
	// NuisanceBound bounds every nuisance parameter to raw ± NuisanceBound·σ.
	// Zero or negative disables the bound.
	NuisanceBound float64
	// ParamNames names the model parameters. Defaults to p0, p1, ...
	ParamNames []string
	// ParamBounds constrains the model parameters. Nil means unbounded.
	ParamBounds []Bound
	// Logger overrides the package logger.
	Logger *zerolog.Logger
}

// Option is a functional option for Config.
type Option = options.Option[*Config]

// WithNuisanceBound sets the nuisance box half-width in standard deviations.
// Zero or negative values disable the box.
func WithNuisanceBound(nSigma float64) Option {
	return options.New(func(cfg *Config) error {
		if math.IsNaN(nSigma) {
			return fmt.Errorf("nuisance bound is NaN")
		}
		cfg.NuisanceBound = nSigma

		return nil
	})
}

// WithParameterNames names the model parameters in order.
func WithParameterNames(names ...string) Option {
	return options.New(func(cfg *Config) error {
		seen := make(map[string]struct{}, len(names))
		for _, n := range names {
			if _, dup := seen[n]; dup {
				return fmt.Errorf("duplicate parameter name %q", n)
			}
			seen[n] = struct{}{}
		}
		cfg.ParamNames = append([]string(nil), names...)

		return nil
	})
}

// WithParameterBounds constrains the model parameters in order.
func WithParameterBounds(bounds ...Bound) Option {
	return options.New(func(cfg *Config) error {
		for i, b := range bounds {
			if b.Lo > b.Hi || math.IsNaN(b.Lo) || math.IsNaN(b.Hi) {
				return fmt.Errorf("parameter %d: invalid bound [%g, %g]", i, b.Lo, b.Hi)
			}
		}
		cfg.ParamBounds = append([]Bound(nil), bounds...)

		return nil
	})
}

// WithLogger sets the logger used for fit diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return options.NoError(func(cfg *Config) {
		cfg.Logger = &l
	})
}

// Driver runs single fits over a variance store.
//
// A Driver keeps its chi-square engine between fits, so consecutive fits on
// the same store only refresh the data that changed. Driver is not safe for
// concurrent use.
type Driver struct {
	store  *variance.Store
	cfg    Config
	log    zerolog.Logger
	engine *chi2.Engine
}

// NewDriver creates a fit driver over store.
//
// Parameters:
//   - store: Variance store holding data and covariance blocks
//   - opts: Optional configuration (nuisance bound, parameter names and bounds, logger)
//
// Returns:
//   - *Driver: The new driver
//   - error: errs.ErrInvalidOption if an option is invalid
func NewDriver(store *variance.Store, opts ...Option) (*Driver, error) {
	cfg := Config{NuisanceBound: DefaultNuisanceBound}
	if err := options.Apply(&cfg, opts...); err != nil {
		return nil, err
	}

	log := logging.GetLogger("fit")
	if cfg.Logger != nil {
		log = *cfg.Logger
	}

	return &Driver{store: store, cfg: cfg, log: log}, nil
}

// Store returns the store the driver fits.
func (d *Driver) Store() *variance.Store {
	return d.store
}

// Config returns a copy of the driver configuration.
func (d *Driver) Config() Config {
	return d.cfg
}

// Engine returns the chi-square engine of the last fit, nil before the first.
func (d *Driver) Engine() *chi2.Engine {
	return d.engine
}

// Fit fits models to the store's active data.
//
// The start point is θ₀ = p0 followed by the measured value of every
// nuisance slot. Nuisance parameters are boxed to raw ± NuisanceBound·σ.
// With reinit the engine buffers are rebuilt unconditionally; otherwise only
// what changed since the last fit is refreshed.
//
// Parameters:
//   - models: One model per Y dimension with equal parameter counts
//   - p0: Initial model parameters
//   - m: Minimizer to run
//   - reinit: Force a full rebuild of the engine buffers
//
// Returns:
//   - *Result: The fit result; minimizer non-convergence is reported by
//     Result.Status, not as an error
//   - error: errs.ErrModelMismatch, errs.ErrParameterCount,
//     errs.ErrNoFitPoints, errs.ErrNilMinimizer or a numerical error from
//     the variance inversion
func (d *Driver) Fit(models []model.Model, p0 []float64, m Minimizer, reinit bool) (*Result, error) {
	if m == nil {
		return nil, errs.ErrNilMinimizer
	}
	if err := d.attach(models); err != nil {
		return nil, err
	}
	if reinit {
		d.engine.Invalidate()
	}

	e := d.engine
	if err := e.Prepare(); err != nil {
		return nil, err
	}

	nPar := e.NPar()
	if len(p0) != nPar {
		return nil, fmt.Errorf("%w: %d initial values for %d parameters", errs.ErrParameterCount, len(p0), nPar)
	}
	names, err := d.paramNames(nPar)
	if err != nil {
		return nil, err
	}

	raw, err := e.RawX()
	if err != nil {
		return nil, err
	}
	theta0 := make([]float64, 0, nPar+len(raw))
	theta0 = append(theta0, p0...)
	theta0 = append(theta0, raw...)

	bounds, err := d.bounds(nPar, raw)
	if err != nil {
		return nil, err
	}
	for i, b := range bounds {
		theta0[i] = b.Clamp(theta0[i])
	}

	sol := m.Minimize(e.Eval, theta0, bounds)

	status := sol.Status
	theta := sol.X
	if len(theta) != len(theta0) {
		status = StatusFailed
		theta = theta0
	}
	theta = append([]float64(nil), theta...)

	chi2, err := e.Chi2(theta)
	if err != nil || math.IsNaN(chi2) {
		status = StatusFailed
		chi2 = math.NaN()
	}

	layout := e.Layout()
	res := &Result{
		values:      theta,
		nPar:        nPar,
		chi2:        chi2,
		nDof:        e.NDof(),
		names:       names,
		status:      status,
		evaluations: sol.Evaluations,
		layoutID:    layout.ID(),
		models:      append([]model.Model(nil), models...),
	}

	ev := d.log.Debug()
	if status == StatusFailed {
		ev = d.log.Warn()
	}
	ev.Str("status", status.String()).
		Float64("chi2", chi2).
		Int("ndof", res.nDof).
		Int("evaluations", sol.Evaluations).
		Bool("reinit", reinit).
		Msg("fit finished")

	return res, nil
}

func (d *Driver) attach(models []model.Model) error {
	if d.engine == nil {
		e, err := chi2.New(d.store, models)
		if err != nil {
			return err
		}
		d.engine = e

		return nil
	}

	return d.engine.SetModels(models)
}

func (d *Driver) paramNames(nPar int) ([]string, error) {
	if d.cfg.ParamNames == nil {
		names := make([]string, nPar)
		for i := range names {
			names[i] = fmt.Sprintf("p%d", i)
		}

		return names, nil
	}
	if len(d.cfg.ParamNames) != nPar {
		return nil, fmt.Errorf("%w: %d parameter names for %d parameters",
			errs.ErrParameterCount, len(d.cfg.ParamNames), nPar)
	}

	return d.cfg.ParamNames, nil
}

func (d *Driver) bounds(nPar int, raw []float64) ([]Bound, error) {
	if d.cfg.ParamBounds != nil && len(d.cfg.ParamBounds) != nPar {
		return nil, fmt.Errorf("%w: %d parameter bounds for %d parameters",
			errs.ErrParameterCount, len(d.cfg.ParamBounds), nPar)
	}

	bounds := make([]Bound, nPar+len(raw))
	for i := range nPar {
		bounds[i] = Unbounded()
		if d.cfg.ParamBounds != nil {
			bounds[i] = d.cfg.ParamBounds[i]
		}
	}

	var sigma []float64
	if d.cfg.NuisanceBound > 0 && len(raw) > 0 {
		s, err := d.engine.NuisanceSigma()
		if err != nil {
			return nil, err
		}
		sigma = s
	}
	for q, x := range raw {
		b := Unbounded()
		if sigma != nil && sigma[q] > 0 {
			w := d.cfg.NuisanceBound * sigma[q]
			b = Bound{Lo: x - w, Hi: x + w}
		}
		bounds[nPar+q] = b
	}

	return bounds, nil
}
