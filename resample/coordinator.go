package resample

import (
	"fmt"
	"math"
	"runtime"

	"github.com/arloliu/corrfit/dimension"
	"github.com/arloliu/corrfit/errs"
	"github.com/arloliu/corrfit/fit"
	"github.com/arloliu/corrfit/internal/options"
	"github.com/arloliu/corrfit/logging"
	"github.com/arloliu/corrfit/variance"
	"github.com/rs/zerolog"
)

// Resampling selects how the spread of the samples scales to a variance.
type Resampling int

const (
	// Bootstrap samples: unbiased sample covariance over the N samples.
	Bootstrap Resampling = iota
	// Jackknife samples: the sample covariance scaled by (N-1)²/N.
	Jackknife
)

// String returns the string representation of the resampling scheme.
func (r Resampling) String() string {
	switch r {
	case Bootstrap:
		return "bootstrap"
	case Jackknife:
		return "jackknife"
	default:
		return "unknown"
	}
}

// scale converts an unbiased sample covariance over n samples to the
// scheme's variance estimate.
func (r Resampling) scale(n int) float64 {
	if r == Jackknife {
		return float64(n-1) * float64(n-1) / float64(n)
	}

	return 1
}

// Default quality window of the Central fit's chi2/dof.
const (
	DefaultMinChi2PerDof = 0.0
	DefaultMaxChi2PerDof = 2.0
)

// Config holds Coordinator configuration.
type Config struct {
	// Workers bounds the number of replica fits running in parallel.
	Workers int
	// Resampling is the scheme the samples were drawn with.
	Resampling Resampling
	// MinChi2PerDof and MaxChi2PerDof delimit the half-open window
	// [Min, Max) the Central chi2/dof must fall in.
	MinChi2PerDof float64
	MaxChi2PerDof float64
	// SkipOnFailure stops FitAll after a Central fit outside the window.
	SkipOnFailure bool
	// FitOptions configure every fit driver.
	FitOptions []fit.Option
	// StoreOptions configure the variance store.
	StoreOptions []variance.Option
	// Logger overrides the package logger.
	Logger *zerolog.Logger
}

// Option is a functional option for Config.
type Option = options.Option[*Config]

// WithWorkers bounds the number of parallel replica fits. One runs the
// replicas sequentially. Defaults to GOMAXPROCS.
func WithWorkers(n int) Option {
	return options.New(func(cfg *Config) error {
		if n < 1 {
			return fmt.Errorf("workers %d must be positive", n)
		}
		cfg.Workers = n

		return nil
	})
}

// WithResampling sets the resampling scheme. Defaults to Bootstrap.
func WithResampling(r Resampling) Option {
	return options.New(func(cfg *Config) error {
		if r != Bootstrap && r != Jackknife {
			return fmt.Errorf("unknown resampling %d", r)
		}
		cfg.Resampling = r

		return nil
	})
}

// WithQualityWindow sets the window [lo, hi) of acceptable Central chi2/dof.
func WithQualityWindow(lo, hi float64) Option {
	return options.New(func(cfg *Config) error {
		if math.IsNaN(lo) || math.IsNaN(hi) || lo >= hi {
			return fmt.Errorf("invalid quality window [%g, %g)", lo, hi)
		}
		cfg.MinChi2PerDof, cfg.MaxChi2PerDof = lo, hi

		return nil
	})
}

// WithSkipOnFailure controls whether replica fits are skipped after a Central
// fit outside the quality window. Defaults to true.
func WithSkipOnFailure(skip bool) Option {
	return options.NoError(func(cfg *Config) {
		cfg.SkipOnFailure = skip
	})
}

// WithFitOptions sets the options of every fit driver.
func WithFitOptions(opts ...fit.Option) Option {
	return options.NoError(func(cfg *Config) {
		cfg.FitOptions = append(cfg.FitOptions, opts...)
	})
}

// WithTolerance sets the pseudo-inverse tolerance of the variance store.
func WithTolerance(tol float64) Option {
	return options.NoError(func(cfg *Config) {
		cfg.StoreOptions = append(cfg.StoreOptions, variance.WithTolerance(tol))
	})
}

// WithLogger sets the logger used for ensemble diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return options.NoError(func(cfg *Config) {
		cfg.Logger = &l
	})
}

// Coordinator manages a Central dataset and N resampled replicas sharing one
// registry and variance store.
//
// Values are written once per cell as replica Vectors. ComputeCovariance
// estimates every raw covariance block from the spread of the samples and
// pushes it into the store. FitAll fits Central, then every replica seeded
// with the Central parameters.
//
// Coordinator is not safe for concurrent use; FitAll parallelizes internally.
type Coordinator struct {
	cfg Config
	log zerolog.Logger

	reg     *dimension.Registry
	store   *variance.Store
	nSample int

	xs [][]*Vector       // per X dimension and coordinate
	ys []map[int]*Vector // per Y dimension and data index

	covDirty bool
	active   Replica
}

// NewCoordinator creates a coordinator for nSample resampled replicas with a
// fresh registry and store.
//
// Parameters:
//   - nSample: Number of resampled replicas besides Central, at least 2
//   - opts: Optional configuration
//
// Returns:
//   - *Coordinator: The new coordinator
//   - error: errs.ErrInsufficientSample for nSample < 2, errs.ErrInvalidOption
//     for an invalid option
func NewCoordinator(nSample int, opts ...Option) (*Coordinator, error) {
	if nSample < 2 {
		return nil, fmt.Errorf("%w: %d samples, need at least 2", errs.ErrInsufficientSample, nSample)
	}

	cfg := Config{
		Workers:       runtime.GOMAXPROCS(0),
		Resampling:    Bootstrap,
		MinChi2PerDof: DefaultMinChi2PerDof,
		MaxChi2PerDof: DefaultMaxChi2PerDof,
		SkipOnFailure: true,
	}
	if err := options.Apply(&cfg, opts...); err != nil {
		return nil, err
	}

	log := logging.GetLogger("resample")
	if cfg.Logger != nil {
		log = *cfg.Logger
	}

	reg := dimension.NewRegistry()
	store, err := variance.NewStore(reg, cfg.StoreOptions...)
	if err != nil {
		return nil, err
	}

	return &Coordinator{
		cfg:     cfg,
		log:     log,
		reg:     reg,
		store:   store,
		nSample: nSample,
	}, nil
}

// Registry returns the shared registry. Axes, fit points and correlations
// are declared on it directly.
func (c *Coordinator) Registry() *dimension.Registry {
	return c.reg
}

// Store returns the live variance store. It holds the values of the active
// replica.
func (c *Coordinator) Store() *variance.Store {
	return c.store
}

// NSample returns the number of resampled replicas.
func (c *Coordinator) NSample() int {
	return c.nSample
}

// Config returns a copy of the coordinator configuration.
func (c *Coordinator) Config() Config {
	return c.cfg
}

// ActiveReplica returns the replica whose values the live store holds.
func (c *Coordinator) ActiveReplica() Replica {
	return c.active
}

// SetX writes the replica values of coordinate r of X dimension i. The
// Central value goes to the live store.
//
// Returns errs.ErrVectorSize when v does not hold NSample samples and a range
// error for an invalid dimension or coordinate.
func (c *Coordinator) SetX(r, i int, v Vector) error {
	if err := c.checkVector(v); err != nil {
		return err
	}
	if err := c.store.SetX(r, i, v.Central); err != nil {
		return err
	}

	for len(c.xs) < c.reg.NumXDimensions() {
		c.xs = append(c.xs, make([]*Vector, c.reg.XSize(len(c.xs))))
	}
	vc := NewVector(v.Central, v.Samples...)
	c.xs[i][r] = &vc
	c.covDirty = true

	return nil
}

// SetY writes the replica values of data point k of Y dimension j,
// registering the point. The Central value goes to the live store.
func (c *Coordinator) SetY(k, j int, v Vector) error {
	if err := c.checkVector(v); err != nil {
		return err
	}
	if err := c.store.SetY(k, j, v.Central); err != nil {
		return err
	}

	for len(c.ys) < c.reg.NumYDimensions() {
		c.ys = append(c.ys, make(map[int]*Vector))
	}
	vc := NewVector(v.Central, v.Samples...)
	c.ys[j][k] = &vc
	c.covDirty = true

	return nil
}

// X returns a copy of the replica values of coordinate r of X dimension i.
func (c *Coordinator) X(r, i int) (Vector, error) {
	v, err := c.xVector(r, i)
	if err != nil {
		return Vector{}, err
	}

	return NewVector(v.Central, v.Samples...), nil
}

// Y returns a copy of the replica values of data point k of Y dimension j.
func (c *Coordinator) Y(k, j int) (Vector, error) {
	v, err := c.yVector(k, j)
	if err != nil {
		return Vector{}, err
	}

	return NewVector(v.Central, v.Samples...), nil
}

// CovarianceDirty reports whether values changed since the last
// ComputeCovariance.
func (c *Coordinator) CovarianceDirty() bool {
	return c.covDirty
}

// SetActiveReplica loads the values of replica r into the live store.
//
// Only cells of the current layout are written: active Y points and the X
// coordinates they use. Returns errs.ErrMissingReplicaData when one of them
// has no replica values.
func (c *Coordinator) SetActiveReplica(r Replica) error {
	if err := c.load(c.store, r); err != nil {
		return err
	}
	c.active = r

	return nil
}

// load writes the layout cells of replica r into store.
func (c *Coordinator) load(store *variance.Store, r Replica) error {
	if err := check(r, c.nSample); err != nil {
		return err
	}

	l := c.reg.Layout()
	for p := range l.TotalY() {
		cell := l.Cell(p)
		v, err := c.yVector(cell.Index, cell.Dim)
		if err != nil {
			return err
		}
		if err := store.SetY(cell.Index, cell.Dim, v.At(r)); err != nil {
			return err
		}
	}

	for i := range l.NumXDimensions() {
		for _, coord := range l.XCoordinates(i) {
			v, err := c.xVector(coord, i)
			if err != nil {
				return err
			}
			if err := store.SetX(coord, i, v.At(r)); err != nil {
				return err
			}
		}
	}

	return nil
}

func (c *Coordinator) xVector(r, i int) (*Vector, error) {
	if i < 0 || i >= c.reg.NumXDimensions() {
		return nil, fmt.Errorf("%w: X dimension %d", errs.ErrUnknownDimension, i)
	}
	if r < 0 || r >= c.reg.XSize(i) {
		return nil, fmt.Errorf("%w: value %d of X dimension %d", errs.ErrInvalidIndex, r, i)
	}
	if i >= len(c.xs) || c.xs[i][r] == nil {
		return nil, fmt.Errorf("%w: value %d of X dimension %d", errs.ErrMissingReplicaData, r, i)
	}

	return c.xs[i][r], nil
}

func (c *Coordinator) yVector(k, j int) (*Vector, error) {
	if !c.reg.IsRegistered(k, j) {
		return nil, fmt.Errorf("%w: point %d of Y dimension %d", errs.ErrUnregisteredPoint, k, j)
	}
	if j >= len(c.ys) || c.ys[j][k] == nil {
		return nil, fmt.Errorf("%w: point %d of Y dimension %d", errs.ErrMissingReplicaData, k, j)
	}

	return c.ys[j][k], nil
}

func (c *Coordinator) checkVector(v Vector) error {
	if v.Len() != c.nSample {
		return fmt.Errorf("%w: %d samples, want %d", errs.ErrVectorSize, v.Len(), c.nSample)
	}

	return nil
}
