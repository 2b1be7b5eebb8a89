package variance

import (
	"fmt"
	"maps"
	"math"
	"sync/atomic"

	"github.com/arloliu/corrfit/dimension"
	"github.com/arloliu/corrfit/errs"
	"github.com/arloliu/corrfit/internal/options"
	"github.com/arloliu/corrfit/logging"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"
)

// DefaultTolerance is the default relative singular value cutoff of Inverse.
const DefaultTolerance = 1e-10

// Config holds Store configuration.
type Config struct {
	Tolerance float64
	Logger    *zerolog.Logger
}

// Option is a functional option for Config.
type Option = options.Option[*Config]

// WithTolerance sets the pseudo-inverse tolerance. Singular values below
// tol times the largest singular value are discarded. tol must be in [0, 1).
func WithTolerance(tol float64) Option {
	return options.New(func(cfg *Config) error {
		if tol < 0 || tol >= 1 || math.IsNaN(tol) {
			return fmt.Errorf("tolerance %g outside [0, 1)", tol)
		}
		cfg.Tolerance = tol

		return nil
	})
}

// WithLogger sets the logger used for inversion diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return options.NoError(func(cfg *Config) {
		cfg.Logger = &l
	})
}

type blockKey struct {
	a, b int
}

// Store holds the scalar data and covariance blocks of a fit problem and
// derives from them the total variance matrix over the registry's Layout and
// its pseudo-inverse.
//
// Both derived matrices are memoized. They are rebuilt when the registry
// version or the variance version (block writes, tolerance change) moves.
// Value writes only bump the data version and never invalidate them.
//
// Store is not safe for concurrent use; use Fork to obtain independent
// snapshots for concurrent readers.
type Store struct {
	reg *dimension.Registry
	cfg Config
	log zerolog.Logger

	xData [][]float64
	yData []map[int]float64

	xx map[blockKey]*mat.Dense
	yy map[blockKey]*mat.Dense
	xy map[blockKey]*mat.Dense // key (j, i): D × size_i

	dataVer atomic.Uint64
	varVer  atomic.Uint64

	cache *cache
}

// cache holds the memoized total variance and inverse. Forks share it, so the
// inverse must be computed before a fork is handed to another goroutine.
type cache struct {
	regVer  uint64
	varVer  uint64
	layout  *dimension.Layout
	total   *mat.SymDense
	inverse *mat.SymDense
	info    InverseInfo
	invErr  error
	hasInv  bool

	blockErr error
}

// NewStore creates a Store over the given registry.
//
// Parameters:
//   - reg: Registry describing the axes and points
//   - opts: Optional configuration (tolerance, logger)
//
// Returns:
//   - *Store: The new store
//   - error: Configuration error if an option is invalid
func NewStore(reg *dimension.Registry, opts ...Option) (*Store, error) {
	cfg := Config{Tolerance: DefaultTolerance}
	if err := options.Apply(&cfg, opts...); err != nil {
		return nil, err
	}

	log := logging.GetLogger("variance")
	if cfg.Logger != nil {
		log = *cfg.Logger
	}

	return &Store{
		reg: reg,
		cfg: cfg,
		log: log,
		xx:  make(map[blockKey]*mat.Dense),
		yy:  make(map[blockKey]*mat.Dense),
		xy:  make(map[blockKey]*mat.Dense),
	}, nil
}

// Registry returns the registry the store was built on.
func (s *Store) Registry() *dimension.Registry {
	return s.reg
}

// Tolerance returns the pseudo-inverse tolerance.
func (s *Store) Tolerance() float64 {
	return s.cfg.Tolerance
}

// SetTolerance changes the pseudo-inverse tolerance and invalidates the inverse.
func (s *Store) SetTolerance(tol float64) error {
	if err := options.Apply(&s.cfg, WithTolerance(tol)); err != nil {
		return err
	}
	s.varVer.Add(1)

	return nil
}

// DataVersion returns a counter bumped by every value write.
func (s *Store) DataVersion() uint64 {
	return s.dataVer.Load()
}

// VarianceVersion returns a counter bumped by every block write and tolerance change.
func (s *Store) VarianceVersion() uint64 {
	return s.varVer.Load()
}

// SetX stores value v of X dimension i at coordinate r.
func (s *Store) SetX(r, i int, v float64) error {
	if err := s.checkX(r, i); err != nil {
		return err
	}

	s.growX()
	s.xData[i][r] = v
	s.dataVer.Add(1)

	return nil
}

// X returns value r of X dimension i. Unset values read as 0.
func (s *Store) X(r, i int) (float64, error) {
	if err := s.checkX(r, i); err != nil {
		return 0, err
	}
	if i >= len(s.xData) {
		return 0, nil
	}

	return s.xData[i][r], nil
}

// SetY stores the Y value of data point k on Y dimension j, registering the
// point (active) if needed.
func (s *Store) SetY(k, j int, v float64) error {
	if err := s.reg.RegisterPoint(k, j); err != nil {
		return err
	}

	s.growY()
	s.yData[j][k] = v
	s.dataVer.Add(1)

	return nil
}

// Y returns the Y value of data point k on Y dimension j.
// Returns errs.ErrUnregisteredPoint if the point does not exist.
func (s *Store) Y(k, j int) (float64, error) {
	if !s.reg.IsRegistered(k, j) {
		return 0, fmt.Errorf("%w: point %d of Y dimension %d", errs.ErrUnregisteredPoint, k, j)
	}
	if j >= len(s.yData) {
		return 0, nil
	}

	return s.yData[j][k], nil
}

// Fork returns a store sharing this store's registry, covariance blocks and
// memoized matrices, with its own copy of the scalar data.
//
// Forks are meant for concurrent replica fits on a frozen registry: each
// goroutine writes replica values into its own fork and reads the shared
// inverse without locking. Block writes on a fork never affect the parent.
func (s *Store) Fork() *Store {
	f := &Store{
		reg:   s.reg,
		cfg:   s.cfg,
		log:   s.log,
		xData: make([][]float64, len(s.xData)),
		yData: make([]map[int]float64, len(s.yData)),
		xx:    maps.Clone(s.xx),
		yy:    maps.Clone(s.yy),
		xy:    maps.Clone(s.xy),
		cache: s.cache,
	}
	for i, col := range s.xData {
		f.xData[i] = append([]float64(nil), col...)
	}
	for j, m := range s.yData {
		f.yData[j] = maps.Clone(m)
	}
	f.dataVer.Store(s.dataVer.Load())
	f.varVer.Store(s.varVer.Load())

	return f
}

func (s *Store) growX() {
	for i := len(s.xData); i < s.reg.NumXDimensions(); i++ {
		s.xData = append(s.xData, make([]float64, s.reg.XSize(i)))
	}
}

func (s *Store) growY() {
	for j := len(s.yData); j < s.reg.NumYDimensions(); j++ {
		s.yData = append(s.yData, make(map[int]float64))
	}
}

func (s *Store) checkX(r, i int) error {
	if i < 0 || i >= s.reg.NumXDimensions() {
		return fmt.Errorf("%w: X dimension %d", errs.ErrUnknownDimension, i)
	}
	if r < 0 || r >= s.reg.XSize(i) {
		return fmt.Errorf("%w: value %d of X dimension %d", errs.ErrInvalidIndex, r, i)
	}

	return nil
}
