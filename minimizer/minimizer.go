package minimizer

import (
	"fmt"
	"math"

	"github.com/arloliu/corrfit/fit"
	"github.com/arloliu/corrfit/internal/options"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"
)

// Default budgets and tolerance of the gonum adapters.
const (
	DefaultMaxEvaluations = 50000
	DefaultTolerance      = 1e-12
	DefaultStall          = 200
)

// Config holds adapter configuration.
type Config struct {
	// MaxIterations caps the major iterations, 0 means no cap.
	MaxIterations int
	// MaxEvaluations caps the objective evaluations, 0 means no cap.
	MaxEvaluations int
	// Tolerance is the absolute and relative function change below which the
	// search is considered converged.
	Tolerance float64
	// Stall is the number of major iterations without a Tolerance improvement
	// after which the search stops as converged.
	Stall int
}

// Option is a functional option for Config.
type Option = options.Option[*Config]

// WithMaxIterations caps the number of major iterations.
func WithMaxIterations(n int) Option {
	return options.New(func(cfg *Config) error {
		if n < 0 {
			return fmt.Errorf("max iterations %d is negative", n)
		}
		cfg.MaxIterations = n

		return nil
	})
}

// WithMaxEvaluations caps the number of objective evaluations.
func WithMaxEvaluations(n int) Option {
	return options.New(func(cfg *Config) error {
		if n < 0 {
			return fmt.Errorf("max evaluations %d is negative", n)
		}
		cfg.MaxEvaluations = n

		return nil
	})
}

// WithTolerance sets the function convergence tolerance and the number of
// stalled iterations that trigger it.
func WithTolerance(tol float64, stall int) Option {
	return options.New(func(cfg *Config) error {
		if tol <= 0 || math.IsNaN(tol) {
			return fmt.Errorf("tolerance %g must be positive", tol)
		}
		if stall < 1 {
			return fmt.Errorf("stall %d must be positive", stall)
		}
		cfg.Tolerance = tol
		cfg.Stall = stall

		return nil
	})
}

// Gonum adapts a gonum optimize.Method to fit.Minimizer.
//
// Bounds are honoured by a change of variables: the method searches an
// unbounded internal space that maps smoothly onto the box, so every trial
// point lies inside it. A converged point resting on a bound face is
// reported as StatusNotConverged. NaN objective values are reported to the
// method as +Inf.
type Gonum struct {
	cfg       Config
	newMethod func() optimize.Method
	gradient  bool
}

var _ fit.Minimizer = (*Gonum)(nil)

// New wraps the optimize.Method built by newMethod. A fresh method is built
// for every minimization, so a Gonum is safe for concurrent use. When
// gradient is true the method receives a central finite-difference gradient.
func New(newMethod func() optimize.Method, gradient bool, opts ...Option) (*Gonum, error) {
	cfg := Config{
		MaxEvaluations: DefaultMaxEvaluations,
		Tolerance:      DefaultTolerance,
		Stall:          DefaultStall,
	}
	if err := options.Apply(&cfg, opts...); err != nil {
		return nil, err
	}

	return &Gonum{cfg: cfg, newMethod: newMethod, gradient: gradient}, nil
}

// NewNelderMead returns a derivative-free Nelder-Mead simplex minimizer.
// It is robust far from the minimum and suits the central fit.
func NewNelderMead(opts ...Option) (*Gonum, error) {
	return New(func() optimize.Method { return &optimize.NelderMead{} }, false, opts...)
}

// NewBFGS returns a quasi-Newton BFGS minimizer over finite-difference
// gradients. It converges fast from a nearby start and suits replica fits
// seeded by the central result.
func NewBFGS(opts ...Option) (*Gonum, error) {
	return New(func() optimize.Method { return &optimize.BFGS{} }, true, opts...)
}

// Config returns a copy of the adapter configuration.
func (g *Gonum) Config() Config {
	return g.cfg
}

// Minimize implements fit.Minimizer.
func (g *Gonum) Minimize(f fit.Objective, x0 []float64, bounds []fit.Bound) fit.Solution {
	if len(x0) == 0 {
		return fit.Solution{X: []float64{}, F: f(x0), Status: fit.StatusConverged, Evaluations: 1}
	}

	tr := newTransform(bounds, len(x0))
	scratch := make([]float64, len(x0))
	obj := func(u []float64) float64 {
		v := f(tr.external(scratch, u))
		if math.IsNaN(v) {
			return math.Inf(1)
		}

		return v
	}

	p := optimize.Problem{Func: obj}
	if g.gradient {
		p.Grad = func(grad, u []float64) {
			fd.Gradient(grad, obj, u, &fd.Settings{Formula: fd.Central})
		}
	}

	settings := &optimize.Settings{
		MajorIterations: g.cfg.MaxIterations,
		FuncEvaluations: g.cfg.MaxEvaluations,
		Converger: &optimize.FunctionConverge{
			Absolute:   g.cfg.Tolerance,
			Relative:   g.cfg.Tolerance,
			Iterations: g.cfg.Stall,
		},
	}

	start := tr.internal(x0)
	res, err := optimize.Minimize(p, start, settings, g.newMethod())
	if res == nil {
		x := tr.external(make([]float64, len(x0)), start)
		return fit.Solution{X: x, F: f(x), Status: fit.StatusFailed}
	}

	x := tr.external(make([]float64, len(x0)), res.X)
	evals := res.FuncEvaluations
	if g.gradient {
		// fd.Central costs two evaluations per coordinate.
		evals += 2 * len(x0) * res.GradEvaluations
	}

	st := status(res, err)
	if st == fit.StatusConverged && tr.onFace(x) {
		st = fit.StatusNotConverged
	}

	return fit.Solution{
		X:           x,
		F:           f(x),
		Status:      st,
		Evaluations: evals,
	}
}

// status maps a gonum termination to a fit status.
func status(res *optimize.Result, err error) fit.Status {
	switch res.Status {
	case optimize.Success, optimize.FunctionThreshold, optimize.FunctionConvergence,
		optimize.GradientThreshold, optimize.StepConvergence, optimize.MethodConverge:
		if err == nil {
			return fit.StatusConverged
		}

		return fit.StatusNotConverged
	case optimize.IterationLimit, optimize.RuntimeLimit, optimize.FunctionEvaluationLimit,
		optimize.GradientEvaluationLimit, optimize.HessianEvaluationLimit:
		return fit.StatusNotConverged
	default:
		if math.IsInf(res.F, 0) || math.IsNaN(res.F) {
			return fit.StatusFailed
		}

		return fit.StatusNotConverged
	}
}
