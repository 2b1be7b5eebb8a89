package model

import (
	"fmt"

	"github.com/arloliu/corrfit/errs"
)

// Model is a fit model callable: a pure, deterministic function of an
// argument vector x (one entry per X dimension) and a parameter vector p.
type Model interface {
	// NArg returns the number of arguments the model reads from x.
	NArg() int
	// NPar returns the number of parameters the model reads from p.
	NPar() int
	// Eval evaluates the model. len(x) == NArg() and len(p) == NPar().
	Eval(x, p []float64) float64
}

// Func is the signature of a model function.
type Func func(x, p []float64) float64

type funcModel struct {
	name string
	nArg int
	nPar int
	fn   Func
}

func (m *funcModel) NArg() int { return m.nArg }

func (m *funcModel) NPar() int { return m.nPar }

func (m *funcModel) Eval(x, p []float64) float64 { return m.fn(x, p) }

func (m *funcModel) String() string {
	return fmt.Sprintf("%s(nArg=%d, nPar=%d)", m.name, m.nArg, m.nPar)
}

// New wraps fn as a Model with the declared arity.
//
// Parameters:
//   - name: Label used by String, may be empty
//   - nArg: Number of arguments, must be >= 0
//   - nPar: Number of parameters, must be >= 1
//   - fn: Model function
//
// Returns:
//   - Model: The wrapped model
//   - error: errs.ErrConfig if the arity is invalid or fn is nil
//
// Example:
//
//	line, _ := model.New("line", 1, 2, func(x, p []float64) float64 {
//	    return p[0]*x[0] + p[1]
//	})
func New(name string, nArg, nPar int, fn Func) (Model, error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: nil model function", errs.ErrConfig)
	}
	if nArg < 0 || nPar < 1 {
		return nil, fmt.Errorf("%w: invalid model arity nArg=%d nPar=%d", errs.ErrConfig, nArg, nPar)
	}
	if name == "" {
		name = "model"
	}

	return &funcModel{name: name, nArg: nArg, nPar: nPar, fn: fn}, nil
}

// MustNew is like New but panics on error. Intended for package-level model
// declarations.
func MustNew(name string, nArg, nPar int, fn Func) Model {
	m, err := New(name, nArg, nPar, fn)
	if err != nil {
		panic(err)
	}

	return m
}

// Bind returns m with its parameters fixed to a copy of p.
func Bind(m Model, p []float64) func(x ...float64) float64 {
	params := append([]float64(nil), p...)

	return func(x ...float64) float64 {
		return m.Eval(x, params)
	}
}

// Replicate returns n references to m, one per Y dimension.
func Replicate(m Model, n int) []Model {
	out := make([]Model, n)
	for j := range out {
		out[j] = m
	}

	return out
}
