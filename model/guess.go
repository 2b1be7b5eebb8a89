package model

import (
	"fmt"
	"math"
	"slices"

	"github.com/arloliu/corrfit/errs"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Guess is an unweighted closed-form fit of a standard shape, used to seed
// the parameters of a correlated fit.
type Guess struct {
	// Type is the fitted shape.
	Type Type
	// Coefficients contains the shape coefficients in formula order.
	Coefficients []float64
	// RSquared is the coefficient of determination on the original scale.
	RSquared float64
	// RMSE is the root mean square error on the original scale.
	RMSE float64
}

// String returns a string representation of the guess.
func (g *Guess) String() string {
	return fmt.Sprintf("Guess{Type: %s, R²: %.4f, RMSE: %.4g, Formula: %s}",
		g.Type, g.RSquared, g.RMSE, g.Type.Formula(g.Coefficients))
}

// Model returns the standard model of the guessed shape.
func (g *Guess) Model() Model {
	m, _ := Standard(g.Type)
	return m
}

// Initial computes closed-form initial parameters for shape t from points (x, y).
//
// Non-linear shapes are linearized before an ordinary least-squares fit:
//   - hyperbolic: y against 1/x
//   - logarithmic: y against ln(x)
//   - power: ln(y) against ln(x)
//   - exponential: ln(y) against x
//
// The quadratic shape solves the least-squares Vandermonde system and falls
// back to a linear fit (c = 0) when it is rank deficient.
//
// Parameters:
//   - t: Model shape
//   - x: Independent values
//   - y: Dependent values
//
// Returns:
//   - *Guess: Coefficients with R² and RMSE on the original scale
//   - error: errs.ErrVectorSize on length mismatch, errs.ErrInsufficientSample
//     when there are fewer points than coefficients, errs.ErrRange when a
//     value lies outside the shape's domain
func Initial(t Type, x, y []float64) (*Guess, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("%w: %d x values vs %d y values", errs.ErrVectorSize, len(x), len(y))
	}
	n := t.NPar()
	if n == 0 {
		return nil, fmt.Errorf("%w: unknown model type %d", errs.ErrConfig, int(t))
	}
	if len(x) < n {
		return nil, fmt.Errorf("%w: %s needs %d points, got %d", errs.ErrInsufficientSample, t, n, len(x))
	}

	var coeffs []float64
	switch t {
	case TypeLinear:
		a, b := stat.LinearRegression(x, y, nil, false)
		coeffs = []float64{a, b}
	case TypeQuadratic:
		coeffs = fitQuadratic(x, y)
	default:
		tx, ty, err := linearize(t, x, y)
		if err != nil {
			return nil, err
		}
		a, b := stat.LinearRegression(tx, ty, nil, false)
		if t == TypePower || t == TypeExponential {
			a = math.Exp(a)
		}
		coeffs = []float64{a, b}
	}

	predicted := make([]float64, len(x))
	for i, xi := range x {
		predicted[i] = t.eval(xi, coeffs)
	}

	return &Guess{
		Type:         t,
		Coefficients: coeffs,
		RSquared:     rSquared(y, predicted),
		RMSE:         rmse(y, predicted),
	}, nil
}

// Rank fits every shape in types (all standard shapes when empty) and
// returns the successful guesses ordered by R², best first. Shapes whose
// domain excludes the data are skipped.
//
// Returns errs.ErrInsufficientSample when no shape could be fitted.
func Rank(x, y []float64, types ...Type) ([]*Guess, error) {
	if len(types) == 0 {
		types = Types
	}

	var lastErr error
	guesses := make([]*Guess, 0, len(types))
	for _, t := range types {
		g, err := Initial(t, x, y)
		if err != nil {
			lastErr = err
			continue
		}
		guesses = append(guesses, g)
	}
	if len(guesses) == 0 {
		if lastErr == nil {
			lastErr = errs.ErrInsufficientSample
		}

		return nil, fmt.Errorf("no model shape could be fitted: %w", lastErr)
	}

	slices.SortStableFunc(guesses, func(a, b *Guess) int {
		switch {
		case a.RSquared > b.RSquared:
			return -1
		case a.RSquared < b.RSquared:
			return 1
		default:
			return 0
		}
	})

	return guesses, nil
}

func linearize(t Type, x, y []float64) (tx, ty []float64, err error) {
	tx = make([]float64, len(x))
	ty = make([]float64, len(y))
	for i := range x {
		xi, yi := x[i], y[i]
		switch t {
		case TypeHyperbolic:
			if xi == 0 {
				return nil, nil, fmt.Errorf("%w: hyperbolic model needs x != 0", errs.ErrRange)
			}
			tx[i], ty[i] = 1/xi, yi
		case TypeLogarithmic:
			if xi <= 0 {
				return nil, nil, fmt.Errorf("%w: logarithmic model needs x > 0", errs.ErrRange)
			}
			tx[i], ty[i] = math.Log(xi), yi
		case TypePower:
			if xi <= 0 || yi <= 0 {
				return nil, nil, fmt.Errorf("%w: power model needs x > 0 and y > 0", errs.ErrRange)
			}
			tx[i], ty[i] = math.Log(xi), math.Log(yi)
		case TypeExponential:
			if yi <= 0 {
				return nil, nil, fmt.Errorf("%w: exponential model needs y > 0", errs.ErrRange)
			}
			tx[i], ty[i] = xi, math.Log(yi)
		}
	}

	return tx, ty, nil
}

// fitQuadratic solves min |V·c - y| for the Vandermonde matrix V = [1 x x²].
func fitQuadratic(x, y []float64) []float64 {
	n := len(x)
	if distinct(x) < 3 {
		a, b := stat.LinearRegression(x, y, nil, false)
		return []float64{a, b, 0}
	}

	v := mat.NewDense(n, 3, nil)
	for i, xi := range x {
		v.Set(i, 0, 1)
		v.Set(i, 1, xi)
		v.Set(i, 2, xi*xi)
	}

	var c mat.VecDense
	if err := c.SolveVec(v, mat.NewVecDense(n, append([]float64(nil), y...))); err != nil {
		a, b := stat.LinearRegression(x, y, nil, false)
		return []float64{a, b, 0}
	}

	return []float64{c.AtVec(0), c.AtVec(1), c.AtVec(2)}
}

func distinct(x []float64) int {
	s := slices.Clone(x)
	slices.Sort(s)

	return len(slices.Compact(s))
}

// rSquared returns 1 - SS_res/SS_tot, or 0 when y is constant.
func rSquared(observed, predicted []float64) float64 {
	mean := stat.Mean(observed, nil)
	var ssTot, ssRes float64
	for i, o := range observed {
		ssTot += (o - mean) * (o - mean)
		ssRes += (o - predicted[i]) * (o - predicted[i])
	}
	if ssTot == 0 {
		return 0
	}

	return 1 - ssRes/ssTot
}

func rmse(observed, predicted []float64) float64 {
	if len(observed) == 0 {
		return 0
	}

	var sumSq float64
	for i, o := range observed {
		d := o - predicted[i]
		sumSq += d * d
	}

	return math.Sqrt(sumSq / float64(len(observed)))
}
