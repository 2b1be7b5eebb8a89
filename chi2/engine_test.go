package chi2_test

import (
	"math"
	"testing"

	"github.com/arloliu/corrfit/chi2"
	"github.com/arloliu/corrfit/dimension"
	"github.com/arloliu/corrfit/errs"
	"github.com/arloliu/corrfit/model"
	"github.com/arloliu/corrfit/variance"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

var line = model.MustNew("line", 1, 2, func(x, p []float64) float64 {
	return p[0]*x[0] + p[1]
})

// newLine builds x = 0..n-1, y = 2x + 1 with unit Y variance and, for an
// uncertain X dimension, X variance sx2 on the diagonal.
func newLine(t testing.TB, n int, mode dimension.Mode, sx2 float64) *variance.Store {
	t.Helper()

	reg := dimension.NewRegistry()
	_, err := reg.AddXDimension("x", n, mode)
	require.NoError(t, err)
	_, err = reg.AddYDimension("y")
	require.NoError(t, err)

	s, err := variance.NewStore(reg)
	require.NoError(t, err)

	yy := mat.NewDense(n, n, nil)
	xx := mat.NewDense(n, n, nil)
	for k := range n {
		require.NoError(t, s.SetX(k, 0, float64(k)))
		require.NoError(t, s.SetY(k, 0, 2*float64(k)+1))
		yy.Set(k, k, 1)
		xx.Set(k, k, sx2)
	}
	require.NoError(t, s.SetYYVar(0, 0, yy))
	require.NoError(t, s.SetXXVar(0, 0, xx))

	return s
}

func TestNewModelMismatch(t *testing.T) {
	s := newLine(t, 3, dimension.Exact, 0)

	quad := model.MustNew("quad", 1, 3, func(x, p []float64) float64 { return p[0] + p[1]*x[0] + p[2]*x[0]*x[0] })
	plane := model.MustNew("plane", 2, 2, func(x, p []float64) float64 { return p[0]*x[0] + p[1]*x[1] })

	tests := []struct {
		name   string
		models []model.Model
	}{
		{"no models", nil},
		{"too many models", []model.Model{line, line}},
		{"nil model", []model.Model{nil}},
		{"arity", []model.Model{plane}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := chi2.New(s, tt.models)
			require.ErrorIs(t, err, errs.ErrModelMismatch)
			require.ErrorIs(t, err, errs.ErrSize)
			require.ErrorIs(t, err, errs.ErrConfig)
		})
	}

	t.Run("parameter counts", func(t *testing.T) {
		reg := s.Registry()
		_, err := reg.AddYDimension("z")
		require.NoError(t, err)

		_, err = chi2.New(s, []model.Model{line, quad})
		require.ErrorIs(t, err, errs.ErrModelMismatch)

		e, err := chi2.New(s, []model.Model{line, line})
		require.NoError(t, err)
		require.Equal(t, 2, e.NPar())
	})
}

func TestChi2ExactLine(t *testing.T) {
	s := newLine(t, 5, dimension.Exact, 0)
	e, err := chi2.New(s, []model.Model{line})
	require.NoError(t, err)

	require.Equal(t, 2, e.NPar())
	require.Equal(t, 3, e.NDof())
	require.Equal(t, 2, e.Size())

	c, err := e.Chi2([]float64{2, 1})
	require.NoError(t, err)
	require.InDelta(t, 0.0, c, 1e-12)

	// Unit variance: chi2 is the plain sum of squared residuals.
	c, err = e.Chi2([]float64{0, 0})
	require.NoError(t, err)
	require.InDelta(t, 1.0+9+25+49+81, c, 1e-9)

	v, err := e.Residuals([]float64{0, 0})
	require.NoError(t, err)
	require.Equal(t, []float64{-1, -3, -5, -7, -9}, v)

	_, err = e.Chi2([]float64{1})
	require.ErrorIs(t, err, errs.ErrVectorSize)
	require.True(t, math.IsNaN(e.Eval([]float64{1})))
}

func TestNDof(t *testing.T) {
	s := newLine(t, 5, dimension.Exact, 0)
	constant := model.MustNew("const", 1, 1, func(_, p []float64) float64 { return p[0] })

	e, err := chi2.New(s, []model.Model{constant})
	require.NoError(t, err)
	require.Equal(t, 4, e.NDof())

	require.NoError(t, s.Registry().SetFitPoint(0, 0, false))
	require.Equal(t, 3, e.NDof())

	require.NoError(t, s.Registry().SetAllFitPoints(0, false))
	require.Equal(t, -1, e.NDof())
}

func TestChi2ZeroResidualCorrelated(t *testing.T) {
	s := newLine(t, 4, dimension.Uncertain, 0.25)
	reg := s.Registry()

	// Non-trivial correlations between every Y pair and between X and Y.
	yy := mat.NewDense(4, 4, []float64{
		2, 0.5, 0.2, 0.1,
		0.5, 2, 0.5, 0.2,
		0.2, 0.5, 2, 0.5,
		0.1, 0.2, 0.5, 2,
	})
	require.NoError(t, s.SetYYVar(0, 0, yy))
	xy := mat.NewDense(4, 4, nil)
	xy.Set(1, 1, 0.1)
	require.NoError(t, s.SetXYVar(0, 0, xy))
	for k1 := range 4 {
		for k2 := k1 + 1; k2 < 4; k2++ {
			require.NoError(t, reg.AssumeYYCorrelated(true, k1, 0, k2, 0))
		}
	}
	require.NoError(t, reg.AssumeXYCorrelated(true, 1, 0, 1, 0))

	e, err := chi2.New(s, []model.Model{line})
	require.NoError(t, err)
	require.Equal(t, 2+4, e.Size())

	raw, err := e.RawX()
	require.NoError(t, err)
	require.Equal(t, []float64{0, 1, 2, 3}, raw)

	theta := append([]float64{2, 1}, raw...)
	c, err := e.Chi2(theta)
	require.NoError(t, err)
	require.InDelta(t, 0.0, c, 1e-12)
}

func TestChi2Nuisance(t *testing.T) {
	s := newLine(t, 3, dimension.Uncertain, 0.25)
	e, err := chi2.New(s, []model.Model{line})
	require.NoError(t, err)

	sigma, err := e.NuisanceSigma()
	require.NoError(t, err)
	require.InDeltaSlice(t, []float64{0.5, 0.5, 0.5}, sigma, 1e-12)

	// Shift ξ₁ by 0.5: the X residual costs 0.5²/0.25 = 1 and the Y residual
	// 2·0.5 = 1 costs 1²/1 = 1.
	c, err := e.Chi2([]float64{2, 1, 0, 1.5, 2})
	require.NoError(t, err)
	require.InDelta(t, 2.0, c, 1e-9)

	v, err := e.Residuals([]float64{2, 1, 0, 1.5, 2})
	require.NoError(t, err)
	require.InDeltaSlice(t, []float64{0, 1, 0, 0, 0.5, 0}, v, 1e-12)
}

func TestChi2Refresh(t *testing.T) {
	s := newLine(t, 3, dimension.Exact, 0)
	e, err := chi2.New(s, []model.Model{line})
	require.NoError(t, err)

	theta := []float64{2, 1}
	c, err := e.Chi2(theta)
	require.NoError(t, err)
	require.InDelta(t, 0.0, c, 1e-12)

	t.Run("data write", func(t *testing.T) {
		require.NoError(t, s.SetY(2, 0, 7))
		c, err := e.Chi2(theta)
		require.NoError(t, err)
		require.InDelta(t, 4.0, c, 1e-12)

		require.NoError(t, s.SetX(2, 0, 3))
		c, err = e.Chi2(theta)
		require.NoError(t, err)
		require.InDelta(t, 0.0, c, 1e-12)
	})

	t.Run("variance write", func(t *testing.T) {
		require.NoError(t, s.SetY(2, 0, 9))
		yy := mat.NewDense(3, 3, nil)
		for k := range 3 {
			yy.Set(k, k, 4)
		}
		require.NoError(t, s.SetYYVar(0, 0, yy))

		c, err := e.Chi2(theta)
		require.NoError(t, err)
		require.InDelta(t, 1.0, c, 1e-12)
	})

	t.Run("fit point toggle", func(t *testing.T) {
		require.NoError(t, s.Registry().SetFitPoint(2, 0, false))
		c, err := e.Chi2(theta)
		require.NoError(t, err)
		require.InDelta(t, 0.0, c, 1e-12)
		require.Equal(t, 0, e.NDof())
	})

	t.Run("invalidate", func(t *testing.T) {
		e.Invalidate()
		c, err := e.Chi2(theta)
		require.NoError(t, err)
		require.InDelta(t, 0.0, c, 1e-12)
	})
}

func TestPrepareErrors(t *testing.T) {
	t.Run("no fit points", func(t *testing.T) {
		s := newLine(t, 3, dimension.Exact, 0)
		require.NoError(t, s.Registry().SetAllFitPoints(0, false))

		e, err := chi2.New(s, []model.Model{line})
		require.NoError(t, err)
		require.ErrorIs(t, e.Prepare(), errs.ErrNoFitPoints)

		_, err = e.Chi2([]float64{2, 1})
		require.ErrorIs(t, err, errs.ErrConfig)
	})

	t.Run("singular", func(t *testing.T) {
		s := newLine(t, 3, dimension.Exact, 0)
		require.NoError(t, s.SetYYVar(0, 0, mat.NewDense(3, 3, nil)))

		e, err := chi2.New(s, []model.Model{line})
		require.NoError(t, err)
		require.ErrorIs(t, e.Prepare(), errs.ErrSingularVariance)
		require.True(t, math.IsNaN(e.Eval([]float64{2, 1})))
	})
}

func TestChi2MultiDimensional(t *testing.T) {
	// Two exact X axes (2×3 grid) and two Y dimensions sharing parameters.
	reg := dimension.NewRegistry()
	_, err := reg.AddXDimension("a", 2, dimension.Exact)
	require.NoError(t, err)
	_, err = reg.AddXDimension("b", 3, dimension.Exact)
	require.NoError(t, err)
	_, err = reg.AddYDimension("u")
	require.NoError(t, err)
	_, err = reg.AddYDimension("v")
	require.NoError(t, err)

	s, err := variance.NewStore(reg)
	require.NoError(t, err)
	for r := range 2 {
		require.NoError(t, s.SetX(r, 0, float64(r+1)))
	}
	for r := range 3 {
		require.NoError(t, s.SetX(r, 1, float64(10*(r+1))))
	}

	plus := model.MustNew("plus", 2, 1, func(x, p []float64) float64 { return p[0] * (x[0] + x[1]) })
	minus := model.MustNew("minus", 2, 1, func(x, p []float64) float64 { return p[0] * (x[1] - x[0]) })

	d := reg.DataSize()
	id := mat.NewDense(d, d, nil)
	for k := range d {
		id.Set(k, k, 1)
		coord, err := reg.Coordinate(k)
		require.NoError(t, err)
		a, b := float64(coord[0]+1), float64(10*(coord[1]+1))
		require.NoError(t, s.SetY(k, 0, 3*(a+b)))
		if k%2 == 0 {
			require.NoError(t, s.SetY(k, 1, 3*(b-a)))
		}
	}
	require.NoError(t, s.SetYYVar(0, 0, id))
	require.NoError(t, s.SetYYVar(1, 1, id))

	e, err := chi2.New(s, []model.Model{plus, minus})
	require.NoError(t, err)
	require.Equal(t, 6+3-1, e.NDof())

	c, err := e.Chi2([]float64{3})
	require.NoError(t, err)
	require.InDelta(t, 0.0, c, 1e-9)

	// One shared model for both Y dimensions misfits the second one.
	require.NoError(t, e.SetModels(model.Replicate(plus, 2)))
	c, err = e.Chi2([]float64{3})
	require.NoError(t, err)
	require.Positive(t, c)
}

func BenchmarkChi2(b *testing.B) {
	s := newLine(b, 64, dimension.Uncertain, 0.01)
	e, err := chi2.New(s, []model.Model{line})
	require.NoError(b, err)

	theta := make([]float64, e.Size())
	theta[0], theta[1] = 2, 1
	for q := 2; q < len(theta); q++ {
		theta[q] = float64(q - 2)
	}
	require.NoError(b, e.Prepare())

	for b.Loop() {
		_ = e.Eval(theta)
	}
}

func TestSetModels(t *testing.T) {
	s := newLine(t, 4, dimension.Exact, 0)
	e, err := chi2.New(s, []model.Model{line})
	require.NoError(t, err)
	require.NoError(t, e.Prepare())

	offset := model.MustNew("offset", 1, 1, func(x, p []float64) float64 { return 2*x[0] + p[0] })
	require.NoError(t, e.SetModels([]model.Model{offset}))
	require.Equal(t, 1, e.NPar())
	require.Same(t, offset, e.Model(0))

	c, err := e.Chi2([]float64{1})
	require.NoError(t, err)
	require.InDelta(t, 0.0, c, 1e-12)

	require.ErrorIs(t, e.SetModels(nil), errs.ErrModelMismatch)
	require.Equal(t, 1, e.NPar())
}
