package variance

import (
	"math/rand/v2"
	"testing"

	"github.com/arloliu/corrfit/dimension"
	"github.com/arloliu/corrfit/errs"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// newLineStore builds one uncertain X dimension of size n and one Y dimension
// with every point registered.
func newLineStore(t *testing.T, n int, mode dimension.Mode, opts ...Option) *Store {
	t.Helper()

	reg := dimension.NewRegistry()
	_, err := reg.AddXDimension("x", n, mode)
	require.NoError(t, err)
	_, err = reg.AddYDimension("y")
	require.NoError(t, err)

	s, err := NewStore(reg, opts...)
	require.NoError(t, err)
	for k := range n {
		require.NoError(t, s.SetX(k, 0, float64(k)))
		require.NoError(t, s.SetY(k, 0, 2*float64(k)+1))
	}

	return s
}

func diag(vals ...float64) *mat.Dense {
	m := mat.NewDense(len(vals), len(vals), nil)
	for i, v := range vals {
		m.Set(i, i, v)
	}

	return m
}

func TestValues(t *testing.T) {
	s := newLineStore(t, 3, dimension.Uncertain)

	x, err := s.X(2, 0)
	require.NoError(t, err)
	require.InDelta(t, 2.0, x, 0)

	y, err := s.Y(1, 0)
	require.NoError(t, err)
	require.InDelta(t, 3.0, y, 0)

	_, err = s.X(3, 0)
	require.ErrorIs(t, err, errs.ErrRange)
	_, err = s.X(0, 1)
	require.ErrorIs(t, err, errs.ErrUnknownDimension)

	require.NoError(t, s.Registry().SetFitPoint(1, 0, false))
	_, err = s.Y(1, 0)
	require.NoError(t, err, "inactive points are still registered")

	reg := dimension.NewRegistry()
	_, _ = reg.AddXDimension("x", 2, dimension.Exact)
	_, _ = reg.AddYDimension("y")
	empty, err := NewStore(reg)
	require.NoError(t, err)
	_, err = empty.Y(0, 0)
	require.ErrorIs(t, err, errs.ErrUnregisteredPoint)
}

func TestVersions(t *testing.T) {
	s := newLineStore(t, 2, dimension.Uncertain)

	data, vv := s.DataVersion(), s.VarianceVersion()
	require.NoError(t, s.SetX(0, 0, 4))
	require.Greater(t, s.DataVersion(), data)
	require.Equal(t, vv, s.VarianceVersion())

	require.NoError(t, s.SetYYVar(0, 0, diag(1, 1)))
	require.Greater(t, s.VarianceVersion(), vv)

	vv = s.VarianceVersion()
	require.NoError(t, s.SetTolerance(1e-6))
	require.Greater(t, s.VarianceVersion(), vv)
	require.ErrorIs(t, s.SetTolerance(1.5), errs.ErrInvalidOption)
}

func TestBlockSizeErrors(t *testing.T) {
	s := newLineStore(t, 3, dimension.Uncertain)

	require.ErrorIs(t, s.SetXXVar(0, 0, diag(1, 1)), errs.ErrBlockSize)
	require.ErrorIs(t, s.SetYYVar(0, 0, diag(1, 1, 1, 1)), errs.ErrSize)
	require.ErrorIs(t, s.SetXYVar(0, 0, mat.NewDense(3, 2, nil)), errs.ErrBlockSize)
	require.ErrorIs(t, s.SetXYVar(0, 0, nil), errs.ErrBlockSize)
	require.ErrorIs(t, s.SetXXVar(0, 2, diag(1, 1, 1)), errs.ErrUnknownDimension)
}

func TestBlockMirroring(t *testing.T) {
	reg := dimension.NewRegistry()
	_, _ = reg.AddXDimension("a", 2, dimension.Uncertain)
	_, _ = reg.AddXDimension("b", 3, dimension.Uncertain)
	s, err := NewStore(reg)
	require.NoError(t, err)

	block := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, s.SetXXVar(0, 1, block))

	got, err := s.XXVar(1, 0)
	require.NoError(t, err)
	require.True(t, mat.Equal(got, block.T()))

	// Stored blocks are copies.
	block.Set(0, 0, 100)
	got, err = s.XXVar(0, 1)
	require.NoError(t, err)
	require.InDelta(t, 1.0, got.At(0, 0), 0)

	unset, err := s.XXVar(0, 0)
	require.NoError(t, err)
	require.True(t, mat.Equal(unset, mat.NewDense(2, 2, nil)))
}

func TestTotalVarianceSymmetric(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))

	reg := dimension.NewRegistry()
	_, _ = reg.AddXDimension("a", 3, dimension.Uncertain)
	_, _ = reg.AddXDimension("b", 2, dimension.Uncertain)
	_, _ = reg.AddYDimension("y0")
	_, _ = reg.AddYDimension("y1")
	s, err := NewStore(reg)
	require.NoError(t, err)

	d := reg.DataSize()
	for k := range d {
		require.NoError(t, s.SetY(k, k%2, float64(k)))
	}

	random := func(r, c int) *mat.Dense {
		m := mat.NewDense(r, c, nil)
		for i := range r {
			for j := range c {
				m.Set(i, j, rng.NormFloat64())
			}
		}

		return m
	}

	// Deliberately asymmetric diagonal blocks and overwritten mirrors.
	require.NoError(t, s.SetYYVar(0, 0, random(d, d)))
	require.NoError(t, s.SetYYVar(0, 1, random(d, d)))
	require.NoError(t, s.SetYYVar(1, 0, random(d, d)))
	require.NoError(t, s.SetXXVar(0, 1, random(3, 2)))
	require.NoError(t, s.SetXXVar(1, 1, random(2, 2)))
	require.NoError(t, s.SetXYVar(1, 0, random(d, 3)))

	// Correlate everything so every entry survives the mask.
	cells := reg.Layout().Cells()
	for p := range cells {
		for q := p + 1; q < len(cells); q++ {
			require.NoError(t, reg.SetCorrelated(cells[p], cells[q], true))
		}
	}

	total := s.TotalVariance()
	n := total.SymmetricDim()
	require.Equal(t, reg.Layout().Size(), n)
	for p := range n {
		for q := range n {
			require.Equal(t, total.At(p, q), total.At(q, p))
		}
	}
}

func TestTotalVarianceMasking(t *testing.T) {
	s := newLineStore(t, 3, dimension.Uncertain)
	reg := s.Registry()

	yy := mat.NewDense(3, 3, []float64{
		1, 0.5, 0.2,
		0.5, 2, 0.3,
		0.2, 0.3, 3,
	})
	require.NoError(t, s.SetYYVar(0, 0, yy))
	require.NoError(t, s.SetXXVar(0, 0, diag(0.1, 0.2, 0.3)))
	xy := mat.NewDense(3, 3, nil)
	xy.Set(1, 2, 0.05)
	require.NoError(t, s.SetXYVar(0, 0, xy))

	total := s.TotalVariance()
	require.Equal(t, 6, total.SymmetricDim())
	require.InDelta(t, 2.0, total.At(1, 1), 0)
	require.InDelta(t, 0.2, total.At(4, 4), 0)
	require.InDelta(t, 0.0, total.At(0, 1), 0, "uncorrelated off-diagonal is masked")

	l := reg.Layout()
	y1, _ := l.YPosition(0, 1)
	x2, _ := l.XPosition(0, 2)
	require.InDelta(t, 0.0, total.At(y1, x2), 0)

	require.NoError(t, reg.AssumeXYCorrelated(true, 2, 0, 1, 0))
	total = s.TotalVariance()
	require.InDelta(t, 0.05, total.At(y1, x2), 0)
	require.InDelta(t, 0.05, total.At(x2, y1), 0)

	require.NoError(t, reg.AssumeXYCorrelated(false, 2, 0, 1, 0))
	total = s.TotalVariance()
	require.InDelta(t, 0.0, total.At(y1, x2), 0)

	require.NoError(t, reg.AssumeYYCorrelated(true, 0, 0, 1, 0))
	require.InDelta(t, 0.5, s.TotalVariance().At(0, 1), 0)
}

func TestTotalVarianceMemoized(t *testing.T) {
	s := newLineStore(t, 3, dimension.Exact)
	require.NoError(t, s.SetYYVar(0, 0, diag(1, 1, 1)))

	t1 := s.TotalVariance()
	require.NoError(t, s.SetY(0, 0, 42))
	require.Same(t, t1, s.TotalVariance(), "value writes keep the cache")

	require.NoError(t, s.SetYYVar(0, 0, diag(2, 2, 2)))
	require.NotSame(t, t1, s.TotalVariance())
}

func TestCorrelation(t *testing.T) {
	s := newLineStore(t, 2, dimension.Exact)
	require.NoError(t, s.SetYYVar(0, 0, mat.NewDense(2, 2, []float64{4, 1, 1, 9})))
	require.NoError(t, s.Registry().AssumeYYCorrelated(true, 0, 0, 1, 0))

	corr := s.Correlation()
	require.InDelta(t, 1.0, corr.At(0, 0), 0)
	require.InDelta(t, 1.0/6.0, corr.At(0, 1), 1e-15)
}

func TestFork(t *testing.T) {
	s := newLineStore(t, 3, dimension.Uncertain)
	require.NoError(t, s.SetYYVar(0, 0, diag(1, 1, 1)))
	require.NoError(t, s.SetXXVar(0, 0, diag(1, 1, 1)))

	inv, err := s.Inverse()
	require.NoError(t, err)

	f := s.Fork()
	require.NoError(t, f.SetY(0, 0, -5))
	require.NoError(t, f.SetX(0, 0, -7))

	y, _ := s.Y(0, 0)
	require.InDelta(t, 1.0, y, 0, "parent data untouched")
	x, _ := s.X(0, 0)
	require.InDelta(t, 0.0, x, 0)

	finv, err := f.Inverse()
	require.NoError(t, err)
	require.Same(t, inv, finv, "fork shares the memoized inverse")

	require.NoError(t, f.SetYYVar(0, 0, diag(2, 2, 2)))
	pinv, err := s.Inverse()
	require.NoError(t, err)
	require.Same(t, inv, pinv, "fork block writes do not reach the parent")
}
