package resample

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/arloliu/corrfit/dimension"
	"github.com/arloliu/corrfit/errs"
	"github.com/arloliu/corrfit/fit"
	"github.com/arloliu/corrfit/minimizer"
	"github.com/arloliu/corrfit/model"
	"github.com/stretchr/testify/require"
)

var line = model.MustNew("line", 1, 2, func(x, p []float64) float64 {
	return p[0]*x[0] + p[1]
})

func minimizers(t testing.TB) Minimizers {
	t.Helper()

	nm, err := minimizer.NewNelderMead()
	require.NoError(t, err)

	return Minimizers{Central: nm}
}

func TestFitAll(t *testing.T) {
	const n = 20
	c := newLineCoordinator(t, n, 7, 0.1, nil, WithFitOptions(fit.WithParameterNames("a", "b")))

	ens, err := c.FitAll([]model.Model{line}, minimizers(t), []float64{0, 0})
	require.NoError(t, err)

	require.True(t, ens.CheckFit(), ens.FailureReason())
	require.Empty(t, ens.FailureReason())
	require.Equal(t, n, ens.NSample())
	require.Equal(t, n, ens.Completed())
	require.False(t, c.Registry().Frozen())
	require.Equal(t, Central, c.ActiveReplica())

	central := ens.Central()
	require.Same(t, central, ens.Replica(Central))
	a, _ := central.Param("a")
	b, _ := central.Param("b")
	require.InDelta(t, 2.0, a, 1e-3)
	require.InDelta(t, 1.0, b, 1e-3)
	require.InDelta(t, 0.0, ens.Chi2PerDof(Central), 1e-6)
	require.InDelta(t, 1.0, ens.PValue(Central), 1e-3)

	for i := range n {
		res := ens.Replica(Sample(i))
		require.NotNil(t, res)
		require.NotEqual(t, fit.StatusFailed, res.Status())
		require.InDelta(t, 2.0, res.Params()[0], 0.3)
		require.False(t, math.IsNaN(ens.Chi2PerDof(Sample(i))))
	}
	require.Nil(t, ens.Replica(Sample(n)))
	require.True(t, math.IsNaN(ens.PValue(Sample(n))))

	// Intercept of an unweighted line over x = 0..4 with σ = 0.1 has
	// σ_b = 0.1·sqrt(30/50) ≈ 0.077.
	errB := ens.ParamError(1)
	require.Greater(t, errB, 0.03)
	require.Less(t, errB, 0.15)

	cov := ens.ParamCovariance()
	require.NotNil(t, cov)
	require.Equal(t, 2, cov.SymmetricDim())
	require.InDelta(t, errB*errB, cov.At(1, 1), 1e-12)
	// Slope and intercept of a line over positive x anti-correlate.
	require.Negative(t, cov.At(0, 1))

	mean := ens.ParamMean()
	require.InDelta(t, 2.0, mean[0], 0.1)
	require.InDelta(t, 1.0, mean[1], 0.1)

	at10 := func(r *fit.Result) float64 { return r.Model(0)(10) }
	derived := ens.Derived(at10)
	require.InDelta(t, 21.0, derived.Central, 1e-2)
	require.Equal(t, n, derived.Len())
	sd := ens.Error(at10)
	require.InDelta(t, ens.Variance(at10), sd*sd, 1e-12)
}

func TestFitAllParallelMatchesSequential(t *testing.T) {
	const n = 7
	seq := newLineCoordinator(t, n, 11, 0.2, nil, WithWorkers(1))
	par := newLineCoordinator(t, n, 11, 0.2, nil, WithWorkers(3))

	a, err := seq.FitAll([]model.Model{line}, minimizers(t), []float64{1, 1})
	require.NoError(t, err)
	b, err := par.FitAll([]model.Model{line}, minimizers(t), []float64{1, 1})
	require.NoError(t, err)

	require.Equal(t, a.Central().Values(), b.Central().Values())
	for i := range n {
		require.Equal(t, a.Replica(Sample(i)).Values(), b.Replica(Sample(i)).Values(), "replica %d", i)
		require.Equal(t, a.Replica(Sample(i)).Chi2(), b.Replica(Sample(i)).Chi2())
	}
}

func TestFitAllQualityGate(t *testing.T) {
	offset := []float64{1, -1, 1, -1, 1}

	t.Run("skip", func(t *testing.T) {
		c := newLineCoordinator(t, 5, 3, 0.1, offset)
		ens, err := c.FitAll([]model.Model{line}, minimizers(t), []float64{2, 1})
		require.NoError(t, err)

		require.False(t, ens.CheckFit())
		require.Contains(t, ens.FailureReason(), "outside")
		require.Equal(t, 0, ens.Completed())
		require.Nil(t, ens.Replica(Sample(0)))
		require.Nil(t, ens.ParamCovariance())
		require.Nil(t, ens.ParamMean())
		require.True(t, math.IsNaN(ens.ParamError(0)))
		require.True(t, math.IsNaN(ens.Derived(func(r *fit.Result) float64 { return r.Chi2() }).At(Sample(0))))
	})

	t.Run("continue", func(t *testing.T) {
		c := newLineCoordinator(t, 5, 3, 0.1, offset, WithSkipOnFailure(false))
		ens, err := c.FitAll([]model.Model{line}, minimizers(t), []float64{2, 1})
		require.NoError(t, err)

		require.False(t, ens.CheckFit())
		require.Equal(t, 5, ens.Completed())
	})

	t.Run("wide window", func(t *testing.T) {
		c := newLineCoordinator(t, 5, 3, 0.1, offset, WithQualityWindow(0, math.Inf(1)))
		ens, err := c.FitAll([]model.Model{line}, minimizers(t), []float64{2, 1})
		require.NoError(t, err)
		require.True(t, ens.CheckFit())
	})

	t.Run("no degrees of freedom", func(t *testing.T) {
		c := newLineCoordinator(t, 5, 3, 0.1, nil)
		for k := 2; k < 5; k++ {
			require.NoError(t, c.Registry().SetFitPoint(k, 0, false))
		}
		ens, err := c.FitAll([]model.Model{line}, minimizers(t), []float64{2, 1})
		require.NoError(t, err)
		require.False(t, ens.CheckFit())
		require.Contains(t, ens.FailureReason(), "undefined")
	})
}

func TestFitAllErrors(t *testing.T) {
	c := newLineCoordinator(t, 3, 5, 0.1, nil)

	_, err := c.FitAll([]model.Model{line}, Minimizers{}, []float64{0, 0})
	require.ErrorIs(t, err, errs.ErrNilMinimizer)

	_, err = c.FitAll([]model.Model{line}, minimizers(t), []float64{0})
	require.ErrorIs(t, err, errs.ErrParameterCount)

	require.NoError(t, c.Registry().SetAllFitPoints(0, false))
	_, err = c.FitAll([]model.Model{line}, minimizers(t), []float64{0, 0})
	require.ErrorIs(t, err, errs.ErrNoFitPoints)
}

func TestFitAllJackknife(t *testing.T) {
	const n = 12
	boot := newLineCoordinator(t, n, 9, 0.1, nil)
	jack := newLineCoordinator(t, n, 9, 0.1, nil, WithResampling(Jackknife))

	bfgs, err := minimizer.NewBFGS()
	require.NoError(t, err)
	ms := minimizers(t)
	ms.Replica = minimizer.Chain(ms.Central, bfgs)

	a, err := boot.FitAll([]model.Model{line}, ms, []float64{2, 1})
	require.NoError(t, err)
	b, err := jack.FitAll([]model.Model{line}, ms, []float64{2, 1})
	require.NoError(t, err)

	// Scaling the variance uniformly leaves the minimum in place, so the
	// jackknife error differs only by the (N-1)/sqrt(N) factor.
	factor := float64(n-1) / math.Sqrt(n)
	require.InEpsilon(t, a.ParamError(0)*factor, b.ParamError(0), 1e-3)
}

func BenchmarkFitAll(b *testing.B) {
	c := newLineCoordinator(b, 16, 1, 0.1, nil)
	ms := minimizers(b)

	for b.Loop() {
		_, _ = c.FitAll([]model.Model{line}, ms, []float64{2, 1})
	}
}

// newUncertainLineCoordinator builds an uncertain X axis whose Central values
// are 0..4 and an exact line y = 2x + 1. Sampled X values scatter with
// standard deviation sx; each sampled Y follows its sampled X along the line
// plus independent noise sy, so X and Y of a point are correlated.
func newUncertainLineCoordinator(t testing.TB, n int, seed uint64, sx, sy float64, opts ...Option) *Coordinator {
	t.Helper()

	c, err := NewCoordinator(n, opts...)
	require.NoError(t, err)

	reg := c.Registry()
	_, err = reg.AddXDimension("x", 5, dimension.Uncertain)
	require.NoError(t, err)
	_, err = reg.AddYDimension("y")
	require.NoError(t, err)

	rng := rand.New(rand.NewPCG(seed, 2))
	for k := range 5 {
		x := float64(k)
		xs := make([]float64, n)
		ys := make([]float64, n)
		for i := range n {
			xs[i] = x + sx*rng.NormFloat64()
			ys[i] = 2*xs[i] + 1 + sy*rng.NormFloat64()
		}
		require.NoError(t, c.SetX(k, 0, NewVector(x, xs...)))
		require.NoError(t, c.SetY(k, 0, NewVector(2*x+1, ys...)))
		require.NoError(t, reg.AssumeXYCorrelated(true, k, 0, k, 0))
	}

	return c
}

func TestFitAllUncertainX(t *testing.T) {
	const n = 12
	seq := newUncertainLineCoordinator(t, n, 5, 0.1, 0.05, WithWorkers(1))
	par := newUncertainLineCoordinator(t, n, 5, 0.1, 0.05, WithWorkers(4))

	a, err := seq.FitAll([]model.Model{line}, minimizers(t), []float64{0, 0})
	require.NoError(t, err)
	b, err := par.FitAll([]model.Model{line}, minimizers(t), []float64{0, 0})
	require.NoError(t, err)

	central := a.Central()
	require.True(t, a.CheckFit(), a.FailureReason())
	require.Equal(t, fit.StatusConverged, central.Status())
	require.InDelta(t, 0.0, central.Chi2(), 1e-6)
	require.InDelta(t, 2.0, central.Params()[0], 1e-3)
	require.InDelta(t, 1.0, central.Params()[1], 1e-3)
	require.InDeltaSlice(t, []float64{0, 1, 2, 3, 4}, central.Nuisance(), 1e-3)
	require.Equal(t, n, a.Completed())

	require.Equal(t, central.Values(), b.Central().Values())
	for i := range n {
		rep := Sample(i)
		require.Equal(t, a.Replica(rep).Nuisance(), b.Replica(rep).Nuisance(), "replica %d", i)
		require.Equal(t, a.Replica(rep).Values(), b.Replica(rep).Values(), "replica %d", i)
	}

	// Replica nuisance parameters follow the replica's own X sample.
	var toSample, toCentral float64
	for i := range n {
		rep := Sample(i)
		xi := a.Replica(rep).Nuisance()
		require.Len(t, xi, 5)
		for k := range 5 {
			v, err := seq.X(k, 0)
			require.NoError(t, err)
			toSample += math.Abs(xi[k] - v.At(rep))
			toCentral += math.Abs(xi[k] - v.Central)
		}
	}
	require.Less(t, toSample, toCentral)

	require.Positive(t, a.ParamError(0))
	require.Equal(t, Central, seq.ActiveReplica())
}
