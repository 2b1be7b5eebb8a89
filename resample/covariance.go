package resample

import (
	"github.com/arloliu/corrfit/dimension"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

type pair struct {
	a, b int
}

// ComputeCovariance estimates every raw covariance block from the replica
// samples and writes it to the store.
//
// The estimate is the unbiased sample covariance over the N samples around
// their own mean; the Central value does not take part. Jackknife ensembles
// scale it by (N-1)²/N. Exact X dimensions carry no uncertainty and are
// skipped, as are cells without replica values.
//
// The result stays valid until the next SetX or SetY; calling again before
// that is a no-op.
func (c *Coordinator) ComputeCovariance() error {
	if !c.covDirty {
		return nil
	}

	cells, samples := c.sampledCells()
	n := len(cells)
	if n == 0 {
		c.covDirty = false
		return nil
	}

	data := mat.NewDense(c.nSample, n, nil)
	for col, s := range samples {
		data.SetCol(col, s)
	}
	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, data, nil)
	cov.ScaleSym(c.cfg.Resampling.scale(c.nSample), &cov)

	d := c.reg.DataSize()
	xx := make(map[pair]*mat.Dense)
	yy := make(map[pair]*mat.Dense)
	xy := make(map[pair]*mat.Dense)
	block := func(m map[pair]*mat.Dense, key pair, rows, cols int) *mat.Dense {
		b, ok := m[key]
		if !ok {
			b = mat.NewDense(rows, cols, nil)
			m[key] = b
		}

		return b
	}

	for p, a := range cells {
		for q, b := range cells {
			v := cov.At(p, q)
			switch {
			case a.Kind == dimension.KindX && b.Kind == dimension.KindX:
				if a.Dim <= b.Dim {
					block(xx, pair{a.Dim, b.Dim}, c.reg.XSize(a.Dim), c.reg.XSize(b.Dim)).Set(a.Index, b.Index, v)
				}
			case a.Kind == dimension.KindY && b.Kind == dimension.KindY:
				if a.Dim <= b.Dim {
					block(yy, pair{a.Dim, b.Dim}, d, d).Set(a.Index, b.Index, v)
				}
			case a.Kind == dimension.KindY:
				block(xy, pair{a.Dim, b.Dim}, d, c.reg.XSize(b.Dim)).Set(a.Index, b.Index, v)
			}
		}
	}

	for k, m := range xx {
		if err := c.store.SetXXVar(k.a, k.b, m); err != nil {
			return err
		}
	}
	for k, m := range yy {
		if err := c.store.SetYYVar(k.a, k.b, m); err != nil {
			return err
		}
	}
	for k, m := range xy {
		if err := c.store.SetXYVar(k.a, k.b, m); err != nil {
			return err
		}
	}
	c.covDirty = false

	c.log.Debug().
		Int("cells", n).
		Int("samples", c.nSample).
		Str("resampling", c.cfg.Resampling.String()).
		Msg("covariance estimated")

	return nil
}

// sampledCells lists every uncertain X coordinate and registered Y point that
// has replica values, with its samples.
func (c *Coordinator) sampledCells() ([]dimension.Cell, [][]float64) {
	var cells []dimension.Cell
	var samples [][]float64

	for i, col := range c.xs {
		if c.reg.IsExact(i) {
			continue
		}
		for r, v := range col {
			if v == nil {
				continue
			}
			cells = append(cells, dimension.XCell(i, r))
			samples = append(samples, v.Samples)
		}
	}
	for j, m := range c.ys {
		for _, k := range c.reg.Points(j) {
			v, ok := m[k]
			if !ok {
				continue
			}
			cells = append(cells, dimension.YCell(j, k))
			samples = append(samples, v.Samples)
		}
	}

	return cells, samples
}
