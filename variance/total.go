package variance

import (
	"fmt"
	"math"

	"github.com/arloliu/corrfit/errs"
	"gonum.org/v1/gonum/mat"
)

// InverseInfo describes the spectrum kept by the last pseudo-inversion.
type InverseInfo struct {
	// Size is the dimension of the variance matrix.
	Size int
	// Rank is the number of singular values kept.
	Rank int
	// Truncated is the number of singular values discarded.
	Truncated int
	// MaxSingular is the largest singular value.
	MaxSingular float64
	// Condition is the ratio of the largest to the smallest kept singular value.
	Condition float64
}

// TotalVariance returns the variance matrix over the current Layout.
//
// Entry (p, q) is the raw block entry of the cells at positions p and q,
// multiplied by the registry's correlation mask, so off-diagonal entries are
// zero unless the two cells are declared correlated. The result is symmetric
// by construction. The returned matrix is shared and must not be modified.
func (s *Store) TotalVariance() *mat.SymDense {
	return s.ensure().total
}

// Inverse returns the tolerance-truncated pseudo-inverse of TotalVariance.
//
// Singular values below Tolerance()·max are treated as zero. Returns
// errs.ErrEmptyVariance when the layout has no active position,
// errs.ErrSingularVariance when every singular value is truncated and
// errs.ErrBlockSize when a stored block no longer matches the registry.
// The returned matrix is shared and must not be modified.
func (s *Store) Inverse() (*mat.SymDense, error) {
	c := s.ensure()
	if !c.hasInv {
		s.invert(c)
	}

	return c.inverse, c.invErr
}

// InverseInfo returns spectral details of the pseudo-inverse, computing it if needed.
func (s *Store) InverseInfo() (InverseInfo, error) {
	_, err := s.Inverse()

	return s.cache.info, err
}

// Correlation returns the correlation matrix of TotalVariance. Rows with a
// non-positive variance are left zero apart from a unit diagonal.
func (s *Store) Correlation() *mat.SymDense {
	total := s.TotalVariance()
	n := total.SymmetricDim()
	if n == 0 {
		return &mat.SymDense{}
	}

	sd := make([]float64, n)
	for p := range n {
		sd[p] = math.Sqrt(math.Max(total.At(p, p), 0))
	}

	corr := mat.NewSymDense(n, nil)
	for p := range n {
		corr.SetSym(p, p, 1)
		for q := p + 1; q < n; q++ {
			if sd[p] > 0 && sd[q] > 0 {
				corr.SetSym(p, q, total.At(p, q)/(sd[p]*sd[q]))
			}
		}
	}

	return corr
}

// ensure returns a cache matching the current registry and variance versions.
func (s *Store) ensure() *cache {
	regVer, varVer := s.reg.Version(), s.varVer.Load()
	if s.cache != nil && s.cache.regVer == regVer && s.cache.varVer == varVer {
		return s.cache
	}

	l := s.reg.Layout()
	mask := s.reg.CorrelationMask()
	n := l.Size()

	total := &mat.SymDense{}
	if n > 0 {
		total = mat.NewSymDense(n, nil)
		cells := l.Cells()
		for p := range n {
			for q := p; q < n; q++ {
				if mask.At(p, q) == 0 {
					continue
				}
				total.SetSym(p, q, s.rawEntry(cells[p], cells[q]))
			}
		}
	}

	s.cache = &cache{
		regVer:   regVer,
		varVer:   varVer,
		layout:   l,
		total:    total,
		blockErr: s.checkBlocks(),
	}

	return s.cache
}

// invert fills the inverse fields of c.
func (s *Store) invert(c *cache) {
	c.hasInv = true
	if c.blockErr != nil {
		c.invErr = c.blockErr
		return
	}

	n := c.total.SymmetricDim()
	if n == 0 {
		c.invErr = errs.ErrEmptyVariance
		return
	}

	var svd mat.SVD
	if ok := svd.Factorize(c.total, mat.SVDThin); !ok {
		c.invErr = fmt.Errorf("%w: SVD factorization failed", errs.ErrNumerical)
		return
	}

	values := svd.Values(nil)
	maxSV := values[0]
	cutoff := s.cfg.Tolerance * maxSV

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	info := InverseInfo{Size: n, MaxSingular: maxSV}
	minKept := math.Inf(1)
	for k, sv := range values {
		if sv > cutoff && sv > 0 {
			info.Rank++
			minKept = math.Min(minKept, sv)
			col := v.ColView(k).(*mat.VecDense)
			col.ScaleVec(1/sv, col)

			continue
		}
		info.Truncated++
		zeroColumn(&v, k)
	}
	c.info = info

	if info.Rank == 0 {
		c.invErr = fmt.Errorf("%w: all %d singular values below %g", errs.ErrSingularVariance, n, cutoff)
		return
	}
	c.info.Condition = maxSV / minKept

	// pinv = V·diag(1/s)·Uᵀ, symmetrized against rounding.
	var pinv mat.Dense
	pinv.Mul(&v, u.T())

	inv := mat.NewSymDense(n, nil)
	for p := range n {
		for q := p; q < n; q++ {
			inv.SetSym(p, q, 0.5*(pinv.At(p, q)+pinv.At(q, p)))
		}
	}
	c.inverse = inv

	s.log.Debug().
		Int("size", n).
		Int("rank", info.Rank).
		Int("truncated", info.Truncated).
		Float64("condition", c.info.Condition).
		Msg("variance matrix inverted")
}

func zeroColumn(m *mat.Dense, k int) {
	r, _ := m.Dims()
	for i := range r {
		m.Set(i, k, 0)
	}
}
