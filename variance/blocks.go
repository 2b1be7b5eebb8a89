package variance

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"github.com/arloliu/corrfit/dimension"
	"github.com/arloliu/corrfit/errs"
	"gonum.org/v1/gonum/mat"
)

// SetXXVar assigns the raw covariance block between X dimensions i1 and i2.
//
// The block must be size(i1) × size(i2). The (i2, i1) block is set to its
// transpose; for i1 == i2 the block is stored as given and its upper triangle
// is what TotalVariance reads.
func (s *Store) SetXXVar(i1, i2 int, block mat.Matrix) error {
	if err := s.checkXDim(i1); err != nil {
		return err
	}
	if err := s.checkXDim(i2); err != nil {
		return err
	}
	if err := checkBlock(block, s.reg.XSize(i1), s.reg.XSize(i2)); err != nil {
		return err
	}

	s.xx[blockKey{i1, i2}] = mat.DenseCopyOf(block)
	if i1 != i2 {
		s.xx[blockKey{i2, i1}] = mat.DenseCopyOf(block.T())
	}
	s.varVer.Add(1)

	return nil
}

// SetYYVar assigns the raw covariance block between Y dimensions j1 and j2.
// The block must be DataSize × DataSize.
func (s *Store) SetYYVar(j1, j2 int, block mat.Matrix) error {
	if err := s.checkYDim(j1); err != nil {
		return err
	}
	if err := s.checkYDim(j2); err != nil {
		return err
	}
	d := s.reg.DataSize()
	if err := checkBlock(block, d, d); err != nil {
		return err
	}

	s.yy[blockKey{j1, j2}] = mat.DenseCopyOf(block)
	if j1 != j2 {
		s.yy[blockKey{j2, j1}] = mat.DenseCopyOf(block.T())
	}
	s.varVer.Add(1)

	return nil
}

// SetXYVar assigns the raw covariance block between Y dimension j and X
// dimension i. The block must be DataSize × size(i).
func (s *Store) SetXYVar(j, i int, block mat.Matrix) error {
	if err := s.checkYDim(j); err != nil {
		return err
	}
	if err := s.checkXDim(i); err != nil {
		return err
	}
	if err := checkBlock(block, s.reg.DataSize(), s.reg.XSize(i)); err != nil {
		return err
	}

	s.xy[blockKey{j, i}] = mat.DenseCopyOf(block)
	s.varVer.Add(1)

	return nil
}

// XXVar returns a copy of the raw block between X dimensions i1 and i2.
// An unset block reads as zeros.
func (s *Store) XXVar(i1, i2 int) (*mat.Dense, error) {
	if err := s.checkXDim(i1); err != nil {
		return nil, err
	}
	if err := s.checkXDim(i2); err != nil {
		return nil, err
	}

	return copyOrZero(s.xx[blockKey{i1, i2}], s.reg.XSize(i1), s.reg.XSize(i2)), nil
}

// YYVar returns a copy of the raw block between Y dimensions j1 and j2.
func (s *Store) YYVar(j1, j2 int) (*mat.Dense, error) {
	if err := s.checkYDim(j1); err != nil {
		return nil, err
	}
	if err := s.checkYDim(j2); err != nil {
		return nil, err
	}
	d := s.reg.DataSize()

	return copyOrZero(s.yy[blockKey{j1, j2}], d, d), nil
}

// XYVar returns a copy of the raw block between Y dimension j and X dimension i.
func (s *Store) XYVar(j, i int) (*mat.Dense, error) {
	if err := s.checkYDim(j); err != nil {
		return nil, err
	}
	if err := s.checkXDim(i); err != nil {
		return nil, err
	}

	return copyOrZero(s.xy[blockKey{j, i}], s.reg.DataSize(), s.reg.XSize(i)), nil
}

// rawEntry returns the raw covariance between two cells, 0 if no block is set.
func (s *Store) rawEntry(a, b dimension.Cell) float64 {
	if a.Kind == dimension.KindX && b.Kind == dimension.KindY {
		a, b = b, a
	}

	var m *mat.Dense
	switch {
	case a.Kind == dimension.KindY && b.Kind == dimension.KindY:
		m = s.yy[blockKey{a.Dim, b.Dim}]
	case a.Kind == dimension.KindX && b.Kind == dimension.KindX:
		m = s.xx[blockKey{a.Dim, b.Dim}]
	default:
		m = s.xy[blockKey{a.Dim, b.Dim}]
	}
	if m == nil {
		return 0
	}
	// Y blocks go stale when an X dimension is added after they were set.
	if r, c := m.Dims(); a.Index >= r || b.Index >= c {
		return 0
	}

	return m.At(a.Index, b.Index)
}

// checkBlocks reports the first Y or X-Y block whose shape no longer matches
// the registry's data size.
func (s *Store) checkBlocks() error {
	d := s.reg.DataSize()
	for _, key := range slices.SortedFunc(maps.Keys(s.yy), compareKeys) {
		if r, c := s.yy[key].Dims(); r != d || c != d {
			return fmt.Errorf("%w: YY block (%d, %d) is %dx%d, data size is now %d",
				errs.ErrBlockSize, key.a, key.b, r, c, d)
		}
	}
	for _, key := range slices.SortedFunc(maps.Keys(s.xy), compareKeys) {
		if r, _ := s.xy[key].Dims(); r != d {
			return fmt.Errorf("%w: XY block (%d, %d) has %d rows, data size is now %d",
				errs.ErrBlockSize, key.a, key.b, r, d)
		}
	}

	return nil
}

func compareKeys(x, y blockKey) int {
	if c := cmp.Compare(x.a, y.a); c != 0 {
		return c
	}

	return cmp.Compare(x.b, y.b)
}

func (s *Store) checkXDim(i int) error {
	if i < 0 || i >= s.reg.NumXDimensions() {
		return fmt.Errorf("%w: X dimension %d", errs.ErrUnknownDimension, i)
	}

	return nil
}

func (s *Store) checkYDim(j int) error {
	if j < 0 || j >= s.reg.NumYDimensions() {
		return fmt.Errorf("%w: Y dimension %d", errs.ErrUnknownDimension, j)
	}

	return nil
}

func checkBlock(block mat.Matrix, rows, cols int) error {
	if block == nil {
		return fmt.Errorf("%w: nil block", errs.ErrBlockSize)
	}
	r, c := block.Dims()
	if r != rows || c != cols {
		return fmt.Errorf("%w: got %dx%d, want %dx%d", errs.ErrBlockSize, r, c, rows, cols)
	}

	return nil
}

func copyOrZero(m *mat.Dense, rows, cols int) *mat.Dense {
	if rows == 0 || cols == 0 {
		return &mat.Dense{}
	}
	if m == nil {
		return mat.NewDense(rows, cols, nil)
	}

	return mat.DenseCopyOf(m)
}
