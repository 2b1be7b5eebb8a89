package dimension

import (
	"slices"

	"github.com/arloliu/corrfit/internal/hash"
	"github.com/arloliu/corrfit/internal/pool"
)

// Layout is the flat ordering of every active fit quantity.
//
// Positions [0, TotalY) hold active Y points grouped by Y dimension, each
// group in ascending data index. Positions [TotalY, Size) hold the nuisance
// slots of uncertain X dimensions grouped by X dimension, each group in
// ascending coordinate. An X coordinate is active when at least one active Y
// point uses it. Exact X dimensions contribute no positions.
//
// A Layout is immutable once built.
type Layout struct {
	yOffset []int
	yPoints [][]int
	yLocal  []map[int]int

	xOffset []int
	xCoords [][]int // active coordinates of every X dimension, exact ones included
	xLocal  [][]int // coordinate -> local nuisance slot, -1 if none
	xFit    []int

	cells  []Cell
	coords [][]int // coordinate tuple of every Y position

	totalY  int
	totalX  int
	id      uint64
	builtAt uint64
}

// Layout returns the layout for the current registry state, building it when
// the registry changed since the last call.
func (r *Registry) Layout() *Layout {
	r.layoutMu.Lock()
	defer r.layoutMu.Unlock()

	ver := r.Version()
	if r.layout != nil && r.layout.builtAt == ver {
		return r.layout
	}
	r.layout = r.buildLayout(ver)

	return r.layout
}

func (r *Registry) buildLayout(ver uint64) *Layout {
	nx, ny := len(r.xDims), len(r.yDims)
	l := &Layout{
		yOffset: make([]int, ny),
		yPoints: make([][]int, ny),
		yLocal:  make([]map[int]int, ny),
		xOffset: make([]int, nx),
		xCoords: make([][]int, nx),
		xLocal:  make([][]int, nx),
		xFit:    make([]int, nx),
		builtAt: ver,
	}

	used := make([][]bool, nx)
	for i, d := range r.xDims {
		used[i] = make([]bool, d.Size)
	}

	coord, release := pool.GetIntSlice(nx)
	defer release()
	for j, ps := range r.points {
		active := ps.active()
		l.yOffset[j] = l.totalY
		l.yPoints[j] = active
		l.yLocal[j] = make(map[int]int, len(active))
		for local, k := range active {
			l.yLocal[j][k] = local
			_ = r.CoordinateTo(coord, k)
			for i, c := range coord {
				used[i][c] = true
			}
			l.cells = append(l.cells, YCell(j, k))
			l.coords = append(l.coords, slices.Clone(coord))
		}
		l.totalY += len(active)
	}

	for i, d := range r.xDims {
		l.xOffset[i] = l.totalY + l.totalX
		l.xLocal[i] = make([]int, d.Size)
		for c := range d.Size {
			l.xLocal[i][c] = -1
			if !used[i][c] {
				continue
			}
			l.xCoords[i] = append(l.xCoords[i], c)
			if d.Mode == Exact {
				continue
			}
			l.xLocal[i][c] = l.xFit[i]
			l.xFit[i]++
			l.cells = append(l.cells, XCell(i, c))
		}
		l.totalX += l.xFit[i]
	}

	l.id = l.fingerprint()

	return l
}

func (l *Layout) fingerprint() uint64 {
	fp := hash.NewFingerprint().Int(l.totalY).Int(l.totalX).Ints(l.xFit)
	for _, c := range l.cells {
		fp.Int(int(c.Kind)).Int(c.Dim).Int(c.Index)
	}

	return fp.Sum()
}

// Size returns the number of active positions (TotalY + TotalX).
func (l *Layout) Size() int {
	return l.totalY + l.totalX
}

// TotalY returns the number of active Y points over all Y dimensions.
func (l *Layout) TotalY() int {
	return l.totalY
}

// TotalX returns the number of nuisance slots over all X dimensions.
func (l *Layout) TotalX() int {
	return l.totalX
}

// NumYDimensions returns the number of Y dimensions covered.
func (l *Layout) NumYDimensions() int {
	return len(l.yPoints)
}

// NumXDimensions returns the number of X dimensions covered.
func (l *Layout) NumXDimensions() int {
	return len(l.xCoords)
}

// YFitSize returns the number of active points of Y dimension j.
func (l *Layout) YFitSize(j int) int {
	return len(l.yPoints[j])
}

// XFitSize returns the number of nuisance slots of X dimension i.
func (l *Layout) XFitSize(i int) int {
	return l.xFit[i]
}

// YOffset returns the first position of Y dimension j.
func (l *Layout) YOffset(j int) int {
	return l.yOffset[j]
}

// XOffset returns the first position of X dimension i.
func (l *Layout) XOffset(i int) int {
	return l.xOffset[i]
}

// YPoints returns the active data indices of Y dimension j in layout order.
// The returned slice must not be modified.
func (l *Layout) YPoints(j int) []int {
	return l.yPoints[j]
}

// XCoordinates returns the coordinates of X dimension i used by active points,
// in ascending order. Exact dimensions are included. The returned slice must
// not be modified.
func (l *Layout) XCoordinates(i int) []int {
	return l.xCoords[i]
}

// YPosition returns the position of data point k of Y dimension j.
func (l *Layout) YPosition(j, k int) (int, bool) {
	if j < 0 || j >= len(l.yLocal) {
		return 0, false
	}
	local, ok := l.yLocal[j][k]
	if !ok {
		return 0, false
	}

	return l.yOffset[j] + local, true
}

// XPosition returns the position of the nuisance slot of value r of X
// dimension i. Exact dimensions never have a position.
func (l *Layout) XPosition(i, r int) (int, bool) {
	if i < 0 || i >= len(l.xLocal) || r < 0 || r >= len(l.xLocal[i]) {
		return 0, false
	}
	local := l.xLocal[i][r]
	if local < 0 {
		return 0, false
	}

	return l.xOffset[i] + local, true
}

// Position returns the layout position of a cell.
func (l *Layout) Position(c Cell) (int, bool) {
	if c.Kind == KindY {
		return l.YPosition(c.Dim, c.Index)
	}

	return l.XPosition(c.Dim, c.Index)
}

// Cell returns the cell at position p.
func (l *Layout) Cell(p int) Cell {
	return l.cells[p]
}

// Cells returns all cells in layout order. The returned slice must not be modified.
func (l *Layout) Cells() []Cell {
	return l.cells
}

// PointCoordinate returns the X coordinate tuple of the Y point at position p,
// which must be below TotalY. The returned slice must not be modified.
func (l *Layout) PointCoordinate(p int) []int {
	return l.coords[p]
}

// ID returns an xxHash64 fingerprint of the layout's cell sequence. Two
// layouts with the same ID assign the same cells to the same positions.
func (l *Layout) ID() uint64 {
	return l.id
}
