package dimension

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/arloliu/corrfit/errs"
	"github.com/arloliu/corrfit/internal/collision"
)

// Mode tells whether an X dimension carries measurement uncertainty.
type Mode uint8

const (
	// Uncertain X values get a nuisance parameter in the fit.
	Uncertain Mode = iota
	// Exact X values are read directly from the stored data.
	Exact
)

// String returns "uncertain" or "exact".
func (m Mode) String() string {
	if m == Exact {
		return "exact"
	}

	return "uncertain"
}

// XDimension describes an independent-variable axis.
type XDimension struct {
	// Name is the unique axis name.
	Name string
	// Size is the number of distinct values along the axis.
	Size int
	// Mode tells whether the axis values are exact or uncertain.
	Mode Mode
}

// YDimension describes a dependent-variable axis.
type YDimension struct {
	// Name is the unique axis name.
	Name string
}

// Registry tracks the axes of a fit problem, the data points registered on
// every Y dimension, their fit flags and the declared correlation edges.
//
// Every mutation bumps Version; the derived Layout is rebuilt lazily on the
// next call to Layout. A frozen registry rejects every mutation with
// errs.ErrFrozen, which lets read-only snapshots share it across goroutines.
//
// Registry is not safe for concurrent mutation. Concurrent reads are safe once
// the registry is frozen.
type Registry struct {
	xDims   []XDimension
	yDims   []YDimension
	points  []*pointSet
	names   *collision.Tracker
	edges   map[Edge]struct{}
	strides []int
	size    int

	version atomic.Uint64
	frozen  atomic.Bool

	layoutMu sync.Mutex
	layout   *Layout
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		names: collision.NewTracker(),
		edges: make(map[Edge]struct{}),
	}
}

// AddXDimension appends an independent-variable axis and returns its index.
//
// Returns errs.ErrAxisAfterData once any Y point has been registered, since
// adding an axis would change the meaning of every existing data index.
//
// Parameters:
//   - name: Unique axis name
//   - size: Number of distinct values along the axis (must be positive)
//   - mode: Exact or Uncertain
//
// Returns:
//   - int: Index of the new X dimension
//   - error: Configuration error if any
func (r *Registry) AddXDimension(name string, size int, mode Mode) (int, error) {
	if err := r.checkMutable(); err != nil {
		return 0, err
	}
	if r.hasData() {
		return 0, errs.ErrAxisAfterData
	}
	if size < 1 {
		return 0, fmt.Errorf("%w: X dimension %q has size %d", errs.ErrInvalidDimension, name, size)
	}
	if mode != Exact && mode != Uncertain {
		return 0, fmt.Errorf("%w: unknown mode %d", errs.ErrInvalidDimension, mode)
	}

	idx := len(r.xDims)
	if err := r.names.Track(name, encodeSlot(KindX, idx)); err != nil {
		return 0, err
	}

	r.xDims = append(r.xDims, XDimension{Name: name, Size: size, Mode: mode})
	r.recomputeStrides()
	r.touch()

	return idx, nil
}

// AddYDimension appends a dependent-variable axis and returns its index.
func (r *Registry) AddYDimension(name string) (int, error) {
	if err := r.checkMutable(); err != nil {
		return 0, err
	}

	idx := len(r.yDims)
	if err := r.names.Track(name, encodeSlot(KindY, idx)); err != nil {
		return 0, err
	}

	r.yDims = append(r.yDims, YDimension{Name: name})
	r.points = append(r.points, &pointSet{})
	r.touch()

	return idx, nil
}

// NumXDimensions returns the number of X dimensions.
func (r *Registry) NumXDimensions() int {
	return len(r.xDims)
}

// NumYDimensions returns the number of Y dimensions.
func (r *Registry) NumYDimensions() int {
	return len(r.yDims)
}

// XDimension returns the description of X dimension i.
func (r *Registry) XDimension(i int) (XDimension, error) {
	if err := r.checkX(i); err != nil {
		return XDimension{}, err
	}

	return r.xDims[i], nil
}

// YDimension returns the description of Y dimension j.
func (r *Registry) YDimension(j int) (YDimension, error) {
	if err := r.checkY(j); err != nil {
		return YDimension{}, err
	}

	return r.yDims[j], nil
}

// XSize returns the size of X dimension i, or 0 if i is out of range.
func (r *Registry) XSize(i int) int {
	if i < 0 || i >= len(r.xDims) {
		return 0
	}

	return r.xDims[i].Size
}

// IsExact reports whether X dimension i is exact.
func (r *Registry) IsExact(i int) bool {
	return i >= 0 && i < len(r.xDims) && r.xDims[i].Mode == Exact
}

// XDimensionByName returns the index of the X dimension with the given name.
func (r *Registry) XDimensionByName(name string) (int, bool) {
	return r.lookup(name, KindX)
}

// YDimensionByName returns the index of the Y dimension with the given name.
func (r *Registry) YDimensionByName(name string) (int, bool) {
	return r.lookup(name, KindY)
}

// DataSize returns the number of distinct data indices, the product of all
// X dimension sizes. It is 0 when no X dimension exists.
func (r *Registry) DataSize() int {
	return r.size
}

// DataIndex maps an X coordinate tuple to its flat data index.
//
// The mapping is row-major: the last X dimension varies fastest.
// Returns errs.ErrInvalidCoordinate on wrong arity or out-of-range values.
func (r *Registry) DataIndex(coord []int) (int, error) {
	if len(r.xDims) == 0 || len(coord) != len(r.xDims) {
		return 0, fmt.Errorf("%w: got %d components, want %d", errs.ErrInvalidCoordinate, len(coord), len(r.xDims))
	}

	k := 0
	for i, c := range coord {
		if c < 0 || c >= r.xDims[i].Size {
			return 0, fmt.Errorf("%w: component %d is %d, size %d", errs.ErrInvalidCoordinate, i, c, r.xDims[i].Size)
		}
		k += c * r.strides[i]
	}

	return k, nil
}

// Coordinate maps a flat data index back to its X coordinate tuple.
func (r *Registry) Coordinate(k int) ([]int, error) {
	coord := make([]int, len(r.xDims))
	if err := r.CoordinateTo(coord, k); err != nil {
		return nil, err
	}

	return coord, nil
}

// CoordinateTo writes the coordinate tuple of data index k into dst, which
// must have one element per X dimension.
func (r *Registry) CoordinateTo(dst []int, k int) error {
	if err := r.checkIndex(k); err != nil {
		return err
	}
	if len(dst) != len(r.xDims) {
		return fmt.Errorf("%w: destination has %d components, want %d", errs.ErrVectorSize, len(dst), len(r.xDims))
	}

	for i := range r.xDims {
		dst[i] = k / r.strides[i]
		k %= r.strides[i]
	}

	return nil
}

// RegisterPoint registers data point k on Y dimension j.
//
// A new point starts active. Registering an existing point is a no-op and is
// allowed on a frozen registry.
func (r *Registry) RegisterPoint(k, j int) error {
	if err := r.checkPoint(k, j); err != nil {
		return err
	}
	if r.points[j].has(k) {
		return nil
	}
	if err := r.checkMutable(); err != nil {
		return err
	}

	r.points[j].set(k, true)
	r.touch()

	return nil
}

// SetFitPoint marks data point k of Y dimension j as active or inactive.
// The first call for a point also registers it.
func (r *Registry) SetFitPoint(k, j int, isFit bool) error {
	if err := r.checkPoint(k, j); err != nil {
		return err
	}
	if err := r.checkMutable(); err != nil {
		return err
	}

	r.points[j].set(k, isFit)
	r.touch()

	return nil
}

// SetAllFitPoints applies isFit to every registered point of Y dimension j.
func (r *Registry) SetAllFitPoints(j int, isFit bool) error {
	if err := r.checkY(j); err != nil {
		return err
	}
	if err := r.checkMutable(); err != nil {
		return err
	}

	ps := r.points[j]
	for i := range ps.fit {
		ps.fit[i] = isFit
	}
	r.touch()

	return nil
}

// IsRegistered reports whether data point k exists on Y dimension j.
func (r *Registry) IsRegistered(k, j int) bool {
	return j >= 0 && j < len(r.points) && r.points[j].has(k)
}

// IsFitPoint reports whether data point k of Y dimension j is active.
func (r *Registry) IsFitPoint(k, j int) bool {
	return j >= 0 && j < len(r.points) && r.points[j].isFit(k)
}

// Points returns the registered data indices of Y dimension j in ascending order.
func (r *Registry) Points(j int) []int {
	if j < 0 || j >= len(r.points) {
		return nil
	}

	return slices.Clone(r.points[j].keys)
}

// NumPoints returns the number of registered points on Y dimension j.
func (r *Registry) NumPoints(j int) int {
	if j < 0 || j >= len(r.points) {
		return 0
	}

	return r.points[j].len()
}

// Freeze makes the registry read-only.
func (r *Registry) Freeze() {
	r.frozen.Store(true)
}

// Thaw makes the registry writable again.
func (r *Registry) Thaw() {
	r.frozen.Store(false)
}

// Frozen reports whether the registry is read-only.
func (r *Registry) Frozen() bool {
	return r.frozen.Load()
}

// Version returns a counter bumped by every mutation.
func (r *Registry) Version() uint64 {
	return r.version.Load()
}

func (r *Registry) touch() {
	r.version.Add(1)
}

func (r *Registry) checkMutable() error {
	if r.frozen.Load() {
		return errs.ErrFrozen
	}

	return nil
}

func (r *Registry) hasData() bool {
	for _, ps := range r.points {
		if ps.len() > 0 {
			return true
		}
	}

	return false
}

func (r *Registry) recomputeStrides() {
	n := len(r.xDims)
	r.strides = make([]int, n)
	stride := 1
	for i := n - 1; i >= 0; i-- {
		r.strides[i] = stride
		stride *= r.xDims[i].Size
	}
	r.size = stride
}

func (r *Registry) lookup(name string, kind Kind) (int, bool) {
	slot, ok := r.names.Lookup(name)
	if !ok {
		return 0, false
	}

	k, idx := decodeSlot(slot)
	if k != kind {
		return 0, false
	}

	return idx, true
}

func (r *Registry) checkX(i int) error {
	if i < 0 || i >= len(r.xDims) {
		return fmt.Errorf("%w: X dimension %d", errs.ErrUnknownDimension, i)
	}

	return nil
}

func (r *Registry) checkY(j int) error {
	if j < 0 || j >= len(r.yDims) {
		return fmt.Errorf("%w: Y dimension %d", errs.ErrUnknownDimension, j)
	}

	return nil
}

func (r *Registry) checkIndex(k int) error {
	if k < 0 || k >= r.size {
		return fmt.Errorf("%w: data index %d, size %d", errs.ErrInvalidIndex, k, r.size)
	}

	return nil
}

func (r *Registry) checkPoint(k, j int) error {
	if err := r.checkY(j); err != nil {
		return err
	}

	return r.checkIndex(k)
}

func (r *Registry) checkCell(c Cell) error {
	switch c.Kind {
	case KindX:
		if err := r.checkX(c.Dim); err != nil {
			return err
		}
		if c.Index < 0 || c.Index >= r.xDims[c.Dim].Size {
			return fmt.Errorf("%w: %s out of range", errs.ErrInvalidIndex, c)
		}

		return nil
	case KindY:
		return r.checkPoint(c.Index, c.Dim)
	default:
		return fmt.Errorf("%w: unknown kind %d", errs.ErrInvalidIndex, c.Kind)
	}
}

// Dimension names share one tracker; slots encode kind and index.
func encodeSlot(kind Kind, idx int) int {
	return idx<<1 | int(kind)
}

func decodeSlot(slot int) (Kind, int) {
	return Kind(slot & 1), slot >> 1
}
