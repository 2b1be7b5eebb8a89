// Package dimension tracks the shape of a correlated fit problem.
//
// A Registry holds the independent (X) and dependent (Y) axes of the data,
// the data points registered on every Y axis with their fit flags, and the
// correlation edges declared between individual scalar cells. From this
// state it derives a Layout: the deterministic flat ordering of every active
// fit quantity, Y residuals first and X nuisance slots second.
//
// # Data indices
//
// A data point is addressed by an X coordinate tuple, one component per X
// dimension. The flat data index enumerates the Cartesian product of all X
// sizes in row-major order, the last dimension varying fastest:
//
//	reg := dimension.NewRegistry()
//	reg.AddXDimension("t", 4, dimension.Exact)
//	reg.AddXDimension("m", 3, dimension.Uncertain)
//	k, _ := reg.DataIndex([]int{2, 1}) // k == 7
//	c, _ := reg.Coordinate(7)          // c == []int{2, 1}
//
// # Exact and uncertain X dimensions
//
// Values of an Exact dimension are read directly from the stored data. Values
// of an Uncertain dimension become nuisance parameters of the fit, constrained
// by their measurement, and therefore occupy Layout positions.
//
// # Correlations
//
// Off-diagonal covariance entries are ignored unless the two cells are joined
// by a declared Edge. CorrelationMask renders the edges as a 0/1 matrix over
// the Layout.
package dimension
