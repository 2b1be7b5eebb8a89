// Package variance stores the data and covariance of a correlated fit problem
// and assembles the total variance matrix used as the chi-square metric.
//
// Raw covariance is supplied per pair of dimensions as dense blocks sized to
// the full axis extents: X×X blocks are size(i1)×size(i2), Y×Y blocks are
// D×D and Y×X blocks D×size(i), where D is the registry's data size.
// TotalVariance gathers the entries for every pair of active Layout positions
// and masks off-diagonal entries that are not declared correlated. Inverse
// returns its pseudo-inverse, discarding singular values below a relative
// tolerance so that statistically unresolved directions do not contribute to
// the chi-square.
//
// Example:
//
//	store, _ := variance.NewStore(reg, variance.WithTolerance(1e-12))
//	store.SetX(0, 0, 1.5)
//	store.SetY(0, 0, 3.2)
//	store.SetYYVar(0, 0, cov)
//	inv, err := store.Inverse()
package variance
