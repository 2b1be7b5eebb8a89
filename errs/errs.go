// Package errs defines the sentinel errors returned by corrfit packages.
//
// Every error belongs to one of four categories: ErrConfig, ErrRange, ErrSize
// and ErrNumerical. The specific sentinels below wrap their category, so
// callers can match either the precise condition or the broad class:
//
//	if errors.Is(err, errs.ErrRange) {
//	    // invalid index, coordinate or unregistered point
//	}
package errs

import (
	"errors"
	"fmt"
)

// Error categories.
var (
	// ErrConfig reports an invalid configuration sequence or inconsistent setup.
	ErrConfig = errors.New("config error")
	// ErrRange reports an invalid coordinate, index or unregistered data point.
	ErrRange = errors.New("range error")
	// ErrSize reports a size mismatch of a block, vector or model.
	ErrSize = errors.New("size error")
	// ErrNumerical reports a numerically unusable variance matrix.
	ErrNumerical = errors.New("numerical error")
)

// Configuration errors.
var (
	ErrAxisAfterData      = fmt.Errorf("%w: cannot add X dimension once data exists", ErrConfig)
	ErrInvalidDimension   = fmt.Errorf("%w: invalid dimension", ErrConfig)
	ErrDuplicateDimension = fmt.Errorf("%w: duplicate dimension name", ErrConfig)
	ErrNoFitPoints        = fmt.Errorf("%w: no active fit points", ErrConfig)
	ErrFrozen             = fmt.Errorf("%w: registry is frozen", ErrConfig)
	ErrInsufficientSample = fmt.Errorf("%w: not enough samples", ErrConfig)
	ErrNilMinimizer       = fmt.Errorf("%w: nil minimizer", ErrConfig)
	ErrInvalidOption      = fmt.Errorf("%w: invalid option", ErrConfig)
)

// Range errors.
var (
	ErrInvalidCoordinate  = fmt.Errorf("%w: invalid coordinate", ErrRange)
	ErrInvalidIndex       = fmt.Errorf("%w: invalid index", ErrRange)
	ErrUnregisteredPoint  = fmt.Errorf("%w: unregistered data point", ErrRange)
	ErrUnknownDimension   = fmt.Errorf("%w: unknown dimension", ErrRange)
	ErrMissingReplicaData = fmt.Errorf("%w: missing replica data", ErrRange)
)

// Size errors.
var (
	ErrBlockSize      = fmt.Errorf("%w: covariance block size mismatch", ErrSize)
	ErrVectorSize     = fmt.Errorf("%w: vector size mismatch", ErrSize)
	ErrModelMismatch  = fmt.Errorf("%w: %w: model mismatch", ErrSize, ErrConfig)
	ErrParameterCount = fmt.Errorf("%w: parameter count mismatch", ErrSize)
)

// Numerical errors.
var (
	ErrSingularVariance = fmt.Errorf("%w: variance matrix is singular beyond tolerance", ErrNumerical)
	ErrEmptyVariance    = fmt.Errorf("%w: variance matrix is empty", ErrNumerical)
)
