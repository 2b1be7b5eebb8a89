package resample

import (
	"fmt"

	"github.com/arloliu/corrfit/errs"
)

// Replica identifies one member of a replica ensemble: the Central
// (original) dataset or one of the N resampled datasets.
//
// The zero value is Central.
type Replica struct {
	idx int // 0 is Central, i+1 is sample i
}

// Central is the replica of the original data.
var Central = Replica{}

// Sample returns the replica of resampled dataset i, 0 <= i < N.
func Sample(i int) Replica {
	return Replica{idx: i + 1}
}

// IsCentral reports whether r is the Central replica.
func (r Replica) IsCentral() bool {
	return r.idx == 0
}

// Index returns the sample index of r, or -1 for Central.
func (r Replica) Index() int {
	return r.idx - 1
}

// String returns "central" or "sample[i]".
func (r Replica) String() string {
	if r.IsCentral() {
		return "central"
	}

	return fmt.Sprintf("sample[%d]", r.Index())
}

// Vector holds one scalar across a replica ensemble.
type Vector struct {
	// Central is the value of the original data.
	Central float64
	// Samples holds one value per resampled dataset.
	Samples []float64
}

// NewVector returns a Vector with a copy of samples.
func NewVector(central float64, samples ...float64) Vector {
	return Vector{Central: central, Samples: append([]float64(nil), samples...)}
}

// Len returns the number of samples.
func (v Vector) Len() int {
	return len(v.Samples)
}

// At returns the value of replica r. It panics if r is out of range.
func (v Vector) At(r Replica) float64 {
	if r.IsCentral() {
		return v.Central
	}

	return v.Samples[r.Index()]
}

// check validates that r addresses a replica of an ensemble of n samples.
func check(r Replica, n int) error {
	if r.Index() >= n || r.idx < 0 {
		return fmt.Errorf("%w: %s of %d samples", errs.ErrInvalidIndex, r, n)
	}

	return nil
}
