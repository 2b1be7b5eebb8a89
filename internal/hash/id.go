// Package hash provides xxHash64 based identifiers used for dimension names
// and layout fingerprints.
package hash

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// ID computes the xxHash64 of the given string.
func ID(data string) uint64 {
	return xxhash.Sum64String(data)
}

// Fingerprint accumulates integers into a running xxHash64 digest.
//
// The zero value is not usable; create one with NewFingerprint.
type Fingerprint struct {
	d   *xxhash.Digest
	buf [8]byte
}

// NewFingerprint creates an empty fingerprint.
func NewFingerprint() *Fingerprint {
	return &Fingerprint{d: xxhash.New()}
}

// Int mixes a single integer into the fingerprint.
func (f *Fingerprint) Int(v int) *Fingerprint {
	binary.LittleEndian.PutUint64(f.buf[:], uint64(v))
	_, _ = f.d.Write(f.buf[:])

	return f
}

// Ints mixes a length-prefixed integer slice into the fingerprint.
func (f *Fingerprint) Ints(vs []int) *Fingerprint {
	f.Int(len(vs))
	for _, v := range vs {
		f.Int(v)
	}

	return f
}

// Sum returns the current digest value.
func (f *Fingerprint) Sum() uint64 {
	return f.d.Sum64()
}
