package collision

import (
	"fmt"

	"github.com/arloliu/corrfit/errs"
	"github.com/arloliu/corrfit/internal/hash"
)

// Entry is a tracked name with the slot it was assigned to.
type Entry struct {
	Name string
	Slot int
}

// Tracker tracks dimension names by their xxHash64 id and detects duplicates.
//
// Names sharing a hash but differing in text are kept side by side in the
// same bucket; lookups then fall back to a string comparison. The collision
// flag only reports that such a bucket exists.
type Tracker struct {
	buckets      map[uint64][]Entry // Hash → entries with that hash
	names        []string           // Registration order
	hasCollision bool
}

// NewTracker creates a new name tracker.
func NewTracker() *Tracker {
	return &Tracker{
		buckets: make(map[uint64][]Entry),
		names:   make([]string, 0),
	}
}

// Track registers name under the given slot.
//
// Returns errs.ErrInvalidDimension for an empty name and
// errs.ErrDuplicateDimension when the name is already tracked.
func (t *Tracker) Track(name string, slot int) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", errs.ErrInvalidDimension)
	}

	id := hash.ID(name)
	bucket := t.buckets[id]
	for _, e := range bucket {
		if e.Name == name {
			return fmt.Errorf("%w: %q", errs.ErrDuplicateDimension, name)
		}
	}
	if len(bucket) > 0 {
		t.hasCollision = true
	}

	t.buckets[id] = append(bucket, Entry{Name: name, Slot: slot})
	t.names = append(t.names, name)

	return nil
}

// Lookup returns the slot registered for name.
func (t *Tracker) Lookup(name string) (int, bool) {
	for _, e := range t.buckets[hash.ID(name)] {
		if e.Name == name {
			return e.Slot, true
		}
	}

	return 0, false
}

// HasCollision returns true if two distinct names share a hash.
func (t *Tracker) HasCollision() bool {
	return t.hasCollision
}

// Names returns the tracked names in registration order.
func (t *Tracker) Names() []string {
	return t.names
}

// Count returns the number of tracked names.
func (t *Tracker) Count() int {
	return len(t.names)
}
