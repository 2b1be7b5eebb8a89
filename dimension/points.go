package dimension

import "slices"

// pointSet is an ordered integer-keyed set of data points with a fit flag.
//
// Keys are kept sorted so iteration order, and therefore Layout assignment,
// is reproducible.
type pointSet struct {
	keys []int
	fit  []bool
}

// find returns the position of k and whether it is present.
func (s *pointSet) find(k int) (int, bool) {
	return slices.BinarySearch(s.keys, k)
}

// set registers k (if needed) and stores its fit flag.
// Returns true when k was newly registered.
func (s *pointSet) set(k int, isFit bool) bool {
	pos, ok := s.find(k)
	if ok {
		s.fit[pos] = isFit
		return false
	}

	s.keys = slices.Insert(s.keys, pos, k)
	s.fit = slices.Insert(s.fit, pos, isFit)

	return true
}

// has reports whether k is registered.
func (s *pointSet) has(k int) bool {
	_, ok := s.find(k)
	return ok
}

// isFit reports whether k is registered and active.
func (s *pointSet) isFit(k int) bool {
	pos, ok := s.find(k)
	return ok && s.fit[pos]
}

func (s *pointSet) len() int {
	return len(s.keys)
}

// active returns the active keys in ascending order.
func (s *pointSet) active() []int {
	out := make([]int, 0, len(s.keys))
	for i, k := range s.keys {
		if s.fit[i] {
			out = append(out, k)
		}
	}

	return out
}
