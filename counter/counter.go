// Package counter provides named monotonic counters for domain systems that
// need their own id spaces (wars, artifacts, institutions, and so on). A Set
// is owned by a single World and injected into systems through the world
// context, so two simulations running in the same process never share or
// collide on ids and tests never need a global reset.
package counter

import "github.com/rotisserie/eris"

// Set holds a collection of named counters. It is not safe for concurrent
// use; the kernel is single-threaded.
type Set struct {
	counts map[string]uint64
	names  []string
}

func NewSet() *Set {
	return &Set{counts: make(map[string]uint64)}
}

// Next increments the counter for key and returns the new value. The first
// call for a key returns 1.
func (s *Set) Next(key string) uint64 {
	if _, ok := s.counts[key]; !ok {
		s.names = append(s.names, key)
	}
	s.counts[key]++
	return s.counts[key]
}

// Peek returns the current value of the counter for key without incrementing
// it. An unused counter reads 0.
func (s *Set) Peek(key string) uint64 {
	return s.counts[key]
}

// Get returns the current value of the counter for key, or an error if the
// counter has never been incremented.
func (s *Set) Get(key string) (uint64, error) {
	count, ok := s.counts[key]
	if !ok {
		return 0, eris.Errorf("counter %q does not exist", key)
	}
	return count, nil
}

// Names returns the counter keys in first-use order.
func (s *Set) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Counts returns a copy of all counters.
func (s *Set) Counts() map[string]uint64 {
	out := make(map[string]uint64, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}
