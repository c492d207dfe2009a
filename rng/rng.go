// Package rng provides the deterministic random source used by every part of
// the simulation. A Source is seeded with a single integer and can fork
// independent, named substreams. Forking derives the child seed from the
// parent's seed and the substream name only, never from the parent's draw
// count, so adding, removing, or reordering consumers of sibling substreams
// does not perturb each other's sequences.
package rng

import "hash/fnv"

// splitmix64 increment and mixing constants.
const (
	gamma = 0x9e3779b97f4a7c15
	mix1  = 0xbf58476d1ce4e5b9
	mix2  = 0x94d049bb133111eb
)

// Source is a splitmix64 generator. It is not safe for concurrent use; the
// kernel is single-threaded by design and each system owns its own Source.
type Source struct {
	seed  uint64
	state uint64
}

// New creates a Source from the given seed.
func New(seed uint64) *Source {
	return &Source{seed: seed, state: seed}
}

// Seed returns the seed this Source was created with. Forked substreams are
// derived from this value, not from the current state.
func (s *Source) Seed() uint64 {
	return s.seed
}

// Uint64 returns the next value in the stream.
func (s *Source) Uint64() uint64 {
	s.state += gamma
	z := s.state
	z = (z ^ (z >> 30)) * mix1
	z = (z ^ (z >> 27)) * mix2
	return z ^ (z >> 31)
}

// Float64 returns the next value as a float in [0, 1).
func (s *Source) Float64() float64 {
	return float64(s.Uint64()>>11) / (1 << 53)
}

// Range returns an int in [0, n). It panics if n <= 0.
func (s *Source) Range(n int) int {
	if n <= 0 {
		panic("rng: Range called with non-positive n")
	}
	return int(s.Uint64() % uint64(n))
}

// IntBetween returns an int in [min, max], bounds inclusive. It panics if
// max < min.
func (s *Source) IntBetween(min, max int) int {
	if max < min {
		panic("rng: IntBetween called with max < min")
	}
	return min + s.Range(max-min+1)
}

// Chance returns true with probability p. p <= 0 never fires, p >= 1 always
// fires.
func (s *Source) Chance(p float64) bool {
	return s.Float64() < p
}

// Perm returns a pseudo-random permutation of the integers [0, n).
func (s *Source) Perm(n int) []int {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := s.Range(i + 1)
		p[i], p[j] = p[j], p[i]
	}
	return p
}

// Fork derives a new independent Source from this Source's seed and the given
// name. The same (seed, name) pair always yields the same substream, no
// matter how many values have been drawn from this Source or any sibling.
// Differently-named forks are uncorrelated.
func (s *Source) Fork(name string) *Source {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	child := finalize(s.seed + gamma*h.Sum64())
	return New(child)
}

// finalize runs the splitmix64 output function once to decorrelate related
// seed values.
func finalize(z uint64) uint64 {
	z = (z ^ (z >> 30)) * mix1
	z = (z ^ (z >> 27)) * mix2
	return z ^ (z >> 31)
}

// Shuffle returns a new slice containing the elements of in, permuted
// pseudo-randomly. The input slice is not modified.
func Shuffle[T any](s *Source, in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	for i := len(out) - 1; i > 0; i-- {
		j := s.Range(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Pick returns a pseudo-randomly chosen element of in. It panics on an empty
// slice.
func Pick[T any](s *Source, in []T) T {
	return in[s.Range(len(in))]
}
