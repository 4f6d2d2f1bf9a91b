// Package rng provides the deterministic random source used by every
// stochastic decision in the simulation. It wraps a xoshiro256++
// generator behind math/rand.Source64 so call sites can use the
// familiar *rand.Rand API while staying fully reproducible per seed.
package rng

import "math/rand"

// Source is a xoshiro256++ generator. It implements rand.Source64.
type Source struct {
	s [4]uint64
}

// splitmix64 expands a single seed into well-distributed state words.
func splitmix64(x *uint64) uint64 {
	*x += 0x9e3779b97f4a7c15
	z := *x
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// NewSource creates a source seeded from a single int64.
func NewSource(seed int64) *Source {
	s := &Source{}
	s.Seed(seed)
	return s
}

// NewRand returns a *rand.Rand over a fresh xoshiro source.
func NewRand(seed int64) *rand.Rand {
	return rand.New(NewSource(seed))
}

// WorkerSeed derives an independent stream seed for a worker index.
// Mixing through splitmix keeps adjacent worker streams uncorrelated.
func WorkerSeed(base int64, worker int) int64 {
	x := uint64(base)
	m := splitmix64(&x) ^ (uint64(worker+1) * 0x9e3779b97f4a7c15)
	return int64(splitmix64(&m))
}

// Seed resets the generator state from a single seed value.
func (s *Source) Seed(seed int64) {
	x := uint64(seed)
	for i := range s.s {
		s.s[i] = splitmix64(&x)
	}
}

func rotl(x uint64, k uint) uint64 {
	return (x << k) | (x >> (64 - k))
}

// Uint64 returns the next value in the xoshiro256++ sequence.
func (s *Source) Uint64() uint64 {
	result := rotl(s.s[0]+s.s[3], 23) + s.s[0]

	t := s.s[1] << 17
	s.s[2] ^= s.s[0]
	s.s[3] ^= s.s[1]
	s.s[1] ^= s.s[2]
	s.s[0] ^= s.s[3]
	s.s[2] ^= t
	s.s[3] = rotl(s.s[3], 45)

	return result
}

// Int63 satisfies rand.Source.
func (s *Source) Int63() int64 {
	return int64(s.Uint64() >> 1)
}
