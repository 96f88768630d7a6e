// Package seedrand provides a deterministic pseudo-random source keyed by an
// arbitrary string. The same seed always replays the same sequence, across
// processes and across implementations, so every step below is bit-exact.
package seedrand

const (
	lcgMultiplier = 1664525
	lcgIncrement  = 1013904223
	modulus       = 1 << 32
)

// Source is a linear congruential generator seeded from a polynomial string
// hash. A Source is not safe for concurrent use; create one per computation.
type Source struct {
	state int64
}

// New returns a Source whose state is the 31-based polynomial hash of seed,
// computed over runes with 32-bit signed wraparound.
func New(seed string) *Source {
	return &Source{state: int64(Hash(seed))}
}

// Hash returns the 32-bit signed polynomial hash used to seed a Source.
func Hash(seed string) int32 {
	var acc int32
	for _, r := range seed {
		acc = acc*31 + int32(r)
	}
	return acc
}

// Float64 advances the generator and returns a value in [0, 1).
//
// The remainder is sign-preserving (Go's % truncates toward zero), so a
// negative hash yields negative states until the sequence turns positive.
// The magnitude is what gets reported.
func (s *Source) Float64() float64 {
	s.state = (s.state*lcgMultiplier + lcgIncrement) % modulus
	v := s.state
	if v < 0 {
		v = -v
	}
	return float64(v) / modulus
}
