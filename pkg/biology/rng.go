package biology

import "hash/fnv"

// seed64 derives a deterministic uint64 seed from (batch_number, day,
// event_kind), per the spec's explicit design rule (§9): "pass the seed
// through the Biology Kernel function signatures rather than relying on a
// global PRNG". FNV-1a has no run-to-run random seeding (unlike
// hash/maphash), which is required for R2 (byte-identical reruns).
func seed64(batchNumber string, day int, eventKind string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(batchNumber))
	_, _ = h.Write([]byte{'|'})
	_, _ = h.Write([]byte(itoa(day)))
	_, _ = h.Write([]byte{'|'})
	_, _ = h.Write([]byte(eventKind))
	return h.Sum64()
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// splitMix64 is a small, fast, well-distributed PRNG suitable for
// deterministic per-call noise. It carries no shared/global state: each
// Rand is constructed fresh from a seed derived from (batch, day, kind).
type splitMix64 struct {
	state uint64
}

func newSplitMix64(seed uint64) *splitMix64 {
	return &splitMix64{state: seed}
}

// Next returns the next uint64 in the sequence.
func (s *splitMix64) Next() uint64 {
	s.state += 0x9E3779B97F4A7C15
	z := s.state
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}

// Float64 returns a deterministic pseudo-random value in [0, 1).
func (s *splitMix64) Float64() float64 {
	return float64(s.Next()>>11) / float64(1<<53)
}

// NewDeterministicRNG builds a seeded generator keyed by
// (batch_number, day, event_kind), per §9.
func NewDeterministicRNG(batchNumber string, day int, eventKind string) *splitMix64 {
	return newSplitMix64(seed64(batchNumber, day, eventKind))
}
