package attempt

import (
	"math/rand/v2"
	"sync"
)

// RNG returns successive uniform values in [0,1).
type RNG func() float64

// DefaultRNG draws from the runtime's shared generator.
var DefaultRNG RNG = rand.Float64

// SeededRNG returns a deterministic generator for replayable draws. It is
// safe for concurrent use; draws from several goroutines interleave.
func SeededRNG(seed uint64) RNG {
	var mu sync.Mutex
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return func() float64 {
		mu.Lock()
		defer mu.Unlock()
		return r.Float64()
	}
}

// Shuffle returns a uniformly permuted copy of items. items is not modified.
func Shuffle[T any](items []T, rng RNG) []T {
	out := make([]T, len(items))
	copy(out, items)
	for i := len(out) - 1; i > 0; i-- {
		j := int(rng() * float64(i+1))
		if j > i {
			j = i
		}
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Sample draws k distinct elements of pool without replacement. It reports
// false instead of returning a short result when pool holds fewer than k.
func Sample[T any](pool []T, k int, rng RNG) ([]T, bool) {
	if k < 0 || k > len(pool) {
		return nil, false
	}
	if k == 0 {
		return []T{}, true
	}
	return Shuffle(pool, rng)[:k:k], true
}
