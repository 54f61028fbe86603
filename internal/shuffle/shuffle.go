// Package shuffle provides a deterministic, seed-driven permutation so the
// same question always shows its options in the same order.
package shuffle

import (
	"hash/fnv"
)

// 64-bit LCG constants (Knuth, MMIX).
const (
	lcgMultiplier = 6364136223846793005
	lcgIncrement  = 1442695040888963407
)

// Seeded returns a permutation of items determined entirely by seed.
// The input slice is not modified.
func Seeded[T any](items []T, seed string) []T {
	out := make([]T, len(items))
	copy(out, items)
	if len(out) < 2 {
		return out
	}

	state := mix(hashSeed(seed))
	for i := len(out) - 1; i > 0; i-- {
		state = state*lcgMultiplier + lcgIncrement
		// Low LCG bits have short periods; draw from the top 32.
		j := int((state >> 32) % uint64(i+1))
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func hashSeed(seed string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(seed))
	return h.Sum64()
}

// mix spreads nearby hashes (e.g. "q-1", "q-2") across the state space.
func mix(z uint64) uint64 {
	z = (z ^ (z >> 33)) * 0xff51afd7ed558ccd
	z = (z ^ (z >> 33)) * 0xc4ceb9fe1a85ec53
	return z ^ (z >> 33)
}
