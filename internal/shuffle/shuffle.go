// Package shuffle provides uniform random permutations for question and
// option ordering.
package shuffle

import "math/rand"

// Slice returns a uniformly shuffled copy of in using Fisher-Yates.
// The input is never mutated; length 0 and 1 inputs come back unchanged.
func Slice[T any](r *rand.Rand, in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	for i := len(out) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
