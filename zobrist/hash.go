package zobrist

import (
	"lukechampine.com/frand"
)

const bignum = 1<<63 - 2

// Zobrist holds one random bitstring per position feature. A position's
// key is the XOR of the bitstrings of the features present in it, so
// making or unmaking a move only toggles the features it changes.
// https://en.wikipedia.org/wiki/Zobrist_hashing
type Zobrist struct {
	features []uint64
}

func (z *Zobrist) Initialize(numFeatures int) {
	if numFeatures < 0 {
		numFeatures = 0
	}
	z.features = make([]uint64, numFeatures)
	for i := range z.features {
		// never 0, so that every feature changes the key.
		z.features[i] = frand.Uint64n(bignum) + 1
	}
}

func (z *Zobrist) NumFeatures() int {
	return len(z.features)
}

func (z *Zobrist) Feature(i int) uint64 {
	return z.features[i]
}

// Hash computes a key from scratch.
func (z *Zobrist) Hash(features []int) uint64 {
	key := uint64(0)
	for _, f := range features {
		key ^= z.features[f]
	}
	return key
}

// Toggle adds the feature to key if it is absent and removes it if it is
// present.
func (z *Zobrist) Toggle(key uint64, feature int) uint64 {
	return key ^ z.features[feature]
}
