package lottery

import (
	"encoding/binary"
	"fmt"
)

// MinSeedSize is the number of seed bytes a draw consumes.
const MinSeedSize = 4

// DecodeRandom reads the little-endian uint32 at the start of seed.
// A shorter seed means the randomness source is broken, so it panics.
func DecodeRandom(seed []byte) uint32 {
	if len(seed) < MinSeedSize {
		panic(fmt.Sprintf("lottery: seed must be at least %d bytes, got %d", MinSeedSize, len(seed)))
	}
	return binary.LittleEndian.Uint32(seed[:MinSeedSize])
}

// WinnerIndex maps random onto [0, participants).
// Plain modulo: for n participants the low 2^32 mod n indices are favored by
// at most one part in 2^32/n.
func WinnerIndex(random uint32, participants int) int {
	if participants <= 0 {
		panic(fmt.Sprintf("lottery: winner index over %d participants", participants))
	}
	return int(uint64(random) % uint64(participants))
}
