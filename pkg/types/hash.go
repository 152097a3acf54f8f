package types

import (
	"crypto/sha256"
)

const (
	// HashSize is the size of a SHA-256 hash in bytes.
	HashSize = sha256.Size // 32 bytes
)

// Hash is a SHA-256 digest.
type Hash []byte

// HashBytes computes the SHA-256 hash of arbitrary bytes.
func HashBytes(data []byte) Hash {
	if data == nil {
		return nil
	}
	h := sha256.Sum256(data)
	return h[:]
}

// HashConcat computes the SHA-256 hash of the concatenation of the given parts.
func HashConcat(parts ...[]byte) Hash {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}
