// Package randomness supplies the seeds round settlement draws winners from.
package randomness

import (
	"encoding/binary"
	"fmt"
	"sync"

	"go.dedis.ch/kyber/v4/xof/blake2xb"

	"github.com/blockberries/lottoberry/pkg/abi"
)

// SeedSize is the length of seeds produced by BlockHashSource.
const SeedSize = 32

// Source returns a seed for a subject nonce.
// Implementations must be deterministic for a given chain state.
type Source interface {
	Seed(nonce uint64) []byte
}

// SourceFunc adapts a function to Source.
type SourceFunc func(nonce uint64) []byte

// Seed calls f.
func (f SourceFunc) Seed(nonce uint64) []byte {
	return f(nonce)
}

// Fixed returns a Source that always yields a copy of seed.
func Fixed(seed []byte) Source {
	return SourceFunc(func(uint64) []byte {
		out := make([]byte, len(seed))
		copy(out, seed)
		return out
	})
}

// BlockHashSource derives seeds from the block being executed.
// Each seed is the blake2xb output over the domain, the parent block hash,
// the block height and the nonce.
type BlockHashSource struct {
	domain []byte

	mu       sync.RWMutex
	prevHash []byte
	height   uint64
}

// NewBlockHashSource creates a source whose seeds are separated by domain.
func NewBlockHashSource(domain string) *BlockHashSource {
	return &BlockHashSource{domain: []byte(domain)}
}

// Observe records the header of the block about to be executed.
func (s *BlockHashSource) Observe(header *abi.BlockHeader) {
	if header == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prevHash = append([]byte(nil), header.PrevHash...)
	s.height = header.Height
}

// Seed returns SeedSize bytes for nonce.
func (s *BlockHashSource) Seed(nonce uint64) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var buf [8]byte
	x := blake2xb.New(s.domain)
	binary.BigEndian.PutUint64(buf[:], uint64(len(s.prevHash)))
	x.Write(buf[:])
	x.Write(s.prevHash)
	binary.BigEndian.PutUint64(buf[:], s.height)
	x.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], nonce)
	x.Write(buf[:])

	seed := make([]byte, SeedSize)
	if _, err := x.Read(seed); err != nil {
		panic(fmt.Sprintf("randomness: reading blake2xb output: %v", err))
	}
	return seed
}
