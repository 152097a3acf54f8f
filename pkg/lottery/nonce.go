package lottery

import (
	"fmt"

	"github.com/blockberries/lottoberry/pkg/statestore"
	"github.com/blockberries/lottoberry/pkg/types"
)

var nonceKey = []byte("lottery/nonce")

// NonceKey returns the state key holding the randomness nonce.
func NonceKey() []byte {
	return nonceKey
}

// NonceCounter is the persisted counter that makes every settlement draw use
// a fresh randomness subject. It is never reset.
type NonceCounter struct {
	store statestore.KVStore
}

// NewNonceCounter creates a counter over store.
func NewNonceCounter(store statestore.KVStore) *NonceCounter {
	return &NonceCounter{store: store}
}

// Current returns the value the next ReadAndIncrement will return.
func (c *NonceCounter) Current() (uint64, error) {
	v, err := c.store.Get(nonceKey)
	if err != nil {
		return 0, fmt.Errorf("reading nonce: %w", err)
	}
	n, err := types.DecodeUint64(v)
	if err != nil {
		return 0, fmt.Errorf("decoding nonce: %w", err)
	}
	return n, nil
}

// ReadAndIncrement returns the current value and persists value+1.
func (c *NonceCounter) ReadAndIncrement() (uint64, error) {
	n, err := c.Current()
	if err != nil {
		return 0, err
	}
	if err := c.store.Set(nonceKey, types.EncodeUint64(n+1)); err != nil {
		return 0, fmt.Errorf("writing nonce: %w", err)
	}
	return n, nil
}
