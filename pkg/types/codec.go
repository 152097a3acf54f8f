package types

import (
	"encoding/binary"
	"fmt"
)

// EncodeUint64 encodes v as 8 big-endian bytes.
func EncodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// DecodeUint64 decodes a stored big-endian counter. A nil value decodes to zero.
func DecodeUint64(b []byte) (uint64, error) {
	if b == nil {
		return 0, nil
	}
	if len(b) != 8 {
		return 0, fmt.Errorf("%w: expected 8 bytes, got %d", ErrCorruptState, len(b))
	}
	return binary.BigEndian.Uint64(b), nil
}
