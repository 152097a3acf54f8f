// Package types provides common types used throughout lottoberry.
package types

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strconv"
)

// AddressSize is the size of an account address in bytes.
const AddressSize = 20

// moduleAccountPrefix separates module account derivation from key-derived addresses.
const moduleAccountPrefix = "modl/"

// AccountID identifies a ledger account. It is the lowercase hex encoding
// of a 20-byte address.
type AccountID string

// AccountFromPubKey derives the account identifier for an ed25519 public key.
// The address is the first 20 bytes of SHA-256(pubkey).
func AccountFromPubKey(pub ed25519.PublicKey) (AccountID, error) {
	if len(pub) != ed25519.PublicKeySize {
		return "", fmt.Errorf("%w: got %d bytes", ErrInvalidPubKey, len(pub))
	}
	h := HashBytes(pub)
	return AccountID(hex.EncodeToString(h[:AddressSize])), nil
}

// ModuleAccount derives the account owned by the module with the given id.
// No private key exists for a module account.
func ModuleAccount(moduleID string) AccountID {
	h := HashBytes([]byte(moduleAccountPrefix + moduleID))
	return AccountID(hex.EncodeToString(h[:AddressSize]))
}

// ParseAccountID validates and normalizes a hex account identifier.
func ParseAccountID(s string) (AccountID, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAccount, err)
	}
	if len(b) != AddressSize {
		return "", fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidAccount, len(b), AddressSize)
	}
	return AccountID(hex.EncodeToString(b)), nil
}

// Validate checks that the identifier is a well-formed address.
func (a AccountID) Validate() error {
	_, err := ParseAccountID(string(a))
	return err
}

// Bytes returns the raw address bytes. Returns nil for a malformed identifier.
func (a AccountID) Bytes() []byte {
	b, err := hex.DecodeString(string(a))
	if err != nil {
		return nil
	}
	return b
}

// String returns the hex form of the identifier.
func (a AccountID) String() string {
	return string(a)
}

// Amount is a balance or transfer value in the smallest currency unit.
type Amount uint64

// String returns the decimal form of the amount.
func (a Amount) String() string {
	return strconv.FormatUint(uint64(a), 10)
}
