package types

import (
	"errors"
	"fmt"
)

// WrapValidationError wraps a validation error with field context.
func WrapValidationError(err error, field string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("invalid %s: %w", field, err)
}

// WrapCallError wraps an error with the name of the call that produced it.
func WrapCallError(err error, call string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", call, err)
}

// Account-related errors.
var (
	// ErrInvalidAccount is returned when an account identifier is malformed.
	ErrInvalidAccount = errors.New("invalid account identifier")

	// ErrInvalidPubKey is returned when a public key has the wrong length.
	ErrInvalidPubKey = errors.New("invalid public key")
)

// Transaction-related errors.
var (
	// ErrInvalidTx is returned when a transaction cannot be decoded or fails basic validation.
	ErrInvalidTx = errors.New("invalid transaction")

	// ErrInvalidSignature is returned when a transaction signature does not verify.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrInvalidSequence is returned when a transaction carries an unexpected sequence number.
	ErrInvalidSequence = errors.New("invalid sequence")

	// ErrUnknownCall is returned when a transaction names a call the application does not know.
	ErrUnknownCall = errors.New("unknown call")
)

// State-related errors.
var (
	// ErrKeyNotFound is returned when a key cannot be found in the state store.
	ErrKeyNotFound = errors.New("key not found")

	// ErrStoreClosed is returned when operations are attempted on a closed store.
	ErrStoreClosed = errors.New("store is closed")

	// ErrInvalidProof is returned when a merkle proof is invalid.
	ErrInvalidProof = errors.New("invalid proof")

	// ErrCorruptState is returned when a stored value cannot be decoded.
	ErrCorruptState = errors.New("corrupt state")
)

// Genesis-related errors.
var (
	// ErrInvalidGenesis is returned when the genesis application state is malformed.
	ErrInvalidGenesis = errors.New("invalid genesis")

	// ErrAlreadyInitialized is returned when InitChain runs against a non-empty state.
	ErrAlreadyInitialized = errors.New("chain already initialized")
)
