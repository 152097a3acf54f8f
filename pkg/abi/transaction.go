package abi

import (
	"crypto/sha256"
	"errors"
)

// ErrEmptyTx is returned when a transaction carries no data.
var ErrEmptyTx = errors.New("transaction data is empty")

// Transaction is an opaque transaction delivered to the application.
// Only the application interprets Data.
type Transaction struct {
	// Hash is the SHA-256 hash of Data. Computed automatically if empty.
	Hash []byte

	// Data is the raw transaction bytes.
	Data []byte
}

// ComputeHash computes and sets the transaction hash if not already set.
func (tx *Transaction) ComputeHash() []byte {
	if len(tx.Hash) == 0 && len(tx.Data) > 0 {
		h := sha256.Sum256(tx.Data)
		tx.Hash = h[:]
	}
	return tx.Hash
}

// ValidateBasic performs basic validation of the transaction structure.
func (tx *Transaction) ValidateBasic() error {
	if tx == nil || len(tx.Data) == 0 {
		return ErrEmptyTx
	}
	return nil
}

// Size returns the size of the transaction in bytes.
func (tx *Transaction) Size() int {
	return len(tx.Data)
}

// TxCheckResult is returned from Application.CheckTx.
type TxCheckResult struct {
	// Code indicates success (0) or failure (non-zero).
	Code ResultCode

	// Error provides a human-readable error message if Code != 0.
	Error error

	// Sender is the extracted sender account.
	Sender []byte

	// Nonce is the extracted sequence number.
	Nonce uint64
}

// IsOK returns true if the check succeeded.
func (r *TxCheckResult) IsOK() bool {
	return r != nil && r.Code.IsOK()
}

// TxExecResult is returned from Application.ExecuteTx during block execution.
type TxExecResult struct {
	// Code indicates success (0) or failure (non-zero).
	Code ResultCode

	// Error provides a human-readable error message if Code != 0.
	Error error

	// Events are the events emitted during execution.
	Events []Event

	// Data is optional return data from execution.
	Data []byte
}

// IsOK returns true if the execution succeeded.
func (r *TxExecResult) IsOK() bool {
	return r != nil && r.Code.IsOK()
}
