// Package abi defines the contract between the block-driving host and the
// lottery application.
package abi

import "context"

// Application is the interface the lottery state machine implements.
//
// Methods are called in a specific order during block execution:
//
//  1. BeginBlock - Called once at the start of block processing
//  2. ExecuteTx - Called for each transaction in the block (in order)
//  3. EndBlock - Called once after all transactions are processed
//  4. Commit - Called to finalize and persist state changes
//
// CheckTx and Query can be called at any time and may run concurrently.
type Application interface {
	// Info returns metadata about the application.
	// Called on startup to verify application state matches the host.
	Info() ApplicationInfo

	// InitChain is called once at genesis to initialize the application.
	InitChain(genesis *Genesis) error

	// CheckTx validates a transaction without changing state.
	// CheckTx may be called concurrently from multiple goroutines.
	CheckTx(ctx context.Context, tx *Transaction) *TxCheckResult

	// BeginBlock is called at the start of block processing.
	BeginBlock(ctx context.Context, header *BlockHeader) error

	// ExecuteTx executes a transaction during block processing.
	// Transactions are applied strictly one after another.
	ExecuteTx(ctx context.Context, tx *Transaction) *TxExecResult

	// EndBlock is called after all transactions have been processed.
	EndBlock(ctx context.Context) *EndBlockResult

	// Commit finalizes the block and persists state changes.
	// Returns the new application state hash.
	Commit(ctx context.Context) *CommitResult

	// Query reads application state.
	// Query may be called concurrently from multiple goroutines.
	Query(ctx context.Context, req *QueryRequest) *QueryResponse
}
