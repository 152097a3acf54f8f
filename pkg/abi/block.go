package abi

import "time"

// BlockHeader contains block metadata passed to BeginBlock.
type BlockHeader struct {
	// Height is the block height (1-indexed).
	Height uint64

	// Time is the block timestamp.
	Time time.Time

	// PrevHash is the hash of the previous block.
	PrevHash []byte
}

// EndBlockResult contains the application's response to EndBlock.
type EndBlockResult struct {
	// Events are block-level events emitted during EndBlock.
	Events []Event
}

// CommitResult contains the result of committing application state.
type CommitResult struct {
	// AppHash is the new application state root hash.
	AppHash []byte

	// Height is the height that was committed.
	Height uint64

	// Error is set when the commit could not be persisted.
	Error error
}
