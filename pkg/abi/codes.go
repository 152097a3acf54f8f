package abi

import "fmt"

// ResultCode represents the result of transaction processing.
// Code 0 indicates success; all other codes indicate errors.
// Codes 1-99 are reserved for framework use.
// Codes 100-999 are available for application-specific errors.
type ResultCode uint32

const (
	// CodeOK indicates the operation succeeded.
	CodeOK ResultCode = 0

	// Framework error codes (1-99)

	// CodeUnknownError indicates an unspecified error.
	CodeUnknownError ResultCode = 1

	// CodeInvalidTx indicates the transaction is malformed or invalid.
	CodeInvalidTx ResultCode = 2

	// CodeInvalidNonce indicates the sequence is invalid (too low or too high).
	CodeInvalidNonce ResultCode = 4

	// CodeNotAuthorized indicates the operation is not permitted.
	CodeNotAuthorized ResultCode = 6

	// CodeInvalidState indicates the state is invalid for this operation.
	CodeInvalidState ResultCode = 7

	// CodeNotFound indicates the requested resource was not found.
	CodeNotFound ResultCode = 9

	// Application error codes start at 100
	CodeAppErrorStart ResultCode = 100
)

// IsOK returns true if the code indicates success.
func (c ResultCode) IsOK() bool {
	return c == CodeOK
}

// IsError returns true if the code indicates an error.
func (c ResultCode) IsError() bool {
	return c != CodeOK
}

// IsAppError returns true if this is an application-specific error code.
func (c ResultCode) IsAppError() bool {
	return c >= CodeAppErrorStart
}

// String returns a human-readable description of the code.
func (c ResultCode) String() string {
	switch c {
	case CodeOK:
		return "OK"
	case CodeUnknownError:
		return "UnknownError"
	case CodeInvalidTx:
		return "InvalidTx"
	case CodeInvalidNonce:
		return "InvalidNonce"
	case CodeNotAuthorized:
		return "NotAuthorized"
	case CodeInvalidState:
		return "InvalidState"
	case CodeNotFound:
		return "NotFound"
	default:
		if c.IsAppError() {
			return fmt.Sprintf("AppError(%d)", c)
		}
		return fmt.Sprintf("Unknown(%d)", c)
	}
}
