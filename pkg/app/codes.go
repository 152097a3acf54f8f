package app

import (
	"errors"

	"github.com/blockberries/lottoberry/pkg/abi"
	"github.com/blockberries/lottoberry/pkg/auth"
	"github.com/blockberries/lottoberry/pkg/bank"
	"github.com/blockberries/lottoberry/pkg/lottery"
	"github.com/blockberries/lottoberry/pkg/types"
)

// Lottery result codes.
const (
	CodeNotEnoughCurrency    abi.ResultCode = abi.CodeAppErrorStart + iota // 100
	CodeAlreadyParticipating                                               // 101
	CodeCannotAddParticipant                                               // 102
	CodeInvalidLotteryParams                                               // 103
)

// Bank result codes.
const (
	CodeInsufficientBalance abi.ResultCode = abi.CodeAppErrorStart + 10 + iota // 110
	CodeKeepAlive                                                              // 111
	CodeExistentialDeposit                                                     // 112
	CodeOverflow                                                               // 113
	CodeInvalidDeposit                                                         // 114
)

// ResultCodeOf maps a call error to its result code.
func ResultCodeOf(err error) abi.ResultCode {
	switch {
	case err == nil:
		return abi.CodeOK

	case errors.Is(err, lottery.ErrNotEnoughCurrency):
		return CodeNotEnoughCurrency
	case errors.Is(err, lottery.ErrAlreadyParticipating):
		return CodeAlreadyParticipating
	case errors.Is(err, lottery.ErrCannotAddParticipant):
		return CodeCannotAddParticipant
	case errors.Is(err, lottery.ErrInvalidParams):
		return CodeInvalidLotteryParams

	case errors.Is(err, bank.ErrInsufficientBalance):
		return CodeInsufficientBalance
	case errors.Is(err, bank.ErrKeepAlive):
		return CodeKeepAlive
	case errors.Is(err, bank.ErrExistentialDeposit):
		return CodeExistentialDeposit
	case errors.Is(err, bank.ErrOverflow):
		return CodeOverflow
	case errors.Is(err, bank.ErrInvalidDeposit):
		return CodeInvalidDeposit

	case errors.Is(err, auth.ErrBadOrigin):
		return abi.CodeNotAuthorized
	case errors.Is(err, types.ErrInvalidSequence):
		return abi.CodeInvalidNonce
	case errors.Is(err, abi.ErrEmptyTx),
		errors.Is(err, types.ErrInvalidTx),
		errors.Is(err, types.ErrInvalidSignature),
		errors.Is(err, types.ErrInvalidPubKey),
		errors.Is(err, types.ErrInvalidAccount),
		errors.Is(err, types.ErrUnknownCall):
		return abi.CodeInvalidTx
	case errors.Is(err, types.ErrCorruptState),
		errors.Is(err, ErrNoBlock):
		return abi.CodeInvalidState
	case errors.Is(err, types.ErrKeyNotFound),
		errors.Is(err, ErrUnknownQueryPath),
		errors.Is(err, ErrVersionUnavailable):
		return abi.CodeNotFound

	default:
		return abi.CodeUnknownError
	}
}
