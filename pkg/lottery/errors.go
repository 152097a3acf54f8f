package lottery

import (
	"errors"

	"github.com/blockberries/lottoberry/pkg/auth"
)

// Lottery errors. All of them abort the call with no state change.
var (
	// ErrNotEnoughCurrency is returned when the caller cannot afford the entry fee.
	ErrNotEnoughCurrency = errors.New("not enough currency to enter")

	// ErrAlreadyParticipating is returned when the caller already entered the current round.
	ErrAlreadyParticipating = errors.New("account already participating")

	// ErrCannotAddParticipant is returned when the round is at capacity.
	ErrCannotAddParticipant = errors.New("cannot add participant")

	// ErrBadOrigin is returned when the call's origin lacks the required authority.
	ErrBadOrigin = auth.ErrBadOrigin

	// ErrInvalidParams is returned when lottery parameters are unusable.
	ErrInvalidParams = errors.New("invalid lottery parameters")
)
