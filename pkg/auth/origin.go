// Package auth resolves call origins and tracks per-account sequences.
package auth

import (
	"errors"
	"fmt"

	"github.com/blockberries/lottoberry/pkg/types"
)

// ErrBadOrigin is returned when a call's origin does not carry the required authority.
var ErrBadOrigin = errors.New("bad origin")

// OriginKind distinguishes who is behind a call.
type OriginKind uint8

const (
	// OriginNone is an unsigned call.
	OriginNone OriginKind = iota

	// OriginSigned is a call signed by an account.
	OriginSigned

	// OriginRoot is a call carrying the privileged root authority.
	OriginRoot
)

// String returns the name of the origin kind.
func (k OriginKind) String() string {
	switch k {
	case OriginSigned:
		return "Signed"
	case OriginRoot:
		return "Root"
	default:
		return "None"
	}
}

// Origin is the authority a call executes with.
type Origin struct {
	Kind    OriginKind
	Account types.AccountID
}

// Signed returns an origin for a call signed by account.
func Signed(account types.AccountID) Origin {
	return Origin{Kind: OriginSigned, Account: account}
}

// Root returns the privileged root origin.
func Root() Origin {
	return Origin{Kind: OriginRoot}
}

// None returns the unsigned origin.
func None() Origin {
	return Origin{}
}

// String returns a printable form of the origin.
func (o Origin) String() string {
	if o.Kind == OriginSigned {
		return fmt.Sprintf("Signed(%s)", o.Account)
	}
	return o.Kind.String()
}

// EnsureSigned returns the signing account, or ErrBadOrigin if the origin is not signed.
func EnsureSigned(o Origin) (types.AccountID, error) {
	if o.Kind != OriginSigned || o.Account == "" {
		return "", fmt.Errorf("%w: expected signed origin, got %s", ErrBadOrigin, o)
	}
	return o.Account, nil
}

// EnsureRoot returns ErrBadOrigin unless o is the root origin.
func EnsureRoot(o Origin) error {
	if o.Kind != OriginRoot {
		return fmt.Errorf("%w: expected root origin, got %s", ErrBadOrigin, o)
	}
	return nil
}
