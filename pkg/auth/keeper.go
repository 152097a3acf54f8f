package auth

import (
	"fmt"

	"github.com/blockberries/lottoberry/pkg/statestore"
	"github.com/blockberries/lottoberry/pkg/types"
)

var (
	sequencePrefix = []byte("auth/seq/")
	sudoKey        = []byte("auth/sudo")
)

// SequenceKey returns the state key holding an account's sequence.
func SequenceKey(account types.AccountID) []byte {
	key := make([]byte, 0, len(sequencePrefix)+len(account))
	key = append(key, sequencePrefix...)
	return append(key, account...)
}

// SudoKey returns the state key holding the sudo account.
func SudoKey() []byte {
	return sudoKey
}

// Keeper reads and writes auth state in a KVStore.
type Keeper struct {
	store statestore.KVStore
}

// NewKeeper creates a keeper over store.
func NewKeeper(store statestore.KVStore) *Keeper {
	return &Keeper{store: store}
}

// Sequence returns the next expected sequence for account.
func (k *Keeper) Sequence(account types.AccountID) (uint64, error) {
	v, err := k.store.Get(SequenceKey(account))
	if err != nil {
		return 0, fmt.Errorf("reading sequence: %w", err)
	}
	seq, err := types.DecodeUint64(v)
	if err != nil {
		return 0, fmt.Errorf("decoding sequence of %s: %w", account, err)
	}
	return seq, nil
}

// CheckSequence returns types.ErrInvalidSequence unless seq is the next expected sequence.
func (k *Keeper) CheckSequence(account types.AccountID, seq uint64) error {
	want, err := k.Sequence(account)
	if err != nil {
		return err
	}
	if seq != want {
		return fmt.Errorf("%w: expected %d, got %d", types.ErrInvalidSequence, want, seq)
	}
	return nil
}

// IncrementSequence advances account's sequence by one.
func (k *Keeper) IncrementSequence(account types.AccountID) error {
	seq, err := k.Sequence(account)
	if err != nil {
		return err
	}
	if err := k.store.Set(SequenceKey(account), types.EncodeUint64(seq+1)); err != nil {
		return fmt.Errorf("writing sequence: %w", err)
	}
	return nil
}

// SetSudo records the account allowed to act as root.
func (k *Keeper) SetSudo(account types.AccountID) error {
	if err := account.Validate(); err != nil {
		return types.WrapValidationError(err, "sudo")
	}
	if err := k.store.Set(sudoKey, []byte(account)); err != nil {
		return fmt.Errorf("writing sudo: %w", err)
	}
	return nil
}

// Sudo returns the sudo account, or "" if none is configured.
func (k *Keeper) Sudo() (types.AccountID, error) {
	v, err := k.store.Get(sudoKey)
	if err != nil {
		return "", fmt.Errorf("reading sudo: %w", err)
	}
	return types.AccountID(v), nil
}

// ResolveOrigin returns the origin a call from signer executes with.
// Requesting root succeeds only for the sudo account.
func (k *Keeper) ResolveOrigin(signer types.AccountID, wantRoot bool) (Origin, error) {
	if !wantRoot {
		return Signed(signer), nil
	}
	sudo, err := k.Sudo()
	if err != nil {
		return None(), err
	}
	if sudo == "" || sudo != signer {
		return None(), fmt.Errorf("%w: %s is not the sudo account", ErrBadOrigin, signer)
	}
	return Root(), nil
}
