package lottery

import (
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"

	"github.com/blockberries/lottoberry/pkg/statestore"
	"github.com/blockberries/lottoberry/pkg/types"
)

var participantsKey = []byte("lottery/participants")

// ParticipantsKey returns the state key holding the current round's participants.
func ParticipantsKey() []byte {
	return participantsKey
}

type participantsRecord struct {
	Accounts []string `cramberry:"1"`
}

// Registry is the bounded, ordered list of accounts in the current round.
// The list is absent between rounds; it never holds duplicates.
type Registry struct {
	store    statestore.KVStore
	capacity int
}

// NewRegistry creates a registry over store holding at most capacity accounts.
func NewRegistry(store statestore.KVStore, capacity int) *Registry {
	return &Registry{store: store, capacity: capacity}
}

// Capacity returns the maximum number of participants.
func (r *Registry) Capacity() int {
	return r.capacity
}

// Participants returns the accounts in entry order. present is false when no
// round is active.
func (r *Registry) Participants() (accounts []types.AccountID, present bool, err error) {
	v, err := r.store.Get(participantsKey)
	if err != nil {
		return nil, false, fmt.Errorf("reading participants: %w", err)
	}
	if v == nil {
		return nil, false, nil
	}

	var rec participantsRecord
	if err := cramberry.Unmarshal(v, &rec); err != nil {
		return nil, false, fmt.Errorf("%w: decoding participants: %v", types.ErrCorruptState, err)
	}

	accounts = make([]types.AccountID, len(rec.Accounts))
	for i, a := range rec.Accounts {
		accounts[i] = types.AccountID(a)
	}
	return accounts, true, nil
}

// Contains reports whether account is in the current round.
func (r *Registry) Contains(account types.AccountID) (bool, error) {
	accounts, _, err := r.Participants()
	if err != nil {
		return false, err
	}
	for _, a := range accounts {
		if a == account {
			return true, nil
		}
	}
	return false, nil
}

// Append adds account to the end of the list, creating it if absent.
func (r *Registry) Append(account types.AccountID) error {
	accounts, _, err := r.Participants()
	if err != nil {
		return err
	}
	if len(accounts) >= r.capacity {
		return fmt.Errorf("%w: round is full with %d participants", ErrCannotAddParticipant, len(accounts))
	}
	for _, a := range accounts {
		if a == account {
			return ErrAlreadyParticipating
		}
	}
	return r.save(append(accounts, account))
}

// Clear removes the list, leaving the registry absent.
func (r *Registry) Clear() error {
	if err := r.store.Delete(participantsKey); err != nil {
		return fmt.Errorf("clearing participants: %w", err)
	}
	return nil
}

func (r *Registry) save(accounts []types.AccountID) error {
	rec := participantsRecord{Accounts: make([]string, len(accounts))}
	for i, a := range accounts {
		rec.Accounts[i] = string(a)
	}
	data, err := cramberry.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("encoding participants: %w", err)
	}
	if err := r.store.Set(participantsKey, data); err != nil {
		return fmt.Errorf("writing participants: %w", err)
	}
	return nil
}
