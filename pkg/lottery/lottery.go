// Package lottery runs round-based lotteries on top of the balance ledger.
//
// Accounts enter the current round by paying a fixed entry fee into a
// module-owned pot. The root authority closes the round, which draws one
// participant with the randomness source, pays them the whole pot and starts
// a fresh round.
package lottery

import (
	"fmt"

	"github.com/blockberries/lottoberry/pkg/abi"
	"github.com/blockberries/lottoberry/pkg/auth"
	"github.com/blockberries/lottoberry/pkg/bank"
	"github.com/blockberries/lottoberry/pkg/logging"
	"github.com/blockberries/lottoberry/pkg/randomness"
	"github.com/blockberries/lottoberry/pkg/statestore"
	"github.com/blockberries/lottoberry/pkg/types"
)

// Params are the immutable lottery parameters.
type Params struct {
	EntryFee           types.Amount
	Capacity           int
	ModuleID           string
	ExistentialDeposit types.Amount
}

// Validate checks the parameters for errors.
func (p Params) Validate() error {
	if p.EntryFee == 0 {
		return fmt.Errorf("%w: entry fee must be positive", ErrInvalidParams)
	}
	if p.Capacity < 1 {
		return fmt.Errorf("%w: capacity must be at least 1", ErrInvalidParams)
	}
	if p.ModuleID == "" {
		return fmt.Errorf("%w: module id cannot be empty", ErrInvalidParams)
	}
	if p.ExistentialDeposit == 0 {
		return fmt.Errorf("%w: existential deposit must be positive", ErrInvalidParams)
	}
	if p.EntryFee < p.ExistentialDeposit {
		return fmt.Errorf("%w: entry fee below existential deposit", ErrInvalidParams)
	}
	return nil
}

// Keeper executes lottery calls against a state store.
// Each call stages its writes in a branch and applies them only if every step succeeds.
type Keeper struct {
	store  statestore.KVStore
	params Params
	pot    types.AccountID
	source randomness.Source
	logger *logging.Logger
}

// NewKeeper creates a lottery keeper over store.
func NewKeeper(store statestore.KVStore, params Params, source randomness.Source) (*Keeper, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if source == nil {
		return nil, fmt.Errorf("%w: randomness source is required", ErrInvalidParams)
	}
	return &Keeper{
		store:  store,
		params: params,
		pot:    types.ModuleAccount(params.ModuleID),
		source: source,
		logger: logging.NewNopLogger(),
	}, nil
}

// SetLogger sets the keeper's logger.
func (k *Keeper) SetLogger(logger *logging.Logger) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	k.logger = logger.WithComponent("lottery")
}

// Params returns the lottery parameters.
func (k *Keeper) Params() Params {
	return k.params
}

// PotAccount returns the module account holding the escrow.
func (k *Keeper) PotAccount() types.AccountID {
	return k.pot
}

// roundState groups the collaborators a call works with, all bound to one branch.
type roundState struct {
	bank     *bank.Keeper
	registry *Registry
	nonce    *NonceCounter
}

func (k *Keeper) stateOver(store statestore.KVStore) (*roundState, error) {
	bk, err := bank.NewKeeper(store, k.params.ExistentialDeposit)
	if err != nil {
		return nil, err
	}
	return &roundState{
		bank:     bk,
		registry: NewRegistry(store, k.params.Capacity),
		nonce:    NewNonceCounter(store),
	}, nil
}

// stage runs fn against a fresh branch and writes the branch only if fn succeeds.
// A panic in fn leaves the store untouched and is not recovered.
func (k *Keeper) stage(fn func(*roundState) ([]abi.Event, error)) ([]abi.Event, error) {
	branch := statestore.NewBranch(k.store)
	st, err := k.stateOver(branch)
	if err != nil {
		return nil, err
	}

	events, err := fn(st)
	if err != nil {
		branch.Discard()
		return nil, err
	}
	if err := branch.Write(); err != nil {
		return nil, fmt.Errorf("applying lottery changes: %w", err)
	}
	return events, nil
}

// Enter adds the signing account to the current round and moves the entry fee into the pot.
func (k *Keeper) Enter(origin auth.Origin) ([]abi.Event, error) {
	caller, err := auth.EnsureSigned(origin)
	if err != nil {
		return nil, err
	}

	return k.stage(func(st *roundState) ([]abi.Event, error) {
		balance, err := st.bank.Balance(caller)
		if err != nil {
			return nil, err
		}
		if balance < k.params.EntryFee {
			return nil, fmt.Errorf("%w: balance %d, entry fee %d", ErrNotEnoughCurrency, balance, k.params.EntryFee)
		}

		participating, err := st.registry.Contains(caller)
		if err != nil {
			return nil, err
		}
		if participating {
			return nil, ErrAlreadyParticipating
		}

		if err := st.registry.Append(caller); err != nil {
			return nil, err
		}
		if err := st.bank.Transfer(caller, k.pot, k.params.EntryFee, bank.KeepAlive); err != nil {
			return nil, fmt.Errorf("paying entry fee: %w", err)
		}

		k.logger.Debug("ticket bought", logging.Account(caller.String()), logging.Amount(uint64(k.params.EntryFee)))
		return []abi.Event{TicketBought(caller)}, nil
	})
}

// CloseRound settles the current round. Only the root origin may call it.
// With no participants it only reports NoParticipants.
func (k *Keeper) CloseRound(origin auth.Origin) ([]abi.Event, error) {
	if err := auth.EnsureRoot(origin); err != nil {
		return nil, err
	}

	return k.stage(func(st *roundState) ([]abi.Event, error) {
		return k.settle(st.registry, st.nonce, st.bank)
	})
}

func (k *Keeper) settle(registry *Registry, nonce *NonceCounter, ledger *bank.Keeper) ([]abi.Event, error) {
	participants, _, err := registry.Participants()
	if err != nil {
		return nil, err
	}
	if len(participants) == 0 {
		k.logger.Info("round closed without participants")
		return []abi.Event{NoParticipants()}, nil
	}

	subject, err := nonce.ReadAndIncrement()
	if err != nil {
		return nil, err
	}
	random := DecodeRandom(k.source.Seed(subject))
	index := WinnerIndex(random, len(participants))
	if index >= len(participants) {
		panic(fmt.Sprintf("lottery: winner index %d out of range for %d participants", index, len(participants)))
	}
	winner := participants[index]

	prize, err := ledger.Balance(k.pot)
	if err != nil {
		return nil, err
	}
	if err := ledger.Transfer(k.pot, winner, prize, bank.AllowDeath); err != nil {
		return nil, fmt.Errorf("paying prize: %w", err)
	}
	if err := registry.Clear(); err != nil {
		return nil, err
	}

	k.logger.Info("prize awarded",
		logging.Account(winner.String()),
		logging.Amount(uint64(prize)),
		logging.Nonce(subject),
		logging.Count(len(participants)),
	)
	return []abi.Event{PrizeAwarded(winner, prize)}, nil
}

// Participants returns the accounts in the current round, in entry order.
func (k *Keeper) Participants() ([]types.AccountID, error) {
	accounts, _, err := NewRegistry(k.store, k.params.Capacity).Participants()
	return accounts, err
}

// RoundActive reports whether a round has at least one participant.
func (k *Keeper) RoundActive() (bool, error) {
	accounts, present, err := NewRegistry(k.store, k.params.Capacity).Participants()
	return present && len(accounts) > 0, err
}

// Nonce returns the current randomness nonce.
func (k *Keeper) Nonce() (uint64, error) {
	return NewNonceCounter(k.store).Current()
}

// Pot returns the escrow balance.
func (k *Keeper) Pot() (types.Amount, error) {
	bk, err := bank.NewKeeper(k.store, k.params.ExistentialDeposit)
	if err != nil {
		return 0, err
	}
	return bk.Balance(k.pot)
}
