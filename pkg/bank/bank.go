// Package bank implements the balance ledger the lottery escrows entry fees in.
//
// Every account holding a balance is kept at or above the existential deposit.
// Balances that would fall below it are either rejected (KeepAlive) or reaped
// together with their dust (AllowDeath).
package bank

import (
	"errors"
	"fmt"
	"math"

	"github.com/blockberries/lottoberry/pkg/statestore"
	"github.com/blockberries/lottoberry/pkg/types"
)

// Ledger errors.
var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrKeepAlive           = errors.New("transfer would kill the sender account")
	ErrExistentialDeposit  = errors.New("amount below existential deposit for new account")
	ErrOverflow            = errors.New("balance overflow")
	ErrInvalidDeposit      = errors.New("existential deposit must be positive")
)

// ExistenceRequirement controls whether a transfer may leave the sender below
// the existential deposit.
type ExistenceRequirement int

const (
	// KeepAlive rejects transfers that would leave the sender below the existential deposit.
	KeepAlive ExistenceRequirement = iota

	// AllowDeath lets the sender drop below the existential deposit, reaping the account.
	AllowDeath
)

// String returns the name of the requirement.
func (r ExistenceRequirement) String() string {
	switch r {
	case KeepAlive:
		return "KeepAlive"
	case AllowDeath:
		return "AllowDeath"
	default:
		return "Unknown"
	}
}

var (
	balancePrefix = []byte("bank/balance/")
	issuanceKey   = []byte("bank/issuance")
)

// BalanceKey returns the state key holding an account's balance.
func BalanceKey(account types.AccountID) []byte {
	key := make([]byte, 0, len(balancePrefix)+len(account))
	key = append(key, balancePrefix...)
	return append(key, account...)
}

// IssuanceKey returns the state key holding total issuance.
func IssuanceKey() []byte {
	return issuanceKey
}

// Keeper reads and writes balances in a KVStore.
// Keepers are cheap; one is created for every store branch.
type Keeper struct {
	store              statestore.KVStore
	existentialDeposit types.Amount
}

// NewKeeper creates a keeper over store.
func NewKeeper(store statestore.KVStore, existentialDeposit types.Amount) (*Keeper, error) {
	if existentialDeposit == 0 {
		return nil, ErrInvalidDeposit
	}
	return &Keeper{store: store, existentialDeposit: existentialDeposit}, nil
}

// ExistentialDeposit returns the minimum balance an account must hold to exist.
func (k *Keeper) ExistentialDeposit() types.Amount {
	return k.existentialDeposit
}

// Balance returns the free balance of account. Accounts that do not exist have zero balance.
func (k *Keeper) Balance(account types.AccountID) (types.Amount, error) {
	bal, _, err := k.load(account)
	return bal, err
}

// Exists reports whether account holds a balance record.
func (k *Keeper) Exists(account types.AccountID) (bool, error) {
	_, ok, err := k.load(account)
	return ok, err
}

// TotalIssuance returns the sum of all balances.
func (k *Keeper) TotalIssuance() (types.Amount, error) {
	v, err := k.store.Get(issuanceKey)
	if err != nil {
		return 0, fmt.Errorf("reading issuance: %w", err)
	}
	n, err := types.DecodeUint64(v)
	if err != nil {
		return 0, fmt.Errorf("decoding issuance: %w", err)
	}
	return types.Amount(n), nil
}

// Mint creates amount new units in account and adds them to total issuance.
func (k *Keeper) Mint(account types.AccountID, amount types.Amount) error {
	if err := account.Validate(); err != nil {
		return err
	}
	if amount == 0 {
		return nil
	}

	bal, exists, err := k.load(account)
	if err != nil {
		return err
	}
	if !exists && amount < k.existentialDeposit {
		return ErrExistentialDeposit
	}
	if bal > math.MaxUint64-amount {
		return ErrOverflow
	}

	issuance, err := k.TotalIssuance()
	if err != nil {
		return err
	}
	if issuance > math.MaxUint64-amount {
		return ErrOverflow
	}

	if err := k.save(account, bal+amount); err != nil {
		return err
	}
	return k.setIssuance(issuance + amount)
}

// Transfer moves amount from one account to another.
// Zero amounts and transfers to self succeed without touching state.
func (k *Keeper) Transfer(from, to types.AccountID, amount types.Amount, req ExistenceRequirement) error {
	if amount == 0 || from == to {
		return nil
	}
	if err := to.Validate(); err != nil {
		return err
	}

	fromBal, _, err := k.load(from)
	if err != nil {
		return err
	}
	if fromBal < amount {
		return ErrInsufficientBalance
	}
	remaining := fromBal - amount
	if req == KeepAlive && remaining < k.existentialDeposit {
		return ErrKeepAlive
	}

	toBal, toExists, err := k.load(to)
	if err != nil {
		return err
	}
	if !toExists && amount < k.existentialDeposit {
		return ErrExistentialDeposit
	}
	if toBal > math.MaxUint64-amount {
		return ErrOverflow
	}

	if remaining < k.existentialDeposit {
		if err := k.reap(from, remaining); err != nil {
			return err
		}
	} else if err := k.save(from, remaining); err != nil {
		return err
	}
	return k.save(to, toBal+amount)
}

// reap deletes account and burns its dust from total issuance.
func (k *Keeper) reap(account types.AccountID, dust types.Amount) error {
	if err := k.store.Delete(BalanceKey(account)); err != nil {
		return fmt.Errorf("reaping account: %w", err)
	}
	if dust == 0 {
		return nil
	}
	issuance, err := k.TotalIssuance()
	if err != nil {
		return err
	}
	if issuance < dust {
		return fmt.Errorf("%w: issuance %d below dust %d", types.ErrCorruptState, issuance, dust)
	}
	return k.setIssuance(issuance - dust)
}

func (k *Keeper) load(account types.AccountID) (types.Amount, bool, error) {
	v, err := k.store.Get(BalanceKey(account))
	if err != nil {
		return 0, false, fmt.Errorf("reading balance: %w", err)
	}
	if v == nil {
		return 0, false, nil
	}
	n, err := types.DecodeUint64(v)
	if err != nil {
		return 0, false, fmt.Errorf("decoding balance of %s: %w", account, err)
	}
	return types.Amount(n), true, nil
}

func (k *Keeper) save(account types.AccountID, amount types.Amount) error {
	if err := k.store.Set(BalanceKey(account), types.EncodeUint64(uint64(amount))); err != nil {
		return fmt.Errorf("writing balance: %w", err)
	}
	return nil
}

func (k *Keeper) setIssuance(amount types.Amount) error {
	if err := k.store.Set(issuanceKey, types.EncodeUint64(uint64(amount))); err != nil {
		return fmt.Errorf("writing issuance: %w", err)
	}
	return nil
}
