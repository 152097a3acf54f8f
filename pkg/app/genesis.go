package app

import (
	"encoding/json"
	"fmt"

	"github.com/blockberries/lottoberry/pkg/types"
)

// GenesisState is the application state carried in the genesis document.
type GenesisState struct {
	// Sudo is the account allowed to submit root calls.
	Sudo string `json:"sudo"`

	// Balances are minted before the first block.
	Balances []GenesisBalance `json:"balances"`
}

// GenesisBalance is an initial account balance.
type GenesisBalance struct {
	Account string `json:"account"`
	Amount  uint64 `json:"amount"`
}

// ParseGenesisState decodes and validates JSON application state.
func ParseGenesisState(data []byte) (*GenesisState, error) {
	var gs GenesisState
	if err := json.Unmarshal(data, &gs); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidGenesis, err)
	}
	if err := gs.Validate(); err != nil {
		return nil, err
	}
	return &gs, nil
}

// Validate checks the genesis state for errors.
func (gs *GenesisState) Validate() error {
	if _, err := types.ParseAccountID(gs.Sudo); err != nil {
		return fmt.Errorf("%w: sudo: %v", types.ErrInvalidGenesis, err)
	}

	seen := make(map[types.AccountID]struct{}, len(gs.Balances))
	for i, b := range gs.Balances {
		acct, err := types.ParseAccountID(b.Account)
		if err != nil {
			return fmt.Errorf("%w: balance %d: %v", types.ErrInvalidGenesis, i, err)
		}
		if _, dup := seen[acct]; dup {
			return fmt.Errorf("%w: duplicate balance for %s", types.ErrInvalidGenesis, acct)
		}
		seen[acct] = struct{}{}
	}
	return nil
}

// Marshal encodes the genesis state as indented JSON.
func (gs *GenesisState) Marshal() ([]byte, error) {
	return json.MarshalIndent(gs, "", "  ")
}
