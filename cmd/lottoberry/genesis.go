package main

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/blockberries/lottoberry/pkg/abi"
	"github.com/blockberries/lottoberry/pkg/app"
	"github.com/blockberries/lottoberry/pkg/types"
)

// GenesisDoc is the on-disk genesis document.
type GenesisDoc struct {
	ChainID       string          `json:"chain_id"`
	GenesisTime   time.Time       `json:"genesis_time"`
	InitialHeight uint64          `json:"initial_height"`
	AppState      json.RawMessage `json:"app_state"`
}

// ToGenesis converts the document for InitChain.
func (d *GenesisDoc) ToGenesis() *abi.Genesis {
	return &abi.Genesis{
		ChainID:       d.ChainID,
		GenesisTime:   d.GenesisTime,
		AppState:      d.AppState,
		InitialHeight: d.InitialHeight,
	}
}

// newGenesisDoc funds sudo and the first players simulation players with balance each.
func newGenesisDoc(chainID string, sudo ed25519.PrivateKey, players int, balance uint64) (*GenesisDoc, error) {
	sudoID, err := types.AccountFromPubKey(sudo.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, err
	}

	state := app.GenesisState{
		Sudo:     sudoID.String(),
		Balances: []app.GenesisBalance{{Account: sudoID.String(), Amount: balance}},
	}
	for i := 0; i < players; i++ {
		id, err := types.AccountFromPubKey(playerKey(chainID, i).Public().(ed25519.PublicKey))
		if err != nil {
			return nil, err
		}
		state.Balances = append(state.Balances, app.GenesisBalance{Account: id.String(), Amount: balance})
	}

	data, err := state.Marshal()
	if err != nil {
		return nil, fmt.Errorf("encoding app state: %w", err)
	}
	return &GenesisDoc{
		ChainID:       chainID,
		GenesisTime:   time.Now().UTC().Truncate(time.Second),
		InitialHeight: 1,
		AppState:      data,
	}, nil
}

func writeGenesisFile(path string, doc *GenesisDoc) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding genesis: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing genesis file: %w", err)
	}
	return nil
}

func readGenesisFile(path string) (*GenesisDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading genesis file: %w", err)
	}
	var doc GenesisDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidGenesis, err)
	}
	return &doc, nil
}
