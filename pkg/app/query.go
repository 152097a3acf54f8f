package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/blockberries/lottoberry/pkg/abi"
	"github.com/blockberries/lottoberry/pkg/auth"
	"github.com/blockberries/lottoberry/pkg/bank"
	"github.com/blockberries/lottoberry/pkg/lottery"
	"github.com/blockberries/lottoberry/pkg/statestore"
	"github.com/blockberries/lottoberry/pkg/types"
)

// Query paths.
const (
	PathParticipants = "/lottery/participants"
	PathNonce        = "/lottery/nonce"
	PathPot          = "/lottery/pot"
	PathConfig       = "/lottery/config"
	PathBalance      = "/bank/balance/"
	PathSequence     = "/auth/sequence/"
)

// LotteryConfig is the JSON value returned for PathConfig.
type LotteryConfig struct {
	ChainID            string `json:"chain_id"`
	EntryFee           uint64 `json:"entry_fee"`
	Capacity           int    `json:"capacity"`
	ModuleID           string `json:"module_id"`
	PotAccount         string `json:"pot_account"`
	ExistentialDeposit uint64 `json:"existential_deposit"`
}

// Query reads application state.
// Raw store values are returned for key paths. With Prove set, an ICS23
// proof against the latest app hash is attached.
func (a *Application) Query(ctx context.Context, req *abi.QueryRequest) *abi.QueryResponse {
	a.mu.Lock()
	defer a.mu.Unlock()

	resp, err := a.query(req)
	if err != nil {
		return &abi.QueryResponse{Code: ResultCodeOf(err), Error: err}
	}
	return resp
}

func (a *Application) query(req *abi.QueryRequest) (*abi.QueryResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: nil query", types.ErrInvalidTx)
	}

	latest := a.store.Version()
	if req.Path == PathConfig {
		return a.queryConfig(latest)
	}

	key, err := a.queryKey(req.Path)
	if err != nil {
		return nil, err
	}

	if req.Height == 0 || int64(req.Height) == latest {
		return a.queryLatest(key, latest, req.Prove)
	}

	if req.Prove {
		return nil, fmt.Errorf("%w: proofs are only served at height %d", ErrVersionUnavailable, latest)
	}
	version := int64(req.Height)
	if version > latest || !a.store.VersionExists(version) {
		return nil, fmt.Errorf("%w: height %d", ErrVersionUnavailable, req.Height)
	}
	value, err := a.store.GetVersioned(key, version)
	if err != nil {
		return nil, err
	}
	return &abi.QueryResponse{Code: abi.CodeOK, Key: key, Value: value, Height: req.Height}, nil
}

func (a *Application) queryLatest(key []byte, latest int64, prove bool) (*abi.QueryResponse, error) {
	resp := &abi.QueryResponse{Code: abi.CodeOK, Key: key, Height: uint64(latest)}
	if !prove {
		value, err := a.store.Get(key)
		if err != nil {
			return nil, err
		}
		resp.Value = value
		return resp, nil
	}

	proof, err := a.store.GetProof(key)
	if err != nil {
		return nil, err
	}
	resp.Value = proof.Value
	resp.Proof = &abi.Proof{Ops: []abi.ProofOp{{
		Type: abi.ProofOpICS23,
		Key:  key,
		Data: proof.ProofBytes,
	}}}
	return resp, nil
}

func (a *Application) queryConfig(latest int64) (*abi.QueryResponse, error) {
	params := a.lottery.Params()
	value, err := json.Marshal(LotteryConfig{
		ChainID:            a.cfg.ChainID,
		EntryFee:           uint64(params.EntryFee),
		Capacity:           params.Capacity,
		ModuleID:           params.ModuleID,
		PotAccount:         a.lottery.PotAccount().String(),
		ExistentialDeposit: uint64(params.ExistentialDeposit),
	})
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return &abi.QueryResponse{Code: abi.CodeOK, Value: value, Height: uint64(latest)}, nil
}

func (a *Application) queryKey(path string) ([]byte, error) {
	switch path {
	case PathParticipants:
		return lottery.ParticipantsKey(), nil
	case PathNonce:
		return lottery.NonceKey(), nil
	case PathPot:
		return bank.BalanceKey(a.lottery.PotAccount()), nil
	}

	if rest, ok := strings.CutPrefix(path, PathBalance); ok {
		acct, err := types.ParseAccountID(rest)
		if err != nil {
			return nil, err
		}
		return bank.BalanceKey(acct), nil
	}
	if rest, ok := strings.CutPrefix(path, PathSequence); ok {
		acct, err := types.ParseAccountID(rest)
		if err != nil {
			return nil, err
		}
		return auth.SequenceKey(acct), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownQueryPath, path)
}

// VerifyQueryProof checks resp's ICS23 proof against appHash.
func VerifyQueryProof(resp *abi.QueryResponse, appHash []byte) (bool, error) {
	if resp == nil || resp.Proof == nil || len(resp.Proof.Ops) != 1 {
		return false, types.ErrInvalidProof
	}
	op := resp.Proof.Ops[0]
	if op.Type != abi.ProofOpICS23 {
		return false, fmt.Errorf("%w: unsupported proof type %q", types.ErrInvalidProof, op.Type)
	}
	proof := &statestore.Proof{
		Key:        op.Key,
		Value:      resp.Value,
		Exists:     resp.Value != nil,
		RootHash:   appHash,
		Version:    int64(resp.Height),
		ProofBytes: op.Data,
	}
	return proof.Verify(appHash)
}
