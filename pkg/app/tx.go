package app

import (
	"crypto/ed25519"
	"fmt"

	"github.com/blockberries/cramberry/pkg/cramberry"

	"github.com/blockberries/lottoberry/pkg/metrics"
	"github.com/blockberries/lottoberry/pkg/types"
)

// Call identifies the lottery operation a transaction invokes.
type Call uint32

// Calls.
const (
	CallEnter      Call = 1
	CallCloseRound Call = 2
)

// String returns the call name used in logs and metric labels.
func (c Call) String() string {
	switch c {
	case CallEnter:
		return metrics.CallEnter
	case CallCloseRound:
		return metrics.CallCloseRound
	default:
		return metrics.CallUnknown
	}
}

// Valid reports whether c is a known call.
func (c Call) Valid() bool {
	return c == CallEnter || c == CallCloseRound
}

// OriginFlag selects the origin a transaction asks to execute with.
type OriginFlag uint32

// Origin flags.
const (
	OriginSigned OriginFlag = 0
	OriginRoot   OriginFlag = 1
)

// Tx is the signed transaction envelope.
type Tx struct {
	Call      uint32 `cramberry:"1"`
	Origin    uint32 `cramberry:"2"`
	Sequence  uint64 `cramberry:"3"`
	PubKey    []byte `cramberry:"4"`
	Signature []byte `cramberry:"5"`
}

type signDoc struct {
	ChainID  string `cramberry:"1"`
	Call     uint32 `cramberry:"2"`
	Origin   uint32 `cramberry:"3"`
	Sequence uint64 `cramberry:"4"`
}

// SignBytes returns the bytes a transaction signature covers.
func SignBytes(chainID string, call Call, origin OriginFlag, sequence uint64) ([]byte, error) {
	doc := signDoc{
		ChainID:  chainID,
		Call:     uint32(call),
		Origin:   uint32(origin),
		Sequence: sequence,
	}
	data, err := cramberry.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("encoding sign doc: %w", err)
	}
	return data, nil
}

// NewTx builds and signs a transaction with key.
func NewTx(key ed25519.PrivateKey, chainID string, call Call, origin OriginFlag, sequence uint64) (*Tx, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("%w: private key has %d bytes", types.ErrInvalidPubKey, len(key))
	}
	msg, err := SignBytes(chainID, call, origin, sequence)
	if err != nil {
		return nil, err
	}
	return &Tx{
		Call:      uint32(call),
		Origin:    uint32(origin),
		Sequence:  sequence,
		PubKey:    key.Public().(ed25519.PublicKey),
		Signature: ed25519.Sign(key, msg),
	}, nil
}

// EncodeTx signs and encodes a transaction in one step.
func EncodeTx(key ed25519.PrivateKey, chainID string, call Call, origin OriginFlag, sequence uint64) ([]byte, error) {
	tx, err := NewTx(key, chainID, call, origin, sequence)
	if err != nil {
		return nil, err
	}
	return tx.Encode()
}

// Encode returns the wire form of the transaction.
func (tx *Tx) Encode() ([]byte, error) {
	data, err := cramberry.Marshal(tx)
	if err != nil {
		return nil, fmt.Errorf("encoding transaction: %w", err)
	}
	return data, nil
}

// DecodeTx parses a transaction from its wire form.
func DecodeTx(data []byte) (*Tx, error) {
	var tx Tx
	if err := cramberry.Unmarshal(data, &tx); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidTx, err)
	}
	return &tx, nil
}

// Verify checks the envelope and its signature for chainID and returns the signer.
func (tx *Tx) Verify(chainID string) (types.AccountID, error) {
	call := Call(tx.Call)
	if !call.Valid() {
		return "", fmt.Errorf("%w: %d", types.ErrUnknownCall, tx.Call)
	}
	origin := OriginFlag(tx.Origin)
	if origin != OriginSigned && origin != OriginRoot {
		return "", fmt.Errorf("%w: unknown origin flag %d", types.ErrInvalidTx, tx.Origin)
	}

	signer, err := types.AccountFromPubKey(tx.PubKey)
	if err != nil {
		return "", err
	}

	msg, err := SignBytes(chainID, call, origin, tx.Sequence)
	if err != nil {
		return "", err
	}
	if len(tx.Signature) != ed25519.SignatureSize || !ed25519.Verify(tx.PubKey, msg, tx.Signature) {
		return "", types.ErrInvalidSignature
	}
	return signer, nil
}
