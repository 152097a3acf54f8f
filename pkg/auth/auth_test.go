package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/lottoberry/pkg/statestore"
	"github.com/blockberries/lottoberry/pkg/types"
)

var (
	alice = types.ModuleAccount("alice")
	sudo  = types.ModuleAccount("sudo")
)

func newTestKeeper(t *testing.T) *Keeper {
	t.Helper()
	store, err := statestore.NewMemoryIAVLStore(100)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewKeeper(store)
}

func TestEnsureSigned(t *testing.T) {
	account, err := EnsureSigned(Signed(alice))
	require.NoError(t, err)
	assert.Equal(t, alice, account)

	_, err = EnsureSigned(Root())
	assert.ErrorIs(t, err, ErrBadOrigin)

	_, err = EnsureSigned(None())
	assert.ErrorIs(t, err, ErrBadOrigin)

	_, err = EnsureSigned(Origin{Kind: OriginSigned})
	assert.ErrorIs(t, err, ErrBadOrigin)
}

func TestEnsureRoot(t *testing.T) {
	require.NoError(t, EnsureRoot(Root()))
	assert.ErrorIs(t, EnsureRoot(Signed(alice)), ErrBadOrigin)
	assert.ErrorIs(t, EnsureRoot(None()), ErrBadOrigin)
}

func TestOriginString(t *testing.T) {
	assert.Equal(t, "Root", Root().String())
	assert.Equal(t, "None", None().String())
	assert.Equal(t, "Signed("+alice.String()+")", Signed(alice).String())
}

func TestSequence(t *testing.T) {
	k := newTestKeeper(t)

	seq, err := k.Sequence(alice)
	require.NoError(t, err)
	require.Zero(t, seq)

	require.NoError(t, k.CheckSequence(alice, 0))
	require.ErrorIs(t, k.CheckSequence(alice, 1), types.ErrInvalidSequence)

	require.NoError(t, k.IncrementSequence(alice))
	require.NoError(t, k.IncrementSequence(alice))

	seq, err = k.Sequence(alice)
	require.NoError(t, err)
	require.Equal(t, uint64(2), seq)
	require.ErrorIs(t, k.CheckSequence(alice, 0), types.ErrInvalidSequence)
}

func TestResolveOrigin(t *testing.T) {
	k := newTestKeeper(t)

	t.Run("signed", func(t *testing.T) {
		origin, err := k.ResolveOrigin(alice, false)
		require.NoError(t, err)
		require.Equal(t, Signed(alice), origin)
	})

	t.Run("root without sudo", func(t *testing.T) {
		_, err := k.ResolveOrigin(alice, true)
		require.ErrorIs(t, err, ErrBadOrigin)
	})

	require.NoError(t, k.SetSudo(sudo))

	t.Run("root from sudo", func(t *testing.T) {
		origin, err := k.ResolveOrigin(sudo, true)
		require.NoError(t, err)
		require.Equal(t, Root(), origin)
	})

	t.Run("root from another signer", func(t *testing.T) {
		_, err := k.ResolveOrigin(alice, true)
		require.ErrorIs(t, err, ErrBadOrigin)
	})

	t.Run("invalid sudo", func(t *testing.T) {
		require.ErrorIs(t, k.SetSudo("xyz"), types.ErrInvalidAccount)
	})
}
