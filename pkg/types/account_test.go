package types

import (
	"crypto/ed25519"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAccountFromPubKey(t *testing.T) {
	priv := ed25519.NewKeyFromSeed(make([]byte, ed25519.SeedSize))
	pub := priv.Public().(ed25519.PublicKey)

	t.Run("derives a valid address", func(t *testing.T) {
		acct, err := AccountFromPubKey(pub)
		require.NoError(t, err)
		require.Len(t, acct.String(), AddressSize*2)
		require.NoError(t, acct.Validate())
		require.Len(t, acct.Bytes(), AddressSize)
	})

	t.Run("deterministic", func(t *testing.T) {
		a1, err := AccountFromPubKey(pub)
		require.NoError(t, err)
		a2, err := AccountFromPubKey(pub)
		require.NoError(t, err)
		require.Equal(t, a1, a2)
	})

	t.Run("rejects short key", func(t *testing.T) {
		_, err := AccountFromPubKey(pub[:10])
		require.ErrorIs(t, err, ErrInvalidPubKey)
	})
}

func TestModuleAccount(t *testing.T) {
	a := ModuleAccount("py/lotto")
	require.NoError(t, a.Validate())
	require.Equal(t, a, ModuleAccount("py/lotto"))
	require.NotEqual(t, a, ModuleAccount("py/other"))
}

func TestParseAccountID(t *testing.T) {
	valid := strings.Repeat("ab", AddressSize)

	t.Run("accepts and normalizes", func(t *testing.T) {
		acct, err := ParseAccountID(strings.ToUpper(valid))
		require.NoError(t, err)
		require.Equal(t, AccountID(valid), acct)
	})

	t.Run("rejects bad hex", func(t *testing.T) {
		_, err := ParseAccountID("zz")
		require.ErrorIs(t, err, ErrInvalidAccount)
	})

	t.Run("rejects wrong length", func(t *testing.T) {
		_, err := ParseAccountID("abcd")
		require.ErrorIs(t, err, ErrInvalidAccount)
	})

	t.Run("malformed Bytes is nil", func(t *testing.T) {
		require.Nil(t, AccountID("nothex").Bytes())
	})
}

func TestAmountString(t *testing.T) {
	require.Equal(t, "0", Amount(0).String())
	require.Equal(t, "18446744073709551615", Amount(^uint64(0)).String())
}
