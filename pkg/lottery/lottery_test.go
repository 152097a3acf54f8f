package lottery

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/lottoberry/pkg/abi"
	"github.com/blockberries/lottoberry/pkg/auth"
	"github.com/blockberries/lottoberry/pkg/bank"
	"github.com/blockberries/lottoberry/pkg/randomness"
	"github.com/blockberries/lottoberry/pkg/statestore"
	"github.com/blockberries/lottoberry/pkg/types"
)

var (
	accountA = types.ModuleAccount("A")
	accountB = types.ModuleAccount("B")
	accountC = types.ModuleAccount("C")
)

func testParams() Params {
	return Params{
		EntryFee:           10,
		Capacity:           3,
		ModuleID:           "py/lotto",
		ExistentialDeposit: 1,
	}
}

type fixture struct {
	store  *statestore.IAVLStore
	bank   *bank.Keeper
	keeper *Keeper
}

func newFixture(t *testing.T, params Params, source randomness.Source, funded ...types.AccountID) *fixture {
	t.Helper()
	store, err := statestore.NewMemoryIAVLStore(100)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	bk, err := bank.NewKeeper(store, params.ExistentialDeposit)
	require.NoError(t, err)
	for _, a := range funded {
		require.NoError(t, bk.Mint(a, 100))
	}

	k, err := NewKeeper(store, params, source)
	require.NoError(t, err)
	return &fixture{store: store, bank: bk, keeper: k}
}

func (f *fixture) balance(t *testing.T, account types.AccountID) types.Amount {
	t.Helper()
	b, err := f.bank.Balance(account)
	require.NoError(t, err)
	return b
}

func (f *fixture) pot(t *testing.T) types.Amount {
	t.Helper()
	p, err := f.keeper.Pot()
	require.NoError(t, err)
	return p
}

func (f *fixture) nonce(t *testing.T) uint64 {
	t.Helper()
	n, err := f.keeper.Nonce()
	require.NoError(t, err)
	return n
}

func (f *fixture) participants(t *testing.T) []types.AccountID {
	t.Helper()
	p, err := f.keeper.Participants()
	require.NoError(t, err)
	return p
}

func (f *fixture) registryPresent(t *testing.T) bool {
	t.Helper()
	has, err := f.store.Has(ParticipantsKey())
	require.NoError(t, err)
	return has
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Params)
	}{
		{"zero fee", func(p *Params) { p.EntryFee = 0 }},
		{"zero capacity", func(p *Params) { p.Capacity = 0 }},
		{"empty module", func(p *Params) { p.ModuleID = "" }},
		{"zero deposit", func(p *Params) { p.ExistentialDeposit = 0 }},
		{"fee below deposit", func(p *Params) { p.ExistentialDeposit = 11 }},
	}

	require.NoError(t, testParams().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams()
			tt.modify(&p)
			require.ErrorIs(t, p.Validate(), ErrInvalidParams)
		})
	}

	_, err := NewKeeper(nil, testParams(), nil)
	require.ErrorIs(t, err, ErrInvalidParams)
}

func TestEnter(t *testing.T) {
	t.Run("fills up to capacity", func(t *testing.T) {
		extra := types.ModuleAccount("D")
		f := newFixture(t, testParams(), randomness.Fixed([]byte{0, 0, 0, 0}), accountA, accountB, accountC, extra)

		for i, a := range []types.AccountID{accountA, accountB, accountC} {
			events, err := f.keeper.Enter(auth.Signed(a))
			require.NoError(t, err)
			require.Equal(t, []abi.Event{TicketBought(a)}, events)
			require.Len(t, f.participants(t), i+1)
		}
		require.Equal(t, types.Amount(30), f.pot(t))

		_, err := f.keeper.Enter(auth.Signed(extra))
		require.ErrorIs(t, err, ErrCannotAddParticipant)
		require.Equal(t, []types.AccountID{accountA, accountB, accountC}, f.participants(t))
		require.Equal(t, types.Amount(30), f.pot(t))
		require.Equal(t, types.Amount(100), f.balance(t, extra))
	})

	t.Run("duplicate entry", func(t *testing.T) {
		f := newFixture(t, testParams(), randomness.Fixed([]byte{0, 0, 0, 0}), accountA)

		_, err := f.keeper.Enter(auth.Signed(accountA))
		require.NoError(t, err)

		_, err = f.keeper.Enter(auth.Signed(accountA))
		require.ErrorIs(t, err, ErrAlreadyParticipating)
		require.Len(t, f.participants(t), 1)
		require.Equal(t, types.Amount(10), f.pot(t))
		require.Equal(t, types.Amount(90), f.balance(t, accountA))
	})

	t.Run("balance below fee", func(t *testing.T) {
		f := newFixture(t, testParams(), randomness.Fixed([]byte{0, 0, 0, 0}))
		require.NoError(t, f.bank.Mint(accountA, 9))

		_, err := f.keeper.Enter(auth.Signed(accountA))
		require.ErrorIs(t, err, ErrNotEnoughCurrency)
		require.False(t, f.registryPresent(t))
		require.Equal(t, types.Amount(0), f.pot(t))
	})

	t.Run("keep alive rejection rolls back append", func(t *testing.T) {
		f := newFixture(t, testParams(), randomness.Fixed([]byte{0, 0, 0, 0}))
		require.NoError(t, f.bank.Mint(accountA, 10))
		before := f.store.RootHash()

		_, err := f.keeper.Enter(auth.Signed(accountA))
		require.ErrorIs(t, err, bank.ErrKeepAlive)
		require.False(t, f.registryPresent(t))
		require.Equal(t, before, f.store.RootHash())
	})

	t.Run("requires signed origin", func(t *testing.T) {
		f := newFixture(t, testParams(), randomness.Fixed([]byte{0, 0, 0, 0}))

		_, err := f.keeper.Enter(auth.Root())
		require.ErrorIs(t, err, ErrBadOrigin)
		_, err = f.keeper.Enter(auth.None())
		require.ErrorIs(t, err, ErrBadOrigin)
	})
}

func TestCloseRoundOrigin(t *testing.T) {
	f := newFixture(t, testParams(), randomness.Fixed([]byte{0, 0, 0, 0}), accountA)

	check := func(t *testing.T) {
		before := f.store.RootHash()
		for _, origin := range []auth.Origin{auth.Signed(accountA), auth.None()} {
			_, err := f.keeper.CloseRound(origin)
			require.ErrorIs(t, err, ErrBadOrigin)
		}
		require.Equal(t, before, f.store.RootHash())
		require.Zero(t, f.nonce(t))
	}

	t.Run("absent registry", check)

	_, err := f.keeper.Enter(auth.Signed(accountA))
	require.NoError(t, err)

	t.Run("active round", check)
}

func TestCloseRoundNoParticipants(t *testing.T) {
	f := newFixture(t, testParams(), randomness.Fixed([]byte{0, 0, 0, 0}))

	events, err := f.keeper.CloseRound(auth.Root())
	require.NoError(t, err)
	require.Equal(t, []abi.Event{NoParticipants()}, events)
	require.Zero(t, f.nonce(t))
	require.False(t, f.registryPresent(t))

	active, err := f.keeper.RoundActive()
	require.NoError(t, err)
	require.False(t, active)
}

func TestCloseRoundEndToEnd(t *testing.T) {
	var subjects []uint64
	source := randomness.SourceFunc(func(nonce uint64) []byte {
		subjects = append(subjects, nonce)
		// 4 little-endian: index 4 % 3 = 1
		return []byte{4, 0, 0, 0, 0xff, 0xff}
	})
	f := newFixture(t, testParams(), source, accountA, accountB, accountC)

	for _, a := range []types.AccountID{accountA, accountB, accountC} {
		_, err := f.keeper.Enter(auth.Signed(a))
		require.NoError(t, err)
	}
	require.Equal(t, types.Amount(30), f.pot(t))
	active, err := f.keeper.RoundActive()
	require.NoError(t, err)
	require.True(t, active)

	events, err := f.keeper.CloseRound(auth.Root())
	require.NoError(t, err)
	require.Equal(t, []abi.Event{PrizeAwarded(accountB, 30)}, events)
	require.Equal(t, []uint64{0}, subjects)

	require.Equal(t, types.Amount(120), f.balance(t, accountB))
	require.Equal(t, types.Amount(90), f.balance(t, accountA))
	require.Equal(t, types.Amount(90), f.balance(t, accountC))
	require.Equal(t, types.Amount(0), f.pot(t))
	require.False(t, f.registryPresent(t))
	require.Equal(t, uint64(1), f.nonce(t))

	exists, err := f.bank.Exists(f.keeper.PotAccount())
	require.NoError(t, err)
	require.False(t, exists)

	events, err = f.keeper.CloseRound(auth.Root())
	require.NoError(t, err)
	require.Equal(t, []abi.Event{NoParticipants()}, events)
	require.Equal(t, uint64(1), f.nonce(t))

	t.Run("next round uses next nonce", func(t *testing.T) {
		_, err := f.keeper.Enter(auth.Signed(accountA))
		require.NoError(t, err)
		_, err = f.keeper.CloseRound(auth.Root())
		require.NoError(t, err)
		require.Equal(t, []uint64{0, 1}, subjects)
		require.Equal(t, uint64(2), f.nonce(t))
		require.Equal(t, types.Amount(90), f.balance(t, accountA))
	})
}

func TestCloseRoundPayoutFailureRollsBack(t *testing.T) {
	f := newFixture(t, testParams(), randomness.Fixed([]byte{0, 0, 0, 0}), accountB, accountC)
	require.NoError(t, f.store.Set(bank.BalanceKey(accountA), types.EncodeUint64(math.MaxUint64-5)))

	for _, a := range []types.AccountID{accountA, accountB, accountC} {
		_, err := f.keeper.Enter(auth.Signed(a))
		require.NoError(t, err)
	}
	before := f.store.RootHash()

	_, err := f.keeper.CloseRound(auth.Root())
	require.ErrorIs(t, err, bank.ErrOverflow)

	require.Equal(t, before, f.store.RootHash())
	require.Zero(t, f.nonce(t))
	require.Len(t, f.participants(t), 3)
	require.Equal(t, types.Amount(30), f.pot(t))
}

func TestCloseRoundShortSeedPanics(t *testing.T) {
	f := newFixture(t, testParams(), randomness.Fixed([]byte{1, 2, 3}), accountA)
	_, err := f.keeper.Enter(auth.Signed(accountA))
	require.NoError(t, err)
	before := f.store.RootHash()

	require.Panics(t, func() {
		_, _ = f.keeper.CloseRound(auth.Root())
	})
	require.Equal(t, before, f.store.RootHash())
	require.Zero(t, f.nonce(t))
}

func TestNonceCounter(t *testing.T) {
	store, err := statestore.NewMemoryIAVLStore(100)
	require.NoError(t, err)
	defer store.Close()

	c := NewNonceCounter(store)
	for want := uint64(0); want < 5; want++ {
		got, err := c.ReadAndIncrement()
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	current, err := c.Current()
	require.NoError(t, err)
	require.Equal(t, uint64(5), current)

	require.NoError(t, store.Set(NonceKey(), []byte{1}))
	_, err = c.ReadAndIncrement()
	require.ErrorIs(t, err, types.ErrCorruptState)
}

func TestRegistry(t *testing.T) {
	store, err := statestore.NewMemoryIAVLStore(100)
	require.NoError(t, err)
	defer store.Close()

	r := NewRegistry(store, 2)
	require.Equal(t, 2, r.Capacity())

	accounts, present, err := r.Participants()
	require.NoError(t, err)
	require.False(t, present)
	require.Empty(t, accounts)

	require.NoError(t, r.Append(accountA))
	require.ErrorIs(t, r.Append(accountA), ErrAlreadyParticipating)
	require.NoError(t, r.Append(accountB))
	require.ErrorIs(t, r.Append(accountC), ErrCannotAddParticipant)

	accounts, present, err = r.Participants()
	require.NoError(t, err)
	require.True(t, present)
	require.Equal(t, []types.AccountID{accountA, accountB}, accounts)

	ok, err := r.Contains(accountB)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, r.Clear())
	_, present, err = r.Participants()
	require.NoError(t, err)
	require.False(t, present)
}

func TestEvents(t *testing.T) {
	e := PrizeAwarded(accountA, 30)
	assert.Equal(t, abi.EventPrizeAwarded, e.Type)
	account, ok := e.Attribute(abi.AttributeKeyAccount)
	assert.True(t, ok)
	assert.Equal(t, accountA.String(), account)
	amount, _ := e.Attribute(abi.AttributeKeyAmount)
	assert.Equal(t, "30", amount)

	assert.Equal(t, abi.EventNoParticipants, NoParticipants().Type)
	assert.Empty(t, NoParticipants().Attributes)
}
