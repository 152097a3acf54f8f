package node

import (
	"context"
	"crypto/ed25519"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/blockberries/lottoberry/pkg/abi"
	"github.com/blockberries/lottoberry/pkg/app"
	"github.com/blockberries/lottoberry/pkg/config"
	"github.com/blockberries/lottoberry/pkg/metrics"
	"github.com/blockberries/lottoberry/pkg/randomness"
	"github.com/blockberries/lottoberry/pkg/types"
)

func memoryConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.StateStore.Path = ""
	cfg.EventLog.Path = ""
	cfg.Metrics.Enabled = false
	return cfg
}

func genesisFor(t *testing.T, chainID string, key ed25519.PrivateKey) *abi.Genesis {
	t.Helper()
	id, err := types.AccountFromPubKey(key.Public().(ed25519.PublicKey))
	require.NoError(t, err)
	state := app.GenesisState{
		Sudo:     id.String(),
		Balances: []app.GenesisBalance{{Account: id.String(), Amount: 100}},
	}
	data, err := state.Marshal()
	require.NoError(t, err)
	return &abi.Genesis{ChainID: chainID, AppState: data}
}

func TestNodeBuilder(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		_, err := NewNodeBuilder(nil).Build()
		require.Error(t, err)
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := memoryConfig()
		cfg.Lottery.Capacity = 0
		_, err := NewNodeBuilder(cfg).Build()
		require.Error(t, err)
	})

	t.Run("defaults to nop metrics", func(t *testing.T) {
		n, err := NewNodeBuilder(memoryConfig()).Build()
		require.NoError(t, err)
		assert.IsType(t, &metrics.NopMetrics{}, n.Metrics())
		require.NoError(t, n.Start())
		require.NoError(t, n.Stop())
	})

	t.Run("prometheus when enabled", func(t *testing.T) {
		cfg := memoryConfig()
		cfg.Metrics.Enabled = true
		n, err := NewNodeBuilder(cfg).Build()
		require.NoError(t, err)
		assert.IsType(t, &metrics.PrometheusMetrics{}, n.Metrics())
	})

	t.Run("overrides", func(t *testing.T) {
		m := metrics.NewPrometheusMetrics("override")
		n, err := NewNodeBuilder(memoryConfig()).
			WithMetrics(m).
			WithRandomness(randomness.Fixed([]byte{0, 0, 0, 0})).
			Build()
		require.NoError(t, err)
		assert.Same(t, m, n.Metrics())
	})
}

func TestNodeLifecycle(t *testing.T) {
	n, err := NewNodeBuilder(memoryConfig()).Build()
	require.NoError(t, err)

	require.ErrorIs(t, n.Stop(), ErrNodeNotStarted)
	require.NoError(t, n.Start())
	require.True(t, n.IsRunning())
	require.True(t, n.Bus().IsRunning())
	require.ErrorIs(t, n.Start(), ErrNodeAlreadyStarted)

	require.NoError(t, n.Stop())
	require.False(t, n.IsRunning())
	require.False(t, n.Bus().IsRunning())
}

func TestNodeRunsBlocks(t *testing.T) {
	cfg := memoryConfig()
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	n, err := NewNodeBuilder(cfg).WithTracerProvider(provider).Build()
	require.NoError(t, err)
	require.NoError(t, n.Start())
	defer n.Stop()

	sudo := ed25519.NewKeyFromSeed(make([]byte, ed25519.SeedSize))
	require.NoError(t, n.App().InitChain(genesisFor(t, cfg.Node.ChainID, sudo)))

	ctx := context.Background()
	require.NoError(t, n.App().BeginBlock(ctx, &abi.BlockHeader{Height: 1}))
	data, err := app.EncodeTx(sudo, cfg.Node.ChainID, app.CallCloseRound, app.OriginRoot, 0)
	require.NoError(t, err)
	res := n.App().ExecuteTx(ctx, &abi.Transaction{Data: data})
	require.True(t, res.IsOK(), "close round: %v", res.Error)
	n.App().EndBlock(ctx)
	commit := n.App().Commit(ctx)
	require.NoError(t, commit.Error)

	records, err := n.EventLog().ByHeight(1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, abi.EventNoParticipants, records[0].Type)
	assert.NotEmpty(t, recorder.Ended())
}

func TestNodeResumesFromDisk(t *testing.T) {
	dir := t.TempDir()
	cfg := memoryConfig()
	cfg.StateStore.Path = filepath.Join(dir, "state")
	cfg.EventLog.Path = filepath.Join(dir, "events")
	sudo := ed25519.NewKeyFromSeed(make([]byte, ed25519.SeedSize))

	n, err := NewNodeBuilder(cfg).Build()
	require.NoError(t, err)
	require.NoError(t, n.Start())
	require.NoError(t, n.App().InitChain(genesisFor(t, cfg.Node.ChainID, sudo)))
	ctx := context.Background()
	require.NoError(t, n.App().BeginBlock(ctx, &abi.BlockHeader{Height: 1}))
	n.App().EndBlock(ctx)
	commit := n.App().Commit(ctx)
	require.NoError(t, commit.Error)
	require.NoError(t, n.Stop())

	n, err = NewNodeBuilder(cfg).Build()
	require.NoError(t, err)
	require.NoError(t, n.Start())
	defer n.Stop()

	info := n.App().Info()
	assert.Equal(t, uint64(1), info.Height)
	assert.Equal(t, commit.AppHash, info.AppHash)
	require.ErrorIs(t, n.App().InitChain(genesisFor(t, cfg.Node.ChainID, sudo)), types.ErrAlreadyInitialized)
}

func TestTracingConfig(t *testing.T) {
	cfg := memoryConfig()
	cfg.Tracing.Enabled = true
	cfg.Tracing.Exporter = "stdout"
	cfg.Tracing.SampleRate = 0.5

	tc := TracingConfig(cfg)
	assert.True(t, tc.Enabled)
	assert.Equal(t, "stdout", tc.Exporter)
	assert.Equal(t, 0.5, tc.SampleRate)
	assert.Equal(t, app.Version, tc.ServiceVersion)
}

func TestAppConfig(t *testing.T) {
	cfg := memoryConfig()
	cfg.Lottery.EntryFee = 25
	cfg.Bank.ExistentialDeposit = 2
	cfg.StateStore.KeepRecent = 7

	ac := AppConfig(cfg)
	assert.Equal(t, cfg.Node.ChainID, ac.ChainID)
	assert.Equal(t, types.Amount(25), ac.Params.EntryFee)
	assert.Equal(t, types.Amount(2), ac.Params.ExistentialDeposit)
	assert.Equal(t, int64(7), ac.KeepRecent)
}
