package node

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/blockberries/lottoberry/pkg/abi"
	"github.com/blockberries/lottoberry/pkg/app"
	"github.com/blockberries/lottoberry/pkg/config"
	"github.com/blockberries/lottoberry/pkg/eventlog"
	"github.com/blockberries/lottoberry/pkg/events"
	"github.com/blockberries/lottoberry/pkg/logging"
	"github.com/blockberries/lottoberry/pkg/lottery"
	"github.com/blockberries/lottoberry/pkg/metrics"
	"github.com/blockberries/lottoberry/pkg/randomness"
	"github.com/blockberries/lottoberry/pkg/statestore"
	"github.com/blockberries/lottoberry/pkg/tracing"
	"github.com/blockberries/lottoberry/pkg/types"
)

// NodeBuilder provides a fluent interface for constructing a Node.
type NodeBuilder struct {
	cfg *config.Config

	// Pluggable components (optional)
	logger         *logging.Logger
	metrics        metrics.Metrics
	tracerProvider trace.TracerProvider
	source         randomness.Source
}

// NewNodeBuilder creates a new NodeBuilder with the given configuration.
func NewNodeBuilder(cfg *config.Config) *NodeBuilder {
	return &NodeBuilder{cfg: cfg}
}

// WithLogger sets the logger shared by every component.
func (b *NodeBuilder) WithLogger(logger *logging.Logger) *NodeBuilder {
	b.logger = logger
	return b
}

// WithMetrics overrides the metrics sink chosen from configuration.
func (b *NodeBuilder) WithMetrics(m metrics.Metrics) *NodeBuilder {
	b.metrics = m
	return b
}

// WithTracerProvider overrides the tracer provider chosen from configuration.
func (b *NodeBuilder) WithTracerProvider(provider trace.TracerProvider) *NodeBuilder {
	b.tracerProvider = provider
	return b
}

// WithRandomness overrides the block hash randomness source.
func (b *NodeBuilder) WithRandomness(source randomness.Source) *NodeBuilder {
	b.source = source
	return b
}

// Build opens the stores and creates the Node.
// Empty state store and event log paths keep them in memory.
func (b *NodeBuilder) Build() (*Node, error) {
	cfg := b.cfg
	if cfg == nil {
		return nil, fmt.Errorf("invalid configuration: nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := b.logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	m := b.metrics
	if m == nil {
		if cfg.Metrics.Enabled {
			m = metrics.NewPrometheusMetrics(cfg.Metrics.Namespace)
		} else {
			m = metrics.NewNopMetrics()
		}
	}

	provider := b.tracerProvider
	shutdownTracing := func(context.Context) error { return nil }
	if provider == nil {
		var err error
		provider, shutdownTracing, err = tracing.Setup(TracingConfig(cfg))
		if err != nil {
			return nil, fmt.Errorf("setting up tracing: %w", err)
		}
	}

	store, eventLog, err := OpenStores(cfg)
	if err != nil {
		_ = shutdownTracing(context.Background())
		return nil, err
	}

	bus := events.NewBusWithConfig(abi.EventBusConfig{
		BufferSize:     cfg.EventBus.BufferSize,
		PublishTimeout: cfg.EventBus.PublishTimeout.Duration(),
	})
	bus.SetLogger(logger)

	opts := []app.Option{
		app.WithLogger(logger),
		app.WithMetrics(m),
		app.WithEventBus(bus),
		app.WithTracerProvider(provider),
	}
	if b.source != nil {
		opts = append(opts, app.WithRandomness(b.source))
	}
	application, err := app.New(store, eventLog, AppConfig(cfg), opts...)
	if err != nil {
		eventLog.Close()
		store.Close()
		_ = shutdownTracing(context.Background())
		return nil, fmt.Errorf("creating application: %w", err)
	}

	return &Node{
		cfg:             cfg,
		logger:          logger.WithComponent("node"),
		store:           store,
		eventLog:        eventLog,
		bus:             bus,
		metrics:         m,
		app:             application,
		shutdownTracing: shutdownTracing,
	}, nil
}

// AppConfig extracts the application parameters from cfg.
func AppConfig(cfg *config.Config) app.Config {
	return app.Config{
		ChainID: cfg.Node.ChainID,
		Params: lottery.Params{
			EntryFee:           types.Amount(cfg.Lottery.EntryFee),
			Capacity:           cfg.Lottery.Capacity,
			ModuleID:           cfg.Lottery.ModuleID,
			ExistentialDeposit: types.Amount(cfg.Bank.ExistentialDeposit),
		},
		KeepRecent: cfg.StateStore.KeepRecent,
	}
}

// TracingConfig extracts the tracer provider settings from cfg.
func TracingConfig(cfg *config.Config) tracing.Config {
	tc := tracing.DefaultConfig()
	tc.Enabled = cfg.Tracing.Enabled
	tc.ServiceVersion = app.Version
	tc.Exporter = cfg.Tracing.Exporter
	tc.Endpoint = cfg.Tracing.Endpoint
	tc.SampleRate = cfg.Tracing.SampleRate
	return tc
}

// OpenStores opens the state store and event log, in memory when their paths are empty.
func OpenStores(cfg *config.Config) (*statestore.IAVLStore, *eventlog.Log, error) {
	var (
		store *statestore.IAVLStore
		err   error
	)
	if cfg.StateStore.Path == "" {
		store, err = statestore.NewMemoryIAVLStore(cfg.StateStore.CacheSize)
	} else {
		store, err = statestore.NewIAVLStore(cfg.StateStore.Path, cfg.StateStore.CacheSize)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("opening state store: %w", err)
	}

	var log *eventlog.Log
	if cfg.EventLog.Path == "" {
		log, err = eventlog.OpenMemory()
	} else {
		log, err = eventlog.Open(cfg.EventLog.Path)
	}
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("opening event log: %w", err)
	}
	return store, log, nil
}
