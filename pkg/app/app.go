// Package app runs the lottery as a block-driven state machine application.
//
// Transactions are signed envelopes carrying one lottery call. Each block is
// opened with BeginBlock, executes its transactions strictly in order and is
// sealed by Commit, which saves a new state version and flushes the block's
// notifications to the event log.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/blockberries/lottoberry/pkg/abi"
	"github.com/blockberries/lottoberry/pkg/auth"
	"github.com/blockberries/lottoberry/pkg/bank"
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

const (
	// Name is the application name reported by Info.
	Name = "lottoberry"

	// Version is the application version reported by Info.
	Version = "0.1.0"

	tracerName = "github.com/blockberries/lottoberry/pkg/app"
)

// Application errors.
var (
	ErrNoBlock            = errors.New("no block in progress")
	ErrBlockInProgress    = errors.New("block already in progress")
	ErrUnexpectedHeight   = errors.New("unexpected block height")
	ErrUnknownQueryPath   = errors.New("unknown query path")
	ErrVersionUnavailable = errors.New("state version unavailable")
	ErrMissingDependency  = errors.New("missing application dependency")
)

// Config holds the application's chain and lottery parameters.
type Config struct {
	ChainID    string
	Params     lottery.Params
	KeepRecent int64
}

// Option configures an Application.
type Option func(*Application)

// WithLogger sets the application logger.
func WithLogger(logger *logging.Logger) Option {
	return func(a *Application) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m metrics.Metrics) Option {
	return func(a *Application) {
		if m != nil {
			a.metrics = m
		}
	}
}

// WithEventBus publishes every successful call's notifications on bus.
func WithEventBus(bus *events.Bus) Option {
	return func(a *Application) {
		a.bus = bus
	}
}

// WithTracerProvider traces transactions and commits with provider.
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(a *Application) {
		if provider != nil {
			a.tracer = provider.Tracer(tracerName)
		}
	}
}

// WithRandomness replaces the block hash randomness source.
func WithRandomness(source randomness.Source) Option {
	return func(a *Application) {
		if source != nil {
			a.source = source
		}
	}
}

// headerObserver is implemented by sources that mix in block data.
type headerObserver interface {
	Observe(header *abi.BlockHeader)
}

// Application is the lottery state machine.
type Application struct {
	cfg      Config
	store    *statestore.IAVLStore
	eventLog *eventlog.Log
	bus      *events.Bus
	metrics  metrics.Metrics
	tracer   trace.Tracer
	logger   *logging.Logger
	source   randomness.Source

	lottery *lottery.Keeper
	auth    *auth.Keeper

	mu        sync.Mutex
	height    uint64
	appHash   []byte
	blockTime time.Time
	current   *abi.BlockHeader
	pending   []eventlog.Record
	txIndex   uint32
}

var _ abi.Application = (*Application)(nil)

// New creates an application over store, logging notifications to eventLog.
// The application resumes from the store's latest committed version.
func New(store *statestore.IAVLStore, eventLog *eventlog.Log, cfg Config, opts ...Option) (*Application, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: state store", ErrMissingDependency)
	}
	if eventLog == nil {
		return nil, fmt.Errorf("%w: event log", ErrMissingDependency)
	}
	if cfg.ChainID == "" {
		return nil, fmt.Errorf("%w: chain id cannot be empty", lottery.ErrInvalidParams)
	}

	a := &Application{
		cfg:      cfg,
		store:    store,
		eventLog: eventLog,
		metrics:  metrics.NewNopMetrics(),
		tracer:   noop.NewTracerProvider().Tracer(tracerName),
		logger:   logging.NewNopLogger(),
		source:   randomness.NewBlockHashSource(cfg.ChainID),
	}
	for _, opt := range opts {
		opt(a)
	}
	base := a.logger
	a.logger = base.WithComponent("app")

	keeper, err := lottery.NewKeeper(store, cfg.Params, a.source)
	if err != nil {
		return nil, err
	}
	keeper.SetLogger(base)
	a.lottery = keeper
	a.auth = auth.NewKeeper(store)

	if version := store.Version(); version > 0 {
		a.height = uint64(version)
		a.appHash = store.RootHash()
	}

	// A crash between the log append and the state commit leaves the log
	// ahead of the store.
	if logged := eventLog.LastHeight(); logged > a.height {
		a.logger.Warn("event log ahead of state, rewinding",
			logging.Height(a.height),
			"logged_height", logged,
		)
		if err := eventLog.Truncate(a.height); err != nil {
			return nil, fmt.Errorf("rewinding event log: %w", err)
		}
	}
	return a, nil
}

// Lottery returns the lottery keeper bound to the working state.
func (a *Application) Lottery() *lottery.Keeper {
	return a.lottery
}

// Info returns information about the last committed block.
func (a *Application) Info() abi.ApplicationInfo {
	a.mu.Lock()
	defer a.mu.Unlock()

	return abi.ApplicationInfo{
		Name:          Name,
		Version:       Version,
		AppHash:       append([]byte(nil), a.appHash...),
		Height:        a.height,
		LastBlockTime: a.blockTime,
	}
}

// InitChain mints the genesis balances and records the sudo account.
func (a *Application) InitChain(genesis *abi.Genesis) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if genesis == nil {
		return fmt.Errorf("%w: nil genesis", types.ErrInvalidGenesis)
	}
	if genesis.ChainID != a.cfg.ChainID {
		return fmt.Errorf("%w: chain id %q, expected %q", types.ErrInvalidGenesis, genesis.ChainID, a.cfg.ChainID)
	}

	sudo, err := a.auth.Sudo()
	if err != nil {
		return err
	}
	if a.store.Version() > 0 || sudo != "" {
		return types.ErrAlreadyInitialized
	}

	state, err := ParseGenesisState(genesis.AppState)
	if err != nil {
		return err
	}

	branch := statestore.NewBranch(a.store)
	ledger, err := bank.NewKeeper(branch, a.cfg.Params.ExistentialDeposit)
	if err != nil {
		return err
	}
	for _, b := range state.Balances {
		if err := ledger.Mint(types.AccountID(b.Account), types.Amount(b.Amount)); err != nil {
			branch.Discard()
			return fmt.Errorf("minting genesis balance for %s: %w", b.Account, err)
		}
	}
	if err := auth.NewKeeper(branch).SetSudo(types.AccountID(state.Sudo)); err != nil {
		branch.Discard()
		return err
	}
	if err := branch.Write(); err != nil {
		return fmt.Errorf("writing genesis state: %w", err)
	}

	a.blockTime = genesis.GenesisTime
	a.logger.Info("chain initialized",
		logging.ChainID(genesis.ChainID),
		logging.Account(state.Sudo),
		logging.Count(len(state.Balances)),
	)
	return nil
}

// CheckTx validates a transaction against the committed state without executing it.
func (a *Application) CheckTx(ctx context.Context, tx *abi.Transaction) *abi.TxCheckResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	envelope, signer, err := a.authenticate(tx)
	if err == nil {
		err = a.auth.CheckSequence(signer, envelope.Sequence)
	}
	if err == nil && OriginFlag(envelope.Origin) == OriginRoot {
		_, err = a.auth.ResolveOrigin(signer, true)
	}
	if err != nil {
		return &abi.TxCheckResult{Code: ResultCodeOf(err), Error: err}
	}
	return &abi.TxCheckResult{
		Code:   abi.CodeOK,
		Sender: signer.Bytes(),
		Nonce:  envelope.Sequence,
	}
}

// BeginBlock opens the next block and feeds its header to the randomness source.
func (a *Application) BeginBlock(ctx context.Context, header *abi.BlockHeader) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if header == nil {
		return fmt.Errorf("%w: nil header", ErrUnexpectedHeight)
	}
	if a.current != nil {
		return ErrBlockInProgress
	}
	if header.Height != a.height+1 {
		return fmt.Errorf("%w: got %d, expected %d", ErrUnexpectedHeight, header.Height, a.height+1)
	}

	if obs, ok := a.source.(headerObserver); ok {
		obs.Observe(header)
	}
	a.current = header
	a.pending = nil
	a.txIndex = 0
	return nil
}

// ExecuteTx runs one transaction in the current block.
// The sender's sequence advances once the envelope authenticates, even if the call fails.
func (a *Application) ExecuteTx(ctx context.Context, tx *abi.Transaction) *abi.TxExecResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := time.Now()
	ctx, span := a.tracer.Start(ctx, "app.ExecuteTx")

	index := a.txIndex
	if a.current != nil {
		a.txIndex++
	}
	call, evts, err := a.deliver(tx)
	code := ResultCodeOf(err)
	span.SetAttributes(
		attribute.String("lottery.call", call.String()),
		attribute.Int64("tx.code", int64(code)),
	)
	a.metrics.IncTxResult(call.String(), uint32(code))
	a.metrics.ObserveTxLatency(call.String(), time.Since(start))

	if err != nil {
		a.logger.Debug("transaction failed",
			logging.Call(call.String()),
			logging.Code(uint32(code)),
			logging.Error(err),
		)
		tracing.Finish(span, err)
		return &abi.TxExecResult{Code: code, Error: err}
	}

	a.record(ctx, index, tx.ComputeHash(), evts)

	tracing.Finish(span, nil)
	return &abi.TxExecResult{Code: abi.CodeOK, Events: evts}
}

// deliver authenticates tx, advances the sender's sequence and runs the call.
func (a *Application) deliver(tx *abi.Transaction) (Call, []abi.Event, error) {
	if a.current == nil {
		return 0, nil, ErrNoBlock
	}

	envelope, signer, err := a.authenticate(tx)
	if err != nil {
		var call Call
		if envelope != nil {
			call = Call(envelope.Call)
		}
		return call, nil, err
	}
	call := Call(envelope.Call)

	if err := a.auth.CheckSequence(signer, envelope.Sequence); err != nil {
		return call, nil, err
	}
	if err := a.auth.IncrementSequence(signer); err != nil {
		return call, nil, err
	}

	origin, err := a.auth.ResolveOrigin(signer, OriginFlag(envelope.Origin) == OriginRoot)
	if err != nil {
		return call, nil, err
	}

	var evts []abi.Event
	switch call {
	case CallEnter:
		evts, err = a.lottery.Enter(origin)
	case CallCloseRound:
		evts, err = a.lottery.CloseRound(origin)
	default:
		err = fmt.Errorf("%w: %d", types.ErrUnknownCall, envelope.Call)
	}
	return call, evts, types.WrapCallError(err, call.String())
}

func (a *Application) authenticate(tx *abi.Transaction) (*Tx, types.AccountID, error) {
	if err := tx.ValidateBasic(); err != nil {
		return nil, "", err
	}
	envelope, err := DecodeTx(tx.Data)
	if err != nil {
		return nil, "", err
	}
	signer, err := envelope.Verify(a.cfg.ChainID)
	if err != nil {
		return envelope, "", err
	}
	return envelope, signer, nil
}

// record queues evts for the event log, updates metrics and publishes them.
func (a *Application) record(ctx context.Context, txIndex uint32, txHash []byte, evts []abi.Event) {
	for i, e := range evts {
		a.pending = append(a.pending, eventlog.NewRecord(a.current.Height, txIndex, uint32(i), txHash, e))

		switch e.Type {
		case abi.EventTicketBought:
			a.metrics.IncTicketsBought()
		case abi.EventPrizeAwarded:
			a.metrics.IncRoundsSettled()
		case abi.EventNoParticipants:
			a.metrics.IncEmptyRounds()
		}
	}
	a.updateGauges()

	if a.bus == nil || len(evts) == 0 {
		return
	}
	if err := a.bus.PublishAll(ctx, evts); err != nil {
		a.logger.Warn("publishing events", logging.Error(err))
	}
}

func (a *Application) updateGauges() {
	participants, err := a.lottery.Participants()
	if err != nil {
		a.logger.Warn("reading participants", logging.Error(err))
		return
	}
	pot, err := a.lottery.Pot()
	if err != nil {
		a.logger.Warn("reading pot", logging.Error(err))
		return
	}
	nonce, err := a.lottery.Nonce()
	if err != nil {
		a.logger.Warn("reading nonce", logging.Error(err))
		return
	}
	a.metrics.SetParticipants(len(participants))
	a.metrics.SetPot(uint64(pot))
	a.metrics.SetNonce(nonce)
}

// EndBlock closes the current block.
func (a *Application) EndBlock(ctx context.Context) *abi.EndBlockResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.current == nil {
		return &abi.EndBlockResult{}
	}
	event := abi.NewEvent(abi.EventNewBlock).
		AddStringAttribute(abi.AttributeKeyHeight, fmt.Sprintf("%d", a.current.Height))
	return &abi.EndBlockResult{Events: []abi.Event{event}}
}

// Commit saves the block's state as a new version and flushes its notifications.
func (a *Application) Commit(ctx context.Context) *abi.CommitResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := time.Now()
	ctx, span := a.tracer.Start(ctx, "app.Commit")

	res, err := a.commit()
	if err != nil {
		tracing.Finish(span, err)
		return &abi.CommitResult{Error: err}
	}
	span.SetAttributes(
		attribute.Int64("block.height", int64(res.Height)),
		attribute.Int("block.events", len(a.pending)),
	)

	a.metrics.ObserveCommitLatency(time.Since(start))
	a.metrics.SetHeight(res.Height)
	a.metrics.SetStateVersion(a.store.Version())
	a.metrics.AddEventsLogged(len(a.pending))

	a.logger.Info("block committed",
		logging.Height(res.Height),
		logging.Hash(res.AppHash),
		logging.Count(len(a.pending)),
	)

	a.pending = nil
	a.current = nil

	if a.bus != nil {
		event := abi.NewEvent(abi.EventCommit).
			AddStringAttribute(abi.AttributeKeyHeight, fmt.Sprintf("%d", res.Height)).
			AddAttribute(abi.AttributeKeyHash, res.AppHash)
		if err := a.bus.Publish(ctx, event); err != nil {
			a.logger.Warn("publishing commit", logging.Error(err))
		}
	}

	tracing.Finish(span, nil)
	return res
}

func (a *Application) commit() (*abi.CommitResult, error) {
	if a.current == nil {
		return nil, ErrNoBlock
	}

	height := a.current.Height

	// The log is written first so a failed append leaves the state store
	// untouched. A failed state commit takes the appended height back out.
	if err := a.eventLog.Append(height, a.pending); err != nil {
		return nil, fmt.Errorf("logging events: %w", err)
	}

	hash, version, err := a.store.Commit()
	if err != nil {
		if terr := a.eventLog.Truncate(height - 1); terr != nil {
			a.logger.Error("rewinding event log", logging.Height(height-1), logging.Error(terr))
		}
		return nil, fmt.Errorf("committing state: %w", err)
	}

	if target := statestore.PruneTarget(version, a.cfg.KeepRecent); target > 0 {
		pruned, err := a.store.PruneVersions(target)
		if err != nil {
			a.logger.Warn("pruning state", logging.Version(target), logging.Error(err))
		} else if pruned.PrunedCount > 0 {
			a.logger.Debug("pruned state",
				logging.Count(int(pruned.PrunedCount)),
				logging.Version(pruned.OldestVersion),
			)
		}
	}

	a.height = height
	a.appHash = hash
	a.blockTime = a.current.Time
	return &abi.CommitResult{AppHash: hash, Height: height}, nil
}
