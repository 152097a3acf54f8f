package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/blockberries/lottoberry/pkg/abi"
	"github.com/blockberries/lottoberry/pkg/app"
	"github.com/blockberries/lottoberry/pkg/config"
	"github.com/blockberries/lottoberry/pkg/eventlog"
	"github.com/blockberries/lottoberry/pkg/logging"
	"github.com/blockberries/lottoberry/pkg/node"
	"github.com/blockberries/lottoberry/pkg/types"
)

var (
	simRounds   int
	simPlayers  int
	simBalance  uint64
	simInMemory bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Play lottery rounds against the application",
	Long: `Play a number of lottery rounds, one block per round.

Every funded player enters each round, then the sudo account closes it.
Winners are collected from the event bus and printed as a table.

With --in-memory a throwaway chain is created and no files are needed.
Otherwise the chain created by 'lottoberry init' is used and resumed.

Example:
  lottoberry simulate --in-memory --rounds 10 --players 4
  lottoberry simulate --config config.toml --rounds 3`,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().IntVar(&simRounds, "rounds", 5, "number of rounds to play")
	simulateCmd.Flags().IntVar(&simPlayers, "players", 5, "number of players entering each round")
	simulateCmd.Flags().Uint64Var(&simBalance, "balance", 100, "genesis balance per account (in-memory only)")
	simulateCmd.Flags().BoolVar(&simInMemory, "in-memory", false, "run against a fresh in-memory chain")
}

// roundResult summarizes one simulated round.
type roundResult struct {
	Round    int
	Height   uint64
	Entrants int
	Winner   string
	Prize    string
}

// simulation drives blocks through the application.
type simulation struct {
	app     *app.Application
	log     *eventlog.Log
	chainID string
	sudo    ed25519.PrivateKey
	players []ed25519.PrivateKey
	notes   <-chan abi.Event
	logger  *logging.Logger
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if simRounds < 1 {
		return fmt.Errorf("rounds must be at least 1")
	}
	if simPlayers < 0 {
		return fmt.Errorf("players must be non-negative")
	}

	cfg, err := simulationConfig()
	if err != nil {
		return err
	}
	logger := createLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	n, err := node.NewNodeBuilder(cfg).WithLogger(logger).Build()
	if err != nil {
		return err
	}
	if err := n.Start(); err != nil {
		return err
	}
	defer func() {
		if err := n.Stop(); err != nil {
			logger.Error("stopping node", logging.Error(err))
		}
	}()
	application := n.App()

	sudo, doc, err := simulationGenesis(cfg)
	if err != nil {
		return err
	}
	if err := application.InitChain(doc.ToGenesis()); err != nil && !errors.Is(err, types.ErrAlreadyInitialized) {
		return fmt.Errorf("initializing chain: %w", err)
	}

	notes, err := n.Bus().Subscribe(ctx, "simulate", abi.QueryEventTypes{
		EventTypes: []string{abi.EventPrizeAwarded, abi.EventNoParticipants},
	})
	if err != nil {
		return fmt.Errorf("subscribing to settlements: %w", err)
	}

	sim := &simulation{
		app:     application,
		log:     n.EventLog(),
		chainID: cfg.Node.ChainID,
		sudo:    sudo,
		notes:   notes,
		logger:  logger.WithComponent("simulate"),
	}
	for i := 0; i < simPlayers; i++ {
		sim.players = append(sim.players, playerKey(cfg.Node.ChainID, i))
	}

	results, err := sim.run(ctx, simRounds)
	renderResults(results)
	if err != nil {
		return err
	}

	if len(results) > 0 {
		logged, err := sim.log.Search(results[0].Height, results[len(results)-1].Height,
			abi.QueryEventType{EventType: abi.EventPrizeAwarded})
		if err != nil {
			return fmt.Errorf("reading event log: %w", err)
		}
		pterm.Info.Printfln("Event log holds %d prize records for heights %d-%d",
			len(logged), results[0].Height, results[len(results)-1].Height)
	}
	return nil
}

func simulationConfig() (*config.Config, error) {
	if simInMemory {
		cfg := config.DefaultConfig()
		if _, err := os.Stat(cfgFile); err == nil {
			loaded, err := config.LoadConfig(cfgFile)
			if err != nil {
				return nil, fmt.Errorf("loading config: %w", err)
			}
			cfg = loaded
		}
		cfg.StateStore.Path = ""
		cfg.EventLog.Path = ""
		return cfg, nil
	}

	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// simulationGenesis returns the sudo key and genesis document to run with.
func simulationGenesis(cfg *config.Config) (ed25519.PrivateKey, *GenesisDoc, error) {
	if simInMemory {
		_, sudo, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, nil, fmt.Errorf("generating sudo key: %w", err)
		}
		doc, err := newGenesisDoc(cfg.Node.ChainID, sudo, simPlayers, simBalance)
		if err != nil {
			return nil, nil, err
		}
		return sudo, doc, nil
	}

	key, err := readKeyFile(filepath.Join(filepath.Dir(cfgFile), "sudo_key.json"))
	if err != nil {
		return nil, nil, err
	}
	sudo, err := key.PrivateKey()
	if err != nil {
		return nil, nil, err
	}
	doc, err := readGenesisFile(cfg.Node.GenesisPath)
	if err != nil {
		return nil, nil, err
	}
	return sudo, doc, nil
}

// run plays rounds until done or ctx is cancelled.
func (s *simulation) run(ctx context.Context, rounds int) ([]roundResult, error) {
	var results []roundResult
	for i := 1; i <= rounds; i++ {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := s.playRound(ctx, i)
		if err != nil {
			return results, fmt.Errorf("round %d: %w", i, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *simulation) playRound(ctx context.Context, round int) (roundResult, error) {
	info := s.app.Info()
	header := &abi.BlockHeader{
		Height:   info.Height + 1,
		Time:     time.Now().UTC(),
		PrevHash: info.AppHash,
	}
	if err := s.app.BeginBlock(ctx, header); err != nil {
		return roundResult{}, err
	}

	result := roundResult{Round: round, Height: header.Height}
	for _, player := range s.players {
		res, err := s.submit(ctx, player, app.CallEnter, app.OriginSigned)
		if err != nil {
			return result, err
		}
		if res.IsOK() {
			result.Entrants++
			continue
		}
		s.logger.Debug("entry rejected", logging.Code(uint32(res.Code)), logging.Error(res.Error))
	}

	closed, err := s.submit(ctx, s.sudo, app.CallCloseRound, app.OriginRoot)
	if err != nil {
		return result, err
	}

	s.app.EndBlock(ctx)
	if commit := s.app.Commit(ctx); commit.Error != nil {
		return result, commit.Error
	}
	if !closed.IsOK() {
		return result, fmt.Errorf("closing round: %w", closed.Error)
	}

	s.collect(&result)
	return result, nil
}

// collect reads the settlement notification published for the round.
func (s *simulation) collect(result *roundResult) {
	for {
		select {
		case event := <-s.notes:
			if event.Type == abi.EventNoParticipants {
				result.Winner = "-"
				result.Prize = "0"
				continue
			}
			result.Winner, _ = event.Attribute(abi.AttributeKeyAccount)
			result.Prize, _ = event.Attribute(abi.AttributeKeyAmount)
		default:
			return
		}
	}
}

// submit signs and executes call for key with its current sequence.
func (s *simulation) submit(ctx context.Context, key ed25519.PrivateKey, call app.Call, origin app.OriginFlag) (*abi.TxExecResult, error) {
	account, err := types.AccountFromPubKey(key.Public().(ed25519.PublicKey))
	if err != nil {
		return nil, err
	}
	resp := s.app.Query(ctx, &abi.QueryRequest{Path: app.PathSequence + account.String()})
	if !resp.IsOK() {
		return nil, fmt.Errorf("querying sequence: %w", resp.Error)
	}
	seq, err := types.DecodeUint64(resp.Value)
	if err != nil {
		return nil, err
	}

	data, err := app.EncodeTx(key, s.chainID, call, origin, seq)
	if err != nil {
		return nil, err
	}
	return s.app.ExecuteTx(ctx, &abi.Transaction{Data: data}), nil
}

func renderResults(results []roundResult) {
	if len(results) == 0 {
		pterm.Warning.Println("No rounds played")
		return
	}

	data := pterm.TableData{{"Round", "Height", "Entrants", "Winner", "Prize"}}
	settled := 0
	for _, r := range results {
		if r.Winner != "" && r.Winner != "-" {
			settled++
		}
		data = append(data, []string{
			strconv.Itoa(r.Round),
			strconv.FormatUint(r.Height, 10),
			strconv.Itoa(r.Entrants),
			r.Winner,
			r.Prize,
		})
	}

	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		pterm.Error.Printfln("rendering results: %v", err)
	}
	pterm.Success.Printfln("Played %d rounds, %d settled with a winner", len(results), settled)
}
