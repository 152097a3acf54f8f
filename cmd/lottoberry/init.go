package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/blockberries/lottoberry/pkg/config"
)

var (
	initChainID  string
	initDataDir  string
	initPlayers  int
	initBalance  uint64
	initOverride bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new chain",
	Long: `Initialize a new Lottoberry chain with configuration, genesis and keys.

This command creates:
  - config.toml: Node configuration
  - genesis.json: Genesis document funding the sudo account and simulation players
  - sudo_key.json: Key of the account allowed to close rounds
  - data/: Data directory for state and events

Example:
  lottoberry init --chain-id mychain --players 8`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initChainID, "chain-id", "lottoberry-testnet-1", "chain ID for the network")
	initCmd.Flags().StringVar(&initDataDir, "data-dir", ".", "directory for configuration and data")
	initCmd.Flags().IntVar(&initPlayers, "players", 5, "number of simulation players to fund at genesis")
	initCmd.Flags().Uint64Var(&initBalance, "balance", 100, "genesis balance of each funded account")
	initCmd.Flags().BoolVar(&initOverride, "force", false, "override existing configuration")
}

func runInit(cmd *cobra.Command, args []string) error {
	dataDir := initDataDir
	if dataDir == "" {
		dataDir = "."
	}
	if initPlayers < 0 {
		return fmt.Errorf("players must be non-negative")
	}

	configPath := filepath.Join(dataDir, "config.toml")
	if _, err := os.Stat(configPath); err == nil && !initOverride {
		return fmt.Errorf("config.toml already exists; use --force to override")
	}

	cfg := config.DefaultConfig()
	cfg.Node.ChainID = initChainID
	cfg.Node.GenesisPath = filepath.Join(dataDir, "genesis.json")
	cfg.StateStore.Path = filepath.Join(dataDir, "data", "state")
	cfg.EventLog.Path = filepath.Join(dataDir, "data", "events")
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.EnsureDataDirs(); err != nil {
		return err
	}

	_, sudo, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("generating sudo key: %w", err)
	}
	keyPath := filepath.Join(dataDir, "sudo_key.json")
	sudoKey, err := writeKeyFile(keyPath, sudo)
	if err != nil {
		return err
	}

	doc, err := newGenesisDoc(initChainID, sudo, initPlayers, initBalance)
	if err != nil {
		return err
	}
	if err := writeGenesisFile(cfg.Node.GenesisPath, doc); err != nil {
		return err
	}

	if err := config.WriteConfigFile(configPath, cfg); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Printf("Initialized Lottoberry chain\n")
	fmt.Printf("  Chain ID:    %s\n", initChainID)
	fmt.Printf("  Sudo:        %s\n", sudoKey.Account)
	fmt.Printf("  Players:     %d\n", initPlayers)
	fmt.Printf("  Config:      %s\n", configPath)
	fmt.Printf("  Genesis:     %s\n", cfg.Node.GenesisPath)
	fmt.Printf("  Data dir:    %s\n", filepath.Join(dataDir, "data"))

	return nil
}
