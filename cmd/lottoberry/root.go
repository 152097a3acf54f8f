package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blockberries/lottoberry/pkg/app"
	"github.com/blockberries/lottoberry/pkg/config"
	"github.com/blockberries/lottoberry/pkg/logging"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"

	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "lottoberry",
	Short: "Lottoberry round-based lottery chain",
	Long: `Lottoberry runs a round-based lottery on a Merkle-backed ledger.

Accounts pay a fixed entry fee into a module-owned pot. The sudo account
closes each round, which draws one participant and pays them the whole pot.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.toml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Lottoberry %s\n", Version)
		fmt.Printf("  App version: %s\n", app.Version)
		fmt.Printf("  Git commit:  %s\n", GitCommit)
		fmt.Printf("  Built:       %s\n", BuildTime)
	},
}

// createLogger creates a logger based on configuration.
func createLogger(cfg config.LoggingConfig) *logging.Logger {
	level := logging.ParseLevel(cfg.Level)
	if verbose {
		level = logging.ParseLevel("debug")
	}

	var w = os.Stderr
	switch strings.ToLower(cfg.Output) {
	case "stdout":
		w = os.Stdout
	case "stderr", "":
		w = os.Stderr
	}

	switch strings.ToLower(cfg.Format) {
	case "json":
		return logging.NewJSONLogger(w, level)
	case "pretty":
		return logging.NewPrettyLogger(level)
	default:
		return logging.NewTextLogger(w, level)
	}
}
