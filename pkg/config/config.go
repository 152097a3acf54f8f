// Package config loads and validates lottoberry node configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the main configuration for a lottoberry node.
type Config struct {
	Node       NodeConfig       `toml:"node"`
	Lottery    LotteryConfig    `toml:"lottery"`
	Bank       BankConfig       `toml:"bank"`
	StateStore StateStoreConfig `toml:"statestore"`
	EventLog   EventLogConfig   `toml:"eventlog"`
	EventBus   EventBusConfig   `toml:"eventbus"`
	Metrics    MetricsConfig    `toml:"metrics"`
	Tracing    TracingConfig    `toml:"tracing"`
	Logging    LoggingConfig    `toml:"logging"`
}

// NodeConfig contains node identity and chain configuration.
type NodeConfig struct {
	// ChainID is the unique identifier for the chain. It is part of every sign doc.
	ChainID string `toml:"chain_id"`

	// GenesisPath is the path to the genesis document.
	GenesisPath string `toml:"genesis_path"`
}

// LotteryConfig contains the immutable lottery parameters.
type LotteryConfig struct {
	// EntryFee is the amount each participant pays to enter a round.
	EntryFee uint64 `toml:"entry_fee"`

	// Capacity is the maximum number of participants in one round.
	Capacity int `toml:"capacity"`

	// ModuleID derives the pot account that holds the escrow.
	ModuleID string `toml:"module_id"`
}

// BankConfig contains balance ledger parameters.
type BankConfig struct {
	// ExistentialDeposit is the minimum balance an account must hold to exist.
	ExistentialDeposit uint64 `toml:"existential_deposit"`
}

// StateStoreConfig contains state storage configuration.
type StateStoreConfig struct {
	// Path is the directory path for state storage. Empty keeps state in memory.
	Path string `toml:"path"`

	// CacheSize is the IAVL node cache size.
	CacheSize int `toml:"cache_size"`

	// KeepRecent is the number of committed versions retained after each commit.
	// Zero keeps every version.
	KeepRecent int64 `toml:"keep_recent"`
}

// EventLogConfig contains notification log configuration.
type EventLogConfig struct {
	// Path is the directory path for the event log. Empty keeps the log in memory.
	Path string `toml:"path"`
}

// EventBusConfig contains event bus configuration.
type EventBusConfig struct {
	// BufferSize is the channel buffer size per subscriber.
	BufferSize int `toml:"buffer_size"`

	// PublishTimeout bounds how long a publish waits on a slow subscriber.
	PublishTimeout Duration `toml:"publish_timeout"`
}

// MetricsConfig contains metrics configuration.
type MetricsConfig struct {
	// Enabled determines whether metrics collection is active.
	Enabled bool `toml:"enabled"`

	// Namespace is the Prometheus metrics namespace prefix.
	Namespace string `toml:"namespace"`

	// ListenAddr is the address to serve metrics on (e.g., ":9090").
	ListenAddr string `toml:"listen_addr"`
}

// TracingConfig contains OpenTelemetry tracing configuration.
type TracingConfig struct {
	// Enabled determines whether spans are exported.
	Enabled bool `toml:"enabled"`

	// Exporter is the span exporter ("none", "stdout", "otlp-http" or "otlp-grpc").
	Exporter string `toml:"exporter"`

	// Endpoint is the collector address for the OTLP exporters.
	Endpoint string `toml:"endpoint"`

	// SampleRate is the fraction of traces sampled, between 0 and 1.
	SampleRate float64 `toml:"sample_rate"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string `toml:"level"`

	// Format is the log output format ("text", "json" or "pretty").
	Format string `toml:"format"`

	// Output is the log output destination ("stdout" or "stderr").
	Output string `toml:"output"`
}

// Duration is a wrapper around time.Duration for TOML unmarshaling.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for Duration.
func (d *Duration) UnmarshalText(text []byte) error {
	duration, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(duration)
	return nil
}

// MarshalText implements encoding.TextMarshaler for Duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Node: NodeConfig{
			ChainID:     "lottoberry-testnet-1",
			GenesisPath: "genesis.json",
		},
		Lottery: LotteryConfig{
			EntryFee: 10,
			Capacity: 10,
			ModuleID: "py/lotto",
		},
		Bank: BankConfig{
			ExistentialDeposit: 1,
		},
		StateStore: StateStoreConfig{
			Path:       "data/state",
			CacheSize:  10000,
			KeepRecent: 100,
		},
		EventLog: EventLogConfig{
			Path: "data/events",
		},
		EventBus: EventBusConfig{
			BufferSize:     100,
			PublishTimeout: Duration(100 * time.Millisecond),
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			Namespace:  "lottoberry",
			ListenAddr: ":9090",
		},
		Tracing: TracingConfig{
			Enabled:    false,
			Exporter:   "none",
			Endpoint:   "localhost:4318",
			SampleRate: 1.0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// LoadConfig loads configuration from a TOML file.
// Missing values are filled with defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validation errors.
var (
	ErrEmptyChainID              = errors.New("chain_id cannot be empty")
	ErrEmptyGenesisPath          = errors.New("genesis_path cannot be empty")
	ErrInvalidEntryFee           = errors.New("entry_fee must be positive")
	ErrEntryFeeBelowDeposit      = errors.New("entry_fee must not be below the existential deposit")
	ErrInvalidCapacity           = errors.New("capacity must be at least 1")
	ErrEmptyModuleID             = errors.New("module_id cannot be empty")
	ErrInvalidExistentialDeposit = errors.New("existential_deposit must be positive")
	ErrInvalidStateCacheSize     = errors.New("statestore cache_size must be non-negative")
	ErrInvalidKeepRecent         = errors.New("statestore keep_recent must be non-negative")
	ErrInvalidBusBufferSize      = errors.New("eventbus buffer_size must be positive")
	ErrInvalidPublishTimeout     = errors.New("eventbus publish_timeout must be positive")
	ErrEmptyMetricsNamespace     = errors.New("metrics namespace cannot be empty when enabled")
	ErrEmptyMetricsListenAddr    = errors.New("metrics listen_addr cannot be empty when enabled")
	ErrInvalidTraceExporter      = errors.New("tracing exporter must be 'none', 'stdout', 'otlp-http' or 'otlp-grpc'")
	ErrInvalidSampleRate         = errors.New("tracing sample_rate must be between 0 and 1")
	ErrInvalidLogLevel           = errors.New("log level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat          = errors.New("log format must be 'text', 'json' or 'pretty'")
	ErrInvalidLogOutput          = errors.New("log output must be 'stdout' or 'stderr'")
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if err := c.Node.Validate(); err != nil {
		return fmt.Errorf("node config: %w", err)
	}
	if err := c.Bank.Validate(); err != nil {
		return fmt.Errorf("bank config: %w", err)
	}
	if err := c.Lottery.Validate(); err != nil {
		return fmt.Errorf("lottery config: %w", err)
	}
	if c.Lottery.EntryFee < c.Bank.ExistentialDeposit {
		return fmt.Errorf("lottery config: %w", ErrEntryFeeBelowDeposit)
	}
	if err := c.StateStore.Validate(); err != nil {
		return fmt.Errorf("statestore config: %w", err)
	}
	if err := c.EventBus.Validate(); err != nil {
		return fmt.Errorf("eventbus config: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}
	if err := c.Tracing.Validate(); err != nil {
		return fmt.Errorf("tracing config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

// Validate checks the node configuration for errors.
func (c *NodeConfig) Validate() error {
	if c.ChainID == "" {
		return ErrEmptyChainID
	}
	if c.GenesisPath == "" {
		return ErrEmptyGenesisPath
	}
	return nil
}

// Validate checks the lottery configuration for errors.
func (c *LotteryConfig) Validate() error {
	if c.EntryFee == 0 {
		return ErrInvalidEntryFee
	}
	if c.Capacity < 1 {
		return ErrInvalidCapacity
	}
	if c.ModuleID == "" {
		return ErrEmptyModuleID
	}
	return nil
}

// Validate checks the bank configuration for errors.
func (c *BankConfig) Validate() error {
	if c.ExistentialDeposit == 0 {
		return ErrInvalidExistentialDeposit
	}
	return nil
}

// Validate checks the state store configuration for errors.
func (c *StateStoreConfig) Validate() error {
	if c.CacheSize < 0 {
		return ErrInvalidStateCacheSize
	}
	if c.KeepRecent < 0 {
		return ErrInvalidKeepRecent
	}
	return nil
}

// Validate checks the event bus configuration for errors.
func (c *EventBusConfig) Validate() error {
	if c.BufferSize <= 0 {
		return ErrInvalidBusBufferSize
	}
	if c.PublishTimeout.Duration() <= 0 {
		return ErrInvalidPublishTimeout
	}
	return nil
}

// Validate checks the metrics configuration for errors.
func (c *MetricsConfig) Validate() error {
	if c.Enabled {
		if c.Namespace == "" {
			return ErrEmptyMetricsNamespace
		}
		if c.ListenAddr == "" {
			return ErrEmptyMetricsListenAddr
		}
	}
	return nil
}

// Validate checks the tracing configuration for errors.
func (c *TracingConfig) Validate() error {
	switch c.Exporter {
	case "none", "stdout", "otlp-http", "otlp-grpc":
	default:
		return ErrInvalidTraceExporter
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return ErrInvalidSampleRate
	}
	return nil
}

// Validate checks the logging configuration for errors.
func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		return ErrInvalidLogLevel
	}

	switch c.Format {
	case "text", "json", "pretty":
		// Valid formats
	default:
		return ErrInvalidLogFormat
	}

	switch c.Output {
	case "stdout", "stderr":
	default:
		return ErrInvalidLogOutput
	}

	return nil
}

// WriteConfigFile writes the configuration to a TOML file.
func WriteConfigFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	return nil
}

// EnsureDataDirs creates the data directories specified in the configuration.
func (c *Config) EnsureDataDirs() error {
	dirs := []string{
		filepath.Dir(c.Node.GenesisPath),
		c.StateStore.Path,
		c.EventLog.Path,
	}

	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	return nil
}
