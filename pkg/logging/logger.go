// Package logging provides the structured logger used across lottoberry.
package logging

import (
	"context"
	"encoding/hex"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/pterm/pterm"
)

// Logger wraps slog.Logger with convenience methods for common logging patterns.
type Logger struct {
	*slog.Logger
}

// New creates a new Logger with the given handler.
func New(handler slog.Handler) *Logger {
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a new Logger with text output format.
func NewTextLogger(w io.Writer, level slog.Level) *Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: false,
	}
	return New(slog.NewTextHandler(w, opts))
}

// NewJSONLogger creates a new Logger with JSON output format.
func NewJSONLogger(w io.Writer, level slog.Level) *Logger {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: false,
	}
	return New(slog.NewJSONHandler(w, opts))
}

// NewPrettyLogger creates a logger that renders colored output through pterm.
// Intended for interactive CLI commands.
func NewPrettyLogger(level slog.Level) *Logger {
	return New(pterm.NewSlogHandler(pterm.DefaultLogger.WithLevel(ptermLevel(level))))
}

func ptermLevel(level slog.Level) pterm.LogLevel {
	switch {
	case level <= slog.LevelDebug:
		return pterm.LogLevelDebug
	case level <= slog.LevelInfo:
		return pterm.LogLevelInfo
	case level <= slog.LevelWarn:
		return pterm.LogLevelWarn
	default:
		return pterm.LogLevelError
	}
}

// NewNopLogger creates a logger that discards all output.
func NewNopLogger() *Logger {
	return New(nopHandler{})
}

// ParseLevel maps a config level name to a slog level. Unknown names map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a new Logger with the given attributes added to every log entry.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// WithComponent returns a new Logger with a component attribute.
func (l *Logger) WithComponent(name string) *Logger {
	return l.With(Component(name))
}

// Common attribute constructors for ledger-specific fields.

// Component creates a component attribute for identifying the source module.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Account creates an account attribute.
func Account(id string) slog.Attr {
	return slog.String("account", id)
}

// Height creates a block height attribute.
func Height(h uint64) slog.Attr {
	return slog.Uint64("height", h)
}

// Nonce creates a randomness nonce attribute.
func Nonce(n uint64) slog.Attr {
	return slog.Uint64("nonce", n)
}

// Amount creates an amount attribute.
func Amount(a uint64) slog.Attr {
	return slog.Uint64("amount", a)
}

// Call creates a call name attribute.
func Call(name string) slog.Attr {
	return slog.String("call", name)
}

// Code creates a result code attribute.
func Code(c uint32) slog.Attr {
	return slog.Uint64("code", uint64(c))
}

// Hash creates a hash attribute (hex-encoded).
func Hash(h []byte) slog.Attr {
	return slog.String("hash", hex.EncodeToString(h))
}

// TxHash creates a transaction hash attribute (hex-encoded).
func TxHash(h []byte) slog.Attr {
	return slog.String("tx_hash", hex.EncodeToString(h))
}

// Duration creates a duration attribute in milliseconds.
func Duration(d time.Duration) slog.Attr {
	return slog.Float64("duration_ms", float64(d.Nanoseconds())/1e6)
}

// Count creates a count attribute.
func Count(n int) slog.Attr {
	return slog.Int("count", n)
}

// Index creates an index attribute.
func Index(n int) slog.Attr {
	return slog.Int("index", n)
}

// Version creates a version attribute.
func Version(v int64) slog.Attr {
	return slog.Int64("version", v)
}

// ChainID creates a chain ID attribute.
func ChainID(id string) slog.Attr {
	return slog.String("chain_id", id)
}

// Reason creates a reason attribute.
func Reason(r string) slog.Attr {
	return slog.String("reason", r)
}

// Error creates an error attribute.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}

// nopHandler is a slog.Handler that discards all logs.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h nopHandler) WithGroup(string) slog.Handler           { return h }
