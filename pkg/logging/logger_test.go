package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTextLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewTextLogger(buf, slog.LevelInfo)
	require.NotNil(t, logger)

	logger.Info("test message", "key", "value")

	output := buf.String()
	assert.Contains(t, output, "test message")
	assert.Contains(t, output, "key=value")
}

func TestNewJSONLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewJSONLogger(buf, slog.LevelInfo)
	require.NotNil(t, logger)

	logger.Info("test message", "key", "value")

	var parsed map[string]any
	err := json.Unmarshal(buf.Bytes(), &parsed)
	require.NoError(t, err)
	assert.Equal(t, "test message", parsed["msg"])
	assert.Equal(t, "value", parsed["key"])
}

func TestNewNopLogger(t *testing.T) {
	logger := NewNopLogger()
	require.NotNil(t, logger)

	// Must not panic
	logger.Debug("debug message")
	logger.Info("info message")
	logger.With("k", "v").Error("error message")
}

func TestNewPrettyLogger(t *testing.T) {
	require.NotNil(t, NewPrettyLogger(slog.LevelInfo))

	assert.Equal(t, pterm.LogLevelDebug, ptermLevel(slog.LevelDebug))
	assert.Equal(t, pterm.LogLevelInfo, ptermLevel(slog.LevelInfo))
	assert.Equal(t, pterm.LogLevelWarn, ptermLevel(slog.LevelWarn))
	assert.Equal(t, pterm.LogLevelError, ptermLevel(slog.LevelError))
}

func TestLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewTextLogger(buf, slog.LevelWarn)

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestLogger_WithComponent(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewTextLogger(buf, slog.LevelInfo)

	logger.WithComponent("lottery").Info("component message")

	assert.Contains(t, buf.String(), "component=lottery")
}

func TestAttributeConstructors(t *testing.T) {
	tests := []struct {
		name     string
		attr     slog.Attr
		expected string
	}{
		{"Component", Component("bank"), "component=bank"},
		{"Account", Account("abcd"), "account=abcd"},
		{"Height", Height(12345), "height=12345"},
		{"Nonce", Nonce(7), "nonce=7"},
		{"Amount", Amount(30), "amount=30"},
		{"Call", Call("enter"), "call=enter"},
		{"Code", Code(101), "code=101"},
		{"Hash", Hash([]byte{0xde, 0xad, 0xbe, 0xef}), "hash=deadbeef"},
		{"TxHash", TxHash([]byte{0xca, 0xfe}), "tx_hash=cafe"},
		{"Count", Count(42), "count=42"},
		{"Index", Index(5), "index=5"},
		{"Version", Version(3), "version=3"},
		{"ChainID", ChainID("lotto-1"), "chain_id=lotto-1"},
		{"Reason", Reason("capacity"), "reason=capacity"},
		{"Error", Error(errors.New("boom")), "error=boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := NewTextLogger(buf, slog.LevelInfo)
			logger.Info("test", tt.attr)

			assert.Contains(t, buf.String(), tt.expected)
		})
	}
}

func TestErrorAttributeNil(t *testing.T) {
	require.Equal(t, slog.Attr{}, Error(nil))
}

func TestDurationAttribute(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewJSONLogger(buf, slog.LevelInfo)

	logger.Info("test", Duration(150*time.Millisecond))

	var parsed map[string]any
	err := json.Unmarshal(buf.Bytes(), &parsed)
	require.NoError(t, err)
	assert.InDelta(t, 150.0, parsed["duration_ms"], 0.1)
}
