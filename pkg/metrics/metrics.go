// Package metrics collects lottery and application metrics.
package metrics

import (
	"net/http"
	"time"
)

// Metrics defines the interface for collecting application metrics.
// All methods are designed to be thread-safe and non-blocking.
type Metrics interface {
	// Lottery metrics
	IncTicketsBought()
	IncRoundsSettled()
	IncEmptyRounds()
	SetParticipants(count int)
	SetPot(amount uint64)
	SetNonce(nonce uint64)

	// Transaction metrics
	IncTxResult(call string, code uint32)
	ObserveTxLatency(call string, latency time.Duration)

	// Block metrics
	SetHeight(height uint64)
	ObserveCommitLatency(latency time.Duration)
	SetStateVersion(version int64)
	AddEventsLogged(count int)

	// HTTPHandler serves the metrics.
	HTTPHandler() http.Handler
}

// Call labels.
const (
	CallEnter      = "enter"
	CallCloseRound = "close_round"
	CallUnknown    = "unknown"
)
