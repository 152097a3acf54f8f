package metrics

import (
	"net/http"
	"time"
)

// NopMetrics is a no-op implementation of Metrics.
type NopMetrics struct{}

// NewNopMetrics creates a new NopMetrics instance.
func NewNopMetrics() *NopMetrics {
	return &NopMetrics{}
}

func (m *NopMetrics) IncTicketsBought()         {}
func (m *NopMetrics) IncRoundsSettled()         {}
func (m *NopMetrics) IncEmptyRounds()           {}
func (m *NopMetrics) SetParticipants(count int) {}
func (m *NopMetrics) SetPot(amount uint64)      {}
func (m *NopMetrics) SetNonce(nonce uint64)     {}

func (m *NopMetrics) IncTxResult(call string, code uint32)                {}
func (m *NopMetrics) ObserveTxLatency(call string, latency time.Duration) {}

func (m *NopMetrics) SetHeight(height uint64)                    {}
func (m *NopMetrics) ObserveCommitLatency(latency time.Duration) {}
func (m *NopMetrics) SetStateVersion(version int64)              {}
func (m *NopMetrics) AddEventsLogged(count int)                  {}

// HTTPHandler returns a handler that reports metrics as disabled.
func (m *NopMetrics) HTTPHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "metrics disabled", http.StatusNotFound)
	})
}

var _ Metrics = (*NopMetrics)(nil)
