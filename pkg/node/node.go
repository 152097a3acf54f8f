// Package node assembles a lottoberry application with its stores, event bus,
// metrics and tracing, and manages their lifecycle.
package node

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/blockberries/lottoberry/pkg/abi"
	"github.com/blockberries/lottoberry/pkg/app"
	"github.com/blockberries/lottoberry/pkg/config"
	"github.com/blockberries/lottoberry/pkg/eventlog"
	"github.com/blockberries/lottoberry/pkg/events"
	"github.com/blockberries/lottoberry/pkg/logging"
	"github.com/blockberries/lottoberry/pkg/metrics"
	"github.com/blockberries/lottoberry/pkg/statestore"
)

// DefaultShutdownTimeout bounds how long Stop waits for the metrics server.
const DefaultShutdownTimeout = 5 * time.Second

// Lifecycle errors.
var (
	ErrNodeAlreadyStarted = errors.New("node already started")
	ErrNodeNotStarted     = errors.New("node not started")
)

// Node owns a running application and the components it depends on.
type Node struct {
	cfg    *config.Config
	logger *logging.Logger

	store    *statestore.IAVLStore
	eventLog *eventlog.Log
	bus      *events.Bus
	metrics  metrics.Metrics
	app      *app.Application

	metricsServer   *http.Server
	shutdownTracing func(context.Context) error

	mu      sync.Mutex
	started bool
}

// App returns the application.
func (n *Node) App() *app.Application {
	return n.app
}

// Bus returns the event bus notifications are published on.
func (n *Node) Bus() *events.Bus {
	return n.bus
}

// EventLog returns the committed notification log.
func (n *Node) EventLog() *eventlog.Log {
	return n.eventLog
}

// Metrics returns the metrics sink.
func (n *Node) Metrics() metrics.Metrics {
	return n.metrics
}

// Config returns the node configuration.
func (n *Node) Config() *config.Config {
	return n.cfg
}

// Name returns the component name.
func (n *Node) Name() string {
	return "node"
}

// IsRunning reports whether the node has been started and not stopped.
func (n *Node) IsRunning() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.started
}

// Start starts the event bus and, when enabled, the metrics server.
func (n *Node) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.started {
		return ErrNodeAlreadyStarted
	}

	if err := n.bus.Start(); err != nil {
		return fmt.Errorf("starting event bus: %w", err)
	}

	if n.cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", n.metrics.HTTPHandler())
		n.metricsServer = &http.Server{
			Addr:              n.cfg.Metrics.ListenAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		srv := n.metricsServer
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				n.logger.Error("metrics server stopped", logging.Error(err))
			}
		}()
		n.logger.Info("serving metrics", "addr", n.cfg.Metrics.ListenAddr)
	}

	info := n.app.Info()
	n.logger.Info("node started",
		logging.ChainID(n.cfg.Node.ChainID),
		logging.Height(info.Height),
		logging.Hash(info.AppHash),
	)
	n.started = true
	return nil
}

// Stop stops every component and closes the stores.
func (n *Node) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.started {
		return ErrNodeNotStarted
	}
	n.started = false

	ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()

	var errs []error
	if n.metricsServer != nil {
		if err := n.metricsServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stopping metrics server: %w", err))
		}
		n.metricsServer = nil
	}
	if err := n.bus.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stopping event bus: %w", err))
	}
	if err := n.shutdownTracing(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stopping tracing: %w", err))
	}
	if err := n.eventLog.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing event log: %w", err))
	}
	if err := n.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing state store: %w", err))
	}

	n.logger.Info("node stopped")
	return errors.Join(errs...)
}

var _ abi.Named = (*Node)(nil)
