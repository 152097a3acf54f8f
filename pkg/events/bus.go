// Package events provides the in-memory event bus lottery notifications are published on.
package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/blockberries/lottoberry/pkg/abi"
	"github.com/blockberries/lottoberry/pkg/logging"
)

// Common errors returned by the Bus.
var (
	ErrBusNotRunning      = errors.New("event bus is not running")
	ErrBusStopped         = errors.New("event bus has been stopped")
	ErrSubscriberExists   = errors.New("subscriber already exists for this query")
	ErrSubscriberNotFound = errors.New("subscriber not found")
	ErrTooManySubscribers = errors.New("maximum number of subscribers reached")
)

// Bus is an in-memory implementation of abi.EventBus.
type Bus struct {
	config abi.EventBusConfig
	logger *logging.Logger

	// subscriptions maps subscriber+query to subscription
	subscriptions map[string]*subscription
	mu            sync.RWMutex

	dropped atomic.Uint64

	running atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

type subscription struct {
	subscriber string
	query      abi.Query
	ch         chan abi.Event
	cancelled  atomic.Bool
}

// NewBus creates a new in-memory Bus with default configuration.
func NewBus() *Bus {
	return NewBusWithConfig(abi.DefaultEventBusConfig())
}

// NewBusWithConfig creates a new in-memory Bus with the given configuration.
func NewBusWithConfig(config abi.EventBusConfig) *Bus {
	if config.BufferSize <= 0 {
		config.BufferSize = 100
	}
	if config.PublishTimeout <= 0 {
		config.PublishTimeout = 100 * time.Millisecond
	}

	return &Bus{
		config:        config,
		logger:        logging.NewNopLogger(),
		subscriptions: make(map[string]*subscription),
		stopCh:        make(chan struct{}),
	}
}

// SetLogger sets the logger used to report dropped events.
func (b *Bus) SetLogger(logger *logging.Logger) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	b.logger = logger.WithComponent("eventbus")
}

// Name returns the component name.
func (b *Bus) Name() string {
	return "eventbus"
}

func subscriptionKey(subscriber string, query abi.Query) string {
	return subscriber + ":" + query.String()
}

// Start starts the event bus.
func (b *Bus) Start() error {
	if b.running.Swap(true) {
		return nil
	}
	b.stopCh = make(chan struct{})
	return nil
}

// Stop stops the event bus and closes all subscription channels.
func (b *Bus) Stop() error {
	if !b.running.Swap(false) {
		return nil
	}

	close(b.stopCh)

	b.mu.Lock()
	for _, sub := range b.subscriptions {
		if !sub.cancelled.Swap(true) {
			close(sub.ch)
		}
	}
	b.subscriptions = make(map[string]*subscription)
	b.mu.Unlock()

	b.wg.Wait()
	return nil
}

// IsRunning returns true if the event bus is running.
func (b *Bus) IsRunning() bool {
	return b.running.Load()
}

// Subscribe creates a subscription for events matching the query.
// The subscription is removed when ctx is cancelled.
func (b *Bus) Subscribe(ctx context.Context, subscriber string, query abi.Query) (<-chan abi.Event, error) {
	if !b.running.Load() {
		return nil, ErrBusNotRunning
	}

	key := subscriptionKey(subscriber, query)

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.subscriptions[key]; exists {
		return nil, ErrSubscriberExists
	}
	if b.config.MaxSubscribers > 0 && len(b.subscriptions) >= b.config.MaxSubscribers {
		return nil, ErrTooManySubscribers
	}

	sub := &subscription{
		subscriber: subscriber,
		query:      query,
		ch:         make(chan abi.Event, b.config.BufferSize),
	}
	b.subscriptions[key] = sub

	if ctx != nil && ctx.Done() != nil {
		stopCh := b.stopCh
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			select {
			case <-ctx.Done():
				_ = b.Unsubscribe(context.Background(), subscriber, query)
			case <-stopCh:
			}
		}()
	}

	return sub.ch, nil
}

// Unsubscribe removes a specific subscription.
func (b *Bus) Unsubscribe(ctx context.Context, subscriber string, query abi.Query) error {
	key := subscriptionKey(subscriber, query)

	b.mu.Lock()
	defer b.mu.Unlock()

	sub, exists := b.subscriptions[key]
	if !exists {
		return ErrSubscriberNotFound
	}

	if !sub.cancelled.Swap(true) {
		close(sub.ch)
	}
	delete(b.subscriptions, key)
	return nil
}

// UnsubscribeAll removes all subscriptions for a subscriber.
func (b *Bus) UnsubscribeAll(ctx context.Context, subscriber string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for key, sub := range b.subscriptions {
		if sub.subscriber != subscriber {
			continue
		}
		if !sub.cancelled.Swap(true) {
			close(sub.ch)
		}
		delete(b.subscriptions, key)
	}
	return nil
}

// Publish sends an event to all matching subscribers.
// Non-blocking: if a subscriber's channel is full, the event is dropped for that subscriber.
func (b *Bus) Publish(ctx context.Context, event abi.Event) error {
	if !b.running.Load() {
		return ErrBusNotRunning
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscriptions {
		if sub.cancelled.Load() || !sub.query.Matches(event) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			b.drop(sub, event)
		}
	}
	return nil
}

// PublishWithTimeout sends an event, waiting up to timeout for each slow subscriber.
// Subscription changes block while a publish is waiting.
func (b *Bus) PublishWithTimeout(ctx context.Context, event abi.Event, timeout time.Duration) error {
	if !b.running.Load() {
		return ErrBusNotRunning
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscriptions {
		if sub.cancelled.Load() || !sub.query.Matches(event) {
			continue
		}

		timer := time.NewTimer(timeout)
		select {
		case sub.ch <- event:
			timer.Stop()
		case <-timer.C:
			b.drop(sub, event)
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-b.stopCh:
			timer.Stop()
			return ErrBusStopped
		}
	}
	return nil
}

// PublishAll publishes events in order using the configured publish timeout.
func (b *Bus) PublishAll(ctx context.Context, events []abi.Event) error {
	for _, event := range events {
		if err := b.PublishWithTimeout(ctx, event, b.config.PublishTimeout); err != nil {
			return err
		}
	}
	return nil
}

// NumSubscribers returns the total number of active subscriptions.
func (b *Bus) NumSubscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscriptions)
}

// NumSubscribersForQuery returns the number of subscribers for a specific query.
func (b *Bus) NumSubscribersForQuery(query abi.Query) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	queryStr := query.String()
	for _, sub := range b.subscriptions {
		if sub.query.String() == queryStr {
			count++
		}
	}
	return count
}

// Dropped returns the number of events dropped because a subscriber was full.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

func (b *Bus) drop(sub *subscription, event abi.Event) {
	b.dropped.Add(1)
	b.logger.Debug("dropped event for slow subscriber",
		"subscriber", sub.subscriber,
		"event", event.Type,
	)
}

var (
	_ abi.EventBus = (*Bus)(nil)
	_ abi.Named    = (*Bus)(nil)
)
