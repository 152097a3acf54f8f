package abi

import (
	"context"
	"strings"
	"time"
)

// EventBus provides pub/sub for application events.
// Subscribers receive events that match their query through a channel.
type EventBus interface {
	Component

	// Subscribe creates a subscription for events matching the query.
	// The channel is closed when the subscription is cancelled or the bus stops.
	Subscribe(ctx context.Context, subscriber string, query Query) (<-chan Event, error)

	// Unsubscribe removes a specific subscription.
	Unsubscribe(ctx context.Context, subscriber string, query Query) error

	// UnsubscribeAll removes all subscriptions for a subscriber.
	UnsubscribeAll(ctx context.Context, subscriber string) error

	// Publish sends an event to all matching subscribers.
	// This is non-blocking; if a subscriber's channel is full, the event may be dropped.
	Publish(ctx context.Context, event Event) error

	// PublishWithTimeout sends an event with a timeout for slow subscribers.
	PublishWithTimeout(ctx context.Context, event Event, timeout time.Duration) error

	// NumSubscribers returns the total number of active subscriptions.
	NumSubscribers() int
}

// Query filters events for subscription matching.
type Query interface {
	// Matches returns true if the event should be delivered to this subscriber.
	Matches(event Event) bool

	// String returns a string representation of the query.
	String() string
}

// QueryAll matches all events.
type QueryAll struct{}

// Matches always returns true.
func (q QueryAll) Matches(event Event) bool {
	return true
}

func (q QueryAll) String() string {
	return "all"
}

// QueryEventType matches events by their type.
type QueryEventType struct {
	EventType string
}

// Matches returns true if the event type matches.
func (q QueryEventType) Matches(event Event) bool {
	return event.Type == q.EventType
}

func (q QueryEventType) String() string {
	return "type=" + q.EventType
}

// QueryEventTypes matches events by multiple types.
type QueryEventTypes struct {
	EventTypes []string
}

// Matches returns true if the event type is in the list.
func (q QueryEventTypes) Matches(event Event) bool {
	for _, t := range q.EventTypes {
		if event.Type == t {
			return true
		}
	}
	return false
}

func (q QueryEventTypes) String() string {
	return "types=[" + strings.Join(q.EventTypes, ",") + "]"
}

// QueryFunc allows using a function as a query.
type QueryFunc struct {
	Fn          func(Event) bool
	Description string
}

// Matches calls the function.
func (q QueryFunc) Matches(event Event) bool {
	if q.Fn == nil {
		return false
	}
	return q.Fn(event)
}

func (q QueryFunc) String() string {
	if q.Description == "" {
		return "func"
	}
	return q.Description
}

// QueryAnd combines multiple queries with AND logic.
type QueryAnd struct {
	Queries []Query
}

// Matches returns true if all queries match.
func (q QueryAnd) Matches(event Event) bool {
	for _, query := range q.Queries {
		if !query.Matches(event) {
			return false
		}
	}
	return true
}

func (q QueryAnd) String() string {
	return "and(" + joinQueries(q.Queries) + ")"
}

// QueryOr combines multiple queries with OR logic.
type QueryOr struct {
	Queries []Query
}

// Matches returns true if any query matches.
func (q QueryOr) Matches(event Event) bool {
	for _, query := range q.Queries {
		if query.Matches(event) {
			return true
		}
	}
	return false
}

func (q QueryOr) String() string {
	return "or(" + joinQueries(q.Queries) + ")"
}

// QueryAttribute matches events that have a specific attribute key-value pair.
type QueryAttribute struct {
	Key   string
	Value string
}

// Matches returns true if the event has the matching attribute.
func (q QueryAttribute) Matches(event Event) bool {
	for _, attr := range event.Attributes {
		if attr.Key == q.Key && attr.StringValue() == q.Value {
			return true
		}
	}
	return false
}

func (q QueryAttribute) String() string {
	return q.Key + "=" + q.Value
}

func joinQueries(queries []Query) string {
	parts := make([]string, len(queries))
	for i, query := range queries {
		parts[i] = query.String()
	}
	return strings.Join(parts, ",")
}

// EventBusConfig contains configuration for EventBus implementations.
type EventBusConfig struct {
	// BufferSize is the channel buffer size for each subscription.
	// Default: 100
	BufferSize int

	// PublishTimeout is the default timeout for PublishWithTimeout.
	// Default: 100ms
	PublishTimeout time.Duration

	// MaxSubscribers is the maximum number of total subscriptions allowed.
	// 0 means unlimited.
	MaxSubscribers int
}

// DefaultEventBusConfig returns sensible defaults for EventBusConfig.
func DefaultEventBusConfig() EventBusConfig {
	return EventBusConfig{
		BufferSize:     100,
		PublishTimeout: 100 * time.Millisecond,
	}
}
