package abi

// Event represents an application event emitted during transaction execution
// or block processing.
type Event struct {
	// Type is the event type identifier.
	Type string

	// Attributes are the key-value pairs associated with this event.
	Attributes []Attribute
}

// NewEvent creates a new event with the given type.
func NewEvent(eventType string) Event {
	return Event{Type: eventType}
}

// AddAttribute adds an attribute to the event and returns the event for chaining.
func (e Event) AddAttribute(key string, value []byte) Event {
	e.Attributes = append(e.Attributes, Attribute{Key: key, Value: value})
	return e
}

// AddStringAttribute adds a string attribute to the event.
func (e Event) AddStringAttribute(key, value string) Event {
	return e.AddAttribute(key, []byte(value))
}

// AddIndexedAttribute adds an indexed attribute to the event.
func (e Event) AddIndexedAttribute(key string, value []byte) Event {
	e.Attributes = append(e.Attributes, Attribute{Key: key, Value: value, Index: true})
	return e
}

// Attribute returns the value of the first attribute with key, if any.
func (e Event) Attribute(key string) (string, bool) {
	for _, attr := range e.Attributes {
		if attr.Key == key {
			return attr.StringValue(), true
		}
	}
	return "", false
}

// Attribute represents a key-value pair within an event.
type Attribute struct {
	// Key is the attribute name.
	Key string

	// Value is the attribute value.
	Value []byte

	// Index indicates whether this attribute should be indexed for queries.
	Index bool
}

// StringValue returns the attribute value as a string.
func (a Attribute) StringValue() string {
	return string(a.Value)
}

// Event types.
const (
	// Lottery events
	EventTicketBought   = "TicketBought"
	EventPrizeAwarded   = "PrizeAwarded"
	EventNoParticipants = "NoParticipants"

	// Block events
	EventNewBlock = "NewBlock"
	EventCommit   = "Commit"
)

// Common attribute keys used in events.
const (
	AttributeKeyAccount = "account"
	AttributeKeyAmount  = "amount"
	AttributeKeyNonce   = "nonce"
	AttributeKeyHeight  = "height"
	AttributeKeyHash    = "hash"
	AttributeKeyTxHash  = "tx.hash"
)
