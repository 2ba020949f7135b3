// Package bus provides the event bus used to announce catalog changes and
// completed searches.
package bus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/equipfind/equipfind/internal/pkg/errors"
	"github.com/equipfind/equipfind/internal/pkg/hash"
)

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Bus defines the interface for event bus implementations.
type Bus interface {
	// Publish publishes an event to a topic.
	Publish(ctx context.Context, topic string, event Event) error

	// Subscribe subscribes to events on a topic.
	Subscribe(ctx context.Context, topic string, handler Handler) error

	// Close closes the bus and releases resources.
	Close() error
}

// Publisher is the publishing half of a Bus.
type Publisher interface {
	Publish(ctx context.Context, topic string, event Event) error
}

// Subscriber is the subscribing half of a Bus.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string, handler Handler) error
}

// Event represents a bus event.
type Event struct {
	// ID is the unique event identifier.
	ID string `json:"id"`

	// Type is the event type, usually the topic it is published on.
	Type string `json:"type"`

	// Source is the service that generated the event.
	Source string `json:"source"`

	// Timestamp is when the event was created, in Unix milliseconds.
	Timestamp int64 `json:"timestamp"`

	// CorrelationID links related events.
	CorrelationID string `json:"correlation_id,omitempty"`

	// Payload contains the event data.
	Payload any `json:"payload"`
}

// Topics.
const (
	// TopicCatalogChanged is published by catalog writers after equipment,
	// rooms or features change. Payload: catalog.Changed.
	TopicCatalogChanged = "catalog.changed"

	// TopicSearchPerformed is published after every search.
	TopicSearchPerformed = "search.performed"
)

// NewEvent builds an event stamped with the current time.
func NewEvent(eventType, source string, payload any) Event {
	now := time.Now()
	return Event{
		ID:        hash.EventID(eventType, source, now.UnixNano()),
		Type:      eventType,
		Source:    source,
		Timestamp: now.UnixMilli(),
		Payload:   payload,
	}
}

// DecodePayload decodes the event payload into v. Payloads arrive as the
// original value on the memory bus and as generic JSON on Kafka, so both are
// re-encoded through JSON.
func DecodePayload(event Event, v any) error {
	data, err := json.Marshal(event.Payload)
	if err != nil {
		return errors.Wrap(errors.CodeBusError, "failed to encode payload", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrap(errors.CodeBusError, "failed to decode payload", err)
	}
	return nil
}
