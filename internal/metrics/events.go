package metrics

import (
	"context"

	"github.com/equipfind/equipfind/internal/bus"
	"github.com/equipfind/equipfind/internal/catalog"
)

// EventSubscriber counts catalog change events seen on the bus.
type EventSubscriber struct {
	metrics *Metrics
	sub     bus.Subscriber
}

// NewEventSubscriber creates a new event subscriber.
func NewEventSubscriber(metrics *Metrics, sub bus.Subscriber) *EventSubscriber {
	return &EventSubscriber{
		metrics: metrics,
		sub:     sub,
	}
}

// SubscribeToEvents subscribes to catalog change events.
func (es *EventSubscriber) SubscribeToEvents(ctx context.Context) error {
	return es.sub.Subscribe(ctx, bus.TopicCatalogChanged, es.handleCatalogChanged)
}

func (es *EventSubscriber) handleCatalogChanged(ctx context.Context, event bus.Event) error {
	var changed catalog.Changed
	reason := "unknown"
	if err := bus.DecodePayload(event, &changed); err == nil && changed.Reason != "" {
		reason = changed.Reason
	}
	es.metrics.CatalogChanges.WithLabelValues(reason).Inc()
	return nil
}
