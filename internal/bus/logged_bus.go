package bus

import (
	"context"

	"github.com/equipfind/equipfind/internal/pkg/logger"
)

// LoggedBus appends every published event to an EventLogger before handing
// it to the wrapped bus.
type LoggedBus struct {
	inner       Bus
	eventLogger *EventLogger
	log         *logger.Logger
}

// NewLoggedBus wraps inner.
func NewLoggedBus(inner Bus, eventLogger *EventLogger, log *logger.Logger) *LoggedBus {
	if log == nil {
		log = logger.Default()
	}
	return &LoggedBus{
		inner:       inner,
		eventLogger: eventLogger,
		log:         log.WithComponent("bus"),
	}
}

// Publish logs the event and then delegates to the inner bus. A failed write
// to the log does not stop the publish.
func (b *LoggedBus) Publish(ctx context.Context, topic string, event Event) error {
	if err := b.eventLogger.Log(topic, event); err != nil {
		b.log.WithError(err).Warn("Failed to append event to log", "topic", topic)
	}
	return b.inner.Publish(ctx, topic, event)
}

// Subscribe delegates to the inner bus.
func (b *LoggedBus) Subscribe(ctx context.Context, topic string, handler Handler) error {
	return b.inner.Subscribe(ctx, topic, handler)
}

// Close closes both the event logger and the inner bus.
func (b *LoggedBus) Close() error {
	if err := b.eventLogger.Close(); err != nil {
		b.log.WithError(err).Warn("Failed to close event log")
	}
	return b.inner.Close()
}
