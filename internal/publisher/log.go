package publisher

import (
	"context"

	"github.com/oshokin/power-sentinel/internal/logger"
)

// LogPublisher writes events to the log. It never fails.
type LogPublisher struct{}

// NewLogPublisher returns a LogPublisher.
func NewLogPublisher() *LogPublisher {
	return new(LogPublisher)
}

// Publish implements Publisher.
func (*LogPublisher) Publish(ctx context.Context, event Event) error {
	logger.InfoKV(ctx, "Event published",
		"id", event.ID,
		"event", event.Name,
		"data", event.Data,
		"ttl", event.TTL.String(),
		"scope", event.Scope,
	)

	return nil
}
