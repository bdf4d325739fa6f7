package events

import (
	"context"
	"time"

	"harmony-api/internal/pkg/logger"
)

// Publisher sends events to the bus.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// SnapshotPublisher announces cache snapshot outcomes.
type SnapshotPublisher interface {
	PublishSnapshotSaved(ctx context.Context, cacheName string, entries int, duration time.Duration)
	PublishSnapshotFailed(ctx context.Context, cacheName string, entries int)
}

// BusSnapshotPublisher implements SnapshotPublisher on a Publisher. A nil publisher
// turns every call into a no-op.
type BusSnapshotPublisher struct {
	publisher Publisher
	logger    logger.ILogger
}

func NewBusSnapshotPublisher(publisher Publisher, log logger.ILogger) *BusSnapshotPublisher {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &BusSnapshotPublisher{
		publisher: publisher,
		logger:    log,
	}
}

func (p *BusSnapshotPublisher) PublishSnapshotSaved(ctx context.Context, cacheName string, entries int, duration time.Duration) {
	p.publish(ctx, NewSnapshotSaved(cacheName, entries, duration))
}

func (p *BusSnapshotPublisher) PublishSnapshotFailed(ctx context.Context, cacheName string, entries int) {
	p.publish(ctx, NewSnapshotFailed(cacheName, entries))
}

func (p *BusSnapshotPublisher) publish(ctx context.Context, evt SnapshotEvent) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, evt); err != nil {
		p.logger.Error("SNAPSHOT", "Failed to publish snapshot event", map[string]interface{}{
			"type": evt.Type, "cache": evt.Cache, "error": err.Error(),
		})
	}
}
