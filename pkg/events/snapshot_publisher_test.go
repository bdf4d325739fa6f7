package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingPublisher struct {
	events []Event
	err    error
}

func (c *capturingPublisher) Publish(ctx context.Context, event Event) error {
	c.events = append(c.events, event)
	return c.err
}

func TestBusSnapshotPublisher(t *testing.T) {
	bus := &capturingPublisher{}
	p := NewBusSnapshotPublisher(bus, nil)

	p.PublishSnapshotSaved(context.Background(), "vectors", 12, 1500*time.Millisecond)
	p.PublishSnapshotFailed(context.Background(), "instruments", 3)

	require.Len(t, bus.events, 2)
	assert.Equal(t, CacheSnapshotSaved, bus.events[0].EventType())
	assert.Equal(t, "vectors", bus.events[0].Payload()["cache"])
	assert.Equal(t, 12, bus.events[0].Payload()["entries"])
	assert.Equal(t, int64(1500), bus.events[0].Payload()["duration_ms"])
	assert.False(t, bus.events[0].Timestamp().IsZero())

	assert.Equal(t, CacheSnapshotFailed, bus.events[1].EventType())
	assert.Equal(t, "instruments", bus.events[1].Payload()["cache"])
	assert.NotContains(t, bus.events[1].Payload(), "duration_ms")
}

func TestParseSnapshotEvent(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	received := Envelope{
		Type:       CacheSnapshotSaved,
		Data:       map[string]interface{}{"cache": "vectors", "entries": float64(42), "duration_ms": float64(250)},
		OccurredAt: at,
	}

	got, ok := ParseSnapshotEvent(received)
	require.True(t, ok)
	assert.Equal(t, SnapshotEvent{Type: CacheSnapshotSaved, Cache: "vectors", Entries: 42, Duration: 250 * time.Millisecond, At: at}, got)

	_, ok = ParseSnapshotEvent(Envelope{Type: "SOMETHING_ELSE"})
	assert.False(t, ok)
}

func TestBusSnapshotPublisher_NilBusIsNoop(t *testing.T) {
	p := NewBusSnapshotPublisher(nil, nil)

	assert.NotPanics(t, func() {
		p.PublishSnapshotSaved(context.Background(), "vectors", 1, time.Second)
		p.PublishSnapshotFailed(context.Background(), "vectors", 1)
	})
}

func TestBusSnapshotPublisher_PublishErrorIsLogged(t *testing.T) {
	bus := &capturingPublisher{err: errors.New("nats down")}
	p := NewBusSnapshotPublisher(bus, nil)

	assert.NotPanics(t, func() {
		p.PublishSnapshotSaved(context.Background(), "vectors", 1, time.Second)
	})
	assert.Len(t, bus.events, 1)
}
