package events

import "time"

// Snapshot event types. The type is also the last token of the NATS subject.
const (
	CacheSnapshotSaved  = "CACHE_SNAPSHOT_SAVED"
	CacheSnapshotFailed = "CACHE_SNAPSHOT_FAILED"
)

// Event is anything the bus can carry. Payload becomes the JSON body on the wire.
type Event interface {
	EventType() string
	Payload() map[string]interface{}
	Timestamp() time.Time
}

// SnapshotEvent reports the outcome of writing one cache snapshot.
type SnapshotEvent struct {
	Type     string
	Cache    string
	Entries  int
	Duration time.Duration
	At       time.Time
}

func NewSnapshotSaved(cache string, entries int, duration time.Duration) SnapshotEvent {
	return SnapshotEvent{Type: CacheSnapshotSaved, Cache: cache, Entries: entries, Duration: duration, At: time.Now()}
}

func NewSnapshotFailed(cache string, entries int) SnapshotEvent {
	return SnapshotEvent{Type: CacheSnapshotFailed, Cache: cache, Entries: entries, At: time.Now()}
}

func (e SnapshotEvent) EventType() string    { return e.Type }
func (e SnapshotEvent) Timestamp() time.Time { return e.At }

func (e SnapshotEvent) Payload() map[string]interface{} {
	payload := map[string]interface{}{
		"cache":       e.Cache,
		"entries":     e.Entries,
		"occurred_at": e.At,
	}
	if e.Type == CacheSnapshotSaved {
		payload["duration_ms"] = e.Duration.Milliseconds()
	}
	return payload
}

// ParseSnapshotEvent reads a snapshot event back from a message received off the bus.
// Numbers in a decoded JSON payload arrive as float64.
func ParseSnapshotEvent(e Event) (SnapshotEvent, bool) {
	switch e.EventType() {
	case CacheSnapshotSaved, CacheSnapshotFailed:
	default:
		return SnapshotEvent{}, false
	}

	payload := e.Payload()
	out := SnapshotEvent{Type: e.EventType(), At: e.Timestamp()}
	out.Cache, _ = payload["cache"].(string)
	out.Entries = int(payloadNumber(payload["entries"]))
	out.Duration = time.Duration(payloadNumber(payload["duration_ms"])) * time.Millisecond
	return out, true
}

func payloadNumber(v interface{}) int64 {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	}
	return 0
}

// Envelope is a bus message known only by its type name.
type Envelope struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e Envelope) EventType() string               { return e.Type }
func (e Envelope) Payload() map[string]interface{} { return e.Data }
func (e Envelope) Timestamp() time.Time            { return e.OccurredAt }
