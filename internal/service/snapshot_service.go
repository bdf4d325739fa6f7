package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"harmony-api/internal/pkg/logger"
	"harmony-api/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const SnapshotTopic = "cache.snapshot.requested"

// Snapshottable is a cache that can persist itself.
type Snapshottable interface {
	Name() string
	Len() int
	Save() bool
}

type ISnapshotService interface {
	// Start subscribes to snapshot requests and starts the periodic timer.
	Start(ctx context.Context) error
	// RequestSnapshot asks the running scheduler for an immediate snapshot.
	RequestSnapshot(ctx context.Context, reason string) error
	// SaveAll persists every cache now and reports which ones were written.
	SaveAll(ctx context.Context) map[string]bool
	// Stop halts the timer and takes a final snapshot.
	Stop(ctx context.Context)
}

type snapshotRequest struct {
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}

type snapshotService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	caches    []Snapshottable
	interval  time.Duration
	publisher events.SnapshotPublisher
	logger    logger.ILogger

	saveMu   sync.Mutex
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func NewSnapshotService(
	pubSub *gochannel.GoChannel,
	interval time.Duration,
	publisher events.SnapshotPublisher,
	log logger.ILogger,
	caches ...Snapshottable,
) ISnapshotService {
	if interval <= 0 {
		interval = 12 * time.Hour
	}
	return &snapshotService{
		pubSub:    pubSub,
		topicName: SnapshotTopic,
		caches:    caches,
		interval:  interval,
		publisher: publisher,
		logger:    log,
		done:      make(chan struct{}),
	}
}

func (s *snapshotService) Start(ctx context.Context) error {
	messages, err := s.pubSub.Subscribe(ctx, s.topicName)
	if err != nil {
		return err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.SaveAll(ctx)
			case msg, ok := <-messages:
				if !ok {
					return
				}
				s.processMessage(ctx, msg)
			case <-s.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	s.logger.Info("SNAPSHOT", "Snapshot scheduler started", map[string]interface{}{
		"interval": s.interval.String(), "caches": len(s.caches),
	})
	return nil
}

func (s *snapshotService) processMessage(ctx context.Context, msg *message.Message) {
	var req snapshotRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		s.logger.Warn("SNAPSHOT", "Ignoring malformed snapshot request", map[string]interface{}{"error": err.Error()})
		msg.Ack()
		return
	}

	s.logger.Info("SNAPSHOT", "Snapshot requested", map[string]interface{}{"reason": req.Reason})
	s.SaveAll(ctx)
	msg.Ack()
}

func (s *snapshotService) RequestSnapshot(ctx context.Context, reason string) error {
	payload, err := json.Marshal(snapshotRequest{Reason: reason, RequestedAt: time.Now()})
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	return s.pubSub.Publish(s.topicName, msg)
}

func (s *snapshotService) SaveAll(ctx context.Context) map[string]bool {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	results := make(map[string]bool, len(s.caches))
	for _, c := range s.caches {
		start := time.Now()
		ok := c.Save()
		results[c.Name()] = ok

		if s.publisher == nil {
			continue
		}
		if ok {
			s.publisher.PublishSnapshotSaved(ctx, c.Name(), c.Len(), time.Since(start))
		} else {
			s.publisher.PublishSnapshotFailed(ctx, c.Name(), c.Len())
		}
	}
	return results
}

func (s *snapshotService) Stop(ctx context.Context) {
	s.stopOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
		s.SaveAll(ctx)
		s.logger.Info("SNAPSHOT", "Snapshot scheduler stopped", nil)
	})
}
