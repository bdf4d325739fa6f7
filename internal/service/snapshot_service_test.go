package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"harmony-api/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	name  string
	ok    bool
	saves int32
}

func (c *fakeCache) Name() string { return c.name }
func (c *fakeCache) Len() int     { return 3 }
func (c *fakeCache) Save() bool {
	atomic.AddInt32(&c.saves, 1)
	return c.ok
}

type recordingPublisher struct {
	mu     sync.Mutex
	saved  []string
	failed []string
}

func (p *recordingPublisher) PublishSnapshotSaved(ctx context.Context, cacheName string, entries int, duration time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saved = append(p.saved, cacheName)
}

func (p *recordingPublisher) PublishSnapshotFailed(ctx context.Context, cacheName string, entries int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed = append(p.failed, cacheName)
}

func newPubSub(t *testing.T) *gochannel.GoChannel {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubSub.Close() })
	return pubSub
}

func TestSnapshotService_SaveAll(t *testing.T) {
	good := &fakeCache{name: "instruments", ok: true}
	bad := &fakeCache{name: "vectors", ok: false}
	pub := &recordingPublisher{}

	svc := NewSnapshotService(newPubSub(t), time.Hour, pub, logger.NewNopLogger(), good, bad)
	results := svc.SaveAll(context.Background())

	assert.Equal(t, map[string]bool{"instruments": true, "vectors": false}, results)
	assert.Equal(t, []string{"instruments"}, pub.saved)
	assert.Equal(t, []string{"vectors"}, pub.failed)
}

func TestSnapshotService_RequestSnapshot(t *testing.T) {
	c := &fakeCache{name: "instruments", ok: true}
	svc := NewSnapshotService(newPubSub(t), time.Hour, nil, logger.NewNopLogger(), c)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, svc.Start(ctx))

	require.NoError(t, svc.RequestSnapshot(ctx, "test"))
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&c.saves) == 1 }, 2*time.Second, 10*time.Millisecond)

	svc.Stop(ctx)
	assert.EqualValues(t, 2, atomic.LoadInt32(&c.saves), "stop takes a final snapshot")

	svc.Stop(ctx)
	assert.EqualValues(t, 2, atomic.LoadInt32(&c.saves))
}

func TestSnapshotService_PeriodicSave(t *testing.T) {
	c := &fakeCache{name: "vectors", ok: true}
	svc := NewSnapshotService(newPubSub(t), 20*time.Millisecond, nil, logger.NewNopLogger(), c)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, svc.Start(ctx))
	defer svc.Stop(ctx)

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&c.saves) >= 2 }, 2*time.Second, 10*time.Millisecond)
}
