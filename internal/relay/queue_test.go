package relay

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pressing_chatbot_backend/platform/apperr"
	"pressing_chatbot_backend/platform/logger"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeForwarder struct {
	mu       sync.Mutex
	failures int
	calls    []string
}

func (f *fakeForwarder) Forward(_ context.Context, event string, _ json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, event)
	if f.failures > 0 {
		f.failures--
		return errors.New("remote unavailable")
	}
	return nil
}

func (f *fakeForwarder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type countingObserver struct {
	mu        sync.Mutex
	enqueued  int
	delivered int
	dropped   int
}

func (o *countingObserver) EventEnqueued(string)  { o.mu.Lock(); o.enqueued++; o.mu.Unlock() }
func (o *countingObserver) EventDelivered(string) { o.mu.Lock(); o.delivered++; o.mu.Unlock() }
func (o *countingObserver) EventDropped(string)   { o.mu.Lock(); o.dropped++; o.mu.Unlock() }

func newTestQueue(t *testing.T, store Store, fwd Forwarder, clock Clock, obs Observer) *Queue {
	t.Helper()
	return NewQueue(store, fwd, logger.New("development"), Options{
		TickInterval: 3 * time.Second,
		BaseDelay:    time.Second,
		MaxDelay:     60 * time.Second,
		MaxRetries:   5,
		Clock:        clock,
		Observer:     obs,
	})
}

func validPickup() CreatePickupPayload {
	return CreatePickupPayload{Phone: "+22670000001", Lat: 12.37, Lon: -1.52}
}

func TestEnqueueRejectsUnknownEvent(t *testing.T) {
	q := newTestQueue(t, NewMemoryStore(), &fakeForwarder{}, newManualClock(), nil)

	err := q.Enqueue(context.Background(), "no_such_event", validPickup())

	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestEnqueueRejectsNonObjectPayload(t *testing.T) {
	q := newTestQueue(t, NewMemoryStore(), &fakeForwarder{}, newManualClock(), nil)

	err := q.Enqueue(context.Background(), EventCreatePickup, "just a string")

	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestEnqueueRejectsSchemaViolation(t *testing.T) {
	q := newTestQueue(t, NewMemoryStore(), &fakeForwarder{}, newManualClock(), nil)

	// Missing required phone.
	err := q.Enqueue(context.Background(), EventCreatePickup, CreatePickupPayload{Lat: 1, Lon: 2})

	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestEnqueuePersistsBeforeReturning(t *testing.T) {
	store := NewMemoryStore()
	q := newTestQueue(t, store, &fakeForwarder{}, newManualClock(), nil)

	require.NoError(t, q.Enqueue(context.Background(), EventCreatePickup, validPickup()))

	assert.Equal(t, 1, store.Len())
}

func TestQueueDeliversAndRemoves(t *testing.T) {
	store := NewMemoryStore()
	fwd := &fakeForwarder{}
	clock := newManualClock()
	obs := &countingObserver{}
	q := newTestQueue(t, store, fwd, clock, obs)

	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, EventCreatePickup, validPickup()))

	q.drainDue(ctx)

	assert.Equal(t, 1, fwd.callCount())
	assert.Equal(t, 0, store.Len())
	assert.Equal(t, 1, obs.delivered)
	assert.Equal(t, 0, obs.dropped)
}

func TestQueueBackoffSchedule(t *testing.T) {
	store := NewMemoryStore()
	fwd := &fakeForwarder{failures: 3}
	clock := newManualClock()
	q := newTestQueue(t, store, fwd, clock, nil)

	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, EventCreatePickup, validPickup()))

	// First attempt fails, rescheduled 2s out.
	q.drainDue(ctx)
	assert.Equal(t, 1, fwd.callCount())

	// Not yet due.
	clock.Advance(time.Second)
	q.drainDue(ctx)
	assert.Equal(t, 1, fwd.callCount())

	// Second attempt fails, rescheduled 4s out.
	clock.Advance(time.Second)
	q.drainDue(ctx)
	assert.Equal(t, 2, fwd.callCount())

	clock.Advance(2 * time.Second)
	q.drainDue(ctx)
	assert.Equal(t, 2, fwd.callCount())

	// Third attempt fails, rescheduled 8s out.
	clock.Advance(2 * time.Second)
	q.drainDue(ctx)
	assert.Equal(t, 3, fwd.callCount())

	// Fourth attempt succeeds.
	clock.Advance(8 * time.Second)
	q.drainDue(ctx)
	assert.Equal(t, 4, fwd.callCount())
	assert.Equal(t, 0, store.Len())
}

func TestQueueDropsAfterMaxRetries(t *testing.T) {
	store := NewMemoryStore()
	fwd := &fakeForwarder{failures: 100}
	clock := newManualClock()
	obs := &countingObserver{}
	q := newTestQueue(t, store, fwd, clock, obs)

	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, EventEscalateToHuman, EscalateToHumanPayload{
		Phone: "+22670000001",
		TS:    clock.Now().Format(time.RFC3339),
	}))

	for i := 0; i < 10; i++ {
		q.drainDue(ctx)
		clock.Advance(60 * time.Second)
	}

	assert.Equal(t, 5, fwd.callCount(), "gives up after the retry budget")
	assert.Equal(t, 0, store.Len(), "dropped events leave the store")
	assert.Equal(t, 1, obs.dropped)
	assert.Equal(t, 0, obs.delivered)
}

func TestQueuePreservesEnqueueOrder(t *testing.T) {
	store := NewMemoryStore()
	fwd := &fakeForwarder{}
	clock := newManualClock()
	q := newTestQueue(t, store, fwd, clock, nil)

	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, EventCreatePickup, validPickup()))
	clock.Advance(time.Millisecond)
	require.NoError(t, q.Enqueue(ctx, EventEscalateToHuman, EscalateToHumanPayload{
		Phone: "+22670000001",
		TS:    clock.Now().Format(time.RFC3339),
	}))

	q.drainDue(ctx)

	require.Equal(t, 2, fwd.callCount())
	assert.Equal(t, []string{EventCreatePickup, EventEscalateToHuman}, fwd.calls)
}

func TestBackoffCapped(t *testing.T) {
	q := newTestQueue(t, NewMemoryStore(), &fakeForwarder{}, newManualClock(), nil)

	assert.Equal(t, 2*time.Second, q.backoff(1))
	assert.Equal(t, 4*time.Second, q.backoff(2))
	assert.Equal(t, 8*time.Second, q.backoff(3))
	assert.Equal(t, 32*time.Second, q.backoff(5))
	assert.Equal(t, 60*time.Second, q.backoff(6))
	assert.Equal(t, 60*time.Second, q.backoff(20))
}

func TestNextDueClaimsEvent(t *testing.T) {
	store := NewMemoryStore()
	clock := newManualClock()
	q := newTestQueue(t, store, &fakeForwarder{}, clock, nil)

	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, EventCreatePickup, validPickup()))

	first, err := store.NextDue(ctx, clock.Now())
	require.NoError(t, err)
	require.NotNil(t, first)

	// A second consumer polling right after sees nothing: the event is leased.
	second, err := store.NextDue(ctx, clock.Now())
	require.NoError(t, err)
	assert.Nil(t, second)

	// An expired lease puts the event back into rotation.
	reclaimed, err := store.NextDue(ctx, clock.Now().Add(claimLease))
	require.NoError(t, err)
	require.NotNil(t, reclaimed)
	assert.Equal(t, first.ID, reclaimed.ID)
}

// removeFailStore simulates a store that accepts events but cannot delete
// them, as when the backing file turns read-only mid-run.
type removeFailStore struct {
	*MemoryStore
}

func (s *removeFailStore) Remove(context.Context, string) error {
	return errors.New("store unavailable")
}

func TestDrainStopsWhenRemoveFails(t *testing.T) {
	store := &removeFailStore{MemoryStore: NewMemoryStore()}
	fwd := &fakeForwarder{}
	clock := newManualClock()
	q := newTestQueue(t, store, fwd, clock, nil)

	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, EventCreatePickup, validPickup()))

	q.drainDue(ctx)

	assert.Equal(t, 1, fwd.callCount(), "the delivered-but-stuck event is not re-forwarded in the same drain")
	assert.Equal(t, 1, store.Len())
}

func TestRunIsIdempotent(t *testing.T) {
	q := newTestQueue(t, NewMemoryStore(), &fakeForwarder{}, newManualClock(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(2)
	started := make(chan struct{})
	go func() {
		defer wg.Done()
		close(started)
		q.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		<-started
		// Second Run returns immediately while the first holds the flag,
		// or runs alone if the first already flipped it back. Either way
		// this must not deadlock.
		q.Run(ctx)
		cancel()
	}()

	cancel()
	wg.Wait()
}
