package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"pressing_chatbot_backend/platform/apperr"
	"pressing_chatbot_backend/platform/logger"
	"pressing_chatbot_backend/platform/validator"
)

// Forwarder delivers one event to the downstream automation platform.
// Satisfied by *Client.
type Forwarder interface {
	Forward(ctx context.Context, event string, payload json.RawMessage) error
}

// Clock abstracts time so backoff behaviour is testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Observer receives queue lifecycle signals. Satisfied by the metrics
// package; a nil observer disables instrumentation.
type Observer interface {
	EventEnqueued(event string)
	EventDelivered(event string)
	EventDropped(event string)
}

// Options tunes the retry policy. Zero values fall back to production
// defaults.
type Options struct {
	TickInterval time.Duration // how often due events are polled
	BaseDelay    time.Duration // backoff unit: retry n waits BaseDelay * 2^n
	MaxDelay     time.Duration // backoff ceiling
	MaxRetries   int           // attempts before an event is dropped
	Clock        Clock
	Observer     Observer
}

// Queue accepts events, persists them before acknowledging, and pushes them
// downstream with exponential backoff. Events that exhaust the retry budget
// are dropped with a terminal log line so operators can replay them by hand.
type Queue struct {
	store     Store
	forwarder Forwarder
	validate  *validator.Validator
	log       *logger.Logger

	tick       time.Duration
	baseDelay  time.Duration
	maxDelay   time.Duration
	maxRetries int
	clock      Clock
	observer   Observer

	running atomic.Bool
}

// NewQueue wires a queue over the given store and forwarder.
func NewQueue(store Store, forwarder Forwarder, log *logger.Logger, opts Options) *Queue {
	if opts.TickInterval <= 0 {
		opts.TickInterval = 3 * time.Second
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 60 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 5
	}
	if opts.Clock == nil {
		opts.Clock = systemClock{}
	}
	return &Queue{
		store:      store,
		forwarder:  forwarder,
		validate:   validator.New(),
		log:        log,
		tick:       opts.TickInterval,
		baseDelay:  opts.BaseDelay,
		maxDelay:   opts.MaxDelay,
		maxRetries: opts.MaxRetries,
		clock:      opts.Clock,
		observer:   opts.Observer,
	}
}

// Enqueue validates the event against its payload schema and durably records
// it. When Enqueue returns nil the event will eventually be delivered or
// dropped after the retry budget; it is never lost silently.
func (q *Queue) Enqueue(ctx context.Context, event string, payload any) error {
	schema, ok := payloadSchema(event)
	if !ok {
		return apperr.Validation(fmt.Sprintf("unknown relay event %q", event))
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return apperr.Validation("relay payload is not serialisable")
	}
	if len(raw) == 0 || raw[0] != '{' {
		return apperr.Validation("relay payload must be a JSON object")
	}
	if err := json.Unmarshal(raw, schema); err != nil {
		return apperr.Validation("relay payload does not match event schema")
	}
	if err := q.validate.Struct(schema); err != nil {
		return apperr.Validation(fmt.Sprintf("relay payload invalid: %v", err))
	}

	now := q.clock.Now()
	ev := Event{
		ID:            uuid.NewString(),
		Name:          event,
		Payload:       raw,
		CreatedAt:     now,
		Attempts:      0,
		NextAttemptAt: now,
	}
	if err := q.store.Append(ctx, ev); err != nil {
		return fmt.Errorf("persist relay event: %w", err)
	}
	if q.observer != nil {
		q.observer.EventEnqueued(event)
	}
	q.log.Debug("relay event queued", "event", event, "eventId", ev.ID)
	return nil
}

// Run polls the store until the context is cancelled. Calling Run while a
// previous Run is still active is a no-op, so accidental double starts do not
// double deliveries.
func (q *Queue) Run(ctx context.Context) {
	if !q.running.CompareAndSwap(false, true) {
		return
	}
	defer q.running.Store(false)

	q.log.Info("relay queue started", "tickInterval", q.tick.String(), "maxRetries", q.maxRetries)

	ticker := time.NewTicker(q.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			q.log.Info("relay queue stopped")
			return
		case <-ticker.C:
			q.drainDue(ctx)
		}
	}
}

// drainDue delivers every event that is due right now, oldest first, one at a
// time. Ordering between events matters more than throughput here. A store
// failure after delivery ends the drain early so the retry waits for the next
// tick instead of spinning on the same event.
func (q *Queue) drainDue(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		ev, err := q.store.NextDue(ctx, q.clock.Now())
		if err != nil {
			q.log.Error("relay queue poll failed", "error", err.Error())
			return
		}
		if ev == nil {
			return
		}
		if !q.deliver(ctx, ev) {
			return
		}
	}
}

// deliver pushes one claimed event and reports whether draining may continue.
func (q *Queue) deliver(ctx context.Context, ev *Event) bool {
	err := q.forwarder.Forward(ctx, ev.Name, ev.Payload)
	if err == nil {
		if removeErr := q.store.Remove(ctx, ev.ID); removeErr != nil {
			q.log.Error("relay event delivered but not removed", "eventId", ev.ID, "error", removeErr.Error())
			return false
		}
		if q.observer != nil {
			q.observer.EventDelivered(ev.Name)
		}
		q.log.Info("relay event delivered", "event", ev.Name, "eventId", ev.ID, "attempts", ev.Attempts+1)
		return true
	}

	attempts := ev.Attempts + 1
	if attempts >= q.maxRetries {
		q.log.DeliveryFailure(ev.Name, ev.ID, attempts, true, err)
		if removeErr := q.store.Remove(ctx, ev.ID); removeErr != nil {
			q.log.Error("dropped relay event not removed", "eventId", ev.ID, "error", removeErr.Error())
			return false
		}
		if q.observer != nil {
			q.observer.EventDropped(ev.Name)
		}
		return true
	}

	next := q.clock.Now().Add(q.backoff(attempts))
	q.log.DeliveryFailure(ev.Name, ev.ID, attempts, false, err)
	if err := q.store.Reschedule(ctx, ev.ID, attempts, next); err != nil {
		q.log.Error("relay event not rescheduled", "eventId", ev.ID, "error", err.Error())
		return false
	}
	return true
}

// backoff returns baseDelay * 2^attempts, capped at maxDelay.
func (q *Queue) backoff(attempts int) time.Duration {
	d := q.baseDelay
	for i := 0; i < attempts; i++ {
		d *= 2
		if d >= q.maxDelay {
			return q.maxDelay
		}
	}
	return d
}
