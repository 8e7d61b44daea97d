// Package events provides the in-process event bus infrastructure used for
// decoupled communication between modules. It carries no business logic.
package events

import (
	"context"
	"time"
)

// Event is implemented by every domain event published on the bus.
type Event interface {
	// EventName uniquely identifies the event type.
	EventName() string
	// OccurredAt reports when the event happened.
	OccurredAt() time.Time
}

// BaseEvent carries the fields shared by all events. Embed it in concrete
// event types.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps a base event with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

// Handler processes events of a single type.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function into a Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus publishes domain events to subscribed handlers.
type Bus interface {
	// Publish delivers the event to every handler registered for its name.
	// Handlers run asynchronously.
	Publish(ctx context.Context, event Event)

	// PublishSync delivers the event and waits for all handlers to finish.
	PublishSync(ctx context.Context, event Event) error

	// Subscribe registers a handler for the event name, matching the value
	// returned by Event.EventName().
	Subscribe(eventName string, handler Handler)
}
