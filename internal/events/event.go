// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"pressing_chatbot_backend/platform/events"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Conversation Domain Events
// =============================================================================

// OrderConfirmed is published when a client confirms a pending order.
type OrderConfirmed struct {
	BaseEvent
	OrderID     string `json:"orderId"`
	ClientPhone string `json:"clientPhone"`
	TotalAmount int    `json:"totalAmount"`
}

func (e OrderConfirmed) EventName() string { return "chatbot.order.confirmed" }

// EscalationRequested is published when a client asks for a human agent.
type EscalationRequested struct {
	BaseEvent
	ClientPhone     string `json:"clientPhone"`
	OriginalMessage string `json:"originalMessage"`
}

func (e EscalationRequested) EventName() string { return "chatbot.escalation.requested" }

// PickupRequested is published when a client shares a location for pickup.
type PickupRequested struct {
	BaseEvent
	ClientPhone string  `json:"clientPhone"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Address     string  `json:"address"`
}

func (e PickupRequested) EventName() string { return "chatbot.pickup.requested" }
