// Package userstate tracks per-phone conversation state for the chatbot.
package userstate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"pressing_chatbot_backend/internal/orders"
	"pressing_chatbot_backend/platform/apperr"
)

// Conversation is the explicit conversation state tag. Service selections are
// encoded as "service_<n>"; use Service and ServiceNumber to build and read them.
type Conversation string

const (
	StateNew                  Conversation = "new"
	StateMenu                 Conversation = "menu"
	StateAwaitingConfirmation Conversation = "awaiting_confirmation"
	StateWaitAgent            Conversation = "wait_agent"
	StateOrderConfirmed       Conversation = "order_confirmed"
)

// Service returns the conversation tag for a selected service menu entry.
func Service(n int) Conversation {
	return Conversation(fmt.Sprintf("service_%d", n))
}

// ServiceNumber returns the selected service for a service_<n> tag, or 0.
func (c Conversation) ServiceNumber() int {
	rest, ok := strings.CutPrefix(string(c), "service_")
	if !ok {
		return 0
	}
	var n int
	if _, err := fmt.Sscanf(rest, "%d", &n); err != nil {
		return 0
	}
	return n
}

// Valid reports whether the tag is one this dispatcher can ever produce.
func (c Conversation) Valid() bool {
	switch c {
	case StateNew, StateMenu, StateAwaitingConfirmation, StateWaitAgent, StateOrderConfirmed:
		return true
	}
	return c.ServiceNumber() > 0
}

// State is everything remembered about one phone number.
type State struct {
	LastMessageAt *time.Time    `json:"lastMessageAt,omitempty"`
	Conversation  Conversation  `json:"conversationState"`
	PendingOrder  *orders.Draft `json:"pendingOrder,omitempty"`
}

// DefaultState is the zero-value state returned for unknown phone numbers.
func DefaultState() State {
	return State{Conversation: StateNew}
}

// Update is a partial state change. Nil fields are left untouched; the merge
// of one Update is applied all-or-nothing by Store implementations.
type Update struct {
	LastMessageAt     *time.Time
	Conversation      *Conversation
	PendingOrder      *orders.Draft
	ClearPendingOrder bool
}

// apply merges the update into s, shallow per top-level field.
func (u Update) apply(s State) State {
	if u.LastMessageAt != nil {
		s.LastMessageAt = u.LastMessageAt
	}
	if u.Conversation != nil {
		s.Conversation = *u.Conversation
	}
	if u.ClearPendingOrder {
		s.PendingOrder = nil
	} else if u.PendingOrder != nil {
		s.PendingOrder = u.PendingOrder
	}
	if s.Conversation == "" {
		s.Conversation = StateNew
	}
	return s
}

// Store persists conversation state per phone number.
type Store interface {
	// Get returns the state for phone, or the default state when none exists.
	Get(ctx context.Context, phone string) (State, error)
	// Save merges the update into the stored state, all-or-nothing.
	Save(ctx context.Context, phone string, update Update) error
	// Clear resets the phone back to the default state.
	Clear(ctx context.Context, phone string) error
}

// validatePhone rejects empty phone keys. Silently ignoring them would mask
// caller bugs, so this is a hard validation error.
func validatePhone(phone string) error {
	if strings.TrimSpace(phone) == "" {
		return apperr.Validation("phone must not be empty").WithOp("userstate")
	}
	return nil
}

// phoneLocks serializes read-merge-write cycles per phone within this process.
// Distinct phones proceed concurrently.
type phoneLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newPhoneLocks() *phoneLocks {
	return &phoneLocks{locks: make(map[string]*sync.Mutex)}
}

func (p *phoneLocks) get(phone string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	l, ok := p.locks[phone]
	if !ok {
		l = &sync.Mutex{}
		p.locks[phone] = l
	}
	return l
}
