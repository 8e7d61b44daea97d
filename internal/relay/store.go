package relay

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// Event is one queued delivery. It is owned by the Queue from creation until
// terminal removal (delivered, or dropped after the retry budget).
type Event struct {
	ID            string          `json:"id"`
	Name          string          `json:"event"`
	Payload       json.RawMessage `json:"payload"`
	CreatedAt     time.Time       `json:"createdAt"`
	Attempts      int             `json:"retryCount"`
	NextAttemptAt time.Time       `json:"nextAttemptAt"`
}

// claimLease is how long a claimed event stays invisible to other consumers.
// The lease must outlive one delivery attempt; Reschedule and Remove end it
// early, and a consumer dying mid-delivery lets it expire into a retry.
const claimLease = 2 * time.Minute

// Store is the durable record behind the Queue. Append must have persisted
// the event before returning: a store failure is surfaced as a rejected
// enqueue, never swallowed. NextDue both reads and claims: every returned
// event is pushed claimLease into the future in the same operation, so two
// consumers polling one store never hold the same event at once.
type Store interface {
	// Append durably records a new event.
	Append(ctx context.Context, ev Event) error
	// NextDue claims the oldest event whose NextAttemptAt is not after now,
	// leasing it until now+claimLease. Returns nil when no work is due.
	NextDue(ctx context.Context, now time.Time) (*Event, error)
	// Reschedule releases a claimed event with an updated attempt count and
	// next attempt time.
	Reschedule(ctx context.Context, id string, attempts int, next time.Time) error
	// Remove deletes an event permanently (success or terminal failure).
	Remove(ctx context.Context, id string) error
}

// MemoryStore is an in-process Store for tests and throwaway runs.
type MemoryStore struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *MemoryStore) NextDue(_ context.Context, now time.Time) (*Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sort.SliceStable(s.events, func(i, j int) bool {
		return s.events[i].CreatedAt.Before(s.events[j].CreatedAt)
	})
	for i := range s.events {
		if !s.events[i].NextAttemptAt.After(now) {
			s.events[i].NextAttemptAt = now.Add(claimLease)
			ev := s.events[i]
			return &ev, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) Reschedule(_ context.Context, id string, attempts int, next time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].ID == id {
			s.events[i].Attempts = attempts
			s.events[i].NextAttemptAt = next
			return nil
		}
	}
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].ID == id {
			s.events = append(s.events[:i], s.events[i+1:]...)
			return nil
		}
	}
	return nil
}

// Len reports the number of stored events. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}
