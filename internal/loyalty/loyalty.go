// Package loyalty credits points for confirmed orders through the points
// sheet behind Make.
package loyalty

import (
	"context"
	"encoding/json"
	"time"

	"pressing_chatbot_backend/internal/events"
	"pressing_chatbot_backend/internal/relay"
	"pressing_chatbot_backend/platform/logger"
)

// PointsPerFCFA is the earn rate: one point per 1000 FCFA spent, floored.
const fcfaPerPoint = 1000

type enqueuer interface {
	Enqueue(ctx context.Context, event string, payload any) error
}

type puller interface {
	Request(ctx context.Context, event string, payload any) (json.RawMessage, error)
}

type Service struct {
	queue enqueuer
	relay puller
	log   *logger.Logger
}

func NewService(queue enqueuer, client puller, log *logger.Logger) *Service {
	return &Service{queue: queue, relay: client, log: log}
}

// PointsForAmount converts an order total to earned points.
func PointsForAmount(totalFCFA int) int {
	if totalFCFA <= 0 {
		return 0
	}
	return totalFCFA / fcfaPerPoint
}

// AddPoints credits points to a client. Zero or negative credits are skipped.
func (s *Service) AddPoints(ctx context.Context, clientPhone string, points int, reason string) {
	if clientPhone == "" || points <= 0 {
		return
	}
	err := s.queue.Enqueue(ctx, relay.EventAddPoints, relay.AddPointsPayload{
		ClientPhone: clientPhone,
		Points:      points,
		Reason:      reason,
		TS:          time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		s.log.Warn("loyalty points enqueue failed", "phone", clientPhone, "error", err.Error())
	}
}

// GetPoints returns the client's current balance, 0 on any failure.
func (s *Service) GetPoints(ctx context.Context, clientPhone string) int {
	if clientPhone == "" {
		return 0
	}
	resp, err := s.relay.Request(ctx, relay.EventGetPoints, map[string]string{"clientPhone": clientPhone})
	if err != nil {
		s.log.Warn("loyalty balance lookup failed", "phone", clientPhone, "error", err.Error())
		return 0
	}
	var body struct {
		Points int `json:"points"`
	}
	if err := json.Unmarshal(resp, &body); err != nil {
		s.log.Warn("loyalty balance response unparseable", "error", err.Error())
		return 0
	}
	return body.Points
}

// SubscribeToOrders awards points whenever an order is confirmed.
func (s *Service) SubscribeToOrders(bus events.Bus) {
	bus.Subscribe(events.OrderConfirmed{}.EventName(), events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		confirmed, ok := e.(events.OrderConfirmed)
		if !ok {
			return nil
		}
		s.AddPoints(ctx, confirmed.ClientPhone, PointsForAmount(confirmed.TotalAmount), "order "+confirmed.OrderID)
		return nil
	}))
}
