// Package promotions resolves the discount applicable to an article from the
// promotions sheet behind Make.
package promotions

import (
	"context"
	"encoding/json"
	"strings"

	"pressing_chatbot_backend/internal/relay"
	"pressing_chatbot_backend/platform/logger"
)

// Promotion is one row of the promotions sheet.
type Promotion struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Discount    float64 `json:"discount"`
	ValidUntil  string  `json:"validUntil,omitempty"`
}

type puller interface {
	Request(ctx context.Context, event string, payload any) (json.RawMessage, error)
}

type Service struct {
	relay puller
	log   *logger.Logger
}

func NewService(client puller, log *logger.Logger) *Service {
	return &Service{relay: client, log: log}
}

// List returns the current promotions. A relay failure degrades to an empty
// list, so callers never branch on promo availability.
func (s *Service) List(ctx context.Context) []Promotion {
	resp, err := s.relay.Request(ctx, relay.EventListPromos, nil)
	if err != nil {
		s.log.Warn("promotions lookup failed", "error", err.Error())
		return nil
	}

	var promos []Promotion
	if err := json.Unmarshal(resp, &promos); err != nil {
		s.log.Warn("promotions response unparseable", "error", err.Error())
		return nil
	}
	return promos
}

// HighestDiscount returns the best discount percent applying to an article.
// A promotion applies when its title or description mentions the designation,
// or names no article at all (storewide). Ties on percent are broken by
// lexicographically smallest promotion ID so the result is deterministic.
func (s *Service) HighestDiscount(ctx context.Context, designation string) float64 {
	return BestDiscount(s.List(ctx), designation)
}

// BestDiscount is the pure selection over an already-loaded promo list.
func BestDiscount(promos []Promotion, designation string) float64 {
	lowDesignation := strings.ToLower(strings.TrimSpace(designation))

	best := 0.0
	bestID := ""
	for _, p := range promos {
		if p.Discount <= 0 || p.Discount > 100 {
			continue
		}
		if !applies(p, lowDesignation) {
			continue
		}
		switch {
		case p.Discount > best:
			best = p.Discount
			bestID = p.ID
		case p.Discount == best && (bestID == "" || p.ID < bestID):
			bestID = p.ID
		}
	}
	return best
}

func applies(p Promotion, lowDesignation string) bool {
	if lowDesignation == "" {
		return true
	}
	title := strings.ToLower(p.Title)
	desc := strings.ToLower(p.Description)
	if title == "" && desc == "" {
		return true
	}
	return strings.Contains(title, lowDesignation) || strings.Contains(desc, lowDesignation)
}
