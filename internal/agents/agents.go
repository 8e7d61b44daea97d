// Package agents resolves an available human agent through the Make backend.
package agents

import (
	"context"
	"encoding/json"

	"pressing_chatbot_backend/internal/relay"
	"pressing_chatbot_backend/platform/logger"
)

// Agent is a back-office team member reachable by WhatsApp.
type Agent struct {
	Name  string `json:"Name"`
	Phone string `json:"Phone"`
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

// Assign asks Make for an available agent. No available agent is not an
// error: the escalation flow degrades to the admin phone.
func (s *Service) Assign(ctx context.Context) (*Agent, error) {
	resp, err := s.relay.Request(ctx, relay.EventGetAvailableAgent, nil)
	if err != nil {
		return nil, err
	}

	var agent Agent
	if err := json.Unmarshal(resp, &agent); err != nil {
		s.log.Warn("agent lookup returned unparseable response", "error", err.Error())
		return nil, nil
	}
	if agent.Phone == "" {
		return nil, nil
	}
	if agent.Name == "" {
		agent.Name = "Agent"
	}
	return &agent, nil
}
