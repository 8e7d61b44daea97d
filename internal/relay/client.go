// Package relay integrates with the Make.com automation backend. The Client
// is the single narrow interface to the remote scenarios; the Queue adds
// durable, retried delivery for fire-and-forget pushes.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pressing_chatbot_backend/platform/config"
	"pressing_chatbot_backend/platform/logger"
)

// Client posts event envelopes to the Make.com webhook URL. Both push
// (orders, pickups, escalations) and pull (promotions, agents, reminders)
// conventions go through Request; only pushes are wrapped by the Queue.
type Client struct {
	webhookURL string
	apiKey     string
	http       *http.Client
	log        *logger.Logger
}

// envelope is the wire format the Make scenarios expect.
type envelope struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
	TS      string      `json:"ts"`
}

// NewClient creates a Make relay client. The webhook URL and API key are
// hard dependencies, validated at config load time.
func NewClient(cfg config.MakeConfig, log *logger.Logger) *Client {
	timeout := cfg.GetMakeTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		webhookURL: strings.TrimSpace(cfg.GetMakeWebhookURL()),
		apiKey:     cfg.GetMakeAPIKey(),
		http:       &http.Client{Timeout: timeout},
		log:        log,
	}
}

// Request sends one event envelope and returns the raw response body.
// Non-2xx responses are errors so the Queue's retry policy can engage.
func (c *Client) Request(ctx context.Context, event string, payload interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(envelope{
		Event:   event,
		Payload: payload,
		TS:      time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal relay envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-make-apikey", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("relay request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read relay response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("relay returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	return data, nil
}

// Forward delivers an already-marshalled payload. It is the delivery side
// used by the Queue.
func (c *Client) Forward(ctx context.Context, event string, payload json.RawMessage) error {
	_, err := c.Request(ctx, event, payload)
	return err
}
