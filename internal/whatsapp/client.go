// Package whatsapp sends outbound messages through the WhatsApp Cloud API.
// Sends are best-effort: a nil client (credentials absent) logs and drops,
// so the conversational flow never depends on Meta being reachable.
package whatsapp

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
	"pressing_chatbot_backend/platform/phone"
)

const graphAPIBase = "https://graph.facebook.com/v17.0"

type Client struct {
	token      string
	phoneID    string
	adminPhone string
	baseURL    string
	http       *http.Client
	log        *logger.Logger
}

type textMessage struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type textBody struct {
	Body string `json:"body"`
}

type imageMessage struct {
	MessagingProduct string    `json:"messaging_product"`
	To               string    `json:"to"`
	Type             string    `json:"type"`
	Image            imageBody `json:"image"`
}

type imageBody struct {
	Link    string `json:"link"`
	Caption string `json:"caption,omitempty"`
}

// NewClient returns nil when credentials are not configured. All methods are
// nil-safe so callers never need to branch on configuration.
func NewClient(cfg config.WhatsAppConfig, log *logger.Logger) *Client {
	if !cfg.IsWhatsAppEnabled() {
		log.Warn("whatsapp sender disabled, outbound messages will be logged only")
		return nil
	}

	return &Client{
		token:      cfg.GetWhatsAppToken(),
		phoneID:    cfg.GetWhatsAppPhoneID(),
		adminPhone: cfg.GetAdminPhone(),
		baseURL:    graphAPIBase,
		http:       &http.Client{Timeout: 15 * time.Second},
		log:        log,
	}
}

// SendText delivers a plain text message to the given phone number.
func (c *Client) SendText(ctx context.Context, phoneNumber, body string) error {
	if c == nil {
		return nil
	}

	msg := textMessage{
		MessagingProduct: "whatsapp",
		To:               phone.Digits(phoneNumber),
		Type:             "text",
		Text:             textBody{Body: body},
	}
	return c.post(ctx, msg, msg.To)
}

// SendImage delivers an image by public URL with an optional caption.
func (c *Client) SendImage(ctx context.Context, phoneNumber, link, caption string) error {
	if c == nil {
		return nil
	}

	msg := imageMessage{
		MessagingProduct: "whatsapp",
		To:               phone.Digits(phoneNumber),
		Type:             "image",
		Image:            imageBody{Link: link, Caption: caption},
	}
	return c.post(ctx, msg, msg.To)
}

// NotifyAdmin sends a text to the configured back-office number, if any.
func (c *Client) NotifyAdmin(ctx context.Context, body string) error {
	if c == nil || c.adminPhone == "" {
		return nil
	}
	return c.SendText(ctx, c.adminPhone, body)
}

func (c *Client) post(ctx context.Context, payload any, to string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal whatsapp payload: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("whatsapp api returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	c.log.Info("whatsapp message sent", "phone", to)
	return nil
}
