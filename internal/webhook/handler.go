package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pressing_chatbot_backend/internal/chatbot"
	"pressing_chatbot_backend/internal/relay"
	"pressing_chatbot_backend/platform/logger"
)

// dispatchTimeout bounds one message's processing after the provider has
// already been acked.
const dispatchTimeout = 30 * time.Second

// Handler terminates the Meta webhook: handshake on GET, deliveries on POST.
type Handler struct {
	dispatcher  dispatcher
	queue       enqueuer
	verifyToken string
	log         *logger.Logger

	// sem bounds concurrent dispatch goroutines.
	sem chan struct{}
}

type enqueuer interface {
	Enqueue(ctx context.Context, event string, payload any) error
}

// dispatcher routes one normalized inbound message. Satisfied by
// *chatbot.Dispatcher.
type dispatcher interface {
	Handle(ctx context.Context, msg chatbot.InboundMessage)
}

func NewHandler(dispatcher dispatcher, queue enqueuer, verifyToken string, log *logger.Logger) *Handler {
	return &Handler{
		dispatcher:  dispatcher,
		queue:       queue,
		verifyToken: verifyToken,
		log:         log,
		sem:         make(chan struct{}, 32),
	}
}

// Verify implements the hub.challenge handshake Meta performs when the
// webhook URL is registered.
func (h *Handler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "" && token == "" {
		c.Status(http.StatusOK)
		return
	}
	if mode == "subscribe" && token == h.verifyToken && h.verifyToken != "" {
		h.log.Info("webhook verified")
		c.String(http.StatusOK, challenge)
		return
	}
	c.Status(http.StatusForbidden)
}

// Receive acks the provider immediately and processes each carried message in
// the background. The raw body is forwarded to Make untouched so the
// scenarios keep their own audit trail.
func (h *Handler) Receive(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Status(http.StatusOK)
		return
	}

	var payload cloudPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.log.Warn("webhook body unparseable", "error", err.Error())
		c.Status(http.StatusOK)
		return
	}

	if err := h.queue.Enqueue(c.Request.Context(), relay.EventIncomingMessage, relay.IncomingMessagePayload{
		Body: json.RawMessage(body),
	}); err != nil {
		h.log.Warn("incoming message forward failed", "error", err.Error())
	}

	for _, msg := range payload.messages() {
		h.log.WebhookEvent("whatsapp", messageKind(msg), msg.From)
		h.dispatchAsync(msg)
	}

	c.Status(http.StatusOK)
}

// dispatchAsync hands one message to the dispatcher on a bounded goroutine.
// The provider is already acked, so the request context is not inherited.
func (h *Handler) dispatchAsync(msg chatbot.InboundMessage) {
	h.sem <- struct{}{}
	go func() {
		defer func() { <-h.sem }()
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		h.dispatcher.Handle(ctx, msg)
	}()
}

func messageKind(msg chatbot.InboundMessage) string {
	switch {
	case msg.Location != nil:
		return "location"
	case msg.Text != "":
		return "text"
	}
	return "other"
}
