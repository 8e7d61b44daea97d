// Package notifications keeps a paper trail of outbound messages in the
// sheets behind Make. Logging is best-effort and never blocks a reply.
package notifications

import (
	"context"
	"time"

	"pressing_chatbot_backend/internal/relay"
	"pressing_chatbot_backend/platform/logger"
)

// Notification types recorded in the log.
const (
	TypeMessage         = "Message"
	TypeReminder        = "Reminder"
	TypePickup          = "Pickup"
	TypeHumanEscalation = "HumanEscalation"
)

type enqueuer interface {
	Enqueue(ctx context.Context, event string, payload any) error
}

type Logbook struct {
	queue enqueuer
	log   *logger.Logger
}

func NewLogbook(queue enqueuer, log *logger.Logger) *Logbook {
	return &Logbook{queue: queue, log: log}
}

// Record journals one outbound message. Missing phone or message is a caller
// bug logged and skipped, matching the sheet's required columns.
func (l *Logbook) Record(ctx context.Context, phone, message, mediaURL, typ string) {
	if phone == "" || message == "" {
		l.log.Warn("notification log skipped, missing phone or message")
		return
	}
	if typ == "" {
		typ = TypeMessage
	}

	err := l.queue.Enqueue(ctx, relay.EventLogNotification, relay.LogNotificationPayload{
		Phone:    phone,
		Message:  message,
		MediaURL: mediaURL,
		Type:     typ,
		TS:       time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		l.log.Warn("notification log enqueue failed", "error", err.Error())
	}
}

// Feedback journals a client feedback entry with an optional 1..5 rating.
func (l *Logbook) Feedback(ctx context.Context, phone, message string, rating *int) {
	if phone == "" || message == "" {
		l.log.Warn("feedback log skipped, missing phone or message")
		return
	}

	err := l.queue.Enqueue(ctx, relay.EventLogFeedback, relay.LogFeedbackPayload{
		Phone:   phone,
		Message: message,
		Rating:  rating,
		TS:      time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		l.log.Warn("feedback log enqueue failed", "error", err.Error())
	}
}
