package reminders

import (
	"context"
	"encoding/json"

	"pressing_chatbot_backend/internal/relay"
	"pressing_chatbot_backend/platform/logger"
)

type puller interface {
	Request(ctx context.Context, event string, payload any) (json.RawMessage, error)
}

// Sender delivers reminder texts. Satisfied by *whatsapp.Client.
type Sender interface {
	SendText(ctx context.Context, to, body string) error
}

// Notifier journals sent reminders. Satisfied by *notifications.Logbook.
type Notifier interface {
	Record(ctx context.Context, phone, message, mediaURL, typ string)
}

// pendingReminder is one entry of the notify list Make returns for
// get_pending_orders.
type pendingReminder struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

type Service struct {
	relay    puller
	sender   Sender
	notifier Notifier
	log      *logger.Logger
}

func NewService(client puller, sender Sender, notifier Notifier, log *logger.Logger) *Service {
	return &Service{relay: client, sender: sender, notifier: notifier, log: log}
}

// SendDue asks Make for the clients with pending orders and texts each one.
// Per-recipient failures are logged and skipped so one bad number does not
// stall the sweep.
func (s *Service) SendDue(ctx context.Context) error {
	resp, err := s.relay.Request(ctx, relay.EventGetPendingOrders, nil)
	if err != nil {
		return err
	}

	var body struct {
		Notify []pendingReminder `json:"notify"`
	}
	if err := json.Unmarshal(resp, &body); err != nil {
		s.log.Warn("pending orders response unparseable", "error", err.Error())
		return nil
	}
	if len(body.Notify) == 0 {
		s.log.Info("no reminders due")
		return nil
	}

	s.log.Info("sending reminders", "count", len(body.Notify))
	for _, r := range body.Notify {
		if r.Phone == "" || r.Message == "" {
			continue
		}
		if err := s.sender.SendText(ctx, r.Phone, r.Message); err != nil {
			s.log.SendFailure(r.Phone, err)
			continue
		}
		if s.notifier != nil {
			typ := r.Type
			if typ == "" {
				typ = "Reminder"
			}
			s.notifier.Record(ctx, r.Phone, r.Message, "", typ)
		}
	}
	return nil
}
