package webhook

import (
	"pressing_chatbot_backend/internal/chatbot"
)

// cloudPayload mirrors the WhatsApp Cloud API webhook envelope, down to the
// parts this service reads. Unknown fields are ignored.
type cloudPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []cloudMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
		Messaging []cloudMessage `json:"messaging"`
	} `json:"entry"`
	// Message is the simplified shape used by test harnesses.
	Message *cloudMessage `json:"message"`
}

type cloudMessage struct {
	From string `json:"from"`
	ID   string `json:"id"`
	Type string `json:"type"`
	Text *struct {
		Body string `json:"body"`
	} `json:"text"`
	Location *struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Name      string  `json:"name"`
		Address   string  `json:"address"`
	} `json:"location"`
}

// messages extracts every message carried by the webhook delivery, normalized
// for the dispatcher. Cloud API batches are flattened in arrival order.
func (p cloudPayload) messages() []chatbot.InboundMessage {
	var raw []cloudMessage
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			raw = append(raw, change.Value.Messages...)
		}
		raw = append(raw, entry.Messaging...)
	}
	if p.Message != nil {
		raw = append(raw, *p.Message)
	}

	var out []chatbot.InboundMessage
	for _, m := range raw {
		if m.From == "" {
			continue
		}
		msg := chatbot.InboundMessage{
			From:      m.From,
			MessageID: m.ID,
		}
		if m.Text != nil {
			msg.Text = m.Text.Body
		}
		if m.Location != nil {
			address := m.Location.Address
			if address == "" {
				address = m.Location.Name
			}
			msg.Location = &chatbot.Location{
				Latitude:  m.Location.Latitude,
				Longitude: m.Location.Longitude,
				Address:   address,
			}
		}
		out = append(out, msg)
	}
	return out
}
