package relay

import "encoding/json"

// Event names understood by the Make scenarios. Pushes go through the Queue;
// pulls are issued directly against the Client.
const (
	// Push events (queued, retried)
	EventIncomingMessage  = "incoming_message"
	EventCreateOrder      = "create_order"
	EventConfirmLastOrder = "confirm_last_order"
	EventCreatePickup     = "create_pickup"
	EventEscalateToHuman  = "escalate_to_human"
	EventUpdateUser       = "update_user"
	EventAddPoints        = "PointsTransactions_add"
	EventLogNotification  = "NotificationsLog_add"
	EventLogFeedback      = "Feedbacks_add"

	// Pull events (direct request/response)
	EventGetPoints         = "PointsTransactions_get"
	EventGetPendingOrders  = "get_pending_orders"
	EventListPromos        = "list_promos"
	EventGetAvailableAgent = "Agents_getAvailable"
)

// Typed payloads per push event. Each queued event name has an explicit
// schema validated at the enqueue boundary, so malformed shapes are rejected
// before they are durably recorded.

// IncomingMessagePayload forwards a raw provider webhook body.
type IncomingMessagePayload struct {
	Body json.RawMessage `json:"body" validate:"required"`
}

// CreateOrderPayload records a priced order draft.
type CreateOrderPayload struct {
	OrderID        string `json:"orderId" validate:"required"`
	Phone          string `json:"phone" validate:"required"`
	Name           string `json:"name,omitempty"`
	ServiceRef     string `json:"serviceRef" validate:"required"`
	PriceType      string `json:"priceType" validate:"required"`
	Qty            int    `json:"qty" validate:"required,gt=0"`
	EstimatedTotal int    `json:"estimated_total" validate:"gte=0"`
	TS             string `json:"ts" validate:"required"`
}

// ConfirmLastOrderPayload confirms the most recent order for a phone.
type ConfirmLastOrderPayload struct {
	Phone   string `json:"phone" validate:"required"`
	OrderID string `json:"orderId,omitempty"`
}

// CreatePickupPayload registers a home pickup location.
type CreatePickupPayload struct {
	Phone   string  `json:"phone" validate:"required"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Address string  `json:"address,omitempty"`
}

// EscalateToHumanPayload signals a human-agent request to the back office.
type EscalateToHumanPayload struct {
	Phone           string `json:"phone" validate:"required"`
	OriginalMessage string `json:"originalMessage,omitempty"`
	TS              string `json:"ts" validate:"required"`
}

// UpdateUserPayload mirrors conversation state to the remote user sheet.
type UpdateUserPayload struct {
	Phone string         `json:"phone" validate:"required"`
	Data  UserStatePatch `json:"data" validate:"required"`
}

// UserStatePatch is the subset of user fields the relay mirrors.
type UserStatePatch struct {
	LastMessageTS string `json:"last_message_ts,omitempty"`
	State         string `json:"state,omitempty"`
}

// AddPointsPayload credits loyalty points to a client.
type AddPointsPayload struct {
	ClientPhone string `json:"clientPhone" validate:"required"`
	Points      int    `json:"points" validate:"required,gt=0"`
	Reason      string `json:"reason,omitempty"`
	TS          string `json:"ts" validate:"required"`
}

// LogNotificationPayload records an outbound notification for audit.
type LogNotificationPayload struct {
	Phone    string `json:"phone" validate:"required"`
	Message  string `json:"message" validate:"required"`
	MediaURL string `json:"mediaUrl,omitempty"`
	Type     string `json:"type" validate:"required"`
	TS       string `json:"ts" validate:"required"`
}

// LogFeedbackPayload records a client feedback entry.
type LogFeedbackPayload struct {
	Phone   string `json:"phone" validate:"required"`
	Message string `json:"message" validate:"required"`
	Rating  *int   `json:"rating,omitempty" validate:"omitempty,gte=1,lte=5"`
	TS      string `json:"ts" validate:"required"`
}

// payloadSchema returns a fresh payload prototype for a queued event name.
// Unregistered names are not accepted by the Queue.
func payloadSchema(event string) (interface{}, bool) {
	switch event {
	case EventIncomingMessage:
		return &IncomingMessagePayload{}, true
	case EventCreateOrder:
		return &CreateOrderPayload{}, true
	case EventConfirmLastOrder:
		return &ConfirmLastOrderPayload{}, true
	case EventCreatePickup:
		return &CreatePickupPayload{}, true
	case EventEscalateToHuman:
		return &EscalateToHumanPayload{}, true
	case EventUpdateUser:
		return &UpdateUserPayload{}, true
	case EventAddPoints:
		return &AddPointsPayload{}, true
	case EventLogNotification:
		return &LogNotificationPayload{}, true
	case EventLogFeedback:
		return &LogFeedbackPayload{}, true
	}
	return nil, false
}
