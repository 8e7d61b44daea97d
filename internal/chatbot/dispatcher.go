// Package chatbot implements the conversational flow between inbound
// WhatsApp messages and the Make backend: menu navigation, order pricing
// and confirmation, pickup requests and human escalation.
package chatbot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"pressing_chatbot_backend/internal/agents"
	"pressing_chatbot_backend/internal/catalog"
	"pressing_chatbot_backend/internal/events"
	"pressing_chatbot_backend/internal/notifications"
	"pressing_chatbot_backend/internal/orders"
	"pressing_chatbot_backend/internal/pricing"
	"pressing_chatbot_backend/internal/relay"
	"pressing_chatbot_backend/internal/userstate"
	"pressing_chatbot_backend/platform/logger"
	"pressing_chatbot_backend/platform/phone"
)

// greetingWindow is how long a conversation stays "warm". The first message
// at or past this boundary restarts at the welcome menu.
const greetingWindow = 24 * time.Hour

// InboundMessage is a provider-normalized incoming message.
type InboundMessage struct {
	From      string
	MessageID string
	Text      string
	Location  *Location
}

// Location is a shared WhatsApp location pin.
type Location struct {
	Latitude  float64
	Longitude float64
	Address   string
}

// Sender delivers replies. Satisfied by *whatsapp.Client.
type Sender interface {
	SendText(ctx context.Context, to, body string) error
}

// Enqueuer queues outbound events for durable delivery. Satisfied by
// *relay.Queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, event string, payload any) error
}

// PromoSource resolves the discount applying to an article.
type PromoSource interface {
	HighestDiscount(ctx context.Context, designation string) float64
}

// AgentSource picks an available human agent, nil when none.
type AgentSource interface {
	Assign(ctx context.Context) (*agents.Agent, error)
}

// Notifier journals outbound messages. Satisfied by *notifications.Logbook.
type Notifier interface {
	Record(ctx context.Context, phone, message, mediaURL, typ string)
}

// AdminSender alerts the back-office number. Satisfied by *whatsapp.Client.
type AdminSender interface {
	NotifyAdmin(ctx context.Context, body string) error
}

// Observer counts dispatch outcomes for monitoring.
type Observer interface {
	MessageDispatched(outcome string)
}

// Dispatch outcomes reported to the Observer.
const (
	OutcomePickup     = "pickup"
	OutcomeGreeting   = "greeting"
	OutcomeMenu       = "menu"
	OutcomeEscalation = "escalation"
	OutcomeService    = "service"
	OutcomeQuote      = "quote"
	OutcomeQuoteError = "quote_error"
	OutcomeConfirmed  = "confirmed"
	OutcomeCancelled  = "cancelled"
	OutcomeReprompt   = "reprompt"
	OutcomeHelp       = "help"
	OutcomeUnhandled  = "unhandled"
	OutcomeError      = "error"
)

// Options carries the optional collaborators of a Dispatcher.
type Options struct {
	Promos   PromoSource
	Agents   AgentSource
	Notifier Notifier
	Observer Observer
	OrderLog *orders.FileLog
	// Admin alerts the back office when no agent is available.
	Admin AdminSender
	// AdminPhone is the fallback alert target when Admin is not wired.
	AdminPhone string
	// Now is injected by tests; defaults to time.Now.
	Now func() time.Time
}

// Dispatcher routes one inbound message at a time per phone. State is read
// once at entry and written exactly once per dispatch.
type Dispatcher struct {
	states  userstate.Store
	catalog *catalog.Reader
	queue   Enqueuer
	sender  Sender
	bus     events.Bus
	log     *logger.Logger

	promos     PromoSource
	agents     AgentSource
	notifier   Notifier
	observer   Observer
	orderLog   *orders.FileLog
	admin      AdminSender
	adminPhone string
	now        func() time.Time
}

func NewDispatcher(states userstate.Store, cat *catalog.Reader, queue Enqueuer, sender Sender, bus events.Bus, log *logger.Logger, opts Options) *Dispatcher {
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Dispatcher{
		states:     states,
		catalog:    cat,
		queue:      queue,
		sender:     sender,
		bus:        bus,
		log:        log,
		promos:     opts.Promos,
		agents:     opts.Agents,
		notifier:   opts.Notifier,
		observer:   opts.Observer,
		orderLog:   opts.OrderLog,
		admin:      opts.Admin,
		adminPhone: opts.AdminPhone,
		now:        opts.Now,
	}
}

// Handle processes one inbound message end to end. It never returns an
// error: every failure path still answers the client, and the webhook layer
// has already acked the provider.
func (d *Dispatcher) Handle(ctx context.Context, msg InboundMessage) {
	if strings.TrimSpace(msg.From) == "" {
		return
	}
	from := phone.NormalizeE164(msg.From)
	log := d.log.WithPhone(from)

	outcome := d.dispatch(ctx, from, msg, log)
	if d.observer != nil {
		d.observer.MessageDispatched(outcome)
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, from string, msg InboundMessage, log *logger.Logger) string {
	now := d.now()

	// Location pins create a pickup without touching conversation state.
	if msg.Location != nil {
		return d.handleLocation(ctx, from, msg.Location, log)
	}

	st, err := d.states.Get(ctx, from)
	if err != nil {
		log.Error("state read failed", "error", err.Error())
		d.reply(ctx, from, msgInternalError, log)
		return OutcomeError
	}

	// A conversation going quiet for the full greeting window restarts at
	// the menu, whatever the previous state was.
	if st.LastMessageAt == nil || now.Sub(*st.LastMessageAt) >= greetingWindow {
		d.reply(ctx, from, msgWelcomeMenu, log)
		d.save(ctx, from, userstate.Update{
			LastMessageAt: &now,
			Conversation:  conversationPtr(userstate.StateMenu),
		}, log)
		return OutcomeGreeting
	}

	if msg.Text == "" {
		d.reply(ctx, from, msgUnhandledType, log)
		d.save(ctx, from, userstate.Update{LastMessageAt: &now}, log)
		return OutcomeUnhandled
	}

	body := strings.TrimSpace(msg.Text)
	low := strings.ToLower(body)

	if isResetKeyword(low) {
		d.reply(ctx, from, msgWelcomeMenu, log)
		d.save(ctx, from, userstate.Update{
			LastMessageAt: &now,
			Conversation:  conversationPtr(userstate.StateMenu),
		}, log)
		return OutcomeMenu
	}

	if isEscalationKeyword(low) {
		return d.handleEscalation(ctx, from, body, now, log)
	}

	if isServiceDigit(body) {
		return d.handleServiceSelection(ctx, from, body, now, log)
	}

	if intent, ok, valid := parseOrderIntent(body); ok {
		if !valid {
			d.reply(ctx, from, msgOrderError, log)
			d.save(ctx, from, userstate.Update{LastMessageAt: &now}, log)
			return OutcomeQuoteError
		}
		return d.handleOrderIntent(ctx, from, intent, now, log)
	}

	if st.Conversation == userstate.StateAwaitingConfirmation {
		return d.handleConfirmation(ctx, from, st, msg, low, now, log)
	}

	d.reply(ctx, from, msgHelp, log)
	d.save(ctx, from, userstate.Update{LastMessageAt: &now}, log)
	return OutcomeHelp
}

func (d *Dispatcher) handleLocation(ctx context.Context, from string, loc *Location, log *logger.Logger) string {
	err := d.queue.Enqueue(ctx, relay.EventCreatePickup, relay.CreatePickupPayload{
		Phone:   from,
		Lat:     loc.Latitude,
		Lon:     loc.Longitude,
		Address: loc.Address,
	})
	if err != nil {
		log.Error("pickup enqueue failed", "error", err.Error())
		d.reply(ctx, from, msgInternalError, log)
		return OutcomeError
	}

	d.bus.Publish(ctx, events.PickupRequested{
		BaseEvent:   events.NewBaseEvent(),
		ClientPhone: from,
		Latitude:    loc.Latitude,
		Longitude:   loc.Longitude,
		Address:     loc.Address,
	})
	d.reply(ctx, from, msgLocationReceived, log)
	if d.notifier != nil {
		d.notifier.Record(ctx, from, msgLocationReceived, "", notifications.TypePickup)
	}
	return OutcomePickup
}

func (d *Dispatcher) handleEscalation(ctx context.Context, from, body string, now time.Time, log *logger.Logger) string {
	d.reply(ctx, from, msgEscalation, log)

	err := d.queue.Enqueue(ctx, relay.EventEscalateToHuman, relay.EscalateToHumanPayload{
		Phone:           from,
		OriginalMessage: body,
		TS:              now.Format(time.RFC3339),
	})
	if err != nil {
		log.Error("escalation enqueue failed", "error", err.Error())
	}

	d.bus.Publish(ctx, events.EscalationRequested{
		BaseEvent:       events.NewBaseEvent(),
		ClientPhone:     from,
		OriginalMessage: body,
	})
	d.notifyTeam(ctx, from, log)
	if d.notifier != nil {
		d.notifier.Record(ctx, from, msgEscalation, "", notifications.TypeHumanEscalation)
	}

	d.save(ctx, from, userstate.Update{
		LastMessageAt: &now,
		Conversation:  conversationPtr(userstate.StateWaitAgent),
	}, log)
	return OutcomeEscalation
}

// notifyTeam texts an available agent, falling back to the back-office
// channel. Best-effort on every leg.
func (d *Dispatcher) notifyTeam(ctx context.Context, from string, log *logger.Logger) {
	alert := fmt.Sprintf(msgAdminEscalationFmt, from)

	if d.agents != nil {
		agent, err := d.agents.Assign(ctx)
		if err != nil {
			log.Warn("agent assignment failed", "error", err.Error())
		} else if agent != nil {
			d.reply(ctx, agent.Phone, alert, log)
			return
		}
	}
	if d.admin != nil {
		if err := d.admin.NotifyAdmin(ctx, alert); err != nil {
			log.Warn("admin alert failed", "error", err.Error())
		}
		return
	}
	if d.adminPhone != "" {
		d.reply(ctx, d.adminPhone, alert, log)
	}
}

func (d *Dispatcher) handleServiceSelection(ctx context.Context, from, digit string, now time.Time, log *logger.Logger) string {
	n := int(digit[0] - '0')
	d.reply(ctx, from, serviceDetail(n), log)

	// Option 5 is "talk to a human": same alert path as the keyword.
	if n == 5 {
		d.notifyTeam(ctx, from, log)
	}

	d.save(ctx, from, userstate.Update{
		LastMessageAt: &now,
		Conversation:  conversationPtr(userstate.Service(n)),
	}, log)
	return OutcomeService
}

func (d *Dispatcher) handleOrderIntent(ctx context.Context, from string, intent orderIntent, now time.Time, log *logger.Logger) string {
	items, err := d.catalog.ReadCatalog(ctx)
	if err != nil {
		log.Error("catalogue unavailable", "error", err.Error())
		d.reply(ctx, from, msgOrderError, log)
		d.save(ctx, from, userstate.Update{LastMessageAt: &now}, log)
		return OutcomeQuoteError
	}

	discount := 0.0
	if d.promos != nil {
		if item, findErr := catalog.FindItem(items, intent.ItemRef); findErr == nil {
			discount = d.promos.HighestDiscount(ctx, item.Designation)
		}
	}

	quote, err := pricing.ComputePrice(items, intent.ItemRef, intent.Variant, intent.Quantity, discount)
	if err != nil {
		log.Info("order intent rejected", "ref", intent.ItemRef, "variant", intent.Variant, "error", err.Error())
		d.reply(ctx, from, msgOrderError, log)
		d.save(ctx, from, userstate.Update{LastMessageAt: &now}, log)
		return OutcomeQuoteError
	}

	draft := &orders.Draft{
		ID:          uuid.NewString(),
		ClientPhone: from,
		Lines: []orders.Line{{
			Designation: quote.Item.Designation,
			Variant:     quote.Variant,
			Quantity:    quote.Quantity,
			UnitPrice:   quote.UnitPrice,
			Total:       quote.Total,
		}},
		TotalAmount: quote.Total,
		Status:      orders.StatusPending,
		CreatedAt:   now,
	}

	d.reply(ctx, from, orderRecap(quote.Breakdown, quote.Total), log)
	d.save(ctx, from, userstate.Update{
		LastMessageAt: &now,
		Conversation:  conversationPtr(userstate.StateAwaitingConfirmation),
		PendingOrder:  draft,
	}, log)
	return OutcomeQuote
}

func (d *Dispatcher) handleConfirmation(ctx context.Context, from string, st userstate.State, msg InboundMessage, low string, now time.Time, log *logger.Logger) string {
	switch {
	case isYes(low):
		return d.confirmOrder(ctx, from, st, msg, now, log)
	case isNo(low):
		d.reply(ctx, from, msgOrderCancelled, log)
		d.save(ctx, from, userstate.Update{
			LastMessageAt:     &now,
			Conversation:      conversationPtr(userstate.StateMenu),
			ClearPendingOrder: true,
		}, log)
		return OutcomeCancelled
	default:
		d.reply(ctx, from, msgConfirmPrompt, log)
		d.save(ctx, from, userstate.Update{LastMessageAt: &now}, log)
		return OutcomeReprompt
	}
}

// confirmOrder commits the pending draft exactly once. The draft itself is
// the idempotency guard: a confirmation with no pending draft, an already
// confirmed draft, or the same provider message ID commits nothing.
func (d *Dispatcher) confirmOrder(ctx context.Context, from string, st userstate.State, msg InboundMessage, now time.Time, log *logger.Logger) string {
	draft := st.PendingOrder
	if draft == nil || len(draft.Lines) == 0 {
		d.reply(ctx, from, msgNoPendingOrder, log)
		d.save(ctx, from, userstate.Update{
			LastMessageAt: &now,
			Conversation:  conversationPtr(userstate.StateMenu),
		}, log)
		return OutcomeReprompt
	}
	if draft.Status == orders.StatusConfirmed || (msg.MessageID != "" && draft.ConfirmMessageID == msg.MessageID) {
		d.reply(ctx, from, msgOrderConfirmed, log)
		d.save(ctx, from, userstate.Update{
			LastMessageAt: &now,
			Conversation:  conversationPtr(userstate.StateOrderConfirmed),
		}, log)
		return OutcomeConfirmed
	}

	line := draft.Lines[0]
	err := d.queue.Enqueue(ctx, relay.EventCreateOrder, relay.CreateOrderPayload{
		OrderID:        draft.ID,
		Phone:          from,
		ServiceRef:     line.Designation,
		PriceType:      line.Variant,
		Qty:            line.Quantity,
		EstimatedTotal: draft.TotalAmount,
		TS:             now.Format(time.RFC3339),
	})
	if err != nil {
		log.Error("order enqueue failed", "orderId", draft.ID, "error", err.Error())
		d.reply(ctx, from, msgInternalError, log)
		d.save(ctx, from, userstate.Update{LastMessageAt: &now}, log)
		return OutcomeError
	}
	if err := d.queue.Enqueue(ctx, relay.EventConfirmLastOrder, relay.ConfirmLastOrderPayload{
		Phone:   from,
		OrderID: draft.ID,
	}); err != nil {
		log.Error("order confirmation enqueue failed", "orderId", draft.ID, "error", err.Error())
	}

	confirmed := *draft
	confirmed.Status = orders.StatusConfirmed
	confirmed.ConfirmMessageID = msg.MessageID

	if d.orderLog != nil {
		if err := d.orderLog.Append(confirmed); err != nil {
			log.Warn("local order log append failed", "orderId", draft.ID, "error", err.Error())
		}
	}

	d.bus.Publish(ctx, events.OrderConfirmed{
		BaseEvent:   events.NewBaseEvent(),
		OrderID:     confirmed.ID,
		ClientPhone: from,
		TotalAmount: confirmed.TotalAmount,
	})

	d.reply(ctx, from, msgOrderConfirmed, log)
	d.save(ctx, from, userstate.Update{
		LastMessageAt: &now,
		Conversation:  conversationPtr(userstate.StateOrderConfirmed),
		PendingOrder:  &confirmed,
	}, log)
	log.Info("order confirmed", "orderId", confirmed.ID, "total", confirmed.TotalAmount)
	return OutcomeConfirmed
}

// reply sends a text best-effort. Send failures are logged, never surfaced.
func (d *Dispatcher) reply(ctx context.Context, to, body string, log *logger.Logger) {
	if err := d.sender.SendText(ctx, to, body); err != nil {
		log.SendFailure(to, err)
	}
}

// save writes the single per-dispatch state update and mirrors it to the
// remote user sheet. The local store is authoritative; the mirror is a queued
// best-effort copy.
func (d *Dispatcher) save(ctx context.Context, phone string, update userstate.Update, log *logger.Logger) {
	if err := d.states.Save(ctx, phone, update); err != nil {
		log.Error("state save failed", "error", err.Error())
		return
	}

	patch := relay.UserStatePatch{}
	if update.LastMessageAt != nil {
		patch.LastMessageTS = update.LastMessageAt.UTC().Format(time.RFC3339)
	}
	if update.Conversation != nil {
		patch.State = string(*update.Conversation)
	}
	if patch == (relay.UserStatePatch{}) {
		return
	}
	if err := d.queue.Enqueue(ctx, relay.EventUpdateUser, relay.UpdateUserPayload{
		Phone: phone,
		Data:  patch,
	}); err != nil {
		log.Warn("user state mirror enqueue failed", "error", err.Error())
	}
}

func conversationPtr(c userstate.Conversation) *userstate.Conversation {
	return &c
}
