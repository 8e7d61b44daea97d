package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChatbotMetrics exposes counters for the relay queue and the dispatcher.
type ChatbotMetrics struct {
	eventsEnqueued  *prometheus.CounterVec
	eventsDelivered *prometheus.CounterVec
	eventsDropped   *prometheus.CounterVec
	dispatched      *prometheus.CounterVec
}

func NewChatbotMetrics(reg prometheus.Registerer) *ChatbotMetrics {
	m := &ChatbotMetrics{
		eventsEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pressing",
			Subsystem: "relay",
			Name:      "events_enqueued_total",
			Help:      "Events accepted into the delivery queue",
		}, []string{"event"}),
		eventsDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pressing",
			Subsystem: "relay",
			Name:      "events_delivered_total",
			Help:      "Events delivered to Make",
		}, []string{"event"}),
		eventsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pressing",
			Subsystem: "relay",
			Name:      "events_dropped_total",
			Help:      "Events dropped after exhausting retries",
		}, []string{"event"}),
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pressing",
			Subsystem: "chatbot",
			Name:      "messages_dispatched_total",
			Help:      "Inbound messages routed by the dispatcher",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.eventsEnqueued, m.eventsDelivered, m.eventsDropped, m.dispatched)
	return m
}

func (m *ChatbotMetrics) EventEnqueued(event string) {
	if m == nil {
		return
	}
	m.eventsEnqueued.WithLabelValues(event).Inc()
}

func (m *ChatbotMetrics) EventDelivered(event string) {
	if m == nil {
		return
	}
	m.eventsDelivered.WithLabelValues(event).Inc()
}

func (m *ChatbotMetrics) EventDropped(event string) {
	if m == nil {
		return
	}
	m.eventsDropped.WithLabelValues(event).Inc()
}

func (m *ChatbotMetrics) MessageDispatched(outcome string) {
	if m == nil {
		return
	}
	m.dispatched.WithLabelValues(outcome).Inc()
}
