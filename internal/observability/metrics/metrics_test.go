package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestChatbotMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewChatbotMetrics(reg)
	m.EventEnqueued("create_order")
	m.EventDelivered("create_order")
	m.EventDropped("escalate_to_human")
	m.MessageDispatched("confirmed")
}

func TestChatbotMetricsNilSafe(t *testing.T) {
	var m *ChatbotMetrics
	m.EventEnqueued("create_order")
	m.EventDelivered("create_order")
	m.EventDropped("create_order")
	m.MessageDispatched("menu")
}
