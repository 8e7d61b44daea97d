package loyalty

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pressing_chatbot_backend/internal/events"
	"pressing_chatbot_backend/internal/relay"
	"pressing_chatbot_backend/platform/logger"
)

type recordingQueue struct {
	events   []string
	payloads []any
}

func (q *recordingQueue) Enqueue(_ context.Context, event string, payload any) error {
	q.events = append(q.events, event)
	q.payloads = append(q.payloads, payload)
	return nil
}

type stubPuller struct {
	resp json.RawMessage
	err  error
}

func (s stubPuller) Request(context.Context, string, any) (json.RawMessage, error) {
	return s.resp, s.err
}

func TestPointsForAmount(t *testing.T) {
	assert.Equal(t, 0, PointsForAmount(0))
	assert.Equal(t, 0, PointsForAmount(999))
	assert.Equal(t, 1, PointsForAmount(1000))
	assert.Equal(t, 1, PointsForAmount(1999))
	assert.Equal(t, 4, PointsForAmount(4500))
	assert.Equal(t, 0, PointsForAmount(-100))
}

func TestAddPointsSkipsNonPositive(t *testing.T) {
	q := &recordingQueue{}
	s := NewService(q, stubPuller{}, logger.New("development"))

	s.AddPoints(context.Background(), "+22670000001", 0, "rien")
	s.AddPoints(context.Background(), "", 5, "sans téléphone")

	assert.Empty(t, q.events)
}

func TestAddPointsEnqueuesTransaction(t *testing.T) {
	q := &recordingQueue{}
	s := NewService(q, stubPuller{}, logger.New("development"))

	s.AddPoints(context.Background(), "+22670000001", 3, "order abc")

	require.Equal(t, []string{relay.EventAddPoints}, q.events)
	payload, ok := q.payloads[0].(relay.AddPointsPayload)
	require.True(t, ok)
	assert.Equal(t, "+22670000001", payload.ClientPhone)
	assert.Equal(t, 3, payload.Points)
	assert.Equal(t, "order abc", payload.Reason)
}

func TestGetPointsDegradesToZero(t *testing.T) {
	log := logger.New("development")

	s := NewService(&recordingQueue{}, stubPuller{err: errors.New("down")}, log)
	assert.Equal(t, 0, s.GetPoints(context.Background(), "+22670000001"))

	s = NewService(&recordingQueue{}, stubPuller{resp: json.RawMessage(`{"points": 42}`)}, log)
	assert.Equal(t, 42, s.GetPoints(context.Background(), "+22670000001"))
}

func TestSubscribeAwardsPointsOnConfirmedOrders(t *testing.T) {
	log := logger.New("development")
	q := &recordingQueue{}
	s := NewService(q, stubPuller{}, log)

	bus := events.NewInMemoryBus(log)
	s.SubscribeToOrders(bus)

	err := bus.PublishSync(context.Background(), events.OrderConfirmed{
		BaseEvent:   events.NewBaseEvent(),
		OrderID:     "ord-1",
		ClientPhone: "+22670000001",
		TotalAmount: 4500,
	})
	require.NoError(t, err)

	require.Equal(t, []string{relay.EventAddPoints}, q.events)
	payload := q.payloads[0].(relay.AddPointsPayload)
	assert.Equal(t, 4, payload.Points)
}
