package webhook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pressing_chatbot_backend/internal/chatbot"
	"pressing_chatbot_backend/internal/relay"
	"pressing_chatbot_backend/platform/logger"
)

type recordingDispatcher struct {
	mu   sync.Mutex
	msgs []chatbot.InboundMessage
}

func (d *recordingDispatcher) Handle(_ context.Context, msg chatbot.InboundMessage) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.msgs = append(d.msgs, msg)
}

func (d *recordingDispatcher) wait(t *testing.T, n int) []chatbot.InboundMessage {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		d.mu.Lock()
		if len(d.msgs) >= n {
			out := append([]chatbot.InboundMessage(nil), d.msgs...)
			d.mu.Unlock()
			return out
		}
		d.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d dispatched messages", n)
	return nil
}

type recordingQueue struct {
	mu     sync.Mutex
	events []string
}

func (q *recordingQueue) Enqueue(_ context.Context, event string, _ any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, event)
	return nil
}

func newTestRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/webhook", h.Verify)
	engine.POST("/webhook", h.Receive)
	return engine
}

func TestVerifyHandshake(t *testing.T) {
	h := NewHandler(&recordingDispatcher{}, &recordingQueue{}, "secret-verify", logger.New("development"))
	router := newTestRouter(h)

	t.Run("valid token echoes challenge", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=secret-verify&hub.challenge=1158201444", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "1158201444", w.Body.String())
	})

	t.Run("wrong token is forbidden", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=x", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("probe without params is ok", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

const cloudBody = `{
	"entry": [{
		"changes": [{
			"value": {
				"messages": [{
					"from": "22670000001",
					"id": "wamid.abc",
					"type": "text",
					"text": {"body": "3, NE, 2"}
				}]
			}
		}]
	}]
}`

func TestReceiveAcksAndDispatches(t *testing.T) {
	d := &recordingDispatcher{}
	q := &recordingQueue{}
	h := NewHandler(d, q, "secret", logger.New("development"))
	router := newTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(cloudBody))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, q.events, relay.EventIncomingMessage, "raw body forwarded to Make")

	msgs := d.wait(t, 1)
	assert.Equal(t, "22670000001", msgs[0].From)
	assert.Equal(t, "wamid.abc", msgs[0].MessageID)
	assert.Equal(t, "3, NE, 2", msgs[0].Text)
}

func TestReceiveLocationMessage(t *testing.T) {
	d := &recordingDispatcher{}
	h := NewHandler(d, &recordingQueue{}, "secret", logger.New("development"))
	router := newTestRouter(h)

	body := `{
		"entry": [{
			"changes": [{
				"value": {
					"messages": [{
						"from": "22670000001",
						"id": "wamid.loc",
						"type": "location",
						"location": {"latitude": 12.37, "longitude": -1.52, "name": "Ouaga 2000"}
					}]
				}
			}]
		}]
	}`

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	msgs := d.wait(t, 1)
	require.NotNil(t, msgs[0].Location)
	assert.Equal(t, 12.37, msgs[0].Location.Latitude)
	assert.Equal(t, "Ouaga 2000", msgs[0].Location.Address)
}

func TestReceiveMalformedBodyStillAcks(t *testing.T) {
	h := NewHandler(&recordingDispatcher{}, &recordingQueue{}, "secret", logger.New("development"))
	router := newTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("not json"))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReceiveStatusOnlyDeliveryDispatchesNothing(t *testing.T) {
	d := &recordingDispatcher{}
	q := &recordingQueue{}
	h := NewHandler(d, q, "secret", logger.New("development"))
	router := newTestRouter(h)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"entry":[{"changes":[{"value":{}}]}]}`))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	time.Sleep(20 * time.Millisecond)
	d.mu.Lock()
	defer d.mu.Unlock()
	assert.Empty(t, d.msgs)
}
