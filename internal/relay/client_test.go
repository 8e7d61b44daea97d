package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pressing_chatbot_backend/platform/logger"
)

type staticMakeConfig struct {
	url string
	key string
}

func (c staticMakeConfig) GetMakeWebhookURL() string     { return c.url }
func (c staticMakeConfig) GetMakeAPIKey() string         { return c.key }
func (c staticMakeConfig) GetMakeTimeout() time.Duration { return 2 * time.Second }

func TestClientSendsEnvelopeWithAPIKey(t *testing.T) {
	var gotHeader string
	var gotEnvelope map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("x-make-apikey")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotEnvelope))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := NewClient(staticMakeConfig{url: srv.URL, key: "secret-key"}, logger.New("development"))

	resp, err := c.Request(context.Background(), EventListPromos, map[string]string{"scope": "active"})

	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(resp))
	assert.Equal(t, "secret-key", gotHeader)
	assert.Equal(t, EventListPromos, gotEnvelope["event"])
	assert.Equal(t, map[string]any{"scope": "active"}, gotEnvelope["payload"])

	ts, ok := gotEnvelope["ts"].(string)
	require.True(t, ok, "envelope carries a timestamp")
	_, err = time.Parse(time.RFC3339, ts)
	assert.NoError(t, err)
}

func TestClientRejectsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "scenario disabled", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(staticMakeConfig{url: srv.URL, key: "k"}, logger.New("development"))

	_, err := c.Request(context.Background(), EventGetPoints, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "scenario disabled")
}

func TestClientRespectsContextCancel(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c := NewClient(staticMakeConfig{url: srv.URL, key: "k"}, logger.New("development"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Request(ctx, EventGetPendingOrders, nil)
	require.Error(t, err)
}

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	ev := Event{
		ID:            "ev-1",
		Name:          EventCreatePickup,
		Payload:       json.RawMessage(`{"phone":"+22670000001"}`),
		CreatedAt:     now,
		NextAttemptAt: now,
	}
	require.NoError(t, store.Append(ctx, ev))

	// Survives a fresh store over the same file.
	reopened, err := NewFileStore(dir)
	require.NoError(t, err)

	due, err := reopened.NextDue(ctx, now)
	require.NoError(t, err)
	require.NotNil(t, due)
	assert.Equal(t, "ev-1", due.ID)
	assert.Equal(t, EventCreatePickup, due.Name)

	require.NoError(t, reopened.Reschedule(ctx, "ev-1", 2, now.Add(time.Minute)))
	due, err = reopened.NextDue(ctx, now)
	require.NoError(t, err)
	assert.Nil(t, due, "rescheduled event is no longer due")

	due, err = reopened.NextDue(ctx, now.Add(2*time.Minute))
	require.NoError(t, err)
	require.NotNil(t, due)
	assert.Equal(t, 2, due.Attempts)

	require.NoError(t, reopened.Remove(ctx, "ev-1"))
	due, err = reopened.NextDue(ctx, now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Nil(t, due)
}

func TestFileStoreClaimIsVisibleAcrossProcesses(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(ctx, Event{
		ID:            "ev-1",
		Name:          EventCreatePickup,
		Payload:       json.RawMessage(`{"phone":"+22670000001"}`),
		CreatedAt:     now,
		NextAttemptAt: now,
	}))

	claimed, err := store.NextDue(ctx, now)
	require.NoError(t, err)
	require.NotNil(t, claimed)

	// A second consumer over the same file must not pick up the leased event.
	other, err := NewFileStore(dir)
	require.NoError(t, err)
	due, err := other.NextDue(ctx, now)
	require.NoError(t, err)
	assert.Nil(t, due, "claimed event is leased, not due")

	due, err = other.NextDue(ctx, now.Add(claimLease))
	require.NoError(t, err)
	require.NotNil(t, due, "lease expiry releases the event")
	assert.Equal(t, "ev-1", due.ID)
}
