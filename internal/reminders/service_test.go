package reminders

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pressing_chatbot_backend/platform/logger"
)

type stubPuller struct {
	resp json.RawMessage
	err  error
}

func (s stubPuller) Request(context.Context, string, any) (json.RawMessage, error) {
	return s.resp, s.err
}

type recordingSender struct {
	sent    map[string]string
	failFor string
}

func newRecordingSender() *recordingSender {
	return &recordingSender{sent: map[string]string{}}
}

func (s *recordingSender) SendText(_ context.Context, to, body string) error {
	if to == s.failFor {
		return errors.New("unreachable")
	}
	s.sent[to] = body
	return nil
}

type recordingNotifier struct {
	records []string
}

func (n *recordingNotifier) Record(_ context.Context, phone, _, _, typ string) {
	n.records = append(n.records, phone+"/"+typ)
}

func TestSendDueTextsEachRecipient(t *testing.T) {
	resp := json.RawMessage(`{"notify":[
		{"phone":"+22670000001","message":"Votre linge est prêt 🧺","type":"Reminder"},
		{"phone":"+22670000002","message":"Commande en attente de confirmation"}
	]}`)
	sender := newRecordingSender()
	notifier := &recordingNotifier{}
	s := NewService(stubPuller{resp: resp}, sender, notifier, logger.New("development"))

	require.NoError(t, s.SendDue(context.Background()))

	assert.Equal(t, "Votre linge est prêt 🧺", sender.sent["+22670000001"])
	assert.Equal(t, "Commande en attente de confirmation", sender.sent["+22670000002"])
	assert.Equal(t, []string{"+22670000001/Reminder", "+22670000002/Reminder"}, notifier.records)
}

func TestSendDueSkipsFailedRecipients(t *testing.T) {
	resp := json.RawMessage(`{"notify":[
		{"phone":"+22670000001","message":"rappel"},
		{"phone":"+22670000002","message":"rappel"}
	]}`)
	sender := newRecordingSender()
	sender.failFor = "+22670000001"
	notifier := &recordingNotifier{}
	s := NewService(stubPuller{resp: resp}, sender, notifier, logger.New("development"))

	require.NoError(t, s.SendDue(context.Background()))

	assert.NotContains(t, sender.sent, "+22670000001")
	assert.Contains(t, sender.sent, "+22670000002")
	assert.Equal(t, []string{"+22670000002/Reminder"}, notifier.records)
}

func TestSendDuePropagatesRelayFailure(t *testing.T) {
	s := NewService(stubPuller{err: errors.New("scenario down")}, newRecordingSender(), nil, logger.New("development"))

	assert.Error(t, s.SendDue(context.Background()))
}

func TestSendDueToleratesMalformedResponse(t *testing.T) {
	s := NewService(stubPuller{resp: json.RawMessage(`"pas un objet"`)}, newRecordingSender(), nil, logger.New("development"))

	assert.NoError(t, s.SendDue(context.Background()))
}
