package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scrubbe-dev/incident-service/internal/client"
	"github.com/scrubbe-dev/incident-service/internal/clock"
	"github.com/scrubbe-dev/incident-service/internal/config"
	"github.com/scrubbe-dev/incident-service/internal/domain"
	"github.com/scrubbe-dev/incident-service/internal/events"
)

func sampleTicket() *domain.IncidentTicket {
	return &domain.IncidentTicket{
		TicketID:        "INC-1A2B3C4D",
		BusinessID:      bizA,
		Reason:          "Ransomware note on file server",
		Priority:        domain.PriorityCritical,
		Status:          domain.IncidentStatusOpen,
		AssignedToEmail: "oncall@a.example",
	}
}

func TestTriggerWarRoomBroadcastsLink(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	var got []events.Event
	var mu sync.Mutex
	dispatcher.SubscribeAll(func(_ context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e)
		return nil
	})

	svc := NewNotificationService(dispatcher, zap.NewNop(), config.NotificationConfig{
		MeetingBaseURL: "https://meet.example.com/",
	}, clock.NewManual(t0))

	room, err := svc.TriggerWarRoom(context.Background(), sampleTicket())
	require.NoError(t, err)
	assert.Regexp(t, `^https://meet\.example\.com/inc-1a2b3c4d-[0-9a-f]{8}$`, room.MeetingLink)

	require.Len(t, got, 1)
	assert.Equal(t, events.EventWarRoomOpened, got[0].Type)
	assert.Equal(t, room.MeetingLink, got[0].Payload.MeetingLink)
	assert.Equal(t, t0, got[0].Timestamp)
}

func TestTriggerWarRoomWithoutBaseURL(t *testing.T) {
	svc := NewNotificationService(events.NewInMemoryDispatcher(), zap.NewNop(), config.NotificationConfig{}, nil)
	_, err := svc.TriggerWarRoom(context.Background(), sampleTicket())
	assert.Error(t, err)
}

func TestNotifyDeliversToSlack(t *testing.T) {
	received := make(chan client.SlackMessage, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg client.SlackMessage
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
		received <- msg
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	svc := NewNotificationService(events.NewInMemoryDispatcher(), zap.NewNop(), config.NotificationConfig{
		WebhookURL:     srv.URL,
		EmailFrom:      "incidents@example.com",
		TimeoutSeconds: 2,
	}, clock.NewManual(t0))
	svc.RegisterHandlers()

	require.NoError(t, svc.Notify(context.Background(), sampleTicket(), events.EventTicketSubmitted))

	msg := <-received
	assert.Equal(t, "[ticket submitted] INC-1A2B3C4D", msg.Text)
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "#dc3545", msg.Attachments[0].Color)
	assert.Equal(t, "Ransomware note on file server", msg.Attachments[0].Title)
}

func TestNotifySurfacesSlackFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := NewNotificationService(events.NewInMemoryDispatcher(), zap.NewNop(), config.NotificationConfig{WebhookURL: srv.URL}, nil)
	svc.RegisterHandlers()

	err := svc.Notify(context.Background(), sampleTicket(), events.EventTicketClosed)
	assert.ErrorContains(t, err, "slack delivery")
}
