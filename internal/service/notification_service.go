package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scrubbe-dev/incident-service/internal/client"
	"github.com/scrubbe-dev/incident-service/internal/clock"
	"github.com/scrubbe-dev/incident-service/internal/config"
	"github.com/scrubbe-dev/incident-service/internal/domain"
	"github.com/scrubbe-dev/incident-service/internal/events"
)

// Notifier delivers lifecycle notifications. Implementations must not be relied
// on for correctness: callers log failures and carry on.
type Notifier interface {
	Notify(ctx context.Context, ticket *domain.IncidentTicket, label events.EventType) error
	TriggerWarRoom(ctx context.Context, ticket *domain.IncidentTicket) (WarRoom, error)
}

// WarRoom is the collaboration space opened for a high-impact incident.
type WarRoom struct {
	MeetingLink string `json:"meeting_link"`
}

// NotificationService publishes ticket events on the dispatcher and delivers
// them to the configured channels.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	slack      *client.SlackWebhook
	clock      clock.Clock
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig, clk clock.Clock) *NotificationService {
	if clk == nil {
		clk = clock.System()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
		slack:      client.NewSlackWebhook(cfg.WebhookURL, cfg.Timeout()),
		clock:      clk,
	}
}

// RegisterHandlers subscribes the delivery channels to every event.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.SubscribeAll(n.deliverEmail)
	n.dispatcher.SubscribeAll(n.deliverSlack)
}

// Notify publishes label for ticket.
func (n *NotificationService) Notify(ctx context.Context, ticket *domain.IncidentTicket, label events.EventType) error {
	return n.publish(ctx, label, events.PayloadOf(ticket))
}

// TriggerWarRoom opens a meeting for ticket and broadcasts the link.
func (n *NotificationService) TriggerWarRoom(ctx context.Context, ticket *domain.IncidentTicket) (WarRoom, error) {
	base := strings.TrimRight(n.cfg.MeetingBaseURL, "/")
	if base == "" {
		return WarRoom{}, errors.New("meeting base url not configured")
	}

	room := WarRoom{
		MeetingLink: fmt.Sprintf("%s/%s-%s", base, strings.ToLower(ticket.TicketID), uuid.NewString()[:8]),
	}
	payload := events.PayloadOf(ticket)
	payload.MeetingLink = room.MeetingLink
	return room, n.publish(ctx, events.EventWarRoomOpened, payload)
}

func (n *NotificationService) publish(ctx context.Context, label events.EventType, payload events.TicketPayload) error {
	if n.dispatcher == nil {
		return nil
	}
	return n.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      label,
		TicketID:  payload.TicketID,
		Timestamp: n.clock.Now(),
		Payload:   payload,
	})
}

// deliverEmail is a logging stub until an SMTP relay is provisioned.
func (n *NotificationService) deliverEmail(_ context.Context, event events.Event) error {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" || event.Payload.AssignedToEmail == "" {
		return nil
	}
	n.logger.Debug("email notification",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("to", event.Payload.AssignedToEmail),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
	return nil
}

func (n *NotificationService) deliverSlack(ctx context.Context, event events.Event) error {
	if !n.slack.IsConfigured() {
		return nil
	}
	if err := n.slack.Send(ctx, slackMessageFor(event)); err != nil {
		return fmt.Errorf("slack delivery for %s: %w", event.TicketID, err)
	}
	return nil
}

func slackMessageFor(event events.Event) client.SlackMessage {
	p := event.Payload
	fields := []client.SlackField{
		{Title: "Priority", Value: string(p.Priority), Short: true},
		{Title: "Status", Value: string(p.Status), Short: true},
	}
	if p.AssignedToEmail != "" {
		fields = append(fields, client.SlackField{Title: "Assignee", Value: p.AssignedToEmail, Short: true})
	}
	if p.RiskScore != nil {
		fields = append(fields, client.SlackField{Title: "Risk score", Value: fmt.Sprintf("%.0f", *p.RiskScore), Short: true})
	}
	if p.MeetingLink != "" {
		fields = append(fields, client.SlackField{Title: "War room", Value: p.MeetingLink})
	}

	return client.SlackMessage{
		Text: fmt.Sprintf("[%s] %s", strings.ReplaceAll(string(event.Type), "_", " "), p.TicketID),
		Attachments: []client.SlackAttachment{{
			Color:  client.PriorityColor(string(p.Priority)),
			Title:  p.Reason,
			Fields: fields,
			Ts:     event.Timestamp.Unix(),
		}},
	}
}
