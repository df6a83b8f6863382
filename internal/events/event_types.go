package events

import (
	"time"

	"github.com/scrubbe-dev/incident-service/internal/domain"
)

// EventType enumerates supported event identifiers. Values double as the
// notification labels delivered to channels.
type EventType string

const (
	EventTicketSubmitted    EventType = "ticket_submitted"
	EventTicketAcknowledged EventType = "ticket_acknowledged"
	EventTicketResolved     EventType = "ticket_resolved"
	EventTicketUpdated      EventType = "ticket_updated"
	EventTicketClosed       EventType = "ticket_closed"
	EventTicketEscalated    EventType = "ticket_escalated"
	EventCommentAdded       EventType = "comment_added"
	EventSLABreached        EventType = "sla_breached"
	EventWarRoomOpened      EventType = "war_room_opened"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string        `json:"id"`
	Type      EventType     `json:"type"`
	TicketID  string        `json:"ticket_id"`
	Timestamp time.Time     `json:"timestamp"`
	Payload   TicketPayload `json:"payload"`
}

// TicketPayload is the ticket summary carried by every event.
type TicketPayload struct {
	TicketID         string                  `json:"ticket_id"`
	BusinessID       string                  `json:"business_id"`
	Reason           string                  `json:"reason"`
	Priority         domain.IncidentPriority `json:"priority"`
	Status           domain.IncidentStatus   `json:"status"`
	AssignedToEmail  string                  `json:"assigned_to_email,omitempty"`
	RiskScore        *float64                `json:"risk_score,omitempty"`
	SLATargetAck     *time.Time              `json:"sla_target_ack,omitempty"`
	SLATargetResolve *time.Time              `json:"sla_target_resolve,omitempty"`
	MeetingLink      string                  `json:"meeting_link,omitempty"`
}

// PayloadOf summarises ticket for an event.
func PayloadOf(ticket *domain.IncidentTicket) TicketPayload {
	return TicketPayload{
		TicketID:         ticket.TicketID,
		BusinessID:       ticket.BusinessID,
		Reason:           ticket.Reason,
		Priority:         ticket.Priority,
		Status:           ticket.Status,
		AssignedToEmail:  ticket.AssignedToEmail,
		RiskScore:        ticket.RiskScore,
		SLATargetAck:     ticket.SLATargetAck,
		SLATargetResolve: ticket.SLATargetResolve,
	}
}
