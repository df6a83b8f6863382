package domain

import "time"

// EscalationStatus tracks the escalation handshake.
type EscalationStatus string

const (
	EscalationPending  EscalationStatus = "PENDING"
	EscalationAccepted EscalationStatus = "ACCEPTED"
	EscalationRejected EscalationStatus = "REJECTED"
)

// EscalatedIncident records a hand-off of an incident to another responder.
type EscalatedIncident struct {
	ID                string
	IncidentTicketID  string
	EscalatedToUserID string
	EscalatedByID     string
	EscalationReason  string
	Status            EscalationStatus
	EscalatedAt       time.Time
}
