package domain

import "time"

// SLAType identifies which SLA target was breached.
type SLAType string

const (
	SLATypeAck     SLAType = "ACK"
	SLATypeResolve SLAType = "RESOLVE"
)

// SLABreachAuditLog is an append-only breach record.
type SLABreachAuditLog struct {
	ID                    string
	IncidentID            string
	SLAType               SLAType
	BreachedAt            time.Time
	BreachDurationMinutes int
}
