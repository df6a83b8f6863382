package domain

import "time"

// IncidentComment is a free-form note on an incident thread.
type IncidentComment struct {
	ID         string
	IncidentID string
	AuthorID   string
	Body       string
	CreatedAt  time.Time
}
