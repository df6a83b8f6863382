package domain

import "time"

// IncidentResolution carries the postmortem linkage captured on resolve.
type IncidentResolution struct {
	IncidentID     string
	RootCause      string
	ActionsTaken   string
	LessonsLearned string
	PostmortemURL  string
	ResolvedByID   string
	CreatedAt      time.Time
}
