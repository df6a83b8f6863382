package sla

import "time"

// Breach is the outcome of comparing a transition time against its deadline.
type Breach struct {
	Breached        bool
	DurationMinutes int
}

// DetectBreach reports whether now is past target and by how many whole minutes.
func DetectBreach(now, target time.Time) Breach {
	if !now.After(target) {
		return Breach{}
	}
	return Breach{
		Breached:        true,
		DurationMinutes: int(now.Sub(target) / time.Minute),
	}
}
