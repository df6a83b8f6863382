package sla

import (
	"fmt"
	"time"

	"github.com/scrubbe-dev/incident-service/internal/config"
	"github.com/scrubbe-dev/incident-service/internal/domain"
)

// Window is the allowed time to acknowledge and to resolve, measured from creation.
type Window struct {
	Ack     time.Duration
	Resolve time.Duration
}

// Targets are the absolute SLA deadlines for one ticket.
type Targets struct {
	Ack     time.Time
	Resolve time.Time
}

// Policy maps each priority to its SLA window.
type Policy map[domain.IncidentPriority]Window

// DefaultPolicy returns the stock SLA table.
func DefaultPolicy() Policy {
	return Policy{
		domain.PriorityCritical: {Ack: 15 * time.Minute, Resolve: 4 * time.Hour},
		domain.PriorityHigh:     {Ack: 30 * time.Minute, Resolve: 8 * time.Hour},
		domain.PriorityMedium:   {Ack: time.Hour, Resolve: 24 * time.Hour},
		domain.PriorityLow:      {Ack: 4 * time.Hour, Resolve: 72 * time.Hour},
	}
}

// PolicyFromConfig builds a Policy from the configured minute table.
func PolicyFromConfig(cfg config.SLAConfig) (Policy, error) {
	policy := Policy{
		domain.PriorityCritical: windowFromMinutes(cfg.Critical),
		domain.PriorityHigh:     windowFromMinutes(cfg.High),
		domain.PriorityMedium:   windowFromMinutes(cfg.Medium),
		domain.PriorityLow:      windowFromMinutes(cfg.Low),
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return policy, nil
}

// Load builds the configured policy, overlaid with cfg.PolicyFile when set.
func Load(cfg config.SLAConfig) (Policy, error) {
	policy, err := PolicyFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.PolicyFile == "" {
		return policy, nil
	}
	return LoadPolicyFile(cfg.PolicyFile, policy)
}

func windowFromMinutes(w config.SLAWindowMinutes) Window {
	return Window{
		Ack:     time.Duration(w.Ack) * time.Minute,
		Resolve: time.Duration(w.Resolve) * time.Minute,
	}
}

// Validate checks that every priority has a positive window with ack <= resolve.
func (p Policy) Validate() error {
	for _, priority := range domain.AllPriorities {
		w, ok := p[priority]
		if !ok {
			return fmt.Errorf("sla policy: missing window for %s", priority)
		}
		if w.Ack <= 0 || w.Resolve <= 0 {
			return fmt.Errorf("sla policy: %s windows must be positive", priority)
		}
		if w.Ack > w.Resolve {
			return fmt.Errorf("sla policy: %s ack window %s exceeds resolve window %s", priority, w.Ack, w.Resolve)
		}
	}
	return nil
}

// ComputeTargets returns the ack and resolve deadlines for a ticket created at createdAt.
func (p Policy) ComputeTargets(createdAt time.Time, priority domain.IncidentPriority) (Targets, error) {
	w, ok := p[priority]
	if !ok {
		return Targets{}, fmt.Errorf("sla policy: unknown priority %q", priority)
	}
	return Targets{
		Ack:     createdAt.Add(w.Ack),
		Resolve: createdAt.Add(w.Resolve),
	}, nil
}
