package sla

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/scrubbe-dev/incident-service/internal/domain"
)

// fileWindow is one priority entry of a policy file:
//
//	critical:
//	  ack_minutes: 10
//	  resolve_minutes: 180
type fileWindow struct {
	AckMinutes     *int `yaml:"ack_minutes"`
	ResolveMinutes *int `yaml:"resolve_minutes"`
}

// LoadPolicyFile overlays the windows found in the YAML file at path onto base.
// Priorities or fields absent from the file keep their base value.
func LoadPolicyFile(path string, base Policy) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sla policy file: %w", err)
	}
	return ParsePolicy(data, base)
}

// ParsePolicy is LoadPolicyFile on an in-memory document.
func ParsePolicy(data []byte, base Policy) (Policy, error) {
	var entries map[string]fileWindow
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse sla policy: %w", err)
	}

	policy := make(Policy, len(base))
	for priority, w := range base {
		policy[priority] = w
	}
	for key, entry := range entries {
		priority := domain.IncidentPriority(strings.ToUpper(strings.TrimSpace(key)))
		if !priority.Valid() {
			return nil, fmt.Errorf("sla policy: unknown priority %q", key)
		}
		w := policy[priority]
		if entry.AckMinutes != nil {
			w.Ack = time.Duration(*entry.AckMinutes) * time.Minute
		}
		if entry.ResolveMinutes != nil {
			w.Resolve = time.Duration(*entry.ResolveMinutes) * time.Minute
		}
		policy[priority] = w
	}

	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return policy, nil
}
