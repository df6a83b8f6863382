package sla

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrubbe-dev/incident-service/internal/config"
	"github.com/scrubbe-dev/incident-service/internal/domain"
)

func TestParsePolicyOverlaysBase(t *testing.T) {
	doc := []byte(`
critical:
  ack_minutes: 5
high:
  resolve_minutes: 600
`)
	policy, err := ParsePolicy(doc, DefaultPolicy())
	require.NoError(t, err)

	assert.Equal(t, Window{Ack: 5 * time.Minute, Resolve: 4 * time.Hour}, policy[domain.PriorityCritical])
	assert.Equal(t, Window{Ack: 30 * time.Minute, Resolve: 10 * time.Hour}, policy[domain.PriorityHigh])
	assert.Equal(t, DefaultPolicy()[domain.PriorityLow], policy[domain.PriorityLow])
}

func TestParsePolicyLeavesBaseUntouched(t *testing.T) {
	base := DefaultPolicy()
	_, err := ParsePolicy([]byte("low:\n  ack_minutes: 1\n"), base)
	require.NoError(t, err)
	assert.Equal(t, 4*time.Hour, base[domain.PriorityLow].Ack)
}

func TestParsePolicyRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "unknown priority", doc: "urgent:\n  ack_minutes: 1\n"},
		{name: "ack after resolve", doc: "medium:\n  ack_minutes: 2000\n"},
		{name: "zero window", doc: "low:\n  resolve_minutes: 0\n"},
		{name: "not yaml map", doc: "- critical\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePolicy([]byte(tt.doc), DefaultPolicy())
			assert.Error(t, err)
		})
	}
}

func TestLoadPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sla.yaml")
	require.NoError(t, os.WriteFile(path, []byte("CRITICAL:\n  ack_minutes: 10\n  resolve_minutes: 120\n"), 0o600))

	policy, err := LoadPolicyFile(path, DefaultPolicy())
	require.NoError(t, err)
	assert.Equal(t, Window{Ack: 10 * time.Minute, Resolve: 2 * time.Hour}, policy[domain.PriorityCritical])

	_, err = LoadPolicyFile(filepath.Join(t.TempDir(), "missing.yaml"), DefaultPolicy())
	assert.Error(t, err)
}

func TestLoadAppliesPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sla.yaml")
	require.NoError(t, os.WriteFile(path, []byte("low:\n  ack_minutes: 90\n"), 0o600))

	cfg := config.SLAConfig{
		PolicyFile: path,
		Critical:   config.SLAWindowMinutes{Ack: 15, Resolve: 240},
		High:       config.SLAWindowMinutes{Ack: 30, Resolve: 480},
		Medium:     config.SLAWindowMinutes{Ack: 60, Resolve: 1440},
		Low:        config.SLAWindowMinutes{Ack: 240, Resolve: 4320},
	}
	policy, err := Load(cfg)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Minute, policy[domain.PriorityLow].Ack)
	assert.Equal(t, 15*time.Minute, policy[domain.PriorityCritical].Ack)
}
