package risk

import (
	"context"
	"strings"

	"github.com/scrubbe-dev/incident-service/internal/domain"
)

var priorityWeight = map[domain.IncidentPriority]float64{
	domain.PriorityCritical: 70,
	domain.PriorityHigh:     50,
	domain.PriorityMedium:   30,
	domain.PriorityLow:      10,
}

var templateActions = map[domain.IncidentTemplate][]domain.RecommendedAction{
	domain.TemplatePhishing:   {domain.ActionResetCredentials, domain.ActionBlockIP},
	domain.TemplateMalware:    {domain.ActionIsolateHost, domain.ActionPatchSystem},
	domain.TemplateDataBreach: {domain.ActionEscalateToSecurity, domain.ActionNotifyStakeholders, domain.ActionResetCredentials},
	domain.TemplateDDoS:       {domain.ActionBlockIP, domain.ActionMonitor},
}

var templateWeight = map[domain.IncidentTemplate]float64{
	domain.TemplatePhishing:   10,
	domain.TemplateMalware:    20,
	domain.TemplateDataBreach: 25,
	domain.TemplateDDoS:       15,
}

// RuleOracle scores tickets locally from priority and template. It is used
// when no remote oracle is configured.
type RuleOracle struct{}

// NewRuleOracle returns the local scorer.
func NewRuleOracle() *RuleOracle {
	return &RuleOracle{}
}

// Score returns a 0-100 score and the template's playbook actions.
func (RuleOracle) Score(ctx context.Context, snapshot Snapshot) (Assessment, error) {
	if err := ctx.Err(); err != nil {
		return Assessment{}, err
	}

	score := priorityWeight[snapshot.Priority] + templateWeight[snapshot.Template]
	text := strings.ToLower(snapshot.Reason + " " + snapshot.Description)
	if strings.Contains(text, "production") || strings.Contains(text, "customer data") {
		score += 5
	}
	if score > 100 {
		score = 100
	}

	actions := append([]domain.RecommendedAction{}, templateActions[snapshot.Template]...)
	if snapshot.Priority.RequiresWarRoom() {
		actions = append(actions, domain.ActionNotifyStakeholders)
	}
	if len(actions) == 0 {
		actions = append(actions, domain.ActionMonitor)
	}
	return Assessment{RiskScore: score, RecommendedActions: knownActions(actions)}, nil
}
