package domain

import "time"

// IncidentStatus enumerates lifecycle states for incident tickets.
type IncidentStatus string

const (
	IncidentStatusOpen         IncidentStatus = "OPEN"
	IncidentStatusAcknowledged IncidentStatus = "ACKNOWLEDGED"
	IncidentStatusInProgress   IncidentStatus = "IN_PROGRESS"
	IncidentStatusOnHold       IncidentStatus = "ON_HOLD"
	IncidentStatusResolved     IncidentStatus = "RESOLVED"
	IncidentStatusClosed       IncidentStatus = "CLOSED"
)

// AllIncidentStatuses lists statuses in lifecycle order.
var AllIncidentStatuses = []IncidentStatus{
	IncidentStatusOpen,
	IncidentStatusAcknowledged,
	IncidentStatusInProgress,
	IncidentStatusOnHold,
	IncidentStatusResolved,
	IncidentStatusClosed,
}

// Valid reports whether s is a known status.
func (s IncidentStatus) Valid() bool {
	for _, known := range AllIncidentStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IncidentPriority enumerates SLA urgency.
type IncidentPriority string

const (
	PriorityCritical IncidentPriority = "CRITICAL"
	PriorityHigh     IncidentPriority = "HIGH"
	PriorityMedium   IncidentPriority = "MEDIUM"
	PriorityLow      IncidentPriority = "LOW"
)

// AllPriorities lists priorities from most to least urgent.
var AllPriorities = []IncidentPriority{PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow}

// Valid reports whether p is a known priority.
func (p IncidentPriority) Valid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// RequiresWarRoom reports whether incidents at this priority open a war room.
func (p IncidentPriority) RequiresWarRoom() bool {
	return p == PriorityCritical || p == PriorityHigh
}

// IncidentTemplate is the incident category template.
type IncidentTemplate string

const (
	TemplateNone       IncidentTemplate = "NONE"
	TemplatePhishing   IncidentTemplate = "PHISHING"
	TemplateMalware    IncidentTemplate = "MALWARE"
	TemplateDataBreach IncidentTemplate = "DATA_BREACH"
	TemplateDDoS       IncidentTemplate = "DDOS"
	TemplateOther      IncidentTemplate = "OTHER"
)

// Valid reports whether t is a known template.
func (t IncidentTemplate) Valid() bool {
	switch t {
	case TemplateNone, TemplatePhishing, TemplateMalware, TemplateDataBreach, TemplateDDoS, TemplateOther:
		return true
	}
	return false
}

// IncidentSource records the channel an incident arrived from.
type IncidentSource string

const (
	SourceEmail  IncidentSource = "EMAIL"
	SourceSlack  IncidentSource = "SLACK"
	SourcePortal IncidentSource = "PORTAL"
	SourcePhone  IncidentSource = "PHONE"
	SourceOthers IncidentSource = "OTHERS"
)

// Valid reports whether s is a known source.
func (s IncidentSource) Valid() bool {
	switch s {
	case SourceEmail, SourceSlack, SourcePortal, SourcePhone, SourceOthers:
		return true
	}
	return false
}

// RecommendedAction is an enumerated remediation step suggested by risk scoring.
type RecommendedAction string

const (
	ActionIsolateHost        RecommendedAction = "ISOLATE_HOST"
	ActionResetCredentials   RecommendedAction = "RESET_CREDENTIALS"
	ActionBlockIP            RecommendedAction = "BLOCK_IP"
	ActionNotifyStakeholders RecommendedAction = "NOTIFY_STAKEHOLDERS"
	ActionEscalateToSecurity RecommendedAction = "ESCALATE_TO_SECURITY"
	ActionPatchSystem        RecommendedAction = "PATCH_SYSTEM"
	ActionMonitor            RecommendedAction = "MONITOR"
)

// Valid reports whether a is a known action.
func (a RecommendedAction) Valid() bool {
	switch a {
	case ActionIsolateHost, ActionResetCredentials, ActionBlockIP, ActionNotifyStakeholders,
		ActionEscalateToSecurity, ActionPatchSystem, ActionMonitor:
		return true
	}
	return false
}

// IncidentTicket is the aggregate for operational incidents.
type IncidentTicket struct {
	ID                  string
	TicketID            string
	Reason              string
	Description         string
	Priority            IncidentPriority
	Template            IncidentTemplate
	Category            string
	SubCategory         string
	Source              IncidentSource
	Status              IncidentStatus
	BusinessID          string
	AssignedByID        string
	AssignedToEmail     string
	RiskScore           *float64
	RecommendedActions  []RecommendedAction
	SLATargetAck        *time.Time
	SLATargetResolve    *time.Time
	FirstAcknowledgedAt *time.Time
	ResolvedAt          *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsClosed reports whether the ticket reached its terminal state.
func (t *IncidentTicket) IsClosed() bool {
	return t.Status == IncidentStatusClosed
}
