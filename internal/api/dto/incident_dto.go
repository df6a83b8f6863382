package dto

import (
	"time"

	"github.com/scrubbe-dev/incident-service/internal/domain"
)

// SubmitIncidentRequest payload.
type SubmitIncidentRequest struct {
	Reason          string                  `json:"reason"`
	Description     string                  `json:"description"`
	Priority        domain.IncidentPriority `json:"priority"`
	Template        domain.IncidentTemplate `json:"template"`
	Category        string                  `json:"category"`
	SubCategory     string                  `json:"sub_category"`
	Source          domain.IncidentSource   `json:"source"`
	AssignedToEmail string                  `json:"assigned_to_email"`
}

// UpdateIncidentRequest payload. Omitted fields are left unchanged.
type UpdateIncidentRequest struct {
	Reason          *string                  `json:"reason"`
	Description     *string                  `json:"description"`
	Priority        *domain.IncidentPriority `json:"priority"`
	Category        *string                  `json:"category"`
	SubCategory     *string                  `json:"sub_category"`
	AssignedToEmail *string                  `json:"assigned_to_email"`
	Status          *domain.IncidentStatus   `json:"status"`
}

// ResolveIncidentRequest payload.
type ResolveIncidentRequest struct {
	RootCause      string `json:"root_cause"`
	ActionsTaken   string `json:"actions_taken"`
	LessonsLearned string `json:"lessons_learned"`
	PostmortemURL  string `json:"postmortem_url"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Body string `json:"body"`
}

// EscalateIncidentRequest payload.
type EscalateIncidentRequest struct {
	TargetEmail string `json:"target_email"`
	Reason      string `json:"reason"`
}

// IncidentResponse represents a ticket.
type IncidentResponse struct {
	ID                  string                     `json:"id"`
	TicketID            string                     `json:"ticket_id"`
	Reason              string                     `json:"reason"`
	Description         string                     `json:"description"`
	Priority            domain.IncidentPriority    `json:"priority"`
	Template            domain.IncidentTemplate    `json:"template"`
	Category            string                     `json:"category"`
	SubCategory         string                     `json:"sub_category"`
	Source              domain.IncidentSource      `json:"source"`
	Status              domain.IncidentStatus      `json:"status"`
	BusinessID          string                     `json:"business_id"`
	AssignedByID        string                     `json:"assigned_by_id"`
	AssignedToEmail     string                     `json:"assigned_to_email"`
	RiskScore           *float64                   `json:"risk_score"`
	RecommendedActions  []domain.RecommendedAction `json:"recommended_actions"`
	SLATargetAck        *time.Time                 `json:"sla_target_ack"`
	SLATargetResolve    *time.Time                 `json:"sla_target_resolve"`
	FirstAcknowledgedAt *time.Time                 `json:"first_acknowledged_at"`
	ResolvedAt          *time.Time                 `json:"resolved_at"`
	CreatedAt           time.Time                  `json:"created_at"`
	UpdatedAt           time.Time                  `json:"updated_at"`
}

// TransitionResponse reports the result of acknowledge, resolve or close.
type TransitionResponse struct {
	Incident      IncidentResponse `json:"incident"`
	Changed       bool             `json:"changed"`
	AlreadyClosed bool             `json:"already_closed"`
	Breach        *BreachResponse  `json:"breach,omitempty"`
}

// BreachResponse is one SLA breach audit entry.
type BreachResponse struct {
	ID                    string         `json:"id"`
	SLAType               domain.SLAType `json:"sla_type"`
	BreachedAt            time.Time      `json:"breached_at"`
	BreachDurationMinutes int            `json:"breach_duration_minutes"`
}

// ResolutionResponse is the postmortem captured on resolve.
type ResolutionResponse struct {
	RootCause      string    `json:"root_cause"`
	ActionsTaken   string    `json:"actions_taken"`
	LessonsLearned string    `json:"lessons_learned"`
	PostmortemURL  string    `json:"postmortem_url"`
	ResolvedByID   string    `json:"resolved_by_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// CommentResponse is one thread note.
type CommentResponse struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// EscalationResponse is one escalation record.
type EscalationResponse struct {
	ID                string                  `json:"id"`
	EscalatedToUserID string                  `json:"escalated_to_user_id"`
	EscalatedByID     string                  `json:"escalated_by_id"`
	Reason            string                  `json:"reason"`
	Status            domain.EscalationStatus `json:"status"`
	EscalatedAt       time.Time               `json:"escalated_at"`
}

// IncidentListQuery captures list filters.
type IncidentListQuery struct {
	Statuses   []domain.IncidentStatus
	Priorities []domain.IncidentPriority
	Assignee   *string
	Page       int
	PageSize   int
}

// NewIncidentResponse maps a ticket.
func NewIncidentResponse(t *domain.IncidentTicket) IncidentResponse {
	actions := t.RecommendedActions
	if actions == nil {
		actions = []domain.RecommendedAction{}
	}
	return IncidentResponse{
		ID:                  t.ID,
		TicketID:            t.TicketID,
		Reason:              t.Reason,
		Description:         t.Description,
		Priority:            t.Priority,
		Template:            t.Template,
		Category:            t.Category,
		SubCategory:         t.SubCategory,
		Source:              t.Source,
		Status:              t.Status,
		BusinessID:          t.BusinessID,
		AssignedByID:        t.AssignedByID,
		AssignedToEmail:     t.AssignedToEmail,
		RiskScore:           t.RiskScore,
		RecommendedActions:  actions,
		SLATargetAck:        t.SLATargetAck,
		SLATargetResolve:    t.SLATargetResolve,
		FirstAcknowledgedAt: t.FirstAcknowledgedAt,
		ResolvedAt:          t.ResolvedAt,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
	}
}

// NewBreachResponse maps a breach log entry.
func NewBreachResponse(b *domain.SLABreachAuditLog) *BreachResponse {
	if b == nil {
		return nil
	}
	return &BreachResponse{
		ID:                    b.ID,
		SLAType:               b.SLAType,
		BreachedAt:            b.BreachedAt,
		BreachDurationMinutes: b.BreachDurationMinutes,
	}
}

// NewResolutionResponse maps a resolution record.
func NewResolutionResponse(r *domain.IncidentResolution) ResolutionResponse {
	return ResolutionResponse{
		RootCause:      r.RootCause,
		ActionsTaken:   r.ActionsTaken,
		LessonsLearned: r.LessonsLearned,
		PostmortemURL:  r.PostmortemURL,
		ResolvedByID:   r.ResolvedByID,
		CreatedAt:      r.CreatedAt,
	}
}
