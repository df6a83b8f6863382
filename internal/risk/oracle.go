package risk

import (
	"context"

	"github.com/scrubbe-dev/incident-service/internal/domain"
)

// Snapshot is the read-only view of a ticket sent for scoring.
type Snapshot struct {
	TicketID    string                  `json:"ticket_id"`
	BusinessID  string                  `json:"business_id"`
	Reason      string                  `json:"reason"`
	Description string                  `json:"description"`
	Priority    domain.IncidentPriority `json:"priority"`
	Template    domain.IncidentTemplate `json:"template"`
	Category    string                  `json:"category"`
	SubCategory string                  `json:"sub_category"`
	Source      domain.IncidentSource   `json:"source"`
}

// Assessment is the advisory result of scoring a ticket.
type Assessment struct {
	RiskScore          float64                    `json:"risk_score"`
	RecommendedActions []domain.RecommendedAction `json:"recommended_actions"`
}

// Oracle scores a ticket snapshot. Results are advisory.
type Oracle interface {
	Score(ctx context.Context, snapshot Snapshot) (Assessment, error)
}

// SnapshotOf builds the scoring view of ticket.
func SnapshotOf(ticket *domain.IncidentTicket) Snapshot {
	return Snapshot{
		TicketID:    ticket.TicketID,
		BusinessID:  ticket.BusinessID,
		Reason:      ticket.Reason,
		Description: ticket.Description,
		Priority:    ticket.Priority,
		Template:    ticket.Template,
		Category:    ticket.Category,
		SubCategory: ticket.SubCategory,
		Source:      ticket.Source,
	}
}
