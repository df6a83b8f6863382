package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scrubbe-dev/incident-service/internal/domain"
)

// EscalationRepository manages escalation persistence.
type EscalationRepository interface {
	Create(ctx context.Context, escalation *domain.EscalatedIncident) error
	ListByIncident(ctx context.Context, incidentID string) ([]domain.EscalatedIncident, error)
}

type escalationRepository struct {
	pool *pgxpool.Pool
}

// NewEscalationRepository builds the repository.
func NewEscalationRepository(pool *pgxpool.Pool) EscalationRepository {
	return &escalationRepository{pool: pool}
}

func (r *escalationRepository) Create(ctx context.Context, escalation *domain.EscalatedIncident) error {
	const query = `
        INSERT INTO escalated_incidents (incident_ticket_id, escalated_to_user_id, escalated_by_id, escalation_reason, status, escalated_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		escalation.IncidentTicketID,
		escalation.EscalatedToUserID,
		escalation.EscalatedByID,
		escalation.EscalationReason,
		escalation.Status,
		escalation.EscalatedAt,
	).Scan(&escalation.ID)
}

func (r *escalationRepository) ListByIncident(ctx context.Context, incidentID string) ([]domain.EscalatedIncident, error) {
	const query = `
        SELECT id, incident_ticket_id, escalated_to_user_id, escalated_by_id, escalation_reason, status, escalated_at
        FROM escalated_incidents WHERE incident_ticket_id=$1 ORDER BY escalated_at ASC`
	rows, err := r.pool.Query(ctx, query, incidentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.EscalatedIncident
	for rows.Next() {
		var esc domain.EscalatedIncident
		if err := rows.Scan(
			&esc.ID,
			&esc.IncidentTicketID,
			&esc.EscalatedToUserID,
			&esc.EscalatedByID,
			&esc.EscalationReason,
			&esc.Status,
			&esc.EscalatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, esc)
	}
	return result, rows.Err()
}
