package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scrubbe-dev/incident-service/internal/domain"
)

// BreachLogRepository reads SLA breach audit entries. Entries are written only
// inside lifecycle transitions and are never updated.
type BreachLogRepository interface {
	ListByIncident(ctx context.Context, incidentID string) ([]domain.SLABreachAuditLog, error)
	CountByBusiness(ctx context.Context, businessID string) (map[domain.SLAType]int, error)
}

type breachLogRepository struct {
	pool *pgxpool.Pool
}

// NewBreachLogRepository builds repository.
func NewBreachLogRepository(pool *pgxpool.Pool) BreachLogRepository {
	return &breachLogRepository{pool: pool}
}

// insertBreachLog reports false when an entry already exists for the same
// incident and SLA type.
func insertBreachLog(ctx context.Context, db dbtx, entry *domain.SLABreachAuditLog) (bool, error) {
	const query = `
        INSERT INTO sla_breach_audit_logs (incident_id, sla_type, breached_at, breach_duration_minutes)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (incident_id, sla_type) DO NOTHING
        RETURNING id`
	err := db.QueryRow(ctx, query,
		entry.IncidentID,
		entry.SLAType,
		entry.BreachedAt,
		entry.BreachDurationMinutes,
	).Scan(&entry.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *breachLogRepository) ListByIncident(ctx context.Context, incidentID string) ([]domain.SLABreachAuditLog, error) {
	const query = `
        SELECT id, incident_id, sla_type, breached_at, breach_duration_minutes
        FROM sla_breach_audit_logs WHERE incident_id=$1 ORDER BY breached_at ASC`
	rows, err := r.pool.Query(ctx, query, incidentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SLABreachAuditLog
	for rows.Next() {
		var entry domain.SLABreachAuditLog
		if err := rows.Scan(
			&entry.ID,
			&entry.IncidentID,
			&entry.SLAType,
			&entry.BreachedAt,
			&entry.BreachDurationMinutes,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func (r *breachLogRepository) CountByBusiness(ctx context.Context, businessID string) (map[domain.SLAType]int, error) {
	const query = `
        SELECT l.sla_type, COUNT(*)
        FROM sla_breach_audit_logs l
        JOIN incident_tickets t ON t.id = l.incident_id
        WHERE t.business_id=$1
        GROUP BY l.sla_type`
	rows, err := r.pool.Query(ctx, query, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.SLAType]int)
	for rows.Next() {
		var (
			slaType domain.SLAType
			count   int
		)
		if err := rows.Scan(&slaType, &count); err != nil {
			return nil, err
		}
		counts[slaType] = count
	}
	return counts, rows.Err()
}
