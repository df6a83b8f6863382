package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scrubbe-dev/incident-service/internal/domain"
)

// ResolutionRepository reads postmortem linkage rows written on resolve.
type ResolutionRepository interface {
	GetByIncident(ctx context.Context, incidentID string) (*domain.IncidentResolution, error)
}

type resolutionRepository struct {
	pool *pgxpool.Pool
}

// NewResolutionRepository builds repository.
func NewResolutionRepository(pool *pgxpool.Pool) ResolutionRepository {
	return &resolutionRepository{pool: pool}
}

func (r *resolutionRepository) GetByIncident(ctx context.Context, incidentID string) (*domain.IncidentResolution, error) {
	const query = `
        SELECT incident_id, root_cause, actions_taken, lessons_learned, postmortem_url, resolved_by_id, created_at
        FROM incident_resolutions WHERE incident_id=$1`

	var res domain.IncidentResolution
	if err := r.pool.QueryRow(ctx, query, incidentID).Scan(
		&res.IncidentID,
		&res.RootCause,
		&res.ActionsTaken,
		&res.LessonsLearned,
		&res.PostmortemURL,
		&res.ResolvedByID,
		&res.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &res, nil
}

func upsertResolution(ctx context.Context, db dbtx, res *domain.IncidentResolution) error {
	const query = `
        INSERT INTO incident_resolutions (incident_id, root_cause, actions_taken, lessons_learned, postmortem_url, resolved_by_id)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (incident_id) DO UPDATE SET
            root_cause=EXCLUDED.root_cause,
            actions_taken=EXCLUDED.actions_taken,
            lessons_learned=EXCLUDED.lessons_learned,
            postmortem_url=EXCLUDED.postmortem_url,
            resolved_by_id=EXCLUDED.resolved_by_id
        RETURNING created_at`
	return db.QueryRow(ctx, query,
		res.IncidentID,
		res.RootCause,
		res.ActionsTaken,
		res.LessonsLearned,
		res.PostmortemURL,
		res.ResolvedByID,
	).Scan(&res.CreatedAt)
}
