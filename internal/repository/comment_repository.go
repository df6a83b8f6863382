package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scrubbe-dev/incident-service/internal/domain"
)

// CommentRepository manages incident comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.IncidentComment) error
	ListByIncident(ctx context.Context, incidentID string) ([]domain.IncidentComment, error)
}

type commentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository builds repository.
func NewCommentRepository(pool *pgxpool.Pool) CommentRepository {
	return &commentRepository{pool: pool}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.IncidentComment) error {
	const query = `
        INSERT INTO incident_comments (incident_id, author_id, body)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		comment.IncidentID,
		comment.AuthorID,
		comment.Body,
	).Scan(&comment.ID, &comment.CreatedAt)
}

func (r *commentRepository) ListByIncident(ctx context.Context, incidentID string) ([]domain.IncidentComment, error) {
	const query = `
        SELECT id, incident_id, author_id, body, created_at
        FROM incident_comments WHERE incident_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, incidentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.IncidentComment
	for rows.Next() {
		var comment domain.IncidentComment
		if err := rows.Scan(
			&comment.ID,
			&comment.IncidentID,
			&comment.AuthorID,
			&comment.Body,
			&comment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, comment)
	}
	return result, rows.Err()
}
