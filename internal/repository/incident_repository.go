package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scrubbe-dev/incident-service/internal/domain"
)

// IncidentFilter captures tenant-scoped listing parameters.
type IncidentFilter struct {
	BusinessID      string
	Statuses        []domain.IncidentStatus
	Priorities      []domain.IncidentPriority
	AssignedToEmail *string
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
	Limit           int
	Offset          int
}

// Enrichment is the advisory data attached after the ticket row exists.
type Enrichment struct {
	RiskScore          *float64
	RecommendedActions []domain.RecommendedAction
}

// DetailsPatch carries the mutable descriptive fields of a ticket. A nil
// Status leaves the stored status untouched.
type DetailsPatch struct {
	Reason          string
	Description     string
	Priority        domain.IncidentPriority
	Category        string
	SubCategory     string
	AssignedToEmail string
	Status          *domain.IncidentStatus
}

// Transition is the result of a conditional lifecycle update. A nil Ticket
// means the one-time transition already happened. BreachRecorded is false when
// no breach was passed or an entry for the same SLA type already existed.
type Transition struct {
	Ticket         *domain.IncidentTicket
	BreachRecorded bool
}

// IncidentRepository encapsulates incident ticket persistence. The Mark*
// methods are conditional updates.
type IncidentRepository interface {
	Create(ctx context.Context, ticket *domain.IncidentTicket) error
	ExistsByTicketID(ctx context.Context, ticketID string) (bool, error)
	GetByTicketID(ctx context.Context, ticketID string) (*domain.IncidentTicket, error)
	SetEnrichment(ctx context.Context, id string, enrichment Enrichment) (*domain.IncidentTicket, error)
	// UpdateDetails returns pgx.ErrNoRows when the ticket is closed, or when
	// the patch sets a status on a resolved ticket.
	UpdateDetails(ctx context.Context, id string, patch DetailsPatch) (*domain.IncidentTicket, error)
	MarkAcknowledged(ctx context.Context, id string, at time.Time, breach *domain.SLABreachAuditLog) (Transition, error)
	MarkResolved(ctx context.Context, id string, at time.Time, resolution *domain.IncidentResolution, breach *domain.SLABreachAuditLog) (Transition, error)
	MarkClosed(ctx context.Context, id string) (*domain.IncidentTicket, error)
	ListByBusiness(ctx context.Context, filter IncidentFilter) ([]domain.IncidentTicket, error)
	CountByStatus(ctx context.Context, businessID string) (map[domain.IncidentStatus]int, error)
	// ListOverdue returns open tickets past a deadline whose breach the sweeper
	// has not yet marked as notified.
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]domain.IncidentTicket, error)
	MarkSweepNotified(ctx context.Context, id string, slaType domain.SLAType, at time.Time) error
}

type incidentRepository struct {
	pool *pgxpool.Pool
}

// NewIncidentRepository instantiates repository.
func NewIncidentRepository(pool *pgxpool.Pool) IncidentRepository {
	return &incidentRepository{pool: pool}
}

const incidentColumns = `id, ticket_id, reason, description, priority, template, category, sub_category,
               source, status, business_id, assigned_by_id, assigned_to_email, risk_score, recommended_actions,
               sla_target_ack, sla_target_resolve, first_acknowledged_at, resolved_at, created_at, updated_at`

func (r *incidentRepository) Create(ctx context.Context, ticket *domain.IncidentTicket) error {
	const query = `
        INSERT INTO incident_tickets (ticket_id, reason, description, priority, template, category, sub_category,
            source, status, business_id, assigned_by_id, assigned_to_email, sla_target_ack, sla_target_resolve, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
        RETURNING id, updated_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.TicketID,
		ticket.Reason,
		ticket.Description,
		ticket.Priority,
		ticket.Template,
		ticket.Category,
		ticket.SubCategory,
		ticket.Source,
		ticket.Status,
		ticket.BusinessID,
		ticket.AssignedByID,
		ticket.AssignedToEmail,
		ticket.SLATargetAck,
		ticket.SLATargetResolve,
		ticket.CreatedAt,
	).Scan(&ticket.ID, &ticket.UpdatedAt)
	if isUniqueViolation(err, incidentTicketIDConstraint) {
		return fmt.Errorf("%w: %s", ErrDuplicateTicketID, ticket.TicketID)
	}
	return err
}

func (r *incidentRepository) ExistsByTicketID(ctx context.Context, ticketID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM incident_tickets WHERE ticket_id=$1)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, ticketID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *incidentRepository) GetByTicketID(ctx context.Context, ticketID string) (*domain.IncidentTicket, error) {
	query := `SELECT ` + incidentColumns + ` FROM incident_tickets WHERE ticket_id=$1`
	return scanIncident(r.pool.QueryRow(ctx, query, ticketID))
}

func (r *incidentRepository) SetEnrichment(ctx context.Context, id string, enrichment Enrichment) (*domain.IncidentTicket, error) {
	query := `
        UPDATE incident_tickets SET risk_score=$1, recommended_actions=$2, updated_at=NOW()
        WHERE id=$3
        RETURNING ` + incidentColumns
	return scanIncident(r.pool.QueryRow(ctx, query,
		enrichment.RiskScore,
		actionStrings(enrichment.RecommendedActions),
		id,
	))
}

// UpdateDetails writes status only when the patch carries one, so a resolve
// committed elsewhere since the ticket was read is never overwritten.
func (r *incidentRepository) UpdateDetails(ctx context.Context, id string, patch DetailsPatch) (*domain.IncidentTicket, error) {
	query := `
        UPDATE incident_tickets SET reason=$1, description=$2, priority=$3, category=$4, sub_category=$5,
            assigned_to_email=$6, status=CASE WHEN $9::boolean THEN $7 ELSE status END, updated_at=NOW()
        WHERE id=$8 AND status <> 'CLOSED' AND (NOT $9::boolean OR resolved_at IS NULL)
        RETURNING ` + incidentColumns
	setStatus := patch.Status != nil
	var status string
	if setStatus {
		status = string(*patch.Status)
	}
	return scanIncident(r.pool.QueryRow(ctx, query,
		patch.Reason,
		patch.Description,
		patch.Priority,
		patch.Category,
		patch.SubCategory,
		patch.AssignedToEmail,
		status,
		id,
		setStatus,
	))
}

func (r *incidentRepository) MarkAcknowledged(ctx context.Context, id string, at time.Time, breach *domain.SLABreachAuditLog) (Transition, error) {
	query := `
        UPDATE incident_tickets
        SET first_acknowledged_at=$1,
            status=CASE WHEN status='OPEN' THEN 'ACKNOWLEDGED' ELSE status END,
            updated_at=NOW()
        WHERE id=$2 AND first_acknowledged_at IS NULL AND status <> 'CLOSED'
        RETURNING ` + incidentColumns
	return r.transition(ctx, func(tx pgx.Tx) (*domain.IncidentTicket, error) {
		return scanIncident(tx.QueryRow(ctx, query, at, id))
	}, breach)
}

func (r *incidentRepository) MarkResolved(ctx context.Context, id string, at time.Time, resolution *domain.IncidentResolution, breach *domain.SLABreachAuditLog) (Transition, error) {
	query := `
        UPDATE incident_tickets SET resolved_at=$1, status='RESOLVED', updated_at=NOW()
        WHERE id=$2 AND resolved_at IS NULL AND status <> 'CLOSED'
        RETURNING ` + incidentColumns
	return r.transition(ctx, func(tx pgx.Tx) (*domain.IncidentTicket, error) {
		ticket, err := scanIncident(tx.QueryRow(ctx, query, at, id))
		if err != nil || resolution == nil {
			return ticket, err
		}
		resolution.IncidentID = id
		return ticket, upsertResolution(ctx, tx, resolution)
	}, breach)
}

func (r *incidentRepository) MarkClosed(ctx context.Context, id string) (*domain.IncidentTicket, error) {
	query := `
        UPDATE incident_tickets SET status='CLOSED', updated_at=NOW()
        WHERE id=$1 AND status <> 'CLOSED'
        RETURNING ` + incidentColumns
	ticket, err := scanIncident(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return ticket, err
}

// transition runs a conditional update and, when it changed a row, appends the
// breach log inside the same transaction.
func (r *incidentRepository) transition(ctx context.Context, update func(pgx.Tx) (*domain.IncidentTicket, error), breach *domain.SLABreachAuditLog) (Transition, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Transition{}, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	ticket, err := update(tx)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transition{}, nil
	}
	if err != nil {
		return Transition{}, err
	}
	result := Transition{Ticket: ticket}
	if breach != nil {
		breach.IncidentID = ticket.ID
		if result.BreachRecorded, err = insertBreachLog(ctx, tx, breach); err != nil {
			return Transition{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return Transition{}, err
	}
	return result, nil
}

func (r *incidentRepository) ListByBusiness(ctx context.Context, filter IncidentFilter) ([]domain.IncidentTicket, error) {
	clauses := []string{"business_id=$1"}
	args := []any{filter.BusinessID}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.AssignedToEmail != nil {
		args = append(args, strings.ToLower(*filter.AssignedToEmail))
		clauses = append(clauses, fmt.Sprintf("LOWER(assigned_to_email)=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM incident_tickets WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		incidentColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIncidents(rows)
}

func (r *incidentRepository) CountByStatus(ctx context.Context, businessID string) (map[domain.IncidentStatus]int, error) {
	const query = `
        SELECT status, COUNT(*) FROM incident_tickets
        WHERE business_id=$1 GROUP BY status`
	rows, err := r.pool.Query(ctx, query, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.IncidentStatus]int)
	for rows.Next() {
		var (
			status domain.IncidentStatus
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *incidentRepository) ListOverdue(ctx context.Context, now time.Time, limit int) ([]domain.IncidentTicket, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + incidentColumns + ` FROM incident_tickets
        WHERE status <> 'CLOSED'
          AND ((first_acknowledged_at IS NULL AND sla_target_ack < $1 AND ack_sweep_notified_at IS NULL)
            OR (resolved_at IS NULL AND sla_target_resolve < $1 AND resolve_sweep_notified_at IS NULL))
        ORDER BY sla_target_ack ASC
        LIMIT $2`
	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIncidents(rows)
}

// MarkSweepNotified takes the ticket out of ListOverdue for slaType. The first
// mark wins.
func (r *incidentRepository) MarkSweepNotified(ctx context.Context, id string, slaType domain.SLAType, at time.Time) error {
	var query string
	switch slaType {
	case domain.SLATypeAck:
		query = `UPDATE incident_tickets SET ack_sweep_notified_at=COALESCE(ack_sweep_notified_at, $2) WHERE id=$1`
	case domain.SLATypeResolve:
		query = `UPDATE incident_tickets SET resolve_sweep_notified_at=COALESCE(resolve_sweep_notified_at, $2) WHERE id=$1`
	default:
		return fmt.Errorf("unknown sla type %q", slaType)
	}
	_, err := r.pool.Exec(ctx, query, id, at)
	return err
}

func scanIncident(row pgx.Row) (*domain.IncidentTicket, error) {
	var (
		ticket  domain.IncidentTicket
		actions []string
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.TicketID,
		&ticket.Reason,
		&ticket.Description,
		&ticket.Priority,
		&ticket.Template,
		&ticket.Category,
		&ticket.SubCategory,
		&ticket.Source,
		&ticket.Status,
		&ticket.BusinessID,
		&ticket.AssignedByID,
		&ticket.AssignedToEmail,
		&ticket.RiskScore,
		&actions,
		&ticket.SLATargetAck,
		&ticket.SLATargetResolve,
		&ticket.FirstAcknowledgedAt,
		&ticket.ResolvedAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	ticket.RecommendedActions = make([]domain.RecommendedAction, 0, len(actions))
	for _, action := range actions {
		ticket.RecommendedActions = append(ticket.RecommendedActions, domain.RecommendedAction(action))
	}
	return &ticket, nil
}

func scanIncidents(rows pgx.Rows) ([]domain.IncidentTicket, error) {
	var result []domain.IncidentTicket
	for rows.Next() {
		ticket, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func actionStrings(actions []domain.RecommendedAction) []string {
	out := make([]string, 0, len(actions))
	for _, action := range actions {
		out = append(out, string(action))
	}
	return out
}
