package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/scrubbe-dev/incident-service/internal/clock"
	"github.com/scrubbe-dev/incident-service/internal/domain"
	"github.com/scrubbe-dev/incident-service/internal/events"
	"github.com/scrubbe-dev/incident-service/internal/repository"
	apperrors "github.com/scrubbe-dev/incident-service/pkg/util/errorutil"
)

// EscalationService hands incidents off to other responders of the same business.
// It records the hand-off only; the ticket row is left to the lifecycle engine.
type EscalationService struct {
	incidents   repository.IncidentRepository
	escalations repository.EscalationRepository
	members     repository.MemberRepository
	notifier     Notifier
	clock        clock.Clock
	logger       *zap.Logger
	storeTimeout time.Duration
}

// EscalationDependencies bundles repositories for escalation.
type EscalationDependencies struct {
	IncidentRepo   repository.IncidentRepository
	EscalationRepo repository.EscalationRepository
	MemberRepo     repository.MemberRepository
	Notifier       Notifier
	Clock          clock.Clock
	Logger         *zap.Logger
	StoreTimeout   time.Duration
}

// EscalateInput describes an escalation request.
type EscalateInput struct {
	TicketID    string
	TargetEmail string
	EscalatorID string
	Reason      string
}

// EscalationResult is returned to the caller after a successful escalation.
type EscalationResult struct {
	TicketID        string            `json:"ticket_id"`
	EscalatedToRole domain.MemberRole `json:"escalated_to_role"`
	Timestamp       time.Time         `json:"timestamp"`
}

// NewEscalationService creates the service.
func NewEscalationService(deps EscalationDependencies) *EscalationService {
	s := &EscalationService{
		incidents:   deps.IncidentRepo,
		escalations: deps.EscalationRepo,
		members:     deps.MemberRepo,
		notifier:     deps.Notifier,
		clock:        deps.Clock,
		logger:       deps.Logger,
		storeTimeout: deps.StoreTimeout,
	}
	if s.clock == nil {
		s.clock = clock.System()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.storeTimeout <= 0 {
		s.storeTimeout = defaultStoreTimeout
	}
	return s
}

// Escalate records a PENDING escalation of the ticket to the target user. Both
// the escalator and the target must belong to the ticket's business.
func (s *EscalationService) Escalate(ctx context.Context, input EscalateInput) (*EscalationResult, error) {
	if strings.TrimSpace(input.TargetEmail) == "" {
		return nil, apperrors.NewValidationError("target email is required", nil)
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	ticket, err := s.incidents.GetByTicketID(storeCtx, input.TicketID)
	if err != nil {
		return nil, notFoundOr(err, "incident", map[string]any{"ticket_id": input.TicketID})
	}
	if ticket.IsClosed() {
		return nil, closedConflict(input.TicketID)
	}

	target, err := s.members.GetUserByEmail(storeCtx, input.TargetEmail)
	if err != nil {
		return nil, notFoundOr(err, "target user", map[string]any{"email": input.TargetEmail})
	}
	if _, err := s.members.GetUserByID(storeCtx, input.EscalatorID); err != nil {
		return nil, notFoundOr(err, "escalator", map[string]any{"user_id": input.EscalatorID})
	}

	targetMember, err := s.membership(storeCtx, ticket.BusinessID, target.ID)
	if err != nil {
		return nil, err
	}
	if _, err := s.membership(storeCtx, ticket.BusinessID, input.EscalatorID); err != nil {
		return nil, err
	}

	escalation := &domain.EscalatedIncident{
		IncidentTicketID:  ticket.ID,
		EscalatedToUserID: target.ID,
		EscalatedByID:     input.EscalatorID,
		EscalationReason:  strings.TrimSpace(input.Reason),
		Status:            domain.EscalationPending,
		EscalatedAt:       s.clock.Now(),
	}
	if err := s.escalations.Create(storeCtx, escalation); err != nil {
		s.logger.Error("create escalation", zap.String("ticket_id", ticket.TicketID), zap.Error(err))
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("incident escalated",
		zap.String("ticket_id", ticket.TicketID),
		zap.String("to_user_id", target.ID),
		zap.String("role", string(targetMember.Role)))
	if s.notifier != nil {
		if err := s.notifier.Notify(context.WithoutCancel(ctx), ticket, events.EventTicketEscalated); err != nil {
			s.logger.Warn("notification failed", zap.String("ticket_id", ticket.TicketID), zap.Error(err))
		}
	}

	return &EscalationResult{
		TicketID:        ticket.TicketID,
		EscalatedToRole: targetMember.Role,
		Timestamp:       escalation.EscalatedAt,
	}, nil
}

// ListForTicket returns the escalation history of a ticket.
func (s *EscalationService) ListForTicket(ctx context.Context, ticketID string) ([]domain.EscalatedIncident, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	ticket, err := s.incidents.GetByTicketID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "incident", map[string]any{"ticket_id": ticketID})
	}
	list, err := s.escalations.ListByIncident(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return list, nil
}

func (s *EscalationService) membership(ctx context.Context, businessID, userID string) (*domain.Member, error) {
	member, err := s.members.GetMembership(ctx, businessID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewForbidden("user is not a member of the incident's business")
		}
		return nil, apperrors.MapError(err)
	}
	return member, nil
}

func notFoundOr(err error, resource string, details map[string]any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, details)
	}
	return apperrors.MapError(err)
}
