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
	"github.com/scrubbe-dev/incident-service/internal/idgen"
	"github.com/scrubbe-dev/incident-service/internal/observability"
	"github.com/scrubbe-dev/incident-service/internal/repository"
	"github.com/scrubbe-dev/incident-service/internal/risk"
	"github.com/scrubbe-dev/incident-service/internal/sla"
	apperrors "github.com/scrubbe-dev/incident-service/pkg/util/errorutil"
)

const (
	defaultStoreTimeout = 5 * time.Second
	defaultRiskTimeout  = 3 * time.Second
	maxCommentLength    = 10000
)

// IncidentService is the lifecycle engine. It is the only component that
// mutates incident rows.
type IncidentService struct {
	incidents    repository.IncidentRepository
	breaches     repository.BreachLogRepository
	comments     repository.CommentRepository
	resolutions  repository.ResolutionRepository
	policy       sla.Policy
	oracle       risk.Oracle
	notifier     Notifier
	assignees    *AssigneePolicy
	ids          *idgen.Generator
	clock        clock.Clock
	metrics      *observability.Metrics
	logger       *zap.Logger
	storeTimeout time.Duration
	riskTimeout  time.Duration
	locks        *ticketLocks
}

// IncidentDependencies bundles collaborators for the lifecycle engine.
type IncidentDependencies struct {
	IncidentRepo   repository.IncidentRepository
	BreachRepo     repository.BreachLogRepository
	CommentRepo    repository.CommentRepository
	ResolutionRepo repository.ResolutionRepository
	Policy         sla.Policy
	Oracle         risk.Oracle
	Notifier       Notifier
	Assignees      *AssigneePolicy
	// IDs overrides the ticket id generator. When nil one is built on IncidentRepo.
	IDs           *idgen.Generator
	IDMaxAttempts int
	Clock         clock.Clock
	Metrics       *observability.Metrics
	Logger        *zap.Logger
	StoreTimeout  time.Duration
	RiskTimeout   time.Duration
}

// SubmitInput describes a new incident report.
type SubmitInput struct {
	Reason          string
	Description     string
	Priority        domain.IncidentPriority
	Template        domain.IncidentTemplate
	Category        string
	SubCategory     string
	Source          domain.IncidentSource
	AssignedToEmail string
}

// UpdateInput overwrites the mutable descriptive fields. Nil fields keep their value.
type UpdateInput struct {
	Reason          *string
	Description     *string
	Priority        *domain.IncidentPriority
	Category        *string
	SubCategory     *string
	AssignedToEmail *string
	Status          *domain.IncidentStatus
}

// ResolveInput carries the postmortem details captured on resolution.
type ResolveInput struct {
	RootCause      string
	ActionsTaken   string
	LessonsLearned string
	PostmortemURL  string
}

// ListFilter describes business-scoped listing.
type ListFilter struct {
	Statuses   []domain.IncidentStatus
	Priorities []domain.IncidentPriority
	Assignee   *string
	Limit      int
	Offset     int
}

// Outcome reports what a lifecycle operation did. Repeated calls return
// Changed=false instead of an error.
type Outcome struct {
	Ticket        *domain.IncidentTicket
	Changed       bool
	AlreadyClosed bool
	Breach        *domain.SLABreachAuditLog
}

// Analytics summarises incidents for a business.
type Analytics struct {
	Total    int                           `json:"total"`
	ByStatus map[domain.IncidentStatus]int `json:"by_status"`
	Breaches map[domain.SLAType]int        `json:"breaches"`
}

// NewIncidentService constructs the engine.
func NewIncidentService(deps IncidentDependencies) *IncidentService {
	s := &IncidentService{
		incidents:    deps.IncidentRepo,
		breaches:     deps.BreachRepo,
		comments:     deps.CommentRepo,
		resolutions:  deps.ResolutionRepo,
		policy:       deps.Policy,
		oracle:       deps.Oracle,
		notifier:     deps.Notifier,
		assignees:    deps.Assignees,
		ids:          deps.IDs,
		clock:        deps.Clock,
		metrics:      deps.Metrics,
		logger:       deps.Logger,
		storeTimeout: deps.StoreTimeout,
		riskTimeout:  deps.RiskTimeout,
		locks:        newTicketLocks(),
	}
	if s.policy == nil {
		s.policy = sla.DefaultPolicy()
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
	if s.riskTimeout <= 0 {
		s.riskTimeout = defaultRiskTimeout
	}
	if s.ids == nil {
		s.ids = idgen.NewGenerator(s.incidents.ExistsByTicketID, func(err error) bool {
			return errors.Is(err, repository.ErrDuplicateTicketID)
		}, deps.IDMaxAttempts)
	}
	return s
}

// Submit creates an OPEN ticket with its SLA deadlines, then enriches it with
// a risk assessment. Enrichment and notification failures never fail the call.
func (s *IncidentService) Submit(ctx context.Context, input SubmitInput, creatorID, businessID string) (*domain.IncidentTicket, error) {
	if err := validateSubmit(&input); err != nil {
		return nil, err
	}
	if strings.TrimSpace(creatorID) == "" || strings.TrimSpace(businessID) == "" {
		return nil, apperrors.NewValidationError("creator and business are required", nil)
	}

	now := s.clock.Now()
	targets, err := s.policy.ComputeTargets(now, input.Priority)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error(), map[string]any{"priority": input.Priority})
	}

	ticket := &domain.IncidentTicket{
		Reason:           input.Reason,
		Description:      input.Description,
		Priority:         input.Priority,
		Template:         input.Template,
		Category:         input.Category,
		SubCategory:      input.SubCategory,
		Source:           input.Source,
		Status:           domain.IncidentStatusOpen,
		BusinessID:       businessID,
		AssignedByID:     creatorID,
		AssignedToEmail:  input.AssignedToEmail,
		SLATargetAck:     &targets.Ack,
		SLATargetResolve: &targets.Resolve,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	_, err = s.ids.Insert(ctx, func(ctx context.Context, id string) error {
		ticket.TicketID = id
		storeCtx, cancel := s.storeContext(ctx)
		defer cancel()
		return s.incidents.Create(storeCtx, ticket)
	})
	if err != nil {
		if errors.Is(err, idgen.ErrGenerationExhausted) {
			return nil, apperrors.NewGenerationExhausted(s.ids.Attempts(), err)
		}
		return nil, s.internal("create incident", err)
	}
	s.metrics.RecordTransition("submitted")
	s.logger.Info("incident submitted",
		zap.String("ticket_id", ticket.TicketID),
		zap.String("business_id", businessID),
		zap.String("priority", string(ticket.Priority)))

	ticket = s.enrich(ctx, ticket)

	s.notify(ctx, ticket, events.EventTicketSubmitted)
	if ticket.Priority.RequiresWarRoom() {
		s.openWarRoom(ctx, ticket)
	}
	return ticket, nil
}

// SubmitFromIntegration files a ticket reported by a third-party channel. The
// creator and assignee come from the assignee policy.
func (s *IncidentService) SubmitFromIntegration(ctx context.Context, businessID string, input SubmitInput) (*domain.IncidentTicket, error) {
	assignee, err := s.assignees.DefaultAssignee(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.AssignedToEmail) == "" {
		input.AssignedToEmail = assignee.Email
	}
	return s.Submit(ctx, input, assignee.UserID, businessID)
}

// Acknowledge records the first acknowledgment. Later calls are no-ops.
func (s *IncidentService) Acknowledge(ctx context.Context, ticketID string) (*Outcome, error) {
	out, err := s.locked(ticketID, func() (*Outcome, error) {
		ticket, err := s.load(ctx, ticketID)
		if err != nil {
			return nil, err
		}
		if acknowledged(ticket) {
			return &Outcome{Ticket: ticket}, nil
		}
		if ticket.IsClosed() {
			return nil, closedConflict(ticketID)
		}

		now := s.clock.Now()
		breach := breachEntry(domain.SLATypeAck, now, ticket.SLATargetAck)

		storeCtx, cancel := s.storeContext(ctx)
		defer cancel()
		result, err := s.incidents.MarkAcknowledged(storeCtx, ticket.ID, now, breach)
		if err != nil {
			return nil, s.internal("acknowledge incident", err)
		}
		if result.Ticket == nil {
			return s.raced(ctx, ticketID, acknowledged)
		}
		return changedOutcome(result, breach), nil
	})
	if err != nil {
		return nil, err
	}
	if out.Changed {
		s.afterTransition(ctx, out.Ticket, "acknowledged", events.EventTicketAcknowledged, out.Breach)
	}
	return out, nil
}

// Resolve records the resolution and moves the ticket to RESOLVED. Later calls are no-ops.
func (s *IncidentService) Resolve(ctx context.Context, ticketID string, input ResolveInput, resolverID string) (*Outcome, error) {
	out, err := s.locked(ticketID, func() (*Outcome, error) {
		ticket, err := s.load(ctx, ticketID)
		if err != nil {
			return nil, err
		}
		if resolved(ticket) {
			return &Outcome{Ticket: ticket}, nil
		}
		if ticket.IsClosed() {
			return nil, closedConflict(ticketID)
		}

		now := s.clock.Now()
		breach := breachEntry(domain.SLATypeResolve, now, ticket.SLATargetResolve)
		resolution := &domain.IncidentResolution{
			RootCause:      strings.TrimSpace(input.RootCause),
			ActionsTaken:   strings.TrimSpace(input.ActionsTaken),
			LessonsLearned: strings.TrimSpace(input.LessonsLearned),
			PostmortemURL:  strings.TrimSpace(input.PostmortemURL),
			ResolvedByID:   resolverID,
			CreatedAt:      now,
		}

		storeCtx, cancel := s.storeContext(ctx)
		defer cancel()
		result, err := s.incidents.MarkResolved(storeCtx, ticket.ID, now, resolution, breach)
		if err != nil {
			return nil, s.internal("resolve incident", err)
		}
		if result.Ticket == nil {
			return s.raced(ctx, ticketID, resolved)
		}
		return changedOutcome(result, breach), nil
	})
	if err != nil {
		return nil, err
	}
	if out.Changed {
		s.afterTransition(ctx, out.Ticket, "resolved", events.EventTicketResolved, out.Breach)
	}
	return out, nil
}

// Update overwrites descriptive fields. Terminal statuses are reached only
// through Resolve and Close, and a resolved ticket keeps its status.
func (s *IncidentService) Update(ctx context.Context, ticketID string, input UpdateInput) (*domain.IncidentTicket, error) {
	out, err := s.locked(ticketID, func() (*Outcome, error) {
		ticket, err := s.load(ctx, ticketID)
		if err != nil {
			return nil, err
		}
		if ticket.IsClosed() {
			return nil, closedConflict(ticketID)
		}

		patch, err := buildPatch(ticket, input)
		if err != nil {
			return nil, err
		}

		storeCtx, cancel := s.storeContext(ctx)
		defer cancel()
		updated, err := s.incidents.UpdateDetails(storeCtx, ticket.ID, patch)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, s.updateConflict(ctx, ticketID)
			}
			return nil, s.internal("update incident", err)
		}
		return &Outcome{Ticket: updated, Changed: true}, nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordTransition("updated")
	s.notify(ctx, out.Ticket, events.EventTicketUpdated)
	return out.Ticket, nil
}

// Close moves the ticket to CLOSED. Closing a closed ticket reports AlreadyClosed.
func (s *IncidentService) Close(ctx context.Context, ticketID string) (*Outcome, error) {
	out, err := s.locked(ticketID, func() (*Outcome, error) {
		ticket, err := s.load(ctx, ticketID)
		if err != nil {
			return nil, err
		}
		if ticket.IsClosed() {
			return &Outcome{Ticket: ticket, AlreadyClosed: true}, nil
		}

		storeCtx, cancel := s.storeContext(ctx)
		defer cancel()
		updated, err := s.incidents.MarkClosed(storeCtx, ticket.ID)
		if err != nil {
			return nil, s.internal("close incident", err)
		}
		if updated == nil {
			current, err := s.load(ctx, ticketID)
			if err != nil {
				return nil, err
			}
			return &Outcome{Ticket: current, AlreadyClosed: true}, nil
		}
		return &Outcome{Ticket: updated, Changed: true}, nil
	})
	if err != nil {
		return nil, err
	}
	if out.Changed {
		s.afterTransition(ctx, out.Ticket, "closed", events.EventTicketClosed, nil)
	}
	return out, nil
}

// Get returns a ticket by its human-shareable id.
func (s *IncidentService) Get(ctx context.Context, ticketID string) (*domain.IncidentTicket, error) {
	return s.load(ctx, ticketID)
}

// Authorize returns the ticket when it belongs to businessID. Tickets of other
// businesses are reported as missing.
func (s *IncidentService) Authorize(ctx context.Context, ticketID, businessID string) (*domain.IncidentTicket, error) {
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.BusinessID != businessID {
		return nil, apperrors.NewNotFound("incident", map[string]any{"ticket_id": ticketID})
	}
	return ticket, nil
}

// ListByBusiness lists a business's tickets, newest first.
func (s *IncidentService) ListByBusiness(ctx context.Context, businessID string, filter ListFilter) ([]domain.IncidentTicket, error) {
	for _, st := range filter.Statuses {
		if !st.Valid() {
			return nil, apperrors.NewValidationError("invalid status filter", map[string]any{"status": st})
		}
	}
	for _, p := range filter.Priorities {
		if !p.Valid() {
			return nil, apperrors.NewValidationError("invalid priority filter", map[string]any{"priority": p})
		}
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	tickets, err := s.incidents.ListByBusiness(storeCtx, repository.IncidentFilter{
		BusinessID:      businessID,
		Statuses:        filter.Statuses,
		Priorities:      filter.Priorities,
		AssignedToEmail: filter.Assignee,
		Limit:           filter.Limit,
		Offset:          filter.Offset,
	})
	if err != nil {
		return nil, s.internal("list incidents", err)
	}
	return tickets, nil
}

// Analytics counts a business's tickets by status and its recorded breaches.
func (s *IncidentService) Analytics(ctx context.Context, businessID string) (*Analytics, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	byStatus, err := s.incidents.CountByStatus(storeCtx, businessID)
	if err != nil {
		return nil, s.internal("count incidents", err)
	}
	breaches, err := s.breaches.CountByBusiness(storeCtx, businessID)
	if err != nil {
		return nil, s.internal("count breaches", err)
	}

	result := &Analytics{ByStatus: make(map[domain.IncidentStatus]int), Breaches: breaches}
	for _, st := range domain.AllIncidentStatuses {
		result.ByStatus[st] = byStatus[st]
		result.Total += byStatus[st]
	}
	return result, nil
}

// AddComment appends a note to the ticket thread.
func (s *IncidentService) AddComment(ctx context.Context, ticketID, authorID, body string) (*domain.IncidentComment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("comment body is required", nil)
	}
	if len(body) > maxCommentLength {
		return nil, apperrors.NewValidationError("comment too long", map[string]any{"max": maxCommentLength})
	}

	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	comment := &domain.IncidentComment{
		IncidentID: ticket.ID,
		AuthorID:   authorID,
		Body:       body,
		CreatedAt:  s.clock.Now(),
	}
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	if err := s.comments.Create(storeCtx, comment); err != nil {
		return nil, s.internal("create comment", err)
	}

	s.notify(ctx, ticket, events.EventCommentAdded)
	return comment, nil
}

// Comments lists the ticket thread, oldest first.
func (s *IncidentService) Comments(ctx context.Context, ticketID string) ([]domain.IncidentComment, error) {
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	comments, err := s.comments.ListByIncident(storeCtx, ticket.ID)
	if err != nil {
		return nil, s.internal("list comments", err)
	}
	return comments, nil
}

// BreachLogs returns the SLA breach audit trail of a ticket.
func (s *IncidentService) BreachLogs(ctx context.Context, ticketID string) ([]domain.SLABreachAuditLog, error) {
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	logs, err := s.breaches.ListByIncident(storeCtx, ticket.ID)
	if err != nil {
		return nil, s.internal("list breach logs", err)
	}
	return logs, nil
}

// Resolution returns the postmortem details of a resolved ticket.
func (s *IncidentService) Resolution(ctx context.Context, ticketID string) (*domain.IncidentResolution, error) {
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	res, err := s.resolutions.GetByIncident(storeCtx, ticket.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("resolution", map[string]any{"ticket_id": ticketID})
		}
		return nil, s.internal("get resolution", err)
	}
	return res, nil
}

// ClaimFunc reports whether the caller should notify about a breach. It lets
// a scheduler deduplicate across runs and instances.
type ClaimFunc func(ctx context.Context, ticketID string, slaType domain.SLAType) (bool, error)

// SweepOverdue notifies about tickets that crossed an SLA deadline without the
// matching transition. It never writes breach logs: the transition that
// eventually happens records the breach. Returns the number of notifications sent.
func (s *IncidentService) SweepOverdue(ctx context.Context, limit int, claim ClaimFunc) (int, error) {
	now := s.clock.Now()

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	tickets, err := s.incidents.ListOverdue(storeCtx, now, limit)
	if err != nil {
		return 0, s.internal("list overdue incidents", err)
	}

	sent := 0
	for i := range tickets {
		ticket := &tickets[i]
		for _, slaType := range overdueTypes(ticket, now) {
			first := true
			if claim != nil {
				if first, err = claim(ctx, ticket.TicketID, slaType); err != nil {
					return sent, err
				}
			}
			if first {
				s.notify(ctx, ticket, events.EventSLABreached)
				sent++
			}
			// Marked whether or not this run notified; marked pairs leave ListOverdue.
			if err := s.markSweepNotified(ctx, ticket, slaType, now); err != nil {
				return sent, err
			}
		}
	}
	return sent, nil
}

func (s *IncidentService) markSweepNotified(ctx context.Context, ticket *domain.IncidentTicket, slaType domain.SLAType, now time.Time) error {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	if err := s.incidents.MarkSweepNotified(storeCtx, ticket.ID, slaType, now); err != nil {
		return s.internal("mark sweep notified", err)
	}
	return nil
}

func overdueTypes(ticket *domain.IncidentTicket, now time.Time) []domain.SLAType {
	var types []domain.SLAType
	if ticket.FirstAcknowledgedAt == nil && ticket.SLATargetAck != nil && sla.DetectBreach(now, *ticket.SLATargetAck).Breached {
		types = append(types, domain.SLATypeAck)
	}
	if ticket.ResolvedAt == nil && ticket.SLATargetResolve != nil && sla.DetectBreach(now, *ticket.SLATargetResolve).Breached {
		types = append(types, domain.SLATypeResolve)
	}
	return types
}

func (s *IncidentService) load(ctx context.Context, ticketID string) (*domain.IncidentTicket, error) {
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	ticket, err := s.incidents.GetByTicketID(storeCtx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("incident", map[string]any{"ticket_id": ticketID})
		}
		return nil, s.internal("load incident", err)
	}
	return ticket, nil
}

// raced handles a conditional update that changed nothing because another
// writer got there first. done reports whether that writer made the same transition.
func (s *IncidentService) raced(ctx context.Context, ticketID string, done func(*domain.IncidentTicket) bool) (*Outcome, error) {
	current, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !done(current) && current.IsClosed() {
		return nil, closedConflict(ticketID)
	}
	return &Outcome{Ticket: current}, nil
}

// locked runs fn under the ticket's in-process lock. Notifications are sent
// by the caller after the lock is released.
func (s *IncidentService) locked(ticketID string, fn func() (*Outcome, error)) (*Outcome, error) {
	unlock := s.locks.lock(ticketID)
	defer unlock()
	return fn()
}

// updateConflict explains why a guarded details update matched no row.
func (s *IncidentService) updateConflict(ctx context.Context, ticketID string) error {
	current, err := s.load(ctx, ticketID)
	if err != nil {
		return err
	}
	if current.IsClosed() {
		return closedConflict(ticketID)
	}
	return resolvedConflict(ticketID)
}

// changedOutcome drops the breach when the store already held an entry for
// the same SLA type.
func changedOutcome(result repository.Transition, breach *domain.SLABreachAuditLog) *Outcome {
	if !result.BreachRecorded {
		breach = nil
	}
	return &Outcome{Ticket: result.Ticket, Changed: true, Breach: breach}
}

func acknowledged(t *domain.IncidentTicket) bool { return t.FirstAcknowledgedAt != nil }

func resolved(t *domain.IncidentTicket) bool { return t.ResolvedAt != nil }

func (s *IncidentService) afterTransition(ctx context.Context, ticket *domain.IncidentTicket, name string, label events.EventType, breach *domain.SLABreachAuditLog) {
	s.metrics.RecordTransition(name)
	s.logger.Info("incident "+name, zap.String("ticket_id", ticket.TicketID))
	s.notify(ctx, ticket, label)
	if breach != nil {
		s.metrics.RecordBreach(string(breach.SLAType))
		s.logger.Warn("sla breached",
			zap.String("ticket_id", ticket.TicketID),
			zap.String("sla_type", string(breach.SLAType)),
			zap.Int("breach_minutes", breach.BreachDurationMinutes))
		s.notify(ctx, ticket, events.EventSLABreached)
	}
}

func (s *IncidentService) enrich(ctx context.Context, ticket *domain.IncidentTicket) *domain.IncidentTicket {
	if s.oracle == nil {
		return ticket
	}

	riskCtx, cancel := context.WithTimeout(ctx, s.riskTimeout)
	assessment, err := s.oracle.Score(riskCtx, risk.SnapshotOf(ticket))
	cancel()
	if err != nil {
		s.logger.Warn("risk scoring failed; ticket left unenriched",
			zap.String("ticket_id", ticket.TicketID), zap.Error(err))
		return ticket
	}

	score := assessment.RiskScore
	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()
	enriched, err := s.incidents.SetEnrichment(storeCtx, ticket.ID, repository.Enrichment{
		RiskScore:          &score,
		RecommendedActions: assessment.RecommendedActions,
	})
	if err != nil {
		s.logger.Warn("persist enrichment failed",
			zap.String("ticket_id", ticket.TicketID), zap.Error(err))
		return ticket
	}
	return enriched
}

// notify is fire-and-forget: the transition already committed.
func (s *IncidentService) notify(ctx context.Context, ticket *domain.IncidentTicket, label events.EventType) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(context.WithoutCancel(ctx), ticket, label); err != nil {
		s.logger.Warn("notification failed",
			zap.String("ticket_id", ticket.TicketID),
			zap.String("event", string(label)),
			zap.Error(err))
	}
}

func (s *IncidentService) openWarRoom(ctx context.Context, ticket *domain.IncidentTicket) {
	if s.notifier == nil {
		return
	}
	room, err := s.notifier.TriggerWarRoom(context.WithoutCancel(ctx), ticket)
	if err != nil {
		s.logger.Warn("war room trigger failed", zap.String("ticket_id", ticket.TicketID), zap.Error(err))
		return
	}
	s.logger.Info("war room opened",
		zap.String("ticket_id", ticket.TicketID),
		zap.String("meeting_link", room.MeetingLink))
}

func (s *IncidentService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}

func (s *IncidentService) internal(op string, err error) error {
	s.logger.Error(op, zap.Error(err))
	return apperrors.NewInternalError(err)
}

func breachEntry(slaType domain.SLAType, now time.Time, target *time.Time) *domain.SLABreachAuditLog {
	if target == nil {
		return nil
	}
	b := sla.DetectBreach(now, *target)
	if !b.Breached {
		return nil
	}
	return &domain.SLABreachAuditLog{
		SLAType:               slaType,
		BreachedAt:            now,
		BreachDurationMinutes: b.DurationMinutes,
	}
}

func closedConflict(ticketID string) error {
	return apperrors.NewConflict("incident is closed", map[string]any{"ticket_id": ticketID})
}

func resolvedConflict(ticketID string) error {
	return apperrors.NewConflict("incident is resolved; its status can no longer change", map[string]any{"ticket_id": ticketID})
}

func validateSubmit(input *SubmitInput) error {
	input.Reason = strings.TrimSpace(input.Reason)
	input.Description = strings.TrimSpace(input.Description)
	input.Category = strings.TrimSpace(input.Category)
	input.SubCategory = strings.TrimSpace(input.SubCategory)
	input.AssignedToEmail = strings.ToLower(strings.TrimSpace(input.AssignedToEmail))

	if input.Reason == "" {
		return apperrors.NewValidationError("reason is required", nil)
	}
	if !input.Priority.Valid() {
		return apperrors.NewValidationError("invalid priority", map[string]any{"priority": input.Priority})
	}
	if input.Template == "" {
		input.Template = domain.TemplateNone
	}
	if !input.Template.Valid() {
		return apperrors.NewValidationError("invalid template", map[string]any{"template": input.Template})
	}
	if input.Source == "" {
		input.Source = domain.SourcePortal
	}
	if !input.Source.Valid() {
		return apperrors.NewValidationError("invalid source", map[string]any{"source": input.Source})
	}
	if input.AssignedToEmail != "" && !strings.Contains(input.AssignedToEmail, "@") {
		return apperrors.NewValidationError("invalid assignee email", map[string]any{"assigned_to_email": input.AssignedToEmail})
	}
	return nil
}

func buildPatch(ticket *domain.IncidentTicket, input UpdateInput) (repository.DetailsPatch, error) {
	patch := repository.DetailsPatch{
		Reason:          ticket.Reason,
		Description:     ticket.Description,
		Priority:        ticket.Priority,
		Category:        ticket.Category,
		SubCategory:     ticket.SubCategory,
		AssignedToEmail: ticket.AssignedToEmail,
	}

	if input.Reason != nil {
		patch.Reason = strings.TrimSpace(*input.Reason)
		if patch.Reason == "" {
			return patch, apperrors.NewValidationError("reason cannot be empty", nil)
		}
	}
	if input.Description != nil {
		patch.Description = strings.TrimSpace(*input.Description)
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return patch, apperrors.NewValidationError("invalid priority", map[string]any{"priority": *input.Priority})
		}
		patch.Priority = *input.Priority
	}
	if input.Category != nil {
		patch.Category = strings.TrimSpace(*input.Category)
	}
	if input.SubCategory != nil {
		patch.SubCategory = strings.TrimSpace(*input.SubCategory)
	}
	if input.AssignedToEmail != nil {
		patch.AssignedToEmail = strings.ToLower(strings.TrimSpace(*input.AssignedToEmail))
	}
	if input.Status != nil && *input.Status != ticket.Status {
		switch *input.Status {
		case domain.IncidentStatusInProgress, domain.IncidentStatusOnHold:
		default:
			return patch, apperrors.NewValidationError("status can only move to IN_PROGRESS or ON_HOLD here; use acknowledge, resolve or close",
				map[string]any{"status": *input.Status})
		}
		if resolved(ticket) {
			return patch, resolvedConflict(ticket.TicketID)
		}
		status := *input.Status
		patch.Status = &status
	}
	return patch, nil
}
