package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/scrubbe-dev/incident-service/internal/domain"
	"github.com/scrubbe-dev/incident-service/internal/events"
	"github.com/scrubbe-dev/incident-service/internal/repository"
	"github.com/scrubbe-dev/incident-service/internal/risk"
)

// memStore backs every fake repository so transitions can touch several
// tables under one lock, like the Postgres transaction does.
type memStore struct {
	mu          sync.Mutex
	seq         int
	tickets     map[string]*domain.IncidentTicket
	byTicketID  map[string]string
	breaches    []domain.SLABreachAuditLog
	comments    []domain.IncidentComment
	resolutions map[string]domain.IncidentResolution
	escalations []domain.EscalatedIncident
	users       map[string]domain.User
	members     map[string]domain.Member
	sweepMarks  map[string]bool

	enrichErr error
	listErr   error
}

func newMemStore() *memStore {
	return &memStore{
		tickets:     make(map[string]*domain.IncidentTicket),
		byTicketID:  make(map[string]string),
		resolutions: make(map[string]domain.IncidentResolution),
		users:       make(map[string]domain.User),
		members:     make(map[string]domain.Member),
		sweepMarks:  make(map[string]bool),
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memStore) addMember(userID, email, businessID string, role domain.MemberRole) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID] = domain.User{ID: userID, Email: email, Name: userID}
	m.members[businessID+"/"+userID] = domain.Member{
		UserID: userID, BusinessID: businessID, Email: email, Role: role,
	}
}

func (m *memStore) breachCount(incidentID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.breaches {
		if b.IncidentID == incidentID {
			n++
		}
	}
	return n
}

func copyTicket(t *domain.IncidentTicket) *domain.IncidentTicket {
	c := *t
	c.RecommendedActions = append([]domain.RecommendedAction(nil), t.RecommendedActions...)
	return &c
}

type fakeIncidents struct{ *memStore }

func (f fakeIncidents) Create(_ context.Context, ticket *domain.IncidentTicket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, taken := f.byTicketID[ticket.TicketID]; taken {
		return fmt.Errorf("%w: %s", repository.ErrDuplicateTicketID, ticket.TicketID)
	}
	ticket.ID = f.nextID("row")
	f.tickets[ticket.ID] = copyTicket(ticket)
	f.byTicketID[ticket.TicketID] = ticket.ID
	return nil
}

func (f fakeIncidents) ExistsByTicketID(_ context.Context, ticketID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.byTicketID[ticketID]
	return ok, nil
}

func (f fakeIncidents) GetByTicketID(_ context.Context, ticketID string) (*domain.IncidentTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byTicketID[ticketID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return copyTicket(f.tickets[id]), nil
}

func (f fakeIncidents) SetEnrichment(_ context.Context, id string, e repository.Enrichment) (*domain.IncidentTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.enrichErr != nil {
		return nil, f.enrichErr
	}
	t := f.tickets[id]
	t.RiskScore = e.RiskScore
	t.RecommendedActions = e.RecommendedActions
	return copyTicket(t), nil
}

func (f fakeIncidents) UpdateDetails(_ context.Context, id string, p repository.DetailsPatch) (*domain.IncidentTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.tickets[id]
	if t.Status == domain.IncidentStatusClosed || (p.Status != nil && t.ResolvedAt != nil) {
		return nil, pgx.ErrNoRows
	}
	t.Reason, t.Description, t.Priority = p.Reason, p.Description, p.Priority
	t.Category, t.SubCategory = p.Category, p.SubCategory
	t.AssignedToEmail = p.AssignedToEmail
	if p.Status != nil {
		t.Status = *p.Status
	}
	return copyTicket(t), nil
}

func (f fakeIncidents) MarkAcknowledged(_ context.Context, id string, at time.Time, breach *domain.SLABreachAuditLog) (repository.Transition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.tickets[id]
	if t.FirstAcknowledgedAt != nil || t.Status == domain.IncidentStatusClosed {
		return repository.Transition{}, nil
	}
	t.FirstAcknowledgedAt = &at
	if t.Status == domain.IncidentStatusOpen {
		t.Status = domain.IncidentStatusAcknowledged
	}
	recorded := f.appendBreach(id, breach)
	return repository.Transition{Ticket: copyTicket(t), BreachRecorded: recorded}, nil
}

func (f fakeIncidents) MarkResolved(_ context.Context, id string, at time.Time, res *domain.IncidentResolution, breach *domain.SLABreachAuditLog) (repository.Transition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.tickets[id]
	if t.ResolvedAt != nil || t.Status == domain.IncidentStatusClosed {
		return repository.Transition{}, nil
	}
	t.ResolvedAt = &at
	t.Status = domain.IncidentStatusResolved
	if res != nil {
		res.IncidentID = id
		f.resolutions[id] = *res
	}
	recorded := f.appendBreach(id, breach)
	return repository.Transition{Ticket: copyTicket(t), BreachRecorded: recorded}, nil
}

func (f fakeIncidents) MarkClosed(_ context.Context, id string) (*domain.IncidentTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.tickets[id]
	if t.Status == domain.IncidentStatusClosed {
		return nil, nil
	}
	t.Status = domain.IncidentStatusClosed
	return copyTicket(t), nil
}

func (f fakeIncidents) ListByBusiness(_ context.Context, filter repository.IncidentFilter) ([]domain.IncidentTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.IncidentTicket
	for _, t := range f.tickets {
		if t.BusinessID == filter.BusinessID {
			out = append(out, *copyTicket(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TicketID < out[j].TicketID })
	return out, nil
}

func (f fakeIncidents) CountByStatus(_ context.Context, businessID string) (map[domain.IncidentStatus]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[domain.IncidentStatus]int)
	for _, t := range f.tickets {
		if t.BusinessID == businessID {
			counts[t.Status]++
		}
	}
	return counts, nil
}

// ListOverdue mirrors the SQL: unmarked overdue tickets, oldest ack target
// first, at most limit rows.
func (f fakeIncidents) ListOverdue(_ context.Context, now time.Time, limit int) ([]domain.IncidentTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.IncidentTicket
	for id, t := range f.tickets {
		if t.Status == domain.IncidentStatusClosed {
			continue
		}
		ackLate := t.FirstAcknowledgedAt == nil && t.SLATargetAck != nil && t.SLATargetAck.Before(now) &&
			!f.sweepMarks[id+"/"+string(domain.SLATypeAck)]
		resolveLate := t.ResolvedAt == nil && t.SLATargetResolve != nil && t.SLATargetResolve.Before(now) &&
			!f.sweepMarks[id+"/"+string(domain.SLATypeResolve)]
		if ackLate || resolveLate {
			out = append(out, *copyTicket(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SLATargetAck.Equal(*out[j].SLATargetAck) {
			return out[i].SLATargetAck.Before(*out[j].SLATargetAck)
		}
		return out[i].TicketID < out[j].TicketID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f fakeIncidents) MarkSweepNotified(_ context.Context, id string, slaType domain.SLAType, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sweepMarks[id+"/"+string(slaType)] = true
	return nil
}

// appendBreach mirrors the unique (incident_id, sla_type) index. Caller holds mu.
func (m *memStore) appendBreach(incidentID string, breach *domain.SLABreachAuditLog) bool {
	if breach == nil {
		return false
	}
	for _, b := range m.breaches {
		if b.IncidentID == incidentID && b.SLAType == breach.SLAType {
			return false
		}
	}
	breach.IncidentID = incidentID
	breach.ID = m.nextID("breach")
	m.breaches = append(m.breaches, *breach)
	return true
}

type fakeBreaches struct{ *memStore }

func (f fakeBreaches) ListByIncident(_ context.Context, incidentID string) ([]domain.SLABreachAuditLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.SLABreachAuditLog
	for _, b := range f.breaches {
		if b.IncidentID == incidentID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f fakeBreaches) CountByBusiness(_ context.Context, businessID string) (map[domain.SLAType]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[domain.SLAType]int)
	for _, b := range f.breaches {
		if f.tickets[b.IncidentID].BusinessID == businessID {
			counts[b.SLAType]++
		}
	}
	return counts, nil
}

type fakeComments struct{ *memStore }

func (f fakeComments) Create(_ context.Context, c *domain.IncidentComment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c.ID = f.nextID("comment")
	f.comments = append(f.comments, *c)
	return nil
}

func (f fakeComments) ListByIncident(_ context.Context, incidentID string) ([]domain.IncidentComment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.IncidentComment
	for _, c := range f.comments {
		if c.IncidentID == incidentID {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeResolutions struct{ *memStore }

func (f fakeResolutions) GetByIncident(_ context.Context, incidentID string) (*domain.IncidentResolution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res, ok := f.resolutions[incidentID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &res, nil
}

type fakeEscalations struct{ *memStore }

func (f fakeEscalations) Create(_ context.Context, e *domain.EscalatedIncident) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e.ID = f.nextID("esc")
	f.escalations = append(f.escalations, *e)
	return nil
}

func (f fakeEscalations) ListByIncident(_ context.Context, incidentID string) ([]domain.EscalatedIncident, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.EscalatedIncident
	for _, e := range f.escalations {
		if e.IncidentTicketID == incidentID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakeMembers struct{ *memStore }

func (f fakeMembers) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &u, nil
}

func (f fakeMembers) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			u := u
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f fakeMembers) GetMembership(_ context.Context, businessID, userID string) (*domain.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[businessID+"/"+userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &m, nil
}

// recordingNotifier captures labels in order.
type recordingNotifier struct {
	mu       sync.Mutex
	labels   []events.EventType
	warRooms []string
	err      error
}

func (n *recordingNotifier) Notify(_ context.Context, ticket *domain.IncidentTicket, label events.EventType) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.labels = append(n.labels, label)
	return n.err
}

func (n *recordingNotifier) TriggerWarRoom(_ context.Context, ticket *domain.IncidentTicket) (WarRoom, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.warRooms = append(n.warRooms, ticket.TicketID)
	return WarRoom{MeetingLink: "https://meet.test/" + ticket.TicketID}, n.err
}

func (n *recordingNotifier) count(label events.EventType) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, l := range n.labels {
		if l == label {
			c++
		}
	}
	return c
}

type oracleFunc func(ctx context.Context, snapshot risk.Snapshot) (risk.Assessment, error)

func (f oracleFunc) Score(ctx context.Context, snapshot risk.Snapshot) (risk.Assessment, error) {
	return f(ctx, snapshot)
}
