package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrubbe-dev/incident-service/internal/domain"
	"github.com/scrubbe-dev/incident-service/internal/events"
	apperrors "github.com/scrubbe-dev/incident-service/pkg/util/errorutil"
)

func newEscalationFixture(t *testing.T) (*engineFixture, *EscalationService, *domain.IncidentTicket) {
	t.Helper()
	f := newEngine(t)
	f.store.addMember(creator, "lead@a.example", bizA, domain.MemberRoleAdmin)
	f.store.addMember("user-oncall", "oncall@a.example", bizA, domain.MemberRoleResponder)
	f.store.addMember("user-outsider", "someone@b.example", bizB, domain.MemberRoleOwner)

	svc := NewEscalationService(EscalationDependencies{
		IncidentRepo:   fakeIncidents{f.store},
		EscalationRepo: fakeEscalations{f.store},
		MemberRepo:     fakeMembers{f.store},
		Notifier:       f.notifier,
		Clock:          f.clock,
	})
	return f, svc, f.submit(t, domain.PriorityHigh)
}

func TestEscalateCreatesPendingEscalation(t *testing.T) {
	f, svc, ticket := newEscalationFixture(t)
	ctx := context.Background()

	res, err := svc.Escalate(ctx, EscalateInput{
		TicketID:    ticket.TicketID,
		TargetEmail: "OnCall@a.example",
		EscalatorID: creator,
		Reason:      "needs network team",
	})
	require.NoError(t, err)
	assert.Equal(t, ticket.TicketID, res.TicketID)
	assert.Equal(t, domain.MemberRoleResponder, res.EscalatedToRole)
	assert.Equal(t, t0, res.Timestamp)

	list, err := svc.ListForTicket(ctx, ticket.TicketID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.EscalationPending, list[0].Status)
	assert.Equal(t, "user-oncall", list[0].EscalatedToUserID)
	assert.Equal(t, 1, f.notifier.count(events.EventTicketEscalated))

	stored, err := f.svc.Get(ctx, ticket.TicketID)
	require.NoError(t, err)
	assert.Equal(t, ticket.AssignedToEmail, stored.AssignedToEmail)
}

func TestEscalateErrors(t *testing.T) {
	tests := []struct {
		name  string
		input func(ticketID string) EscalateInput
		code  string
	}{
		{
			name:  "unknown ticket",
			input: func(string) EscalateInput { return EscalateInput{TicketID: "INC-NOPE", TargetEmail: "oncall@a.example", EscalatorID: creator} },
			code:  apperrors.CodeNotFound,
		},
		{
			name:  "unknown target",
			input: func(id string) EscalateInput { return EscalateInput{TicketID: id, TargetEmail: "ghost@a.example", EscalatorID: creator} },
			code:  apperrors.CodeNotFound,
		},
		{
			name:  "unknown escalator",
			input: func(id string) EscalateInput { return EscalateInput{TicketID: id, TargetEmail: "oncall@a.example", EscalatorID: "user-ghost"} },
			code:  apperrors.CodeNotFound,
		},
		{
			name:  "target in another business",
			input: func(id string) EscalateInput { return EscalateInput{TicketID: id, TargetEmail: "someone@b.example", EscalatorID: creator} },
			code:  apperrors.CodeForbidden,
		},
		{
			name:  "escalator in another business",
			input: func(id string) EscalateInput { return EscalateInput{TicketID: id, TargetEmail: "oncall@a.example", EscalatorID: "user-outsider"} },
			code:  apperrors.CodeForbidden,
		},
		{
			name:  "missing target",
			input: func(id string) EscalateInput { return EscalateInput{TicketID: id, EscalatorID: creator} },
			code:  apperrors.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, svc, ticket := newEscalationFixture(t)
			_, err := svc.Escalate(context.Background(), tt.input(ticket.TicketID))
			assert.True(t, apperrors.HasCode(err, tt.code), "got %v", err)
			assert.Empty(t, f.store.escalations)
			assert.Zero(t, f.notifier.count(events.EventTicketEscalated))
		})
	}
}

func TestEscalateClosedTicket(t *testing.T) {
	f, svc, ticket := newEscalationFixture(t)
	_, err := f.svc.Close(context.Background(), ticket.TicketID)
	require.NoError(t, err)

	_, err = svc.Escalate(context.Background(), EscalateInput{TicketID: ticket.TicketID, TargetEmail: "oncall@a.example", EscalatorID: creator})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
}

// deadlineMembers records the deadline of every store call.
type deadlineMembers struct {
	fakeMembers
	deadlines []time.Duration
}

func (m *deadlineMembers) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	if deadline, ok := ctx.Deadline(); ok {
		m.deadlines = append(m.deadlines, time.Until(deadline))
	} else {
		m.deadlines = append(m.deadlines, -1)
	}
	return m.fakeMembers.GetUserByEmail(ctx, email)
}

func TestEscalateBoundsStoreCalls(t *testing.T) {
	f, _, ticket := newEscalationFixture(t)
	members := &deadlineMembers{fakeMembers: fakeMembers{f.store}}
	svc := NewEscalationService(EscalationDependencies{
		IncidentRepo:   fakeIncidents{f.store},
		EscalationRepo: fakeEscalations{f.store},
		MemberRepo:     members,
		Clock:          f.clock,
		StoreTimeout:   time.Minute,
	})

	_, err := svc.Escalate(context.Background(), EscalateInput{TicketID: ticket.TicketID, TargetEmail: "oncall@a.example", EscalatorID: creator})
	require.NoError(t, err)

	require.Len(t, members.deadlines, 1)
	assert.Greater(t, members.deadlines[0], time.Duration(0))
	assert.LessOrEqual(t, members.deadlines[0], time.Minute)
}
