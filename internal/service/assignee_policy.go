package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/scrubbe-dev/incident-service/internal/domain"
	"github.com/scrubbe-dev/incident-service/internal/repository"
	apperrors "github.com/scrubbe-dev/incident-service/pkg/util/errorutil"
)

// AssigneePolicy picks the responder for tickets that arrive without one,
// such as those submitted by an integration.
type AssigneePolicy struct {
	members      repository.MemberRepository
	defaultEmail string
}

// NewAssigneePolicy creates the policy. An empty defaultEmail means intake
// without an explicit assignee is refused.
func NewAssigneePolicy(members repository.MemberRepository, defaultEmail string) *AssigneePolicy {
	return &AssigneePolicy{
		members:      members,
		defaultEmail: strings.ToLower(strings.TrimSpace(defaultEmail)),
	}
}

// DefaultAssignee returns the configured responder for businessID. The
// responder must be a member of the business and allowed to work incidents.
func (p *AssigneePolicy) DefaultAssignee(ctx context.Context, businessID string) (*domain.Member, error) {
	if p == nil || p.defaultEmail == "" {
		return nil, apperrors.NewConflict("no default assignee configured", map[string]any{"business_id": businessID})
	}

	user, err := p.members.GetUserByEmail(ctx, p.defaultEmail)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewConflict("default assignee does not exist", map[string]any{"email": p.defaultEmail})
		}
		return nil, apperrors.MapError(err)
	}

	member, err := p.members.GetMembership(ctx, businessID, user.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewConflict("default assignee is not a member of the business", map[string]any{"business_id": businessID})
		}
		return nil, apperrors.MapError(err)
	}
	if !canRespond(member.Role) {
		return nil, apperrors.NewConflict("default assignee cannot work incidents", map[string]any{"role": member.Role})
	}
	return member, nil
}

func canRespond(role domain.MemberRole) bool {
	switch role {
	case domain.MemberRoleOwner, domain.MemberRoleAdmin, domain.MemberRoleResponder:
		return true
	default:
		return false
	}
}
