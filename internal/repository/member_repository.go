package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scrubbe-dev/incident-service/internal/domain"
)

// MemberRepository resolves users and their business memberships.
type MemberRepository interface {
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetMembership(ctx context.Context, businessID, userID string) (*domain.Member, error)
}

type memberRepository struct {
	pool *pgxpool.Pool
}

// NewMemberRepository returns a Postgres-backed implementation.
func NewMemberRepository(pool *pgxpool.Pool) MemberRepository {
	return &memberRepository{pool: pool}
}

func (r *memberRepository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT id, email, name, created_at FROM users WHERE id=$1`

	var user domain.User
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *memberRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT id, email, name, created_at FROM users WHERE LOWER(email)=$1`

	var user domain.User
	if err := r.pool.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(email))).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetMembership returns pgx.ErrNoRows when the user is not part of the business.
func (r *memberRepository) GetMembership(ctx context.Context, businessID, userID string) (*domain.Member, error) {
	const query = `
        SELECT m.user_id, m.business_id, u.email, u.name, m.role, m.created_at
        FROM business_members m
        JOIN users u ON u.id = m.user_id
        WHERE m.business_id=$1 AND m.user_id=$2`

	var member domain.Member
	if err := r.pool.QueryRow(ctx, query, businessID, userID).Scan(
		&member.UserID,
		&member.BusinessID,
		&member.Email,
		&member.Name,
		&member.Role,
		&member.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &member, nil
}
