package auth

import (
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/scrubbe-dev/incident-service/internal/domain"
	"github.com/scrubbe-dev/incident-service/internal/repository"
	apperrors "github.com/scrubbe-dev/incident-service/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// IntegrationSecretHeader carries the shared secret of integration callers.
const IntegrationSecretHeader = "X-Integration-Secret"

// Principal represents the authenticated caller inside one business.
type Principal struct {
	UserID     string
	BusinessID string
	Email      string
	Role       domain.MemberRole
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens  *TokenManager
	members repository.MemberRepository
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, members repository.MemberRepository) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, members: members}
}

// Handle enforces authentication for protected routes. The token's user must
// still be a member of the token's business.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	member, err := m.members.GetMembership(c.UserContext(), claims.BusinessID, claims.Subject)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewUnauthorized("user is not a member of the business")
		}
		return apperrors.MapError(err)
	}

	c.Locals(principalKey, &Principal{
		UserID:     member.UserID,
		BusinessID: member.BusinessID,
		Email:      member.Email,
		Role:       member.Role,
	})
	return c.Next()
}

// RequireSharedSecret guards integration intake. An empty secret disables the route.
func RequireSharedSecret(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" {
			return apperrors.NewForbidden("integration intake disabled")
		}
		got := c.Get(IntegrationSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			return apperrors.NewUnauthorized("invalid integration secret")
		}
		return c.Next()
	}
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}

// WithPrincipal stores p on the request. Used by tests and internal callers.
func WithPrincipal(c *fiber.Ctx, p *Principal) {
	c.Locals(principalKey, p)
}
