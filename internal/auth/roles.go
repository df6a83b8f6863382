package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/scrubbe-dev/incident-service/internal/domain"
	apperrors "github.com/scrubbe-dev/incident-service/pkg/util/errorutil"
)

// ResponderRoles may change incidents. Viewers are read-only.
var ResponderRoles = []domain.MemberRole{
	domain.MemberRoleOwner,
	domain.MemberRoleAdmin,
	domain.MemberRoleResponder,
}

// RequireRole ensures the principal holds one of the allowed roles.
func RequireRole(allowed ...domain.MemberRole) fiber.Handler {
	allowedSet := make(map[domain.MemberRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}
