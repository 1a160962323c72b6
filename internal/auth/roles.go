package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// RequireRoles ensures the caller holds one of the allowed roles.
func RequireRoles(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		actor, ok := ActorFromContext(c)
		if !ok {
			return fiber.NewError(http.StatusUnauthorized, unauthorizedMessage)
		}
		if _, exists := allowedSet[actor.Role]; !exists {
			return fiber.NewError(http.StatusForbidden, "Forbidden: Insufficient permissions")
		}
		return c.Next()
	}
}

// RequireStaff allows team members and admins.
func RequireStaff() fiber.Handler {
	return RequireRoles(domain.RoleTeam, domain.RoleAdmin)
}

// RequireAdmin allows admins only.
func RequireAdmin() fiber.Handler {
	return RequireRoles(domain.RoleAdmin)
}
