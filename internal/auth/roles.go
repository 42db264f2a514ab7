package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/platform-desk/internal/domain"
	apperrors "github.com/spec-kit/platform-desk/pkg/util"
)

// RequireRole ensures the principal holds one of the allowed roles. With no
// arguments it only requires authentication.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
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
		if _, exists := allowedSet[principal.Role()]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireStaff ensures the principal is an operator or administrator.
func RequireStaff() fiber.Handler {
	return RequireRole(domain.RoleOperator, domain.RoleAdmin)
}
