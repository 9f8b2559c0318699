package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rightsplace/rightsplace/internal/domain"
	apperrors "github.com/rightsplace/rightsplace/pkg/util/errorutil"
)

// RequireAdmin ensures the caller holds the administrator capability.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !principal.Actor().IsAdmin() {
			return apperrors.NewForbidden()
		}
		return c.Next()
	}
}

// RequireProfileRole ensures the caller has a profile with one of the allowed roles.
func RequireProfileRole(allowed ...domain.ProfileRole) fiber.Handler {
	allowedSet := make(map[domain.ProfileRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if principal.Profile == nil {
			return apperrors.NewForbidden()
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Profile.Role]; !exists {
			return apperrors.NewForbidden()
		}
		return c.Next()
	}
}

// RequireAuthenticated ensures a principal was loaded.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}
