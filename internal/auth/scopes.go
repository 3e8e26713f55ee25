package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/sla-engine/pkg/util/errorutil"
)

// Scopes granted to calling services.
const (
	ScopeSLARead   = "sla:read"
	ScopeSLAWrite  = "sla:write"
	ScopePoolWrite = "pool:write"
)

// RequireScope ensures the caller holds the named scope.
func RequireScope(scope string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !principal.HasScope(scope) {
			return apperrors.NewForbidden("insufficient scope")
		}
		return c.Next()
	}
}
