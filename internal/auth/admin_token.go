package auth

import (
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/spec-kit/sla-engine/pkg/util/errorutil"
)

// HashAdminToken hashes a plaintext admin token for storage in config.
func HashAdminToken(token string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(token), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CompareAdminToken verifies a presented token against its stored hash.
func CompareAdminToken(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// RequireAdminToken gates operational trigger endpoints behind the
// X-Admin-Token header. An empty configured hash disables the routes.
func RequireAdminToken(tokenHash string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if tokenHash == "" {
			return apperrors.NewForbidden("admin endpoints disabled")
		}
		presented := c.Get("X-Admin-Token")
		if presented == "" {
			return apperrors.NewUnauthorized("missing admin token")
		}
		if err := CompareAdminToken(tokenHash, presented); err != nil {
			return apperrors.NewUnauthorized("invalid admin token")
		}
		return c.Next()
	}
}
