package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/loyalty/internal/models"
	"github.com/example/loyalty/internal/utils"
)

const (
	memberContextKey = "currentMemberID"
	roleContextKey   = "currentMemberRole"
)

// AuthMiddleware validates JWT tokens and loads the authenticated member into context.
func AuthMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid authorization header")
		}

		subject, err := utils.ParseToken(secret, parts[1])
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals(memberContextKey, subject.MemberID)
		c.Locals(roleContextKey, subject.Role)
		return c.Next()
	}
}

// AdminOnly rejects members whose token does not carry the admin role.
// It must run after AuthMiddleware.
func AdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if role, _ := c.Locals(roleContextKey).(string); role != models.RoleAdmin {
			return fiber.NewError(fiber.StatusForbidden, "admin access required")
		}
		return c.Next()
	}
}

// GetCurrentMemberID extracts the authenticated member ID from context.
func GetCurrentMemberID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, ok := c.Locals(memberContextKey).(uuid.UUID)
	return id, ok
}
