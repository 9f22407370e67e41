package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jamditis/class/internal/utils"
)

// RequireRole admits callers holding at least one of the given roles.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		if normalized := strings.ToLower(strings.TrimSpace(role)); normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		for _, role := range callerRoles(c) {
			if _, ok := allowed[role]; ok {
				return c.Next()
			}
		}
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	}
}

func callerRoles(c *fiber.Ctx) []string {
	switch v := c.Locals(LocalUserRoles).(type) {
	case []string:
		return v
	case string:
		return []string{strings.ToLower(strings.TrimSpace(v))}
	default:
		return nil
	}
}
