package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/jamditis/class/internal/events"
	"github.com/jamditis/class/internal/utils"
)

// CorrelationHeader carries the request correlation id in and out of the API.
const CorrelationHeader = utils.CorrelationHeader

const correlationLocal = "correlation_id"

// CorrelationID reuses an inbound correlation or request id, or mints a new one, and binds
// it to the request context so published events carry it too.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Get(CorrelationHeader))
		if id == "" {
			id = strings.TrimSpace(c.Get(fiber.HeaderXRequestID))
		}
		if id == "" {
			id = uuid.NewString()
		}

		c.Locals(correlationLocal, id)
		c.Set(CorrelationHeader, id)
		c.SetUserContext(events.WithCorrelationID(c.UserContext(), id))

		return c.Next()
	}
}

// GetCorrelationID returns the correlation id bound to the active request.
func GetCorrelationID(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if id, ok := c.Locals(correlationLocal).(string); ok {
		return id
	}
	return events.CorrelationID(c.UserContext())
}
