package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	traceIDHeader = "X-Trace-Id"
	traceIDLocal  = "trace_id"
)

// Tracing tags every request with a trace id so a single check-in can be
// followed across the request log. An id supplied by an upstream proxy is
// reused; otherwise a fresh one is generated. The id is echoed back in the
// response header either way.
func Tracing() fiber.Handler {
	return func(c *fiber.Ctx) error {
		traceID := c.Get(traceIDHeader)
		if traceID == "" || len(traceID) > 64 {
			traceID = uuid.New().String()
		}
		c.Locals(traceIDLocal, traceID)
		c.Set(traceIDHeader, traceID)
		return c.Next()
	}
}

// GetTraceID returns the request's trace id, or "" outside the middleware.
func GetTraceID(c *fiber.Ctx) string {
	id, _ := c.Locals(traceIDLocal).(string)
	return id
}
