package middleware

import (
	"time"

	"pulse/internal/observability"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// RequestIDHeader carries the correlation id in and out of a request.
const RequestIDHeader = "X-Request-ID"

// ContextMiddleware puts a correlation id on the request context so that every log line
// written while serving the request can be tied back to it.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(RequestIDHeader)
		if id == "" {
			if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
				id = rid
			} else {
				id = observability.GenerateCorrelationID()
			}
		}
		c.Set(RequestIDHeader, id)
		c.SetUserContext(observability.WithCorrelationID(c.UserContext(), id))
		return c.Next()
	}
}

// StructuredLogger returns a Fiber middleware for logging requests using logrus.
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		entry := observability.Log(c.UserContext()).WithFields(log.Fields{
			"status":     c.Response().StatusCode(),
			"method":     c.Method(),
			"path":       c.Path(),
			"ip":         c.IP(),
			"latency":    time.Since(start).String(),
			"user_agent": c.Get("User-Agent"),
		})
		if uid := UserID(c); uid != "" {
			entry = entry.WithField("user_id", uid)
		}

		if err != nil {
			entry.WithError(err).Error("request failed")
		} else {
			entry.Info("request processed")
		}
		return err
	}
}
