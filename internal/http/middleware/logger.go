package middleware

import (
	"time"

	"github.com/go-logr/logr"
	"github.com/gofiber/fiber/v2"
)

// Logger logs one structured line per HTTP request with the request_id set
// by RequestID, method, path, status and latency in milliseconds.
func Logger(log logr.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		rid, _ := c.Locals(RequestIDLocalKey).(string)
		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}

		log.Info("http request",
			"request_id", rid,
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"latency", float64(time.Since(start).Microseconds())/1000,
		)
		return err
	}
}
