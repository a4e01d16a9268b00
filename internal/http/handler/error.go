package handler

import (
	"github.com/gofiber/fiber/v2"

	"qualermcp/internal/http/middleware"
)

// errorPayload is the JSON body of every non-MCP error response.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusErrors maps the statuses the gateway surface produces to their
// code and safe message. Anything else is reported as INTERNAL_ERROR.
var statusErrors = map[int]errorEnvelope{
	fiber.StatusBadRequest:         {Code: "BAD_REQUEST", Message: "bad request"},
	fiber.StatusNotFound:           {Code: "NOT_FOUND", Message: "route not found"},
	fiber.StatusMethodNotAllowed:   {Code: "METHOD_NOT_ALLOWED", Message: "method not allowed"},
	fiber.StatusRequestTimeout:     {Code: "REQUEST_TIMEOUT", Message: "request timed out"},
	fiber.StatusServiceUnavailable: {Code: "SERVICE_UNAVAILABLE", Message: "Qualer API unavailable"},
}

func requestID(c *fiber.Ctx) string {
	rid, _ := c.Locals(middleware.RequestIDLocalKey).(string)
	return rid
}

// writeError sends code and message with the request id attached. message
// is shown to clients and must not carry upstream bodies or tokens.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(errorPayload{
		RequestID: requestID(c),
		Error:     errorEnvelope{Code: code, Message: message},
	})
}

// ErrorHandler renders errors escaping the routes, including fiber's own
// 404 and 405, in the gateway's error body.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}

		env, ok := statusErrors[status]
		if !ok {
			env = errorEnvelope{Code: "INTERNAL_ERROR", Message: "internal server error"}
		}
		return writeError(c, status, env.Code, env.Message)
	}
}
