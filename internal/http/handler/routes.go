package handler

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the collaborators behind the HTTP surface.
type Deps struct {
	// BreakerState reports the upstream circuit breaker state.
	BreakerState func() string
	// Gatherer is scraped by /metrics.
	Gatherer prometheus.Gatherer
	// MCP serves the streamable HTTP transport.
	MCP http.Handler
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, deps Deps) {
	app.Get("/health", HealthCheck(deps.BreakerState))
	app.Get("/healthz", LivenessProbe())

	if deps.Gatherer != nil {
		app.Get("/metrics", Metrics(deps.Gatherer))
	}

	if deps.MCP != nil {
		mcp := adaptor.HTTPHandler(deps.MCP)
		app.Post("/mcp", mcp)
		app.Delete("/mcp", mcp)
		app.Get("/mcp", MCPStreamUnsupported())
	}
}

// MCPStreamUnsupported rejects the standalone server-to-client stream. The
// adaptor buffers whole responses, so an open-ended event stream would never
// reach the client. Server messages still arrive on POST responses.
func MCPStreamUnsupported() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderAllow, "POST, DELETE")
		return writeError(c, fiber.StatusMethodNotAllowed, "STREAM_UNSUPPORTED", "server-sent event stream is not offered; use POST")
	}
}

// HealthCheck reports readiness. The gateway is unavailable while the
// upstream circuit breaker is open.
func HealthCheck(breakerState func() string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		state := "disabled"
		if breakerState != nil {
			state = breakerState()
		}
		if state == "open" {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Qualer API circuit breaker open")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":           "healthy",
			"upstream_breaker": state,
		})
	}
}

// LivenessProbe always answers 200 while the process is serving.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// Metrics exposes g in the Prometheus text format.
func Metrics(g prometheus.Gatherer) fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}
