// Package toolserver exposes the gateway operations as MCP tools and
// resource templates.
package toolserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"qualermcp/internal/metrics"
	"qualermcp/internal/service"
)

// ServerName is reported to clients during initialization.
const ServerName = "qualer-gateway"

// Server wraps an mcp.Server with the gateway tools registered on it.
type Server struct {
	mcp     *mcp.Server
	svc     service.GatewayService
	metrics *metrics.Metrics
	log     logr.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics records tool invocations on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLogger sets the logger used by the request middleware.
func WithLogger(l logr.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// New registers every tool and resource template against svc.
func New(svc service.GatewayService, version string, opts ...Option) *Server {
	s := &Server{
		svc: svc,
		log: logr.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: version}, nil)
	s.mcp.AddReceivingMiddleware(s.logRequests)
	s.registerTools()
	s.registerResources()
	return s
}

// MCP returns the underlying protocol server.
func (s *Server) MCP() *mcp.Server {
	return s.mcp
}

// RunStdio serves a single session over stdin/stdout until ctx is done or
// the client disconnects.
func (s *Server) RunStdio(ctx context.Context) error {
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// HTTPHandler serves the streamable HTTP transport. Responses are plain JSON
// so the handler can sit behind a buffering adaptor.
func (s *Server) HTTPHandler(stateless bool) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcp
	}, &mcp.StreamableHTTPOptions{
		Stateless:    stateless,
		JSONResponse: true,
	})
}

// logRequests tags every incoming request with an id and logs its outcome.
func (s *Server) logRequests(next mcp.MethodHandler) mcp.MethodHandler {
	return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
		start := time.Now()
		log := s.log.WithValues("request_id", uuid.NewString(), "method", method)
		switch p := req.GetParams().(type) {
		case *mcp.CallToolParamsRaw:
			log = log.WithValues("tool", p.Name)
		case *mcp.ReadResourceParams:
			log = log.WithValues("uri", p.URI)
		}

		res, err := next(logr.NewContext(ctx, log), method, req)

		latency := time.Since(start)
		if err != nil {
			log.Error(err, "mcp request failed", "latency_ms", latency.Milliseconds())
			return res, err
		}
		if tr, ok := res.(*mcp.CallToolResult); ok && tr.IsError {
			log.Info("tool returned error", "latency_ms", latency.Milliseconds())
			return res, err
		}
		log.V(1).Info("mcp request", "latency_ms", latency.Milliseconds())
		return res, err
	}
}
