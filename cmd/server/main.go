package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"

	"qualermcp/internal/config"
	handlers "qualermcp/internal/http/handler"
	"qualermcp/internal/http/middleware"
	"qualermcp/internal/logging"
	"qualermcp/internal/metrics"
	"qualermcp/internal/otel"
	"qualermcp/internal/service"
	"qualermcp/internal/toolserver"
	"qualermcp/internal/upstream"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	logger, syncLog, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error(err, "qualer gateway stopped")
		syncLog()
		os.Exit(1)
	}
	syncLog()
}

// run owns every resource so deferred cleanup happens on all exit paths.
func run(cfg *config.AppConfig, logger logr.Logger) error {
	switch cfg.Server.Transport {
	case "stdio", "http":
	default:
		return fmt.Errorf("unknown MCP_TRANSPORT %q, expected stdio or http", cfg.Server.Transport)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := otel.Init(ctx, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		shutCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = shutdownTracing(shutCtx)
	}()

	m, err := metrics.New(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	// One upstream client shared by every tool call; missing credentials abort startup.
	client, err := upstream.New(cfg.Upstream, upstream.WithLogger(logger), upstream.WithMetrics(m))
	if err != nil {
		return fmt.Errorf("failed to initialize Qualer client: %w", err)
	}
	defer client.Close()

	svc := service.NewGatewayService(client)
	tools := toolserver.New(svc, version,
		toolserver.WithLogger(logger.WithName("mcp")),
		toolserver.WithMetrics(m),
	)

	logger.Info("qualer gateway starting",
		"version", version,
		"transport", cfg.Server.Transport,
		"base_url", cfg.Upstream.BaseURL,
	)

	if cfg.Server.Transport == "http" {
		err = serveHTTP(ctx, logger, cfg.Server, tools, client)
	} else {
		err = tools.RunStdio(ctx)
	}
	if err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info("shutting down")
	return nil
}

func serveHTTP(ctx context.Context, logger logr.Logger, cfg config.ServerConfig, tools *toolserver.Server, client *upstream.Client) error {
	app := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(),
		DisableStartupMessage: true,
	})

	promMiddleware, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	app.Use(otelfiber.Middleware())
	app.Use(promMiddleware.Handler())
	app.Use(middleware.Logger(logger.WithName("http")))

	handlers.RegisterRoutes(app, handlers.Deps{
		BreakerState: client.BreakerState,
		Gatherer:     prometheus.DefaultGatherer,
		MCP:          tools.HTTPHandler(cfg.Stateless),
	})

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info("listening", "addr", addr)
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		return app.ShutdownWithContext(shutCtx)
	}
}
