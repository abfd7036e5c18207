// Command server runs the Tech Atlas Uganda API.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"techatlas/internal/bootstrap"
	"techatlas/internal/config"
	"techatlas/internal/middleware"
	"techatlas/internal/observability"
	"techatlas/internal/server"

	"go.uber.org/zap"
)

// @title Tech Atlas Uganda API
// @version 1.0
// @description Directory of Uganda's tech ecosystem: hubs, startups, jobs, gigs, events, resources and the community around them.
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@techatlas.ug

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := middleware.NewLogger(middleware.LogOptions{
		Level:       cfg.LogLevel,
		Development: !cfg.IsProduction(),
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	middleware.SetLogger(logger)
	defer func() { _ = logger.Sync() }()

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:  "techatlas-api",
		Environment:  cfg.Env,
		Exporter:     cfg.TracingExporter,
		OTLPEndpoint: cfg.OTLPEndpoint,
	})
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
		shutdownTracing = func(context.Context) error { return nil }
	}

	rt, err := bootstrap.InitRuntime(cfg, logger, bootstrap.Options{AllowDegraded: true})
	if err != nil {
		logger.Fatal("failed to initialize runtime", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rt.Start(ctx); err != nil {
		logger.Fatal("failed to start background workers", zap.Error(err))
	}

	srv := server.NewServer(rt)

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown error", zap.Error(err))
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown error", zap.Error(err))
		}
	}()

	if err := srv.Start(); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
	<-done
	logger.Info("server stopped")
}
