package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/scrubbe-dev/incident-service/internal/api/http"
	"github.com/scrubbe-dev/incident-service/internal/api/http/handlers"
	"github.com/scrubbe-dev/incident-service/internal/app"
	"github.com/scrubbe-dev/incident-service/internal/auth"
	"github.com/scrubbe-dev/incident-service/internal/config"
	"github.com/scrubbe-dev/incident-service/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	baseLogger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer baseLogger.Sync() //nolint:errcheck
	logger := observability.ForApp(baseLogger, cfg.App)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to build service", zap.Error(err))
	}
	defer c.Close()

	server := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(server, logger, c.Metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(server, httptransport.RouteConfig{
		Health:            handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": c.Postgres,
			"redis":    c.Redis,
		}),
		Incidents:         handlers.NewIncidentsHandler(c.Incidents, c.Escalations),
		AuthMiddleware:    auth.NewAuthMiddleware(c.Tokens, c.Members).Handle,
		IntegrationSecret: cfg.Integration.SharedSecret,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Listen(cfg.App.Addr())
	})
	if cfg.Sweep.Enabled {
		sweeper := c.Sweeper()
		g.Go(func() error {
			sweeper.Run(gctx)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return server.ShutdownWithTimeout(10 * time.Second)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}
}
