// Package main provides the BlockDeck API server implementation.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/blockdeck/blockdeck/pkg/billing"
	"github.com/blockdeck/blockdeck/pkg/blocks"
	"github.com/blockdeck/blockdeck/pkg/eventbus"
	"github.com/blockdeck/blockdeck/pkg/otelhelper"
	"github.com/blockdeck/blockdeck/pkg/persistence"
	"github.com/blockdeck/blockdeck/pkg/registry"
	"github.com/blockdeck/blockdeck/pkg/run"
	"github.com/blockdeck/blockdeck/pkg/services"
	"github.com/blockdeck/blockdeck/pkg/web"
	"github.com/blockdeck/blockdeck/pkg/webhooks"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	billing     billing.Client

	webhookSecret string
	demoMode      bool
	tracing       bool
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	eventBus eventbus.EventBus,
	billingClient billing.Client,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		eventBus:    eventBus,
		billing:     billingClient,
	}
}

// WithWebhookSecret enables the billing webhook endpoint.
func (a *API) WithWebhookSecret(secret string) *API {
	a.webhookSecret = secret

	return a
}

// WithDemoMode makes token purchases credit directly, skipping checkout.
func (a *API) WithDemoMode(enabled bool) *API {
	a.demoMode = enabled

	return a
}

// WithTracing exports run spans over OTLP.
func (a *API) WithTracing(enabled bool) *API {
	a.tracing = enabled

	return a
}

func (a *API) App(ctx context.Context) (*fiber.App, error) {
	workflows := services.NewWorkflows(a.persistence).WithEventBus(a.eventBus)
	tokens := services.NewTokens(a.persistence.TokenRepository()).WithEventBus(a.eventBus)
	entitlements := services.NewEntitlements(a.billing, a.registry)
	runner := blocks.NewRunner(a.registry, a.billing, a.billing, tokens)

	sessions := run.NewSessionStore(runner.ForUser, a.registry.Definition, run.Options{}).
		WithEventBus(a.eventBus)

	if a.tracing {
		tracer, err := otelhelper.NewTracer(ctx, "blockdeck-api")
		if err != nil {
			return nil, err
		}

		sessions = sessions.WithTracer(tracer)
	}

	handlers := web.NewAPIHandlers(
		workflows,
		tokens,
		entitlements,
		a.billing,
		runner,
		sessions,
		a.registry,
		a.logger,
	).WithDemoMode(a.demoMode)

	if a.webhookSecret != "" {
		verifier, err := webhooks.NewVerifier(a.webhookSecret)
		if err != nil {
			return nil, err
		}

		processor := webhooks.NewProcessor(verifier, webhooks.NewMemoryIdempotencyStore(), a.logger)
		webhooks.RegisterBillingHandlers(processor, tokens, a.logger)
		handlers = handlers.WithWebhookProcessor(processor)
	}

	execLog := web.NewExecutionLog()
	if err := execLog.Attach(a.eventBus); err != nil {
		return nil, err
	}

	if err := a.eventBus.Subscribe(ctx); err != nil {
		return nil, err
	}

	handlers = handlers.WithExecutionLog(execLog)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("BlockDeck API")
	})

	web.RegisterRoutes(app, handlers)

	return app, nil
}

func (a *API) Start(ctx context.Context, port int) error {
	app, err := a.App(ctx)
	if err != nil {
		return err
	}

	return app.Listen(":" + strconv.Itoa(port))
}
