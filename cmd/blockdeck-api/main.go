package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/blockdeck/blockdeck/pkg/billing"
	"github.com/blockdeck/blockdeck/pkg/blocks"
	"github.com/blockdeck/blockdeck/pkg/cmd"
	"github.com/blockdeck/blockdeck/pkg/log"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "blockdeck-api",
		Usage:                 "Run the block marketplace API",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Persistence URL (file://path or redis://host)",
				Value:   "file://./data",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "billing-api-url",
				Usage:   "Billing provider API base URL",
				Sources: cli.EnvVars("BILLING_API_URL"),
			},
			&cli.StringFlag{
				Name:    "billing-api-key",
				Usage:   "Billing provider API key",
				Sources: cli.EnvVars("BILLING_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "webhook-secret",
				Usage:   "Billing webhook signing secret (whsec_...)",
				Sources: cli.EnvVars("WEBHOOK_SECRET"),
			},
			&cli.BoolFlag{
				Name:    "demo-mode",
				Usage:   "Run without a billing provider: all features granted, purchases credit directly",
				Sources: cli.EnvVars("DEMO_MODE"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Export run spans over OTLP",
				Sources: cli.EnvVars("OTEL_TRACING"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing BlockDeck API")

			registry, err := cmd.NewRegistry(logger, blocks.NewDemoModel())
			if err != nil {
				return err
			}

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			demoMode := command.Bool("demo-mode")

			var billingClient billing.Client
			if demoMode || command.String("billing-api-url") == "" {
				demoMode = true
				billingClient = billing.NewDemoClient(true)

				logger.InfoContext(ctx, "Running in demo mode: billing provider disabled")
			} else {
				billingClient = billing.NewHTTPClient(
					command.String("billing-api-url"),
					command.String("billing-api-key"),
				)
			}

			api := NewAPI(logger, persistence, registry, eventBus, billingClient).
				WithWebhookSecret(command.String("webhook-secret")).
				WithDemoMode(demoMode).
				WithTracing(command.Bool("tracing"))

			if err := api.Start(ctx, command.Int("port")); err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)

				return err
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
