package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/blockdeck/blockdeck/pkg/eventbus"
)

// NewEventBus creates the bus named by provider: "kafka" for multi-instance
// deployments, anything else gets the in-process gochannel bus.
func NewEventBus(provider string, logger *slog.Logger) (eventbus.EventBus, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	switch provider {
	case "kafka":
		bus, err := eventbus.NewKafkaBus(wmLogger, "blockdeck")
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka event bus: %w", err)
		}

		return bus, nil
	default:
		return eventbus.NewGoChannelBus(wmLogger), nil
	}
}
