package webhooks

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Handler reacts to one billing event type.
type Handler func(ctx context.Context, event *Event) error

// Result reports how a delivery was handled.
type Result struct {
	EventID   string
	EventType string
	Duplicate bool
}

// Processor verifies, deduplicates, and dispatches webhook deliveries.
// Handler failures are logged but still acknowledged: the provider retries
// on non-2xx responses and these events are not safe to replay blindly.
type Processor struct {
	verifier *Verifier
	store    IdempotencyStore
	handlers map[string]Handler
	logger   *slog.Logger
}

// NewProcessor creates a processor with no registered handlers.
func NewProcessor(verifier *Verifier, store IdempotencyStore, logger *slog.Logger) *Processor {
	return &Processor{
		verifier: verifier,
		store:    store,
		handlers: make(map[string]Handler),
		logger:   logger.With("module", "webhooks"),
	}
}

// On registers the handler for an event type, replacing any previous one.
func (p *Processor) On(eventType string, handler Handler) *Processor {
	p.handlers[eventType] = handler

	return p
}

// Process handles one raw delivery. A VerificationError means the caller
// should respond 400; any other error is an internal failure. A nil error
// means the delivery is acknowledged, duplicates included.
func (p *Processor) Process(ctx context.Context, body []byte, id, timestamp, signature string) (*Result, error) {
	if err := p.verifier.Verify(body, id, timestamp, signature, time.Now()); err != nil {
		p.logger.WarnContext(ctx, "Rejected webhook delivery", "delivery_id", id, "error", err)

		return nil, err
	}

	event, err := ParseEvent(body)
	if err != nil {
		return nil, &VerificationError{Reason: "malformed event payload"}
	}

	seen, err := p.store.Seen(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to check delivery id: %w", err)
	}

	result := &Result{EventID: event.ID, EventType: event.Type}

	if seen {
		p.logger.InfoContext(ctx, "Skipping duplicate webhook delivery", "delivery_id", id, "event_type", event.Type)
		result.Duplicate = true

		return result, nil
	}

	if err := p.store.Record(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to record delivery id: %w", err)
	}

	handler, ok := p.handlers[event.Type]
	if !ok {
		p.logger.InfoContext(ctx, "Ignoring unhandled webhook event type", "event_type", event.Type)

		return result, nil
	}

	if err := handler(ctx, event); err != nil {
		p.logger.ErrorContext(ctx, "Webhook handler failed",
			"event_type", event.Type, "event_id", event.ID, "error", err)
	}

	return result, nil
}
