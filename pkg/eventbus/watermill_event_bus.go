package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// WatermillEventBus adapts any watermill publisher/subscriber pair to the
// EventBus interface. Handlers must be registered before Subscribe is called.
type WatermillEventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber

	mu            sync.RWMutex
	subscriptions map[EventType]EventHandler
}

func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber) *WatermillEventBus {
	return &WatermillEventBus{
		publisher:     pub,
		subscriber:    sub,
		subscriptions: make(map[EventType]EventHandler),
	}
}

func (eb *WatermillEventBus) GenerateID() string {
	return watermill.NewULID()
}

func (eb *WatermillEventBus) Publish(_ context.Context, key string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage("msg-"+eb.GenerateID(), payload)
	msg.Metadata.Set(EventMetadataKey, key)
	msg.Metadata.Set(EventTypeMetadataKey, string(event.GetType()))

	return eb.publisher.Publish(Topic, msg)
}

func (eb *WatermillEventBus) Handle(eventType EventType, handler EventHandler) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if _, exists := eb.subscriptions[eventType]; exists {
		return fmt.Errorf("handler already registered for event type %s", eventType)
	}

	eb.subscriptions[eventType] = handler

	return nil
}

func (eb *WatermillEventBus) Subscribe(ctx context.Context) error {
	messages, err := eb.subscriber.Subscribe(ctx, Topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			eventType := EventType(msg.Metadata.Get(EventTypeMetadataKey))

			eb.mu.RLock()
			handler, exists := eb.subscriptions[eventType]
			eb.mu.RUnlock()

			if !exists {
				msg.Ack()

				continue
			}

			event := newEvent(eventType)
			if event == nil {
				msg.Ack()

				continue
			}

			if err := json.Unmarshal(msg.Payload, event); err != nil {
				msg.Nack()

				continue
			}

			if err := handler(ctx, event); err != nil {
				msg.Nack()

				continue
			}

			msg.Ack()
		}
	}()

	return nil
}

func (eb *WatermillEventBus) Close() error {
	if err := eb.publisher.Close(); err != nil {
		return err
	}

	return eb.subscriber.Close()
}

// newEvent returns a zero value of the concrete event struct for a type,
// or nil for unknown types.
func newEvent(eventType EventType) any {
	switch eventType {
	case RunStartedEvent:
		return &RunStarted{}
	case RunNodeFinishedEvent:
		return &RunNodeFinished{}
	case RunNodeFailedEvent:
		return &RunNodeFailed{}
	case RunCompletedEvent:
		return &RunCompleted{}
	case RunFailedEvent:
		return &RunFailed{}
	case TokensCreditedEvent:
		return &TokensCredited{}
	case TokensDeductedEvent:
		return &TokensDeducted{}
	case WorkflowUpdatedEvent:
		return &WorkflowUpdated{}
	default:
		return nil
	}
}
