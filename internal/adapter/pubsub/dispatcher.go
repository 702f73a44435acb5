package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/webitel/admin-notify-service/internal/domain/event"
	"github.com/webitel/admin-notify-service/internal/service/dto"
)

// EventDispatcher defines the high-level contract for outgoing events.
// This allows callers to stay agnostic of the transport implementation.
type EventDispatcher interface {
	Publish(ctx context.Context, n *event.Notification) error
	Publisher() message.Publisher
}

type eventDispatcher struct {
	publisher message.Publisher
	logger    *slog.Logger
}

func NewEventDispatcher(pub message.Publisher, logger *slog.Logger) EventDispatcher {
	return &eventDispatcher{
		publisher: pub,
		logger:    logger,
	}
}

// Publish routes n to the topic of its kind. The broker message id is the notification id.
func (d *eventDispatcher) Publish(ctx context.Context, n *event.Notification) error {
	if err := n.Validate(); err != nil {
		return fmt.Errorf("event dispatcher: %w", err)
	}

	topic, err := dto.TopicFor(n.Kind)
	if err != nil {
		return fmt.Errorf("event dispatcher: %w", err)
	}

	payload, err := json.Marshal(dto.FromDomain(n))
	if err != nil {
		return fmt.Errorf("event dispatcher: marshal failure: %w", err)
	}

	msg := message.NewMessage(n.ID, payload)
	msg.SetContext(ctx)

	if err := d.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("event dispatcher: failed to publish to topic %s: %w", topic, err)
	}

	d.logger.Debug("EVENT_PUBLISHED", "topic", topic, "id", n.ID)
	return nil
}

func (d *eventDispatcher) Publisher() message.Publisher {
	return d.publisher
}
