package dto

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/webitel/admin-notify-service/internal/domain/event"
)

// [BROKER_TOPICS] published by the reservation write path
const (
	TopicReservationCreated = "rental.reservation.created"
	TopicReservationUpdated = "rental.reservation.updated"
	TopicSystemNotice       = "rental.system.notice"
)

var topicKinds = map[string]event.Kind{
	TopicReservationCreated: event.ReservationCreated,
	TopicReservationUpdated: event.ReservationUpdated,
	TopicSystemNotice:       event.System,
}

// TopicFor returns the broker topic carrying events of the given kind.
func TopicFor(kind event.Kind) (string, error) {
	for topic, k := range topicKinds {
		if k == kind {
			return topic, nil
		}
	}
	return "", fmt.Errorf("no topic for kind %s", kind)
}

// KindFor is the inverse of TopicFor.
func KindFor(topic string) (event.Kind, bool) {
	k, ok := topicKinds[topic]
	return k, ok
}

// [RABBIT_V1] THE PAYLOAD STRUCTURE ON THE RESERVATION TOPICS
type NotificationV1 struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// ToDomain builds the event; kind from the body wins over the topic's default.
func (m *NotificationV1) ToDomain(topicKind event.Kind) (*event.Notification, error) {
	if m.ID == "" {
		return nil, errors.New("notification id is required")
	}

	kind := topicKind
	if m.Kind != "" {
		parsed, err := event.ParseKind(m.Kind)
		if err != nil {
			return nil, err
		}
		kind = parsed
	}

	occurredAt := m.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	n := &event.Notification{
		ID:         m.ID,
		Kind:       kind,
		Payload:    m.Payload,
		OccurredAt: occurredAt,
	}
	return n, n.Validate()
}

func FromDomain(n *event.Notification) NotificationV1 {
	return NotificationV1{
		ID:         n.ID,
		Kind:       n.Kind.String(),
		Payload:    n.Payload,
		OccurredAt: n.OccurredAt,
	}
}
