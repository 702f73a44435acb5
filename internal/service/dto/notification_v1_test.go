package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/admin-notify-service/internal/domain/event"
)

func TestNotificationV1_ToDomain(t *testing.T) {
	var m NotificationV1
	require.NoError(t, json.Unmarshal([]byte(`{"id":"e1","payload":{"reservation_id":"r-9"},"occurred_at":"2026-10-18T09:00:00Z"}`), &m))

	n, err := m.ToDomain(event.ReservationCreated)
	require.NoError(t, err)
	assert.Equal(t, "e1", n.ID)
	assert.Equal(t, event.ReservationCreated, n.Kind)
	assert.JSONEq(t, `{"reservation_id":"r-9"}`, string(n.Payload))
	assert.Equal(t, 2026, n.OccurredAt.Year())
}

func TestNotificationV1_BodyKindWins(t *testing.T) {
	m := NotificationV1{ID: "e2", Kind: "reservation_updated"}
	n, err := m.ToDomain(event.ReservationCreated)
	require.NoError(t, err)
	assert.Equal(t, event.ReservationUpdated, n.Kind)
	assert.False(t, n.OccurredAt.IsZero())
}

func TestNotificationV1_Rejects(t *testing.T) {
	_, err := (&NotificationV1{}).ToDomain(event.System)
	assert.Error(t, err, "missing id")

	_, err = (&NotificationV1{ID: "x", Kind: "KEEPALIVE"}).ToDomain(event.System)
	assert.Error(t, err, "control kinds are not notifications")

	_, err = (&NotificationV1{ID: "x", Kind: "bogus"}).ToDomain(event.System)
	assert.Error(t, err)
}

func TestTopics(t *testing.T) {
	for _, kind := range []event.Kind{event.ReservationCreated, event.ReservationUpdated, event.System} {
		topic, err := TopicFor(kind)
		require.NoError(t, err)
		back, ok := KindFor(topic)
		require.True(t, ok)
		assert.Equal(t, kind, back)
	}
	_, err := TopicFor(event.Keepalive)
	assert.Error(t, err)
}
