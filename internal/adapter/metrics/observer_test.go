package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/admin-notify-service/internal/domain/event"
	"github.com/webitel/admin-notify-service/internal/domain/model"
	"github.com/webitel/admin-notify-service/internal/domain/registry"
)

func TestObserver_TracksHubLifecycle(t *testing.T) {
	obs := NewObserver()
	hub := registry.NewHub(registry.WithObserver(obs), registry.WithBufferSize(1))

	userID := uuid.New()
	conn := registry.NewConnector(context.Background(), userID, model.ConnectMetadata{Transport: "sse"}, hub.ConnectorConfig())
	require.NoError(t, hub.Register(conn))
	assert.InDelta(t, 1, testutil.ToFloat64(obs.channelsOpen), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(obs.channelsOpened.WithLabelValues("sse")), 0)

	hub.Broadcast(event.NewNotification(event.ReservationCreated, nil))
	assert.InDelta(t, 1, testutil.ToFloat64(obs.delivered.WithLabelValues("RESERVATION_CREATED")), 0)

	// second event overflows the single-slot buffer
	hub.Broadcast(event.NewNotification(event.ReservationCreated, nil))
	assert.InDelta(t, 1, testutil.ToFloat64(obs.evicted), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(obs.channelsClosed.WithLabelValues(model.CodeEvicted)), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(obs.channelsOpen), 0)
}

func TestObserver_Handler(t *testing.T) {
	obs := NewObserver()
	obs.Evicted()

	rec := httptest.NewRecorder()
	obs.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "admin_notify_slow_consumer_evictions_total 1")
}
