package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/admin-notify-service/internal/domain/event"
	"github.com/webitel/admin-notify-service/internal/domain/model"
	"github.com/webitel/admin-notify-service/internal/domain/registry"
)

type fakeAuther map[string]*model.Identity

func (f fakeAuther) Inspect(_ context.Context, token string) (*model.Identity, error) {
	if id, ok := f[token]; ok {
		return id, nil
	}
	return nil, model.ErrUnauthorized
}

func admin() *model.Identity {
	return &model.Identity{UserID: uuid.New(), Name: "Front Desk", Roles: []string{model.RoleAdmin}}
}

func TestDeliveryService_SubscribeRequiresAdmin(t *testing.T) {
	hub := registry.NewHub()
	svc := NewDeliveryService(hub)

	_, err := svc.Subscribe(context.Background(), nil, model.ConnectMetadata{})
	assert.ErrorIs(t, err, model.ErrUnauthorized)

	guest := &model.Identity{UserID: uuid.New(), Roles: []string{"guest"}}
	_, err = svc.Subscribe(context.Background(), guest, model.ConnectMetadata{})
	assert.ErrorIs(t, err, model.ErrUnauthorized)
	assert.Zero(t, hub.Stats().TotalConnections)
}

func TestDeliveryService_SubscribeAndUnsubscribe(t *testing.T) {
	hub := registry.NewHub()
	svc := NewDeliveryService(hub)
	id := admin()

	conn, err := svc.Subscribe(context.Background(), id, model.ConnectMetadata{Transport: "ws"})
	require.NoError(t, err)
	assert.True(t, hub.IsConnected(id.UserID))
	assert.Equal(t, "ws", conn.Metadata().Transport)

	svc.Unsubscribe(id.UserID, conn.GetID())
	svc.Unsubscribe(id.UserID, conn.GetID())
	assert.False(t, hub.IsConnected(id.UserID))
}

func TestDeliveryService_SubscribeAfterShutdown(t *testing.T) {
	hub := registry.NewHub()
	hub.Shutdown()

	_, err := NewDeliveryService(hub).Subscribe(context.Background(), admin(), model.ConnectMetadata{})
	assert.ErrorIs(t, err, model.ErrHubClosed)
}

func TestNotificationEmitter_Emit(t *testing.T) {
	hub := registry.NewHub()
	svc := NewDeliveryService(hub)
	emitter := NewNotificationEmitter(hub)

	// zero channels: accepted, nobody receives it
	delivered, err := emitter.Emit(context.Background(), event.NewNotification(event.System, nil))
	require.NoError(t, err)
	assert.Zero(t, delivered)

	conn, err := svc.Subscribe(context.Background(), admin(), model.ConnectMetadata{})
	require.NoError(t, err)

	n := event.NewNotification(event.ReservationCreated, json.RawMessage(`{"reservation_id":"r-42"}`))
	delivered, err = emitter.Emit(context.Background(), n)
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)

	got := <-conn.Recv()
	assert.Equal(t, n.ID, got.GetID())
}

func TestNotificationEmitter_RejectsInvalid(t *testing.T) {
	emitter := NewNotificationEmitter(registry.NewHub())

	_, err := emitter.Emit(context.Background(), &event.Notification{ID: "x", Kind: event.Keepalive})
	assert.ErrorIs(t, err, model.ErrInvalidEvent)

	_, err = emitter.Emit(context.Background(), &event.Notification{Kind: event.System})
	assert.ErrorIs(t, err, model.ErrInvalidEvent)
}

func TestEmitterMiddleware_LogsOutcome(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	emitter := NewEmitterMiddleware(NewNotificationEmitter(registry.NewHub()), logger)

	_, err := emitter.Emit(context.Background(), event.NewNotification(event.System, nil))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "NOTIFICATION_EMITTED")

	_, err = emitter.Emit(context.Background(), &event.Notification{Kind: event.System})
	require.Error(t, err)
	assert.Contains(t, buf.String(), "NOTIFICATION_EMIT_REJECTED")
}

func TestAuthorizeAdmin(t *testing.T) {
	id := admin()
	auther := fakeAuther{
		"good":  id,
		"guest": {UserID: uuid.New(), Roles: []string{"viewer"}},
	}

	got, err := AuthorizeAdmin(context.Background(), auther, "good")
	require.NoError(t, err)
	assert.Equal(t, id.UserID, got.UserID)

	for _, token := range []string{"", "guest", "unknown"} {
		_, err := AuthorizeAdmin(context.Background(), auther, token)
		assert.True(t, errors.Is(err, model.ErrUnauthorized), "token %q", token)
	}
}
