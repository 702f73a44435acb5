package sse

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/webitel/admin-notify-service/config"
	"github.com/webitel/admin-notify-service/internal/adapter/auth"
	"github.com/webitel/admin-notify-service/internal/domain/event"
	"github.com/webitel/admin-notify-service/internal/domain/model"
	"github.com/webitel/admin-notify-service/internal/domain/registry"
	"github.com/webitel/admin-notify-service/internal/handler/authn"
	"github.com/webitel/admin-notify-service/internal/handler/marshaller"
	ssemarshaller "github.com/webitel/admin-notify-service/internal/handler/marshaller/sse"
	"github.com/webitel/admin-notify-service/internal/service"
)

type fixture struct {
	hub    *registry.Hub
	server *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	auther, err := auth.NewStaticAuther([]config.StaticIdentity{
		{Token: "admin-token", UserID: uuid.NewString(), Roles: []string{model.RoleAdmin}},
		{Token: "staff-token", UserID: uuid.NewString(), Roles: []string{"staff"}},
	})
	require.NoError(t, err)

	hub := registry.NewHub()
	cfg := &config.Config{
		Service: config.ServiceConfig{Version: "test"},
		Notify:  config.NotifyConfig{KeepaliveInterval: 30 * time.Second},
	}
	h := NewSSEHandler(slog.Default(), service.NewDeliveryService(hub), cfg)

	r := chi.NewRouter()
	r.With(authn.RequireAdmin(auther, slog.Default())).Method(http.MethodGet, StreamPath, h)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &fixture{hub: hub, server: srv}
}

func (f *fixture) open(t *testing.T, token string) (*http.Response, *ssemarshaller.Reader) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, f.server.URL+StreamPath, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp, ssemarshaller.NewReader(resp.Body)
}

func next(t *testing.T, r *ssemarshaller.Reader) *marshaller.Frame {
	t.Helper()
	msg, err := r.Next()
	require.NoError(t, err)
	frame, err := marshaller.Decode(msg.Data)
	require.NoError(t, err)
	assert.Equal(t, string(frame.Type), msg.Event)
	return frame
}

func TestSSE_RejectsNonAdmins(t *testing.T) {
	f := newFixture(t)

	for _, token := range []string{"", "staff-token", "forged"} {
		resp, _ := f.open(t, token)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "token %q", token)
	}
	assert.Zero(t, f.hub.Stats().TotalConnections)
}

func TestSSE_HandshakeNotificationsAndKeepalive(t *testing.T) {
	f := newFixture(t)
	resp, r := f.open(t, "admin-token")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, ssemarshaller.ContentType, resp.Header.Get("Content-Type"))

	hello := next(t, r)
	require.Equal(t, marshaller.FrameConnected, hello.Type)
	p, err := hello.Connected()
	require.NoError(t, err)
	assert.True(t, p.Ok)
	assert.EqualValues(t, 30000, p.KeepaliveMs)

	n := event.NewNotification(event.ReservationCreated, json.RawMessage(`{"reservation_id":"r-7"}`))
	assert.Equal(t, 1, f.hub.Broadcast(n))
	f.hub.SendKeepalive()

	frame := next(t, r)
	require.Equal(t, marshaller.FrameNotification, frame.Type)
	got, err := frame.Notification()
	require.NoError(t, err)
	assert.Equal(t, n.ID, got.ID)
	assert.JSONEq(t, `{"reservation_id":"r-7"}`, string(got.Payload))

	assert.Equal(t, marshaller.FrameKeepalive, next(t, r).Type)
}

func TestSSE_ShutdownSendsGoodbye(t *testing.T) {
	f := newFixture(t)
	_, r := f.open(t, "admin-token")
	next(t, r) // connected

	f.hub.Shutdown()

	bye := next(t, r)
	require.Equal(t, marshaller.FrameDisconnected, bye.Type)
	d, err := bye.Disconnected()
	require.NoError(t, err)
	assert.Equal(t, model.CodeShutdown, d.Code)

	_, err = r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSSE_ClientDisconnectReleasesChannel(t *testing.T) {
	f := newFixture(t)
	resp, r := f.open(t, "admin-token")
	next(t, r)
	require.Equal(t, 1, f.hub.Stats().TotalConnections)

	_ = resp.Body.Close()

	assert.Eventually(t, func() bool {
		// a broadcast finds the dead channel if the handler has not cleaned up yet
		f.hub.SendKeepalive()
		return f.hub.Stats().TotalConnections == 0
	}, 2*time.Second, 20*time.Millisecond)
}
