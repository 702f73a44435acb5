// Package session wires one administrator's stream client to the inbox and
// the audio alert.
package session

import (
	"context"
	"log/slog"

	"github.com/webitel/admin-notify-service/internal/client/inbox"
	"github.com/webitel/admin-notify-service/internal/client/stream"
	"github.com/webitel/admin-notify-service/internal/domain/event"
	"github.com/webitel/admin-notify-service/internal/domain/model"
)

// Alerter is invoked once per new notification, never for duplicates.
type Alerter interface {
	OnNewNotification(rec model.ClientNotificationRecord)
}

type Session struct {
	client *stream.Client
	inbox  *inbox.Inbox
	alert  Alerter
	logger *slog.Logger
}

func New(dialer stream.Dialer, box *inbox.Inbox, alert Alerter, cfg stream.Config, logger *slog.Logger, opts ...stream.Option) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{inbox: box, alert: alert, logger: logger}
	opts = append([]stream.Option{stream.WithLogger(logger)}, opts...)
	s.client = stream.New(dialer, s.handle, cfg, opts...)
	return s
}

func (s *Session) handle(n *event.Notification) {
	res := s.inbox.Ingest(n)
	if !res.IsNew {
		return
	}
	s.logger.Info("NOTIFICATION_RECEIVED",
		slog.String("id", n.ID),
		slog.String("kind", n.Kind.String()),
	)
	if s.alert != nil {
		s.alert.OnNewNotification(res.Record)
	}
	s.inbox.Acknowledge(n.ID)
}

// Run blocks until ctx ends or the session is rejected.
func (s *Session) Run(ctx context.Context) error { return s.client.Run(ctx) }

func (s *Session) State() stream.State { return s.client.State() }

func (s *Session) Inbox() *inbox.Inbox { return s.inbox }
