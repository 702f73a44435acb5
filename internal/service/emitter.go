package service

import (
	"context"
	"fmt"

	"github.com/webitel/admin-notify-service/internal/domain/event"
	"github.com/webitel/admin-notify-service/internal/domain/model"
	"github.com/webitel/admin-notify-service/internal/domain/registry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/webitel/admin-notify-service/internal/service"

// Emitter is the entry point of the reservation write path into live delivery.
type Emitter interface {
	// Emit fans n out to every open channel and returns how many accepted it.
	// It never blocks on a slow channel.
	Emit(ctx context.Context, n *event.Notification) (int, error)
}

var _ Emitter = (*NotificationEmitter)(nil)

type NotificationEmitter struct {
	hub    registry.Hubber
	tracer trace.Tracer
}

func NewNotificationEmitter(hub registry.Hubber) *NotificationEmitter {
	return &NotificationEmitter{
		hub:    hub,
		tracer: otel.Tracer(tracerName),
	}
}

func (e *NotificationEmitter) Emit(ctx context.Context, n *event.Notification) (int, error) {
	_, span := e.tracer.Start(ctx, "notification.emit", trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()

	if err := n.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("%w: %w", model.ErrInvalidEvent, err)
	}
	span.SetAttributes(
		attribute.String("notification.id", n.ID),
		attribute.String("notification.kind", n.Kind.String()),
	)

	// [FIRE_AND_FORGET] zero open channels is not an error: there is no replay
	delivered := e.hub.Broadcast(n)
	span.SetAttributes(attribute.Int("notification.delivered", delivered))

	return delivered, nil
}
