package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/webitel/admin-notify-service/internal/domain/event"
)

// EmitterMiddleware implements [DECORATOR_PATTERN] to add observability
// to the fan-out path without touching business logic.
type EmitterMiddleware struct {
	Next   Emitter
	Logger *slog.Logger
}

func NewEmitterMiddleware(next Emitter, logger *slog.Logger) Emitter {
	return &EmitterMiddleware{
		Next:   next,
		Logger: logger,
	}
}

func (m *EmitterMiddleware) Emit(ctx context.Context, n *event.Notification) (int, error) {
	start := time.Now()

	delivered, err := m.Next.Emit(ctx, n)

	if err != nil {
		m.Logger.Error("NOTIFICATION_EMIT_REJECTED",
			"err", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return delivered, err
	}

	m.Logger.Debug("NOTIFICATION_EMITTED",
		"id", n.ID,
		"kind", n.Kind.String(),
		"delivered", delivered,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return delivered, nil
}
