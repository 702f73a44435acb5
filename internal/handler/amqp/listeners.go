package amqp

import (
	"context"

	"github.com/webitel/admin-notify-service/internal/domain/event"
	"github.com/webitel/admin-notify-service/internal/service/dto"
)

// [ON_RESERVATION_CREATED]
func (h *MessageHandler) OnReservationCreatedV1(ctx context.Context, raw *dto.NotificationV1) (*event.Notification, error) {
	return raw.ToDomain(event.ReservationCreated)
}

// [ON_RESERVATION_UPDATED]
func (h *MessageHandler) OnReservationUpdatedV1(ctx context.Context, raw *dto.NotificationV1) (*event.Notification, error) {
	return raw.ToDomain(event.ReservationUpdated)
}

// [ON_SYSTEM_NOTICE]
func (h *MessageHandler) OnSystemNoticeV1(ctx context.Context, raw *dto.NotificationV1) (*event.Notification, error) {
	n, err := raw.ToDomain(event.System)
	if err != nil {
		return nil, err
	}
	h.logger.Info("SYSTEM_NOTICE_RECEIVED", "id", n.ID)
	return n, nil
}
