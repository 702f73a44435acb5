package amqp

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/google/uuid"
	"github.com/webitel/admin-notify-service/config"
	"github.com/webitel/admin-notify-service/infra/pubsub"
	pubsubadapter "github.com/webitel/admin-notify-service/internal/adapter/pubsub"
	"github.com/webitel/admin-notify-service/internal/service"
	"github.com/webitel/admin-notify-service/internal/service/dto"
)

const (
	// ------------------- QUEUES (CONSUMERS) --------------------
	NotifyPoisonTopic = "admin-notify.incoming-processor.v1.poison"
)

type MessageHandler struct {
	emitter     service.Emitter
	logger      *slog.Logger
	dispatcher  pubsubadapter.EventDispatcher
	queueSuffix string
}

func NewMessageHandler(emitter service.Emitter, logger *slog.Logger, dispatcher pubsubadapter.EventDispatcher, cfg *config.Config) *MessageHandler {
	return &MessageHandler{
		emitter:     emitter,
		logger:      logger,
		dispatcher:  dispatcher,
		queueSuffix: cfg.Broker.QueueSuffix,
	}
}

func NewWatermillRouter(logger watermill.LoggerAdapter) (*message.Router, error) {
	return message.NewRouter(message.RouterConfig{CloseTimeout: 15 * time.Second}, logger)
}

// [REGISTRATION_PIPELINE]
func (h *MessageHandler) RegisterHandlers(router *message.Router, factory pubsub.Factory) error {
	poison, err := middleware.PoisonQueue(h.dispatcher.Publisher(), NotifyPoisonTopic)
	if err != nil {
		return fmt.Errorf("POISON_SETUP_FAILED: %w", err)
	}

	configs := []struct {
		name    string
		topic   string
		handler message.NoPublishHandlerFunc
	}{
		{"ON_RESERVATION_CREATED", dto.TopicReservationCreated, Bind(h, h.OnReservationCreatedV1)},
		{"ON_RESERVATION_UPDATED", dto.TopicReservationUpdated, Bind(h, h.OnReservationUpdatedV1)},
		{"ON_SYSTEM_NOTICE", dto.TopicSystemNotice, Bind(h, h.OnSystemNoticeV1)},
	}

	// [UNIQUE_NODE_QUEUE]
	// Every node binds its own queue to each fanout exchange so all of its admins see every event.
	// Format: rental.reservation.created_admin-notify.b23a8f12
	instanceID := uuid.NewString()[:8]
	queue := fmt.Sprintf("%s.%s", h.queueSuffix, instanceID)

	for _, c := range configs {
		sub, err := factory.Subscriber(queue)
		if err != nil {
			return err
		}

		router.AddConsumerHandler(c.name, c.topic, sub, c.handler).AddMiddleware(
			TraceIDMiddleware,
			LoggingMiddleware(h.logger),
			poison,
			NewRetryPolicy().Middleware,
			middleware.NewThrottle(100, time.Second).Middleware,
			middleware.Timeout(time.Second*30),
		)
	}

	h.logger.Info("AMQP_PIPELINE_READY", "queue", queue)
	return nil
}
