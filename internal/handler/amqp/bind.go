package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/webitel/admin-notify-service/internal/domain/event"
	"github.com/webitel/admin-notify-service/internal/domain/model"
)

// DomainHandler defines the functional signature for business logic.
type DomainHandler[T any] func(ctx context.Context, payload *T) (*event.Notification, error)

// [INFRASTRUCTURE_BRIDGE]
// Bind connects Watermill to Domain logic, handling Panic Recovery, Decoding and Emission.
func Bind[T any](h *MessageHandler, fn DomainHandler[T]) message.NoPublishHandlerFunc {
	return func(msg *message.Message) (err error) {
		// [PANIC_RECOVERY]
		// Safely handle runtime panics to keep the consumer alive.
		defer func() {
			if r := recover(); r != nil {
				h.logger.Error("PANIC_RECOVERED",
					"err", r,
					"stack", string(debug.Stack()),
					"msg_id", msg.UUID)
				err = fmt.Errorf("handler panic: %v", r)
			}
		}()

		// [DECODING]
		payload := new(T)
		if err := json.Unmarshal(msg.Payload, payload); err != nil {
			h.logger.Error("DECODE_FAILED", "err", err, "msg_id", msg.UUID)
			return fmt.Errorf("%w: decode %s: %w", model.ErrInvalidEvent, msg.UUID, err)
		}

		// [EXECUTION]
		n, err := fn(msg.Context(), payload)
		if err != nil {
			return fmt.Errorf("%w: %w", model.ErrInvalidEvent, err)
		}
		if n == nil {
			return nil
		}

		// [FAN_OUT_DISPATCH] local delivery; per-connection dedup absorbs redelivery
		if _, err := h.emitter.Emit(msg.Context(), n); err != nil {
			return fmt.Errorf("EMIT_FAILED: %w", err)
		}
		return nil
	}
}
