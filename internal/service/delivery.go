package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/webitel/admin-notify-service/internal/domain/model"
	"github.com/webitel/admin-notify-service/internal/domain/registry"
)

// [DELIVERY_SERVICE] PRIMARY INTERFACE FOR TRANSPORT HANDLERS (SSE/Websocket)
type Deliverer interface {
	Subscribe(ctx context.Context, identity *model.Identity, meta model.ConnectMetadata) (registry.Connector, error)
	Unsubscribe(userID, connID uuid.UUID)
}

var _ Deliverer = (*DeliveryService)(nil)

type DeliveryService struct {
	hub registry.Hubber
}

func NewDeliveryService(hub registry.Hubber) *DeliveryService {
	return &DeliveryService{
		hub: hub,
	}
}

// Subscribe opens a channel for an administrator. The channel lives until ctx
// ends, the hub evicts it, or Unsubscribe is called.
func (s *DeliveryService) Subscribe(ctx context.Context, identity *model.Identity, meta model.ConnectMetadata) (registry.Connector, error) {
	// 1. [ACCESS_GATE] Only administrators may open a channel
	if !identity.IsAdmin() {
		return nil, model.ErrUnauthorized
	}

	// 2. Create a connector bound to the request lifetime
	conn := registry.NewConnector(ctx, identity.UserID, meta, s.hub.ConnectorConfig())

	// 3. Attach to the registry; events emitted from now on reach it
	if err := s.hub.Register(conn); err != nil {
		conn.Close(model.DisconnectedPayload{Reason: err.Error(), Code: model.CodeShutdown})
		return nil, fmt.Errorf("register channel: %w", err)
	}

	return conn, nil
}

// Unsubscribe is safe to call for channels the hub has already dropped.
func (s *DeliveryService) Unsubscribe(userID, connID uuid.UUID) {
	s.hub.Unregister(userID, connID)
}
