package registry

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/webitel/admin-notify-service/internal/domain/event"
	"github.com/webitel/admin-notify-service/internal/domain/model"
)

// Hubber defines the gateway for channel management and event fan-out.
type Hubber interface {
	Register(conn Connector) error
	Unregister(userID, connID uuid.UUID) bool
	Broadcast(ev event.Eventer) int
	SendKeepalive() int
	IsConnected(userID uuid.UUID) bool
	Stats() model.HubStats
	ConnectorConfig() ConnectorConfig
	KeepaliveInterval() time.Duration
	Run(ctx context.Context) error
	Shutdown()
}

// Observer receives registry lifecycle signals (metrics, audit).
type Observer interface {
	ChannelOpened(meta model.ConnectMetadata)
	ChannelClosed(code string)
	Fanout(kind event.Kind, delivered int)
	Evicted()
}

type nopObserver struct{}

func (nopObserver) ChannelOpened(model.ConnectMetadata) {}
func (nopObserver) ChannelClosed(string)                {}
func (nopObserver) Fanout(event.Kind, int)              {}
func (nopObserver) Evicted()                            {}

var _ Hubber = (*Hub)(nil)

// Hub is the in-memory registry of open channels, keyed by administrator.
type Hub struct {
	config   hubConfig
	logger   *slog.Logger
	observer Observer

	// mu guards cells and closed. Register/Unregister take it exclusively,
	// Broadcast only long enough to copy a snapshot.
	mu     sync.RWMutex
	cells  map[uuid.UUID]*Cell
	closed bool

	// fanoutMu serializes Broadcast/SendKeepalive so per-channel order matches emission order.
	fanoutMu sync.Mutex

	startedAt time.Time
	emitted   atomic.Uint64
	evicted   atomic.Uint64

	done     chan struct{}
	doneOnce sync.Once
}

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		config: hubConfig{
			keepaliveInterval: defaultKeepaliveInterval,
			connector: ConnectorConfig{
				BufferSize: defaultBufferSize,
				DedupSize:  defaultDedupSize,
			},
		},
		logger:    slog.Default(),
		observer:  nopObserver{},
		cells:     make(map[uuid.UUID]*Cell),
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) ConnectorConfig() ConnectorConfig  { return h.config.connector }
func (h *Hub) KeepaliveInterval() time.Duration { return h.config.keepaliveInterval }

func (h *Hub) IsConnected(userID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.cells[userID]
	return ok
}

// Register attaches a channel; from now on it receives every broadcast (no replay).
func (h *Hub) Register(conn Connector) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return model.ErrHubClosed
	}
	// [LAZY_INIT] Create cell only when the admin's first channel arrives.
	cell, ok := h.cells[conn.GetUserID()]
	if !ok {
		cell = NewCell(conn.GetUserID())
		h.cells[conn.GetUserID()] = cell
	}
	cell.Attach(conn)
	h.mu.Unlock()

	h.observer.ChannelOpened(conn.Metadata())
	h.logger.Debug("[HUB] channel registered",
		slog.String("user_id", conn.GetUserID().String()),
		slog.String("conn_id", conn.GetID().String()),
	)
	return nil
}

// Unregister releases a channel. Idempotent: returns false when it was already gone.
func (h *Hub) Unregister(userID, connID uuid.UUID) bool {
	h.mu.Lock()
	cell, ok := h.cells[userID]
	if !ok {
		h.mu.Unlock()
		return false
	}
	conn, empty := cell.Detach(connID)
	if empty {
		// [GRACEFUL_RECLAMATION] No sessions left, purge the cell.
		delete(h.cells, userID)
	}
	h.mu.Unlock()

	if conn == nil {
		return false
	}

	conn.Close(model.DisconnectedPayload{Reason: "channel closed", Code: model.CodeClosed})
	reason, _ := conn.CloseReason()
	h.observer.ChannelClosed(reason.Code)
	return true
}

// Broadcast fans ev out to every open channel and returns how many accepted it.
func (h *Hub) Broadcast(ev event.Eventer) int {
	h.fanoutMu.Lock()
	defer h.fanoutMu.Unlock()

	delivered := h.fanout(ev)
	if ev.GetKind().IsNotification() {
		h.emitted.Add(1)
	}
	h.observer.Fanout(ev.GetKind(), delivered)
	return delivered
}

// SendKeepalive pushes one keepalive to every open channel.
func (h *Hub) SendKeepalive() int {
	h.fanoutMu.Lock()
	defer h.fanoutMu.Unlock()

	return h.fanout(event.NewKeepalive())
}

func (h *Hub) fanout(ev event.Eventer) int {
	delivered := 0
	for _, conn := range h.snapshot() {
		switch conn.Send(ev) {
		case SendQueued:
			delivered++
		case SendOverflow:
			h.evict(conn)
		case SendClosed:
			// [GHOST_CLEANUP] transport died before the handler deregistered it
			h.Unregister(conn.GetUserID(), conn.GetID())
		case SendDuplicate:
		}
	}
	return delivered
}

// snapshot copies the channel set; concurrent (de)registration cannot touch the copy.
func (h *Hub) snapshot() []Connector {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Connector, 0, len(h.cells))
	for _, cell := range h.cells {
		out = cell.Snapshot(out)
	}
	return out
}

func (h *Hub) evict(conn Connector) {
	conn.Close(model.DisconnectedPayload{
		Reason: model.ErrSlowConsumer.Error(),
		Code:   model.CodeEvicted,
	})
	h.Unregister(conn.GetUserID(), conn.GetID())
	h.evicted.Add(1)
	h.observer.Evicted()

	h.logger.Warn("[HUB] slow consumer evicted",
		slog.String("user_id", conn.GetUserID().String()),
		slog.String("conn_id", conn.GetID().String()),
		slog.Uint64("dropped", conn.Dropped()),
	)
}

// Run drives the keepalive ticker until ctx is cancelled or the hub shuts down.
func (h *Hub) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.config.keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-h.done:
			return nil
		case <-ticker.C:
			n := h.SendKeepalive()
			h.logger.Debug("[HUB] keepalive sent", slog.Int("channels", n))
		}
	}
}

// Shutdown closes every channel and refuses new registrations.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	h.closed = true
	var conns []Connector
	for _, cell := range h.cells {
		conns = cell.Snapshot(conns)
	}
	h.cells = make(map[uuid.UUID]*Cell)
	h.mu.Unlock()

	for _, conn := range conns {
		conn.Close(model.DisconnectedPayload{Reason: "server shutting down", Code: model.CodeShutdown})
		h.observer.ChannelClosed(model.CodeShutdown)
	}
	h.doneOnce.Do(func() { close(h.done) })

	h.logger.Info("[HUB] shutdown complete", slog.Int("closed_channels", len(conns)))
}

func (h *Hub) Stats() model.HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := model.HubStats{
		TotalAdmins: len(h.cells),
		Emitted:     h.emitted.Load(),
		Evicted:     h.evicted.Load(),
		UptimeMs:    time.Since(h.startedAt).Milliseconds(),
		Admins:      make([]model.AdminStats, 0, len(h.cells)),
	}
	for userID, cell := range h.cells {
		stats.TotalConnections += cell.Len()
		stats.Admins = append(stats.Admins, model.AdminStats{
			UserID:      userID.String(),
			Connections: cell.Len(),
		})
	}
	sort.Slice(stats.Admins, func(i, j int) bool {
		return stats.Admins[i].UserID < stats.Admins[j].UserID
	})
	return stats
}
