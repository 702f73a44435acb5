package registry

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/webitel/admin-notify-service/internal/domain/event"
	"github.com/webitel/admin-notify-service/internal/domain/model"
)

// Interface guard
var _ Connector = (*connect)(nil)

// SendStatus is the outcome of a single non-blocking enqueue.
type SendStatus int

const (
	SendQueued    SendStatus = iota
	SendDuplicate            // id already accepted on this connection
	SendOverflow             // buffer full: the caller must evict
	SendClosed               // connection already terminated
)

// [CONNECTOR] THE INTERFACE FOR EXTERNAL LAYERS (REGISTRY/HUB)
// One Connector is one Channel: a single open delivery path of one admin session.
type Connector interface {
	GetID() uuid.UUID
	GetUserID() uuid.UUID
	Metadata() model.ConnectMetadata
	OpenedAt() time.Time
	LastKeepaliveAt() time.Time
	Dropped() uint64

	Send(ev event.Eventer) SendStatus // Thread-safe, never blocks
	Recv() <-chan event.Eventer
	Done() <-chan struct{}

	// Close terminates the channel; only the first reason is kept.
	Close(reason model.DisconnectedPayload)
	CloseReason() (model.DisconnectedPayload, bool)
}

// ConnectorConfig sizes the per-channel structures.
type ConnectorConfig struct {
	BufferSize int // [BACKPRESSURE] overflow evicts the channel
	DedupSize  int // ids remembered to refuse in-connection redelivery
}

// [CONNECT] CONCRETE IMPLEMENTATION (UNEXPORTED TO FORCE INTERFACE USAGE)
type connect struct {
	id       uuid.UUID
	userID   uuid.UUID
	metadata model.ConnectMetadata
	openedAt time.Time

	ctx      context.Context
	cancelFn context.CancelFunc
	sendCh   chan event.Eventer
	seen     *lru.Cache[string, struct{}]

	// mu serializes Send against Close so nothing is enqueued after teardown.
	mu          sync.Mutex
	closed      bool
	closeReason model.DisconnectedPayload

	lastKeepaliveAt atomic.Int64 // [ATOMIC_FIELD] unix nanos
	droppedCount    atomic.Uint64
}

// NewConnector binds a channel to the lifetime of ctx (usually the HTTP request).
func NewConnector(ctx context.Context, userID uuid.UUID, meta model.ConnectMetadata, cfg ConnectorConfig) Connector {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.DedupSize <= 0 {
		cfg.DedupSize = defaultDedupSize
	}

	childCtx, cancel := context.WithCancel(ctx)
	seen, _ := lru.New[string, struct{}](cfg.DedupSize)

	c := &connect{
		id:       uuid.New(),
		userID:   userID,
		metadata: meta,
		openedAt: time.Now(),
		ctx:      childCtx,
		cancelFn: cancel,
		sendCh:   make(chan event.Eventer, cfg.BufferSize),
		seen:     seen,
	}
	c.lastKeepaliveAt.Store(c.openedAt.UnixNano())
	return c
}

// --- IMPLEMENTATION OF CONNECTOR INTERFACE ---

func (c *connect) GetID() uuid.UUID                { return c.id }
func (c *connect) GetUserID() uuid.UUID            { return c.userID }
func (c *connect) Metadata() model.ConnectMetadata { return c.metadata }
func (c *connect) OpenedAt() time.Time             { return c.openedAt }
func (c *connect) Dropped() uint64                 { return c.droppedCount.Load() }
func (c *connect) Recv() <-chan event.Eventer      { return c.sendCh }
func (c *connect) Done() <-chan struct{}           { return c.ctx.Done() }

func (c *connect) LastKeepaliveAt() time.Time {
	return time.Unix(0, c.lastKeepaliveAt.Load())
}

// Send enqueues without waiting. A full buffer is reported, never waited on.
func (c *connect) Send(ev event.Eventer) SendStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	// 1. [LIFECYCLE_GATE] Abort if the transport is already dead.
	if c.closed || c.ctx.Err() != nil {
		return SendClosed
	}

	// 2. [IN_CONNECTION_DEDUP] A notification id is delivered once per continuous connection.
	isNotification := ev.GetKind().IsNotification()
	if isNotification && c.seen.Contains(ev.GetID()) {
		return SendDuplicate
	}

	select {
	case c.sendCh <- ev:
		if isNotification {
			c.seen.Add(ev.GetID(), struct{}{})
		}
		if ev.GetKind() == event.Keepalive {
			c.lastKeepaliveAt.Store(time.Now().UnixNano())
		}
		return SendQueued
	default:
		// 3. [BACKPRESSURE_THRESHOLD] Persistent slow consumer.
		c.droppedCount.Add(1)
		return SendOverflow
	}
}

// Close is idempotent; concurrent callers (hub eviction, shutdown, handler defer) are safe.
func (c *connect) Close(reason model.DisconnectedPayload) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.closeReason = reason

	// [SIGNAL_ABORT] Done() fires; the writer loop sends the goodbye frame and exits.
	// sendCh stays open: it is never closed so a racing reader cannot observe a zero event.
	c.cancelFn()
}

func (c *connect) CloseReason() (model.DisconnectedPayload, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeReason, c.closed
}
