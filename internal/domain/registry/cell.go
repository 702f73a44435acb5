/*
Package registry holds the process-wide set of open administrator channels.

Key Architectural Concepts:
  - Cells: every connected administrator is represented by a Cell grouping all of
    their open channels (one per browser tab or console).
  - Fan-out: Broadcast snapshots the registry, releases the lock, then enqueues into
    every channel buffer without waiting. Broadcasts are serialized so all channels
    observe the same relative order.
  - Backpressure: a channel whose buffer is full is evicted (slow consumer) instead
    of stalling delivery to everyone else.
  - Liveness: Run sends a keepalive to every channel on a fixed period.
*/
package registry

import (
	"time"

	"github.com/google/uuid"
)

// Cell groups the channels of a single administrator. Guarded by Hub.mu.
type Cell struct {
	userID   uuid.UUID
	sessions map[uuid.UUID]Connector
	openedAt time.Time
}

func NewCell(userID uuid.UUID) *Cell {
	return &Cell{
		userID:   userID,
		sessions: make(map[uuid.UUID]Connector),
		openedAt: time.Now(),
	}
}

func (c *Cell) Attach(conn Connector) {
	c.sessions[conn.GetID()] = conn
}

// Detach returns the removed connector, if any, and whether the cell is now empty.
func (c *Cell) Detach(connID uuid.UUID) (Connector, bool) {
	conn, ok := c.sessions[connID]
	if ok {
		delete(c.sessions, connID)
	}
	return conn, len(c.sessions) == 0
}

// Snapshot appends the cell's channels to dst.
func (c *Cell) Snapshot(dst []Connector) []Connector {
	for _, conn := range c.sessions {
		dst = append(dst, conn)
	}
	return dst
}

func (c *Cell) Len() int { return len(c.sessions) }
