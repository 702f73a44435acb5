package registry

import (
	"log/slog"
	"time"
)

const (
	defaultBufferSize        = 256
	defaultDedupSize         = 1024
	defaultKeepaliveInterval = 30 * time.Second
)

type hubConfig struct {
	keepaliveInterval time.Duration
	connector         ConnectorConfig
}

// Option defines a functional configuration type for the Hub.
type Option func(*Hub)

// WithKeepaliveInterval sets the [HEARTBEAT] period sent to every open channel.
func WithKeepaliveInterval(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.config.keepaliveInterval = d
		}
	}
}

// WithBufferSize sets the [BACKPRESSURE] threshold.
// It defines the outbound buffer capacity of each individual channel.
func WithBufferSize(size int) Option {
	return func(h *Hub) {
		if size > 0 {
			h.config.connector.BufferSize = size
		}
	}
}

// WithDedupSize bounds how many notification ids a single channel remembers.
func WithDedupSize(size int) Option {
	return func(h *Hub) {
		if size > 0 {
			h.config.connector.DedupSize = size
		}
	}
}

func WithObserver(o Observer) Option {
	return func(h *Hub) {
		if o != nil {
			h.observer = o
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}
