package inbox

import (
	"log/slog"
	"time"
)

const (
	defaultCapacity     = 1024
	defaultMaxAge       = 10 * time.Minute
	defaultHistoryLimit = 200
	minProtectedWindow  = time.Minute
	// protectedFactor multiplies the reconnect floor into the redelivery window.
	protectedFactor = 6
)

type Config struct {
	// Capacity is the initial number of remembered ids.
	Capacity int
	// MaxAge forgets ids older than this once they leave the protected window.
	MaxAge time.Duration
	// RetryInterval sizes the protected window: ids younger than
	// RetryInterval*6 (at least one minute) are never forgotten.
	RetryInterval time.Duration
	// HistoryLimit bounds the stored records, not the seen ids.
	HistoryLimit int
}

func (c Config) withDefaults() Config {
	if c.Capacity <= 0 {
		c.Capacity = defaultCapacity
	}
	if c.MaxAge <= 0 {
		c.MaxAge = defaultMaxAge
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = defaultHistoryLimit
	}
	return c
}

// ProtectedWindow is how long a seen id is guaranteed to be remembered.
func (c Config) ProtectedWindow() time.Duration {
	w := c.RetryInterval * protectedFactor
	if w < minProtectedWindow {
		w = minProtectedWindow
	}
	return w
}

type Option func(*Inbox)

func WithLogger(l *slog.Logger) Option {
	return func(b *Inbox) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Inbox) { b.now = now }
}
