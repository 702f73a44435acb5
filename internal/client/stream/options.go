package stream

import (
	"log/slog"
	"time"
)

const (
	defaultRetryInterval   = 5 * time.Second
	defaultLivenessTimeout = 75 * time.Second
	defaultWarnAfter       = 5
)

// Config holds the timing policy of a Client.
type Config struct {
	// RetryInterval is the floor of every reconnect delay.
	RetryInterval time.Duration
	// MaxRetryInterval caps the exponential growth of the delay.
	MaxRetryInterval time.Duration
	// LivenessTimeout is how long an open stream may stay silent.
	LivenessTimeout time.Duration
	// WarnAfter consecutive failed attempts raise one Warning; 0 disables.
	WarnAfter int
}

func (c Config) withDefaults() Config {
	if c.RetryInterval <= 0 {
		c.RetryInterval = defaultRetryInterval
	}
	if c.MaxRetryInterval < c.RetryInterval {
		c.MaxRetryInterval = c.RetryInterval
	}
	if c.LivenessTimeout <= 0 {
		c.LivenessTimeout = defaultLivenessTimeout
	}
	if c.WarnAfter < 0 {
		c.WarnAfter = defaultWarnAfter
	}
	return c
}

// Warning is raised after repeated failures and cleared on the next open.
type Warning struct {
	Active   bool
	Attempts int
	Err      error
}

type Option func(*Client)

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithStateHook observes every state transition. Called from the Run goroutine.
func WithStateHook(fn func(State)) Option {
	return func(c *Client) { c.onState = fn }
}

// WithWarningHook observes the non-fatal reconnect warning.
func WithWarningHook(fn func(Warning)) Option {
	return func(c *Client) { c.onWarning = fn }
}
