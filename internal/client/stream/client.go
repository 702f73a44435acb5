/*
Package stream keeps one administrator subscription alive.

A Client opens a Channel through a Dialer, hands every NotificationEvent to its
Handler in arrival order, and reconnects on any transport failure:

	CONNECTING --ok--> OPEN --drop/silence--> RECONNECTING --wait--> CONNECTING
	     \--fail--> RECONNECTING

Unauthorized ends Run immediately; cancelling the context is the only other way
to reach CLOSED.
*/
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/webitel/admin-notify-service/internal/domain/event"
	"github.com/webitel/admin-notify-service/internal/domain/model"
	"github.com/webitel/admin-notify-service/internal/handler/marshaller"
)

// ErrLivenessTimeout reports an open stream that stayed silent too long.
var ErrLivenessTimeout = fmt.Errorf("%w: liveness timeout", model.ErrTransportFailure)

// Stream is one open Channel as seen by the client.
type Stream interface {
	// Next blocks for the next frame. It must return once Close is called.
	Next() (*marshaller.Frame, error)
	Close() error
}

// Dialer opens Channels. It returns an error wrapping model.ErrUnauthorized
// when the server refuses the session.
type Dialer interface {
	Dial(ctx context.Context) (Stream, error)
}

// Handler receives NotificationEvents, one at a time, in server fan-out order.
type Handler func(n *event.Notification)

type Client struct {
	dialer  Dialer
	handler Handler
	config  Config
	logger  *slog.Logger

	onState   func(State)
	onWarning func(Warning)

	state atomic.Int32
}

func New(dialer Dialer, handler Handler, cfg Config, opts ...Option) *Client {
	c := &Client{
		dialer:  dialer,
		handler: handler,
		config:  cfg.withDefaults(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.state.Store(int32(StateConnecting))
	return c
}

func (c *Client) State() State { return State(c.state.Load()) }

func (c *Client) setState(s State) {
	if State(c.state.Swap(int32(s))) == s {
		return
	}
	c.logger.Debug("[STREAM] state changed", slog.String("state", s.String()))
	if c.onState != nil {
		c.onState(s)
	}
}

// Run drives the state machine until ctx is cancelled (returns nil) or the
// server rejects the session (returns an error wrapping model.ErrUnauthorized).
// The transport is released on every exit path.
func (c *Client) Run(ctx context.Context) error {
	defer c.setState(StateClosed)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.config.RetryInterval
	b.MaxInterval = c.config.MaxRetryInterval

	var (
		failures int
		warned   bool
	)

	c.setState(StateConnecting)
	for {
		s, err := c.dialer.Dial(ctx)
		switch {
		case ctx.Err() != nil:
			if s != nil {
				_ = s.Close()
			}
			return nil
		case errors.Is(err, model.ErrUnauthorized):
			c.logger.Warn("[STREAM] session rejected, not retrying", slog.Any("err", err))
			return err
		case err != nil:
			failures++
			c.logger.Warn("[STREAM] open failed",
				slog.Int("attempt", failures),
				slog.Any("err", err),
			)
			if c.config.WarnAfter > 0 && failures == c.config.WarnAfter {
				warned = true
				c.warn(Warning{Active: true, Attempts: failures, Err: err})
			}
		default:
			c.setState(StateOpen)
			b.Reset()
			failures = 0
			if warned {
				warned = false
				c.warn(Warning{})
			}

			err = c.consume(ctx, s)
			_ = s.Close()
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Info("[STREAM] channel lost", slog.Any("err", err))
		}

		c.setState(StateReconnecting)
		if !c.wait(ctx, c.delay(b)) {
			return nil
		}
		c.setState(StateConnecting)
	}
}

// delay never undercuts the configured floor, whatever the jitter.
func (c *Client) delay(b *backoff.ExponentialBackOff) time.Duration {
	d := b.NextBackOff()
	if d < c.config.RetryInterval {
		d = c.config.RetryInterval
	}
	return d
}

func (c *Client) wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *Client) warn(w Warning) {
	if w.Active {
		c.logger.Warn("[STREAM] notifications unavailable, still retrying",
			slog.Int("attempts", w.Attempts),
			slog.Any("err", w.Err),
		)
	}
	if c.onWarning != nil {
		c.onWarning(w)
	}
}

type result struct {
	frame *marshaller.Frame
	err   error
}

// consume pumps one open stream until it fails, goes silent, or ctx ends.
func (c *Client) consume(ctx context.Context, s Stream) error {
	frames := make(chan result)
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			f, err := s.Next()
			select {
			case frames <- result{f, err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()

	liveness := c.config.LivenessTimeout
	timer := time.NewTimer(liveness)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-timer.C:
			return ErrLivenessTimeout

		case r := <-frames:
			if r.err != nil {
				return fmt.Errorf("%w: %w", model.ErrTransportFailure, r.err)
			}

			switch r.frame.Type {
			case marshaller.FrameNotification:
				n, err := r.frame.Notification()
				if err != nil {
					return err
				}
				c.handler(n)

			case marshaller.FrameConnected:
				hello, err := r.frame.Connected()
				if err != nil {
					return err
				}
				// [LIVENESS] never tighter than 2.5 advertised keepalive periods
				if adv := time.Duration(hello.KeepaliveMs) * time.Millisecond * 5 / 2; adv > liveness {
					liveness = adv
				}
				c.logger.Info("[STREAM] channel open",
					slog.String("conn_id", hello.ConnectionID),
					slog.String("server_version", hello.ServerVersion),
					slog.Duration("liveness", liveness),
				)

			case marshaller.FrameDisconnected:
				bye, _ := r.frame.Disconnected()
				return fmt.Errorf("%w: server closed channel: %s (%s)", model.ErrTransportFailure, bye.Reason, bye.Code)

			case marshaller.FrameKeepalive:
			}

			// any frame proves the channel alive
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(liveness)
		}
	}
}
