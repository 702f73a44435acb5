package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sony/gobreaker"
	"github.com/webitel/admin-notify-service/internal/domain/model"
	"github.com/webitel/admin-notify-service/internal/service"
)

var _ service.Auther = (*HTTPAuther)(nil)

// HTTPAuther asks the platform's session endpoint who owns a token.
//
// [RESILIENCE] Calls go through a circuit breaker; a rejected token is a
// successful call and never trips it. Positive answers are cached briefly.
type HTTPAuther struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	cache   *expirable.LRU[string, model.Identity]
	logger  *slog.Logger
}

type HTTPAutherConfig struct {
	URL       string
	Timeout   time.Duration
	CacheSize int
	CacheTTL  time.Duration
}

func NewHTTPAuther(cfg HTTPAutherConfig, logger *slog.Logger) *HTTPAuther {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 1024
	}

	a := &HTTPAuther{
		url:    cfg.URL,
		client: &http.Client{Timeout: cfg.Timeout},
		cache:  expirable.NewLRU[string, model.Identity](cfg.CacheSize, nil, cfg.CacheTTL),
		logger: logger,
	}
	a.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "auth-introspect",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, model.ErrUnauthorized)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("[AUTH] circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})
	return a
}

func (a *HTTPAuther) Inspect(ctx context.Context, token string) (*model.Identity, error) {
	if token == "" {
		return nil, model.ErrUnauthorized
	}

	// [HOT_PATH] every reconnect of every tab re-authenticates
	if cached, ok := a.cache.Get(token); ok {
		return &cached, nil
	}

	res, err := a.breaker.Execute(func() (any, error) {
		return a.introspect(ctx, token)
	})
	if err != nil {
		return nil, err
	}

	identity := res.(model.Identity)
	a.cache.Add(token, identity)
	return &identity, nil
}

func (a *HTTPAuther) introspect(ctx context.Context, token string) (model.Identity, error) {
	var identity model.Identity

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.url, nil)
	if err != nil {
		return identity, fmt.Errorf("introspect request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return identity, fmt.Errorf("introspect call: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		_, _ = io.Copy(io.Discard, resp.Body)
		return identity, model.ErrUnauthorized
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		return identity, fmt.Errorf("introspect call: unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&identity); err != nil {
		return identity, fmt.Errorf("introspect decode: %w", err)
	}
	return identity, nil
}
