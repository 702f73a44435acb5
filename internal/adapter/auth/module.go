package auth

import (
	"fmt"
	"log/slog"

	"github.com/webitel/admin-notify-service/config"
	"github.com/webitel/admin-notify-service/internal/service"
	"go.uber.org/fx"
)

// New picks the Auther implementation configured by auth.mode.
func New(cfg *config.Config, logger *slog.Logger) (service.Auther, error) {
	switch cfg.Auth.Mode {
	case "static":
		return NewStaticAuther(cfg.Auth.Tokens)
	case "http":
		return NewHTTPAuther(HTTPAutherConfig{
			URL:       cfg.Auth.IntrospectURL,
			Timeout:   cfg.Auth.Timeout,
			CacheSize: cfg.Auth.CacheSize,
			CacheTTL:  cfg.Auth.CacheTTL,
		}, logger), nil
	default:
		return nil, fmt.Errorf("auth: unsupported mode %q", cfg.Auth.Mode)
	}
}

var Module = fx.Module("auth",
	fx.Provide(New),
)
