package config

import (
	"errors"
	"fmt"
	"time"
)

// Config is read once at startup; changing it requires a restart.
type Config struct {
	Service ServiceConfig `mapstructure:"service"`
	Log     LogConfig     `mapstructure:"log"`
	Tracing TracingConfig `mapstructure:"tracing"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Broker  BrokerConfig  `mapstructure:"broker"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Client  ClientConfig  `mapstructure:"client"`

	// File is the config file actually loaded, empty when running on defaults/env only.
	File string `mapstructure:"-"`
}

type ServiceConfig struct {
	Address         string        `mapstructure:"address"`
	GRPCAddress     string        `mapstructure:"grpc_address"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Version         string        `mapstructure:"version"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json | text
	OTel   bool   `mapstructure:"otel"`
}

type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// NotifyConfig sizes the server-side channel registry.
type NotifyConfig struct {
	KeepaliveInterval time.Duration `mapstructure:"keepalive_interval"`
	BufferSize        int           `mapstructure:"buffer_size"`
	DedupSize         int           `mapstructure:"dedup_size"`
}

type BrokerConfig struct {
	Driver      string `mapstructure:"driver"` // memory | amqp
	URL         string `mapstructure:"url"`
	QueueSuffix string `mapstructure:"queue_suffix"`
}

type AuthConfig struct {
	Mode          string           `mapstructure:"mode"` // static | http
	Tokens        []StaticIdentity `mapstructure:"tokens"`
	IntrospectURL string           `mapstructure:"introspect_url"`
	Timeout       time.Duration    `mapstructure:"timeout"`
	CacheSize     int              `mapstructure:"cache_size"`
	CacheTTL      time.Duration    `mapstructure:"cache_ttl"`
}

type StaticIdentity struct {
	Token  string   `mapstructure:"token"`
	UserID string   `mapstructure:"user_id"`
	Name   string   `mapstructure:"name"`
	Roles  []string `mapstructure:"roles"`
}

// ClientConfig drives the administrator-side stream client and alerting.
type ClientConfig struct {
	ServerURL        string        `mapstructure:"server_url"`
	Transport        string        `mapstructure:"transport"` // sse | ws
	Token            string        `mapstructure:"token"`
	RetryInterval    time.Duration `mapstructure:"retry_interval"`
	MaxRetryInterval time.Duration `mapstructure:"max_retry_interval"`
	LivenessTimeout  time.Duration `mapstructure:"liveness_timeout"`
	WarnAfter        int           `mapstructure:"warn_after"`
	DedupCapacity    int           `mapstructure:"dedup_capacity"`
	DedupMaxAge      time.Duration `mapstructure:"dedup_max_age"`
	SoundPath        string        `mapstructure:"sound_path"`
	Volume           float64       `mapstructure:"volume"`
	Player           string        `mapstructure:"player"` // command | bell | none
	PlayerCommand    string        `mapstructure:"player_command"`
	PlaybackTimeout  time.Duration `mapstructure:"playback_timeout"`
	Headless         bool          `mapstructure:"headless"`
	LogFile          string        `mapstructure:"log_file"`
}

// Validate enforces cross-field invariants.
func (c *Config) Validate() error {
	var errs []error

	if c.Notify.KeepaliveInterval <= 0 {
		errs = append(errs, errors.New("notify.keepalive_interval must be positive"))
	}
	if c.Notify.BufferSize <= 0 {
		errs = append(errs, errors.New("notify.buffer_size must be positive"))
	}
	switch c.Broker.Driver {
	case "memory":
	case "amqp":
		if c.Broker.URL == "" {
			errs = append(errs, errors.New("broker.url is required for the amqp driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("broker.driver %q is not supported", c.Broker.Driver))
	}
	switch c.Auth.Mode {
	case "static":
	case "http":
		if c.Auth.IntrospectURL == "" {
			errs = append(errs, errors.New("auth.introspect_url is required for the http mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("auth.mode %q is not supported", c.Auth.Mode))
	}

	cl := c.Client
	if cl.RetryInterval <= 0 {
		errs = append(errs, errors.New("client.retry_interval must be positive"))
	}
	if cl.MaxRetryInterval < cl.RetryInterval {
		errs = append(errs, errors.New("client.max_retry_interval must not be below client.retry_interval"))
	}
	// one missed keepalive must not be enough to declare the connection dead
	if cl.LivenessTimeout < 2*c.Notify.KeepaliveInterval {
		errs = append(errs, fmt.Errorf("client.liveness_timeout (%s) must be at least twice notify.keepalive_interval (%s)",
			cl.LivenessTimeout, c.Notify.KeepaliveInterval))
	}
	if cl.Volume < 0 || cl.Volume > 1 {
		errs = append(errs, fmt.Errorf("client.volume %.2f is outside [0, 1]", cl.Volume))
	}
	switch cl.Transport {
	case "sse", "ws":
	default:
		errs = append(errs, fmt.Errorf("client.transport %q is not supported", cl.Transport))
	}
	switch cl.Player {
	case "command", "bell", "none":
	default:
		errs = append(errs, fmt.Errorf("client.player %q is not supported", cl.Player))
	}

	return errors.Join(errs...)
}
