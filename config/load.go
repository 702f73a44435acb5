package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "ADMIN_NOTIFY"

// bareEnv are the process-wide variables recognised without the prefix.
var bareEnv = map[string]string{
	"client.sound_path":         "SOUND_PATH",
	"client.volume":             "VOLUME",
	"client.retry_interval":     "RETRY_INTERVAL",
	"notify.keepalive_interval": "KEEPALIVE_INTERVAL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.address", ":8080")
	v.SetDefault("service.grpc_address", "")
	v.SetDefault("service.shutdown_timeout", 15*time.Second)
	v.SetDefault("service.version", "0.0.0")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.otel", false)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.sample_ratio", 0.1)

	v.SetDefault("notify.keepalive_interval", 30*time.Second)
	v.SetDefault("notify.buffer_size", 256)
	v.SetDefault("notify.dedup_size", 1024)

	v.SetDefault("broker.driver", "memory")
	v.SetDefault("broker.queue_suffix", "admin-notify")

	v.SetDefault("auth.mode", "static")
	v.SetDefault("auth.timeout", 3*time.Second)
	v.SetDefault("auth.cache_size", 1024)
	v.SetDefault("auth.cache_ttl", 30*time.Second)

	v.SetDefault("client.server_url", "http://localhost:8080")
	v.SetDefault("client.transport", "sse")
	v.SetDefault("client.retry_interval", 5*time.Second)
	v.SetDefault("client.max_retry_interval", 60*time.Second)
	v.SetDefault("client.warn_after", 5)
	v.SetDefault("client.dedup_capacity", 1024)
	v.SetDefault("client.dedup_max_age", 10*time.Minute)
	v.SetDefault("client.volume", 0.5)
	v.SetDefault("client.player", "bell")
	v.SetDefault("client.player_command", "paplay --volume={volume_pa} {path}")
	v.SetDefault("client.playback_timeout", 5*time.Second)
	v.SetDefault("client.headless", false)
	v.SetDefault("client.log_file", "")
}

// NewFlagSet declares the command-line overrides understood by Load.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config_file", "", "Path to the configuration file")
	fs.String("address", "", "HTTP listen address")
	fs.String("grpc_address", "", "gRPC health listen address (empty disables)")
	fs.String("log_level", "", "Log level: debug, info, warn, error")
	fs.String("server_url", "", "Notification server base URL (client)")
	fs.String("token", "", "Administrator session token (client)")
	fs.String("transport", "", "Client transport: sse or ws")
	fs.Bool("headless", false, "Log notifications instead of drawing the terminal dashboard (client)")
	fs.String("log_file", "", "Write client logs to this file while the dashboard owns the terminal")
	return fs
}

var flagKeys = map[string]string{
	"address":      "service.address",
	"grpc_address": "service.grpc_address",
	"log_level":    "log.level",
	"server_url":   "client.server_url",
	"token":        "client.token",
	"transport":    "client.transport",
	"headless":     "client.headless",
	"log_file":     "client.log_file",
}

// Load parses args, then layers defaults < file < env < flags. Flags of extra
// are parsed from the same args and left for the caller to read.
func Load(args []string, extra ...*pflag.FlagSet) (*Config, error) {
	fs := NewFlagSet("admin-notify")
	for _, e := range extra {
		fs.AddFlagSet(e)
	}
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range bareEnv {
		if err := v.BindEnv(key, envPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	for name, key := range flagKeys {
		if f := fs.Lookup(name); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	file, _ := fs.GetString("config_file")
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		millisDurationHook(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = file

	// liveness defaults to 2.5 keepalive periods unless set explicitly
	if cfg.Client.LivenessTimeout <= 0 {
		cfg.Client.LivenessTimeout = cfg.Notify.KeepaliveInterval * 5 / 2
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// millisDurationHook reads bare integers (RETRY_INTERVAL=5000) as milliseconds.
func millisDurationHook() mapstructure.DecodeHookFuncType {
	durationType := reflect.TypeOf(time.Duration(0))

	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if t != durationType || f == durationType {
			return data, nil
		}
		switch f.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return time.Duration(reflect.ValueOf(data).Int()) * time.Millisecond, nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return time.Duration(reflect.ValueOf(data).Uint()) * time.Millisecond, nil
		case reflect.Float32, reflect.Float64:
			return time.Duration(reflect.ValueOf(data).Float() * float64(time.Millisecond)), nil
		case reflect.String:
			s := strings.TrimSpace(data.(string))
			if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
				return time.Duration(ms) * time.Millisecond, nil
			}
			return s, nil
		}
		return data, nil
	}
}
