package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
)

type LogExportConfig struct {
	ServiceName string
	Namespace   string
	Version     string
	// Output receives exported records; stderr when nil.
	Output io.Writer
}

// NewLoggerProvider builds the provider behind the slog bridge and installs it
// as the global one.
func NewLoggerProvider(cfg LogExportConfig) (*sdklog.LoggerProvider, error) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	exp, err := stdoutlog.New(stdoutlog.WithWriter(out))
	if err != nil {
		return nil, fmt.Errorf("log exporter: %w", err)
	}

	lp := sdklog.NewLoggerProvider(
		sdklog.WithResource(resource.NewSchemaless(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.namespace", cfg.Namespace),
			attribute.String("service.version", cfg.Version),
		)),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exp)),
	)
	global.SetLoggerProvider(lp)
	return lp, nil
}

// ShutdownLogs flushes pending records.
func ShutdownLogs(ctx context.Context, lp *sdklog.LoggerProvider) error {
	if lp == nil {
		return nil
	}
	return lp.Shutdown(ctx)
}
