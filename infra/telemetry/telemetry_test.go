package telemetry

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestNewLogger_LevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "warn", "json", nil, "test")

	logger.Info("hidden")
	logger.Warn("shown", slog.String("k", "v"))

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"k":"v"`)
}

func TestNewLogger_TeeKeepsPrimaryOutput(t *testing.T) {
	var buf bytes.Buffer
	lp, err := NewLoggerProvider(LogExportConfig{ServiceName: "test", Output: io.Discard})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ShutdownLogs(context.Background(), lp) })

	logger := NewLogger(&buf, "debug", "text", lp, "test").With("component", "hub")

	logger.Debug("keepalive sent")
	assert.Contains(t, buf.String(), "keepalive sent")
	assert.Contains(t, buf.String(), "component=hub")
}

func TestNewLogger_BridgeExportsRecords(t *testing.T) {
	var out bytes.Buffer
	lp, err := NewLoggerProvider(LogExportConfig{ServiceName: "admin-notify-service", Output: &out})
	require.NoError(t, err)

	logger := NewLogger(io.Discard, "info", "json", lp, "admin-notify-service")
	logger.Info("NOTIFICATION_EMITTED", slog.String("kind", "SYSTEM"))
	logger.Debug("below level")
	require.NoError(t, ShutdownLogs(context.Background(), lp))

	assert.Contains(t, out.String(), "NOTIFICATION_EMITTED")
	assert.Contains(t, out.String(), "SYSTEM")
	assert.NotContains(t, out.String(), "below level")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelError, ParseLevel("ERROR"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("chatty"))
}

func TestNewTracerProvider_ExportsWhenEnabled(t *testing.T) {
	var out bytes.Buffer
	tp, err := NewTracerProvider(TracingConfig{
		Enabled:     true,
		SampleRatio: 1,
		ServiceName: "admin-notify-service",
		Output:      &out,
	})
	require.NoError(t, err)

	_, span := otel.Tracer("test").Start(context.Background(), "notification.emit")
	span.End()
	require.NoError(t, Shutdown(context.Background(), tp))

	assert.Contains(t, out.String(), "notification.emit")
}
