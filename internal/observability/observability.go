// Package observability configures the process-wide logging pipeline.
//
// By default log records go to stderr through a text or JSON slog handler.
// Selecting an exporter instead routes records through the OpenTelemetry log
// bridge, with a minimum-severity filter in front of a batching processor, so
// deployments can ship logs to an OTLP collector without code changes.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// instrumentationName identifies this service in exported log records.
const instrumentationName = "ghl-relay"

// ParseLevel converts a config-level string to a slog.Level.
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return l, nil
}

// Instrument sets up the process-wide slog default. The returned shutdown
// function flushes any buffered log records; it is a no-op for the plain
// stderr handlers.
func Instrument(level, format, exporter string) (func(context.Context) error, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	if exporter == "" || exporter == "none" {
		opts := &slog.HandlerOptions{Level: lvl}
		var handler slog.Handler
		switch format {
		case "json":
			handler = slog.NewJSONHandler(os.Stderr, opts)
		default:
			handler = slog.NewTextHandler(os.Stderr, opts)
		}
		slog.SetDefault(slog.New(handler))
		return func(context.Context) error { return nil }, nil
	}

	ctx := context.Background()
	var exp sdklog.Exporter
	switch exporter {
	case "stdout":
		exp, err = stdoutlog.New()
	case "otlp-http":
		exp, err = otlploghttp.New(ctx)
	case "otlp-grpc":
		exp, err = otlploggrpc.New(ctx)
	default:
		return nil, fmt.Errorf("unsupported log exporter: %s", exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("creating log exporter: %w", err)
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(
			minsev.NewLogProcessor(sdklog.NewBatchProcessor(exp), severity(lvl)),
		),
	)
	global.SetLoggerProvider(provider)
	slog.SetDefault(otelslog.NewLogger(instrumentationName, otelslog.WithLoggerProvider(provider)))

	return provider.Shutdown, nil
}

// severity maps a slog.Level to the minimum OTel severity to export.
func severity(level slog.Level) minsev.Severity {
	switch {
	case level >= slog.LevelError:
		return minsev.SeverityError
	case level >= slog.LevelWarn:
		return minsev.SeverityWarn
	case level >= slog.LevelInfo:
		return minsev.SeverityInfo
	default:
		return minsev.SeverityDebug
	}
}
