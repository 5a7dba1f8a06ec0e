// Package observability configures process-wide logging and, optionally, OpenTelemetry
// export of logs and traces.
package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const instrumentationName = "github.com/florianilch/gitbruv"

// Exporter selects where telemetry is shipped in addition to the console log.
type Exporter string

const (
	ExporterNone     Exporter = "none"
	ExporterStdout   Exporter = "stdout"
	ExporterOTLPGRPC Exporter = "otlp-grpc"
	ExporterOTLPHTTP Exporter = "otlp-http"
)

// Options configures Instrument.
type Options struct {
	Level    slog.Level
	Format   string // text|json
	Exporter Exporter
	// Writer receives console logs. Defaults to os.Stderr so stdout stays free for command output.
	Writer io.Writer
}

// ShutdownFunc flushes and stops telemetry providers.
type ShutdownFunc func(context.Context) error

// Instrument installs the default slog logger and any configured OpenTelemetry providers.
// The returned ShutdownFunc must be called before exit to flush buffered telemetry.
func Instrument(ctx context.Context, opts Options) (ShutdownFunc, error) {
	if opts.Writer == nil {
		opts.Writer = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: opts.Level}
	var console slog.Handler
	switch opts.Format {
	case "", "text":
		console = slog.NewTextHandler(opts.Writer, handlerOpts)
	case "json":
		console = slog.NewJSONHandler(opts.Writer, handlerOpts)
	default:
		return nil, fmt.Errorf("unsupported log format: %s", opts.Format)
	}

	var shutdowns []ShutdownFunc
	shutdown := func(ctx context.Context) error {
		var errs []error
		for i := len(shutdowns) - 1; i >= 0; i-- {
			errs = append(errs, shutdowns[i](ctx))
		}
		return errors.Join(errs...)
	}

	exporter, err := newLogExporter(ctx, opts.Exporter)
	if err != nil {
		return nil, fmt.Errorf("creating log exporter: %w", err)
	}
	if exporter == nil {
		slog.SetDefault(slog.New(console))
		return shutdown, nil
	}

	// Drop records below the configured level before they reach the batch processor
	processor := minsev.NewLogProcessor(sdklog.NewBatchProcessor(exporter), severity(opts.Level))
	loggerProvider := sdklog.NewLoggerProvider(sdklog.WithProcessor(processor))
	global.SetLoggerProvider(loggerProvider)
	shutdowns = append(shutdowns, loggerProvider.Shutdown)

	if opts.Exporter == ExporterOTLPHTTP {
		traceExporter, err := otlptracehttp.New(ctx)
		if err != nil {
			_ = shutdown(ctx)
			return nil, fmt.Errorf("creating trace exporter: %w", err)
		}
		tracerProvider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(traceExporter))
		otel.SetTracerProvider(tracerProvider)
		shutdowns = append(shutdowns, tracerProvider.Shutdown)
	}

	bridge := otelslog.NewHandler(instrumentationName, otelslog.WithLoggerProvider(loggerProvider))
	slog.SetDefault(slog.New(slogmulti.Fanout(console, bridge)))

	return shutdown, nil
}

func newLogExporter(ctx context.Context, exporter Exporter) (sdklog.Exporter, error) {
	switch exporter {
	case "", ExporterNone:
		return nil, nil
	case ExporterStdout:
		return stdoutlog.New()
	case ExporterOTLPGRPC:
		return otlploggrpc.New(ctx)
	case ExporterOTLPHTTP:
		return otlploghttp.New(ctx)
	default:
		return nil, fmt.Errorf("unsupported exporter: %s", exporter)
	}
}

// severity maps a slog level onto the OpenTelemetry severity scale.
func severity(level slog.Level) minsev.Severity {
	switch {
	case level <= slog.LevelDebug:
		return minsev.SeverityDebug
	case level <= slog.LevelInfo:
		return minsev.SeverityInfo
	case level <= slog.LevelWarn:
		return minsev.SeverityWarn
	default:
		return minsev.SeverityError
	}
}
